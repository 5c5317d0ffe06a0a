package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const taskColumns = `id, goal_id, user_id, title, COALESCE(description,''), COALESCE(due_date,''),
	is_recurring, COALESCE(cadence,''), COALESCE(category,''), COALESCE(completed_at,''),
	created_at, updated_at`

// ListTasks returns the user's tasks, newest first, narrowed by filter.
func (d *DB) ListTasks(ctx context.Context, userID string, filter TaskFilter) ([]Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE user_id = ?"
	args := []any{userID}
	if filter.GoalID != "" {
		query += " AND goal_id = ?"
		args = append(args, filter.GoalID)
	}
	if filter.Date != "" {
		query += " AND due_date = ?"
		args = append(args, filter.Date)
	}
	if filter.Completed != nil {
		if *filter.Completed {
			query += " AND completed_at IS NOT NULL"
		} else {
			query += " AND completed_at IS NULL"
		}
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	return scanTasks(ctx, d.conn, query, args...)
}

// TodayTasks returns tasks whose due date equals today's calendar date.
func (d *DB) TodayTasks(ctx context.Context, userID string, today time.Time) ([]Task, error) {
	return scanTasks(ctx, d.conn,
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = ? AND due_date = ? ORDER BY created_at, rowid",
		userID, today.In(d.loc).Format(dateLayout),
	)
}

// TasksForGoal returns a goal's tasks ordered by due date. The goal must be
// owned by userID.
func (d *DB) TasksForGoal(ctx context.Context, goalID, userID string) ([]Task, error) {
	if _, err := d.GetGoal(ctx, goalID, userID); err != nil {
		return nil, err
	}
	return scanTasks(ctx, d.conn,
		"SELECT "+taskColumns+` FROM tasks WHERE goal_id = ? AND user_id = ?
		 ORDER BY due_date IS NULL, due_date, created_at, rowid`,
		goalID, userID,
	)
}

// CompletedSince returns tasks completed at or after since.
func (d *DB) CompletedSince(ctx context.Context, userID string, since time.Time) ([]Task, error) {
	return scanTasks(ctx, d.conn,
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = ? AND completed_at >= ? ORDER BY completed_at",
		userID, formatTS(since),
	)
}

// GetTask returns one task owned by userID, or ErrNotFound.
func (d *DB) GetTask(ctx context.Context, id, userID string) (*Task, error) {
	return getTask(ctx, d.conn, id, userID)
}

func getTask(ctx context.Context, q queryer, id, userID string) (*Task, error) {
	tasks, err := scanTasks(ctx, q, "SELECT "+taskColumns+" FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return &tasks[0], nil
}

// CreateTask validates and inserts a task. The referenced goal must be owned
// by userID; otherwise ErrNotFound is returned.
func (d *DB) CreateTask(ctx context.Context, userID string, in TaskInput) (*Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var t *Task
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getGoal(ctx, tx, in.GoalID, userID); err != nil {
			return err
		}
		var err error
		t, err = insertTask(ctx, tx, userID, in)
		return err
	})
	return t, err
}

func insertTask(ctx context.Context, q queryer, userID string, in TaskInput) (*Task, error) {
	ts := now()
	t := &Task{
		ID: newID(), GoalID: in.GoalID, UserID: userID, Title: in.Title, Description: in.Description,
		DueDate: in.DueDate, IsRecurring: in.IsRecurring, Cadence: in.Cadence, Category: in.Category,
		CreatedAt: ts, UpdatedAt: ts,
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO tasks (id, goal_id, user_id, title, description, due_date, is_recurring, cadence, category, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.GoalID, userID, t.Title, nullStr(t.Description), nullStr(t.DueDate),
		t.IsRecurring, nullStr(t.Cadence), nullStr(t.Category), ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return t, nil
}

// UpdateTask applies a patch to a user-owned task and returns the result.
func (d *DB) UpdateTask(ctx context.Context, id, userID string, patch TaskPatch) (*Task, error) {
	var updated *Task
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		current, err := getTask(ctx, tx, id, userID)
		if err != nil {
			return err
		}
		_, fields, err := patch.apply(*current)
		if err != nil {
			return err
		}
		if err := d.updateRow(ctx, tx, "tasks", id, userID, fields); err != nil {
			return err
		}
		updated, err = getTask(ctx, tx, id, userID)
		return err
	})
	return updated, err
}

// CompleteTask stamps the task's completion time with at and refreshes the
// user's streak in the same transaction. Completing an already completed
// task moves the timestamp forward; every completion is logged, so a
// recurring task counts toward each day it was done.
func (d *DB) CompleteTask(ctx context.Context, id, userID string, at time.Time) (*Task, error) {
	return d.setCompletion(ctx, id, userID, at, formatTS(at))
}

// UncompleteTask clears the completion timestamp, returning the task to
// pending, and drops that completion from the log.
func (d *DB) UncompleteTask(ctx context.Context, id, userID string) (*Task, error) {
	return d.setCompletion(ctx, id, userID, time.Now(), "")
}

func (d *DB) setCompletion(ctx context.Context, id, userID string, at time.Time, completedAt string) (*Task, error) {
	var t *Task
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		var prev sql.NullString
		err := tx.QueryRowContext(ctx, "SELECT completed_at FROM tasks WHERE id = ? AND user_id = ?", id, userID).Scan(&prev)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("reading task completion: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE tasks SET completed_at = ?, updated_at = ? WHERE id = ? AND user_id = ?",
			nullStr(completedAt), now(), id, userID,
		); err != nil {
			return fmt.Errorf("setting task completion: %w", err)
		}

		if completedAt != "" {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO task_completions (task_id, user_id, completed_at) VALUES (?, ?, ?)",
				id, userID, completedAt,
			)
		} else if prev.Valid {
			_, err = tx.ExecContext(ctx,
				"DELETE FROM task_completions WHERE task_id = ? AND user_id = ? AND completed_at = ?",
				id, userID, prev.String,
			)
		}
		if err != nil {
			return fmt.Errorf("logging task completion: %w", err)
		}

		if _, err := d.refreshStreak(ctx, tx, userID, at); err != nil {
			return err
		}
		t, err = getTask(ctx, tx, id, userID)
		return err
	})
	return t, err
}

// DeleteTask removes a user-owned task.
func (d *DB) DeleteTask(ctx context.Context, id, userID string) error {
	return d.deleteRow(ctx, "tasks", id, userID)
}

func scanTasks(ctx context.Context, q queryer, query string, args ...any) ([]Task, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()
	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.GoalID, &t.UserID, &t.Title, &t.Description, &t.DueDate,
			&t.IsRecurring, &t.Cadence, &t.Category, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
