package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const goalColumns = `id, user_id, title, COALESCE(description,''), COALESCE(target_date,''),
	COALESCE(goal_type,''), created_at, updated_at`

// ListGoals returns the user's goals, newest first.
func (d *DB) ListGoals(ctx context.Context, userID string) ([]Goal, error) {
	return d.scanGoals(ctx, "SELECT "+goalColumns+" FROM goals WHERE user_id = ? ORDER BY created_at DESC", userID)
}

// GetGoal returns one goal owned by userID, or ErrNotFound.
func (d *DB) GetGoal(ctx context.Context, id, userID string) (*Goal, error) {
	return getGoal(ctx, d.conn, id, userID)
}

func getGoal(ctx context.Context, q queryer, id, userID string) (*Goal, error) {
	var g Goal
	err := q.QueryRowContext(ctx, "SELECT "+goalColumns+" FROM goals WHERE id = ? AND user_id = ?", id, userID).
		Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &g.TargetDate, &g.GoalType, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("goal %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting goal: %w", err)
	}
	return &g, nil
}

// CreateGoal validates and inserts a goal owned by userID.
func (d *DB) CreateGoal(ctx context.Context, userID string, in GoalInput) (*Goal, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var g *Goal
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		g, err = insertGoal(ctx, tx, userID, in)
		return err
	})
	return g, err
}

func insertGoal(ctx context.Context, q queryer, userID string, in GoalInput) (*Goal, error) {
	ts := now()
	g := &Goal{
		ID: newID(), UserID: userID, Title: in.Title, Description: in.Description,
		TargetDate: in.TargetDate, GoalType: in.GoalType, CreatedAt: ts, UpdatedAt: ts,
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO goals (id, user_id, title, description, target_date, goal_type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, userID, g.Title, nullStr(g.Description), nullStr(g.TargetDate), nullStr(g.GoalType), ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("creating goal: %w", err)
	}
	return g, nil
}

// CreateGoalWithTasks inserts a goal and its task plan in one transaction.
// The tasks' GoalID fields are ignored and set to the new goal.
func (d *DB) CreateGoalWithTasks(ctx context.Context, userID string, in GoalInput, tasks []TaskInput) (*Goal, []Task, error) {
	if err := in.Validate(); err != nil {
		return nil, nil, err
	}
	var (
		goal    *Goal
		created []Task
	)
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		goal, err = insertGoal(ctx, tx, userID, in)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			t.GoalID = goal.ID
			if err := t.Validate(); err != nil {
				return err
			}
			task, err := insertTask(ctx, tx, userID, t)
			if err != nil {
				return err
			}
			created = append(created, *task)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return goal, created, nil
}

// UpdateGoal applies a patch to a user-owned goal and returns the result.
func (d *DB) UpdateGoal(ctx context.Context, id, userID string, patch GoalPatch) (*Goal, error) {
	fields, err := patch.fields()
	if err != nil {
		return nil, err
	}
	if err := d.updateRow(ctx, d.conn, "goals", id, userID, fields); err != nil {
		return nil, err
	}
	return d.GetGoal(ctx, id, userID)
}

// DeleteGoal removes a goal and, by cascade, its tasks.
func (d *DB) DeleteGoal(ctx context.Context, id, userID string) error {
	return d.deleteRow(ctx, "goals", id, userID)
}

// CountGoals returns how many goals the user has.
func (d *DB) CountGoals(ctx context.Context, userID string) (int, error) {
	var n int
	if err := d.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM goals WHERE user_id = ?", userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting goals: %w", err)
	}
	return n, nil
}

func (d *DB) scanGoals(ctx context.Context, query string, args ...any) ([]Goal, error) {
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying goals: %w", err)
	}
	defer rows.Close()
	var goals []Goal
	for rows.Next() {
		var g Goal
		if err := rows.Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &g.TargetDate, &g.GoalType, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}
