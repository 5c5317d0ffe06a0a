package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"
)

// GetStreak returns the user's streak, or nil if they have never completed
// a task.
func (d *DB) GetStreak(ctx context.Context, userID string) (*Streak, error) {
	var s Streak
	err := d.conn.QueryRowContext(ctx,
		"SELECT user_id, current_streak, best_streak, COALESCE(last_activity,''), updated_at FROM streaks WHERE user_id = ?",
		userID,
	).Scan(&s.UserID, &s.CurrentStreak, &s.BestStreak, &s.LastActivity, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting streak: %w", err)
	}
	return &s, nil
}

// RefreshStreak recomputes the user's streak from their completion history
// as of at.
func (d *DB) RefreshStreak(ctx context.Context, userID string, at time.Time) (*Streak, error) {
	var s *Streak
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		s, err = d.refreshStreak(ctx, tx, userID, at)
		return err
	})
	return s, err
}

func (d *DB) refreshStreak(ctx context.Context, q queryer, userID string, at time.Time) (*Streak, error) {
	dates, err := d.completionDates(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	var best int
	err = q.QueryRowContext(ctx, "SELECT best_streak FROM streaks WHERE user_id = ?", userID).Scan(&best)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reading streak: %w", err)
	}

	s := &Streak{
		UserID:        userID,
		CurrentStreak: computeCurrentStreak(dates, at.In(d.loc).Format(dateLayout)),
		BestStreak:    max(best, computeLongestStreak(dates)),
		UpdatedAt:     now(),
	}
	if len(dates) > 0 {
		s.LastActivity = dates[len(dates)-1]
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO streaks (user_id, current_streak, best_streak, last_activity, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   current_streak = excluded.current_streak,
		   best_streak = excluded.best_streak,
		   last_activity = excluded.last_activity,
		   updated_at = excluded.updated_at`,
		userID, s.CurrentStreak, s.BestStreak, nullStr(s.LastActivity), s.UpdatedAt, s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("saving streak: %w", err)
	}
	return s, nil
}

// completionDates returns the distinct local calendar days on which the user
// completed at least one task, ascending, read from the completion log.
func (d *DB) completionDates(ctx context.Context, q queryer, userID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT completed_at FROM task_completions WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("querying completion dates: %w", err)
	}
	defer rows.Close()
	seen := make(map[string]bool)
	var dates []string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning completion date: %w", err)
		}
		t, err := time.Parse(tsLayout, raw)
		if err != nil {
			continue
		}
		day := t.In(d.loc).Format(dateLayout)
		if !seen[day] {
			seen[day] = true
			dates = append(dates, day)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(dates)
	return dates, nil
}

// SweepStreaks zeroes current streaks whose last activity is older than
// yesterday. It returns how many streaks were reset.
func (d *DB) SweepStreaks(ctx context.Context, today time.Time) (int64, error) {
	yesterday := today.In(d.loc).AddDate(0, 0, -1).Format(dateLayout)
	res, err := d.conn.ExecContext(ctx,
		`UPDATE streaks SET current_streak = 0, updated_at = ?
		 WHERE current_streak > 0 AND (last_activity IS NULL OR last_activity < ?)`,
		now(), yesterday,
	)
	if err != nil {
		return 0, fmt.Errorf("sweeping streaks: %w", err)
	}
	return res.RowsAffected()
}

// computeCurrentStreak walks backward from the end of sorted dates. The
// streak is only live if the most recent date is today or yesterday.
func computeCurrentStreak(dates []string, today string) int {
	if len(dates) == 0 {
		return 0
	}
	todayDate, err := time.Parse(dateLayout, today)
	if err != nil {
		return 0
	}
	last, err := time.Parse(dateLayout, dates[len(dates)-1])
	if err != nil {
		return 0
	}
	if gap := todayDate.Sub(last); gap > 24*time.Hour || gap < 0 {
		return 0
	}

	streak := 1
	for i := len(dates) - 2; i >= 0; i-- {
		cur, err := time.Parse(dateLayout, dates[i])
		if err != nil {
			break
		}
		next, _ := time.Parse(dateLayout, dates[i+1])
		if next.Sub(cur) != 24*time.Hour {
			break
		}
		streak++
	}
	return streak
}

// computeLongestStreak walks forward through sorted dates tracking the
// longest consecutive run.
func computeLongestStreak(dates []string) int {
	if len(dates) == 0 {
		return 0
	}
	longest, current := 1, 1
	for i := 1; i < len(dates); i++ {
		prev, err1 := time.Parse(dateLayout, dates[i-1])
		cur, err2 := time.Parse(dateLayout, dates[i])
		if err1 != nil || err2 != nil || cur.Sub(prev) != 24*time.Hour {
			current = 1
			continue
		}
		current++
		longest = max(longest, current)
	}
	return longest
}
