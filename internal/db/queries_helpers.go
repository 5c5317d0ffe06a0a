package db

import (
	"context"
	"fmt"
	"strings"
)

var allowedColumns = map[string]map[string]bool{
	"goals": {"title": true, "description": true, "target_date": true, "goal_type": true},
	"tasks": {"title": true, "description": true, "due_date": true, "is_recurring": true, "cadence": true, "category": true},
}

// updateRow updates a user-owned row's fields. A row owned by someone else
// is reported as ErrNotFound.
func (d *DB) updateRow(ctx context.Context, q queryer, table, id, userID string, fields map[string]any) error {
	allowed, ok := allowedColumns[table]
	if !ok {
		return fmt.Errorf("unknown table: %s", table)
	}
	setClauses := []string{"updated_at = ?"}
	args := []any{now()}
	for col, val := range fields {
		if !allowed[col] {
			return fmt.Errorf("disallowed column %q for table %s", col, table)
		}
		setClauses = append(setClauses, col+" = ?")
		args = append(args, val)
	}
	args = append(args, id, userID)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND user_id = ?", table, strings.Join(setClauses, ", "))
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating %s %s: %w", table, id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%s %s: %w", strings.TrimSuffix(table, "s"), id, ErrNotFound)
	}
	return nil
}

// deleteRow removes a user-owned row.
func (d *DB) deleteRow(ctx context.Context, table, id, userID string) error {
	res, err := d.conn.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", table, id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%s %s: %w", strings.TrimSuffix(table, "s"), id, ErrNotFound)
	}
	return nil
}

func nullStr(s string) any {
	if s == "" || s == "null" {
		return nil
	}
	return s
}
