package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const sessionTitleLimit = 50

// SessionTitle derives a session title from its first user message.
func SessionTitle(message string) string {
	if utf8.RuneCountInString(message) <= sessionTitleLimit {
		return message
	}
	return string([]rune(message)[:sessionTitleLimit]) + "..."
}

// ListSessions returns the user's chat sessions, most recently active first.
func (d *DB) ListSessions(ctx context.Context, userID string) ([]ChatSession, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT s.id, s.user_id, COALESCE(s.title,''), s.last_message_at, s.created_at,
		        (SELECT COUNT(*) FROM chat_messages m WHERE m.session_id = s.id)
		 FROM chat_sessions s WHERE s.user_id = ?
		 ORDER BY s.last_message_at DESC, s.rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()
	var out []ChatSession
	for rows.Next() {
		var s ChatSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.LastMessageAt, &s.CreatedAt, &s.MessageCount); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSession returns one session owned by userID, or ErrNotFound.
func (d *DB) GetSession(ctx context.Context, id, userID string) (*ChatSession, error) {
	return getSession(ctx, d.conn, id, userID)
}

func getSession(ctx context.Context, q queryer, id, userID string) (*ChatSession, error) {
	var s ChatSession
	err := q.QueryRowContext(ctx,
		`SELECT s.id, s.user_id, COALESCE(s.title,''), s.last_message_at, s.created_at,
		        (SELECT COUNT(*) FROM chat_messages m WHERE m.session_id = s.id)
		 FROM chat_sessions s WHERE s.id = ? AND s.user_id = ?`,
		id, userID,
	).Scan(&s.ID, &s.UserID, &s.Title, &s.LastMessageAt, &s.CreatedAt, &s.MessageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return &s, nil
}

// LatestSession returns the user's most recently active session, or nil.
func (d *DB) LatestSession(ctx context.Context, userID string) (*ChatSession, error) {
	var id string
	err := d.conn.QueryRowContext(ctx,
		"SELECT id FROM chat_sessions WHERE user_id = ? ORDER BY last_message_at DESC, rowid DESC LIMIT 1",
		userID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest session: %w", err)
	}
	return d.GetSession(ctx, id, userID)
}

// CreateSession opens a new, empty session.
func (d *DB) CreateSession(ctx context.Context, userID, title string) (*ChatSession, error) {
	ts := now()
	s := &ChatSession{ID: newID(), UserID: userID, Title: title, LastMessageAt: ts, CreatedAt: ts}
	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, user_id, title, last_message_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, userID, nullStr(title), ts, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return s, nil
}

// DeleteSession removes a session and its messages.
func (d *DB) DeleteSession(ctx context.Context, id, userID string) error {
	res, err := d.conn.ExecContext(ctx, "DELETE FROM chat_sessions WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

// SessionMessages returns a session's messages in insertion order.
func (d *DB) SessionMessages(ctx context.Context, sessionID, userID string) ([]ChatMessage, error) {
	if _, err := d.GetSession(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, session_id, user_id, role, content, created_at FROM chat_messages
		 WHERE session_id = ? AND user_id = ? ORDER BY created_at, rowid`,
		sessionID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()
	var out []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AppendMessages writes messages to a session in one transaction and bumps
// its activity time. When sessionID is empty a new session is created and
// titled from the first user message. The session id is returned.
func (d *DB) AppendMessages(ctx context.Context, sessionID, userID string, msgs []ChatMessage) (string, error) {
	for _, m := range msgs {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return "", invalid("role", "must be user or assistant")
		}
	}
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		ts := now()
		if sessionID == "" {
			var title string
			for _, m := range msgs {
				if m.Role == RoleUser {
					title = SessionTitle(m.Content)
					break
				}
			}
			sessionID = newID()
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO chat_sessions (id, user_id, title, last_message_at, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				sessionID, userID, nullStr(title), ts, ts, ts,
			); err != nil {
				return fmt.Errorf("creating session: %w", err)
			}
		} else {
			res, err := tx.ExecContext(ctx,
				"UPDATE chat_sessions SET last_message_at = ?, updated_at = ? WHERE id = ? AND user_id = ?",
				ts, ts, sessionID, userID,
			)
			if err != nil {
				return fmt.Errorf("touching session: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
			}
		}
		for _, m := range msgs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO chat_messages (id, session_id, user_id, role, content, created_at)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				newID(), sessionID, userID, m.Role, m.Content, ts,
			); err != nil {
				return fmt.Errorf("inserting message: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return sessionID, nil
}
