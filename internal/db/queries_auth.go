package db

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
)

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CreateToken issues a new bearer token for userID. Only its hash is stored,
// so the returned plaintext cannot be recovered later.
func (d *DB) CreateToken(ctx context.Context, userID, label string) (string, error) {
	if userID == "" {
		return "", invalid("user_id", "is required")
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	token := hex.EncodeToString(buf)
	_, err := d.conn.ExecContext(ctx,
		"INSERT INTO api_tokens (token_hash, user_id, label, created_at) VALUES (?, ?, ?, ?)",
		hashToken(token), userID, nullStr(label), now(),
	)
	if err != nil {
		return "", fmt.Errorf("storing token: %w", err)
	}
	return token, nil
}

// UserForToken resolves a bearer token to its user id, or ErrNotFound.
func (d *DB) UserForToken(ctx context.Context, token string) (string, error) {
	var userID string
	err := d.conn.QueryRowContext(ctx, "SELECT user_id FROM api_tokens WHERE token_hash = ?", hashToken(token)).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("token: %w", ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("looking up token: %w", err)
	}
	return userID, nil
}

// LinkedUser maps an external identity (a Discord user, for example) to a
// stable user id, creating the link on first sight.
func (d *DB) LinkedUser(ctx context.Context, provider, externalID string) (string, error) {
	candidate := provider + ":" + externalID
	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO user_links (provider, external_id, user_id, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(provider, external_id) DO NOTHING`,
		provider, externalID, candidate, now(),
	)
	if err != nil {
		return "", fmt.Errorf("linking user: %w", err)
	}
	var userID string
	err = d.conn.QueryRowContext(ctx,
		"SELECT user_id FROM user_links WHERE provider = ? AND external_id = ?", provider, externalID,
	).Scan(&userID)
	if err != nil {
		return "", fmt.Errorf("resolving linked user: %w", err)
	}
	return userID, nil
}
