package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chris/focus/internal/db"
)

type contextKey int

const userIDKey contextKey = iota

// TokenStore resolves bearer tokens to user ids.
type TokenStore interface {
	UserForToken(ctx context.Context, token string) (string, error)
}

// Auth resolves "Authorization: Bearer <token>" to a user id. The user id
// in the request context is the only identity handlers trust.
func Auth(tokens TokenStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			token = strings.TrimSpace(token)
			if !ok || token == "" {
				Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			userID, err := tokens.UserForToken(r.Context(), token)
			if err != nil {
				if !db.IsNotFound(err) {
					slog.Error("resolving token", "error", err)
				}
				Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
		})
	}
}

// UserIDFromContext returns the authenticated user id.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}
