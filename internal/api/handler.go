// Package api serves the coaching HTTP API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/chris/focus/internal/agent"
	"github.com/chris/focus/internal/db"
)

// maxRequestBodySize caps every request body (1MB).
const maxRequestBodySize = 1 << 20

// Handler serves the API for one database and orchestrator.
type Handler struct {
	db    *db.DB
	agent *agent.Orchestrator
	now   func() time.Time
}

func NewHandler(d *db.DB, o *agent.Orchestrator) *Handler {
	return &Handler{db: d, agent: o, now: time.Now}
}

// Router builds the full route tree. /health is public; everything under
// /api needs a bearer token.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Route("/api", func(r chi.Router) {
		r.Use(Auth(h.db))
		h.registerChatRoutes(r)
		h.registerGoalRoutes(r)
		h.registerTaskRoutes(r)
		r.Get("/streaks", h.GetStreak)
	})
	return r
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// OK writes the {success, data} envelope used by the CRUD routes.
func OK(w http.ResponseWriter, status int, data any) {
	JSON(w, status, map[string]any{"success": true, "data": data})
}

// decode reads a JSON body of at most maxRequestBodySize bytes.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// storeError maps a persistence error onto a status. Only validation
// messages are echoed; anything unexpected is logged and hidden.
func storeError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *db.ValidationError
	switch {
	case errors.As(err, &invalid):
		Error(w, http.StatusBadRequest, invalid.Error())
	case db.IsNotFound(err):
		Error(w, http.StatusNotFound, "not found")
	default:
		slog.Error("request failed", "path", r.URL.Path, "request_id", chiMiddleware.GetReqID(r.Context()), "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
