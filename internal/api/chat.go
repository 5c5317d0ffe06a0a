package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/chris/focus/internal/agent"
	"github.com/chris/focus/internal/db"
	"github.com/chris/focus/internal/llm"
)

type ChatRequest struct {
	Message             string        `json:"message"`
	SessionID           string        `json:"session_id,omitempty"`
	ConversationHistory []llm.Message `json:"conversationHistory,omitempty"`
}

type TaskChatRequest struct {
	Message             string        `json:"message"`
	TaskID              string        `json:"task_id"`
	ConversationHistory []llm.Message `json:"conversationHistory,omitempty"`
}

func (h *Handler) registerChatRoutes(r chi.Router) {
	r.Route("/ai", func(r chi.Router) {
		r.Post("/chat", h.Chat)
		r.Post("/task-chat", h.TaskChat)
		r.Get("/chat/sessions", h.ListSessions)
		r.Post("/chat/sessions", h.CreateSession)
		r.Get("/chat/sessions/{id}/messages", h.SessionMessages)
		r.Delete("/chat/sessions/{id}", h.DeleteSession)
	})
}

// Chat runs one coaching turn. A blank message is rejected before any
// completion call.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}
	if !validHistory(req.ConversationHistory) {
		Error(w, http.StatusBadRequest, "conversationHistory roles must be user or assistant")
		return
	}

	userID := UserIDFromContext(r.Context())
	reply, err := h.agent.Run(r.Context(), agent.Turn{
		UserID:    userID,
		Message:   req.Message,
		SessionID: req.SessionID,
		History:   req.ConversationHistory,
	})
	if err != nil {
		turnFailed(w, err, "user_id", userID)
		return
	}
	JSON(w, http.StatusOK, reply)
}

// TaskChat coaches on one task owned by the caller.
func (h *Handler) TaskChat(w http.ResponseWriter, r *http.Request) {
	var req TaskChatRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}
	if strings.TrimSpace(req.TaskID) == "" {
		Error(w, http.StatusBadRequest, "task_id is required")
		return
	}
	if !validHistory(req.ConversationHistory) {
		Error(w, http.StatusBadRequest, "conversationHistory roles must be user or assistant")
		return
	}

	userID := UserIDFromContext(r.Context())
	reply, err := h.agent.TaskChat(r.Context(), userID, req.TaskID, req.Message, req.ConversationHistory)
	if db.IsNotFound(err) {
		Error(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		turnFailed(w, err, "user_id", userID, "task_id", req.TaskID)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"message": reply})
}

func turnFailed(w http.ResponseWriter, err error, attrs ...any) {
	if errors.Is(err, agent.ErrEmptyMessage) {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}
	slog.Error("chat turn failed", append(attrs, "error", err)...)
	var te *agent.TurnError
	if errors.As(err, &te) {
		Error(w, http.StatusInternalServerError, te.Message)
		return
	}
	Error(w, http.StatusInternalServerError, agent.DegradedMessage)
}

func validHistory(msgs []llm.Message) bool {
	for _, m := range msgs {
		if m.Role != llm.RoleUser && m.Role != llm.RoleAssistant {
			return false
		}
	}
	return true
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.db.ListSessions(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		storeError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []db.ChatSession{}
	}
	OK(w, http.StatusOK, sessions)
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	session, err := h.db.CreateSession(r.Context(), UserIDFromContext(r.Context()), strings.TrimSpace(req.Title))
	if err != nil {
		storeError(w, r, err)
		return
	}
	OK(w, http.StatusCreated, session)
}

func (h *Handler) SessionMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.db.SessionMessages(r.Context(), chi.URLParam(r, "id"), UserIDFromContext(r.Context()))
	if err != nil {
		storeError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []db.ChatMessage{}
	}
	OK(w, http.StatusOK, msgs)
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.db.DeleteSession(r.Context(), chi.URLParam(r, "id"), UserIDFromContext(r.Context())); err != nil {
		storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
