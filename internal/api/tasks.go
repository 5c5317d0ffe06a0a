package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chris/focus/internal/db"
)

func (h *Handler) registerTaskRoutes(r chi.Router) {
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.ListTasks)
		r.Get("/today", h.TodayTasks)
		r.Post("/", h.CreateTask)
		r.Patch("/{id}", h.UpdateTask)
		r.Patch("/{id}/complete", h.CompleteTask)
		r.Patch("/{id}/uncomplete", h.UncompleteTask)
		r.Delete("/{id}", h.DeleteTask)
	})
}

// ListTasks supports ?goal_id=, ?date=YYYY-MM-DD and ?completed=true|false.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := db.TaskFilter{GoalID: q.Get("goal_id"), Date: q.Get("date")}
	if filter.Date != "" {
		if _, err := time.Parse("2006-01-02", filter.Date); err != nil {
			Error(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}
	if v := q.Get("completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			Error(w, http.StatusBadRequest, "completed must be true or false")
			return
		}
		filter.Completed = &completed
	}

	tasks, err := h.db.ListTasks(r.Context(), UserIDFromContext(r.Context()), filter)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeTasks(w, tasks)
}

func (h *Handler) TodayTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.db.TodayTasks(r.Context(), UserIDFromContext(r.Context()), h.now())
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeTasks(w, tasks)
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var in db.TaskInput
	if !decode(w, r, &in) {
		return
	}
	task, err := h.db.CreateTask(r.Context(), UserIDFromContext(r.Context()), in)
	if err != nil {
		storeError(w, r, err)
		return
	}
	OK(w, http.StatusCreated, task)
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch db.TaskPatch
	if !decode(w, r, &patch) {
		return
	}
	task, err := h.db.UpdateTask(r.Context(), chi.URLParam(r, "id"), UserIDFromContext(r.Context()), patch)
	if err != nil {
		storeError(w, r, err)
		return
	}
	OK(w, http.StatusOK, task)
}

func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.db.CompleteTask(r.Context(), chi.URLParam(r, "id"), UserIDFromContext(r.Context()), h.now())
	if err != nil {
		storeError(w, r, err)
		return
	}
	OK(w, http.StatusOK, task)
}

func (h *Handler) UncompleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.db.UncompleteTask(r.Context(), chi.URLParam(r, "id"), UserIDFromContext(r.Context()))
	if err != nil {
		storeError(w, r, err)
		return
	}
	OK(w, http.StatusOK, task)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.db.DeleteTask(r.Context(), chi.URLParam(r, "id"), UserIDFromContext(r.Context())); err != nil {
		storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStreak returns the caller's streak recomputed as of now, zeroed when
// none exists yet.
func (h *Handler) GetStreak(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	streak, err := h.db.GetStreak(r.Context(), userID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if streak == nil {
		OK(w, http.StatusOK, &db.Streak{UserID: userID})
		return
	}
	streak, err = h.db.RefreshStreak(r.Context(), userID, h.now())
	if err != nil {
		storeError(w, r, err)
		return
	}
	OK(w, http.StatusOK, streak)
}

func writeTasks(w http.ResponseWriter, tasks []db.Task) {
	if tasks == nil {
		tasks = []db.Task{}
	}
	OK(w, http.StatusOK, tasks)
}
