package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chris/focus/internal/db"
)

func (h *Handler) registerGoalRoutes(r chi.Router) {
	r.Route("/goals", func(r chi.Router) {
		r.Get("/", h.ListGoals)
		r.Post("/", h.CreateGoal)
		r.Get("/{id}", h.GetGoal)
		r.Patch("/{id}", h.UpdateGoal)
		r.Delete("/{id}", h.DeleteGoal)
		r.Get("/{id}/tasks", h.GoalTasks)
	})
}

func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.db.ListGoals(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		storeError(w, r, err)
		return
	}
	if goals == nil {
		goals = []db.Goal{}
	}
	OK(w, http.StatusOK, goals)
}

func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var in db.GoalInput
	if !decode(w, r, &in) {
		return
	}
	goal, err := h.db.CreateGoal(r.Context(), UserIDFromContext(r.Context()), in)
	if err != nil {
		storeError(w, r, err)
		return
	}
	OK(w, http.StatusCreated, goal)
}

func (h *Handler) GetGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := h.db.GetGoal(r.Context(), chi.URLParam(r, "id"), UserIDFromContext(r.Context()))
	if err != nil {
		storeError(w, r, err)
		return
	}
	OK(w, http.StatusOK, goal)
}

func (h *Handler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	var patch db.GoalPatch
	if !decode(w, r, &patch) {
		return
	}
	goal, err := h.db.UpdateGoal(r.Context(), chi.URLParam(r, "id"), UserIDFromContext(r.Context()), patch)
	if err != nil {
		storeError(w, r, err)
		return
	}
	OK(w, http.StatusOK, goal)
}

func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := h.db.DeleteGoal(r.Context(), chi.URLParam(r, "id"), UserIDFromContext(r.Context())); err != nil {
		storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GoalTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.db.TasksForGoal(r.Context(), chi.URLParam(r, "id"), UserIDFromContext(r.Context()))
	if err != nil {
		storeError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []db.Task{}
	}
	OK(w, http.StatusOK, tasks)
}
