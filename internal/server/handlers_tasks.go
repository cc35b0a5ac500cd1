package server

import (
	"net/http"
	"strconv"

	"github.com/jonathan/pathway-tracker/internal/store"
	"github.com/jonathan/pathway-tracker/internal/tracker"
	"github.com/jonathan/pathway-tracker/internal/types"
)

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	p := s.principal(r)
	q := r.URL.Query()
	filter := store.TaskFilter{
		MemberID:     q.Get("member_id"),
		AssignedToID: q.Get("assigned_to"),
	}
	if q.Get("mine") == "true" {
		filter.AssignedToID = p.UserID
	}
	if raw := q.Get("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			s.fail(w, r, &ErrValidation{Field: "completed", Message: "must be true or false"})
			return
		}
		filter.Completed = &completed
	}

	tasks, err := s.svc.ListTasks(r.Context(), p, filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []types.Task{}
	}
	s.jsonResponse(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in tracker.TaskInput
	if !s.decode(w, r, &in) {
		return
	}
	task, err := s.svc.CreateTask(r.Context(), s.principal(r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, task)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.svc.ToggleTask(r.Context(), s.principal(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTask(r.Context(), s.principal(r), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
