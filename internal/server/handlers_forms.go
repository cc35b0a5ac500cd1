package server

import (
	"net/http"

	"github.com/jonathan/pathway-tracker/internal/types"
)

func (s *Server) handleListForms(w http.ResponseWriter, r *http.Request) {
	forms, err := s.svc.ListForms(r.Context(), s.principal(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if forms == nil {
		forms = []types.Form{}
	}
	s.jsonResponse(w, http.StatusOK, forms)
}

func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	form, err := s.svc.GetForm(r.Context(), s.principal(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, form)
}

func (s *Server) handleSaveForm(w http.ResponseWriter, r *http.Request) {
	var form types.Form
	if !s.decode(w, r, &form) {
		return
	}
	if id := r.PathValue("id"); id != "" {
		form.ID = id
	}
	saved, err := s.svc.SaveForm(r.Context(), s.principal(r), form)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, createdOrOK(r), saved)
}

func (s *Server) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteForm(r.Context(), s.principal(r), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.svc.ListSubmissions(r.Context(), s.principal(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if subs == nil {
		subs = []types.Submission{}
	}
	s.jsonResponse(w, http.StatusOK, subs)
}

// handleGetPublicForm serves an active form and its JSON Schema without auth.
func (s *Server) handleGetPublicForm(w http.ResponseWriter, r *http.Request) {
	form, err := s.svc.GetPublicForm(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, form)
}

// handleSubmitForm accepts an anonymous submission.
func (s *Server) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if !s.decode(w, r, &payload) {
		return
	}
	res, err := s.svc.SubmitForm(r.Context(), r.PathValue("id"), payload)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, res)
}
