package server

import (
	"net/http"

	"github.com/jonathan/pathway-tracker/internal/tracker"
	"github.com/jonathan/pathway-tracker/internal/types"
)

// ReorderRequest lists a pathway's stage ids in their new order.
type ReorderRequest struct {
	Pathway  types.Pathway `json:"pathway"`
	StageIDs []string      `json:"stage_ids"`
}

// createdOrOK is 201 for collection POSTs and 200 for updates by id.
func createdOrOK(r *http.Request) int {
	if r.PathValue("id") == "" {
		return http.StatusCreated
	}
	return http.StatusOK
}

func (s *Server) handleListStages(w http.ResponseWriter, r *http.Request) {
	stages, err := s.svc.ListStages(r.Context(), s.principal(r), types.Pathway(r.URL.Query().Get("pathway")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if stages == nil {
		stages = []types.Stage{}
	}
	s.jsonResponse(w, http.StatusOK, stages)
}

func (s *Server) handleSaveStage(w http.ResponseWriter, r *http.Request) {
	var in tracker.StageInput
	if !s.decode(w, r, &in) {
		return
	}
	if id := r.PathValue("id"); id != "" {
		in.ID = id
	}
	stage, err := s.svc.SaveStage(r.Context(), s.principal(r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, createdOrOK(r), stage)
}

func (s *Server) handleDeleteStage(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteStage(r.Context(), s.principal(r), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReorderStages(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if !s.decode(w, r, &req) {
		return
	}
	stages, err := s.svc.ReorderStages(r.Context(), s.principal(r), req.Pathway, req.StageIDs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, stages)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.svc.ListRules(r.Context(), s.principal(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rules == nil {
		rules = []types.AutomationRule{}
	}
	s.jsonResponse(w, http.StatusOK, rules)
}

func (s *Server) handleSaveRule(w http.ResponseWriter, r *http.Request) {
	var in tracker.RuleInput
	if !s.decode(w, r, &in) {
		return
	}
	if id := r.PathValue("id"); id != "" {
		in.ID = id
	}
	rule, err := s.svc.SaveRule(r.Context(), s.principal(r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, createdOrOK(r), rule)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteRule(r.Context(), s.principal(r), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
