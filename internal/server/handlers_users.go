package server

import (
	"net/http"

	"github.com/jonathan/pathway-tracker/internal/types"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.ListUsers(r.Context(), s.principal(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if users == nil {
		users = []types.User{}
	}
	s.jsonResponse(w, http.StatusOK, users)
}

func (s *Server) handleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateRoleRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.authHandler.validator.Struct(&req); err != nil {
		s.fail(w, r, extractValidationErrors(err))
		return
	}
	user, err := s.svc.UpdateUserRole(r.Context(), s.principal(r), r.PathValue("id"), req.Role)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, user)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.svc.Dashboard(r.Context(), s.principal(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, dash)
}
