package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/jonathan/pathway-tracker/internal/types"
)

func (s *Server) handleListIntegrations(w http.ResponseWriter, r *http.Request) {
	configs, err := s.svc.ListIntegrations(r.Context(), s.principal(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if configs == nil {
		configs = []types.IntegrationConfig{}
	}
	s.jsonResponse(w, http.StatusOK, configs)
}

func (s *Server) handleSaveIntegration(w http.ResponseWriter, r *http.Request) {
	var cfg types.IntegrationConfig
	if !s.decode(w, r, &cfg) {
		return
	}
	if id := r.PathValue("id"); id != "" {
		cfg.ID = id
	}
	saved, err := s.svc.SaveIntegration(r.Context(), s.principal(r), cfg)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, createdOrOK(r), saved)
}

func (s *Server) handleDeleteIntegration(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteIntegration(r.Context(), s.principal(r), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSyncIntegration(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.SyncIntegration(r.Context(), s.principal(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

func (s *Server) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	reports, err := s.svc.SyncAll(r.Context(), s.principal(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"reports": reports})
}

// handleImportCSV ingests a CSV body with the integration's settings.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCSVBytes))
	if err != nil {
		s.errorResponse(w, http.StatusRequestEntityTooLarge, "CSV body too large")
		return
	}
	raw := string(body)
	if strings.TrimSpace(raw) == "" {
		s.fail(w, r, &ErrValidation{Field: "body", Message: "CSV body is empty"})
		return
	}
	report, err := s.svc.ImportCSV(r.Context(), s.principal(r), r.PathValue("id"), raw)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}
