package server

import (
	"net/http"

	"github.com/jonathan/pathway-tracker/internal/store"
	"github.com/jonathan/pathway-tracker/internal/tracker"
	"github.com/jonathan/pathway-tracker/internal/types"
)

// AssignRequest sets or clears a member's assignee.
type AssignRequest struct {
	AssignedToID string `json:"assigned_to_id"`
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.MemberFilter{
		AssignedToID: q.Get("assigned_to"),
		Pathway:      types.Pathway(q.Get("pathway")),
		StageID:      q.Get("stage"),
		Status:       types.MemberStatus(q.Get("status")),
		Tag:          q.Get("tag"),
		Search:       q.Get("q"),
	}
	members, err := s.svc.ListMembers(r.Context(), s.principal(r), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if members == nil {
		members = []types.Member{}
	}
	s.jsonResponse(w, http.StatusOK, members)
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var in tracker.MemberInput
	if !s.decode(w, r, &in) {
		return
	}
	member, err := s.svc.CreateMember(r.Context(), s.principal(r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, member)
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	member, err := s.svc.GetMember(r.Context(), s.principal(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, member)
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	var u tracker.MemberUpdate
	if !s.decode(w, r, &u) {
		return
	}
	res, err := s.svc.UpdateMember(r.Context(), s.principal(r), r.PathValue("id"), u)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteMember(r.Context(), s.principal(r), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdvanceMember(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.AdvanceMember(r.Context(), s.principal(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	var in tracker.NoteInput
	if !s.decode(w, r, &in) {
		return
	}
	member, err := s.svc.AddNote(r.Context(), s.principal(r), r.PathValue("id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, member)
}

func (s *Server) handleAssignMember(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if !s.decode(w, r, &req) {
		return
	}
	member, err := s.svc.AssignMember(r.Context(), s.principal(r), r.PathValue("id"), req.AssignedToID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, member)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var in tracker.MessageInput
	if !s.decode(w, r, &in) {
		return
	}
	member, err := s.svc.SendMessage(r.Context(), s.principal(r), r.PathValue("id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, member)
}

func (s *Server) handleDraftMessage(w http.ResponseWriter, r *http.Request) {
	var in tracker.DraftInput
	if !s.decode(w, r, &in) {
		return
	}
	draft, err := s.svc.DraftMessage(r.Context(), s.principal(r), r.PathValue("id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, draft)
}
