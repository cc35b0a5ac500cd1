package server

import (
	"net/http"

	"github.com/jonathan/pathway-tracker/internal/types"
)

// QuizRequest carries the chosen option index per question.
type QuizRequest struct {
	Answers []int `json:"answers"`
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.svc.ListCourses(r.Context(), s.principal(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if courses == nil {
		courses = []types.Course{}
	}
	s.jsonResponse(w, http.StatusOK, courses)
}

func (s *Server) handleSaveCourse(w http.ResponseWriter, r *http.Request) {
	var course types.Course
	if !s.decode(w, r, &course) {
		return
	}
	if id := r.PathValue("id"); id != "" {
		course.ID = id
	}
	saved, err := s.svc.SaveCourse(r.Context(), s.principal(r), course)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, createdOrOK(r), saved)
}

func (s *Server) handleListMyProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.svc.ListMyProgress(r.Context(), s.principal(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if progress == nil {
		progress = []types.Progress{}
	}
	s.jsonResponse(w, http.StatusOK, progress)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.svc.GetProgress(r.Context(), s.principal(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, progress)
}

func (s *Server) handleMarkWatched(w http.ResponseWriter, r *http.Request) {
	progress, err := s.svc.MarkWatched(r.Context(), s.principal(r), r.PathValue("id"), r.PathValue("module"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, progress)
}

func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var req QuizRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.svc.SubmitQuiz(r.Context(), s.principal(r), r.PathValue("id"), r.PathValue("module"), req.Answers)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}
