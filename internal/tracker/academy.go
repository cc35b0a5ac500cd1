package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-tracker/internal/academy"
	"github.com/jonathan/pathway-tracker/internal/permissions"
	"github.com/jonathan/pathway-tracker/internal/types"
)

// CourseProgress is a user's progress with its completion percentage.
type CourseProgress struct {
	Progress types.Progress `json:"progress"`
	Percent  int            `json:"percent"`
}

// QuizResult is the outcome of one quiz attempt.
type QuizResult struct {
	Score    int            `json:"score"`
	Passed   bool           `json:"passed"`
	Progress CourseProgress `json:"course_progress"`
}

// ListCourses returns courses. Only academy managers see unpublished ones.
func (s *Service) ListCourses(ctx context.Context, p permissions.Principal) ([]types.Course, error) {
	if err := permissions.Require(p, permissions.AcademyView); err != nil {
		return nil, err
	}
	courses, err := s.store.ListCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	if p.Can(permissions.AcademyManage) {
		return courses, nil
	}
	visible := courses[:0]
	for _, c := range courses {
		if c.Published {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

// SaveCourse creates or updates a course.
func (s *Service) SaveCourse(ctx context.Context, p permissions.Principal, c types.Course) (*types.Course, error) {
	if err := permissions.Require(p, permissions.AcademyManage); err != nil {
		return nil, err
	}
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" {
		return nil, invalid("title", "is required")
	}
	seen := map[string]bool{}
	for i, mod := range c.Modules {
		if mod.ID == "" {
			c.Modules[i].ID = uuid.NewString()
		} else if seen[mod.ID] {
			return nil, invalid("modules", "duplicate module id %s", mod.ID)
		}
		seen[c.Modules[i].ID] = true
		for _, q := range mod.Quiz {
			if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
				return nil, invalid("modules", "question %q in module %q has no valid answer", q.Prompt, mod.Title)
			}
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := s.store.SaveCourse(ctx, &c); err != nil {
		return nil, fmt.Errorf("failed to save course: %w", err)
	}
	return &c, nil
}

func (s *Service) visibleCourse(ctx context.Context, p permissions.Principal, id string) (*types.Course, error) {
	c, err := s.store.GetCourse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load course: %w", err)
	}
	if c == nil || (!c.Published && !p.Can(permissions.AcademyManage)) {
		return nil, notFound("course", id)
	}
	return c, nil
}

func (s *Service) progressFor(ctx context.Context, p permissions.Principal, course *types.Course) (types.Progress, error) {
	prog, err := s.store.GetProgress(ctx, p.UserID, course.ID)
	if err != nil {
		return types.Progress{}, fmt.Errorf("failed to load progress: %w", err)
	}
	if prog == nil {
		return academy.NewProgress(p.UserID, course.ID, s.now()), nil
	}
	return *prog, nil
}

// GetProgress returns the principal's progress in a course.
func (s *Service) GetProgress(ctx context.Context, p permissions.Principal, courseID string) (*CourseProgress, error) {
	if err := permissions.Require(p, permissions.AcademyView); err != nil {
		return nil, err
	}
	course, err := s.visibleCourse(ctx, p, courseID)
	if err != nil {
		return nil, err
	}
	prog, err := s.progressFor(ctx, p, course)
	if err != nil {
		return nil, err
	}
	return &CourseProgress{Progress: prog, Percent: academy.Percent(*course, prog)}, nil
}

// MarkWatched records that the principal watched a module's video.
func (s *Service) MarkWatched(ctx context.Context, p permissions.Principal, courseID, moduleID string) (*CourseProgress, error) {
	if err := permissions.Require(p, permissions.AcademyView); err != nil {
		return nil, err
	}
	course, err := s.visibleCourse(ctx, p, courseID)
	if err != nil {
		return nil, err
	}
	prog, err := s.progressFor(ctx, p, course)
	if err != nil {
		return nil, err
	}
	prog, err = academy.MarkWatched(*course, prog, moduleID, s.now())
	if err != nil {
		return nil, academyError(err)
	}
	if err := s.store.SaveProgress(ctx, &prog); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	return &CourseProgress{Progress: prog, Percent: academy.Percent(*course, prog)}, nil
}

// SubmitQuiz scores a quiz attempt and keeps the best score.
func (s *Service) SubmitQuiz(ctx context.Context, p permissions.Principal, courseID, moduleID string, answers []int) (*QuizResult, error) {
	if err := permissions.Require(p, permissions.AcademyView); err != nil {
		return nil, err
	}
	course, err := s.visibleCourse(ctx, p, courseID)
	if err != nil {
		return nil, err
	}
	prog, err := s.progressFor(ctx, p, course)
	if err != nil {
		return nil, err
	}
	prog, score, passed, err := academy.SubmitQuiz(*course, prog, moduleID, answers, s.now())
	if err != nil {
		return nil, academyError(err)
	}
	if err := s.store.SaveProgress(ctx, &prog); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	return &QuizResult{
		Score:    score,
		Passed:   passed,
		Progress: CourseProgress{Progress: prog, Percent: academy.Percent(*course, prog)},
	}, nil
}

// ListMyProgress returns the principal's progress across courses.
func (s *Service) ListMyProgress(ctx context.Context, p permissions.Principal) ([]types.Progress, error) {
	if err := permissions.Require(p, permissions.AcademyView); err != nil {
		return nil, err
	}
	list, err := s.store.ListProgress(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return list, nil
}

func academyError(err error) error {
	var nf *academy.ErrModuleNotFound
	if errors.As(err, &nf) {
		return notFound("module", nf.ModuleID)
	}
	var ac *academy.AnswerCountError
	if errors.As(err, &ac) {
		return invalid("answers", "expected %d answers, got %d", ac.Want, ac.Got)
	}
	return err
}
