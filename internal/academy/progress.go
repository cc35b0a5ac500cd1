// Package academy tracks volunteer progress through training courses.
package academy

import (
	"fmt"
	"slices"
	"time"

	"github.com/jonathan/pathway-tracker/internal/types"
)

// PassMark is the minimum quiz score, in percent, that passes a module.
const PassMark = 70

// ErrModuleNotFound is returned for a module id that is not part of the course.
type ErrModuleNotFound struct {
	CourseID string
	ModuleID string
}

func (e *ErrModuleNotFound) Error() string {
	return fmt.Sprintf("module %s not found in course %s", e.ModuleID, e.CourseID)
}

// AnswerCountError is returned when a quiz is submitted with the wrong number of answers.
type AnswerCountError struct {
	Want int
	Got  int
}

func (e *AnswerCountError) Error() string {
	return fmt.Sprintf("expected %d answers, got %d", e.Want, e.Got)
}

// NewProgress returns an empty progress record.
func NewProgress(userID, courseID string, now time.Time) types.Progress {
	return types.Progress{
		UserID:     userID,
		CourseID:   courseID,
		Watched:    []string{},
		QuizScores: map[string]int{},
		UpdatedAt:  now,
	}
}

// ScoreQuiz grades answers (option indexes, in question order) and reports
// the percentage score and whether it reaches PassMark. A module without a
// quiz scores 100.
func ScoreQuiz(module types.CourseModule, answers []int) (int, bool, error) {
	if len(module.Quiz) == 0 {
		return 100, true, nil
	}
	if len(answers) != len(module.Quiz) {
		return 0, false, &AnswerCountError{Want: len(module.Quiz), Got: len(answers)}
	}
	correct := 0
	for i, q := range module.Quiz {
		if answers[i] == q.CorrectIndex {
			correct++
		}
	}
	score := correct * 100 / len(module.Quiz)
	return score, score >= PassMark, nil
}

// MarkWatched records that the user finished the module's video.
func MarkWatched(course types.Course, p types.Progress, moduleID string, now time.Time) (types.Progress, error) {
	if _, ok := course.Module(moduleID); !ok {
		return p, &ErrModuleNotFound{CourseID: course.ID, ModuleID: moduleID}
	}
	p = clone(p)
	if !slices.Contains(p.Watched, moduleID) {
		p.Watched = append(p.Watched, moduleID)
	}
	p.Completed = CourseComplete(course, p)
	p.UpdatedAt = now
	return p, nil
}

// SubmitQuiz grades a quiz attempt and keeps the best score seen.
func SubmitQuiz(course types.Course, p types.Progress, moduleID string, answers []int, now time.Time) (types.Progress, int, bool, error) {
	module, ok := course.Module(moduleID)
	if !ok {
		return p, 0, false, &ErrModuleNotFound{CourseID: course.ID, ModuleID: moduleID}
	}
	score, passed, err := ScoreQuiz(module, answers)
	if err != nil {
		return p, 0, false, err
	}
	p = clone(p)
	if prev, ok := p.QuizScores[moduleID]; !ok || score > prev {
		p.QuizScores[moduleID] = score
	}
	p.Completed = CourseComplete(course, p)
	p.UpdatedAt = now
	return p, score, passed, nil
}

// ModuleComplete reports whether the video was watched and the quiz, if any, passed.
func ModuleComplete(module types.CourseModule, p types.Progress) bool {
	if !slices.Contains(p.Watched, module.ID) {
		return false
	}
	if len(module.Quiz) == 0 {
		return true
	}
	return p.QuizScores[module.ID] >= PassMark
}

// CourseComplete reports whether every module of the course is complete.
func CourseComplete(course types.Course, p types.Progress) bool {
	if len(course.Modules) == 0 {
		return false
	}
	for _, m := range course.Modules {
		if !ModuleComplete(m, p) {
			return false
		}
	}
	return true
}

// Percent returns the share of completed modules, 0-100.
func Percent(course types.Course, p types.Progress) int {
	if len(course.Modules) == 0 {
		return 0
	}
	done := 0
	for _, m := range course.Modules {
		if ModuleComplete(m, p) {
			done++
		}
	}
	return done * 100 / len(course.Modules)
}

func clone(p types.Progress) types.Progress {
	out := p
	out.Watched = append([]string{}, p.Watched...)
	out.QuizScores = make(map[string]int, len(p.QuizScores))
	for k, v := range p.QuizScores {
		out.QuizScores[k] = v
	}
	return out
}
