package types

import "time"

// QuizQuestion is a multiple choice question attached to a module.
type QuizQuestion struct {
	ID           string   `json:"id" yaml:"id"`
	Prompt       string   `json:"prompt" yaml:"prompt"`
	Options      []string `json:"options" yaml:"options"`
	CorrectIndex int      `json:"correct_index" yaml:"correct_index"`
}

// CourseModule is one video lesson in a course.
type CourseModule struct {
	ID              string         `json:"id" yaml:"id"`
	Title           string         `json:"title" yaml:"title"`
	VideoURL        string         `json:"video_url" yaml:"video_url"`
	DurationMinutes int            `json:"duration_minutes" yaml:"duration_minutes"`
	Quiz            []QuizQuestion `json:"quiz,omitempty" yaml:"quiz,omitempty"`
}

// Course is a volunteer training course.
type Course struct {
	ID          string         `json:"id" yaml:"id"`
	Title       string         `json:"title" yaml:"title"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Modules     []CourseModule `json:"modules" yaml:"modules"`
	Published   bool           `json:"published" yaml:"published"`
}

// Module returns the module with the given id.
func (c Course) Module(id string) (CourseModule, bool) {
	for _, m := range c.Modules {
		if m.ID == id {
			return m, true
		}
	}
	return CourseModule{}, false
}

// Progress tracks one user's progress through one course.
type Progress struct {
	UserID     string         `json:"user_id"`
	CourseID   string         `json:"course_id"`
	Watched    []string       `json:"watched"`
	QuizScores map[string]int `json:"quiz_scores"`
	Completed  bool           `json:"completed"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
