package types

import "time"

// Priority of a follow-up task.
type Priority string

// Priority values
const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Rank orders priorities, HIGH first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// DateLayout is the date-only form used for due dates and joined dates.
const DateLayout = "2006-01-02"

// Task is a follow-up action for a member.
type Task struct {
	ID           string    `json:"id"`
	MemberID     string    `json:"member_id"`
	Description  string    `json:"description"`
	DueDate      string    `json:"due_date"`
	Completed    bool      `json:"completed"`
	Priority     Priority  `json:"priority"`
	AssignedToID string    `json:"assigned_to_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Overdue reports whether the task is open and due before today.
func (t *Task) Overdue(today string) bool {
	return !t.Completed && t.DueDate != "" && t.DueDate < today
}

// AutomationRule fires a task template when a member enters StageID.
type AutomationRule struct {
	ID              string   `json:"id" yaml:"id"`
	StageID         string   `json:"stage_id" yaml:"stage_id"`
	TaskDescription string   `json:"task_description" yaml:"task_description"`
	DaysDue         int      `json:"days_due" yaml:"days_due"`
	Priority        Priority `json:"priority" yaml:"priority"`
	Enabled         bool     `json:"enabled" yaml:"enabled"`
}
