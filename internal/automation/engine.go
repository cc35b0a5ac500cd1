// Package automation turns stage transitions into follow-up tasks according to
// the configured automation rules.
package automation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-tracker/internal/types"
)

// ErrMemberMismatch is returned when the before and after records are different members.
type ErrMemberMismatch struct {
	OldID string
	NewID string
}

func (e *ErrMemberMismatch) Error() string {
	return fmt.Sprintf("member update compares different members: %s vs %s", e.OldID, e.NewID)
}

// Result is the outcome of evaluating a member update.
type Result struct {
	Member   types.Member
	NewTasks []types.Task
}

// Transitioned reports whether the update moved the member to another stage.
func Transitioned(oldMember, newMember types.Member) bool {
	return oldMember.CurrentStageID != newMember.CurrentStageID
}

// MatchRules returns the enabled rules bound to stageID, in rule order.
func MatchRules(rules []types.AutomationRule, stageID string) []types.AutomationRule {
	var matched []types.AutomationRule
	for _, r := range rules {
		if r.Enabled && r.StageID == stageID {
			matched = append(matched, r)
		}
	}
	return matched
}

// DueDate returns the date-only form of now's local date plus days.
func DueDate(now time.Time, days int) string {
	local := now.Local()
	y, m, d := local.Date()
	return time.Date(y, m, d+days, 0, 0, 0, 0, time.Local).Format(types.DateLayout)
}

// AutoTaskNote is the note text recorded for each automation-created task.
func AutoTaskNote(description string) string {
	return fmt.Sprintf("Auto-created task: %q", description)
}

// OnMemberUpdate compares a member before and after an edit. When the stage
// changed, every enabled rule bound to the destination stage produces one task
// assigned to the acting user, and a system note is appended per task. The
// function performs no I/O; the caller persists the member and the tasks.
func OnMemberUpdate(oldMember, newMember types.Member, rules []types.AutomationRule, actingUserID string, now time.Time) (Result, error) {
	if oldMember.ID != newMember.ID {
		return Result{}, &ErrMemberMismatch{OldID: oldMember.ID, NewID: newMember.ID}
	}
	if !Transitioned(oldMember, newMember) {
		return Result{Member: newMember}, nil
	}

	matched := MatchRules(rules, newMember.CurrentStageID)
	if len(matched) == 0 {
		return Result{Member: newMember}, nil
	}

	out := newMember.Clone()
	tasks := make([]types.Task, 0, len(matched))
	for _, rule := range matched {
		tasks = append(tasks, types.Task{
			ID:           uuid.NewString(),
			MemberID:     newMember.ID,
			Description:  rule.TaskDescription,
			DueDate:      DueDate(now, rule.DaysDue),
			Completed:    false,
			Priority:     rule.Priority,
			AssignedToID: actingUserID,
			CreatedAt:    now,
		})
		out.AppendNote(types.NewNote(types.NoteSystem, types.SystemAuthor, AutoTaskNote(rule.TaskDescription), now))
	}

	return Result{Member: out, NewTasks: tasks}, nil
}
