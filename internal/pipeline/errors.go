// Package pipeline manages the ordered stage lists of each pathway and moves
// members through them.
package pipeline

import "fmt"

// ErrStageNotFound indicates a stage id that is not part of the pathway's list.
type ErrStageNotFound struct {
	StageID string
}

func (e *ErrStageNotFound) Error() string {
	return fmt.Sprintf("stage not found: %s", e.StageID)
}

// ErrStageInUse is returned when deleting a stage that is still referenced.
type ErrStageInUse struct {
	StageID          string
	MemberCount      int
	RuleCount        int
	IntegrationCount int
	FormCount        int
}

func (e *ErrStageInUse) Error() string {
	return fmt.Sprintf("stage %s is still referenced by %d member(s), %d automation rule(s), %d integration(s) and %d form(s)",
		e.StageID, e.MemberCount, e.RuleCount, e.IntegrationCount, e.FormCount)
}

// ErrPathwayMismatch indicates a stage that belongs to a different pathway than the member.
type ErrPathwayMismatch struct {
	StageID string
	Want    string
	Got     string
}

func (e *ErrPathwayMismatch) Error() string {
	return fmt.Sprintf("stage %s belongs to pathway %s, not %s", e.StageID, e.Got, e.Want)
}
