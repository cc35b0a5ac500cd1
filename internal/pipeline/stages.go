package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/jonathan/pathway-tracker/internal/types"
)

// SortStages orders stages ascending by Order, breaking ties by id so the
// result is deterministic.
func SortStages(stages []types.Stage) []types.Stage {
	out := append([]types.Stage(nil), stages...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// StagesFor returns the sorted stages belonging to pathway.
func StagesFor(stages []types.Stage, pathway types.Pathway) []types.Stage {
	var out []types.Stage
	for _, s := range stages {
		if s.Pathway == pathway {
			out = append(out, s)
		}
	}
	return SortStages(out)
}

// IndexOf returns the position of stageID in stages, or -1.
func IndexOf(stages []types.Stage, stageID string) int {
	for i, s := range stages {
		if s.ID == stageID {
			return i
		}
	}
	return -1
}

// FirstStage returns the lowest ordered stage of the list.
func FirstStage(stages []types.Stage) (types.Stage, bool) {
	sorted := SortStages(stages)
	if len(sorted) == 0 {
		return types.Stage{}, false
	}
	return sorted[0], true
}

// Renumber rewrites Order to a dense 1..N ranking keeping the current relative order.
func Renumber(stages []types.Stage) []types.Stage {
	out := SortStages(stages)
	for i := range out {
		out[i].Order = i + 1
	}
	return out
}

// Reorder applies an explicit id ordering. Every stage must be listed exactly once.
func Reorder(stages []types.Stage, ids []string) ([]types.Stage, error) {
	if len(ids) != len(stages) {
		return nil, fmt.Errorf("reorder lists %d stage(s), pathway has %d", len(ids), len(stages))
	}
	byID := make(map[string]types.Stage, len(stages))
	for _, s := range stages {
		byID[s.ID] = s
	}
	out := make([]types.Stage, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for i, id := range ids {
		s, ok := byID[id]
		if !ok {
			return nil, &ErrStageNotFound{StageID: id}
		}
		if seen[id] {
			return nil, fmt.Errorf("stage %s listed twice", id)
		}
		seen[id] = true
		s.Order = i + 1
		out = append(out, s)
	}
	return out, nil
}

// Advance moves a member one stage forward along stages (already filtered to the
// member's pathway). At the final stage the member is marked INTEGRATED and
// keeps its stage. An unknown current stage, or a member already integrated
// at the final stage, is left untouched.
func Advance(member types.Member, stages []types.Stage, actor string, now time.Time) types.Member {
	sorted := SortStages(stages)
	idx := IndexOf(sorted, member.CurrentStageID)
	if idx < 0 || Completed(member, sorted) {
		return member
	}

	out := member.Clone()
	if idx == len(sorted)-1 {
		out.Status = types.StatusIntegrated
		out.AppendNote(types.NewNote(types.NoteStage, actor,
			fmt.Sprintf("Completed %s pathway", member.Pathway.Label()), now))
		return out
	}

	next := sorted[idx+1]
	out.CurrentStageID = next.ID
	out.AppendNote(types.NewNote(types.NoteStage, actor, MovedNote(next), now))
	return out
}

// Completed reports whether the member is INTEGRATED at the last of stages.
func Completed(member types.Member, stages []types.Stage) bool {
	if member.Status != types.StatusIntegrated || len(stages) == 0 {
		return false
	}
	return SortStages(stages)[len(stages)-1].ID == member.CurrentStageID
}

// MoveToStage sets the member's stage to stageID, appending the transition note.
// Moving to the current stage is a no-op.
func MoveToStage(member types.Member, stages []types.Stage, stageID, actor string, now time.Time) (types.Member, error) {
	idx := IndexOf(stages, stageID)
	if idx < 0 {
		return member, &ErrStageNotFound{StageID: stageID}
	}
	if member.CurrentStageID == stageID {
		return member, nil
	}
	out := member.Clone()
	out.CurrentStageID = stageID
	out.AppendNote(types.NewNote(types.NoteStage, actor, MovedNote(stages[idx]), now))
	return out, nil
}

// MovedNote is the text recorded when a member enters stage.
func MovedNote(stage types.Stage) string {
	return "Moved to stage: " + stage.Name
}

// ValidateMemberStage checks that the member's current stage exists and belongs
// to the member's pathway.
func ValidateMemberStage(member types.Member, all []types.Stage) error {
	for _, s := range all {
		if s.ID != member.CurrentStageID {
			continue
		}
		if s.Pathway != member.Pathway {
			return &ErrPathwayMismatch{StageID: s.ID, Want: string(member.Pathway), Got: string(s.Pathway)}
		}
		return nil
	}
	return &ErrStageNotFound{StageID: member.CurrentStageID}
}

// StageRefs holds every record that may point at a stage.
type StageRefs struct {
	Members      []types.Member
	Rules        []types.AutomationRule
	Integrations []types.IntegrationConfig
	Forms        []types.Form
}

// ValidateStageDeletion rejects deleting a stage that is still referenced by
// a member, a rule, or the target of an integration or form.
func ValidateStageDeletion(stageID string, refs StageRefs) error {
	inUse := &ErrStageInUse{StageID: stageID}
	for _, m := range refs.Members {
		if m.CurrentStageID == stageID {
			inUse.MemberCount++
		}
	}
	for _, r := range refs.Rules {
		if r.StageID == stageID {
			inUse.RuleCount++
		}
	}
	for _, c := range refs.Integrations {
		if c.TargetStageID == stageID {
			inUse.IntegrationCount++
		}
	}
	for _, f := range refs.Forms {
		if f.TargetStageID == stageID {
			inUse.FormCount++
		}
	}
	if inUse.MemberCount+inUse.RuleCount+inUse.IntegrationCount+inUse.FormCount > 0 {
		return inUse
	}
	return nil
}
