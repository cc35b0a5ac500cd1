package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/jonathan/pathway-tracker/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func newcomerStages() []types.Stage {
	// Deliberately unsorted.
	return []types.Stage{
		{ID: "nc-3", Pathway: types.PathwayNewcomer, Name: "Connect Group", Order: 3},
		{ID: "nc-1", Pathway: types.PathwayNewcomer, Name: "First Visit", Order: 1},
		{ID: "nc-2", Pathway: types.PathwayNewcomer, Name: "Welcome Lunch", Order: 2},
	}
}

func allStages() []types.Stage {
	return append(newcomerStages(),
		types.Stage{ID: "nb-1", Pathway: types.PathwayNewBeliever, Name: "Decision", Order: 1},
		types.Stage{ID: "nb-2", Pathway: types.PathwayNewBeliever, Name: "Baptism", Order: 2},
	)
}

func member(stageID string) types.Member {
	return types.Member{
		ID:             "m-1",
		FirstName:      "Jane",
		LastName:       "Smith",
		Pathway:        types.PathwayNewcomer,
		CurrentStageID: stageID,
		Status:         types.StatusActive,
	}
}

func TestSortStages(t *testing.T) {
	sorted := SortStages(newcomerStages())
	require.Len(t, sorted, 3)
	assert.Equal(t, []string{"nc-1", "nc-2", "nc-3"}, []string{sorted[0].ID, sorted[1].ID, sorted[2].ID})
}

func TestStagesFor(t *testing.T) {
	got := StagesFor(allStages(), types.PathwayNewBeliever)
	require.Len(t, got, 2)
	assert.Equal(t, "nb-1", got[0].ID)
	assert.Equal(t, "nb-2", got[1].ID)
}

func TestAdvance_MovesToNextStage(t *testing.T) {
	m := member("nc-1")

	got := Advance(m, newcomerStages(), "u-1", testNow)

	assert.Equal(t, "nc-2", got.CurrentStageID)
	assert.Equal(t, types.StatusActive, got.Status, "status unchanged when not at last stage")
	require.Len(t, got.Notes, 1)
	assert.Equal(t, "Moved to stage: Welcome Lunch", got.Notes[0].Text)
	assert.Equal(t, types.NoteStage, got.Notes[0].Kind)
	assert.Equal(t, "u-1", got.Notes[0].Author)
	assert.Empty(t, m.Notes, "input member must not be mutated")
}

func TestAdvance_LastStageIntegrates(t *testing.T) {
	m := member("nc-3")

	got := Advance(m, newcomerStages(), "u-1", testNow)

	assert.Equal(t, "nc-3", got.CurrentStageID, "stage unchanged at end of pathway")
	assert.Equal(t, types.StatusIntegrated, got.Status)
	require.Len(t, got.Notes, 1)
	assert.Equal(t, "Completed Newcomer pathway", got.Notes[0].Text)
}

func TestAdvance_AlreadyIntegratedIsNoop(t *testing.T) {
	m := member("nc-3")
	m.Status = types.StatusIntegrated

	got := Advance(m, newcomerStages(), "u-1", testNow)

	assert.Equal(t, m, got)
	assert.True(t, Completed(m, newcomerStages()))
	assert.False(t, Completed(member("nc-3"), newcomerStages()), "active member at last stage is not completed")
}

func TestAdvance_UnknownStageIsNoop(t *testing.T) {
	m := member("missing")

	got := Advance(m, newcomerStages(), "u-1", testNow)

	assert.Equal(t, m, got)
}

func TestMoveToStage(t *testing.T) {
	stages := newcomerStages()

	got, err := MoveToStage(member("nc-1"), stages, "nc-3", "u-1", testNow)
	require.NoError(t, err)
	assert.Equal(t, "nc-3", got.CurrentStageID)
	require.Len(t, got.Notes, 1)
	assert.Equal(t, "Moved to stage: Connect Group", got.Notes[0].Text)

	same, err := MoveToStage(member("nc-1"), stages, "nc-1", "u-1", testNow)
	require.NoError(t, err)
	assert.Empty(t, same.Notes)

	_, err = MoveToStage(member("nc-1"), stages, "nope", "u-1", testNow)
	var notFound *ErrStageNotFound
	assert.True(t, errors.As(err, &notFound))
}

func TestRenumber(t *testing.T) {
	stages := []types.Stage{
		{ID: "a", Order: 10},
		{ID: "b", Order: 3},
		{ID: "c", Order: 7},
	}
	got := Renumber(stages)
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].ID)
	for i, s := range got {
		assert.Equal(t, i+1, s.Order)
	}
}

func TestReorder(t *testing.T) {
	got, err := Reorder(newcomerStages(), []string{"nc-3", "nc-1", "nc-2"})
	require.NoError(t, err)
	assert.Equal(t, "nc-3", got[0].ID)
	assert.Equal(t, 1, got[0].Order)
	assert.Equal(t, 3, got[2].Order)

	_, err = Reorder(newcomerStages(), []string{"nc-1", "nc-2"})
	assert.Error(t, err)

	_, err = Reorder(newcomerStages(), []string{"nc-1", "nc-1", "nc-2"})
	assert.Error(t, err)

	_, err = Reorder(newcomerStages(), []string{"nc-1", "nc-2", "zz"})
	assert.Error(t, err)
}

func TestValidateMemberStage(t *testing.T) {
	assert.NoError(t, ValidateMemberStage(member("nc-2"), allStages()))

	err := ValidateMemberStage(member("nb-1"), allStages())
	var mismatch *ErrPathwayMismatch
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "nb-1", mismatch.StageID)

	err = ValidateMemberStage(member("gone"), allStages())
	var notFound *ErrStageNotFound
	assert.True(t, errors.As(err, &notFound))
}

func TestValidateStageDeletion(t *testing.T) {
	members := []types.Member{member("nc-1"), member("nc-1"), member("nc-2")}
	rules := []types.AutomationRule{{ID: "r-1", StageID: "nc-1"}}
	integrations := []types.IntegrationConfig{{ID: "int-1", TargetStageID: "nc-3"}}
	forms := []types.Form{{ID: "form-1", TargetStageID: "nc-3"}, {ID: "form-2", TargetStageID: "nc-3"}}

	tests := []struct {
		name    string
		stageID string
		refs    StageRefs
		want    *ErrStageInUse
	}{
		{
			name:    "members and rules",
			stageID: "nc-1",
			refs:    StageRefs{Members: members, Rules: rules},
			want:    &ErrStageInUse{StageID: "nc-1", MemberCount: 2, RuleCount: 1},
		},
		{
			name:    "members only",
			stageID: "nc-2",
			refs:    StageRefs{Members: members},
			want:    &ErrStageInUse{StageID: "nc-2", MemberCount: 1},
		},
		{
			name:    "integration and form targets",
			stageID: "nc-3",
			refs:    StageRefs{Members: members, Rules: rules, Integrations: integrations, Forms: forms},
			want:    &ErrStageInUse{StageID: "nc-3", IntegrationCount: 1, FormCount: 2},
		},
		{
			name:    "unreferenced",
			stageID: "nc-3",
			refs:    StageRefs{Members: members, Rules: rules},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStageDeletion(tt.stageID, tt.refs)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			var inUse *ErrStageInUse
			require.True(t, errors.As(err, &inUse))
			assert.Equal(t, tt.want, inUse)
		})
	}
}
