package automation

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonathan/pathway-tracker/internal/pipeline"
	"github.com/jonathan/pathway-tracker/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)

func baseMember(stageID string) types.Member {
	return types.Member{
		ID:             "m-1",
		FirstName:      "Jane",
		LastName:       "Smith",
		Pathway:        types.PathwayNewcomer,
		CurrentStageID: stageID,
		Status:         types.StatusActive,
		Notes: []types.Note{
			types.NewNote(types.NoteUser, "u-1", "first visit", now),
		},
	}
}

func rules() []types.AutomationRule {
	return []types.AutomationRule{
		{ID: "r-1", StageID: "nc-2", TaskDescription: "Send welcome gift", DaysDue: 2, Priority: types.PriorityMedium, Enabled: true},
		{ID: "r-2", StageID: "nc-2", TaskDescription: "Invite to lunch", DaysDue: 7, Priority: types.PriorityHigh, Enabled: true},
		{ID: "r-3", StageID: "nc-2", TaskDescription: "Disabled rule", DaysDue: 1, Priority: types.PriorityLow, Enabled: false},
		{ID: "r-4", StageID: "nc-1", TaskDescription: "Source stage rule", DaysDue: 1, Priority: types.PriorityLow, Enabled: true},
	}
}

func TestOnMemberUpdate_NoTransition(t *testing.T) {
	oldMember := baseMember("nc-1")
	newMember := baseMember("nc-1")
	newMember.Phone = "555-0100"

	res, err := OnMemberUpdate(oldMember, newMember, rules(), "u-1", now)
	require.NoError(t, err)

	assert.Empty(t, res.NewTasks)
	assert.Equal(t, newMember, res.Member)
	assert.Len(t, res.Member.Notes, 1)
}

func TestOnMemberUpdate_MatchesDestinationStage(t *testing.T) {
	oldMember := baseMember("nc-1")
	newMember := baseMember("nc-2")

	res, err := OnMemberUpdate(oldMember, newMember, rules(), "u-9", now)
	require.NoError(t, err)

	require.Len(t, res.NewTasks, 2)
	first, second := res.NewTasks[0], res.NewTasks[1]

	assert.Equal(t, "Send welcome gift", first.Description)
	assert.Equal(t, "2024-06-03", first.DueDate)
	assert.Equal(t, types.PriorityMedium, first.Priority)
	assert.Equal(t, "u-9", first.AssignedToID)
	assert.Equal(t, "m-1", first.MemberID)
	assert.False(t, first.Completed)
	assert.NotEmpty(t, first.ID)

	assert.Equal(t, "Invite to lunch", second.Description)
	assert.Equal(t, "2024-06-08", second.DueDate)
	assert.Equal(t, types.PriorityHigh, second.Priority)
	assert.NotEqual(t, first.ID, second.ID)

	require.Len(t, res.Member.Notes, 3)
	assert.Equal(t, "first visit", res.Member.Notes[0].Text, "existing notes keep their position")
	assert.Equal(t, `Auto-created task: "Send welcome gift"`, res.Member.Notes[1].Text)
	assert.Equal(t, `Auto-created task: "Invite to lunch"`, res.Member.Notes[2].Text)
	assert.Equal(t, types.NoteSystem, res.Member.Notes[1].Kind)
	assert.Equal(t, types.SystemAuthor, res.Member.Notes[1].Author)

	assert.Len(t, newMember.Notes, 1, "input member must not be mutated")
}

func TestOnMemberUpdate_TaskCountMatchesEnabledRules(t *testing.T) {
	ruleSet := rules()
	for _, stage := range []string{"nc-1", "nc-2", "nc-3"} {
		t.Run(stage, func(t *testing.T) {
			expected := 0
			for _, r := range ruleSet {
				if r.Enabled && r.StageID == stage {
					expected++
				}
			}

			res, err := OnMemberUpdate(baseMember("start"), baseMember(stage), ruleSet, "u-1", now)
			require.NoError(t, err)
			assert.Len(t, res.NewTasks, expected)
			assert.Len(t, res.Member.Notes, 1+expected)
		})
	}
}

func TestOnMemberUpdate_StatusOnlyChangeDoesNotFire(t *testing.T) {
	oldMember := baseMember("nc-2")
	newMember := baseMember("nc-2")
	newMember.Status = types.StatusIntegrated

	res, err := OnMemberUpdate(oldMember, newMember, rules(), "u-1", now)
	require.NoError(t, err)
	assert.Empty(t, res.NewTasks)
}

func TestOnMemberUpdate_MemberMismatch(t *testing.T) {
	other := baseMember("nc-2")
	other.ID = "m-2"

	_, err := OnMemberUpdate(baseMember("nc-1"), other, rules(), "u-1", now)
	var mismatch *ErrMemberMismatch
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "m-1", mismatch.OldID)
}

func TestOnMemberUpdate_AfterAdvance(t *testing.T) {
	stages := []types.Stage{
		{ID: "nc-1", Pathway: types.PathwayNewcomer, Name: "First Visit", Order: 1},
		{ID: "nc-2", Pathway: types.PathwayNewcomer, Name: "Welcome Lunch", Order: 2},
	}
	oldMember := baseMember("nc-1")
	advanced := pipeline.Advance(oldMember, stages, "u-1", now)

	res, err := OnMemberUpdate(oldMember, advanced, rules(), "u-1", now)
	require.NoError(t, err)

	require.Len(t, res.NewTasks, 2)
	texts := make([]string, 0, len(res.Member.Notes))
	for _, n := range res.Member.Notes {
		texts = append(texts, n.Text)
	}
	assert.Equal(t, []string{
		"first visit",
		"Moved to stage: Welcome Lunch",
		`Auto-created task: "Send welcome gift"`,
		`Auto-created task: "Invite to lunch"`,
	}, texts)
}

func TestDueDate(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{0, "2024-06-01"},
		{1, "2024-06-02"},
		{30, "2024-07-01"},
		{-1, "2024-05-31"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d days", tt.days), func(t *testing.T) {
			assert.Equal(t, tt.want, DueDate(now, tt.days))
		})
	}
}

func TestMatchRules(t *testing.T) {
	matched := MatchRules(rules(), "nc-2")
	require.Len(t, matched, 2)
	assert.Equal(t, "r-1", matched[0].ID)
	assert.Equal(t, "r-2", matched[1].ID)

	assert.Empty(t, MatchRules(nil, "nc-2"))
}
