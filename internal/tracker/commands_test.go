package tracker

import (
	"context"
	"strings"
	"testing"

	"github.com/jonathan/pathway-tracker/internal/config"
	"github.com/jonathan/pathway-tracker/internal/forms"
	"github.com/jonathan/pathway-tracker/internal/llm"
	"github.com/jonathan/pathway-tracker/internal/messaging"
	"github.com/jonathan/pathway-tracker/internal/permissions"
	"github.com/jonathan/pathway-tracker/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitForm(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	first, err := svc.SubmitForm(ctx, "form-connect", map[string]any{
		"name":    "Maria Lopez",
		"email":   "maria@x.com",
		"service": "9am",
		"prayer":  "For my family",
	})
	require.NoError(t, err)
	assert.False(t, first.Existing)

	m, err := st.GetMember(ctx, first.MemberID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "Maria", m.FirstName)
	assert.Equal(t, "Lopez", m.LastName)
	assert.Equal(t, "nc-1", m.CurrentStageID)
	assert.Equal(t, []string{forms.FormTag, "Connect Card"}, m.Tags)

	again, err := svc.SubmitForm(ctx, "form-connect", map[string]any{"name": "Maria L", "email": "MARIA@x.com"})
	require.NoError(t, err)
	assert.True(t, again.Existing)
	assert.Equal(t, first.MemberID, again.MemberID)

	m, err = st.GetMember(ctx, first.MemberID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(m.Notes[len(m.Notes)-1].Text, `Submitted form "Connect Card" again`))

	subs, err := svc.ListSubmissions(ctx, leader, "form-connect")
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	_, err = svc.ListSubmissions(ctx, volunteer, "form-connect")
	var unauth *permissions.ErrUnauthorized
	require.ErrorAs(t, err, &unauth)
}

func TestSubmitForm_Rejections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t.Run("invalid answers", func(t *testing.T) {
		_, err := svc.SubmitForm(ctx, "form-connect", map[string]any{"email": "not-an-email", "service": "10am"})
		var verr *forms.ValidationError
		require.ErrorAs(t, err, &verr)
		fields := make([]string, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			fields = append(fields, f.Field)
		}
		assert.Contains(t, fields, "name")
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "service")
	})

	t.Run("inactive form", func(t *testing.T) {
		form, err := svc.GetForm(ctx, admin, "form-connect")
		require.NoError(t, err)
		form.Active = false
		_, err = svc.SaveForm(ctx, admin, *form)
		require.NoError(t, err)

		_, err = svc.SubmitForm(ctx, "form-connect", map[string]any{"name": "X"})
		var nf *ErrNotFound
		require.ErrorAs(t, err, &nf)
		_, err = svc.GetPublicForm(ctx, "form-connect")
		require.ErrorAs(t, err, &nf)
	})
}

func TestSaveForm_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	base := func() types.Form {
		return types.Form{
			Title:         "Baptism Interest",
			TargetPathway: types.PathwayNewBeliever,
			TargetStageID: "nb-4",
			Active:        true,
			Fields: []types.FormField{
				{ID: "name", Label: "Name", Type: types.FieldText, Required: true, MapTo: types.MapFullName},
			},
		}
	}

	form, err := svc.SaveForm(ctx, admin, base())
	require.NoError(t, err)
	assert.NotEmpty(t, form.ID)
	assert.Equal(t, clock, form.CreatedAt)

	public, err := svc.GetPublicForm(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, public.Schema["required"])

	tests := []struct {
		name   string
		mutate func(*types.Form)
		field  string
	}{
		{"no title", func(f *types.Form) { f.Title = " " }, "title"},
		{"no fields", func(f *types.Form) { f.Fields = nil }, "fields"},
		{"bad type", func(f *types.Form) { f.Fields[0].Type = "slider" }, "fields[0].type"},
		{"select without options", func(f *types.Form) { f.Fields[0].Type = types.FieldSelect }, "fields[0].options"},
		{"duplicate id", func(f *types.Form) { f.Fields = append(f.Fields, f.Fields[0]) }, "fields[1].id"},
		{"stage outside pathway", func(f *types.Form) { f.TargetStageID = "nc-1" }, "target_stage_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := base()
			tt.mutate(&f)
			_, err := svc.SaveForm(ctx, admin, f)
			var verr *ErrValidation
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

type recordingSender struct {
	sent []types.MessageLog
}

func (r *recordingSender) Send(_ context.Context, _ types.Member, msg types.MessageLog) error {
	r.sent = append(r.sent, msg)
	return nil
}

func TestSendMessage(t *testing.T) {
	sender := &recordingSender{}
	svc, _ := newTestService(t, WithSender(sender))
	ctx := context.Background()
	m := createMember(t, svc, MemberInput{FirstName: "Jane", Email: "jane@x.com", Pathway: types.PathwayNewcomer, AssignedToID: volunteer.UserID})

	updated, err := svc.SendMessage(ctx, volunteer, m.ID, MessageInput{Channel: types.ChannelEmail, Subject: "Hello", Content: "Welcome!"})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	require.Len(t, updated.MessageLog, 1)
	assert.Equal(t, volunteer.UserID, updated.MessageLog[0].SentByID)
	last := updated.Notes[len(updated.Notes)-1]
	assert.Equal(t, types.NoteMessage, last.Kind)
	assert.Equal(t, `Sent email to jane@x.com: "Hello"`, last.Text)
	assert.Equal(t, "Val Volunteer", last.Author)

	_, err = svc.SendMessage(ctx, volunteer, m.ID, MessageInput{Channel: types.ChannelSMS, Content: "Hi"})
	var verr *ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "channel", verr.Field)
}

type stubLLM struct {
	out string
}

func (s *stubLLM) GenerateContent(context.Context, string, llm.ModelTier) (string, error) {
	return s.out, nil
}

func (s *stubLLM) GenerateJSON(context.Context, string, llm.ModelTier) (string, error) {
	return s.out, nil
}

func (s *stubLLM) Close() error { return nil }

func TestDraftMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("without a model", func(t *testing.T) {
		svc, _ := newTestService(t)
		m := createMember(t, svc, MemberInput{FirstName: "Jane", Pathway: types.PathwayNewcomer})
		_, err := svc.DraftMessage(ctx, leader, m.ID, DraftInput{Channel: types.ChannelEmail})
		var derr *messaging.DraftError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, messaging.DraftRemediation, derr.UserMessage())
	})

	t.Run("with a model", func(t *testing.T) {
		client := &stubLLM{out: "```json\n{\"subject\":\"Hi Jane\",\"body\":\"Great to meet you.\"}\n```"}
		svc, _ := newTestService(t, WithDrafter(messaging.NewDrafter(client)))
		m := createMember(t, svc, MemberInput{FirstName: "Jane", Pathway: types.PathwayNewcomer})
		draft, err := svc.DraftMessage(ctx, leader, m.ID, DraftInput{Channel: types.ChannelEmail, Purpose: "invite to lunch"})
		require.NoError(t, err)
		assert.Equal(t, "Hi Jane", draft.Subject)
		assert.Equal(t, "Great to meet you.", draft.Body)
	})

	t.Run("volunteer lacks permission", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.DraftMessage(ctx, volunteer, "m-1", DraftInput{Channel: types.ChannelSMS})
		var unauth *permissions.ErrUnauthorized
		require.ErrorAs(t, err, &unauth)
		assert.Equal(t, permissions.MessageAIDraft, unauth.Permission)
	})
}

func TestAcademy(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	courses, err := svc.ListCourses(ctx, volunteer)
	require.NoError(t, err)
	require.Len(t, courses, 1)

	progress, err := svc.GetProgress(ctx, volunteer, "course-hospitality")
	require.NoError(t, err)
	assert.Zero(t, progress.Percent)

	progress, err = svc.MarkWatched(ctx, volunteer, "course-hospitality", "hosp-1")
	require.NoError(t, err)
	assert.Equal(t, 50, progress.Percent)

	_, err = svc.SubmitQuiz(ctx, volunteer, "course-hospitality", "hosp-2", []int{0})
	var verr *ErrValidation
	require.ErrorAs(t, err, &verr)

	_, err = svc.MarkWatched(ctx, volunteer, "course-hospitality", "hosp-2")
	require.NoError(t, err)
	result, err := svc.SubmitQuiz(ctx, volunteer, "course-hospitality", "hosp-2", []int{0, 1})
	require.NoError(t, err)
	assert.Equal(t, 100, result.Score)
	assert.True(t, result.Passed)
	assert.True(t, result.Progress.Progress.Completed)
	assert.Equal(t, 100, result.Progress.Percent)

	_, err = svc.MarkWatched(ctx, volunteer, "course-hospitality", "nope")
	var nf *ErrNotFound
	require.ErrorAs(t, err, &nf)

	draft, err := svc.SaveCourse(ctx, admin, types.Course{Title: "Draft course"})
	require.NoError(t, err)
	visible, err := svc.ListCourses(ctx, volunteer)
	require.NoError(t, err)
	assert.Len(t, visible, 1)
	_, err = svc.GetProgress(ctx, volunteer, draft.ID)
	require.ErrorAs(t, err, &nf)
}

func TestUpdateUserRole(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.UpdateUserRole(ctx, admin, volunteer.UserID, permissions.RoleTeamLeader)
	require.NoError(t, err)
	assert.Equal(t, permissions.RoleTeamLeader, u.Role)

	_, err = svc.UpdateUserRole(ctx, admin, admin.UserID, permissions.RoleAdmin)
	var verr *ErrValidation
	require.ErrorAs(t, err, &verr)

	_, err = svc.UpdateUserRole(ctx, leader, volunteer.UserID, permissions.RoleAdmin)
	var unauth *permissions.ErrUnauthorized
	require.ErrorAs(t, err, &unauth)
}

func TestDashboard(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := createMember(t, svc, MemberInput{FirstName: "A", Pathway: types.PathwayNewcomer, AssignedToID: volunteer.UserID})
	createMember(t, svc, MemberInput{FirstName: "B", Pathway: types.PathwayNewBeliever})

	_, err := svc.CreateTask(ctx, admin, TaskInput{MemberID: a.ID, Description: "overdue", DueDate: "2024-09-01", AssignedToID: volunteer.UserID})
	require.NoError(t, err)
	_, err = svc.CreateTask(ctx, admin, TaskInput{MemberID: a.ID, Description: "today"})
	require.NoError(t, err)

	d, err := svc.Dashboard(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 2, d.TotalMembers)
	assert.Equal(t, 1, d.ByPathway[types.PathwayNewcomer])
	assert.Equal(t, 1, d.ByStage["nb-1"])
	assert.Equal(t, 2, d.ByStatus[types.StatusActive])
	assert.Equal(t, 2, d.OpenTasks)
	assert.Equal(t, 1, d.OverdueTasks)
	assert.Equal(t, 1, d.DueToday)

	mine, err := svc.Dashboard(ctx, volunteer)
	require.NoError(t, err)
	assert.Equal(t, 1, mine.TotalMembers)
	assert.Equal(t, 1, mine.OpenTasks)
}

func TestSeed_OnlyFillsEmptyCollections(t *testing.T) {
	svc, _ := newTestService(t)
	seed, err := config.DefaultSeed()
	require.NoError(t, err)

	report, err := svc.Seed(context.Background(), seed)
	require.NoError(t, err)
	assert.Equal(t, SeedReport{}, *report)

	stages, err := svc.ListStages(context.Background(), admin, "")
	require.NoError(t, err)
	assert.Len(t, stages, 10)
}
