package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-tracker/internal/automation"
	"github.com/jonathan/pathway-tracker/internal/observability"
	"github.com/jonathan/pathway-tracker/internal/permissions"
	"github.com/jonathan/pathway-tracker/internal/pipeline"
	"github.com/jonathan/pathway-tracker/internal/store"
	"github.com/jonathan/pathway-tracker/internal/types"
	"go.uber.org/zap"
)

// MemberInput creates a member.
type MemberInput struct {
	FirstName      string        `json:"first_name" validate:"required"`
	LastName       string        `json:"last_name"`
	Email          string        `json:"email" validate:"omitempty,email"`
	Phone          string        `json:"phone"`
	Pathway        types.Pathway `json:"pathway" validate:"required"`
	CurrentStageID string        `json:"current_stage_id"`
	AssignedToID   string        `json:"assigned_to_id"`
	Source         string        `json:"source"`
	JoinedDate     string        `json:"joined_date" validate:"omitempty,datetime=2006-01-02"`
	Tags           []string      `json:"tags"`
}

// MemberUpdate edits a member. Nil fields are left unchanged.
type MemberUpdate struct {
	FirstName      *string             `json:"first_name"`
	LastName       *string             `json:"last_name"`
	Email          *string             `json:"email" validate:"omitempty,email"`
	Phone          *string             `json:"phone"`
	Pathway        *types.Pathway      `json:"pathway"`
	CurrentStageID *string             `json:"current_stage_id"`
	Status         *types.MemberStatus `json:"status"`
	AssignedToID   *string             `json:"assigned_to_id"`
	Source         *string             `json:"source"`
	Tags           *[]string           `json:"tags"`
	Resources      *[]types.Resource   `json:"resources"`
}

// MemberResult is a member after a command, with any tasks automation created.
type MemberResult struct {
	Member   types.Member `json:"member"`
	NewTasks []types.Task `json:"new_tasks"`
	Warnings []string     `json:"warnings,omitempty"`
}

// TaskWriteWarning is reported when a member was saved but its automation tasks were not.
const TaskWriteWarning = "member saved but automation tasks could not be stored"

// ListMembers returns the members p may see that match f.
func (s *Service) ListMembers(ctx context.Context, p permissions.Principal, f store.MemberFilter) ([]types.Member, error) {
	if err := permissions.Require(p, permissions.MemberView); err != nil {
		return nil, err
	}
	if !p.Can(permissions.MemberViewAll) {
		f.AssignedToID = p.UserID
	}
	members, err := s.store.ListMembers(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// GetMember returns one member. Members outside p's scope are forbidden.
func (s *Service) GetMember(ctx context.Context, p permissions.Principal, id string) (*types.Member, error) {
	if err := permissions.Require(p, permissions.MemberView); err != nil {
		return nil, err
	}
	return s.memberInScope(ctx, p, id)
}

func (s *Service) memberInScope(ctx context.Context, p permissions.Principal, id string) (*types.Member, error) {
	m, err := s.store.GetMember(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if m == nil {
		return nil, notFound("member", id)
	}
	if !p.Can(permissions.MemberViewAll) && m.AssignedToID != p.UserID {
		return nil, &permissions.ErrUnauthorized{Role: p.Role, Permission: permissions.MemberViewAll}
	}
	return m, nil
}

// CreateMember adds a member. Without a stage the member starts at the
// pathway's first stage.
func (s *Service) CreateMember(ctx context.Context, p permissions.Principal, in MemberInput) (*types.Member, error) {
	if err := permissions.Require(p, permissions.MemberCreate); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if !in.Pathway.Valid() {
		return nil, invalid("pathway", "unknown pathway %q", in.Pathway)
	}
	if in.AssignedToID != "" && in.AssignedToID != p.UserID {
		if err := permissions.Require(p, permissions.MemberAssign); err != nil {
			return nil, err
		}
		if err := s.checkUser(ctx, "assigned_to_id", in.AssignedToID); err != nil {
			return nil, err
		}
	}

	all, err := s.stages(ctx)
	if err != nil {
		return nil, err
	}
	stageID := in.CurrentStageID
	if stageID == "" {
		first, ok := pipeline.FirstStage(pipeline.StagesFor(all, in.Pathway))
		if !ok {
			return nil, invalid("pathway", "pathway %s has no stages", in.Pathway)
		}
		stageID = first.ID
	}

	now := s.now()
	m := types.Member{
		ID:             uuid.NewString(),
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Email:          strings.TrimSpace(in.Email),
		Phone:          strings.TrimSpace(in.Phone),
		Pathway:        in.Pathway,
		CurrentStageID: stageID,
		Status:         types.StatusActive,
		AssignedToID:   in.AssignedToID,
		Source:         in.Source,
		JoinedDate:     in.JoinedDate,
		Notes:          []types.Note{},
		MessageLog:     []types.MessageLog{},
		Resources:      []types.Resource{},
		Tags:           append([]string{}, in.Tags...),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if m.JoinedDate == "" {
		m.JoinedDate = automation.DueDate(now, 0)
	}
	if m.AssignedToID == "" && !p.Can(permissions.MemberViewAll) {
		// Otherwise the creator could not see the member they just added.
		m.AssignedToID = p.UserID
	}
	if err := pipeline.ValidateMemberStage(m, all); err != nil {
		return nil, stageError("current_stage_id", err)
	}
	m.AppendNote(types.NewNote(types.NoteSystem, s.authorName(ctx, p),
		fmt.Sprintf("Added to %s pathway", m.Pathway.Label()), now))

	if err := s.store.SaveMember(ctx, &m); err != nil {
		return nil, fmt.Errorf("failed to save member: %w", err)
	}
	s.metrics.StageEntered(m.CurrentStageID)
	return &m, nil
}

// UpdateMember applies u. A stage change runs the automation rules bound to
// the destination stage.
func (s *Service) UpdateMember(ctx context.Context, p permissions.Principal, id string, u MemberUpdate) (*MemberResult, error) {
	if err := permissions.Require(p, permissions.MemberEdit); err != nil {
		return nil, err
	}
	if err := validateInput(u); err != nil {
		return nil, err
	}
	old, err := s.memberInScope(ctx, p, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	author := s.authorName(ctx, p)
	updated := old.Clone()
	applyScalars(&updated, u)

	if u.Status != nil {
		if !u.Status.Valid() {
			return nil, invalid("status", "unknown status %q", *u.Status)
		}
		updated.Status = *u.Status
	}
	if u.AssignedToID != nil && *u.AssignedToID != old.AssignedToID {
		if err := permissions.Require(p, permissions.MemberAssign); err != nil {
			return nil, err
		}
		if *u.AssignedToID != "" {
			if err := s.checkUser(ctx, "assigned_to_id", *u.AssignedToID); err != nil {
				return nil, err
			}
		}
		updated.AssignedToID = *u.AssignedToID
	}

	all, err := s.stages(ctx)
	if err != nil {
		return nil, err
	}
	if u.Pathway != nil && *u.Pathway != old.Pathway {
		if !u.Pathway.Valid() {
			return nil, invalid("pathway", "unknown pathway %q", *u.Pathway)
		}
		updated.Pathway = *u.Pathway
		if u.CurrentStageID == nil {
			first, ok := pipeline.FirstStage(pipeline.StagesFor(all, updated.Pathway))
			if !ok {
				return nil, invalid("pathway", "pathway %s has no stages", updated.Pathway)
			}
			stageID := first.ID
			u.CurrentStageID = &stageID
		}
	}
	if u.CurrentStageID != nil && *u.CurrentStageID != old.CurrentStageID {
		if err := permissions.Require(p, permissions.MemberAdvance); err != nil {
			return nil, err
		}
		updated, err = pipeline.MoveToStage(updated, pipeline.StagesFor(all, updated.Pathway), *u.CurrentStageID, author, now)
		if err != nil {
			return nil, stageError("current_stage_id", err)
		}
	}
	if err := pipeline.ValidateMemberStage(updated, all); err != nil {
		return nil, stageError("current_stage_id", err)
	}
	updated.UpdatedAt = now

	return s.commitTransition(ctx, p, *old, updated)
}

func applyScalars(m *types.Member, u MemberUpdate) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&m.FirstName, u.FirstName)
	set(&m.LastName, u.LastName)
	set(&m.Email, u.Email)
	set(&m.Phone, u.Phone)
	set(&m.Source, u.Source)
	if u.Tags != nil {
		m.Tags = append([]string{}, (*u.Tags)...)
	}
	if u.Resources != nil {
		m.Resources = append([]types.Resource{}, (*u.Resources)...)
	}
}

// AdvanceMember moves the member one stage forward, or marks them integrated
// at the final stage.
func (s *Service) AdvanceMember(ctx context.Context, p permissions.Principal, id string) (*MemberResult, error) {
	if err := permissions.Require(p, permissions.MemberAdvance); err != nil {
		return nil, err
	}
	old, err := s.memberInScope(ctx, p, id)
	if err != nil {
		return nil, err
	}
	all, err := s.stages(ctx)
	if err != nil {
		return nil, err
	}
	stages := pipeline.StagesFor(all, old.Pathway)
	if pipeline.IndexOf(stages, old.CurrentStageID) < 0 {
		return nil, invalid("current_stage_id", "member is on unknown stage %s", old.CurrentStageID)
	}
	if pipeline.Completed(*old, stages) {
		return &MemberResult{Member: *old, NewTasks: []types.Task{}}, nil
	}

	advanced := pipeline.Advance(*old, stages, s.authorName(ctx, p), s.now())
	return s.commitTransition(ctx, p, *old, advanced)
}

// commitTransition runs the automation engine over old -> updated and
// persists the member, then the generated tasks. The writes are independent:
// a failed task write is logged and reported as a warning.
func (s *Service) commitTransition(ctx context.Context, p permissions.Principal, old, updated types.Member) (*MemberResult, error) {
	rules, err := s.rules(ctx)
	if err != nil {
		return nil, err
	}
	res, err := automation.OnMemberUpdate(old, updated, rules, p.UserID, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveMember(ctx, &res.Member); err != nil {
		return nil, fmt.Errorf("failed to save member: %w", err)
	}
	if automation.Transitioned(old, res.Member) {
		s.metrics.StageEntered(res.Member.CurrentStageID)
	}

	out := &MemberResult{Member: res.Member, NewTasks: res.NewTasks}
	if len(res.NewTasks) == 0 {
		out.NewTasks = []types.Task{}
		return out, nil
	}
	if err := s.store.SaveTasks(ctx, res.NewTasks); err != nil {
		s.logger.Error("automation tasks not saved",
			zap.String("member_id", res.Member.ID),
			zap.Int("tasks", len(res.NewTasks)),
			zap.Error(err),
		)
		out.NewTasks = []types.Task{}
		out.Warnings = append(out.Warnings, TaskWriteWarning)
		return out, nil
	}
	s.metrics.TasksCreated(observability.TaskSourceAutomation, len(res.NewTasks))
	return out, nil
}

// NoteInput is a free-text note.
type NoteInput struct {
	Text string `json:"text" validate:"required"`
}

// AddNote appends a user note.
func (s *Service) AddNote(ctx context.Context, p permissions.Principal, id string, in NoteInput) (*types.Member, error) {
	if err := permissions.Require(p, permissions.NoteAdd); err != nil {
		return nil, err
	}
	in.Text = strings.TrimSpace(in.Text)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	m, err := s.memberInScope(ctx, p, id)
	if err != nil {
		return nil, err
	}
	m.AppendNote(types.NewNote(types.NoteUser, s.authorName(ctx, p), in.Text, s.now()))
	if err := s.store.SaveMember(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save member: %w", err)
	}
	return m, nil
}

// AssignMember sets the member's assignee. An empty userID unassigns.
func (s *Service) AssignMember(ctx context.Context, p permissions.Principal, id, userID string) (*types.Member, error) {
	if err := permissions.Require(p, permissions.MemberAssign); err != nil {
		return nil, err
	}
	m, err := s.memberInScope(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if m.AssignedToID == userID {
		return m, nil
	}

	text := "Unassigned"
	if userID != "" {
		u, err := s.store.GetUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
		if u == nil {
			return nil, invalid("user_id", "unknown user %s", userID)
		}
		text = "Assigned to " + u.Name
	}
	m.AssignedToID = userID
	m.AppendNote(types.NewNote(types.NoteSystem, s.authorName(ctx, p), text, s.now()))
	if err := s.store.SaveMember(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save member: %w", err)
	}
	return m, nil
}

// DeleteMember removes a member and their tasks.
func (s *Service) DeleteMember(ctx context.Context, p permissions.Principal, id string) error {
	if err := permissions.Require(p, permissions.MemberDelete); err != nil {
		return err
	}
	if _, err := s.memberInScope(ctx, p, id); err != nil {
		return err
	}
	if err := s.store.DeleteMember(ctx, id); err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}

	tasks, err := s.store.ListTasks(ctx, store.TaskFilter{MemberID: id})
	if err != nil {
		s.logger.Warn("could not list tasks of deleted member", zap.String("member_id", id), zap.Error(err))
		return nil
	}
	for _, t := range tasks {
		if err := s.store.DeleteTask(ctx, t.ID); err != nil {
			s.logger.Warn("orphaned task not deleted", zap.String("task_id", t.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) checkUser(ctx context.Context, field, id string) error {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if u == nil {
		return invalid(field, "unknown user %s", id)
	}
	return nil
}
