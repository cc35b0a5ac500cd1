package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-tracker/internal/forms"
	"github.com/jonathan/pathway-tracker/internal/permissions"
	"github.com/jonathan/pathway-tracker/internal/store"
	"github.com/jonathan/pathway-tracker/internal/types"
	"go.uber.org/zap"
)

// PublicForm is what an anonymous visitor sees of a form.
type PublicForm struct {
	Form   types.Form     `json:"form"`
	Schema map[string]any `json:"schema"`
}

// SubmitResult reports where a submission landed.
type SubmitResult struct {
	Submission types.Submission `json:"submission"`
	MemberID   string           `json:"member_id"`
	Existing   bool             `json:"existing_member"`
}

// ListForms returns every form.
func (s *Service) ListForms(ctx context.Context, p permissions.Principal) ([]types.Form, error) {
	if err := permissions.Require(p, permissions.FormView); err != nil {
		return nil, err
	}
	list, err := s.store.ListForms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}
	return list, nil
}

// GetForm returns one form.
func (s *Service) GetForm(ctx context.Context, p permissions.Principal, id string) (*types.Form, error) {
	if err := permissions.Require(p, permissions.FormView); err != nil {
		return nil, err
	}
	return s.loadForm(ctx, id)
}

func (s *Service) loadForm(ctx context.Context, id string) (*types.Form, error) {
	f, err := s.store.GetForm(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load form: %w", err)
	}
	if f == nil {
		return nil, notFound("form", id)
	}
	return f, nil
}

// SaveForm creates or updates a form definition.
func (s *Service) SaveForm(ctx context.Context, p permissions.Principal, form types.Form) (*types.Form, error) {
	if err := permissions.Require(p, permissions.FormManage); err != nil {
		return nil, err
	}
	if err := checkFormFields(&form); err != nil {
		return nil, err
	}
	if err := s.checkTarget(ctx, form.TargetPathway, form.TargetStageID); err != nil {
		return nil, err
	}

	if form.ID == "" {
		form.ID = uuid.NewString()
		form.CreatedAt = s.now()
	} else if existing, err := s.store.GetForm(ctx, form.ID); err != nil {
		return nil, fmt.Errorf("failed to load form: %w", err)
	} else if existing != nil {
		form.CreatedAt = existing.CreatedAt
	} else {
		form.CreatedAt = s.now()
	}

	if err := s.store.SaveForm(ctx, &form); err != nil {
		return nil, fmt.Errorf("failed to save form: %w", err)
	}
	return &form, nil
}

func checkFormFields(form *types.Form) error {
	form.Title = strings.TrimSpace(form.Title)
	if form.Title == "" {
		return invalid("title", "is required")
	}
	if !form.TargetPathway.Valid() {
		return invalid("target_pathway", "unknown pathway %q", form.TargetPathway)
	}
	if len(form.Fields) == 0 {
		return invalid("fields", "a form needs at least one field")
	}
	seen := make(map[string]bool, len(form.Fields))
	for i, f := range form.Fields {
		name := fmt.Sprintf("fields[%d]", i)
		switch {
		case f.ID == "":
			return invalid(name+".id", "is required")
		case seen[f.ID]:
			return invalid(name+".id", "duplicate field id %s", f.ID)
		case strings.TrimSpace(f.Label) == "":
			return invalid(name+".label", "is required")
		case !f.Type.Valid():
			return invalid(name+".type", "unknown field type %q", f.Type)
		case f.Type == types.FieldSelect && len(f.Options) == 0:
			return invalid(name+".options", "select fields need options")
		}
		seen[f.ID] = true
	}
	return nil
}

// DeleteForm removes a form. Stored submissions are kept.
func (s *Service) DeleteForm(ctx context.Context, p permissions.Principal, id string) error {
	if err := permissions.Require(p, permissions.FormManage); err != nil {
		return err
	}
	if _, err := s.loadForm(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteForm(ctx, id); err != nil {
		return fmt.Errorf("failed to delete form: %w", err)
	}
	return nil
}

// GetPublicForm returns an active form and its schema. No principal is needed.
func (s *Service) GetPublicForm(ctx context.Context, id string) (*PublicForm, error) {
	f, err := s.loadForm(ctx, id)
	if err != nil {
		return nil, err
	}
	if !f.Active {
		return nil, notFound("form", id)
	}
	return &PublicForm{Form: *f, Schema: forms.BuildSchema(*f)}, nil
}

// SubmitForm validates an anonymous submission and stores it. A new member
// is created unless the submitted email is already on file, in which case
// the submission is attached to that member.
func (s *Service) SubmitForm(ctx context.Context, id string, payload map[string]any) (*SubmitResult, error) {
	f, err := s.loadForm(ctx, id)
	if err != nil {
		return nil, err
	}
	if !f.Active {
		return nil, notFound("form", id)
	}
	if err := forms.Validate(*f, payload); err != nil {
		return nil, err
	}

	now := s.now()
	data := forms.Compact(payload)
	res := &SubmitResult{}

	existing, err := s.findByEmail(ctx, forms.Email(*f, data))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.AppendNote(types.NewNote(types.NoteImport, types.SystemAuthor,
			fmt.Sprintf("Submitted form %q again on %s", f.Title, now.Format("2006-01-02 15:04")), now))
		if err := s.store.SaveMember(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to save member: %w", err)
		}
		res.MemberID, res.Existing = existing.ID, true
	} else {
		if err := s.checkTarget(ctx, f.TargetPathway, f.TargetStageID); err != nil {
			s.logger.Warn("form targets a missing stage", zap.String("form_id", f.ID), zap.Error(err))
			return nil, err
		}
		m := forms.ToMember(*f, data, now)
		if err := s.store.SaveMember(ctx, &m); err != nil {
			return nil, fmt.Errorf("failed to save member: %w", err)
		}
		s.metrics.MembersIngested(f.Title, 1)
		s.metrics.StageEntered(m.CurrentStageID)
		res.MemberID = m.ID
	}

	res.Submission = types.Submission{
		ID:          uuid.NewString(),
		FormID:      f.ID,
		Data:        data,
		MemberID:    res.MemberID,
		SubmittedAt: now,
	}
	if err := s.store.SaveSubmission(ctx, &res.Submission); err != nil {
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}
	return res, nil
}

func (s *Service) findByEmail(ctx context.Context, email string) (*types.Member, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	candidates, err := s.store.ListMembers(ctx, store.MemberFilter{Search: email})
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	for i := range candidates {
		if strings.EqualFold(strings.TrimSpace(candidates[i].Email), email) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// ListSubmissions returns a form's stored submissions.
func (s *Service) ListSubmissions(ctx context.Context, p permissions.Principal, formID string) ([]types.Submission, error) {
	if err := permissions.Require(p, permissions.FormSubmissionsView); err != nil {
		return nil, err
	}
	if _, err := s.loadForm(ctx, formID); err != nil {
		return nil, err
	}
	subs, err := s.store.ListSubmissions(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}
