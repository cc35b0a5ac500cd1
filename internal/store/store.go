// Package store defines the persistence contract for pathway tracker records.
//
// Lookups by id return (nil, nil) when the record does not exist. Save
// methods upsert by id. Writes are independent; there are no transactions
// spanning collections.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jonathan/pathway-tracker/internal/types"
)

// ErrDuplicateEmail is returned when creating a user whose email is taken.
var ErrDuplicateEmail = errors.New("email already registered")

// MemberFilter narrows ListMembers. Zero fields match everything.
type MemberFilter struct {
	AssignedToID string
	Pathway      types.Pathway
	StageID      string
	Status       types.MemberStatus
	Tag          string
	Search       string
}

// Match reports whether m passes the filter.
func (f MemberFilter) Match(m types.Member) bool {
	if f.AssignedToID != "" && m.AssignedToID != f.AssignedToID {
		return false
	}
	if f.Pathway != "" && m.Pathway != f.Pathway {
		return false
	}
	if f.StageID != "" && m.CurrentStageID != f.StageID {
		return false
	}
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if f.Tag != "" && !m.HasTag(f.Tag) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		hay := strings.ToLower(m.FullName() + " " + m.Email + " " + m.Phone)
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return true
}

// TaskFilter narrows ListTasks. Zero fields match everything.
type TaskFilter struct {
	MemberID     string
	AssignedToID string
	Completed    *bool
}

// Match reports whether t passes the filter.
func (f TaskFilter) Match(t types.Task) bool {
	if f.MemberID != "" && t.MemberID != f.MemberID {
		return false
	}
	if f.AssignedToID != "" && t.AssignedToID != f.AssignedToID {
		return false
	}
	if f.Completed != nil && t.Completed != *f.Completed {
		return false
	}
	return true
}

// Users persists staff accounts.
type Users interface {
	CreateUser(ctx context.Context, u *types.User) error
	GetUser(ctx context.Context, id string) (*types.User, error)
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	ListUsers(ctx context.Context) ([]types.User, error)
	UpdateUser(ctx context.Context, u *types.User) error
	CountUsers(ctx context.Context) (int, error)
}

// Members persists member records.
type Members interface {
	GetMember(ctx context.Context, id string) (*types.Member, error)
	ListMembers(ctx context.Context, f MemberFilter) ([]types.Member, error)
	SaveMember(ctx context.Context, m *types.Member) error
	SaveMembers(ctx context.Context, ms []types.Member) error
	DeleteMember(ctx context.Context, id string) error
}

// Tasks persists follow-up tasks.
type Tasks interface {
	GetTask(ctx context.Context, id string) (*types.Task, error)
	ListTasks(ctx context.Context, f TaskFilter) ([]types.Task, error)
	SaveTask(ctx context.Context, t *types.Task) error
	SaveTasks(ctx context.Context, ts []types.Task) error
	DeleteTask(ctx context.Context, id string) error
}

// Pipeline persists stage definitions and automation rules.
type Pipeline interface {
	ListStages(ctx context.Context) ([]types.Stage, error)
	GetStage(ctx context.Context, id string) (*types.Stage, error)
	SaveStages(ctx context.Context, stages []types.Stage) error
	DeleteStage(ctx context.Context, id string) error

	ListRules(ctx context.Context) ([]types.AutomationRule, error)
	GetRule(ctx context.Context, id string) (*types.AutomationRule, error)
	SaveRule(ctx context.Context, r *types.AutomationRule) error
	DeleteRule(ctx context.Context, id string) error
}

// Integrations persists spreadsheet integration configs.
type Integrations interface {
	ListIntegrations(ctx context.Context) ([]types.IntegrationConfig, error)
	GetIntegration(ctx context.Context, id string) (*types.IntegrationConfig, error)
	SaveIntegration(ctx context.Context, c *types.IntegrationConfig) error
	DeleteIntegration(ctx context.Context, id string) error
}

// Forms persists public forms and their submissions.
type Forms interface {
	ListForms(ctx context.Context) ([]types.Form, error)
	GetForm(ctx context.Context, id string) (*types.Form, error)
	SaveForm(ctx context.Context, f *types.Form) error
	DeleteForm(ctx context.Context, id string) error
	SaveSubmission(ctx context.Context, s *types.Submission) error
	ListSubmissions(ctx context.Context, formID string) ([]types.Submission, error)
}

// Academy persists courses and per-user progress.
type Academy interface {
	ListCourses(ctx context.Context) ([]types.Course, error)
	GetCourse(ctx context.Context, id string) (*types.Course, error)
	SaveCourse(ctx context.Context, c *types.Course) error
	GetProgress(ctx context.Context, userID, courseID string) (*types.Progress, error)
	SaveProgress(ctx context.Context, p *types.Progress) error
	ListProgress(ctx context.Context, userID string) ([]types.Progress, error)
}

// Tokens records revoked refresh tokens.
type Tokens interface {
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// Store is the full persistence contract.
type Store interface {
	Users
	Members
	Tasks
	Pipeline
	Integrations
	Forms
	Academy
	Tokens
	Close()
}
