// Package memory is an in-process store.Store used by the demo server and tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/pathway-tracker/internal/store"
	"github.com/jonathan/pathway-tracker/internal/types"
)

// collection is an insertion-ordered map of records keyed by id.
type collection[T any] struct {
	order []string
	items map[string]T
}

func newCollection[T any]() *collection[T] {
	return &collection[T]{items: make(map[string]T)}
}

func (c *collection[T]) get(id string) (T, bool) {
	v, ok := c.items[id]
	return v, ok
}

func (c *collection[T]) put(id string, v T) {
	if _, ok := c.items[id]; !ok {
		c.order = append(c.order, id)
	}
	c.items[id] = v
}

func (c *collection[T]) delete(id string) {
	if _, ok := c.items[id]; !ok {
		return
	}
	delete(c.items, id)
	for i, o := range c.order {
		if o == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *collection[T]) list(keep func(T) bool) []T {
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		v := c.items[id]
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Store keeps every record in memory. Records are copied on the way in and
// out so callers never share state with the store.
type Store struct {
	mu           sync.RWMutex
	users        *collection[types.User]
	members      *collection[types.Member]
	tasks        *collection[types.Task]
	stages       *collection[types.Stage]
	rules        *collection[types.AutomationRule]
	integrations *collection[types.IntegrationConfig]
	forms        *collection[types.Form]
	submissions  *collection[types.Submission]
	courses      *collection[types.Course]
	progress     *collection[types.Progress]
	revoked      map[string]time.Time
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		users:        newCollection[types.User](),
		members:      newCollection[types.Member](),
		tasks:        newCollection[types.Task](),
		stages:       newCollection[types.Stage](),
		rules:        newCollection[types.AutomationRule](),
		integrations: newCollection[types.IntegrationConfig](),
		forms:        newCollection[types.Form](),
		submissions:  newCollection[types.Submission](),
		courses:      newCollection[types.Course](),
		progress:     newCollection[types.Progress](),
		revoked:      make(map[string]time.Time),
	}
}

// Close is a no-op.
func (s *Store) Close() {}

func ptr[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}

// Users

func (s *Store) CreateUser(_ context.Context, u *types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users.items {
		if strings.EqualFold(existing.Email, u.Email) {
			return store.ErrDuplicateEmail
		}
	}
	s.users.put(u.ID, *u)
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr(s.users.get(id)), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*types.User, error) {
	if email == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := s.users.list(func(u types.User) bool { return strings.EqualFold(u.Email, email) })
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

func (s *Store) ListUsers(_ context.Context) ([]types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.list(nil), nil
}

func (s *Store) UpdateUser(_ context.Context, u *types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users.get(u.ID); !ok {
		return nil
	}
	s.users.put(u.ID, *u)
	return nil
}

func (s *Store) CountUsers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users.items), nil
}

// Members

func (s *Store) GetMember(_ context.Context, id string) (*types.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members.get(id)
	if !ok {
		return nil, nil
	}
	c := m.Clone()
	return &c, nil
}

func (s *Store) ListMembers(_ context.Context, f store.MemberFilter) ([]types.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.members.list(f.Match)
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out, nil
}

func (s *Store) SaveMember(_ context.Context, m *types.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members.put(m.ID, m.Clone())
	return nil
}

func (s *Store) SaveMembers(_ context.Context, ms []types.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range ms {
		s.members.put(m.ID, m.Clone())
	}
	return nil
}

func (s *Store) DeleteMember(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members.delete(id)
	return nil
}

// Tasks

func (s *Store) GetTask(_ context.Context, id string) (*types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr(s.tasks.get(id)), nil
}

func (s *Store) ListTasks(_ context.Context, f store.TaskFilter) ([]types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasks.list(f.Match), nil
}

func (s *Store) SaveTask(_ context.Context, t *types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks.put(t.ID, *t)
	return nil
}

func (s *Store) SaveTasks(_ context.Context, ts []types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range ts {
		s.tasks.put(t.ID, t)
	}
	return nil
}

func (s *Store) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks.delete(id)
	return nil
}

// Stages and rules

func (s *Store) ListStages(_ context.Context) ([]types.Stage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.stages.list(nil)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pathway != out[j].Pathway {
			return slices.Index(types.Pathways, out[i].Pathway) < slices.Index(types.Pathways, out[j].Pathway)
		}
		return out[i].Order < out[j].Order
	})
	return out, nil
}

func (s *Store) GetStage(_ context.Context, id string) (*types.Stage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr(s.stages.get(id)), nil
}

func (s *Store) SaveStages(_ context.Context, stages []types.Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range stages {
		s.stages.put(st.ID, st)
	}
	return nil
}

func (s *Store) DeleteStage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages.delete(id)
	return nil
}

func (s *Store) ListRules(_ context.Context) ([]types.AutomationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules.list(nil), nil
}

func (s *Store) GetRule(_ context.Context, id string) (*types.AutomationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr(s.rules.get(id)), nil
}

func (s *Store) SaveRule(_ context.Context, r *types.AutomationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules.put(r.ID, *r)
	return nil
}

func (s *Store) DeleteRule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules.delete(id)
	return nil
}

// Integrations

func (s *Store) ListIntegrations(_ context.Context) ([]types.IntegrationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.integrations.list(nil), nil
}

func (s *Store) GetIntegration(_ context.Context, id string) (*types.IntegrationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr(s.integrations.get(id)), nil
}

func (s *Store) SaveIntegration(_ context.Context, c *types.IntegrationConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.integrations.put(c.ID, *c)
	return nil
}

func (s *Store) DeleteIntegration(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.integrations.delete(id)
	return nil
}

// Forms

func (s *Store) ListForms(_ context.Context) ([]types.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.forms.list(nil), nil
}

func (s *Store) GetForm(_ context.Context, id string) (*types.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr(s.forms.get(id)), nil
}

func (s *Store) SaveForm(_ context.Context, f *types.Form) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms.put(f.ID, *f)
	return nil
}

func (s *Store) DeleteForm(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms.delete(id)
	return nil
}

func (s *Store) SaveSubmission(_ context.Context, sub *types.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions.put(sub.ID, *sub)
	return nil
}

func (s *Store) ListSubmissions(_ context.Context, formID string) ([]types.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.submissions.list(func(sub types.Submission) bool { return sub.FormID == formID }), nil
}

// Academy

func (s *Store) ListCourses(_ context.Context) ([]types.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.courses.list(nil), nil
}

func (s *Store) GetCourse(_ context.Context, id string) (*types.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr(s.courses.get(id)), nil
}

func (s *Store) SaveCourse(_ context.Context, c *types.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses.put(c.ID, *c)
	return nil
}

func progressKey(userID, courseID string) string {
	return userID + "/" + courseID
}

func (s *Store) GetProgress(_ context.Context, userID, courseID string) (*types.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr(s.progress.get(progressKey(userID, courseID))), nil
}

func (s *Store) SaveProgress(_ context.Context, p *types.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.put(progressKey(p.UserID, p.CourseID), *p)
	return nil
}

func (s *Store) ListProgress(_ context.Context, userID string) ([]types.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress.list(func(p types.Progress) bool { return p.UserID == userID }), nil
}

// Tokens

func (s *Store) RevokeToken(_ context.Context, jti string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[jti] = expiresAt
	return nil
}

func (s *Store) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[jti]
	return ok, nil
}
