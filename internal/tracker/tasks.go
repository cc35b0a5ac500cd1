package tracker

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-tracker/internal/automation"
	"github.com/jonathan/pathway-tracker/internal/observability"
	"github.com/jonathan/pathway-tracker/internal/permissions"
	"github.com/jonathan/pathway-tracker/internal/store"
	"github.com/jonathan/pathway-tracker/internal/types"
)

// TaskInput creates a task.
type TaskInput struct {
	MemberID     string         `json:"member_id" validate:"required"`
	Description  string         `json:"description" validate:"required"`
	DueDate      string         `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Priority     types.Priority `json:"priority"`
	AssignedToID string         `json:"assigned_to_id"`
}

// ListTasks returns tasks matching f, soonest due first and HIGH before LOW
// on the same day. Principals without MEMBER_VIEW_ALL only see their own tasks.
func (s *Service) ListTasks(ctx context.Context, p permissions.Principal, f store.TaskFilter) ([]types.Task, error) {
	if err := permissions.Require(p, permissions.TaskView); err != nil {
		return nil, err
	}
	if !p.Can(permissions.MemberViewAll) {
		f.AssignedToID = p.UserID
	}
	tasks, err := s.store.ListTasks(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	SortTasks(tasks)
	return tasks, nil
}

// SortTasks orders tasks by due date, then priority, then creation time.
// Tasks without a due date sort last.
func SortTasks(tasks []types.Task) {
	slices.SortStableFunc(tasks, func(a, b types.Task) int {
		if a.DueDate != b.DueDate {
			switch {
			case a.DueDate == "":
				return 1
			case b.DueDate == "":
				return -1
			}
			return strings.Compare(a.DueDate, b.DueDate)
		}
		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra - rb
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}

// CreateTask adds a manual task. It defaults to MEDIUM priority, due today,
// assigned to the creator.
func (s *Service) CreateTask(ctx context.Context, p permissions.Principal, in TaskInput) (*types.Task, error) {
	if err := permissions.Require(p, permissions.TaskCreate); err != nil {
		return nil, err
	}
	in.Description = strings.TrimSpace(in.Description)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Priority == "" {
		in.Priority = types.PriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, invalid("priority", "unknown priority %q", in.Priority)
	}
	if _, err := s.memberInScope(ctx, p, in.MemberID); err != nil {
		return nil, err
	}
	if in.AssignedToID == "" {
		in.AssignedToID = p.UserID
	} else if err := s.checkUser(ctx, "assigned_to_id", in.AssignedToID); err != nil {
		return nil, err
	}

	now := s.now()
	if in.DueDate == "" {
		in.DueDate = automation.DueDate(now, 0)
	}
	t := types.Task{
		ID:           uuid.NewString(),
		MemberID:     in.MemberID,
		Description:  in.Description,
		DueDate:      in.DueDate,
		Priority:     in.Priority,
		AssignedToID: in.AssignedToID,
		CreatedAt:    now,
	}
	if err := s.store.SaveTask(ctx, &t); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	s.metrics.TasksCreated(observability.TaskSourceManual, 1)
	return &t, nil
}

// ToggleTask flips a task's completed flag.
func (s *Service) ToggleTask(ctx context.Context, p permissions.Principal, id string) (*types.Task, error) {
	if err := permissions.Require(p, permissions.TaskEdit); err != nil {
		return nil, err
	}
	t, err := s.taskInScope(ctx, p, id)
	if err != nil {
		return nil, err
	}
	t.Completed = !t.Completed
	if err := s.store.SaveTask(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	return t, nil
}

// DeleteTask removes a task.
func (s *Service) DeleteTask(ctx context.Context, p permissions.Principal, id string) error {
	if err := permissions.Require(p, permissions.TaskDelete); err != nil {
		return err
	}
	if _, err := s.taskInScope(ctx, p, id); err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

func (s *Service) taskInScope(ctx context.Context, p permissions.Principal, id string) (*types.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	if t == nil {
		return nil, notFound("task", id)
	}
	if !p.Can(permissions.MemberViewAll) && t.AssignedToID != p.UserID {
		return nil, &permissions.ErrUnauthorized{Role: p.Role, Permission: permissions.MemberViewAll}
	}
	return t, nil
}
