package tracker

import (
	"context"
	"fmt"
	"slices"

	"github.com/jonathan/pathway-tracker/internal/automation"
	"github.com/jonathan/pathway-tracker/internal/permissions"
	"github.com/jonathan/pathway-tracker/internal/store"
	"github.com/jonathan/pathway-tracker/internal/types"
	"golang.org/x/sync/errgroup"
)

// recentLimit caps Dashboard.RecentMembers.
const recentLimit = 5

// Dashboard summarizes the members and tasks visible to a principal.
type Dashboard struct {
	TotalMembers  int                        `json:"total_members"`
	ByPathway     map[types.Pathway]int      `json:"by_pathway"`
	ByStage       map[string]int             `json:"by_stage"`
	ByStatus      map[types.MemberStatus]int `json:"by_status"`
	OpenTasks     int                        `json:"open_tasks"`
	OverdueTasks  int                        `json:"overdue_tasks"`
	DueToday      int                        `json:"due_today"`
	RecentMembers []types.Member             `json:"recent_members"`
	Stages        []types.Stage              `json:"stages"`
}

// Dashboard loads members, tasks and stages concurrently and aggregates them.
func (s *Service) Dashboard(ctx context.Context, p permissions.Principal) (*Dashboard, error) {
	if err := permissions.Require(p, permissions.MemberView, permissions.TaskView); err != nil {
		return nil, err
	}
	mf, tf := store.MemberFilter{}, store.TaskFilter{}
	if !p.Can(permissions.MemberViewAll) {
		mf.AssignedToID = p.UserID
		tf.AssignedToID = p.UserID
	}

	var (
		members []types.Member
		tasks   []types.Task
		stages  []types.Stage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		members, err = s.store.ListMembers(gctx, mf)
		return err
	})
	g.Go(func() (err error) {
		tasks, err = s.store.ListTasks(gctx, tf)
		return err
	})
	g.Go(func() (err error) {
		stages, err = s.store.ListStages(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}

	d := &Dashboard{
		TotalMembers: len(members),
		ByPathway:    map[types.Pathway]int{},
		ByStage:      map[string]int{},
		ByStatus:     map[types.MemberStatus]int{},
		Stages:       stages,
	}
	for _, m := range members {
		d.ByPathway[m.Pathway]++
		d.ByStage[m.CurrentStageID]++
		d.ByStatus[m.Status]++
	}

	today := automation.DueDate(s.now(), 0)
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		d.OpenTasks++
		switch {
		case t.Overdue(today):
			d.OverdueTasks++
		case t.DueDate == today:
			d.DueToday++
		}
	}

	recent := slices.Clone(members)
	slices.SortFunc(recent, func(a, b types.Member) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}
	d.RecentMembers = recent
	return d, nil
}
