package ingestion

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-tracker/internal/automation"
	"github.com/jonathan/pathway-tracker/internal/types"
)

// SheetImportTag is attached to every member created by an import.
const SheetImportTag = "Sheet Import"

// MemberNamePlaceholder is replaced in task descriptions with the member's name.
const MemberNamePlaceholder = "[Member Name]"

// Skip reasons
const (
	SkipDuplicateEmail = "duplicate email"
)

// Skipped records a row that produced no member.
type Skipped struct {
	Line   int    `json:"line"`
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason"`
}

// Result is the outcome of one import run.
type Result struct {
	NewMembers []types.Member `json:"new_members"`
	NewTasks   []types.Task   `json:"new_tasks"`
	Skipped    []Skipped      `json:"skipped"`
}

// Ingest parses raw CSV text and synthesizes members (and optionally tasks)
// for rows whose email is not already on file. Pathway and stage come from
// cfg, never from the sheet. Emails are compared case-insensitively against
// existing members and earlier rows of the same batch.
func Ingest(rawCSV string, cfg types.IntegrationConfig, existing []types.Member, actor string, now time.Time) (*Result, error) {
	rows, err := ParseCSV(rawCSV)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(existing))
	for _, m := range existing {
		if e := normalizeEmail(m.Email); e != "" {
			seen[e] = true
		}
	}

	res := &Result{}
	for _, row := range rows {
		key := normalizeEmail(row.Email)
		if key != "" && seen[key] {
			res.Skipped = append(res.Skipped, Skipped{Line: row.Line, Email: row.Email, Reason: SkipDuplicateEmail})
			continue
		}
		if key != "" {
			seen[key] = true
		}

		member := newMember(row, cfg, now)
		if cfg.AutoWelcome && row.Email != "" {
			addWelcome(&member, cfg, actor, now)
		}
		res.NewMembers = append(res.NewMembers, member)

		if cfg.AutoCreateTask {
			res.NewTasks = append(res.NewTasks, newTask(member, cfg, actor, now))
		}
	}
	return res, nil
}

func newMember(row Row, cfg types.IntegrationConfig, now time.Time) types.Member {
	first := row.FirstName
	if !row.HasName() {
		first = "Unknown"
	}
	m := types.Member{
		ID:             uuid.NewString(),
		FirstName:      first,
		LastName:       row.LastName,
		Email:          row.Email,
		Phone:          row.Phone,
		Pathway:        cfg.TargetPathway,
		CurrentStageID: cfg.TargetStageID,
		Status:         types.StatusActive,
		Source:         cfg.SourceName,
		JoinedDate:     automation.DueDate(now, 0),
		Notes:          []types.Note{},
		MessageLog:     []types.MessageLog{},
		Resources:      []types.Resource{},
		Tags:           []string{SheetImportTag, cfg.SourceName},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.AppendNote(types.NewNote(types.NoteImport, types.SystemAuthor,
		fmt.Sprintf("Imported from %s on %s", cfg.SourceName, now.Format("2006-01-02 15:04")), now))
	return m
}

// WelcomeSubject is the subject of the automatic welcome email.
const WelcomeSubject = "Welcome!"

// WelcomeMessage renders the fixed greeting sent to imported members.
func WelcomeMessage(firstName, sourceName string) string {
	if firstName == "" {
		firstName = "friend"
	}
	return fmt.Sprintf("Hi %s,\n\nThank you for connecting with us through %s! "+
		"We're so glad you're here. Someone from our team will reach out soon to help you take your next step.\n\n"+
		"Blessings,\nThe Pathway Team", firstName, sourceName)
}

func addWelcome(m *types.Member, cfg types.IntegrationConfig, actor string, now time.Time) {
	m.MessageLog = append(m.MessageLog, types.MessageLog{
		ID:        uuid.NewString(),
		Channel:   types.ChannelEmail,
		Direction: types.DirectionOutbound,
		Subject:   WelcomeSubject,
		Content:   WelcomeMessage(m.FirstName, cfg.SourceName),
		Timestamp: now,
		SentByID:  actor,
	})
	m.AppendNote(types.NewNote(types.NoteMessage, types.SystemAuthor, "Auto-welcome email sent to "+m.Email, now))
}

// TaskDescription renders the integration's task template for a member.
func TaskDescription(template string, m types.Member) string {
	name := strings.TrimSpace(m.FirstName + " " + m.LastName)
	if strings.TrimSpace(template) == "" {
		return "Follow up with " + name
	}
	return strings.ReplaceAll(template, MemberNamePlaceholder, name)
}

func newTask(m types.Member, cfg types.IntegrationConfig, actor string, now time.Time) types.Task {
	return types.Task{
		ID:           uuid.NewString(),
		MemberID:     m.ID,
		Description:  TaskDescription(cfg.TaskDescription, m),
		DueDate:      automation.DueDate(now, 1),
		Completed:    false,
		Priority:     types.PriorityHigh,
		AssignedToID: actor,
		CreatedAt:    now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
