package forms

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-tracker/internal/automation"
	"github.com/jonathan/pathway-tracker/internal/ingestion"
	"github.com/jonathan/pathway-tracker/internal/types"
)

// FormTag marks members created from a form submission.
const FormTag = "Form"

// ToMember builds a new member from a validated payload. Answers whose field
// maps to a member attribute populate it; the rest are kept as a USER note.
func ToMember(form types.Form, payload map[string]any, now time.Time) types.Member {
	m := types.Member{
		ID:             uuid.NewString(),
		Pathway:        form.TargetPathway,
		CurrentStageID: form.TargetStageID,
		Status:         types.StatusActive,
		Source:         form.Title,
		JoinedDate:     automation.DueDate(now, 0),
		Notes:          []types.Note{},
		MessageLog:     []types.MessageLog{},
		Resources:      []types.Resource{},
		Tags:           []string{FormTag, form.Title},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var extra, notes []string
	for _, f := range form.Fields {
		val, ok := payload[f.ID]
		if !ok {
			continue
		}
		text := answerText(val)
		if text == "" {
			continue
		}
		switch f.MapTo {
		case types.MapFirstName:
			m.FirstName = text
		case types.MapLastName:
			m.LastName = text
		case types.MapFullName:
			first, last := ingestion.SplitFullName(text)
			if m.FirstName == "" {
				m.FirstName = first
			}
			if m.LastName == "" {
				m.LastName = last
			}
		case types.MapEmail:
			m.Email = text
		case types.MapPhone:
			m.Phone = text
		case types.MapNotes:
			notes = append(notes, text)
		default:
			extra = append(extra, fmt.Sprintf("%s: %s", f.Label, text))
		}
	}
	if m.FirstName == "" {
		m.FirstName = "Unknown"
	}

	m.AppendNote(types.NewNote(types.NoteImport, types.SystemAuthor,
		fmt.Sprintf("Submitted form %q on %s", form.Title, now.Format("2006-01-02 15:04")), now))
	if len(notes) > 0 || len(extra) > 0 {
		m.AppendNote(types.NewNote(types.NoteUser, types.SystemAuthor, strings.Join(append(notes, extra...), "\n"), now))
	}
	return m
}

// Email returns the submission's answer for the field mapped to email.
func Email(form types.Form, payload map[string]any) string {
	for _, f := range form.Fields {
		if f.MapTo == types.MapEmail {
			return answerText(payload[f.ID])
		}
	}
	return ""
}

func answerText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}
