package types

import (
	"time"

	"github.com/google/uuid"
)

// NewNote builds a note with a fresh id.
func NewNote(kind NoteKind, author, text string, at time.Time) Note {
	return Note{
		ID:        uuid.NewString(),
		Timestamp: at,
		Author:    author,
		Text:      text,
		Kind:      kind,
	}
}

// AppendNote appends a note to the member and bumps UpdatedAt.
func (m *Member) AppendNote(n Note) {
	m.Notes = append(m.Notes, n)
	if n.Timestamp.After(m.UpdatedAt) {
		m.UpdatedAt = n.Timestamp
	}
}
