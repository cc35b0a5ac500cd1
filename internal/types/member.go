package types

import (
	"slices"
	"time"
)

// MemberStatus is the lifecycle state of a member within their pathway.
type MemberStatus string

// MemberStatus values
const (
	StatusActive     MemberStatus = "ACTIVE"
	StatusIntegrated MemberStatus = "INTEGRATED"
	StatusInactive   MemberStatus = "INACTIVE"
)

// Valid reports whether s is a known status.
func (s MemberStatus) Valid() bool {
	return s == StatusActive || s == StatusIntegrated || s == StatusInactive
}

// NoteKind classifies a note's origin.
type NoteKind string

// NoteKind values
const (
	NoteSystem  NoteKind = "SYSTEM"
	NoteStage   NoteKind = "STAGE"
	NoteUser    NoteKind = "USER"
	NoteMessage NoteKind = "MESSAGE"
	NoteImport  NoteKind = "IMPORT"
)

// SystemAuthor is the author recorded on notes written by automation.
const SystemAuthor = "System"

// Note is a single entry in a member's append-only history.
type Note struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Kind      NoteKind  `json:"kind"`
}

// Channel is the medium a message was sent over.
type Channel string

// Channel values
const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelSMS
}

// Direction of a logged message.
type Direction string

// Direction values
const (
	DirectionOutbound Direction = "OUTBOUND"
	DirectionInbound  Direction = "INBOUND"
)

// MessageLog records one communication with a member.
type MessageLog struct {
	ID        string    `json:"id"`
	Channel   Channel   `json:"channel"`
	Direction Direction `json:"direction"`
	Subject   string    `json:"subject,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	SentByID  string    `json:"sent_by_id,omitempty"`
}

// Resource is a link shared with a member (reading plan, video, etc.).
type Resource struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type,omitempty"`
}

// Member is a person tracked through a pathway.
type Member struct {
	ID             string       `json:"id"`
	FirstName      string       `json:"first_name"`
	LastName       string       `json:"last_name"`
	Email          string       `json:"email,omitempty"`
	Phone          string       `json:"phone,omitempty"`
	Pathway        Pathway      `json:"pathway"`
	CurrentStageID string       `json:"current_stage_id"`
	Status         MemberStatus `json:"status"`
	AssignedToID   string       `json:"assigned_to_id,omitempty"`
	Source         string       `json:"source,omitempty"`
	JoinedDate     string       `json:"joined_date,omitempty"`
	Notes          []Note       `json:"notes"`
	MessageLog     []MessageLog `json:"message_log"`
	Resources      []Resource   `json:"resources"`
	Tags           []string     `json:"tags"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// FullName joins first and last name, skipping empty parts.
func (m *Member) FullName() string {
	switch {
	case m.FirstName == "":
		return m.LastName
	case m.LastName == "":
		return m.FirstName
	default:
		return m.FirstName + " " + m.LastName
	}
}

// Clone returns a deep copy so callers can mutate slices without aliasing.
func (m Member) Clone() Member {
	out := m
	out.Notes = slices.Clone(m.Notes)
	out.MessageLog = slices.Clone(m.MessageLog)
	out.Resources = slices.Clone(m.Resources)
	out.Tags = slices.Clone(m.Tags)
	return out
}

// HasTag reports whether the member carries tag (exact match).
func (m *Member) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
