package types

import "time"

// FieldType is the input kind of a form field.
type FieldType string

// FieldType values
const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldPhone    FieldType = "phone"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldSelect   FieldType = "select"
	FieldTextarea FieldType = "textarea"
	FieldCheckbox FieldType = "checkbox"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldEmail, FieldPhone, FieldNumber, FieldDate, FieldSelect, FieldTextarea, FieldCheckbox:
		return true
	}
	return false
}

// MapTarget names the Member attribute a form answer populates.
type MapTarget string

// MapTarget values
const (
	MapFirstName MapTarget = "first_name"
	MapLastName  MapTarget = "last_name"
	MapFullName  MapTarget = "full_name"
	MapEmail     MapTarget = "email"
	MapPhone     MapTarget = "phone"
	MapNotes     MapTarget = "notes"
)

// FormField is one question on a public form.
type FormField struct {
	ID       string    `json:"id" yaml:"id"`
	Label    string    `json:"label" yaml:"label"`
	Type     FieldType `json:"type" yaml:"type"`
	Required bool      `json:"required" yaml:"required"`
	Options  []string  `json:"options,omitempty" yaml:"options,omitempty"`
	MapTo    MapTarget `json:"map_to,omitempty" yaml:"map_to,omitempty"`
}

// Form is a public intake form whose submissions create members.
type Form struct {
	ID            string      `json:"id" yaml:"id"`
	Title         string      `json:"title" yaml:"title"`
	Description   string      `json:"description,omitempty" yaml:"description,omitempty"`
	TargetPathway Pathway     `json:"target_pathway" yaml:"target_pathway"`
	TargetStageID string      `json:"target_stage_id" yaml:"target_stage_id"`
	Fields        []FormField `json:"fields" yaml:"fields"`
	Active        bool        `json:"active" yaml:"active"`
	CreatedAt     time.Time   `json:"created_at" yaml:"-"`
}

// Field returns the field with the given id.
func (f Form) Field(id string) (FormField, bool) {
	for _, field := range f.Fields {
		if field.ID == id {
			return field, true
		}
	}
	return FormField{}, false
}

// Submission is one stored response to a form.
type Submission struct {
	ID          string         `json:"id"`
	FormID      string         `json:"form_id"`
	Data        map[string]any `json:"data"`
	MemberID    string         `json:"member_id,omitempty"`
	SubmittedAt time.Time      `json:"submitted_at"`
}
