// Package forms compiles public intake forms into JSON Schemas, validates
// submissions against them and maps answers onto new members.
package forms

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/pathway-tracker/internal/types"
	"github.com/xeipuuv/gojsonschema"
)

const (
	datePattern  = `^[0-9]{4}-[0-9]{2}-[0-9]{2}$`
	phonePattern = `^[0-9+() .-]{3,}$`
)

// FieldError is a single failed answer.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every answer that failed validation.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "invalid submission: " + strings.Join(parts, "; ")
}

// SchemaError means the form definition itself could not be compiled.
type SchemaError struct {
	FormID string
	Cause  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("form %s has an invalid schema: %v", e.FormID, e.Cause)
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// BuildSchema renders the form's fields as a JSON Schema document.
func BuildSchema(form types.Form) map[string]any {
	props := make(map[string]any, len(form.Fields))
	required := []string{}
	for _, f := range form.Fields {
		props[f.ID] = fieldSchema(f)
		if f.Required {
			required = append(required, f.ID)
		}
	}
	schema := map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"title":                form.Title,
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func fieldSchema(f types.FormField) map[string]any {
	s := map[string]any{"title": f.Label}
	switch f.Type {
	case types.FieldEmail:
		s["type"] = "string"
		s["format"] = "email"
	case types.FieldPhone:
		s["type"] = "string"
		s["pattern"] = phonePattern
	case types.FieldNumber:
		s["type"] = "number"
	case types.FieldDate:
		s["type"] = "string"
		s["pattern"] = datePattern
	case types.FieldSelect:
		s["type"] = "string"
		enum := make([]any, len(f.Options))
		for i, o := range f.Options {
			enum[i] = o
		}
		s["enum"] = enum
	case types.FieldCheckbox:
		s["type"] = "boolean"
	default:
		s["type"] = "string"
	}
	if f.Required && s["type"] == "string" {
		s["minLength"] = 1
	}
	return s
}

// Validate checks a submission payload against the form. Blank optional
// answers are ignored.
func Validate(form types.Form, payload map[string]any) error {
	loader := gojsonschema.NewGoLoader(BuildSchema(form))
	result, err := gojsonschema.Validate(loader, gojsonschema.NewGoLoader(Compact(payload)))
	if err != nil {
		return &SchemaError{FormID: form.ID, Cause: err}
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{Fields: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if desc.Type() == "required" {
			if p, ok := desc.Details()["property"].(string); ok {
				field = p
			}
		}
		verr.Fields = append(verr.Fields, FieldError{Field: field, Message: desc.Description()})
	}
	sort.SliceStable(verr.Fields, func(i, j int) bool { return verr.Fields[i].Field < verr.Fields[j].Field })
	return verr
}

// Compact drops nil values and blank strings from a payload.
func Compact(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			if strings.TrimSpace(val) == "" {
				continue
			}
			out[k] = strings.TrimSpace(val)
		default:
			out[k] = v
		}
	}
	return out
}
