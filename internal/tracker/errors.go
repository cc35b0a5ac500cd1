package tracker

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/pathway-tracker/internal/pipeline"
)

// ErrNotFound indicates a record that does not exist or is outside the
// caller's view.
type ErrNotFound struct {
	Kind string
	ID   string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ErrValidation reports a rejected input field.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

func notFound(kind, id string) error {
	return &ErrNotFound{Kind: kind, ID: id}
}

func invalid(field, format string, args ...any) error {
	return &ErrValidation{Field: field, Message: fmt.Sprintf(format, args...)}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateInput runs struct validation and reports the first failing field.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ErrValidation{Field: fe.Field(), Message: describeTag(fe)}
	}
	return &ErrValidation{Message: err.Error()}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "datetime":
		return "must be a date formatted " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// stageError turns pipeline lookup failures into validation errors on field.
func stageError(field string, err error) error {
	var nf *pipeline.ErrStageNotFound
	if errors.As(err, &nf) {
		return invalid(field, "unknown stage %s", nf.StageID)
	}
	var mismatch *pipeline.ErrPathwayMismatch
	if errors.As(err, &mismatch) {
		return invalid(field, "stage %s does not belong to pathway %s", mismatch.StageID, mismatch.Want)
	}
	return err
}
