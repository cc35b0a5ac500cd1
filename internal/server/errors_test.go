package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jonathan/pathway-tracker/internal/fetch"
	"github.com/jonathan/pathway-tracker/internal/forms"
	"github.com/jonathan/pathway-tracker/internal/ingestion"
	"github.com/jonathan/pathway-tracker/internal/messaging"
	"github.com/jonathan/pathway-tracker/internal/permissions"
	"github.com/jonathan/pathway-tracker/internal/pipeline"
	"github.com/jonathan/pathway-tracker/internal/store"
	"github.com/jonathan/pathway-tracker/internal/tracker"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "email already registered: test@example.com", (&ErrEmailAlreadyExists{Email: "test@example.com"}).Error())
	assert.Equal(t, "invalid email or password", (&ErrInvalidCredentials{}).Error())
	assert.Equal(t, "user not found: u-1", (&ErrUserNotFound{UserID: "u-1"}).Error())
	assert.Equal(t, "current password is incorrect", (&ErrPasswordMismatch{}).Error())
	assert.Equal(t, "validation error: email - invalid format", (&ErrValidation{Field: "email", Message: "invalid format"}).Error())
	assert.Equal(t, "invalid token", (&ErrInvalidToken{}).Error())
	assert.Equal(t, "invalid token: revoked", (&ErrInvalidToken{Reason: "revoked"}).Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, http.StatusOK},
		{"ErrEmailAlreadyExists", &ErrEmailAlreadyExists{Email: "a@b.c"}, http.StatusConflict},
		{"duplicate email from store", fmt.Errorf("create: %w", store.ErrDuplicateEmail), http.StatusConflict},
		{"ErrInvalidCredentials", &ErrInvalidCredentials{}, http.StatusUnauthorized},
		{"ErrInvalidToken", &ErrInvalidToken{}, http.StatusUnauthorized},
		{"ErrPasswordMismatch", &ErrPasswordMismatch{}, http.StatusUnauthorized},
		{"ErrUserNotFound", &ErrUserNotFound{UserID: "u"}, http.StatusNotFound},
		{"ErrValidation", &ErrValidation{Field: "f"}, http.StatusBadRequest},
		{"tracker validation", &tracker.ErrValidation{Field: "email"}, http.StatusBadRequest},
		{"tracker not found", &tracker.ErrNotFound{Kind: "member", ID: "m"}, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", &tracker.ErrNotFound{Kind: "task"}), http.StatusNotFound},
		{"form validation", &forms.ValidationError{}, http.StatusBadRequest},
		{"csv parse", &ingestion.ParseError{Message: "bad"}, http.StatusBadRequest},
		{"unauthorized", &permissions.ErrUnauthorized{Role: permissions.RoleVolunteer, Permission: permissions.MemberDelete}, http.StatusForbidden},
		{"stage in use", &pipeline.ErrStageInUse{StageID: "nc-2"}, http.StatusConflict},
		{"fetch", &fetch.Error{URL: "u", Message: "m"}, http.StatusBadGateway},
		{"draft", &messaging.DraftError{Message: "m"}, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestErrorBody(t *testing.T) {
	t.Run("internal errors are hidden", func(t *testing.T) {
		body := errorBody(errors.New("pq: connection refused"), http.StatusInternalServerError)
		assert.Equal(t, "internal server error", body["error"])
	})

	t.Run("validation carries field", func(t *testing.T) {
		err := &tracker.ErrValidation{Field: "email", Message: "must be an email"}
		body := errorBody(err, HTTPStatus(err))
		assert.Equal(t, "email", body["field"])
		assert.Equal(t, err.Error(), body["error"])
	})

	t.Run("form errors carry every field", func(t *testing.T) {
		err := &forms.ValidationError{Fields: []forms.FieldError{{Field: "name", Message: "name is required"}}}
		body := errorBody(err, HTTPStatus(err))
		assert.Equal(t, err.Fields, body["fields"])
	})

	t.Run("fetch errors carry remediation", func(t *testing.T) {
		err := &fetch.Error{URL: "u", Message: "html", Remediation: fetch.RemediationPublish}
		body := errorBody(err, HTTPStatus(err))
		assert.Equal(t, fetch.RemediationPublish, body["remediation"])
	})

	t.Run("draft errors carry remediation", func(t *testing.T) {
		err := &messaging.DraftError{Message: "quota"}
		body := errorBody(err, HTTPStatus(err))
		assert.Equal(t, messaging.DraftRemediation, body["remediation"])
	})
}
