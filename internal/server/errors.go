// Package server provides the HTTP REST API for the pathway tracker.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/pathway-tracker/internal/fetch"
	"github.com/jonathan/pathway-tracker/internal/forms"
	"github.com/jonathan/pathway-tracker/internal/ingestion"
	"github.com/jonathan/pathway-tracker/internal/messaging"
	"github.com/jonathan/pathway-tracker/internal/permissions"
	"github.com/jonathan/pathway-tracker/internal/pipeline"
	"github.com/jonathan/pathway-tracker/internal/store"
	"github.com/jonathan/pathway-tracker/internal/tracker"
)

// ErrEmailAlreadyExists indicates email is already registered
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrInvalidToken indicates a refresh token that is expired, revoked or malformed.
type ErrInvalidToken struct {
	Reason string
}

func (e *ErrInvalidToken) Error() string {
	if e.Reason == "" {
		return "invalid token"
	}
	return "invalid token: " + e.Reason
}

// ErrUserNotFound indicates user was not found
type ErrUserNotFound struct {
	UserID string
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user not found: %s", e.UserID)
}

// ErrPasswordMismatch indicates current password is incorrect
type ErrPasswordMismatch struct{}

func (e *ErrPasswordMismatch) Error() string {
	return "current password is incorrect"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		emailTaken  *ErrEmailAlreadyExists
		badCreds    *ErrInvalidCredentials
		badToken    *ErrInvalidToken
		mismatch    *ErrPasswordMismatch
		userMissing *ErrUserNotFound
		reqInvalid  *ErrValidation
		unauth      *permissions.ErrUnauthorized
		notFound    *tracker.ErrNotFound
		invalid     *tracker.ErrValidation
		formInvalid *forms.ValidationError
		parseErr    *ingestion.ParseError
		inUse       *pipeline.ErrStageInUse
		fetchErr    *fetch.Error
		draftErr    *messaging.DraftError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &reqInvalid), errors.As(err, &invalid),
		errors.As(err, &formInvalid), errors.As(err, &parseErr):
		return http.StatusBadRequest
	case errors.As(err, &badCreds), errors.As(err, &badToken), errors.As(err, &mismatch):
		return http.StatusUnauthorized
	case errors.As(err, &unauth):
		return http.StatusForbidden
	case errors.As(err, &userMissing), errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &emailTaken), errors.Is(err, store.ErrDuplicateEmail), errors.As(err, &inUse):
		return http.StatusConflict
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	case errors.As(err, &draftErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorBody builds the JSON error payload for err. Internal errors are not
// echoed to clients.
func errorBody(err error, status int) map[string]any {
	body := map[string]any{"error": err.Error()}
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusServiceUnavailable {
		body["error"] = "internal server error"
		return body
	}

	var (
		reqInvalid  *ErrValidation
		invalid     *tracker.ErrValidation
		formInvalid *forms.ValidationError
		fetchErr    *fetch.Error
		draftErr    *messaging.DraftError
	)
	switch {
	case errors.As(err, &reqInvalid):
		body["field"] = reqInvalid.Field
	case errors.As(err, &invalid):
		body["field"] = invalid.Field
	case errors.As(err, &formInvalid):
		body["fields"] = formInvalid.Fields
	case errors.As(err, &fetchErr):
		body["error"] = "failed to fetch sheet"
		body["remediation"] = fetchErr.UserMessage()
	case errors.As(err, &draftErr):
		body["error"] = "draft unavailable"
		body["remediation"] = draftErr.UserMessage()
	}
	return body
}
