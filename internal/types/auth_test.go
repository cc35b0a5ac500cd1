package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/pathway-tracker/internal/permissions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserRequest_Validation(t *testing.T) {
	validate := validator.New()

	tests := []struct {
		name    string
		request CreateUserRequest
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid request",
			request: CreateUserRequest{
				Name:     "Grace Hopper",
				Email:    "grace@example.com",
				Password: "password123",
			},
		},
		{
			name: "missing name",
			request: CreateUserRequest{
				Email:    "grace@example.com",
				Password: "password123",
			},
			wantErr: true,
			errMsg:  "required",
		},
		{
			name: "invalid email format",
			request: CreateUserRequest{
				Name:     "Grace Hopper",
				Email:    "not-an-email",
				Password: "password123",
			},
			wantErr: true,
			errMsg:  "email",
		},
		{
			name: "password too short",
			request: CreateUserRequest{
				Name:     "Grace Hopper",
				Email:    "grace@example.com",
				Password: "short",
			},
			wantErr: true,
			errMsg:  "min",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.request)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoginRequest_Validate(t *testing.T) {
	valid := LoginRequest{Email: "a@example.com", Password: "x"}
	assert.NoError(t, valid.Validate())

	invalid := LoginRequest{Email: "a@example.com"}
	assert.Error(t, invalid.Validate())
}

func TestUser_JSONHasNoPassword(t *testing.T) {
	u := User{
		ID:        "u-1",
		Name:      "Grace",
		Email:     "grace@example.com",
		Role:      permissions.RoleVolunteer,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	u.PasswordHash = "$2a$10$secret"

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "password")
	assert.NotContains(t, string(data), "secret")
	assert.Contains(t, string(data), `"role":"VOLUNTEER"`)
}
