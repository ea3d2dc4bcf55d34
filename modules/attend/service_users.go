package attend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/Darlykn/ClockIn/common/model"
)

// CreateUser creates a new account (admin only).
func (s *attendService) CreateUser(ctx context.Context, body model.UserCreate) (*model.User, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}
	data, err := s.client.PostJSON(ctx, "/api/users/", bytes.NewReader(encoded), http.StatusCreated)
	if err != nil {
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &user, nil
}

// ListUsers returns one page of accounts, optionally filtered by a partial
// name/username/email match.
func (s *attendService) ListUsers(ctx context.Context, search string, page, perPage int) (*model.UserPage, error) {
	params := map[string]string{}
	if search != "" {
		params["search"] = search
	}
	addPagination(params, page, perPage)

	var result model.UserPage
	if err := s.client.GetJSONFresh(ctx, "/api/users/", &result, params); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListEmployees returns active employees as id/name pairs for dropdowns.
func (s *attendService) ListEmployees(ctx context.Context) ([]model.EmployeeRef, error) {
	var employees []model.EmployeeRef
	if err := s.client.GetJSONFresh(ctx, "/api/users/employees", &employees, nil); err != nil {
		return nil, err
	}
	return employees, nil
}

// Me returns the authenticated user's own profile.
func (s *attendService) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := s.client.GetJSONFresh(ctx, "/api/users/me", &user, nil); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser applies a partial update to an account (admin only).
func (s *attendService) UpdateUser(ctx context.Context, userID uuid.UUID, body model.UserUpdate) (*model.User, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user update: %w", err)
	}
	endpoint := fmt.Sprintf("/api/users/%s", userID)
	data, err := s.client.PatchJSON(ctx, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &user, nil
}

// GenerateInvite issues a first-login invite token for a user (admin only).
// The server resets the user's 2FA as part of this.
func (s *attendService) GenerateInvite(ctx context.Context, userID uuid.UUID) (*model.InviteToken, error) {
	endpoint := fmt.Sprintf("/api/users/%s/generate-invite", userID)
	data, err := s.client.PostJSON(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var invite model.InviteToken
	if err := json.Unmarshal(data, &invite); err != nil {
		return nil, fmt.Errorf("failed to decode invite token: %w", err)
	}
	return &invite, nil
}
