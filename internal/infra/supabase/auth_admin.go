package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/boddenberg/project-portal-go/internal/domain"
)

// ============================================================
// IdentityProvider implementation: GoTrue user and admin API
// ============================================================

// VerifyToken resolves a user access token through GET /auth/v1/user.
func (c *Client) VerifyToken(ctx context.Context, token string) (*domain.AuthUser, error) {
	ctx, span := tracer.Start(ctx, "Supabase.VerifyToken")
	defer span.End()

	if token == "" {
		return nil, &domain.ErrUnauthorized{Message: "missing token"}
	}
	body, err := c.doAuth(ctx, http.MethodGet, "user", nil, token)
	if err != nil {
		switch statusOf(err) {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, &domain.ErrUnauthorized{Message: "invalid token"}
		}
		return nil, external("supabase-auth", err)
	}
	user, err := decodeUser(body)
	if err != nil {
		return nil, err
	}
	if user == nil || user.ID == "" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	return user, nil
}

// CreateUser creates a confirmed identity through the admin API.
func (c *Client) CreateUser(ctx context.Context, params domain.CreateUserParams) (*domain.AuthUser, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateUser")
	defer span.End()

	body, err := c.doAuth(ctx, http.MethodPost, "admin/users", map[string]any{
		"email":         params.Email,
		"password":      params.Password,
		"email_confirm": params.EmailConfirm,
		"user_metadata": params.Metadata,
	}, "")
	if err != nil {
		switch statusOf(err) {
		case http.StatusConflict, http.StatusUnprocessableEntity:
			return nil, &domain.ErrConflict{Message: "A user with this email address has already been registered"}
		case http.StatusBadRequest:
			return nil, &domain.ErrValidation{Message: authErrorMessage(err)}
		}
		return nil, external("supabase-auth", err)
	}
	user, err := decodeUser(body)
	if err != nil {
		return nil, err
	}
	if user == nil || user.ID == "" {
		return nil, &domain.ErrExternalService{Service: "supabase-auth", Err: fmt.Errorf("create user returned no identity")}
	}
	return user, nil
}

// DeleteUser removes an identity through the admin API. Unknown users are not an error.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteUser")
	defer span.End()

	_, err := c.doAuth(ctx, http.MethodDelete, "admin/users/"+userID, nil, "")
	return external("supabase-auth", err)
}

// authErrorMessage extracts the human-readable part of a GoTrue error body.
// The raw status line and body stay in the logs.
func authErrorMessage(err error) string {
	var se *statusError
	if errors.As(err, &se) {
		var body struct {
			Msg              string `json:"msg"`
			Message          string `json:"message"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal([]byte(se.Body), &body) == nil {
			for _, m := range []string{body.Msg, body.Message, body.ErrorDescription} {
				if m != "" {
					return m
				}
			}
		}
	}
	return "Invalid user details"
}

func decodeUser(body []byte) (*domain.AuthUser, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var user domain.AuthUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("decode auth user: %w", err)
	}
	return &user, nil
}
