package domain

// ============================================================
// Identity & provisioning
// ============================================================

// AuthUser is the raw identity held by the auth service.
type AuthUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// CreateUserParams describes an identity to create through the admin API.
type CreateUserParams struct {
	Email        string
	Password     string
	EmailConfirm bool
	Metadata     map[string]any
}

// CreateUserRequest is the body of the provisioning endpoint.
type CreateUserRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName string  `json:"full_name"`
	Role     Role    `json:"role"`
	Company  *string `json:"company,omitempty"`
}

// Validate enforces the provisioning contract: every required field present and a known role.
func (r *CreateUserRequest) Validate() error {
	if r.Email == "" || r.Password == "" || r.FullName == "" || r.Role == "" {
		return &ErrValidation{Message: "Missing required fields"}
	}
	if !r.Role.Valid() {
		return &ErrValidation{Message: "Invalid role: " + string(r.Role)}
	}
	return nil
}

// CreatedUser is the user summary returned on success.
type CreatedUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
}

// CreateUserResponse is the 200 body of the provisioning endpoint.
type CreateUserResponse struct {
	Success bool        `json:"success"`
	User    CreatedUser `json:"user"`
}

// TokenRequest is the body of the development sign-in endpoint.
type TokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries an access token for the development backend.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
