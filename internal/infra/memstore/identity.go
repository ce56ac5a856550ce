package memstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/boddenberg/project-portal-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ============================================================
// IdentityProvider implementation
// ============================================================

const bcryptCost = 10

type user struct {
	id           string
	email        string
	passwordHash []byte
	metadata     map[string]any
}

// accessClaims mirrors the shape of hosted-auth access tokens.
type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (s *Store) CreateUser(ctx context.Context, params domain.CreateUserParams) (*domain.AuthUser, error) {
	_, span := tracer.Start(ctx, "Memstore.CreateUser")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(params.Email))
	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.email == email {
			return nil, &domain.ErrConflict{Message: "A user with this email address has already been registered"}
		}
	}
	u := user{id: uuid.NewString(), email: email, passwordHash: hash, metadata: params.Metadata}
	s.users[u.id] = u

	s.logger.Debug("memstore: user created", zap.String("user_id", u.id))
	return &domain.AuthUser{ID: u.id, Email: u.email, UserMetadata: u.metadata}, nil
}

// DeleteUser removes the identity and, like the hosted cascade, its profile.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, userID)
	for id, p := range s.profiles {
		if p.UserID == userID {
			delete(s.profiles, id)
		}
	}
	return nil
}

func (s *Store) VerifyToken(ctx context.Context, token string) (*domain.AuthUser, error) {
	_, span := tracer.Start(ctx, "Memstore.VerifyToken")
	defer span.End()

	parsed, err := jwt.ParseWithClaims(token, &accessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}
	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}

	s.mu.RLock()
	u, ok := s.users[claims.Subject]
	s.mu.RUnlock()
	if !ok {
		return nil, &domain.ErrUnauthorized{Message: "unknown user"}
	}
	return &domain.AuthUser{ID: u.id, Email: u.email, UserMetadata: u.metadata}, nil
}

// SignIn checks a password and issues an access token.
func (s *Store) SignIn(ctx context.Context, email, password string) (*domain.TokenResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.RLock()
	var found *user
	for _, u := range s.users {
		if u.email == email {
			u := u
			found = &u
			break
		}
	}
	s.mu.RUnlock()

	if found == nil || bcrypt.CompareHashAndPassword(found.passwordHash, []byte(password)) != nil {
		s.logger.Warn("memstore: sign-in rejected", zap.String("email", email))
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}

	token, err := s.signAccessToken(found.id, found.email)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &domain.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.accessTTL.Seconds()),
	}, nil
}

func (s *Store) signAccessToken(userID, email string) (string, error) {
	now := s.now()
	claims := accessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    "project-portal",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// IssueToken signs a token for an existing user without a password check.
func (s *Store) IssueToken(userID string) (string, error) {
	s.mu.RLock()
	u, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return "", &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return s.signAccessToken(u.id, u.email)
}
