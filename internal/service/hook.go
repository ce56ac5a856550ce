package service

import (
	"context"
	"errors"
	"sync"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/guard"
	"github.com/boddenberg/project-portal-go/internal/infra/observability"
	"github.com/boddenberg/project-portal-go/internal/port"

	"go.uber.org/zap"
)

// IdentityCache forgets resolved identities whose profile changed.
type IdentityCache interface {
	ForgetUser(userID string)
}

// HookDeps are the collaborators shared by every hook.
type HookDeps struct {
	Store     port.Store
	Dashboard *DashboardService
	Notifier  Notifier
	Metrics   *observability.Metrics
	Logger    *zap.Logger
	// Identities may be nil when no identity cache is in use.
	Identities IdentityCache
}

// state is the observable part of a hook: the held collection, the loading
// flag and the last failure.
type state[T any] struct {
	mu      sync.RWMutex
	items   []T
	loaded  bool
	loading bool
	errMsg  string
	lastErr error
}

func (s *state[T]) begin() {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
}

func (s *state[T]) succeed(items []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if items != nil {
		s.items = items
		s.loaded = true
	}
	s.loading = false
	s.errMsg = ""
	s.lastErr = nil
}

func (s *state[T]) fail(msg string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.errMsg = msg
	s.lastErr = err
}

func (s *state[T]) snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]T(nil), s.items...)
}

func (s *state[T]) isLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Items returns a copy of the held collection.
func (s *state[T]) Items() []T { return s.snapshot() }

// Loading reports whether an operation is in flight.
func (s *state[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// ErrorMessage is the user-facing message of the last failure, or "".
func (s *state[T]) ErrorMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// LastError is the last failure, kept for callers that need to classify it.
func (s *state[T]) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// base holds the injected caller and the reporting plumbing.
type base struct {
	name     string
	caller   *guard.Identity
	notifier Notifier
	logger   *zap.Logger
}

func newBase(name string, deps HookDeps, caller *guard.Identity) base {
	n := deps.Notifier
	if n == nil {
		n = NewRecorder(nil)
	}
	return base{name: name, caller: caller, notifier: n, logger: deps.Logger}
}

// report logs the failure, raises a notification and returns the message to store.
func (b base) report(ctx context.Context, action string, err error) string {
	msg := userMessage(action, err)
	b.logger.Error(b.name+": "+action+" failed",
		zap.String("caller", callerID(b.caller)),
		zap.Error(err),
	)
	b.notifier.Notify(ctx, Notification{Level: LevelError, Title: "Error", Message: msg})
	return msg
}

func (b base) success(ctx context.Context, msg string) {
	b.notifier.Notify(ctx, Notification{Level: LevelSuccess, Title: "Success", Message: msg})
}

// userMessage keeps caller-facing errors verbatim and hides infrastructure detail.
func userMessage(action string, err error) string {
	var (
		validation   *domain.ErrValidation
		notFound     *domain.ErrNotFound
		forbidden    *domain.ErrForbidden
		unauthorized *domain.ErrUnauthorized
		conflict     *domain.ErrConflict
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &notFound), errors.As(err, &forbidden),
		errors.As(err, &unauthorized), errors.As(err, &conflict):
		return err.Error()
	}
	return "Failed to " + action
}

func callerID(c *guard.Identity) string {
	if c == nil {
		return ""
	}
	return c.UserID
}
