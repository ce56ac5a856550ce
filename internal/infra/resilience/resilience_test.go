package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 3, InitialBackoff: 10 * time.Millisecond}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, callCount)
}

func TestRetryWithBackoff_RetriesOnFailure(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 3, InitialBackoff: 10 * time.Millisecond}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, callCount)
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: 10 * time.Millisecond}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return errors.New("persistent error")
	})

	require.Error(t, err)
	assert.Equal(t, 3, callCount)
}

func TestRetryWithBackoff_NoRetriesByDefault(t *testing.T) {
	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), resilience.Config{}, func() error {
		callCount++
		return errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, 1, callCount)
}

func TestRetryWithBackoff_ZeroBackoff(t *testing.T) {
	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), resilience.Config{MaxRetries: 2}, func() error {
		callCount++
		return errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, 3, callCount)
}

func TestRetryWithBackoff_RespectsContext(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 5, InitialBackoff: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := resilience.RetryWithBackoff(ctx, cfg, func() error {
		return errors.New("error")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecute_OpenBreakerMapsToCircuitOpen(t *testing.T) {
	cb := resilience.NewCircuitBreaker("test-store")

	for i := 0; i < 5; i++ {
		_ = resilience.Execute(cb, func() error { return errors.New("down") })
	}

	err := resilience.Execute(cb, func() error { return nil })
	var open *domain.ErrCircuitOpen
	require.ErrorAs(t, err, &open)
	assert.Equal(t, "test-store", open.Service)
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	bh := resilience.NewBulkhead(2)

	require.NoError(t, bh.Acquire(context.Background()))
	require.NoError(t, bh.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, bh.Acquire(ctx), "expected timeout on third acquire")

	bh.Release()
	assert.NoError(t, bh.Acquire(context.Background()))
}

func TestBulkhead_NilIsUnlimited(t *testing.T) {
	bh := resilience.NewBulkhead(0)
	assert.Nil(t, bh)
	assert.NoError(t, bh.Acquire(context.Background()))
	bh.Release()
}

func TestRetryWithBackoff_PermanentStopsEarly(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 5, InitialBackoff: time.Millisecond}
	cause := errors.New("bad request")

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return resilience.Permanent(cause)
	})

	assert.Same(t, cause, err)
	assert.Equal(t, 1, callCount)
}

func TestRetryWithBackoff_OpenBreakerStopsEarly(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 5, InitialBackoff: time.Millisecond}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return &domain.ErrCircuitOpen{Service: "supabase"}
	})

	var open *domain.ErrCircuitOpen
	assert.ErrorAs(t, err, &open)
	assert.Equal(t, 1, callCount)
}

func TestPermanent_NilStaysNil(t *testing.T) {
	assert.NoError(t, resilience.Permanent(nil))
}

func TestNewCircuitBreaker_NotifiesListeners(t *testing.T) {
	var transitions []gobreaker.State
	cb := resilience.NewCircuitBreaker("listener-test", func(_ string, _, to gobreaker.State) {
		transitions = append(transitions, to)
	})

	for i := 0; i < 5; i++ {
		_ = resilience.Execute(cb, func() error { return errors.New("boom") })
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)
}
