package guard

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/infra/cache"
	"github.com/boddenberg/project-portal-go/internal/infra/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingIDP struct {
	*memstore.Store
	verifies atomic.Int32
}

func (c *countingIDP) VerifyToken(ctx context.Context, token string) (*domain.AuthUser, error) {
	c.verifies.Add(1)
	return c.Store.VerifyToken(ctx, token)
}

func TestResolver_TokenRecordEndsAtExpiry(t *testing.T) {
	store := memstore.New("secret", time.Hour, zap.NewNop())
	profiles, err := store.Seed(context.Background(),
		memstore.SeedUser{Email: "team@x.io", Password: "pw", FullName: "Tim", Role: domain.RoleTeamMember})
	require.NoError(t, err)
	token, err := store.IssueToken(profiles[0].UserID)
	require.NoError(t, err)

	idCache := cache.New[CacheEntry](24 * time.Hour)
	t.Cleanup(idCache.Close)
	idp := &countingIDP{Store: store}
	r := NewResolver(idp, store, idCache, nil, zap.NewNop())

	_, err = r.Resolve(context.Background(), token)
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int32(1), idp.verifies.Load(), "second call served from cache")

	entry, ok := idCache.Get(tokenKey(token))
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), entry.ExpiresAt, time.Minute)

	r.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, _ = r.Resolve(context.Background(), token)
	assert.Equal(t, int32(2), idp.verifies.Load(), "expired record is verified again")
}

func TestTokenExpiry_OpaqueTokenHasNone(t *testing.T) {
	assert.True(t, tokenExpiry("not-a-jwt").IsZero())
}
