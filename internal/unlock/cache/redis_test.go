package cache

import (
	"context"
	"testing"
	"time"

	"leadledger_backend/internal/leads/domain"
	"leadledger_backend/internal/unlock"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, time.Hour), mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	g := unlock.Grant{
		ID:           uuid.New(),
		AccountID:    uuid.New(),
		LeadID:       uuid.New(),
		CreditsSpent: 17,
		UnlockedAt:   time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		Snapshot:     domain.LeadDetail{ContactEmail: "owner@example.com", RelevanceScore: 17},
	}

	_, ok, err := c.Get(ctx, g.AccountID, g.LeadID)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Put(ctx, g))

	got, ok, err := c.Get(ctx, g.AccountID, g.LeadID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, g.CreditsSpent, got.CreditsSpent)
	require.Equal(t, "owner@example.com", got.Snapshot.ContactEmail)
	require.True(t, g.UnlockedAt.Equal(got.UnlockedAt))
}

func TestRedisCacheExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	g := unlock.Grant{AccountID: uuid.New(), LeadID: uuid.New(), CreditsSpent: 12}

	require.NoError(t, c.Put(ctx, g))
	mr.FastForward(2 * time.Hour)

	_, ok, err := c.Get(ctx, g.AccountID, g.LeadID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCacheCorruptEntryIsMiss(t *testing.T) {
	c, mr := newTestCache(t)
	accountID, leadID := uuid.New(), uuid.New()
	require.NoError(t, mr.Set(key(accountID, leadID), "{not json"))

	_, ok, err := c.Get(context.Background(), accountID, leadID)
	require.NoError(t, err)
	require.False(t, ok)
}
