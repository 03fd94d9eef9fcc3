// Package cache keeps unlock grants in Redis so replays skip the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadledger_backend/internal/unlock"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "unlock:grant:"

type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// New returns a cache backed by client. Entries expire after ttl; grants are
// permanent so expiry only bounds memory.
func New(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func key(accountID, leadID uuid.UUID) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, accountID, leadID)
}

func (c *RedisCache) Get(ctx context.Context, accountID, leadID uuid.UUID) (unlock.Grant, bool, error) {
	raw, err := c.client.Get(ctx, key(accountID, leadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return unlock.Grant{}, false, nil
	}
	if err != nil {
		return unlock.Grant{}, false, err
	}

	var g unlock.Grant
	if err := json.Unmarshal(raw, &g); err != nil {
		// Corrupt entries are treated as misses and overwritten on the next Put.
		return unlock.Grant{}, false, nil
	}
	return g, true, nil
}

func (c *RedisCache) Put(ctx context.Context, g unlock.Grant) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(g.AccountID, g.LeadID), raw, c.ttl).Err()
}

var _ unlock.GrantCache = (*RedisCache)(nil)
