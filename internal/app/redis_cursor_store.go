/**
 * @description
 * RedisCursorStore persists payment-stream resumption cursors in Redis so a
 * wallet restart resumes from the last processed record instead of replaying
 * the stream head. Keys are scoped per account under a configurable prefix.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9: Redis client.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisCursorStore implements CursorStore on Redis.
type RedisCursorStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCursorStore creates a store under the given key prefix.
func NewRedisCursorStore(client redis.UniversalClient, prefix string) *RedisCursorStore {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "stellawallet:cursor"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	return &RedisCursorStore{
		client: client,
		prefix: trimmedPrefix,
	}
}

// Load returns the persisted cursor for an account, or "" when none exists.
func (s *RedisCursorStore) Load(ctx context.Context, accountID string) (string, error) {
	if s == nil || s.client == nil {
		return "", nil
	}
	value, err := s.client.Get(ctx, s.key(accountID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Save stores the cursor for an account. Cursors have no TTL: a stale cursor
// is always preferable to a replayed stream.
func (s *RedisCursorStore) Save(ctx context.Context, accountID, cursor string) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Set(ctx, s.key(accountID), cursor, 0).Err()
}

func (s *RedisCursorStore) key(accountID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, accountID)
}
