package actor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "audittrail:session:"

// RedisSessionSource keeps session-id to actor mappings in redis with a TTL,
// so the audit layer can attribute writes triggered through session-based
// callers without a user-store round trip per request.
type RedisSessionSource struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionSource(client *redis.Client, ttl time.Duration) *RedisSessionSource {
	return &RedisSessionSource{client: client, ttl: ttl}
}

// Put stores or refreshes the actor for a session id.
func (s *RedisSessionSource) Put(ctx context.Context, sessionID string, a Actor) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal actor: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+sessionID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store session actor: %w", err)
	}
	return nil
}

// Lookup implements SessionLookup. An expired or unknown session is not an
// error; it reports found=false.
func (s *RedisSessionSource) Lookup(ctx context.Context, sessionID string) (Actor, bool, error) {
	payload, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Actor{}, false, nil
	}
	if err != nil {
		return Actor{}, false, fmt.Errorf("load session actor: %w", err)
	}
	var a Actor
	if err := json.Unmarshal(payload, &a); err != nil {
		return Actor{}, false, fmt.Errorf("decode session actor: %w", err)
	}
	return a, true, nil
}
