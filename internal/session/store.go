package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ErrNotFound indicates the requested session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// Store persists editing sessions between requests.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps sessions as JSON blobs with a sliding TTL.
type RedisStore struct {
	R      *redis.Client
	TTL    time.Duration
	Prefix string
}

func (rs RedisStore) ttl() time.Duration {
	if rs.TTL <= 0 {
		return 4 * time.Hour
	}
	return rs.TTL
}

func (rs RedisStore) key(id string) string {
	prefix := rs.Prefix
	if prefix == "" {
		prefix = "editsession:"
	}
	return prefix + id
}

// Get loads and decodes a session.
func (rs RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	if rs.R == nil {
		return nil, errors.New("session store not configured")
	}
	raw, err := rs.R.Get(ctx, rs.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

// Save writes the session back, refreshing its TTL.
func (rs RedisStore) Save(ctx context.Context, s *Session) error {
	if rs.R == nil {
		return errors.New("session store not configured")
	}
	if s == nil || s.ID == "" {
		return errors.New("session id is required")
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := rs.R.Set(ctx, rs.key(s.ID), raw, rs.ttl()).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Delete removes the session. Deleting an absent session is not an error.
func (rs RedisStore) Delete(ctx context.Context, id string) error {
	if rs.R == nil {
		return errors.New("session store not configured")
	}
	return rs.R.Del(ctx, rs.key(id)).Err()
}
