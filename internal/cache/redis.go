package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/actuallystonmai/song-recommendation-service/internal/domain"
	"github.com/actuallystonmai/song-recommendation-service/internal/session"
)

const (
	defaultTTL        = 30 * time.Minute
	defaultMaxRetries = 50
)

// SessionStore keeps rating sessions in Redis so several server processes
// can share them. Updates to one session are serialized with WATCH/MULTI.
type SessionStore struct {
	client     *redis.Client
	ttl        time.Duration
	maxRetries int
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &SessionStore{client: client, ttl: ttl, maxRetries: defaultMaxRetries}
}

func buildKey(token string) string {
	return fmt.Sprintf("songrec:session:%s", token)
}

// Store a session, resetting its TTL
func (c *SessionStore) Put(ctx context.Context, s *session.Session) error {
	val, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := c.client.Set(ctx, buildKey(s.Token), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session in cache: %w", err)
	}
	return nil
}

// Get a session from cache
func (c *SessionStore) Get(ctx context.Context, token string) (*session.Session, error) {
	val, err := c.client.Get(ctx, buildKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrUnknownSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session from cache: %w", err)
	}
	return decode(token, val)
}

// Update runs fn on the stored session inside an optimistic transaction and
// retries when another writer touched the key in between.
func (c *SessionStore) Update(ctx context.Context, token string, fn func(*session.Session) error) error {
	key := buildKey(token)
	txf := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrUnknownSession
		}
		if err != nil {
			return fmt.Errorf("failed to get session from cache: %w", err)
		}
		s, err := decode(token, val)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		out, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, c.ttl)
			return nil
		})
		return err
	}

	for range c.maxRetries {
		err := c.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update session %s: gave up after %d conflicting writes", token, c.maxRetries)
}

// Delete a session
func (c *SessionStore) Delete(ctx context.Context, token string) error {
	if err := c.client.Del(ctx, buildKey(token)).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", token, err)
	}
	return nil
}

// Ping connectivity
func (c *SessionStore) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func decode(token string, val []byte) (*session.Session, error) {
	var s session.Session
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", token, err)
	}
	return &s, nil
}

var _ session.Store = (*SessionStore)(nil)
