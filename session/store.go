package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Store is the Redis-backed session cache. It is the single writer of truth
// for session lifetime: expiry is evaluated lazily on Get and extended only
// through Refresh.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	// refreshWindow is the remaining lifetime below which Refresh actually
	// extends the entry. At or above it, Refresh is a no-op.
	refreshWindow time.Duration
}

func NewStore(redisClient redis.UniversalClient, prefix string, ttl, refreshWindow time.Duration) *Store {
	if prefix == "" {
		prefix = "login_tokens"
	}
	if refreshWindow <= 0 || refreshWindow > ttl {
		refreshWindow = ttl
	}
	return &Store{
		redis:         redisClient,
		prefix:        prefix,
		ttl:           ttl,
		refreshWindow: refreshWindow,
	}
}

// TTL returns the configured full session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

// Create persists a new session entry under its full TTL.
func (s *Store) Create(ctx context.Context, sess *Session) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(sess.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get retrieves a session by ID. An expired entry reads as absent (redis.Nil)
// and is evicted.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.SessionID = sessionID

	if time.Now().Unix() >= sess.ExpiresAt {
		if err := s.Invalidate(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, redis.Nil
	}

	return sess, nil
}

// Refresh extends the session when its remaining lifetime has dropped below
// the refresh window, resetting expiry to now + TTL. The update is a
// WATCH-guarded compare-and-set, and expiry is monotonic: a concurrent
// refresh that already pushed it further wins. Returns whether this call
// extended the entry; sess is updated in place when it did.
func (s *Store) Refresh(ctx context.Context, sess *Session) (bool, error) {
	now := time.Now()
	remaining := time.Unix(sess.ExpiresAt, 0).Sub(now)
	if remaining >= s.refreshWindow {
		return false, nil
	}

	const maxRetries = 4
	key := s.key(sess.SessionID)

	for i := 0; i < maxRetries; i++ {
		var refreshed *Session
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			stored, err := Decode(data)
			if err != nil {
				return err
			}
			stored.SessionID = sess.SessionID

			now := time.Now()
			if now.Unix() >= stored.ExpiresAt {
				return redis.Nil
			}

			newExpiry := now.Add(s.ttl).Unix()
			if newExpiry <= stored.ExpiresAt {
				refreshed = stored
				return nil
			}
			stored.LastAccessAt = now.Unix()
			stored.ExpiresAt = newExpiry

			updated, err := Encode(stored)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, s.ttl)
				return nil
			})
			if err != nil {
				return err
			}
			refreshed = stored
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return false, err
			}
			return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		*sess = *refreshed
		return true, nil
	}

	return false, nil
}

// Update rewrites the session blob preserving its remaining TTL. Used when
// identity metadata changes mid-session (e.g. a new client IP) without
// counting as an access for expiry purposes.
func (s *Store) Update(ctx context.Context, sess *Session) error {
	key := s.key(sess.SessionID)

	pttl, err := s.redis.PTTL(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if pttl <= 0 {
		return redis.Nil
	}

	data, err := Encode(sess)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, key, data, pttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Invalidate removes the entry. Deleting an absent session is not an error.
func (s *Store) Invalidate(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
