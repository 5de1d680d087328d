package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// captchaStore holds short-lived single-use captcha codes in Redis. Consume
// is a GETDEL, so concurrent consumers of one key get exactly one winner and
// an entry can never be read twice, match or no match.
type captchaStore struct {
	redis  redis.UniversalClient
	prefix string
}

func newCaptchaStore(redisClient redis.UniversalClient, prefix string) *captchaStore {
	if prefix == "" {
		prefix = "captcha_codes"
	}
	return &captchaStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *captchaStore) key(id string) string {
	return s.prefix + ":" + id
}

func (s *captchaStore) Put(ctx context.Context, id, code string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(id), code, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Consume atomically reads and deletes the code for id. Absent entries
// surface as redis.Nil; there is no distinction between never-stored,
// expired, and already-consumed.
func (s *captchaStore) Consume(ctx context.Context, id string) (string, error) {
	code, err := s.redis.GetDel(ctx, s.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return code, nil
}
