package captcha

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const challengeKeyPrefix = "captcha:"

// RedisStore keeps challenges in redis so multiple instances share
// the same pool, expiry is delegated to the key ttl
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore returns a challenge store backed by the given client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, challenge *Challenge) error {
	ttl := time.Until(challenge.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, challengeKeyPrefix+challenge.ID, challenge.Answer, ttl).Err()
}

func (s *RedisStore) Take(ctx context.Context, id string) (*Challenge, error) {
	answer, err := s.client.GetDel(ctx, challengeKeyPrefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	return &Challenge{ID: id, Answer: answer}, nil
}
