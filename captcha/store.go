package captcha

import (
	"context"
	"errors"
	"time"
)

// ErrChallengeNotFound indicates the challenge id is unknown, expired
// or already consumed
var ErrChallengeNotFound = errors.New("captcha challenge not found")

// Challenge is a pending captcha waiting to be solved
type Challenge struct {
	ID        string
	Answer    string
	ExpiresAt time.Time
}

// Store keeps pending challenges, every challenge is single use:
// Take removes it regardless of whether the answer matches
type Store interface {
	Put(ctx context.Context, challenge *Challenge) error
	Take(ctx context.Context, id string) (*Challenge, error)
}
