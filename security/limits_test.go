package security

import (
	"context"
	"testing"
	"time"

	"github.com/lcampe/guardian/config"
	"github.com/lcampe/guardian/db"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type fakeLimitStore struct {
	counters map[string]int
}

func (f *fakeLimitStore) BumpVerificationCounter(
	_ context.Context,
	limitType string,
	identifier string,
	max int,
	_ time.Duration,
) error {
	key := limitType + ":" + identifier
	if f.counters[key] >= max {
		return db.ErrLimitExceeded
	}
	f.counters[key]++
	return nil
}

func limitsConfig() *config.LimitsConfiguration {
	return &config.LimitsConfiguration{
		VerificationPerEmail: 1,
		VerificationPerIP:    5,
		VerificationGlobal:   100,
		VerificationWindow:   time.Hour,
	}
}

func TestMailLimiterPerEmail(t *testing.T) {
	store := &fakeLimitStore{counters: make(map[string]int)}
	limiter := NewMailLimiter(store, zaptest.NewLogger(t), limitsConfig())

	assert.NoError(t, limiter.Allow(context.Background(), "a@b.c", "10.0.0.1"))
	err := limiter.Allow(context.Background(), "a@b.c", "10.0.0.1")
	assert.ErrorIs(t, err, db.ErrLimitExceeded)

	// a different address from the same origin still passes
	assert.NoError(t, limiter.Allow(context.Background(), "other@b.c", "10.0.0.1"))
}

func TestMailLimiterPerIP(t *testing.T) {
	store := &fakeLimitStore{counters: make(map[string]int)}
	limiter := NewMailLimiter(store, zaptest.NewLogger(t), limitsConfig())

	for i := 0; i < 5; i++ {
		email := string(rune('a'+i)) + "@b.c"
		assert.NoError(t, limiter.Allow(context.Background(), email, "10.0.0.1"))
	}
	err := limiter.Allow(context.Background(), "f@b.c", "10.0.0.1")
	assert.ErrorIs(t, err, db.ErrLimitExceeded)
}

func TestMailLimiterGlobal(t *testing.T) {
	store := &fakeLimitStore{counters: make(map[string]int)}
	store.counters["global:"+globalLimitIdentifier] = 100
	limiter := NewMailLimiter(store, zaptest.NewLogger(t), limitsConfig())

	err := limiter.Allow(context.Background(), "a@b.c", "10.0.0.1")
	assert.ErrorIs(t, err, db.ErrLimitExceeded)
}
