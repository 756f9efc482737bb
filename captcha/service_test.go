package captcha

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/lcampe/guardian/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func testConfig() *config.CaptchaConfiguration {
	return &config.CaptchaConfiguration{
		Store:  "memory",
		TTL:    5 * time.Minute,
		Length: 6,
	}
}

func TestGenerateAndVerify(t *testing.T) {
	svc := NewService(zaptest.NewLogger(t), testConfig(), NewMemoryStore())
	challenge, err := svc.Generate(context.Background())
	assert.NoError(t, err)
	assert.Len(t, challenge.Answer, 6)

	ok, err := svc.Verify(context.Background(), challenge.ID, challenge.Answer)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyIsCaseInsensitive(t *testing.T) {
	svc := NewService(zaptest.NewLogger(t), testConfig(), NewMemoryStore())
	challenge, err := svc.Generate(context.Background())
	assert.NoError(t, err)

	ok, err := svc.Verify(
		context.Background(),
		challenge.ID,
		"  "+challenge.Answer+"  ",
	)
	assert.NoError(t, err)
	assert.False(t, ok, "surrounding whitespace is not forgiven")

	challenge, err = svc.Generate(context.Background())
	assert.NoError(t, err)
	lowered, err := svc.Verify(
		context.Background(),
		challenge.ID,
		toLower(challenge.Answer),
	)
	assert.NoError(t, err)
	assert.True(t, lowered)
}

func toLower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func TestChallengeIsSingleUse(t *testing.T) {
	svc := NewService(zaptest.NewLogger(t), testConfig(), NewMemoryStore())
	challenge, err := svc.Generate(context.Background())
	assert.NoError(t, err)

	ok, err := svc.Verify(context.Background(), challenge.ID, "WRONG")
	assert.NoError(t, err)
	assert.False(t, ok)

	// wrong answer burned it, the right one no longer counts
	ok, err = svc.Verify(context.Background(), challenge.ID, challenge.Answer)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestUnknownChallengeFails(t *testing.T) {
	svc := NewService(zaptest.NewLogger(t), testConfig(), NewMemoryStore())
	ok, err := svc.Verify(context.Background(), "no-such-id", "ABC123")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestExpiredChallengeFails(t *testing.T) {
	cfg := testConfig()
	cfg.TTL = -time.Minute
	svc := NewService(zaptest.NewLogger(t), cfg, NewMemoryStore())
	challenge, err := svc.Generate(context.Background())
	assert.NoError(t, err)

	ok, err := svc.Verify(context.Background(), challenge.ID, challenge.Answer)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreRoundtrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	svc := NewService(zaptest.NewLogger(t), testConfig(), NewRedisStore(client))
	challenge, err := svc.Generate(context.Background())
	assert.NoError(t, err)

	ok, err := svc.Verify(context.Background(), challenge.ID, challenge.Answer)
	assert.NoError(t, err)
	assert.True(t, ok)

	// consumed, second try fails
	ok, err = svc.Verify(context.Background(), challenge.ID, challenge.Answer)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	svc := NewService(zaptest.NewLogger(t), testConfig(), NewRedisStore(client))
	challenge, err := svc.Generate(context.Background())
	assert.NoError(t, err)

	mr.FastForward(6 * time.Minute)

	ok, err := svc.Verify(context.Background(), challenge.ID, challenge.Answer)
	assert.NoError(t, err)
	assert.False(t, ok)
}
