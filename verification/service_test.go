package verification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lcampe/guardian/config"
	"github.com/lcampe/guardian/db"
	"github.com/lcampe/guardian/db/tables"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type fakeOneTimeStore struct {
	entries map[string]*tables.VerificationTokenTable
}

func newFakeOneTimeStore() *fakeOneTimeStore {
	return &fakeOneTimeStore{entries: make(map[string]*tables.VerificationTokenTable)}
}

func (f *fakeOneTimeStore) InsertVerificationToken(
	_ context.Context,
	token string,
	userID uuid.UUID,
	tokenType string,
	expiresAt time.Time,
) (uuid.UUID, error) {
	id := uuid.New()
	f.entries[tokenType+":"+token] = &tables.VerificationTokenTable{
		ID:        id,
		Token:     token,
		UserID:    userID,
		TokenType: tokenType,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	return id, nil
}

func (f *fakeOneTimeStore) ConsumeVerificationToken(
	_ context.Context,
	token string,
	tokenType string,
) (*tables.VerificationTokenTable, error) {
	entry, ok := f.entries[tokenType+":"+token]
	if !ok {
		return nil, db.ErrNotFound
	}
	if time.Now().UTC().After(entry.ExpiresAt) {
		return nil, db.ErrTokenExpired
	}
	if entry.UsedAt != nil {
		return nil, db.ErrTokenUsed
	}
	now := time.Now().UTC()
	entry.UsedAt = &now
	return entry, nil
}

func (f *fakeOneTimeStore) InvalidateVerificationTokens(
	_ context.Context,
	userID uuid.UUID,
	tokenType string,
) error {
	now := time.Now().UTC()
	for _, entry := range f.entries {
		if entry.UserID == userID && entry.TokenType == tokenType && entry.UsedAt == nil {
			entry.UsedAt = &now
		}
	}
	return nil
}

func behaviourConfig() *config.BehaviourConfiguration {
	return &config.BehaviourConfiguration{
		VerificationTokenExpiry: 24 * time.Hour,
		ResetTokenExpiry:        time.Hour,
	}
}

func TestIssueAndConsumeEmailVerification(t *testing.T) {
	store := newFakeOneTimeStore()
	svc := NewService(store, zaptest.NewLogger(t), behaviourConfig())
	userID := uuid.New()

	token, err := svc.IssueEmailVerification(context.Background(), userID)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, len(token), 43, "tokens carry at least 256 bits")

	got, err := svc.ConsumeEmailVerification(context.Background(), token)
	assert.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestConsumeIsSingleUse(t *testing.T) {
	store := newFakeOneTimeStore()
	svc := NewService(store, zaptest.NewLogger(t), behaviourConfig())

	token, err := svc.IssuePasswordReset(context.Background(), uuid.New())
	assert.NoError(t, err)

	_, err = svc.ConsumePasswordReset(context.Background(), token)
	assert.NoError(t, err)

	_, err = svc.ConsumePasswordReset(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenUsed)
}

func TestConsumeUnknownToken(t *testing.T) {
	svc := NewService(newFakeOneTimeStore(), zaptest.NewLogger(t), behaviourConfig())
	_, err := svc.ConsumeEmailVerification(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestConsumeExpiredToken(t *testing.T) {
	store := newFakeOneTimeStore()
	cfg := behaviourConfig()
	cfg.ResetTokenExpiry = -time.Minute
	svc := NewService(store, zaptest.NewLogger(t), cfg)

	token, err := svc.IssuePasswordReset(context.Background(), uuid.New())
	assert.NoError(t, err)

	_, err = svc.ConsumePasswordReset(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestPurposesDoNotCross(t *testing.T) {
	store := newFakeOneTimeStore()
	svc := NewService(store, zaptest.NewLogger(t), behaviourConfig())

	token, err := svc.IssueEmailVerification(context.Background(), uuid.New())
	assert.NoError(t, err)

	_, err = svc.ConsumePasswordReset(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestReissueSupersedesOutstandingToken(t *testing.T) {
	store := newFakeOneTimeStore()
	svc := NewService(store, zaptest.NewLogger(t), behaviourConfig())
	userID := uuid.New()

	first, err := svc.IssueEmailVerification(context.Background(), userID)
	assert.NoError(t, err)
	second, err := svc.IssueEmailVerification(context.Background(), userID)
	assert.NoError(t, err)

	_, err = svc.ConsumeEmailVerification(context.Background(), first)
	assert.ErrorIs(t, err, ErrTokenUsed)

	got, err := svc.ConsumeEmailVerification(context.Background(), second)
	assert.NoError(t, err)
	assert.Equal(t, userID, got)
}
