package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lcampe/guardian/config"
	"github.com/lcampe/guardian/db"
	"github.com/lcampe/guardian/events"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type storedToken struct {
	jti       string
	userID    uuid.UUID
	tokenType string
	revoked   bool
	expiresAt time.Time
}

type fakeTokenStore struct {
	tokens map[string]*storedToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]*storedToken)}
}

func (f *fakeTokenStore) InsertSessionToken(
	_ context.Context,
	jti string,
	userID uuid.UUID,
	tokenType string,
	_ *string,
	_ *string,
	_ time.Time,
	expiresAt time.Time,
) error {
	f.tokens[jti] = &storedToken{
		jti:       jti,
		userID:    userID,
		tokenType: tokenType,
		expiresAt: expiresAt,
	}
	return nil
}

func (f *fakeTokenStore) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	if entry, ok := f.tokens[jti]; ok {
		return entry.revoked, nil
	}
	return false, nil
}

func (f *fakeTokenStore) RotateSessionToken(
	_ context.Context,
	oldJTI string,
	newJTI string,
	userID uuid.UUID,
	_ *string,
	_ *string,
	_ time.Time,
	expiresAt time.Time,
) error {
	old, ok := f.tokens[oldJTI]
	if !ok || old.revoked {
		return db.ErrTokenRevoked
	}
	old.revoked = true
	f.tokens[newJTI] = &storedToken{
		jti:       newJTI,
		userID:    userID,
		tokenType: TypeRefresh,
		expiresAt: expiresAt,
	}
	return nil
}

func (f *fakeTokenStore) RevokeToken(_ context.Context, jti string) error {
	entry, ok := f.tokens[jti]
	if !ok {
		return db.ErrNotFound
	}
	if entry.revoked {
		return db.ErrTokenRevoked
	}
	entry.revoked = true
	return nil
}

func (f *fakeTokenStore) RevokeAllForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	for _, entry := range f.tokens {
		if entry.userID == userID && !entry.revoked {
			entry.revoked = true
			count++
		}
	}
	return count, nil
}

func (f *fakeTokenStore) BlacklistAccessToken(
	_ context.Context,
	jti string,
	userID uuid.UUID,
	_ time.Time,
	expiresAt time.Time,
) error {
	f.tokens[jti] = &storedToken{
		jti:       jti,
		userID:    userID,
		tokenType: TypeAccess,
		revoked:   true,
		expiresAt: expiresAt,
	}
	return nil
}

type nopDispatcher struct {
	dispatched []events.Event
}

func (n *nopDispatcher) Dispatch(_ context.Context, ev events.Event) {
	n.dispatched = append(n.dispatched, ev)
}

func jwtConfig() *config.JWTConfiguration {
	return &config.JWTConfiguration{
		Algorithm:          "HS256",
		Issuer:             "guardian.test",
		Audience:           []string{"guardian.test"},
		Expiry:             15 * time.Minute,
		HMACSigningKey:     "a-very-long-test-secret-that-is-not-weak",
		RefreshTokenExpiry: 24 * time.Hour,
	}
}

func setup(t *testing.T) (*TokenIssuer, *TokenVerifier, *TokenRotator, *fakeTokenStore, *nopDispatcher) {
	t.Helper()
	store := newFakeTokenStore()
	log := zaptest.NewLogger(t)
	issuer := NewIssuer(log, jwtConfig(), store)
	verifier := NewTokenVerifier(log, issuer, store)
	dispatcher := &nopDispatcher{}
	rotator := NewRotator(store, issuer, verifier, dispatcher, log)
	return issuer, verifier, rotator, store, dispatcher
}

func TestIssueAndValidateAccessToken(t *testing.T) {
	issuer, verifier, _, _, _ := setup(t)
	userID := uuid.New()

	pair, err := issuer.IssuePair(context.Background(), userID, "a@b.c", nil)
	assert.NoError(t, err)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.Equal(t, int((15 * time.Minute).Seconds()), pair.ExpiresIn)

	claims, err := verifier.ValidateAccessToken(context.Background(), pair.AccessToken)
	assert.NoError(t, err)
	assert.Equal(t, userID, claims.UserID())
	assert.Equal(t, "a@b.c", claims.Email())
	assert.Equal(t, TypeAccess, claims.Type())
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	issuer, verifier, _, _, _ := setup(t)

	pair, err := issuer.IssuePair(context.Background(), uuid.New(), "a@b.c", nil)
	assert.NoError(t, err)

	_, err = verifier.ValidateAccessToken(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = verifier.ParseRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestGarbageTokenIsRejected(t *testing.T) {
	_, verifier, _, _, _ := setup(t)
	_, err := verifier.ValidateAccessToken(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRotationIssuesNewPairAndRevokesOld(t *testing.T) {
	issuer, _, rotator, store, _ := setup(t)
	userID := uuid.New()

	pair, err := issuer.IssuePair(context.Background(), userID, "a@b.c", nil)
	assert.NoError(t, err)

	rotated, err := rotator.Rotate(context.Background(), pair.RefreshToken, nil, "a@b.c")
	assert.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, rotated.AccessToken)

	// one revoked old, one live new
	live := 0
	for _, entry := range store.tokens {
		if entry.tokenType == TypeRefresh && !entry.revoked {
			live++
		}
	}
	assert.Equal(t, 1, live)
}

func TestReplayedRotationRevokesAllSessions(t *testing.T) {
	issuer, _, rotator, store, dispatcher := setup(t)
	userID := uuid.New()

	pair, err := issuer.IssuePair(context.Background(), userID, "a@b.c", nil)
	assert.NoError(t, err)

	_, err = rotator.Rotate(context.Background(), pair.RefreshToken, nil, "a@b.c")
	assert.NoError(t, err)

	// replaying the already rotated token fails and kills everything
	_, err = rotator.Rotate(context.Background(), pair.RefreshToken, nil, "a@b.c")
	assert.ErrorIs(t, err, ErrTokenRevoked)
	assert.NotEmpty(t, dispatcher.dispatched)

	for _, entry := range store.tokens {
		assert.True(t, entry.revoked, "session %s survived the replay response", entry.jti)
	}
}

func TestRevokedAccessTokenFailsValidation(t *testing.T) {
	issuer, verifier, rotator, _, _ := setup(t)
	userID := uuid.New()

	pair, err := issuer.IssuePair(context.Background(), userID, "a@b.c", nil)
	assert.NoError(t, err)

	claims, err := verifier.ValidateAccessToken(context.Background(), pair.AccessToken)
	assert.NoError(t, err)

	err = rotator.BlacklistAccessToken(context.Background(), claims)
	assert.NoError(t, err)

	_, err = verifier.ValidateAccessToken(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	issuer, _, rotator, _, _ := setup(t)
	userID := uuid.New()

	pair, err := issuer.IssuePair(context.Background(), userID, "a@b.c", nil)
	assert.NoError(t, err)

	err = rotator.RevokeRefreshToken(context.Background(), pair.RefreshToken)
	assert.NoError(t, err)

	err = rotator.RevokeRefreshToken(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = rotator.Rotate(context.Background(), pair.RefreshToken, nil, "a@b.c")
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestPublicJWKSetIsEmptyForHMAC(t *testing.T) {
	issuer, _, _, _, _ := setup(t)
	set, err := issuer.AsPublicOnlyJWKSet()
	assert.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}
