package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lcampe/guardian/db"
	"github.com/lcampe/guardian/events"
	"github.com/lcampe/guardian/events/event"
	"go.uber.org/zap"
)

// SessionTokenUpdater mutates persisted session tokens,
// implemented by db.DataStore
type SessionTokenUpdater interface {
	RotateSessionToken(
		ctx context.Context,
		oldJTI string,
		newJTI string,
		userID uuid.UUID,
		token *string,
		deviceInfo *string,
		issuedAt time.Time,
		expiresAt time.Time,
	) error
	RevokeToken(ctx context.Context, jti string) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	BlacklistAccessToken(
		ctx context.Context,
		jti string,
		userID uuid.UUID,
		issuedAt time.Time,
		expiresAt time.Time,
	) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, ev events.Event)
}

// TokenRotator exchanges refresh tokens and handles revocations,
// a replayed rotation nukes every session of the affected user
type TokenRotator struct {
	updater    SessionTokenUpdater
	issuer     *TokenIssuer
	verifier   *TokenVerifier
	dispatcher Dispatcher
	log        *zap.Logger
}

func NewRotator(
	updater SessionTokenUpdater,
	issuer *TokenIssuer,
	verifier *TokenVerifier,
	dispatcher Dispatcher,
	log *zap.Logger) *TokenRotator {
	return &TokenRotator{
		updater:    updater,
		issuer:     issuer,
		verifier:   verifier,
		dispatcher: dispatcher,
		log:        log,
	}
}

// Rotate exchanges a refresh token for a fresh pair. The old token is
// revoked and the new one persisted atomically, so a replayed token
// loses the race and triggers a full revocation of the user's sessions.
func (t *TokenRotator) Rotate(
	ctx context.Context,
	refreshToken string,
	deviceInfo *string,
	email string,
) (*TokenPair, error) {
	claims, err := t.verifier.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	pair, err := t.issuer.CreatePair(claims.UserID(), email)
	if err != nil {
		return nil, err
	}
	err = t.updater.RotateSessionToken(
		ctx,
		claims.JTI(),
		pair.RefreshJTI,
		claims.UserID(),
		&pair.RefreshToken,
		deviceInfo,
		pair.IssuedAt,
		pair.RefreshExpiry,
	)
	if err != nil {
		if errors.Is(err, db.ErrTokenRevoked) {
			t.log.Warn("refresh token replay detected, revoking all user sessions",
				zap.String("jti", claims.JTI()))
			t.dispatcher.Dispatch(ctx, &event.TokenReplayDetected{
				UserID: claims.UserID(),
				JTI:    claims.JTI(),
			})
			if _, revErr := t.updater.RevokeAllForUser(ctx, claims.UserID()); revErr != nil {
				t.log.Error("could not revoke user sessions", zap.Error(revErr))
			}
			return nil, ErrTokenRevoked
		}
		return nil, err
	}
	return &TokenPair{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int(t.issuer.Expiry().Seconds()),
	}, nil
}

// RevokeRefreshToken invalidates a refresh token on logout
func (t *TokenRotator) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	claims, err := t.verifier.ParseRefreshToken(refreshToken)
	if err != nil {
		return err
	}
	err = t.updater.RevokeToken(ctx, claims.JTI())
	if err != nil {
		if errors.Is(err, db.ErrTokenRevoked) {
			return ErrTokenRevoked
		}
		if errors.Is(err, db.ErrNotFound) {
			return ErrTokenNotFound
		}
		return err
	}
	t.dispatcher.Dispatch(ctx, &event.TokenRevoked{
		UserID:    claims.UserID(),
		JTI:       claims.JTI(),
		TokenType: TypeRefresh,
	})
	return nil
}

// BlacklistAccessToken voids a still valid access token ahead of its
// expiry, used on logout and password change
func (t *TokenRotator) BlacklistAccessToken(
	ctx context.Context,
	claims *SessionClaims,
) error {
	err := t.updater.BlacklistAccessToken(
		ctx,
		claims.JTI(),
		claims.UserID(),
		claims.IssuedAt(),
		claims.Expiration(),
	)
	if err != nil {
		return err
	}
	t.dispatcher.Dispatch(ctx, &event.TokenRevoked{
		UserID:    claims.UserID(),
		JTI:       claims.JTI(),
		TokenType: TypeAccess,
	})
	return nil
}

// RevokeAllForUser drops every live session of a user
func (t *TokenRotator) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return t.updater.RevokeAllForUser(ctx, userID)
}
