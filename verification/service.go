// Package verification issues and consumes the one time secrets used
// for email verification and password reset links.
package verification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lcampe/guardian/config"
	"github.com/lcampe/guardian/db"
	"github.com/lcampe/guardian/db/tables"
	"github.com/lcampe/guardian/generator"
	"go.uber.org/zap"
)

var (
	// ErrTokenNotFound indicates the secret is unknown
	ErrTokenNotFound = errors.New("unknown verification token")
	// ErrTokenUsed indicates the secret was already consumed
	ErrTokenUsed = errors.New("verification token already used")
	// ErrTokenExpired indicates the secret lapsed before use
	ErrTokenExpired = errors.New("verification token expired")
)

// OneTimeTokenStore is the persistence surface, implemented by
// db.DataStore
type OneTimeTokenStore interface {
	InsertVerificationToken(
		ctx context.Context,
		token string,
		userID uuid.UUID,
		tokenType string,
		expiresAt time.Time,
	) (uuid.UUID, error)
	ConsumeVerificationToken(
		ctx context.Context,
		token string,
		tokenType string,
	) (*tables.VerificationTokenTable, error)
	InvalidateVerificationTokens(
		ctx context.Context,
		userID uuid.UUID,
		tokenType string,
	) error
}

// Service issues single use secrets with a purpose bound expiry
type Service struct {
	store OneTimeTokenStore
	log   *zap.Logger
	cfg   *config.BehaviourConfiguration
	gen   *generator.RandomTokenGenerator
}

// NewService returns a verification token service
func NewService(
	store OneTimeTokenStore,
	log *zap.Logger,
	cfg *config.BehaviourConfiguration,
) *Service {
	return &Service{
		store: store,
		log:   log,
		cfg:   cfg,
		gen:   generator.New(),
	}
}

// IssueEmailVerification mints a fresh email verification secret,
// outstanding ones for the same user are superseded
func (s *Service) IssueEmailVerification(
	ctx context.Context,
	userID uuid.UUID,
) (string, error) {
	return s.issue(ctx, userID, db.VerificationTypeEmail, s.cfg.VerificationTokenExpiry)
}

// IssuePasswordReset mints a fresh password reset secret,
// outstanding ones for the same user are superseded
func (s *Service) IssuePasswordReset(
	ctx context.Context,
	userID uuid.UUID,
) (string, error) {
	return s.issue(ctx, userID, db.VerificationTypePasswordReset, s.cfg.ResetTokenExpiry)
}

func (s *Service) issue(
	ctx context.Context,
	userID uuid.UUID,
	tokenType string,
	expiry time.Duration,
) (string, error) {
	if err := s.store.InvalidateVerificationTokens(ctx, userID, tokenType); err != nil {
		return "", err
	}
	token := string(s.gen.CreateSecureToken())
	_, err := s.store.InsertVerificationToken(
		ctx,
		token,
		userID,
		tokenType,
		time.Now().UTC().Add(expiry),
	)
	if err != nil {
		s.log.Error("could not persist verification token", zap.Error(err))
		return "", err
	}
	return token, nil
}

// ConsumeEmailVerification redeems an email verification secret and
// returns the owning user
func (s *Service) ConsumeEmailVerification(
	ctx context.Context,
	token string,
) (uuid.UUID, error) {
	return s.consume(ctx, token, db.VerificationTypeEmail)
}

// ConsumePasswordReset redeems a password reset secret and returns
// the owning user
func (s *Service) ConsumePasswordReset(
	ctx context.Context,
	token string,
) (uuid.UUID, error) {
	return s.consume(ctx, token, db.VerificationTypePasswordReset)
}

func (s *Service) consume(
	ctx context.Context,
	token string,
	tokenType string,
) (uuid.UUID, error) {
	entry, err := s.store.ConsumeVerificationToken(ctx, token, tokenType)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			return uuid.UUID{}, ErrTokenNotFound
		case errors.Is(err, db.ErrTokenUsed):
			return uuid.UUID{}, ErrTokenUsed
		case errors.Is(err, db.ErrTokenExpired):
			return uuid.UUID{}, ErrTokenExpired
		default:
			s.log.Error("could not consume verification token", zap.Error(err))
			return uuid.UUID{}, err
		}
	}
	return entry.UserID, nil
}
