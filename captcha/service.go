package captcha

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lcampe/guardian/config"
	"github.com/lcampe/guardian/generator"
	"go.uber.org/zap"
)

// Service hands out captcha challenges and checks solutions,
// every challenge may be tried exactly once
type Service struct {
	log   *zap.Logger
	cfg   *config.CaptchaConfiguration
	store Store
	gen   *generator.RandomTokenGenerator
}

// NewService returns a captcha service on top of the given store
func NewService(
	log *zap.Logger,
	cfg *config.CaptchaConfiguration,
	store Store,
) *Service {
	return &Service{
		log:   log,
		cfg:   cfg,
		store: store,
		gen:   generator.New(),
	}
}

// Generate creates a fresh challenge and returns its id and the text
// to present to the client
func (s *Service) Generate(ctx context.Context) (*Challenge, error) {
	challenge := &Challenge{
		ID:        uuid.NewString(),
		Answer:    string(s.gen.CreateChallengeCode(s.cfg.Length)),
		ExpiresAt: time.Now().Add(s.cfg.TTL),
	}
	if err := s.store.Put(ctx, challenge); err != nil {
		s.log.Error("Could not store captcha challenge", zap.Error(err))
		return nil, err
	}
	return challenge, nil
}

// Verify consumes the challenge and compares the answer case
// insensitively. A wrong answer burns the challenge as well, the
// client has to request a new one.
func (s *Service) Verify(ctx context.Context, id string, answer string) (bool, error) {
	challenge, err := s.store.Take(ctx, id)
	if err != nil {
		if errors.Is(err, ErrChallengeNotFound) {
			return false, nil
		}
		s.log.Error("Could not load captcha challenge", zap.Error(err))
		return false, err
	}
	return strings.EqualFold(challenge.Answer, answer), nil
}
