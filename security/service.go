// Package security implements the adaptive login defense: failure
// ledger queries, captcha escalation thresholds and ip freezing.
package security

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lcampe/guardian/config"
	"github.com/lcampe/guardian/db"
	"github.com/lcampe/guardian/db/tables"
	"github.com/lcampe/guardian/events"
	"github.com/lcampe/guardian/events/event"
	"github.com/lcampe/guardian/sanitize"
	"go.uber.org/zap"
)

// ErrIPFrozen indicates the originating address is currently frozen
var ErrIPFrozen = errors.New("ip address is frozen")

// Dispatcher dispatches domain events to registered listeners
type Dispatcher interface {
	Dispatch(ctx context.Context, ev events.Event)
}

// LedgerStore is the persistence surface the defense needs,
// implemented by db.DataStore
type LedgerStore interface {
	InsertLoginAttempt(ctx context.Context, attempt *tables.LoginAttemptTable) error
	CountFailedAttemptsByEmail(ctx context.Context, email string, since time.Time) (int, error)
	CountFailedAttemptsByIP(ctx context.Context, ip string, since time.Time) (int, error)
	ActiveFreeze(ctx context.Context, ip string) (*tables.IPFreezeTable, error)
	InsertFreeze(
		ctx context.Context,
		ip string,
		reason string,
		duration time.Duration,
		failedAttempts int,
	) (*tables.IPFreezeTable, error)
	UnfreezeManually(ctx context.Context, ip string, by *uuid.UUID) error
}

// Service applies the configured security level to login traffic
type Service struct {
	store      LedgerStore
	log        *zap.Logger
	cfg        *config.SecurityConfiguration
	dispatcher Dispatcher
}

// NewService returns a security service for the configured level
func NewService(
	store LedgerStore,
	log *zap.Logger,
	cfg *config.SecurityConfiguration,
	dispatcher Dispatcher,
) *Service {
	return &Service{
		store:      store,
		log:        log,
		cfg:        cfg,
		dispatcher: dispatcher,
	}
}

// RecordAttempt appends an entry to the login attempt ledger
func (s *Service) RecordAttempt(
	ctx context.Context,
	attempt *tables.LoginAttemptTable,
) error {
	return s.store.InsertLoginAttempt(ctx, attempt)
}

// RequiresCaptcha reports whether the next login attempt for this
// email or origin has to solve a captcha. The threshold depends on
// the configured level, both failed passwords and failed captchas
// count towards it.
func (s *Service) RequiresCaptcha(ctx context.Context, email string, ip string) (bool, error) {
	since := time.Now().UTC().Add(-s.cfg.FailureWindow)
	byEmail, err := s.store.CountFailedAttemptsByEmail(ctx, email, since)
	if err != nil {
		return false, err
	}
	threshold := s.cfg.CaptchaThreshold()
	if byEmail >= threshold {
		return true, nil
	}
	byIP, err := s.store.CountFailedAttemptsByIP(ctx, ip, since)
	if err != nil {
		return false, err
	}
	return byIP >= threshold, nil
}

// IsFrozen reports whether the address is currently frozen
func (s *Service) IsFrozen(ctx context.Context, ip string) (bool, error) {
	_, err := s.store.ActiveFreeze(ctx, ip)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// EscalateIP freezes the address once its failure count within the
// window reaches the freeze threshold. Freezing only happens on the
// advanced level, the call is a no-op otherwise. Returns true when
// the address is frozen after the call.
func (s *Service) EscalateIP(ctx context.Context, ip string) (bool, error) {
	if s.cfg.Level != config.SecurityLevelAdvanced {
		return false, nil
	}
	since := time.Now().UTC().Add(-s.cfg.FailureWindow)
	failures, err := s.store.CountFailedAttemptsByIP(ctx, ip, since)
	if err != nil {
		return false, err
	}
	if failures < s.cfg.FreezeThreshold {
		return false, nil
	}
	freeze, err := s.store.InsertFreeze(
		ctx,
		ip,
		"too many failed login attempts",
		s.cfg.FreezeDuration,
		failures,
	)
	if err != nil {
		return false, err
	}
	s.log.Warn("Froze ip address",
		sanitize.UserInputString("ip", ip),
		zap.Int("failed_attempts", failures))
	s.dispatcher.Dispatch(ctx, &event.IPFrozen{
		IPAddress:      ip,
		UnfreezeAt:     freeze.UnfreezeAt,
		FailedAttempts: freeze.FailedAttempts,
	})
	return true, nil
}

// Unfreeze lifts an active freeze before its expiry, by identifies
// the operator when known
func (s *Service) Unfreeze(ctx context.Context, ip string, by *uuid.UUID) error {
	err := s.store.UnfreezeManually(ctx, ip, by)
	if err != nil {
		return err
	}
	s.dispatcher.Dispatch(ctx, &event.IPUnfrozen{
		IPAddress:  ip,
		UnfrozenBy: by,
	})
	return nil
}
