package security

import (
	"context"
	"time"

	"github.com/lcampe/guardian/config"
	"github.com/lcampe/guardian/db"
	"go.uber.org/zap"
)

const globalLimitIdentifier = "*"

// LimitStore is the counter surface, implemented by db.DataStore
type LimitStore interface {
	BumpVerificationCounter(
		ctx context.Context,
		limitType string,
		identifier string,
		max int,
		window time.Duration,
	) error
}

// MailLimiter enforces the per email, per ip and global quotas on
// verification mail requests
type MailLimiter struct {
	store LimitStore
	log   *zap.Logger
	cfg   *config.LimitsConfiguration
}

// NewMailLimiter returns a limiter over the configured quotas
func NewMailLimiter(
	store LimitStore,
	log *zap.Logger,
	cfg *config.LimitsConfiguration,
) *MailLimiter {
	return &MailLimiter{
		store: store,
		log:   log,
		cfg:   cfg,
	}
}

// Allow counts a verification mail request against all three quotas,
// db.ErrLimitExceeded means the request has to be refused. The quotas
// are checked narrow to wide so a single hot email does not eat into
// the global budget.
func (l *MailLimiter) Allow(ctx context.Context, email string, ip string) error {
	err := l.store.BumpVerificationCounter(
		ctx,
		db.LimitTypeEmail,
		email,
		l.cfg.VerificationPerEmail,
		l.cfg.VerificationWindow,
	)
	if err != nil {
		return err
	}
	err = l.store.BumpVerificationCounter(
		ctx,
		db.LimitTypeIP,
		ip,
		l.cfg.VerificationPerIP,
		l.cfg.VerificationWindow,
	)
	if err != nil {
		return err
	}
	return l.store.BumpVerificationCounter(
		ctx,
		db.LimitTypeGlobal,
		globalLimitIdentifier,
		l.cfg.VerificationGlobal,
		l.cfg.VerificationWindow,
	)
}
