package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lcampe/guardian/config"
	"github.com/lcampe/guardian/db"
	"github.com/lcampe/guardian/db/tables"
	"github.com/lcampe/guardian/events/event"
	"github.com/lcampe/guardian/password"
	"github.com/lcampe/guardian/tokens"
	"go.uber.org/zap"
)

var (
	// ErrIPFrozen refuses traffic from a frozen origin outright
	ErrIPFrozen = errors.New("originating address is frozen")
	// ErrUserLocked refuses logins while the lockout is in effect
	ErrUserLocked = errors.New("account is locked")
	// ErrNotConfirmed refuses logins of unverified accounts
	ErrNotConfirmed = errors.New("email address has not been verified")
	// ErrCaptchaRequired tells the client to solve a captcha first
	ErrCaptchaRequired = errors.New("captcha required for this attempt")
	// ErrCaptchaFailed indicates the supplied solution was wrong
	ErrCaptchaFailed = errors.New("captcha verification failed")
)

// LockedError carries when the lockout lapses, it matches ErrUserLocked
// under errors.Is
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string { return ErrUserLocked.Error() }

func (e *LockedError) Is(target error) bool { return target == ErrUserLocked }

// failure reasons as recorded in the attempt ledger
const (
	reasonBadPassword  = "bad_password"
	reasonBadCaptcha   = "bad_captcha"
	reasonUnknownEmail = "unknown_email"
	reasonDeleted      = "deleted_account"
)

// SigninStorer is the persistence surface of the login flow,
// implemented by db.DataStore
type SigninStorer interface {
	UserByEmail(ctx context.Context, email string) (*tables.UserTable, error)
	RecordLoginFailure(
		ctx context.Context,
		userID uuid.UUID,
		lockoutCount int,
		lockoutDuration time.Duration,
	) (int, bool, error)
	RecordLoginSuccess(ctx context.Context, userID uuid.UUID) error
	UnlockUser(ctx context.Context, userID uuid.UUID) error
	Reactivate(ctx context.Context, userID uuid.UUID) error
}

// Guard is the adaptive defense consulted on every attempt,
// implemented by security.Service
type Guard interface {
	IsFrozen(ctx context.Context, ip string) (bool, error)
	RequiresCaptcha(ctx context.Context, email string, ip string) (bool, error)
	EscalateIP(ctx context.Context, ip string) (bool, error)
	RecordAttempt(ctx context.Context, attempt *tables.LoginAttemptTable) error
}

// CaptchaVerifier consumes a challenge and checks the solution
type CaptchaVerifier interface {
	Verify(ctx context.Context, id string, answer string) (bool, error)
}

// PairIssuer hands out session token pairs after authentication
type PairIssuer interface {
	IssuePair(
		ctx context.Context,
		userID uuid.UUID,
		email string,
		deviceInfo *string,
	) (*tokens.TokenPair, error)
}

// LoginRequest carries everything a single login attempt brings along
type LoginRequest struct {
	Email         string
	Password      string
	CaptchaID     string
	CaptchaAnswer string
	IP            string
	UserAgent     string
}

// SigninService runs the login flow: origin freeze check, captcha
// escalation, lockout handling, credential verification and finally
// token issuance
type SigninService struct {
	store      SigninStorer
	log        *zap.Logger
	cfg        *config.Configuration
	guard      Guard
	captcha    CaptchaVerifier
	issuer     PairIssuer
	dispatcher Dispatcher
}

func NewSignInService(store SigninStorer,
	log *zap.Logger,
	cfg *config.Configuration,
	guard Guard,
	captcha CaptchaVerifier,
	issuer PairIssuer,
	dispatcher Dispatcher) *SigninService {
	return &SigninService{
		store:      store,
		log:        log,
		cfg:        cfg,
		guard:      guard,
		captcha:    captcha,
		issuer:     issuer,
		dispatcher: dispatcher,
	}
}

// SignIn authenticates a login attempt and issues a token pair.
// Every terminal outcome leaves an entry in the attempt ledger.
func (g *SigninService) SignIn(
	ctx context.Context,
	req *LoginRequest,
) (*tokens.TokenPair, error) {
	frozen, err := g.guard.IsFrozen(ctx, req.IP)
	if err != nil {
		return nil, err
	}
	if frozen {
		g.recordAttempt(ctx, req, nil, db.AttemptBlockedFrozen, nil, false, false)
		return nil, ErrIPFrozen
	}

	captchaRequired, err := g.guard.RequiresCaptcha(ctx, req.Email, req.IP)
	if err != nil {
		return nil, err
	}
	captchaVerified := false
	if captchaRequired {
		if req.CaptchaID == "" || req.CaptchaAnswer == "" {
			return nil, ErrCaptchaRequired
		}
		ok, err := g.captcha.Verify(ctx, req.CaptchaID, req.CaptchaAnswer)
		if err != nil {
			return nil, err
		}
		if !ok {
			reason := reasonBadCaptcha
			g.recordAttempt(ctx, req, nil, db.AttemptFailedCaptcha, &reason, true, false)
			if _, err := g.guard.EscalateIP(ctx, req.IP); err != nil {
				g.log.Error("could not escalate ip", zap.Error(err))
			}
			return nil, ErrCaptchaFailed
		}
		captchaVerified = true
	}

	ud, err := g.store.UserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			reason := reasonUnknownEmail
			g.recordAttempt(
				ctx,
				req,
				nil,
				db.AttemptFailedPassword,
				&reason,
				captchaRequired,
				captchaVerified,
			)
			if _, err := g.guard.EscalateIP(ctx, req.IP); err != nil {
				g.log.Error("could not escalate ip", zap.Error(err))
			}
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if ud.Status == db.UserStatusLocked {
		if ud.LockoutTill != nil && ud.LockoutTill.After(time.Now().UTC()) {
			g.recordAttempt(
				ctx,
				req,
				&ud.ID,
				db.AttemptBlockedLocked,
				nil,
				captchaRequired,
				captchaVerified,
			)
			return nil, &LockedError{Until: *ud.LockoutTill}
		}
		// lockout lapsed, the account goes back to active
		if err := g.store.UnlockUser(ctx, ud.ID); err != nil {
			g.log.Error("could not clear lapsed lockout", zap.Error(err))
			return nil, err
		}
		g.dispatcher.Dispatch(ctx, &event.UserUnlocked{UserID: ud.ID})
	}

	ok, err := password.Verify(ud.Password, req.Password)
	if err != nil && !errors.Is(err, password.ErrMalformedHash) {
		return nil, err
	}
	if !ok {
		return nil, g.handleBadPassword(ctx, req, ud, captchaRequired, captchaVerified)
	}

	if ud.Status == db.UserStatusPendingVerification {
		g.recordAttempt(
			ctx,
			req,
			&ud.ID,
			db.AttemptAccountInactive,
			nil,
			captchaRequired,
			captchaVerified,
		)
		return nil, ErrNotConfirmed
	}

	if ud.Status == db.UserStatusDeleted {
		if ud.DeletedAt == nil ||
			time.Now().UTC().After(ud.DeletedAt.Add(g.cfg.Behaviour.DeletionGracePeriod)) {
			reason := reasonDeleted
			g.recordAttempt(
				ctx,
				req,
				&ud.ID,
				db.AttemptFailedPassword,
				&reason,
				captchaRequired,
				captchaVerified,
			)
			return nil, ErrInvalidCredentials
		}
		if err := g.store.Reactivate(ctx, ud.ID); err != nil {
			g.log.Error("could not reactivate account", zap.Error(err))
			return nil, err
		}
		g.dispatcher.Dispatch(ctx, &event.UserReactivated{UserID: ud.ID})
	}

	// a stale failure counter weakens the lockout, better to fail the
	// login than to continue without the reset
	if err := g.store.RecordLoginSuccess(ctx, ud.ID); err != nil {
		g.log.Error("could not record login success", zap.Error(err))
		return nil, err
	}
	g.recordAttempt(ctx, req, &ud.ID, db.AttemptSuccess, nil, captchaRequired, captchaVerified)
	g.dispatcher.Dispatch(ctx, &event.UserLogin{UserID: ud.ID, IPAddress: req.IP})

	var deviceInfo *string
	if req.UserAgent != "" {
		deviceInfo = &req.UserAgent
	}
	return g.issuer.IssuePair(ctx, ud.ID, ud.Email, deviceInfo)
}

func (g *SigninService) handleBadPassword(
	ctx context.Context,
	req *LoginRequest,
	ud *tables.UserTable,
	captchaRequired bool,
	captchaVerified bool,
) error {
	reason := reasonBadPassword
	g.recordAttempt(
		ctx,
		req,
		&ud.ID,
		db.AttemptFailedPassword,
		&reason,
		captchaRequired,
		captchaVerified,
	)
	count, locked, err := g.store.RecordLoginFailure(
		ctx,
		ud.ID,
		g.cfg.Security.LockoutCount,
		g.cfg.Security.LockoutDuration,
	)
	if err != nil {
		// a dropped increment would let an attacker stay below the
		// lockout threshold forever
		g.log.Error("could not record login failure", zap.Error(err))
		return err
	}
	if locked {
		g.log.Warn("account locked after repeated failures",
			zap.String("user_id", ud.ID.String()),
			zap.Int("failure_count", count))
		g.dispatcher.Dispatch(ctx, &event.UserLocked{
			UserID:      ud.ID,
			LockedUntil: time.Now().UTC().Add(g.cfg.Security.LockoutDuration),
		})
	}
	g.dispatcher.Dispatch(ctx, &event.UserLoginFailed{
		Email:     req.Email,
		IPAddress: req.IP,
		Reason:    reason,
	})
	if _, err := g.guard.EscalateIP(ctx, req.IP); err != nil {
		g.log.Error("could not escalate ip", zap.Error(err))
	}
	return ErrInvalidCredentials
}

func (g *SigninService) recordAttempt(
	ctx context.Context,
	req *LoginRequest,
	userID *uuid.UUID,
	result string,
	reason *string,
	captchaRequired bool,
	captchaVerified bool,
) {
	var agent *string
	if req.UserAgent != "" {
		agent = &req.UserAgent
	}
	attempt := &tables.LoginAttemptTable{
		UserID:          userID,
		Email:           &req.Email,
		IPAddress:       req.IP,
		UserAgent:       agent,
		Result:          result,
		FailureReason:   reason,
		CaptchaRequired: captchaRequired,
		CaptchaVerified: captchaVerified,
		AttemptTime:     time.Now().UTC(),
	}
	if err := g.guard.RecordAttempt(ctx, attempt); err != nil {
		g.log.Error("could not record login attempt", zap.Error(err))
	}
}
