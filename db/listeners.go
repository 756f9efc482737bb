package db

import (
	"context"

	"github.com/lcampe/guardian/db/tables"
	"github.com/lcampe/guardian/events"
	"github.com/lcampe/guardian/events/event"
	"go.uber.org/zap"
)

// Auditor is a way to write audit log events into a persistent store
type Auditor interface {
	addToAuditLog(event string, payload tables.MapStructure) error
}

// BootstrapListeners registers all the event listeners from this package
func BootstrapListeners(store Auditor, log *zap.Logger) []events.EventListener {
	return []events.EventListener{
		&userSignupListener{
			log:   log,
			store: store,
		},
		&userConfirmedListener{
			log:   log,
			store: store,
		},
		&userLockedListener{
			log:   log,
			store: store,
		},
		&userUnlockedListener{
			log:   log,
			store: store,
		},
		&userLoginListener{
			log:   log,
			store: store,
		},
		&userLoginFailedListener{
			log:   log,
			store: store,
		},
		&userDeletedListener{
			log:   log,
			store: store,
		},
		&userReactivatedListener{
			log:   log,
			store: store,
		},
		&passwordResetRequestedListener{
			log:   log,
			store: store,
		},
		&passwordResetUsedListener{
			log:   log,
			store: store,
		},
		&passwordChangedListener{
			log:   log,
			store: store,
		},
		&ipFrozenListener{
			log:   log,
			store: store,
		},
		&ipUnfrozenListener{
			log:   log,
			store: store,
		},
		&tokenRevokedListener{
			log:   log,
			store: store,
		},
		&tokenReplayListener{
			log:   log,
			store: store,
		},
		&verificationMailSentListener{
			log:   log,
			store: store,
		},
		&resetMailSentListener{
			log:   log,
			store: store,
		},
	}
}

func toString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

type userSignupListener struct {
	store Auditor
	log   *zap.Logger
}

func (*userSignupListener) ForEvent() events.EventName {
	return event.UserSignupEvent
}

func (l *userSignupListener) Handle(_ context.Context, ev events.Event) error {
	e := ev.(*event.UserSignup)
	err := l.store.addToAuditLog(string(l.ForEvent()), map[string]interface{}{
		"user_id": e.UserID.String(),
		"email":   e.Email,
	})
	if err != nil {
		l.log.Warn("Could not persist event to audit log", zap.Error(err))
	}
	return nil
}

type userConfirmedListener struct {
	store Auditor
	log   *zap.Logger
}

func (*userConfirmedListener) ForEvent() events.EventName {
	return event.UserConfirmedEvent
}

func (l *userConfirmedListener) Handle(_ context.Context, ev events.Event) error {
	e := ev.(*event.UserConfirmed)
	err := l.store.addToAuditLog(string(l.ForEvent()), map[string]interface{}{
		"user_id":      e.UserID.String(),
		"auto_confirm": toString(e.AutoConfirmed),
	})
	if err != nil {
		l.log.Warn("Could not persist event to audit log", zap.Error(err))
	}
	return nil
}

type userLockedListener struct {
	store Auditor
	log   *zap.Logger
}

func (*userLockedListener) ForEvent() events.EventName {
	return event.UserLockedEvent
}

func (l *userLockedListener) Handle(_ context.Context, ev events.Event) error {
	e := ev.(*event.UserLocked)
	err := l.store.addToAuditLog(string(l.ForEvent()), map[string]interface{}{
		"user_id":      e.UserID.String(),
		"locked_until": e.LockedUntil.Format("2006-01-02 15:04:05"),
	})
	if err != nil {
		l.log.Warn("Could not persist event to audit log", zap.Error(err))
	}
	return nil
}

type userUnlockedListener struct {
	store Auditor
	log   *zap.Logger
}

func (*userUnlockedListener) ForEvent() events.EventName {
	return event.UserUnlockedEvent
}

func (l *userUnlockedListener) Handle(_ context.Context, ev events.Event) error {
	e := ev.(*event.UserUnlocked)
	err := l.store.addToAuditLog(string(l.ForEvent()), map[string]interface{}{
		"user_id": e.UserID.String(),
	})
	if err != nil {
		l.log.Warn("Could not persist event to audit log", zap.Error(err))
	}
	return nil
}

type userLoginListener struct {
	store Auditor
	log   *zap.Logger
}

func (*userLoginListener) ForEvent() events.EventName {
	return event.UserLoginEvent
}

func (l *userLoginListener) Handle(_ context.Context, ev events.Event) error {
	e := ev.(*event.UserLogin)
	err := l.store.addToAuditLog(string(l.ForEvent()), map[string]interface{}{
		"user_id": e.UserID.String(),
		"ip":      e.IPAddress,
	})
	if err != nil {
		l.log.Warn("Could not persist event to audit log", zap.Error(err))
	}
	return nil
}

type userLoginFailedListener struct {
	store Auditor
	log   *zap.Logger
}

func (*userLoginFailedListener) ForEvent() events.EventName {
	return event.UserLoginFailedEvent
}

func (l *userLoginFailedListener) Handle(_ context.Context, ev events.Event) error {
	e := ev.(*event.UserLoginFailed)
	err := l.store.addToAuditLog(string(l.ForEvent()), map[string]interface{}{
		"email":  e.Email,
		"ip":     e.IPAddress,
		"reason": e.Reason,
	})
	if err != nil {
		l.log.Warn("Could not persist event to audit log", zap.Error(err))
	}
	return nil
}

type userDeletedListener struct {
	store Auditor
	log   *zap.Logger
}

func (*userDeletedListener) ForEvent() events.EventName {
	return event.UserDeletedEvent
}

func (l *userDeletedListener) Handle(_ context.Context, ev events.Event) error {
	e := ev.(*event.UserDeleted)
	err := l.store.addToAuditLog(string(l.ForEvent()), map[string]interface{}{
		"user_id": e.UserID.String(),
	})
	if err != nil {
		l.log.Warn("Could not persist event to audit log", zap.Error(err))
	}
	return nil
}

type userReactivatedListener struct {
	store Auditor
	log   *zap.Logger
}

func (*userReactivatedListener) ForEvent() events.EventName {
	return event.UserReactivatedEvent
}

func (l *userReactivatedListener) Handle(_ context.Context, ev events.Event) error {
	e := ev.(*event.UserReactivated)
	err := l.store.addToAuditLog(string(l.ForEvent()), map[string]interface{}{
		"user_id": e.UserID.String(),
	})
	if err != nil {
		l.log.Warn("Could not persist event to audit log", zap.Error(err))
	}
	return nil
}

type passwordResetRequestedListener struct {
	store Auditor
	log   *zap.Logger
}

func (*passwordResetRequestedListener) ForEvent() events.EventName {
	return event.UserPasswordResetRequestedEvent
}

func (l *passwordResetRequestedListener) Handle(_ context.Context, ev events.Event) error {
	e := ev.(*event.UserPasswordResetRequested)
	err := l.store.addToAuditLog(string(l.ForEvent()), map[string]interface{}{
		"user_id": e.UserID.String(),
	})
	if err != nil {
		l.log.Warn("Could not persist event to audit log", zap.Error(err))
	}
	return nil
}

type passwordResetUsedListener struct {
	store Auditor
	log   *zap.Logger
}

func (*passwordResetUsedListener) ForEvent() events.EventName {
	return event.UserPasswordResetUsedEvent
}

func (l *passwordResetUsedListener) Handle(_ context.Context, ev events.Event) error {
	e := ev.(*event.UserPasswordResetUsed)
	err := l.store.addToAuditLog(string(l.ForEvent()), map[string]interface{}{
		"user_id": e.UserID.String(),
		"email":   e.Email,
	})
	if err != nil {
		l.log.Warn("Could not persist event to audit log", zap.Error(err))
	}
	return nil
}

type passwordChangedListener struct {
	store Auditor
	log   *zap.Logger
}

func (*passwordChangedListener) ForEvent() events.EventName {
	return event.UserPasswordChangedEvent
}

func (l *passwordChangedListener) Handle(_ context.Context, ev events.Event) error {
	e := ev.(*event.UserPasswordChanged)
	err := l.store.addToAuditLog(string(l.ForEvent()), map[string]interface{}{
		"user_id": e.UserID.String(),
	})
	if err != nil {
		l.log.Warn("Could not persist event to audit log", zap.Error(err))
	}
	return nil
}

type ipFrozenListener struct {
	store Auditor
	log   *zap.Logger
}

func (*ipFrozenListener) ForEvent() events.EventName {
	return event.IPFrozenEvent
}

func (l *ipFrozenListener) Handle(_ context.Context, ev events.Event) error {
	e := ev.(*event.IPFrozen)
	err := l.store.addToAuditLog(string(l.ForEvent()), map[string]interface{}{
		"ip":              e.IPAddress,
		"unfreeze_at":     e.UnfreezeAt.Format("2006-01-02 15:04:05"),
		"failed_attempts": e.FailedAttempts,
	})
	if err != nil {
		l.log.Warn("Could not persist event to audit log", zap.Error(err))
	}
	return nil
}

type ipUnfrozenListener struct {
	store Auditor
	log   *zap.Logger
}

func (*ipUnfrozenListener) ForEvent() events.EventName {
	return event.IPUnfrozenEvent
}

func (l *ipUnfrozenListener) Handle(_ context.Context, ev events.Event) error {
	e := ev.(*event.IPUnfrozen)
	payload := map[string]interface{}{
		"ip": e.IPAddress,
	}
	if e.UnfrozenBy != nil {
		payload["unfrozen_by"] = e.UnfrozenBy.String()
	}
	err := l.store.addToAuditLog(string(l.ForEvent()), payload)
	if err != nil {
		l.log.Warn("Could not persist event to audit log", zap.Error(err))
	}
	return nil
}

type tokenRevokedListener struct {
	store Auditor
	log   *zap.Logger
}

func (*tokenRevokedListener) ForEvent() events.EventName {
	return event.TokenRevokedEvent
}

func (l *tokenRevokedListener) Handle(_ context.Context, ev events.Event) error {
	e := ev.(*event.TokenRevoked)
	err := l.store.addToAuditLog(string(l.ForEvent()), map[string]interface{}{
		"user_id":    e.UserID.String(),
		"jti":        e.JTI,
		"token_type": e.TokenType,
	})
	if err != nil {
		l.log.Warn("Could not persist event to audit log", zap.Error(err))
	}
	return nil
}

type tokenReplayListener struct {
	store Auditor
	log   *zap.Logger
}

func (*tokenReplayListener) ForEvent() events.EventName {
	return event.TokenReplayDetectedEvent
}

func (l *tokenReplayListener) Handle(_ context.Context, ev events.Event) error {
	e := ev.(*event.TokenReplayDetected)
	err := l.store.addToAuditLog(string(l.ForEvent()), map[string]interface{}{
		"user_id": e.UserID.String(),
		"jti":     e.JTI,
	})
	if err != nil {
		l.log.Warn("Could not persist event to audit log", zap.Error(err))
	}
	return nil
}

type verificationMailSentListener struct {
	store Auditor
	log   *zap.Logger
}

func (*verificationMailSentListener) ForEvent() events.EventName {
	return event.EmailVerificationSentEvent
}

func (l *verificationMailSentListener) Handle(_ context.Context, ev events.Event) error {
	e := ev.(*event.EmailVerificationSent)
	err := l.store.addToAuditLog(string(l.ForEvent()), map[string]interface{}{
		"user_id": e.UserID.String(),
		"email":   e.Email,
	})
	if err != nil {
		l.log.Warn("Could not persist event to audit log", zap.Error(err))
	}
	return nil
}

type resetMailSentListener struct {
	store Auditor
	log   *zap.Logger
}

func (*resetMailSentListener) ForEvent() events.EventName {
	return event.EmailPasswordResetSentEvent
}

func (l *resetMailSentListener) Handle(_ context.Context, ev events.Event) error {
	e := ev.(*event.EmailPasswordResetSent)
	err := l.store.addToAuditLog(string(l.ForEvent()), map[string]interface{}{
		"user_id": e.UserID.String(),
		"email":   e.Email,
	})
	if err != nil {
		l.log.Warn("Could not persist event to audit log", zap.Error(err))
	}
	return nil
}
