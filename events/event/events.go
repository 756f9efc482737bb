package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/lcampe/guardian/events"
)

const (
	UserSignupEvent      events.EventName = "user_signup"
	UserConfirmedEvent   events.EventName = "user_confirmed"
	UserLockedEvent      events.EventName = "user_locked"
	UserUnlockedEvent    events.EventName = "user_unlocked"
	UserLoginEvent       events.EventName = "user_login"
	UserLoginFailedEvent events.EventName = "user_login_failed"

	UserDeletedEvent     events.EventName = "user_deleted"
	UserReactivatedEvent events.EventName = "user_reactivated"

	UserPasswordResetRequestedEvent events.EventName = "user_password_reset_requested"
	UserPasswordResetUsedEvent      events.EventName = "user_password_reset_used"
	UserPasswordChangedEvent        events.EventName = "user_password_changed"

	IPFrozenEvent   events.EventName = "ip_frozen"
	IPUnfrozenEvent events.EventName = "ip_unfrozen"

	TokenRevokedEvent        events.EventName = "token_revoked"
	TokenReplayDetectedEvent events.EventName = "token_replay_detected"

	EmailVerificationSentEvent  events.EventName = "email_verification_sent"
	EmailPasswordResetSentEvent events.EventName = "email_password_reset_sent"
)

type UserSignup struct {
	UserID uuid.UUID
	Email  string
}

func (*UserSignup) Name() events.EventName { return UserSignupEvent }

type UserConfirmed struct {
	UserID        uuid.UUID
	AutoConfirmed bool
}

func (*UserConfirmed) Name() events.EventName { return UserConfirmedEvent }

type UserLocked struct {
	UserID      uuid.UUID
	LockedUntil time.Time
}

func (*UserLocked) Name() events.EventName { return UserLockedEvent }

type UserUnlocked struct {
	UserID uuid.UUID
}

func (*UserUnlocked) Name() events.EventName { return UserUnlockedEvent }

type UserLogin struct {
	UserID    uuid.UUID
	IPAddress string
}

func (*UserLogin) Name() events.EventName { return UserLoginEvent }

type UserLoginFailed struct {
	Email     string
	IPAddress string
	Reason    string
}

func (*UserLoginFailed) Name() events.EventName { return UserLoginFailedEvent }

type UserDeleted struct {
	UserID uuid.UUID
}

func (*UserDeleted) Name() events.EventName { return UserDeletedEvent }

type UserReactivated struct {
	UserID uuid.UUID
}

func (*UserReactivated) Name() events.EventName { return UserReactivatedEvent }

type UserPasswordResetRequested struct {
	UserID uuid.UUID
}

func (*UserPasswordResetRequested) Name() events.EventName {
	return UserPasswordResetRequestedEvent
}

type UserPasswordResetUsed struct {
	UserID uuid.UUID
	Email  string
}

func (*UserPasswordResetUsed) Name() events.EventName { return UserPasswordResetUsedEvent }

type UserPasswordChanged struct {
	UserID uuid.UUID
}

func (*UserPasswordChanged) Name() events.EventName { return UserPasswordChangedEvent }

type IPFrozen struct {
	IPAddress      string
	UnfreezeAt     time.Time
	FailedAttempts int
}

func (*IPFrozen) Name() events.EventName { return IPFrozenEvent }

type IPUnfrozen struct {
	IPAddress  string
	UnfrozenBy *uuid.UUID
}

func (*IPUnfrozen) Name() events.EventName { return IPUnfrozenEvent }

type TokenRevoked struct {
	UserID    uuid.UUID
	JTI       string
	TokenType string
}

func (*TokenRevoked) Name() events.EventName { return TokenRevokedEvent }

type TokenReplayDetected struct {
	UserID uuid.UUID
	JTI    string
}

func (*TokenReplayDetected) Name() events.EventName { return TokenReplayDetectedEvent }

type EmailVerificationSent struct {
	UserID uuid.UUID
	Email  string
	Sent   time.Time
}

func (*EmailVerificationSent) Name() events.EventName { return EmailVerificationSentEvent }

type EmailPasswordResetSent struct {
	UserID uuid.UUID
	Email  string
	Sent   time.Time
}

func (*EmailPasswordResetSent) Name() events.EventName { return EmailPasswordResetSentEvent }
