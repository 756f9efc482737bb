package tables

import (
	"time"

	"github.com/google/uuid"
)

// LoginAttemptTable represents the login_attempts table,
// rows are append only and never mutated
type LoginAttemptTable struct {
	ID              uuid.UUID  `db:"id,omitempty"`
	UserID          *uuid.UUID `db:"user_id"`
	Email           *string    `db:"email"`
	IPAddress       string     `db:"ip_address"`
	UserAgent       *string    `db:"user_agent"`
	Result          string     `db:"result"`
	FailureReason   *string    `db:"failure_reason"`
	CaptchaRequired bool       `db:"captcha_required"`
	CaptchaVerified bool       `db:"captcha_verified"`
	AttemptTime     time.Time  `db:"attempt_time"`
}
