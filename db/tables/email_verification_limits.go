package tables

import "time"

// EmailVerificationLimitTable represents the email_verification_limits
// table, a sliding window counter keyed by (limit_type, identifier)
type EmailVerificationLimitTable struct {
	ID           int       `db:"id,omitempty"`
	LimitType    string    `db:"limit_type"`
	Identifier   string    `db:"identifier"`
	RequestCount int       `db:"request_count"`
	WindowStart  time.Time `db:"window_start"`
	WindowEnd    time.Time `db:"window_end"`
	LastRequest  time.Time `db:"last_request"`
}
