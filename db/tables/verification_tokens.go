package tables

import (
	"time"

	"github.com/google/uuid"
)

// VerificationTokenTable represents the verification_tokens table,
// one time secrets for email verification and password reset
type VerificationTokenTable struct {
	ID        uuid.UUID  `db:"id,omitempty"`
	Token     string     `db:"token"      json:"-"`
	UserID    uuid.UUID  `db:"user_id"`
	TokenType string     `db:"token_type"`
	CreatedAt time.Time  `db:"created_at"`
	ExpiresAt time.Time  `db:"expires_at"`
	UsedAt    *time.Time `db:"used_at"`
}
