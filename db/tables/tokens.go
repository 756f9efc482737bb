package tables

import (
	"time"

	"github.com/google/uuid"
)

// TokenTable represents the tokens table, refresh tokens are always
// persisted for rotation tracking, access tokens only materialize a
// row once revoked (blacklist entry)
type TokenTable struct {
	ID         int        `db:"id,omitempty"`
	JTI        string     `db:"jti"`
	UserID     uuid.UUID  `db:"user_id"`
	TokenType  string     `db:"token_type"`
	Token      *string    `db:"token"       json:"-"`
	DeviceInfo *string    `db:"device_info"`
	IssuedAt   time.Time  `db:"issued_at"`
	ExpiresAt  time.Time  `db:"expires_at"`
	RevokedAt  *time.Time `db:"revoked_at"`
	UpdatedAt  *time.Time `db:"updated_at"`
}
