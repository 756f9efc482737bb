package tables

import (
	"time"

	"github.com/google/uuid"
)

// UserTable represents the users table
type UserTable struct {
	ID                 uuid.UUID  `db:"id,omitempty"`
	Email              string     `db:"email"`
	Password           string     `db:"password"              json:"-"`
	Status             string     `db:"status"`
	EmailConfirmed     *time.Time `db:"email_confirmed"`
	FailureCount       int        `db:"failure_count"`
	LockoutTill        *time.Time `db:"lockout_till"`
	DeletedAt          *time.Time `db:"deleted_at"`
	LastSignIn         *time.Time `db:"last_sign_in"`
	LastPasswordChange *time.Time `db:"last_password_change"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          *time.Time `db:"updated_at,omitempty"`
}
