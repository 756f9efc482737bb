package tables

import (
	"time"

	"github.com/google/uuid"
)

// IPFreezeTable represents the ip_freezes table, one row per ip address
type IPFreezeTable struct {
	ID               uuid.UUID  `db:"id,omitempty"`
	IPAddress        string     `db:"ip_address"`
	Reason           string     `db:"reason"`
	FrozenAt         time.Time  `db:"frozen_at"`
	UnfreezeAt       time.Time  `db:"unfreeze_at"`
	ManuallyUnfrozen bool       `db:"manually_unfrozen"`
	UnfrozenBy       *uuid.UUID `db:"unfrozen_by"`
	UnfrozenAt       *time.Time `db:"unfrozen_at"`
	FailedAttempts   int        `db:"failed_attempts"`
}

// Active returns true while the freeze is still in effect
func (f *IPFreezeTable) Active(now time.Time) bool {
	return !f.ManuallyUnfrozen && now.Before(f.UnfreezeAt)
}
