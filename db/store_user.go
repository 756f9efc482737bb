package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lcampe/guardian/db/tables"

	sq "github.com/Masterminds/squirrel"
)

// account status values as persisted in the users table
const (
	UserStatusPendingVerification = "pending_verification"
	UserStatusActive              = "active"
	UserStatusLocked              = "locked"
	UserStatusDeleted             = "deleted"
)

// IsRegistered checks if a user with the given email exists,
// soft deleted accounts still count as registered until purged
func (d *DataStore) IsRegistered(ctx context.Context, email string) (bool, error) {
	return d.exists(ctx, "users", sq.Eq{"email": email})
}

// UserByEmail loads a user row by its email address
func (d *DataStore) UserByEmail(ctx context.Context, email string) (*tables.UserTable, error) {
	var user tables.UserTable
	q := sq.Select("*").From("users").Where(sq.Eq{"email": email})
	err := d.getStatement(ctx, &user, q, nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UserByID loads a user row by its id
func (d *DataStore) UserByID(ctx context.Context, id uuid.UUID) (*tables.UserTable, error) {
	var user tables.UserTable
	q := sq.Select("*").From("users").Where(sq.Eq{"id": id})
	err := d.getStatement(ctx, &user, q, nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// InsertUser creates a new user record, returns ErrAlreadyExists
// if the email address is already taken
func (d *DataStore) InsertUser(
	ctx context.Context,
	email string,
	passwordHash string,
	status string,
	confirmed *time.Time,
) (uuid.UUID, error) {
	exists, err := d.exists(ctx, "users", sq.Eq{"email": email})
	if err != nil {
		return uuid.UUID{}, err
	}
	if exists {
		return uuid.UUID{}, ErrAlreadyExists
	}
	id := uuid.New()
	now := time.Now().UTC()
	insert := sq.Insert("users").
		Columns(
			"id",
			"email",
			"password",
			"status",
			"email_confirmed",
			"failure_count",
			"created_at").
		Values(id, email, passwordHash, status, confirmed, 0, now)
	_, err = d.insertStatement(ctx, insert, nil)
	if err != nil {
		return uuid.UUID{}, err
	}
	return id, nil
}

// ConfirmUser flips a pending account to active and stamps the
// confirmation time
func (d *DataStore) ConfirmUser(ctx context.Context, userID uuid.UUID) error {
	now := time.Now().UTC()
	update := sq.Update("users").
		Set("email_confirmed", now).
		Set("status", UserStatusActive).
		Set("updated_at", now).
		Where(sq.Eq{"id": userID})
	res, err := d.updateStatement(ctx, update, nil)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPassword replaces the stored password hash and stamps the change time
func (d *DataStore) SetPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	now := time.Now().UTC()
	update := sq.Update("users").
		Set("password", passwordHash).
		Set("last_password_change", now).
		Set("updated_at", now).
		Where(sq.Eq{"id": userID})
	res, err := d.updateStatement(ctx, update, nil)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordLoginFailure increments the consecutive failure counter and,
// once lockoutCount is reached, transitions the account to locked in
// the same transaction. Returns the new counter value and whether the
// account got locked by this failure.
func (d *DataStore) RecordLoginFailure(
	ctx context.Context,
	userID uuid.UUID,
	lockoutCount int,
	lockoutDuration time.Duration,
) (int, bool, error) {
	var count int
	var locked bool
	err := d.inTransaction(ctx, func(tx *sqlx.Tx) error {
		q := sq.Select("failure_count").From("users").Where(sq.Eq{"id": userID})
		err := d.getStatement(ctx, &count, q, tx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		count++
		now := time.Now().UTC()
		update := sq.Update("users").
			Set("failure_count", count).
			Set("updated_at", now).
			Where(sq.Eq{"id": userID})
		if count >= lockoutCount {
			locked = true
			update = update.
				Set("status", UserStatusLocked).
				Set("lockout_till", now.Add(lockoutDuration))
		}
		_, err = d.updateStatement(ctx, update, tx)
		return err
	})
	if err != nil {
		return 0, false, err
	}
	return count, locked, nil
}

// RecordLoginSuccess resets the failure counter and stamps the sign in time
func (d *DataStore) RecordLoginSuccess(ctx context.Context, userID uuid.UUID) error {
	now := time.Now().UTC()
	update := sq.Update("users").
		Set("failure_count", 0).
		Set("last_sign_in", now).
		Set("updated_at", now).
		Where(sq.Eq{"id": userID})
	_, err := d.updateStatement(ctx, update, nil)
	return err
}

// LockUser puts the account into locked state until the given time
func (d *DataStore) LockUser(ctx context.Context, userID uuid.UUID, until time.Time) error {
	update := sq.Update("users").
		Set("status", UserStatusLocked).
		Set("lockout_till", until).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": userID})
	res, err := d.updateStatement(ctx, update, nil)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UnlockUser clears the lockout and resets the failure counter,
// the account returns to active
func (d *DataStore) UnlockUser(ctx context.Context, userID uuid.UUID) error {
	update := sq.Update("users").
		Set("status", UserStatusActive).
		Set("lockout_till", nil).
		Set("failure_count", 0).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": userID, "status": UserStatusLocked})
	res, err := d.updateStatement(ctx, update, nil)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkDeleted soft deletes the account, the row survives for the
// configured grace period
func (d *DataStore) MarkDeleted(ctx context.Context, userID uuid.UUID) error {
	now := time.Now().UTC()
	update := sq.Update("users").
		Set("status", UserStatusDeleted).
		Set("deleted_at", now).
		Set("updated_at", now).
		Where(sq.Eq{"id": userID}).
		Where("deleted_at IS NULL")
	res, err := d.updateStatement(ctx, update, nil)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Reactivate undoes a soft delete within the grace period
func (d *DataStore) Reactivate(ctx context.Context, userID uuid.UUID) error {
	update := sq.Update("users").
		Set("status", UserStatusActive).
		Set("deleted_at", nil).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": userID, "status": UserStatusDeleted})
	res, err := d.updateStatement(ctx, update, nil)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeDeletedUsers removes accounts whose deletion grace period has lapsed
func (d *DataStore) PurgeDeletedUsers(ctx context.Context, olderThan time.Time) (int64, error) {
	del := sq.Delete("users").
		Where(sq.Eq{"status": UserStatusDeleted}).
		Where(sq.Lt{"deleted_at": olderThan})
	res, err := d.deleteStatement(ctx, del, nil)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
