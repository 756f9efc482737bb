package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lcampe/guardian/db/tables"

	sq "github.com/Masterminds/squirrel"
)

// one time token purposes as persisted in the verification_tokens table
const (
	VerificationTypeEmail         = "email_verification"
	VerificationTypePasswordReset = "password_reset"
)

// ErrTokenUsed indicates the one time token has already been consumed
var ErrTokenUsed = errors.New("token has already been used")

// ErrTokenExpired indicates the one time token has lapsed
var ErrTokenExpired = errors.New("token has expired")

// InsertVerificationToken persists a fresh one time token
func (d *DataStore) InsertVerificationToken(
	ctx context.Context,
	token string,
	userID uuid.UUID,
	tokenType string,
	expiresAt time.Time,
) (uuid.UUID, error) {
	id := uuid.New()
	insert := sq.Insert("verification_tokens").
		Columns("id", "token", "user_id", "token_type", "created_at", "expires_at").
		Values(id, token, userID, tokenType, time.Now().UTC(), expiresAt)
	_, err := d.insertStatement(ctx, insert, nil)
	if err != nil {
		return uuid.UUID{}, err
	}
	return id, nil
}

// VerificationTokenDetails looks up a one time token by secret and purpose
func (d *DataStore) VerificationTokenDetails(
	ctx context.Context,
	token string,
	tokenType string,
) (*tables.VerificationTokenTable, error) {
	var entry tables.VerificationTokenTable
	q := sq.Select("*").
		From("verification_tokens").
		Where(sq.Eq{"token": token, "token_type": tokenType})
	err := d.getStatement(ctx, &entry, q, nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// ConsumeVerificationToken atomically marks a one time token used and
// returns its row. The conditional update makes concurrent consumers
// race safely: exactly one wins, the rest see ErrTokenUsed.
func (d *DataStore) ConsumeVerificationToken(
	ctx context.Context,
	token string,
	tokenType string,
) (*tables.VerificationTokenTable, error) {
	entry, err := d.VerificationTokenDetails(ctx, token, tokenType)
	if err != nil {
		return nil, err
	}
	// a consumed token stays consumed, even once it also expires
	if entry.UsedAt != nil {
		return nil, ErrTokenUsed
	}
	if time.Now().UTC().After(entry.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	now := time.Now().UTC()
	update := sq.Update("verification_tokens").
		Set("used_at", now).
		Where(sq.Eq{"id": entry.ID}).
		Where("used_at IS NULL")
	res, err := d.updateStatement(ctx, update, nil)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrTokenUsed
	}
	entry.UsedAt = &now
	return entry, nil
}

// InvalidateVerificationTokens voids all outstanding tokens of a purpose
// for a user, issuing a new token supersedes the old ones
func (d *DataStore) InvalidateVerificationTokens(
	ctx context.Context,
	userID uuid.UUID,
	tokenType string,
) error {
	update := sq.Update("verification_tokens").
		Set("used_at", time.Now().UTC()).
		Where(sq.Eq{"user_id": userID, "token_type": tokenType}).
		Where("used_at IS NULL")
	_, err := d.updateStatement(ctx, update, nil)
	return err
}

// DeleteExpiredVerificationTokens trims lapsed one time tokens
func (d *DataStore) DeleteExpiredVerificationTokens(ctx context.Context) (int64, error) {
	del := sq.Delete("verification_tokens").Where(sq.Lt{"expires_at": time.Now().UTC()})
	res, err := d.deleteStatement(ctx, del, nil)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
