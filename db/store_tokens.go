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

// session token types as persisted in the tokens table
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrTokenRevoked indicates the session token has already been revoked,
// seeing this on rotation means the refresh token was replayed
var ErrTokenRevoked = errors.New("token has already been revoked")

// InsertSessionToken persists a session token row keyed by its jti
func (d *DataStore) InsertSessionToken(
	ctx context.Context,
	jti string,
	userID uuid.UUID,
	tokenType string,
	token *string,
	deviceInfo *string,
	issuedAt time.Time,
	expiresAt time.Time,
) error {
	insert := sq.Insert("tokens").
		Columns(
			"jti",
			"user_id",
			"token_type",
			"token",
			"device_info",
			"issued_at",
			"expires_at").
		Values(jti, userID, tokenType, token, deviceInfo, issuedAt, expiresAt)
	_, err := d.insertStatement(ctx, insert, nil)
	return err
}

// SessionTokenByJTI loads a token row by its jwt id
func (d *DataStore) SessionTokenByJTI(ctx context.Context, jti string) (*tables.TokenTable, error) {
	var token tables.TokenTable
	q := sq.Select("*").From("tokens").Where(sq.Eq{"jti": jti})
	err := d.getStatement(ctx, &token, q, nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &token, nil
}

// IsTokenRevoked reports whether a revocation entry exists for the jti.
// Access tokens only get a row once revoked, so a missing row means
// the token is still good.
func (d *DataStore) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	q := sq.Select("1").
		Prefix("SELECT EXISTS (").
		From("tokens").
		Where(sq.Eq{"jti": jti}).
		Where("revoked_at IS NOT NULL").
		Suffix(")")
	err := q.RunWith(d.db).ScanContext(ctx, &revoked)
	if err != nil {
		return false, err
	}
	return revoked, nil
}

// RevokeToken marks an existing token row revoked, already revoked
// rows yield ErrTokenRevoked
func (d *DataStore) RevokeToken(ctx context.Context, jti string) error {
	now := time.Now().UTC()
	update := sq.Update("tokens").
		Set("revoked_at", now).
		Set("updated_at", now).
		Where(sq.Eq{"jti": jti}).
		Where("revoked_at IS NULL")
	res, err := d.updateStatement(ctx, update, nil)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		exists, err := d.exists(ctx, "tokens", sq.Eq{"jti": jti})
		if err != nil {
			return err
		}
		if exists {
			return ErrTokenRevoked
		}
		return ErrNotFound
	}
	return nil
}

// BlacklistAccessToken records a revocation entry for a stateless
// access token that never had a row
func (d *DataStore) BlacklistAccessToken(
	ctx context.Context,
	jti string,
	userID uuid.UUID,
	issuedAt time.Time,
	expiresAt time.Time,
) error {
	now := time.Now().UTC()
	insert := sq.Insert("tokens").
		Columns(
			"jti",
			"user_id",
			"token_type",
			"issued_at",
			"expires_at",
			"revoked_at").
		Values(jti, userID, TokenTypeAccess, issuedAt, expiresAt, now)
	_, err := d.insertStatement(ctx, insert, nil)
	return err
}

// RevokeAllForUser revokes every live token of a user, returns the
// number of tokens affected
func (d *DataStore) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	now := time.Now().UTC()
	update := sq.Update("tokens").
		Set("revoked_at", now).
		Set("updated_at", now).
		Where(sq.Eq{"user_id": userID}).
		Where("revoked_at IS NULL")
	res, err := d.updateStatement(ctx, update, nil)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RotateSessionToken revokes the old refresh token and persists its
// replacement in one transaction. The conditional update doubles as
// the replay check: rotating an already revoked token rolls the whole
// exchange back with ErrTokenRevoked.
func (d *DataStore) RotateSessionToken(
	ctx context.Context,
	oldJTI string,
	newJTI string,
	userID uuid.UUID,
	token *string,
	deviceInfo *string,
	issuedAt time.Time,
	expiresAt time.Time,
) error {
	return d.inTransaction(ctx, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		update := sq.Update("tokens").
			Set("revoked_at", now).
			Set("updated_at", now).
			Where(sq.Eq{"jti": oldJTI, "token_type": TokenTypeRefresh}).
			Where("revoked_at IS NULL")
		res, err := d.updateStatement(ctx, update, tx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrTokenRevoked
		}
		insert := sq.Insert("tokens").
			Columns(
				"jti",
				"user_id",
				"token_type",
				"token",
				"device_info",
				"issued_at",
				"expires_at").
			Values(newJTI, userID, TokenTypeRefresh, token, deviceInfo, issuedAt, expiresAt)
		_, err = d.insertStatement(ctx, insert, tx)
		return err
	})
}

// DeleteExpiredTokens removes token rows whose expiry has lapsed,
// revoked entries are kept until they expire so the blacklist holds
func (d *DataStore) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	del := sq.Delete("tokens").Where(sq.Lt{"expires_at": time.Now().UTC()})
	res, err := d.deleteStatement(ctx, del, nil)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ActiveSessionCount counts unexpired unrevoked refresh tokens
func (d *DataStore) ActiveSessionCount(ctx context.Context) (int, error) {
	var count int
	q := sq.Select("COUNT(*)").
		From("tokens").
		Where(sq.Eq{"token_type": TokenTypeRefresh}).
		Where("revoked_at IS NULL").
		Where(sq.Gt{"expires_at": time.Now().UTC()})
	err := d.getStatement(ctx, &count, q, nil)
	if err != nil {
		return 0, err
	}
	return count, nil
}
