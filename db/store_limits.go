package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lcampe/guardian/db/tables"

	sq "github.com/Masterminds/squirrel"
)

// verification limit dimensions as persisted in email_verification_limits
const (
	LimitTypeEmail  = "email"
	LimitTypeIP     = "ip"
	LimitTypeGlobal = "global"
)

// ErrLimitExceeded indicates the sliding window quota is exhausted
var ErrLimitExceeded = errors.New("rate limit exceeded")

// BumpVerificationCounter increments the sliding window counter for a
// (limit type, identifier) pair. A lapsed window restarts at one, an
// exhausted window yields ErrLimitExceeded without counting.
func (d *DataStore) BumpVerificationCounter(
	ctx context.Context,
	limitType string,
	identifier string,
	max int,
	window time.Duration,
) error {
	return d.inTransaction(ctx, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		var entry tables.EmailVerificationLimitTable
		q := sq.Select("*").
			From("email_verification_limits").
			Where(sq.Eq{"limit_type": limitType, "identifier": identifier})
		err := d.getStatement(ctx, &entry, q, tx)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			insert := sq.Insert("email_verification_limits").
				Columns(
					"limit_type",
					"identifier",
					"request_count",
					"window_start",
					"window_end",
					"last_request").
				Values(limitType, identifier, 1, now, now.Add(window), now)
			_, err = d.insertStatement(ctx, insert, tx)
			return err
		}
		if now.After(entry.WindowEnd) {
			update := sq.Update("email_verification_limits").
				Set("request_count", 1).
				Set("window_start", now).
				Set("window_end", now.Add(window)).
				Set("last_request", now).
				Where(sq.Eq{"id": entry.ID})
			_, err = d.updateStatement(ctx, update, tx)
			return err
		}
		if entry.RequestCount >= max {
			return ErrLimitExceeded
		}
		update := sq.Update("email_verification_limits").
			Set("request_count", entry.RequestCount+1).
			Set("last_request", now).
			Where(sq.Eq{"id": entry.ID})
		_, err = d.updateStatement(ctx, update, tx)
		return err
	})
}

// VerificationCount returns the live counter for a (limit type,
// identifier) pair, lapsed windows read as zero
func (d *DataStore) VerificationCount(
	ctx context.Context,
	limitType string,
	identifier string,
) (int, error) {
	var entry tables.EmailVerificationLimitTable
	q := sq.Select("*").
		From("email_verification_limits").
		Where(sq.Eq{"limit_type": limitType, "identifier": identifier})
	err := d.getStatement(ctx, &entry, q, nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	if time.Now().UTC().After(entry.WindowEnd) {
		return 0, nil
	}
	return entry.RequestCount, nil
}

// DeleteStaleLimitWindows removes counters whose window lapsed before
// the cutoff
func (d *DataStore) DeleteStaleLimitWindows(ctx context.Context, olderThan time.Time) (int64, error) {
	del := sq.Delete("email_verification_limits").Where(sq.Lt{"window_end": olderThan})
	res, err := d.deleteStatement(ctx, del, nil)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
