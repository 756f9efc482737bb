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

// ActiveFreeze returns the currently effective freeze for an ip address
// or ErrNotFound when the address is not frozen
func (d *DataStore) ActiveFreeze(ctx context.Context, ip string) (*tables.IPFreezeTable, error) {
	var freeze tables.IPFreezeTable
	q := sq.Select("*").
		From("ip_freezes").
		Where(sq.Eq{"ip_address": ip, "manually_unfrozen": false}).
		Where(sq.Gt{"unfreeze_at": time.Now().UTC()}).
		OrderBy("frozen_at DESC").
		Limit(1)
	err := d.getStatement(ctx, &freeze, q, nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &freeze, nil
}

// InsertFreeze freezes an ip address for the given duration, the call
// is idempotent: a still active freeze for the same address is returned
// as is instead of creating a second row
func (d *DataStore) InsertFreeze(
	ctx context.Context,
	ip string,
	reason string,
	duration time.Duration,
	failedAttempts int,
) (*tables.IPFreezeTable, error) {
	var freeze *tables.IPFreezeTable
	err := d.inTransaction(ctx, func(tx *sqlx.Tx) error {
		var existing tables.IPFreezeTable
		q := sq.Select("*").
			From("ip_freezes").
			Where(sq.Eq{"ip_address": ip, "manually_unfrozen": false}).
			Where(sq.Gt{"unfreeze_at": time.Now().UTC()}).
			OrderBy("frozen_at DESC").
			Limit(1)
		err := d.getStatement(ctx, &existing, q, tx)
		if err == nil {
			freeze = &existing
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		now := time.Now().UTC()
		created := &tables.IPFreezeTable{
			ID:             uuid.New(),
			IPAddress:      ip,
			Reason:         reason,
			FrozenAt:       now,
			UnfreezeAt:     now.Add(duration),
			FailedAttempts: failedAttempts,
		}
		insert := sq.Insert("ip_freezes").
			Columns(
				"id",
				"ip_address",
				"reason",
				"frozen_at",
				"unfreeze_at",
				"manually_unfrozen",
				"failed_attempts").
			Values(
				created.ID,
				created.IPAddress,
				created.Reason,
				created.FrozenAt,
				created.UnfreezeAt,
				false,
				created.FailedAttempts)
		_, err = d.insertStatement(ctx, insert, tx)
		if err != nil {
			return err
		}
		freeze = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return freeze, nil
}

// UnfreezeManually lifts an active freeze ahead of its expiry,
// recording who did it
func (d *DataStore) UnfreezeManually(ctx context.Context, ip string, by *uuid.UUID) error {
	update := sq.Update("ip_freezes").
		Set("manually_unfrozen", true).
		Set("unfrozen_by", by).
		Set("unfrozen_at", time.Now().UTC()).
		Where(sq.Eq{"ip_address": ip, "manually_unfrozen": false}).
		Where(sq.Gt{"unfreeze_at": time.Now().UTC()})
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

// FrozenIPs lists all currently active freezes
func (d *DataStore) FrozenIPs(ctx context.Context) ([]tables.IPFreezeTable, error) {
	var freezes []tables.IPFreezeTable
	q := sq.Select("*").
		From("ip_freezes").
		Where(sq.Eq{"manually_unfrozen": false}).
		Where(sq.Gt{"unfreeze_at": time.Now().UTC()}).
		OrderBy("frozen_at DESC")
	err := d.selectStatement(ctx, &freezes, q, nil)
	if err != nil {
		return nil, err
	}
	return freezes, nil
}

// ActiveFreezeCount counts currently active freezes
func (d *DataStore) ActiveFreezeCount(ctx context.Context) (int, error) {
	var count int
	q := sq.Select("COUNT(*)").
		From("ip_freezes").
		Where(sq.Eq{"manually_unfrozen": false}).
		Where(sq.Gt{"unfreeze_at": time.Now().UTC()})
	err := d.getStatement(ctx, &count, q, nil)
	if err != nil {
		return 0, err
	}
	return count, nil
}
