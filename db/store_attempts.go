package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lcampe/guardian/db/tables"

	sq "github.com/Masterminds/squirrel"
)

// login attempt results as persisted in the login_attempts table
const (
	AttemptSuccess         = "success"
	AttemptFailedPassword  = "failed_password"
	AttemptFailedCaptcha   = "failed_captcha"
	AttemptBlockedFrozen   = "blocked_frozen"
	AttemptBlockedLocked   = "blocked_locked"
	AttemptAccountInactive = "account_inactive"
)

// failureResults are the attempt results that feed the escalation
// counters, blocked attempts never escalate further
var failureResults = []string{AttemptFailedPassword, AttemptFailedCaptcha}

// InsertLoginAttempt appends a row to the login attempt ledger
func (d *DataStore) InsertLoginAttempt(
	ctx context.Context,
	attempt *tables.LoginAttemptTable,
) error {
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.AttemptTime.IsZero() {
		attempt.AttemptTime = time.Now().UTC()
	}
	insert := sq.Insert("login_attempts").
		Columns(
			"id",
			"user_id",
			"email",
			"ip_address",
			"user_agent",
			"result",
			"failure_reason",
			"captcha_required",
			"captcha_verified",
			"attempt_time").
		Values(
			attempt.ID,
			attempt.UserID,
			attempt.Email,
			attempt.IPAddress,
			attempt.UserAgent,
			attempt.Result,
			attempt.FailureReason,
			attempt.CaptchaRequired,
			attempt.CaptchaVerified,
			attempt.AttemptTime)
	_, err := d.insertStatement(ctx, insert, nil)
	return err
}

// CountFailedAttemptsByEmail counts escalation relevant failures for
// an email address within the window starting at since
func (d *DataStore) CountFailedAttemptsByEmail(
	ctx context.Context,
	email string,
	since time.Time,
) (int, error) {
	var count int
	q := sq.Select("COUNT(*)").
		From("login_attempts").
		Where(sq.Eq{"email": email}).
		Where(sq.Eq{"result": failureResults}).
		Where(sq.GtOrEq{"attempt_time": since})
	err := d.getStatement(ctx, &count, q, nil)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountFailedAttemptsByIP counts escalation relevant failures
// originating from an ip address within the window starting at since
func (d *DataStore) CountFailedAttemptsByIP(
	ctx context.Context,
	ip string,
	since time.Time,
) (int, error) {
	var count int
	q := sq.Select("COUNT(*)").
		From("login_attempts").
		Where(sq.Eq{"ip_address": ip}).
		Where(sq.Eq{"result": failureResults}).
		Where(sq.GtOrEq{"attempt_time": since})
	err := d.getStatement(ctx, &count, q, nil)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// AttemptStatsRow is a per-result tally over a time window
type AttemptStatsRow struct {
	Result string `db:"result"`
	Count  int    `db:"count"`
}

// AttemptStats tallies attempt results since the given time,
// used by the operator statistics command
func (d *DataStore) AttemptStats(
	ctx context.Context,
	since time.Time,
) ([]AttemptStatsRow, error) {
	var rows []AttemptStatsRow
	q := sq.Select("result", "COUNT(*) as count").
		From("login_attempts").
		Where(sq.GtOrEq{"attempt_time": since}).
		GroupBy("result")
	err := d.selectStatement(ctx, &rows, q, nil)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteOldAttempts trims ledger rows older than the retention cutoff
func (d *DataStore) DeleteOldAttempts(ctx context.Context, olderThan time.Time) (int64, error) {
	del := sq.Delete("login_attempts").Where(sq.Lt{"attempt_time": olderThan})
	res, err := d.deleteStatement(ctx, del, nil)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
