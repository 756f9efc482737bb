package security

import (
	"context"
	"time"

	"github.com/lcampe/guardian/db"
)

// Statistics is a point in time summary of the defense posture
type Statistics struct {
	Window          time.Duration  `json:"window"`
	Attempts        map[string]int `json:"attempts"`
	ActiveFreezes   int            `json:"active_freezes"`
	ActiveSessions  int            `json:"active_sessions"`
	TotalFailures   int            `json:"total_failures"`
	TotalSuccessful int            `json:"total_successful"`
}

// StatsStore is the aggregation surface, implemented by db.DataStore
type StatsStore interface {
	AttemptStats(ctx context.Context, since time.Time) ([]db.AttemptStatsRow, error)
	ActiveFreezeCount(ctx context.Context) (int, error)
	ActiveSessionCount(ctx context.Context) (int, error)
}

// CollectStatistics tallies ledger and freeze state over the window
func CollectStatistics(
	ctx context.Context,
	store StatsStore,
	window time.Duration,
) (*Statistics, error) {
	since := time.Now().UTC().Add(-window)
	rows, err := store.AttemptStats(ctx, since)
	if err != nil {
		return nil, err
	}
	stats := &Statistics{
		Window:   window,
		Attempts: make(map[string]int, len(rows)),
	}
	for _, row := range rows {
		stats.Attempts[row.Result] = row.Count
		switch row.Result {
		case db.AttemptSuccess:
			stats.TotalSuccessful += row.Count
		case db.AttemptFailedPassword, db.AttemptFailedCaptcha:
			stats.TotalFailures += row.Count
		}
	}
	freezes, err := store.ActiveFreezeCount(ctx)
	if err != nil {
		return nil, err
	}
	stats.ActiveFreezes = freezes
	sessions, err := store.ActiveSessionCount(ctx)
	if err != nil {
		return nil, err
	}
	stats.ActiveSessions = sessions
	return stats, nil
}
