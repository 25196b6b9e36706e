package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/delixor/shadowbot/internal/metrics"
)

// Retention defaults.
const (
	DefaultRetention     = 72 * time.Hour
	DefaultSweepSchedule = "0 * * * *"
	RetentionJobName     = "retention"
)

// Purger is the subset of store.MessageStore needed by RetentionJob.
type Purger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob deletes shadow messages older than MaxAge.
type RetentionJob struct {
	Store        Purger
	MaxAge       time.Duration // zero = DefaultRetention
	Logger       *slog.Logger
	ScheduleExpr string // empty = DefaultSweepSchedule
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

// Compile-time interface check.
var _ Job = (*RetentionJob)(nil)

// Name implements Job.
func (j *RetentionJob) Name() string {
	return RetentionJobName
}

// Schedule implements Job.
func (j *RetentionJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return DefaultSweepSchedule
}

// Cutoff returns the creation time before which messages are purged.
func (j *RetentionJob) Cutoff() time.Time {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	maxAge := j.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultRetention
	}
	return now().Add(-maxAge)
}

// Run purges every message created before Cutoff.
func (j *RetentionJob) Run(ctx context.Context) error {
	cutoff := j.Cutoff()
	purged, err := j.Store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cron: retention purge before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	j.Metrics.Purged(purged)
	if purged > 0 && j.Logger != nil {
		j.Logger.Info("cron: purged expired shadow messages", "count", purged, "cutoff", cutoff)
	}
	return nil
}
