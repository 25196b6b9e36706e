package cron

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

// testPurger implements Purger for job tests.
type testPurger struct {
	calls     atomic.Int32
	purgeFunc func(cutoff time.Time) (int64, error)
}

func (p *testPurger) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	p.calls.Add(1)
	if p.purgeFunc != nil {
		return p.purgeFunc(cutoff)
	}
	return 0, nil
}

func TestRetentionJob_NameAndSchedule(t *testing.T) {
	t.Parallel()
	j := &RetentionJob{}
	if j.Name() != "retention" {
		t.Errorf("name = %q, want %q", j.Name(), "retention")
	}
	if j.Schedule() != "0 * * * *" {
		t.Errorf("schedule = %q, want %q", j.Schedule(), "0 * * * *")
	}
	j.ScheduleExpr = "*/30 * * * *"
	if j.Schedule() != "*/30 * * * *" {
		t.Errorf("schedule = %q, want override", j.Schedule())
	}
}

func TestRetentionJob_Cutoff(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

	j := &RetentionJob{Now: func() time.Time { return now }}
	if got, want := j.Cutoff(), now.Add(-72*time.Hour); !got.Equal(want) {
		t.Errorf("cutoff = %v, want %v", got, want)
	}

	j.MaxAge = time.Hour
	if got, want := j.Cutoff(), now.Add(-time.Hour); !got.Equal(want) {
		t.Errorf("cutoff = %v, want %v", got, want)
	}
}

func TestRetentionJob_Run(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

	store := &testPurger{
		purgeFunc: func(cutoff time.Time) (int64, error) {
			if !cutoff.Equal(now.Add(-72 * time.Hour)) {
				t.Errorf("cutoff = %v", cutoff)
			}
			return 3, nil
		},
	}

	j := &RetentionJob{Store: store, Logger: slog.Default(), Now: func() time.Time { return now }}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.calls.Load() != 1 {
		t.Errorf("purge calls = %d, want 1", store.calls.Load())
	}
}

func TestRetentionJob_RunError(t *testing.T) {
	t.Parallel()
	cause := errors.New("disk I/O error")
	j := &RetentionJob{Store: &testPurger{
		purgeFunc: func(time.Time) (int64, error) { return 0, cause },
	}}

	if err := j.Run(context.Background()); !errors.Is(err, cause) {
		t.Fatalf("error = %v, want wrapping %v", err, cause)
	}
}
