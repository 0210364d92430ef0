// Package jobs runs the periodic background sweeps.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/metrics"
)

const (
	ReminderInterval = time.Hour
	DeletionInterval = 24 * time.Hour
)

// Sweep is one run of a job. It returns how many items it handled.
type Sweep func(ctx context.Context, now time.Time) (int, error)

type Job struct {
	Name     string
	Interval time.Duration
	Run      Sweep
}

// Start runs every job once and then on its interval until done is closed.
func Start(done chan struct{}, jobs ...Job) {
	for _, j := range jobs {
		go loop(done, j)
	}
}

func loop(done chan struct{}, j Job) {
	RunOnce(context.Background(), j, time.Now())

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()
	for {
		select {
		case t := <-ticker.C:
			RunOnce(context.Background(), j, t)
		case <-done:
			return
		}
	}
}

// RunOnce executes a single sweep and records its result.
func RunOnce(ctx context.Context, j Job, now time.Time) {
	n, err := j.Run(ctx, now)
	if err != nil {
		metrics.JobRuns.WithLabelValues(j.Name, "error").Inc()
		slog.Error("job failed", "job", j.Name, "error", err)
		return
	}
	metrics.JobRuns.WithLabelValues(j.Name, "ok").Inc()
	if n > 0 {
		slog.Info("job completed", "job", j.Name, "handled", n)
	}
}
