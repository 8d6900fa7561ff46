package main

import (
	"context"
	"log/slog"
	"time"
)

// reaper periodically deletes expired artifacts and prunes terminal job
// records. Each sweep works over a snapshot; delete and prune are idempotent
// per job, so a sweep interrupted by shutdown leaves no partial state.
type reaper struct {
	jobs      *jobTable
	artifacts *artifactStore
	interval  time.Duration
	logger    *slog.Logger
	done      chan struct{}
}

func newReaper(jobs *jobTable, artifacts *artifactStore, interval time.Duration, logger *slog.Logger) *reaper {
	return &reaper{
		jobs:      jobs,
		artifacts: artifacts,
		interval:  interval,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Run loops until the context is cancelled. Callers use Wait to be sure an
// in-flight sweep has finished before tearing anything down.
func (r *reaper) Run(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(time.Now())
		}
	}
}

// Wait blocks until the loop has fully stopped.
func (r *reaper) Wait() {
	<-r.done
}

func (r *reaper) sweep(now time.Time) {
	for _, job := range r.jobs.Snapshot() {
		expired := !job.ExpiresAt.IsZero() && job.ExpiresAt.Before(now)
		if expired && job.FilePath != "" {
			if err := r.artifacts.Delete(job.FilePath); err != nil {
				r.logger.Error("artifact delete failed", "token", job.Token, "path", job.FilePath, "error", err)
				continue
			}
			r.logger.Info("expired artifact deleted", "token", job.Token, "path", job.FilePath)
		}
		// Processing records are never pruned, even if somehow marked
		// expired. Failed records are prunable immediately; completed ones
		// only once past expiry.
		if job.Status == StatusProcessing {
			continue
		}
		if expired || job.Status == StatusFailed {
			r.jobs.Delete(job.Token)
			r.logger.Info("job record pruned", "token", job.Token, "status", string(job.Status))
		}
	}
}
