package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"
)

// startWorkers launches the fixed pool that drains the admission queue.
// Pool size is the concurrency bound: at most MaxConcurrent jobs are
// processing at any moment.
func (s *server) startWorkers(ctx context.Context) {
	for i := 0; i < s.cfg.MaxConcurrent; i++ {
		s.workers.Add(1)
		go s.worker(ctx, i)
	}
}

func (s *server) worker(ctx context.Context, id int) {
	defer s.workers.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-s.admission.queue:
			s.runConversion(ctx, item)
		}
	}
}

// runConversion executes one job end to end. Every failure is converted into
// job state; nothing escapes to crash the worker. The source URL leaves the
// active set unconditionally when the run ends.
func (s *server) runConversion(ctx context.Context, item workItem) {
	defer s.admission.Release(item.sourceURL)

	s.queuedJobs.Add(-1)
	s.activeJobs.Add(1)
	defer s.activeJobs.Add(-1)

	s.logger.Info("conversion started", "token", item.token, "url", item.sourceURL, "quality", item.quality)

	info, err := s.lookupMetadata(ctx, item.sourceURL)
	if err != nil {
		s.failJob(item.token, "Unknown", fmt.Errorf("metadata resolution: %w", err))
		return
	}

	base := sanitizeFilename(info.Title) + "-" + info.ID
	outputBase := filepath.Join(s.cfg.DownloadDir, base)
	start := time.Now()

	s.jobs.Update(item.token, func(j *Job) {
		j.Status = StatusProcessing
		j.StartedAt = start
		j.Title = info.Title
		j.Filename = base + ".mp3"
		j.Progress = "Starting download..."
	})
	s.hub.Publish(progressEvent{Token: item.token, Status: StatusProcessing, Message: "Starting download..."})

	onProgress := func(msg string) {
		s.jobs.Update(item.token, func(j *Job) { j.Progress = msg })
		s.hub.Publish(progressEvent{Token: item.token, Status: StatusProcessing, Message: msg})
	}

	bitrate := bitrateFor(item.quality)
	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.cfg.RetryBackoff):
			case <-ctx.Done():
				s.failJob(item.token, info.Title, ctx.Err())
				return
			}
			onProgress(fmt.Sprintf("Retrying download (attempt %d/%d)...", attempt+1, s.cfg.MaxAttempts))
		}
		lastErr = s.extractor.Extract(ctx, item.sourceURL, attemptPlan(attempt), bitrate, outputBase, onProgress)
		if lastErr == nil {
			break
		}
		s.logger.Warn("extraction attempt failed", "token", item.token, "attempt", attempt+1, "error", lastErr)
	}
	if lastErr != nil {
		// Exhausted attempts can still leave a .part or intermediate
		// container on disk; a failed job must not own an artifact.
		s.artifacts.DiscardOutputs(outputBase)
		s.failJob(item.token, info.Title, fmt.Errorf("extraction: %w", lastErr))
		return
	}

	actual, err := s.artifacts.Locate(outputBase)
	if err != nil {
		s.failJob(item.token, info.Title, err)
		return
	}
	actual, err = s.artifacts.NormalizeMP3(actual)
	if err != nil {
		s.artifacts.DiscardOutputs(outputBase)
		s.failJob(item.token, info.Title, err)
		return
	}
	size, err := s.artifacts.ValidateSize(actual)
	if err != nil {
		s.failJob(item.token, info.Title, err)
		return
	}

	elapsed := time.Since(start)
	now := time.Now()
	s.jobs.Update(item.token, func(j *Job) {
		j.Status = StatusCompleted
		j.Progress = "Completed"
		j.Filename = filepath.Base(actual)
		j.FilePath = actual
		j.FileSizeBytes = size
		j.ConversionSeconds = elapsed.Seconds()
		j.CompletedAt = now
		j.ExpiresAt = now.Add(s.cfg.Retention)
		j.Error = ""
	})
	s.completedJobs.Add(1)
	s.hub.Close(progressEvent{Token: item.token, Status: StatusCompleted, Message: "Completed"})
	s.logger.Info("conversion completed", "token", item.token, "file", actual, "size_bytes", size, "seconds", elapsed.Seconds())
}

// failJob records a terminal failure. Title is best-effort: callers pass
// "Unknown" when metadata resolution itself failed.
func (s *server) failJob(token, title string, err error) {
	now := time.Now()
	s.jobs.Update(token, func(j *Job) {
		j.Status = StatusFailed
		j.Error = err.Error()
		j.Title = title
		j.CompletedAt = now
	})
	s.failedJobs.Add(1)
	s.hub.Close(progressEvent{Token: token, Status: StatusFailed, Error: err.Error()})
	s.logger.Error("conversion failed", "token", token, "error", err)
}

// lookupMetadata consults the cache before the resolver, honoring the
// freshness window, and populates the cache on a miss.
func (s *server) lookupMetadata(ctx context.Context, sourceURL string) (*VideoInfo, error) {
	id := videoID(sourceURL)
	if id != "" {
		if info, ok := s.cache.Get(ctx, id); ok {
			return info, nil
		}
	}
	info, err := s.resolver.Resolve(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	if info.ID != "" {
		s.cache.Put(ctx, info.ID, info)
	}
	return info, nil
}
