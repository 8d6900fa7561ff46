package main

import (
	"net/http"
	"time"
)

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthStatus{
		Status:     "ok",
		Timestamp:  time.Now().Format(time.RFC3339),
		ActiveJobs: s.activeJobs.Load(),
		QueuedJobs: s.queuedJobs.Load(),
		Workers:    s.cfg.MaxConcurrent,
		Uptime:     time.Since(s.startedAt).String(),
	})
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"total_jobs":     s.jobs.Len(),
		"active_jobs":    s.activeJobs.Load(),
		"queued_jobs":    s.queuedJobs.Load(),
		"completed_jobs": s.completedJobs.Load(),
		"failed_jobs":    s.failedJobs.Load(),
		"workers":        s.cfg.MaxConcurrent,
		"queue_capacity": s.cfg.QueueCapacity,
		"uptime_seconds": time.Since(s.startedAt).Seconds(),
	})
}
