package main

import "time"

// JobStatus represents the current state of a conversion job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job holds the full state of a single conversion request. A job is created
// queued, mutated by exactly one worker while processing, and becomes
// read-mostly once terminal until the reaper prunes it.
type Job struct {
	Token             string    `json:"token"`
	SourceURL         string    `json:"url"`
	Quality           string    `json:"quality,omitempty"`
	Status            JobStatus `json:"status"`
	Progress          string    `json:"progress,omitempty"`
	Title             string    `json:"video_title,omitempty"`
	Filename          string    `json:"filename,omitempty"`
	FilePath          string    `json:"file_path,omitempty"`
	FileSizeBytes     int64     `json:"file_size,omitempty"`
	ConversionSeconds float64   `json:"conversion_time_seconds,omitempty"`
	Error             string    `json:"error,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	StartedAt         time.Time `json:"started_at,omitzero"`
	CompletedAt       time.Time `json:"completed_at,omitzero"`
	ExpiresAt         time.Time `json:"expires_at,omitzero"`
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// VideoInfo is the metadata resolved for a source URL.
type VideoInfo struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Duration  float64 `json:"duration"`
	Thumbnail string  `json:"thumbnail"`
	Uploader  string  `json:"uploader"`
	ViewCount int64   `json:"view_count"`
}

// ConvertRequest is the body of POST /convert.
type ConvertRequest struct {
	URL     string `json:"url"`
	Quality string `json:"quality"`
}

// MetadataRequest is the body of POST /video/metadata.
type MetadataRequest struct {
	URL string `json:"url"`
}

// ConvertResponse is returned by POST /convert.
type ConvertResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// HealthStatus is returned by GET /health.
type HealthStatus struct {
	Status     string `json:"status"`
	Timestamp  string `json:"timestamp"`
	ActiveJobs int64  `json:"active_jobs"`
	QueuedJobs int64  `json:"queued_jobs"`
	Workers    int    `json:"workers"`
	Uptime     string `json:"uptime"`
}
