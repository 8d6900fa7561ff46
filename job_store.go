package main

import (
	"sync"
	"time"
)

// jobTable is the authoritative in-memory map from token to job record.
// Reads return cloned snapshots so handlers never observe a half-applied
// mutation; writes go through Update so the lock covers the whole record.
type jobTable struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func newJobTable() *jobTable {
	return &jobTable{jobs: make(map[string]*Job)}
}

// Create registers a new queued job for the token.
func (t *jobTable) Create(token, sourceURL, quality string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[token] = &Job{
		Token:     token,
		SourceURL: sourceURL,
		Quality:   quality,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
	}
}

// Get returns a snapshot of the job for the token.
func (t *jobTable) Get(token string) (Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[token]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Update applies fn to the job under the write lock. Only the worker owning
// the token or the reaper call this.
func (t *jobTable) Update(token string, fn func(*Job)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[token]
	if !ok {
		return false
	}
	fn(job)
	return true
}

// Delete removes the record for the token.
func (t *jobTable) Delete(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobs, token)
}

// FindProcessingByURL returns the token of a processing job for the source
// URL, used for duplicate suppression.
func (t *jobTable) FindProcessingByURL(sourceURL string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for token, job := range t.jobs {
		if job.SourceURL == sourceURL && job.Status == StatusProcessing {
			return token, true
		}
	}
	return "", false
}

// Snapshot returns copies of all records, for the reaper's sweep.
func (t *jobTable) Snapshot() []Job {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Job, 0, len(t.jobs))
	for _, job := range t.jobs {
		out = append(out, *job)
	}
	return out
}

// Len returns the number of tracked jobs.
func (t *jobTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.jobs)
}
