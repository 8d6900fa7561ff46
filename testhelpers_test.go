package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

const testVideoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Addr:              ":0",
		DownloadDir:       t.TempDir(),
		CacheDir:          t.TempDir(),
		MaxConcurrent:     2,
		QueueCapacity:     16,
		Retention:         10 * time.Minute,
		CacheTTL:          time.Hour,
		CleanupInterval:   time.Minute,
		MaxAttempts:       3,
		RetryBackoff:      time.Millisecond,
		AllowedDomains:    []string{"localhost", "127.0.0.1", "example.com"},
		RequestsPerSecond: 1000,
		BurstSize:         1000,
	}
}

func testVideoInfo() *VideoInfo {
	return &VideoInfo{
		ID:        "dQw4w9WgXcQ",
		Title:     "Test Video",
		Duration:  212,
		Thumbnail: "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg",
		Uploader:  "Test Channel",
		ViewCount: 42,
	}
}

type fakeResolver struct {
	info  *VideoInfo
	err   error
	calls atomic.Int64
}

func (f *fakeResolver) Resolve(ctx context.Context, sourceURL string) (*VideoInfo, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

type fakeExtractor struct {
	fn    func(ctx context.Context, attempt extractionAttempt, outputBase string, onProgress func(string)) error
	calls atomic.Int64
}

func (f *fakeExtractor) Extract(ctx context.Context, sourceURL string, attempt extractionAttempt, bitrateKbps int, outputBase string, onProgress func(string)) error {
	f.calls.Add(1)
	return f.fn(ctx, attempt, outputBase, onProgress)
}

// writeArtifact creates a plausibly-sized output file.
func writeArtifact(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.WriteFile(path, bytes.Repeat([]byte("a"), size), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
}

// succeedingExtractor writes a valid .mp3 next to the output base.
func succeedingExtractor(t *testing.T) *fakeExtractor {
	return &fakeExtractor{fn: func(ctx context.Context, attempt extractionAttempt, outputBase string, onProgress func(string)) error {
		if onProgress != nil {
			onProgress("Downloading: 100% of 3.00MiB")
		}
		writeArtifact(t, outputBase+".mp3", minArtifactBytes+1)
		return nil
	}}
}

func newTestServer(t *testing.T, resolver Resolver, extractor Extractor) (*server, context.CancelFunc) {
	t.Helper()
	s := newServer(testConfig(t), testLogger(), resolver, extractor)
	ctx, cancel := context.WithCancel(context.Background())
	s.startWorkers(ctx)
	t.Cleanup(cancel)
	return s, cancel
}

// waitForStatus polls until the job reaches the wanted status.
func waitForStatus(t *testing.T, s *server, token string, want JobStatus) Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if job, ok := s.jobs.Get(token); ok && job.Status == want {
			return job
		}
		time.Sleep(2 * time.Millisecond)
	}
	job, _ := s.jobs.Get(token)
	t.Fatalf("job %s never reached status %s, last seen %+v", token, want, job)
	return Job{}
}

// waitForRelease polls until the URL has left the active set, which happens
// in the worker's deferred cleanup and may lag the terminal status slightly.
func waitForRelease(t *testing.T, s *server, url string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !s.admission.Active(url) {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("url %s never left the active set", url)
}

func waitForTerminal(t *testing.T, s *server, token string) Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if job, ok := s.jobs.Get(token); ok && job.Terminal() {
			return job
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal status", token)
	return Job{}
}
