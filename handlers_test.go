package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func doJSON(t *testing.T, s *server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	return rec
}

func TestConvertValidation(t *testing.T) {
	s, _ := newTestServer(t, &fakeResolver{info: testVideoInfo()}, succeedingExtractor(t))

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", "{", http.StatusBadRequest},
		{"missing url", `{"url":""}`, http.StatusBadRequest},
		{"disallowed host", `{"url":"https://vimeo.com/123"}`, http.StatusBadRequest},
		{"bad quality", `{"url":"` + testVideoURL + `","quality":"ultra"}`, http.StatusBadRequest},
		{"valid", `{"url":"` + testVideoURL + `","quality":"low"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/convert", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			// Drain accepted work before returning so the worker does
			// not outlive the test's temp directories.
			if rec.Code == http.StatusOK {
				var resp ConvertResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatal(err)
				}
				waitForTerminal(t, s, resp.Token)
				waitForRelease(t, s, testVideoURL)
			}
		})
	}
}

func TestConvertDuplicateReturnsExistingToken(t *testing.T) {
	release := make(chan struct{})
	extractor := &fakeExtractor{fn: func(ctx context.Context, attempt extractionAttempt, outputBase string, onProgress func(string)) error {
		<-release
		writeArtifact(t, outputBase+".mp3", minArtifactBytes+1)
		return nil
	}}
	s, _ := newTestServer(t, &fakeResolver{info: testVideoInfo()}, extractor)

	first := submit(t, s, testVideoURL, "high")
	waitForStatus(t, s, first, StatusProcessing)

	second := submit(t, s, testVideoURL, "high")
	if second != first {
		t.Errorf("duplicate submission got token %s, want %s", second, first)
	}
	if s.jobs.Len() != 1 {
		t.Errorf("duplicate created a new record: %d jobs", s.jobs.Len())
	}
	close(release)
	waitForStatus(t, s, first, StatusCompleted)
}

func TestConvertRejectsWhenQueueFull(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxConcurrent = 0 // no workers draining
	cfg.QueueCapacity = 0
	s := newServer(cfg, testLogger(), &fakeResolver{info: testVideoInfo()}, succeedingExtractor(t))

	rec := doJSON(t, s, http.MethodPost, "/convert", `{"url":"`+testVideoURL+`","quality":"low"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if s.jobs.Len() != 0 {
		t.Error("rejected submission left a job record behind")
	}
	if s.admission.Active(testVideoURL) {
		t.Error("rejected submission left the url in the active set")
	}
}

func TestStatusEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &fakeResolver{info: testVideoInfo()}, succeedingExtractor(t))

	if rec := doJSON(t, s, http.MethodGet, "/status/unknown-token", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown token status = %d, want 404", rec.Code)
	}

	token := submit(t, s, testVideoURL, "low")
	waitForStatus(t, s, token, StatusCompleted)

	rec := doJSON(t, s, http.MethodGet, "/status/"+token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var job Job
	if err := json.NewDecoder(rec.Body).Decode(&job); err != nil {
		t.Fatal(err)
	}
	if job.Token != token || job.Status != StatusCompleted {
		t.Errorf("job = %+v", job)
	}
}

func TestDownloadFlow(t *testing.T) {
	s, _ := newTestServer(t, &fakeResolver{info: testVideoInfo()}, succeedingExtractor(t))

	token := submit(t, s, testVideoURL, "low")
	job := waitForStatus(t, s, token, StatusCompleted)

	rec := doJSON(t, s, http.MethodGet, "/download/"+token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") || !strings.Contains(cd, job.Filename) {
		t.Errorf("content-disposition = %q", cd)
	}
	if int64(rec.Body.Len()) != job.FileSizeBytes {
		t.Errorf("served %d bytes, artifact is %d", rec.Body.Len(), job.FileSizeBytes)
	}
}

func TestDownloadExtendsRetention(t *testing.T) {
	s, _ := newTestServer(t, &fakeResolver{info: testVideoInfo()}, succeedingExtractor(t))

	token := submit(t, s, testVideoURL, "low")
	before := waitForStatus(t, s, token, StatusCompleted)

	time.Sleep(10 * time.Millisecond)
	if rec := doJSON(t, s, http.MethodGet, "/download/"+token, ""); rec.Code != http.StatusOK {
		t.Fatalf("download status = %d", rec.Code)
	}

	after, _ := s.jobs.Get(token)
	if !after.ExpiresAt.After(before.ExpiresAt) {
		t.Errorf("expiry not extended: before %v, after %v", before.ExpiresAt, after.ExpiresAt)
	}
}

func TestDownloadNotFoundCases(t *testing.T) {
	s, _ := newTestServer(t, &fakeResolver{info: testVideoInfo()}, succeedingExtractor(t))

	if rec := doJSON(t, s, http.MethodGet, "/download/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown token download = %d, want 404", rec.Code)
	}

	// Completed but artifact vanished from disk.
	token := submit(t, s, testVideoURL, "low")
	job := waitForStatus(t, s, token, StatusCompleted)
	if err := s.artifacts.Delete(job.FilePath); err != nil {
		t.Fatal(err)
	}
	if rec := doJSON(t, s, http.MethodGet, "/download/"+token, ""); rec.Code != http.StatusNotFound {
		t.Errorf("vanished artifact download = %d, want 404", rec.Code)
	}
}

func TestDownloadAfterReaperSweepIs404(t *testing.T) {
	s, _ := newTestServer(t, &fakeResolver{info: testVideoInfo()}, succeedingExtractor(t))
	sweeper := newReaper(s.jobs, s.artifacts, time.Minute, testLogger())

	token := submit(t, s, testVideoURL, "low")
	job := waitForStatus(t, s, token, StatusCompleted)

	s.jobs.Update(token, func(j *Job) { j.ExpiresAt = time.Now().Add(-time.Minute) })
	sweeper.sweep(time.Now())

	if s.artifacts.Exists(job.FilePath) {
		t.Error("artifact survived the sweep")
	}
	if rec := doJSON(t, s, http.MethodGet, "/download/"+token, ""); rec.Code != http.StatusNotFound {
		t.Errorf("download after sweep = %d, want 404", rec.Code)
	}
}

func TestMetadataEndpoint(t *testing.T) {
	resolver := &fakeResolver{info: testVideoInfo()}
	s, _ := newTestServer(t, resolver, succeedingExtractor(t))

	rec := doJSON(t, s, http.MethodPost, "/video/metadata", `{"url":"`+testVideoURL+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("metadata status = %d: %s", rec.Code, rec.Body.String())
	}
	var info VideoInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.Title != "Test Video" {
		t.Errorf("title = %q", info.Title)
	}
	if s.jobs.Len() != 0 {
		t.Error("metadata lookup must not create a job")
	}

	if rec := doJSON(t, s, http.MethodPost, "/video/metadata", `{"url":"https://vimeo.com/1"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid url metadata = %d, want 400", rec.Code)
	}
}

func TestHostFilterMiddleware(t *testing.T) {
	s, _ := newTestServer(t, &fakeResolver{info: testVideoInfo()}, succeedingExtractor(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Host = "evil.com"
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("disallowed host = %d, want 403", rec.Code)
	}

	if rec := doJSON(t, s, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("allowed host = %d, want 200", rec.Code)
	}
}

func TestCORSHeaders(t *testing.T) {
	s, _ := newTestServer(t, &fakeResolver{info: testVideoInfo()}, succeedingExtractor(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Errorf("allow-origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.com")
	rec = httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow-origin %q for unlisted origin", got)
	}
}

func TestHealthAndStats(t *testing.T) {
	s, _ := newTestServer(t, &fakeResolver{info: testVideoInfo()}, succeedingExtractor(t))

	rec := doJSON(t, s, http.MethodGet, "/health", "")
	var health HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" || health.Timestamp == "" || health.Workers != s.cfg.MaxConcurrent {
		t.Errorf("health = %+v", health)
	}

	token := submit(t, s, testVideoURL, "low")
	waitForStatus(t, s, token, StatusCompleted)

	rec = doJSON(t, s, http.MethodGet, "/stats", "")
	var stats map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if got := stats["completed_jobs"].(float64); got != 1 {
		t.Errorf("completed_jobs = %v, want 1", got)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := testConfig(t)
	cfg.RequestsPerSecond = 1
	cfg.BurstSize = 1
	s := newServer(cfg, testLogger(), &fakeResolver{info: testVideoInfo()}, succeedingExtractor(t))

	if rec := doJSON(t, s, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("first request = %d", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodGet, "/health", ""); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request = %d, want 429", rec.Code)
	}
}
