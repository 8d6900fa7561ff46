package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.hostFilterMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.rateLimitMiddleware)

	r.Post("/convert", s.handleConvert)
	r.Get("/status/{token}", s.handleStatus)
	r.Get("/download/{token}", s.handleDownload)
	r.Post("/video/metadata", s.handleMetadata)
	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Get("/ws/{token}", s.handleProgressWS)
	return r
}

// handleConvert validates the request, suppresses duplicates for in-flight
// URLs and schedules a new job on the bounded queue.
func (s *server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !validVideoURL(req.URL) {
		respondError(w, http.StatusBadRequest, "Invalid YouTube URL")
		return
	}
	if req.Quality == "" {
		req.Quality = "high"
	}
	if !validQuality(req.Quality) {
		respondError(w, http.StatusBadRequest, "Invalid quality: must be high, medium or low")
		return
	}

	if existing, duplicate := s.admission.Admit(req.URL); duplicate {
		respondJSON(w, http.StatusOK, ConvertResponse{Token: existing, Message: "Conversion already in progress"})
		return
	}

	token := uuid.New().String()
	s.jobs.Create(token, req.URL, req.Quality)
	s.queuedJobs.Add(1)

	if !s.admission.Enqueue(workItem{token: token, sourceURL: req.URL, quality: req.Quality}) {
		s.jobs.Delete(token)
		s.queuedJobs.Add(-1)
		s.admission.Release(req.URL)
		respondError(w, http.StatusServiceUnavailable, "Server busy, please try again later")
		return
	}

	s.logger.Info("job enqueued", "token", token, "url", req.URL, "quality", req.Quality)
	respondJSON(w, http.StatusOK, ConvertResponse{Token: token, Message: "Conversion started"})
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	job, ok := s.jobs.Get(token)
	if !ok {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// handleDownload serves the artifact as an attachment. Each successful fetch
// extends the job's expiry by the full retention window so an artifact being
// actively downloaded is not collected underneath the client.
func (s *server) handleDownload(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	job, ok := s.jobs.Get(token)
	if !ok || job.Status != StatusCompleted {
		respondError(w, http.StatusNotFound, "File not ready or expired")
		return
	}
	if !s.artifacts.Exists(job.FilePath) {
		respondError(w, http.StatusNotFound, "File not found")
		return
	}

	s.extendRetention(token)

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", job.Filename))
	http.ServeFile(w, r, job.FilePath)
}

// extendRetention pushes the job's expiry out to now + retention window.
func (s *server) extendRetention(token string) {
	expiry := time.Now().Add(s.cfg.Retention)
	s.jobs.Update(token, func(j *Job) { j.ExpiresAt = expiry })
}

// handleMetadata resolves metadata for a URL without starting a conversion.
func (s *server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	var req MetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !validVideoURL(req.URL) {
		respondError(w, http.StatusBadRequest, "Invalid YouTube URL")
		return
	}
	info, err := s.lookupMetadata(r.Context(), req.URL)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError writes the {"detail": ...} error shape used across the API.
func respondError(w http.ResponseWriter, code int, detail string) {
	respondJSON(w, code, map[string]string{"detail": detail})
}
