package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// handleProgressWS streams progress events for a job over a WebSocket. The
// connection closes once the job reaches a terminal state. Browser origins
// must be on the domain allow-list; non-browser clients send no Origin.
func (s *server) handleProgressWS(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	job, ok := s.jobs.Get(token)
	if !ok {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.domains.AllowedOrigin(origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "token", token, "error", err)
		return
	}
	defer conn.Close()

	// Subscribe before snapshotting so a terminal transition between the
	// two cannot be missed.
	ch := s.hub.Subscribe(token)
	defer s.hub.Unsubscribe(token, ch)

	// Current state first, so late subscribers see where the job stands.
	job, _ = s.jobs.Get(token)
	_ = conn.WriteJSON(progressEvent{Token: token, Status: job.Status, Message: job.Progress, Error: job.Error})
	if job.Terminal() {
		return
	}

	// Read pump: detect client disconnect.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case evt, open := <-ch:
			if !open {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
			if evt.Status == StatusCompleted || evt.Status == StatusFailed {
				return
			}
		case <-disconnected:
			return
		}
	}
}
