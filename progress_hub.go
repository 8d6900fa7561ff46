package main

import "sync"

// progressEvent is pushed to subscribers as a job advances.
type progressEvent struct {
	Token   string    `json:"token"`
	Status  JobStatus `json:"status"`
	Message string    `json:"message,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// progressHub fans progress events out to per-token subscribers. The worker
// is the only publisher for a token; subscribers are closed when the job
// reaches a terminal state.
type progressHub struct {
	mu   sync.Mutex
	subs map[string]map[chan progressEvent]struct{}
}

func newProgressHub() *progressHub {
	return &progressHub{subs: make(map[string]map[chan progressEvent]struct{})}
}

// Subscribe returns a buffered channel receiving events for the token.
func (h *progressHub) Subscribe(token string) chan progressEvent {
	ch := make(chan progressEvent, 16)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[token] == nil {
		h.subs[token] = make(map[chan progressEvent]struct{})
	}
	h.subs[token][ch] = struct{}{}
	return ch
}

// Unsubscribe detaches the channel. Safe to call after Close.
func (h *progressHub) Unsubscribe(token string, ch chan progressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[token]; ok {
		if _, subscribed := set[ch]; subscribed {
			delete(set, ch)
			close(ch)
		}
		if len(set) == 0 {
			delete(h.subs, token)
		}
	}
}

// Publish delivers the event to every subscriber, dropping it for slow ones
// rather than blocking the worker.
func (h *progressHub) Publish(evt progressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[evt.Token] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Close sends a final event and closes every subscription for the token.
func (h *progressHub) Close(evt progressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[evt.Token] {
		select {
		case ch <- evt:
		default:
		}
		close(ch)
	}
	delete(h.subs, evt.Token)
}
