package main

import "sync"

// workItem is what travels through the bounded job queue to the worker pool.
type workItem struct {
	token     string
	sourceURL string
	quality   string
}

// admissionController combines duplicate suppression with the bounded work
// queue that gates concurrent execution. Membership in the active set is
// added at admission and removed unconditionally when the worker finishes,
// success or failure.
type admissionController struct {
	mu     sync.Mutex
	active map[string]struct{}
	queue  chan workItem
	jobs   *jobTable
}

func newAdmissionController(jobs *jobTable, queueCapacity int) *admissionController {
	return &admissionController{
		active: make(map[string]struct{}),
		queue:  make(chan workItem, queueCapacity),
		jobs:   jobs,
	}
}

// Admit decides whether new work should start for the source URL. When the
// URL is already active and a processing job exists, the existing token is
// returned instead. Two submissions racing before either reaches processing
// can both be admitted; the check is best-effort, not a correctness
// guarantee.
func (a *admissionController) Admit(sourceURL string) (existing string, duplicate bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, active := a.active[sourceURL]; active {
		if token, ok := a.jobs.FindProcessingByURL(sourceURL); ok {
			return token, true
		}
	}
	a.active[sourceURL] = struct{}{}
	return "", false
}

// Release drops the URL from the active set. Called from worker cleanup and
// from the enqueue failure path.
func (a *admissionController) Release(sourceURL string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.active, sourceURL)
}

// Active reports whether the URL is currently in the active set.
func (a *admissionController) Active(sourceURL string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.active[sourceURL]
	return ok
}

// Enqueue offers the item to the bounded queue without blocking. A false
// return means the queue is full and the submission must be rejected.
func (a *admissionController) Enqueue(item workItem) bool {
	select {
	case a.queue <- item:
		return true
	default:
		return false
	}
}
