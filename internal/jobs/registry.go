// Package jobs holds the in-memory job registry and the background worker
// pool. The registry is the single source of truth for progress polling.
package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rafey804/flipfilex-sub000/internal/domain"
)

// Registry is a process-wide, concurrency-safe mapping from job id to job
// state. Each job is mutated by the single worker that owns it; pollers only
// read snapshots.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
	now  func() time.Time
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*domain.Job),
		now:  time.Now,
	}
}

// Create registers a new job in state queued and returns its id.
func (r *Registry) Create(kind domain.Kind, inputRefs []string) string {
	id := uuid.NewString()
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id] = &domain.Job{
		ID:        id,
		Kind:      kind,
		State:     domain.JobQueued,
		Progress:  0,
		Message:   "queued",
		InputRefs: append([]string(nil), inputRefs...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id
}

// Advance moves the job forward to state with the given progress and message.
// Attempts to regress state or progress are ignored, which makes the call
// idempotent at the current state. Terminal jobs never change. Returns
// whether the record was updated.
func (r *Registry) Advance(id string, state domain.JobState, progress int, message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return false
	}
	if job.State.Terminal() {
		return false
	}
	if state.Rank() < job.State.Rank() {
		return false
	}
	if progress < job.Progress {
		progress = job.Progress
	}
	if progress > 100 {
		progress = 100
	}
	changed := job.State != state || job.Progress != progress || job.Message != message
	job.State = state
	job.Progress = progress
	if message != "" {
		job.Message = message
	}
	job.UpdatedAt = r.now()
	return changed
}

// Complete transitions the job to completed with its download reference and
// converter metadata. No-op if the job is already terminal.
func (r *Registry) Complete(id, downloadRef string, metadata map[string]any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.State.Terminal() {
		return false
	}
	job.State = domain.JobCompleted
	job.Progress = 100
	job.Message = "completed"
	job.DownloadRef = downloadRef
	job.Metadata = metadata
	job.UpdatedAt = r.now()
	return true
}

// Fail transitions the job to failed with an error kind and a client-safe
// message. No-op if the job is already terminal.
func (r *Registry) Fail(id string, kind domain.ErrorKind, message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.State.Terminal() {
		return false
	}
	job.State = domain.JobFailed
	job.Message = message
	job.ErrorKind = kind
	job.UpdatedAt = r.now()
	return true
}

// Get returns a snapshot of the job for the progress endpoint.
func (r *Registry) Get(id string) (domain.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	snap := *job
	snap.InputRefs = append([]string(nil), job.InputRefs...)
	return snap, true
}

// EvictExpired removes terminal records whose last update is older than ttl.
// Called from the periodic sweep alongside storage expiry.
func (r *Registry) EvictExpired(now time.Time, ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-ttl)
	evicted := 0
	for id, job := range r.jobs {
		if job.State.Terminal() && job.UpdatedAt.Before(cutoff) {
			delete(r.jobs, id)
			evicted++
		}
	}
	return evicted
}

// Len reports how many records the registry currently holds.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
