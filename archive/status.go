package archive

import (
	"sync"
	"time"

	"github.com/FeldmanGot/ai-tg-analiz/store"
)

type JobState string

const (
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// JobStatus is the in-memory progress record for one archive job. It is
// replaced wholesale on every tick; readers only ever see a complete record.
// Not persisted across restarts.
type JobStatus struct {
	JobID     string             `json:"job_id"`
	State     JobState           `json:"state"`
	Processed int                `json:"processed"`
	Total     int                `json:"total"`
	Counters  map[store.Kind]int `json:"per_kind_counters"`
	Failures  int                `json:"download_failures"`
	Error     string             `json:"error,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func (s JobStatus) clone() JobStatus {
	counters := make(map[store.Kind]int, len(s.Counters))
	for k, v := range s.Counters {
		counters[k] = v
	}
	s.Counters = counters
	return s
}

// StatusRegistry maps chat keys to the status of their latest archive job.
// Single writer (the archiving task), many readers (status polling).
type StatusRegistry struct {
	mu   sync.RWMutex
	jobs map[string]JobStatus
}

func NewStatusRegistry() *StatusRegistry {
	return &StatusRegistry{jobs: make(map[string]JobStatus)}
}

// Set replaces the whole status record for chatKey.
func (r *StatusRegistry) Set(chatKey string, status JobStatus) {
	status.UpdatedAt = time.Now().UTC()
	r.mu.Lock()
	r.jobs[chatKey] = status.clone()
	r.mu.Unlock()
}

// Get returns a copy of the status for chatKey. ok=false means no job has
// run for that chat.
func (r *StatusRegistry) Get(chatKey string) (JobStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status, ok := r.jobs[chatKey]
	if !ok {
		return JobStatus{}, false
	}
	return status.clone(), true
}

// Snapshot returns a copy of every tracked job, for listing endpoints.
func (r *StatusRegistry) Snapshot() map[string]JobStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]JobStatus, len(r.jobs))
	for key, status := range r.jobs {
		out[key] = status.clone()
	}
	return out
}
