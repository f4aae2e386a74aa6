package domain

import "time"

// Kind names a conversion route. The full set lives in the converter
// registry; the type exists so job records and specs share a vocabulary.
type Kind string

// JobState enumerates job lifecycle states. Transitions only move forward:
// queued < processing < (completed | failed).
type JobState string

const (
	JobQueued     JobState = "queued"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// Rank orders states for monotonicity checks. Both terminal states share the
// highest rank: once terminal, a job never moves again.
func (s JobState) Rank() int {
	switch s {
	case JobQueued:
		return 0
	case JobProcessing:
		return 1
	case JobCompleted, JobFailed:
		return 2
	default:
		return -1
	}
}

// Terminal reports whether the state ends the job lifecycle.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job is a tracked unit of background conversion work.
type Job struct {
	ID          string
	Kind        Kind
	State       JobState
	Progress    int
	Message     string
	DownloadRef string
	ErrorKind   ErrorKind
	InputRefs   []string
	Metadata    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WorkloadClass feeds rate limiting and size policy.
type WorkloadClass string

const (
	WorkloadLight WorkloadClass = "light"
	WorkloadHeavy WorkloadClass = "heavy"
)

// Category classifies the upload payload for size gating.
type Category string

const (
	CategoryVideo    Category = "video"
	CategoryImage    Category = "image"
	CategoryAudio    Category = "audio"
	CategoryDocument Category = "document"
)

// MaxBytes returns the upload budget for the category.
func (c Category) MaxBytes() int64 {
	switch c {
	case CategoryVideo:
		return 5 << 30
	case CategoryImage:
		return 100 << 20
	case CategoryAudio:
		return 200 << 20
	default:
		return 50 << 20
	}
}
