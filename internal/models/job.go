package models

import "time"

// VideoJob is one unit of pipeline work. It is owned by exactly one worker
// at a time; all mutations go through the job repository.
type VideoJob struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner_id"`
	Status         JobStatus  `json:"status"`
	Progress       int        `json:"progress"`
	InputReference string     `json:"input_reference"`
	Niche          string     `json:"niche"`
	Style          string     `json:"style"`
	Platform       string     `json:"platform"`
	QualityTier    string     `json:"quality_tier"`
	OutputPath     string     `json:"output_path,omitempty"`
	Error          string     `json:"error,omitempty"`
	AbortRequested bool       `json:"abort_requested"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// JobStatus names one state of the linear pipeline state machine.
type JobStatus string

const (
	StatusQueued       JobStatus = "queued"
	StatusDownloading  JobStatus = "downloading"
	StatusStrategizing JobStatus = "strategizing"
	StatusRendering    JobStatus = "rendering"
	StatusOptimizing   JobStatus = "optimizing"
	StatusUploading    JobStatus = "uploading"
	StatusCompleted    JobStatus = "completed"
	StatusFailed       JobStatus = "failed"
	StatusAborted      JobStatus = "aborted"
)

// Checkpoint returns the progress value persisted when a job enters s.
func (s JobStatus) Checkpoint() int {
	switch s {
	case StatusDownloading:
		return 10
	case StatusStrategizing:
		return 30
	case StatusRendering:
		return 50
	case StatusOptimizing:
		return 70
	case StatusUploading:
		return 85
	case StatusCompleted:
		return 100
	default:
		return 0
	}
}

// Terminal reports whether s is an absorbing state.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusAborted:
		return true
	default:
		return false
	}
}

// stageOrder positions non-terminal states on the linear pipeline.
var stageOrder = map[JobStatus]int{
	StatusQueued:       0,
	StatusDownloading:  1,
	StatusStrategizing: 2,
	StatusRendering:    3,
	StatusOptimizing:   4,
	StatusUploading:    5,
	StatusCompleted:    6,
}

// ValidTransition reports whether from -> to is an allowed edge. The
// pipeline is linear with no branching back; Failed and Aborted are
// reachable from any non-terminal state.
func ValidTransition(from, to JobStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusFailed || to == StatusAborted {
		return true
	}
	fi, ok := stageOrder[from]
	if !ok {
		return false
	}
	ti, ok := stageOrder[to]
	if !ok {
		return false
	}
	return ti > fi
}
