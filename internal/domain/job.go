package domain

import (
	"errors"
	"time"
)

type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

func (s JobState) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// IngestJob trace une ingestion en arrière-plan. Une fois lancée, elle court
// jusqu'au bout: pas d'annulation coopérative.
type IngestJob struct {
	ID        string
	Owner     string
	SourceURL string
	State     JobState
	CreatedAt time.Time
	UpdatedAt time.Time

	// EpisodeID est renseigné à la complétion.
	EpisodeID    string
	ErrorCode    string
	ErrorMessage string
}

var ErrInvalidTransition = errors.New("invalid job state transition")

func CanTransition(from, to JobState) bool {
	if from == to {
		return true
	}
	switch from {
	case JobQueued:
		return to == JobRunning || to == JobFailed
	case JobRunning:
		return to == JobCompleted || to == JobFailed
	default:
		return false
	}
}
