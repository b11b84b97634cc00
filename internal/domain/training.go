package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobState represents the lifecycle state of a remote training job.
type JobState string

const (
	JobStatePending   JobState = "pending"
	JobStateRunning   JobState = "running"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
	JobStateCanceled  JobState = "canceled"
)

func (s JobState) Valid() bool {
	switch s {
	case JobStatePending, JobStateRunning, JobStateCompleted, JobStateFailed, JobStateCanceled:
		return true
	default:
		return false
	}
}

// Terminal reports whether the job can make no further progress.
func (s JobState) Terminal() bool {
	switch s {
	case JobStateCompleted, JobStateFailed, JobStateCanceled:
		return true
	default:
		return false
	}
}

// ParseJobState normalizes a platform status string into a JobState.
func ParseJobState(raw string) (JobState, error) {
	s := JobState(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown job state: %q", raw)
	}
	return s, nil
}

// TrainingJob is the handle for a submitted training run. The id is assigned
// by the platform and is the sole key for polling, details, and cancellation.
type TrainingJob struct {
	ID           string
	DefinitionID string
	State        JobState
	// ResultsToken is the job's declared output location under the outputs
	// bucket; produced artifacts carry it in their object keys.
	ResultsToken string
	Message      string
	SubmittedAt  time.Time
}

func (j TrainingJob) Validate() error {
	if strings.TrimSpace(j.ID) == "" {
		return errors.New("job id is required")
	}
	if strings.TrimSpace(j.DefinitionID) == "" {
		return errors.New("definition id is required")
	}
	if !j.State.Valid() {
		return errors.New("invalid job state")
	}
	return nil
}
