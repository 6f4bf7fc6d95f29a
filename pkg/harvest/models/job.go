package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a harvest run.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobRunning    JobStatus = "running"
	JobDone       JobStatus = "done"
	JobDoneErrors JobStatus = "done-errors"
	JobFailed     JobStatus = "failed"
)

// ItemStatus is the outcome of one item processing attempt.
type ItemStatus string

const (
	ItemPending ItemStatus = "pending"
	ItemDone    ItemStatus = "done"
	ItemSkipped ItemStatus = "skipped"
	ItemFailed  ItemStatus = "failed"
)

// Job is the audit record of one harvest run.
type Job struct {
	ID       uuid.UUID  `json:"id"`
	SourceID string     `json:"source_id"`
	Status   JobStatus  `json:"status"`
	Started  time.Time  `json:"started"`
	Ended    *time.Time `json:"ended,omitempty"`
	Errors   []string   `json:"errors,omitempty"`
	Items    []*JobItem `json:"items"`
}

// NewJob returns a pending job for a source.
func NewJob(sourceID string) *Job {
	return &Job{
		ID:       uuid.New(),
		SourceID: sourceID,
		Status:   JobPending,
	}
}

// JobItem records the processing of one remote identifier.
type JobItem struct {
	RemoteID  string     `json:"remote_id"`
	Status    ItemStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	DatasetID *uuid.UUID `json:"dataset_id,omitempty"`
	Started   *time.Time `json:"started,omitempty"`
	Ended     *time.Time `json:"ended,omitempty"`
}

// Classify derives the final job status from its items.
// Skipped items do not count as errors.
func (j *Job) Classify() JobStatus {
	for _, item := range j.Items {
		if item.Status == ItemFailed {
			return JobDoneErrors
		}
	}
	return JobDone
}

// Counts returns the number of items per status.
func (j *Job) Counts() map[ItemStatus]int {
	counts := make(map[ItemStatus]int)
	for _, item := range j.Items {
		counts[item.Status]++
	}
	return counts
}
