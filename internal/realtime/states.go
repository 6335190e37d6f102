package realtime

import "igait-client/internal/domain"

// Status is the lifecycle tag shared by every subscription state. There is
// no fourth state: cancellation is the caller discarding the unsubscribe
// handle.
type Status string

const (
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusLoaded  Status = "loaded"
)

// JobsState is the derived snapshot of one user's jobs.
type JobsState struct {
	Status Status             `json:"status"`
	Error  string             `json:"error,omitempty"`
	Jobs   []domain.JobWithID `json:"jobs,omitempty"`
}

// AllJobsState is the admin-wide flattened job list.
type AllJobsState struct {
	Status Status             `json:"status"`
	Error  string             `json:"error,omitempty"`
	Jobs   []domain.JobWithID `json:"jobs,omitempty"`
}

// QueuesState is the snapshot of every processing-stage bucket.
type QueuesState struct {
	Status Status            `json:"status"`
	Error  string            `json:"error,omitempty"`
	Queues domain.QueuesData `json:"queues"`
}

// QueueConfigState is the snapshot of per-stage configuration.
type QueueConfigState struct {
	Status  Status                 `json:"status"`
	Error   string                 `json:"error,omitempty"`
	Configs domain.QueueConfigData `json:"configs,omitempty"`
}

// SingleJobState is the snapshot of one job looked up by composite id.
type SingleJobState struct {
	Status Status     `json:"status"`
	Error  string     `json:"error,omitempty"`
	Job    domain.Job `json:"job"`
}
