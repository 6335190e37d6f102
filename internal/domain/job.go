// Package domain defines the wire-shaped entities shared by the API client,
// the realtime store hooks, and the CLI. All server-origin types mirror the
// backend's JSON layout; the client only observes them.
package domain

// PlaceholderEmail is the sentinel used by the backend to seed and pad job
// collections. Entries carrying it are filtered from every derived view.
const PlaceholderEmail = "placeholder@placeholder.com"

type JobStatusCode string

const (
	StatusSubmitting    JobStatusCode = "Submitting"
	StatusSubmissionErr JobStatusCode = "SubmissionErr"
	StatusQueue         JobStatusCode = "Queue"
	StatusProcessing    JobStatusCode = "Processing"
	StatusInferenceErr  JobStatusCode = "InferenceErr"
	StatusComplete      JobStatusCode = "Complete"
)

// JobStatus pairs a machine status code with its human-readable value.
type JobStatus struct {
	Code  JobStatusCode `json:"code"`
	Value string        `json:"value"`
}

// Job is the server-tracked record of a single screening submission.
type Job struct {
	Age              int       `json:"age"`
	Ethnicity        string    `json:"ethnicity"`
	Sex              string    `json:"sex"`
	Height           string    `json:"height"`
	Weight           int       `json:"weight"`
	Email            string    `json:"email"`
	Timestamp        int64     `json:"timestamp"`
	Status           JobStatus `json:"status"`
	RequiresApproval bool      `json:"requires_approval,omitempty"`
	Approved         bool      `json:"approved,omitempty"`
}

// JobWithID tags a Job with its composite id "{userId}_{jobIndex}".
type JobWithID struct {
	Job
	ID string `json:"id"`
}

// User is the authenticated account as reported by the auth collaborator.
type User struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	EmailVerified bool   `json:"emailVerified"`
}
