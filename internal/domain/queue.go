package domain

// StageKeys lists the processing-stage buckets in pipeline order. The
// backend treats the stage count as fixed, so the derived QueuesData keeps
// the same fixed shape.
var StageKeys = []string{"stage_1", "stage_2", "stage_3", "stage_4", "stage_5", "stage_6"}

// FinalizeKey is the terminal bucket a job lands in after the last stage.
const FinalizeKey = "finalize"

// JobMetadata is the demographic snapshot carried along with a queued item
// so later stages don't need a database round-trip.
type JobMetadata struct {
	Age       *int    `json:"age,omitempty"`
	Email     *string `json:"email,omitempty"`
	Ethnicity *string `json:"ethnicity,omitempty"`
	Sex       *string `json:"sex,omitempty"`
	Height    *string `json:"height,omitempty"`
	Weight    *int    `json:"weight,omitempty"`
}

// QueueItem is a job's representation while waiting at a processing stage.
type QueueItem struct {
	JobID            string            `json:"job_id"`
	UserID           string            `json:"user_id"`
	EnqueuedAt       int64             `json:"enqueued_at"`
	ClaimedBy        *string           `json:"claimed_by,omitempty"`
	ClaimedAt        *int64            `json:"claimed_at,omitempty"`
	InputKeys        map[string]string `json:"input_keys"`
	Metadata         JobMetadata       `json:"metadata"`
	RequiresApproval bool              `json:"requires_approval,omitempty"`
	Approved         bool              `json:"approved,omitempty"`
}

// FinalizeQueueItem extends QueueItem with the pipeline outcome.
type FinalizeQueueItem struct {
	QueueItem
	Success       bool    `json:"success"`
	Error         *string `json:"error,omitempty"`
	ErrorLogs     *string `json:"error_logs,omitempty"`
	FailedAtStage *int    `json:"failed_at_stage,omitempty"`
}

// QueuesData holds every stage bucket plus finalize. Buckets missing from
// the raw snapshot are always present here as empty maps.
type QueuesData struct {
	Stage1   map[string]QueueItem         `json:"stage_1"`
	Stage2   map[string]QueueItem         `json:"stage_2"`
	Stage3   map[string]QueueItem         `json:"stage_3"`
	Stage4   map[string]QueueItem         `json:"stage_4"`
	Stage5   map[string]QueueItem         `json:"stage_5"`
	Stage6   map[string]QueueItem         `json:"stage_6"`
	Finalize map[string]FinalizeQueueItem `json:"finalize"`
}

// Stage returns the bucket for a numbered stage key, or nil for an unknown
// key.
func (q *QueuesData) Stage(key string) map[string]QueueItem {
	switch key {
	case "stage_1":
		return q.Stage1
	case "stage_2":
		return q.Stage2
	case "stage_3":
		return q.Stage3
	case "stage_4":
		return q.Stage4
	case "stage_5":
		return q.Stage5
	case "stage_6":
		return q.Stage6
	}
	return nil
}

// QueueConfig is the per-stage configuration stored under queue_config.
type QueueConfig struct {
	RequiresApproval bool `json:"requires_approval"`
}

// QueueConfigData maps stage keys to their configuration.
type QueueConfigData map[string]QueueConfig
