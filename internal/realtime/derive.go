package realtime

import (
	"encoding/json"
	"sort"
	"strconv"

	"igait-client/internal/domain"
)

// decodeAs re-marshals a decoded-JSON value into a typed struct. The store
// hands us loosely-shaped data; a JSON round-trip is the conversion point.
func decodeAs[T any](raw any) (T, bool) {
	var out T
	if raw == nil {
		return out, false
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, false
	}
	return out, true
}

// keepJob filters padded and placeholder entries out of derived views.
func keepJob(job domain.Job) bool {
	return job.Email != "" && job.Email != domain.PlaceholderEmail
}

func sortJobsNewestFirst(jobs []domain.JobWithID) {
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].Timestamp != jobs[j].Timestamp {
			return jobs[i].Timestamp > jobs[j].Timestamp
		}
		return jobs[i].ID < jobs[j].ID
	})
}

// deriveUserJobs normalizes one user's raw job collection. The collection
// may be array- or map-shaped; composite ids come from original positions,
// so dropped entries leave gaps rather than reindexing survivors.
func deriveUserJobs(uid string, raw any) []domain.JobWithID {
	jobs := collectJobs(uid, raw)
	sortJobsNewestFirst(jobs)
	return jobs
}

func collectJobs(uid string, raw any) []domain.JobWithID {
	jobs := make([]domain.JobWithID, 0)

	switch data := raw.(type) {
	case []any:
		for index, entry := range data {
			if entry == nil {
				continue
			}
			job, ok := decodeAs[domain.Job](entry)
			if !ok || !keepJob(job) {
				continue
			}
			jobs = append(jobs, domain.JobWithID{Job: job, ID: compositeID(uid, index)})
		}
	case map[string]any:
		for key, entry := range data {
			if entry == nil {
				continue
			}
			job, ok := decodeAs[domain.Job](entry)
			if !ok || !keepJob(job) {
				continue
			}
			jobs = append(jobs, domain.JobWithID{Job: job, ID: uid + "_" + key})
		}
	}

	return jobs
}

// deriveAllJobs flattens every user's job collection into one list, applying
// the same filter and composite-id convention as the per-user view.
func deriveAllJobs(raw any) []domain.JobWithID {
	all := make([]domain.JobWithID, 0)

	users, ok := raw.(map[string]any)
	if !ok {
		return all
	}

	for userID, userData := range users {
		userMap, ok := userData.(map[string]any)
		if !ok {
			continue
		}
		all = append(all, collectJobs(userID, userMap["jobs"])...)
	}

	sortJobsNewestFirst(all)
	return all
}

// deriveQueues builds the fixed-shape queues snapshot. Buckets missing from
// the raw value are present as empty maps, never nil.
func deriveQueues(raw any) domain.QueuesData {
	queues := domain.QueuesData{
		Stage1:   map[string]domain.QueueItem{},
		Stage2:   map[string]domain.QueueItem{},
		Stage3:   map[string]domain.QueueItem{},
		Stage4:   map[string]domain.QueueItem{},
		Stage5:   map[string]domain.QueueItem{},
		Stage6:   map[string]domain.QueueItem{},
		Finalize: map[string]domain.FinalizeQueueItem{},
	}

	data, ok := raw.(map[string]any)
	if !ok {
		return queues
	}

	for _, key := range domain.StageKeys {
		if bucket, ok := decodeAs[map[string]domain.QueueItem](data[key]); ok && bucket != nil {
			switch key {
			case "stage_1":
				queues.Stage1 = bucket
			case "stage_2":
				queues.Stage2 = bucket
			case "stage_3":
				queues.Stage3 = bucket
			case "stage_4":
				queues.Stage4 = bucket
			case "stage_5":
				queues.Stage5 = bucket
			case "stage_6":
				queues.Stage6 = bucket
			}
		}
	}
	if finalize, ok := decodeAs[map[string]domain.FinalizeQueueItem](data[domain.FinalizeKey]); ok && finalize != nil {
		queues.Finalize = finalize
	}

	return queues
}

// deriveQueueConfig defaults an absent snapshot to an empty mapping.
func deriveQueueConfig(raw any) domain.QueueConfigData {
	if configs, ok := decodeAs[domain.QueueConfigData](raw); ok && configs != nil {
		return configs
	}
	return domain.QueueConfigData{}
}

func compositeID(uid string, index int) string {
	return uid + "_" + strconv.Itoa(index)
}
