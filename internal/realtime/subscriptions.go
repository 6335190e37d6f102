package realtime

import (
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"igait-client/internal/domain"
)

// Subscriber attaches typed subscriptions to a Store.
type Subscriber struct {
	store  Store
	logger *zap.Logger
}

func NewSubscriber(store Store, logger *zap.Logger) *Subscriber {
	return &Subscriber{store: store, logger: logger}
}

// guard wires the inertness contract: once the returned Unsubscribe runs,
// neither callback fires again regardless of events already in flight.
func (s *Subscriber) guard(path string, onValue func(any), onError func(error)) Unsubscribe {
	var active atomic.Bool
	active.Store(true)

	detach := s.store.Listen(path,
		func(value any) {
			if !active.Load() {
				return
			}
			onValue(value)
		},
		func(err error) {
			if !active.Load() {
				return
			}
			onError(err)
		})

	return func() {
		active.Store(false)
		detach()
	}
}

// SubscribeToJobs watches one user's job collection and emits derived
// snapshots, newest first.
func (s *Subscriber) SubscribeToJobs(uid string, onUpdate func(JobsState)) Unsubscribe {
	onUpdate(JobsState{Status: StatusLoading})

	return s.guard("users/"+uid+"/jobs",
		func(value any) {
			onUpdate(JobsState{Status: StatusLoaded, Jobs: deriveUserJobs(uid, value)})
		},
		func(err error) {
			s.logger.Error("jobs subscription failed", zap.String("uid", uid), zap.Error(err))
			onUpdate(JobsState{Status: StatusError, Error: err.Error()})
		})
}

// SubscribeToAllJobs watches every user's jobs and emits one flattened,
// sorted list. Admin only.
func (s *Subscriber) SubscribeToAllJobs(onUpdate func(AllJobsState)) Unsubscribe {
	onUpdate(AllJobsState{Status: StatusLoading})

	return s.guard("users",
		func(value any) {
			onUpdate(AllJobsState{Status: StatusLoaded, Jobs: deriveAllJobs(value)})
		},
		func(err error) {
			s.logger.Error("all-jobs subscription failed", zap.Error(err))
			onUpdate(AllJobsState{Status: StatusError, Error: err.Error()})
		})
}

// SubscribeToQueues watches the stage queues. Missing buckets appear as
// empty maps in every emitted snapshot. Admin only.
func (s *Subscriber) SubscribeToQueues(onUpdate func(QueuesState)) Unsubscribe {
	onUpdate(QueuesState{Status: StatusLoading})

	return s.guard("queues",
		func(value any) {
			onUpdate(QueuesState{Status: StatusLoaded, Queues: deriveQueues(value)})
		},
		func(err error) {
			s.logger.Error("queues subscription failed", zap.Error(err))
			onUpdate(QueuesState{Status: StatusError, Error: err.Error()})
		})
}

// SubscribeToQueueConfigs watches the per-stage configuration.
func (s *Subscriber) SubscribeToQueueConfigs(onUpdate func(QueueConfigState)) Unsubscribe {
	onUpdate(QueueConfigState{Status: StatusLoading})

	return s.guard("queue_config",
		func(value any) {
			onUpdate(QueueConfigState{Status: StatusLoaded, Configs: deriveQueueConfig(value)})
		},
		func(err error) {
			s.logger.Error("queue config subscription failed", zap.Error(err))
			onUpdate(QueueConfigState{Status: StatusError, Error: err.Error()})
		})
}

// SubscribeToJob watches a single job addressed by its composite id
// "{userId}_{jobIndex}". A malformed id is rejected synchronously without
// touching the store.
func (s *Subscriber) SubscribeToJob(jobID string, onUpdate func(SingleJobState)) Unsubscribe {
	lastUnderscore := strings.LastIndex(jobID, "_")
	if lastUnderscore == -1 {
		onUpdate(SingleJobState{Status: StatusError, Error: "Invalid job ID format: " + jobID})
		return func() {}
	}
	userID := jobID[:lastUnderscore]
	jobIndex := jobID[lastUnderscore+1:]

	onUpdate(SingleJobState{Status: StatusLoading})

	return s.guard("users/"+userID+"/jobs/"+jobIndex,
		func(value any) {
			job, ok := decodeAs[domain.Job](value)
			if !ok {
				onUpdate(SingleJobState{Status: StatusError, Error: "Job not found"})
				return
			}
			onUpdate(SingleJobState{Status: StatusLoaded, Job: job})
		},
		func(err error) {
			s.logger.Error("job subscription failed", zap.String("job_id", jobID), zap.Error(err))
			onUpdate(SingleJobState{Status: StatusError, Error: err.Error()})
		})
}
