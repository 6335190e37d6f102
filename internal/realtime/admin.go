package realtime

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"igait-client/internal/domain"
	"igait-client/pkg/result"
)

// ApproveQueueItem flips the approval flag on a queued item and mirrors it
// onto the owning user's job record. Both writes are unconditional
// last-writer-wins; neither is part of any subscription's state.
func (s *Subscriber) ApproveQueueItem(ctx context.Context, stageKey, itemKey string, item domain.QueueItem) error {
	queuePath := fmt.Sprintf("queues/%s/%s/approved", stageKey, itemKey)
	if err := s.store.Set(ctx, queuePath, true); err != nil {
		return fmt.Errorf("failed to approve queue item: %w", err)
	}

	jobIndex := trailingIndex(item.JobID)
	jobPath := fmt.Sprintf("users/%s/jobs/%d/approved", item.UserID, jobIndex)
	if err := s.store.Set(ctx, jobPath, true); err != nil {
		return fmt.Errorf("failed to approve user job record: %w", err)
	}

	return nil
}

// SetQueueRequiresApproval writes a stage's requires_approval flag.
func (s *Subscriber) SetQueueRequiresApproval(ctx context.Context, stageKey string, value bool) error {
	path := fmt.Sprintf("queue_config/%s/requires_approval", stageKey)
	if err := s.store.Set(ctx, path, value); err != nil {
		return fmt.Errorf("failed to set queue approval flag: %w", err)
	}
	return nil
}

// trailingIndex parses the numeric segment after the last underscore of a
// job id, defaulting to 0.
func trailingIndex(jobID string) int {
	segment := jobID
	if idx := strings.LastIndex(jobID, "_"); idx != -1 {
		segment = jobID[idx+1:]
	}
	index, err := strconv.Atoi(segment)
	if err != nil {
		return 0
	}
	return index
}

// QueueItemToJob projects a queued item into the Job display shape,
// defaulting every optional field. The coarse status derives from claim
// presence.
func QueueItemToJob(item domain.QueueItem) domain.JobWithID {
	statusValue := "Waiting in queue"
	if item.ClaimedBy != nil {
		statusValue = "Claimed"
	}

	return domain.JobWithID{
		ID: item.JobID,
		Job: domain.Job{
			Age:       result.FromPtr(item.Metadata.Age).UnwrapOr(0),
			Email:     result.FromPtr(item.Metadata.Email).UnwrapOr(""),
			Ethnicity: result.FromPtr(item.Metadata.Ethnicity).UnwrapOr("Unknown"),
			Sex:       result.FromPtr(item.Metadata.Sex).UnwrapOr("O"),
			Height:    result.FromPtr(item.Metadata.Height).UnwrapOr(""),
			Weight:    result.FromPtr(item.Metadata.Weight).UnwrapOr(0),
			Timestamp: item.EnqueuedAt / 1000,
			Status: domain.JobStatus{
				Code:  domain.StatusQueue,
				Value: statusValue,
			},
			RequiresApproval: item.RequiresApproval,
			Approved:         item.Approved,
		},
	}
}
