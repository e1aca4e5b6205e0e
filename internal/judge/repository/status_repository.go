package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fuzoj/internal/common/cache"
	"fuzoj/internal/judge/model"
	"fuzoj/internal/judge/sandbox/result"
	appErr "fuzoj/pkg/errors"
)

const statusKeyPrefix = "judge:status:"

// StatusRepository persists submission status. Submissions are ephemeral
// once dequeued (no SQL-backed submission store in this scope), so status
// lives only in the read-through cache for as long as TTL allows, with
// final statuses additionally published for any downstream collaborator
// that wants a durable record.
type StatusRepository struct {
	cache     cache.Cache
	publisher StatusEventPublisher
	ttl       time.Duration
}

// NewStatusRepository creates a new repository.
func NewStatusRepository(cacheClient cache.Cache, ttl time.Duration, publisher StatusEventPublisher) *StatusRepository {
	return &StatusRepository{cache: cacheClient, ttl: ttl, publisher: publisher}
}

// Get returns status by submission id.
func (r *StatusRepository) Get(ctx context.Context, submissionID string) (model.JudgeStatusResponse, error) {
	if submissionID == "" {
		return model.JudgeStatusResponse{}, appErr.ValidationError("submission_id", "required")
	}
	if r.cache == nil {
		return model.JudgeStatusResponse{}, appErr.New(appErr.ServiceUnavailable).WithMessage("status cache is not configured")
	}
	val, err := r.cache.Get(ctx, statusKeyPrefix+submissionID)
	if err != nil || val == "" {
		return model.JudgeStatusResponse{}, appErr.New(appErr.NotFound).WithMessage("submission status not found")
	}
	var resp model.JudgeStatusResponse
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return model.JudgeStatusResponse{}, appErr.Wrapf(err, appErr.CacheError, "decode status failed")
	}
	return resp, nil
}

// GetBatch returns statuses for multiple submission ids.
func (r *StatusRepository) GetBatch(ctx context.Context, submissionIDs []string) ([]model.JudgeStatusResponse, []string, error) {
	if len(submissionIDs) == 0 {
		return nil, nil, appErr.ValidationError("submission_ids", "required")
	}
	if r.cache == nil {
		return nil, submissionIDs, nil
	}
	keys := make([]string, 0, len(submissionIDs))
	for _, submissionID := range submissionIDs {
		if submissionID == "" {
			return nil, nil, appErr.ValidationError("submission_id", "required")
		}
		keys = append(keys, statusKeyPrefix+submissionID)
	}
	values := make([]string, 0, len(keys))
	for _, key := range keys {
		raw, err := r.cache.Get(ctx, key)
		if err != nil {
			return nil, nil, appErr.Wrapf(err, appErr.CacheError, "batch get status failed")
		}
		values = append(values, raw)
	}
	statuses := make([]model.JudgeStatusResponse, 0, len(submissionIDs))
	missing := make([]string, 0)
	for i, raw := range values {
		if raw == "" {
			missing = append(missing, submissionIDs[i])
			continue
		}
		var resp model.JudgeStatusResponse
		if err := json.Unmarshal([]byte(raw), &resp); err != nil {
			return nil, nil, appErr.Wrapf(err, appErr.CacheError, "decode status failed")
		}
		statuses = append(statuses, resp)
	}
	if len(values) < len(submissionIDs) {
		missing = append(missing, submissionIDs[len(values):]...)
	}
	return statuses, missing, nil
}

// Save persists status, publishing it as a final event once the
// submission reaches a terminal state.
func (r *StatusRepository) Save(ctx context.Context, status model.JudgeStatusResponse) error {
	if status.SubmissionID == "" {
		return appErr.ValidationError("submission_id", "required")
	}
	if isFinalStatus(status.Status) {
		if r.publisher == nil {
			return appErr.New(appErr.ServiceUnavailable).WithMessage("status publisher is not configured")
		}
		if err := r.publisher.PublishFinalStatus(ctx, status); err != nil {
			return err
		}
	}
	if r.cache != nil {
		data, err := json.Marshal(status)
		if err != nil {
			return fmt.Errorf("marshal status failed: %w", err)
		}
		if err := r.cache.Set(ctx, statusKeyPrefix+status.SubmissionID, string(data), r.ttl); err != nil {
			return appErr.Wrapf(err, appErr.CacheError, "store status failed")
		}
	}
	return nil
}

func isFinalStatus(status result.JudgeStatus) bool {
	return status == result.StatusFinished || status == result.StatusFailed
}
