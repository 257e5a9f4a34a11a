package ledger

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const defaultBacklogBatch = 100

// Enqueue records a blocked auto-assignment request. A task is queued once;
// repeated failures bump the attempt counter and replace the reason.
func (r *Repository) Enqueue(ctx context.Context, entry types.BacklogEntry) (*types.BacklogEntry, error) {
	if entry.ReviewTaskID == uuid.Nil {
		return nil, types.ErrTaskIDRequired
	}
	if entry.ReviewType.Normalize() == "" {
		return nil, types.ErrReviewTypeRequired
	}
	now := r.clock.Now()
	existing, err := r.backlog.Get(ctx, selectBacklogTask(entry.ReviewTaskID))
	switch {
	case err == nil:
		existing.Attempts++
		existing.Reason = entry.Reason
		existing.ReviewType = string(entry.ReviewType.Normalize())
		existing.LastAttemptAt = &now
		updated, err := r.backlog.Update(ctx, existing)
		if err != nil {
			return nil, err
		}
		return backlogToDomain(updated), nil
	case repository.IsRecordNotFound(err):
		rec := &BacklogRecord{
			ID:            r.idGen.UUID(),
			ReviewTaskID:  entry.ReviewTaskID,
			ReviewType:    string(entry.ReviewType.Normalize()),
			Reason:        entry.Reason,
			Attempts:      1,
			QueuedAt:      now,
			LastAttemptAt: &now,
		}
		created, err := r.backlog.Create(ctx, rec)
		if err != nil {
			return nil, err
		}
		return backlogToDomain(created), nil
	default:
		return nil, err
	}
}

// ListBacklog returns queued requests oldest first.
func (r *Repository) ListBacklog(ctx context.Context, filter types.BacklogFilter) ([]types.BacklogEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultBacklogBatch
	}
	records, _, err := r.backlog.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		if reviewType := filter.ReviewType.Normalize(); reviewType != "" {
			q = q.Where("review_type = ?", string(reviewType))
		}
		return q.OrderExpr("queued_at ASC").OrderExpr("id ASC").Limit(limit)
	})
	if err != nil {
		return nil, err
	}
	out := make([]types.BacklogEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, *backlogToDomain(rec))
	}
	return out, nil
}

// RemoveBacklog drops the task from the backlog. Missing entries are ignored.
func (r *Repository) RemoveBacklog(ctx context.Context, taskID uuid.UUID) error {
	if taskID == uuid.Nil {
		return types.ErrTaskIDRequired
	}
	existing, err := r.backlog.Get(ctx, selectBacklogTask(taskID))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil
		}
		return err
	}
	return r.backlog.Delete(ctx, existing)
}

func selectBacklogTask(taskID uuid.UUID) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("review_task_id = ?", taskID)
	}
}

func backlogToDomain(rec *BacklogRecord) *types.BacklogEntry {
	if rec == nil {
		return nil
	}
	return &types.BacklogEntry{
		ID:            rec.ID,
		ReviewTaskID:  rec.ReviewTaskID,
		ReviewType:    types.ReviewType(rec.ReviewType),
		Reason:        rec.Reason,
		Attempts:      rec.Attempts,
		QueuedAt:      rec.QueuedAt,
		LastAttemptAt: rec.LastAttemptAt,
	}
}
