package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// RepositoryConfig wires the Bun-backed assignment ledger.
type RepositoryConfig struct {
	DB          *bun.DB
	Assignments repository.Repository[*AssignmentRecord]
	Events      repository.Repository[*EventRecord]
	Backlog     repository.Repository[*BacklogRecord]
	Clock       types.Clock
	IDGen       types.IDGenerator
}

// Repository persists assignments, their event trail and the assignment
// backlog. Writes that touch the one-holder-per-task rule run inside a
// transaction on DB.
type Repository struct {
	db          *bun.DB
	assignments repository.Repository[*AssignmentRecord]
	events      repository.Repository[*EventRecord]
	backlog     repository.Repository[*BacklogRecord]
	clock       types.Clock
	idGen       types.IDGenerator
}

// NewRepository constructs the default ledger repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.DB == nil {
		return nil, errors.New("ledger: db required")
	}
	assignments := cfg.Assignments
	if assignments == nil {
		assignments = NewAssignmentRecordRepository(cfg.DB)
	}
	events := cfg.Events
	if events == nil {
		events = NewEventRecordRepository(cfg.DB)
	}
	backlog := cfg.Backlog
	if backlog == nil {
		backlog = NewBacklogRecordRepository(cfg.DB)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}
	return &Repository{
		db:          cfg.DB,
		assignments: assignments,
		events:      events,
		backlog:     backlog,
		clock:       clock,
		idGen:       idGen,
	}, nil
}

var (
	_ types.AssignmentRepository     = (*Repository)(nil)
	_ types.AssignmentReadRepository = (*Repository)(nil)
	_ types.BacklogRepository        = (*Repository)(nil)
)

// NewAssignmentRecordRepository builds the go-repository-bun repository for
// assignment rows.
func NewAssignmentRecordRepository(db *bun.DB) repository.Repository[*AssignmentRecord] {
	return repository.NewRepository(db, repository.ModelHandlers[*AssignmentRecord]{
		NewRecord: func() *AssignmentRecord { return &AssignmentRecord{} },
		GetID: func(rec *AssignmentRecord) uuid.UUID {
			if rec == nil {
				return uuid.Nil
			}
			return rec.ID
		},
		SetID: func(rec *AssignmentRecord, id uuid.UUID) {
			if rec != nil {
				rec.ID = id
			}
		},
	})
}

// NewEventRecordRepository builds the go-repository-bun repository for
// assignment events.
func NewEventRecordRepository(db *bun.DB) repository.Repository[*EventRecord] {
	return repository.NewRepository(db, repository.ModelHandlers[*EventRecord]{
		NewRecord: func() *EventRecord { return &EventRecord{} },
		GetID: func(rec *EventRecord) uuid.UUID {
			if rec == nil {
				return uuid.Nil
			}
			return rec.ID
		},
		SetID: func(rec *EventRecord, id uuid.UUID) {
			if rec != nil {
				rec.ID = id
			}
		},
	})
}

// NewBacklogRecordRepository builds the go-repository-bun repository for
// backlog rows.
func NewBacklogRecordRepository(db *bun.DB) repository.Repository[*BacklogRecord] {
	return repository.NewRepository(db, repository.ModelHandlers[*BacklogRecord]{
		NewRecord: func() *BacklogRecord { return &BacklogRecord{} },
		GetID: func(rec *BacklogRecord) uuid.UUID {
			if rec == nil {
				return uuid.Nil
			}
			return rec.ID
		},
		SetID: func(rec *BacklogRecord, id uuid.UUID) {
			if rec != nil {
				rec.ID = id
			}
		},
	})
}

// CreateAssignment inserts a new ACTIVE assignment and its first event. The
// holder check, the optional capacity check and both inserts share one
// transaction; the partial unique index on review_task_id backs the holder
// check when transactions interleave.
func (r *Repository) CreateAssignment(ctx context.Context, record types.Assignment, opts types.CreateOptions) (*types.Assignment, error) {
	if record.ReviewTaskID == uuid.Nil {
		return nil, types.ErrTaskIDRequired
	}
	if record.ReviewerID == uuid.Nil {
		return nil, types.ErrReviewerIDRequired
	}
	now := r.clock.Now()
	rec := fromDomain(record)
	if rec.ID == uuid.Nil {
		rec.ID = r.idGen.UUID()
	}
	rec.Status = string(types.AssignmentStatusActive)
	if rec.AssignedAt.IsZero() {
		rec.AssignedAt = now
	}
	rec.UpdatedAt = rec.AssignedAt
	event := &EventRecord{
		ID:           r.idGen.UUID(),
		AssignmentID: rec.ID,
		ReviewTaskID: rec.ReviewTaskID,
		ReviewerID:   rec.ReviewerID,
		ActorID:      opts.ActorID,
		Sequence:     1,
		ToStatus:     rec.Status,
		Reason:       rec.AssignmentReason,
		OccurredAt:   rec.AssignedAt,
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		holders, err := tx.NewSelect().
			Model((*AssignmentRecord)(nil)).
			Where("review_task_id = ?", rec.ReviewTaskID).
			Where("status IN (?)", bun.In(holdingStatuses())).
			Count(ctx)
		if err != nil {
			return err
		}
		if holders > 0 {
			return types.ErrDuplicateActiveAssignment
		}
		if opts.MaxConcurrent > 0 {
			load, err := tx.NewSelect().
				Model((*AssignmentRecord)(nil)).
				Where("reviewer_id = ?", rec.ReviewerID).
				Where("status IN (?)", bun.In(holdingStatuses())).
				Count(ctx)
			if err != nil {
				return err
			}
			if load >= opts.MaxConcurrent {
				return types.ErrNoCapacity
			}
		}
		if _, err := tx.NewInsert().Model(rec).Exec(ctx); err != nil {
			if repository.IsDuplicatedKey(err) {
				return types.ErrDuplicateActiveAssignment
			}
			return err
		}
		_, err = tx.NewInsert().Model(event).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toDomainPtr(rec), nil
}

// GetAssignment returns the assignment by id.
func (r *Repository) GetAssignment(ctx context.Context, id uuid.UUID) (*types.Assignment, error) {
	if id == uuid.Nil {
		return nil, types.ErrAssignmentIDRequired
	}
	rec, err := r.assignments.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, fmt.Errorf("%w: assignment %s", types.ErrNotFound, id)
		}
		return nil, err
	}
	return toDomainPtr(rec), nil
}

// UpdateAssignmentStatus applies a status change guarded on the expected
// current status and appends the matching event. A concurrent change that got
// there first surfaces as ErrInvalidTransition.
func (r *Repository) UpdateAssignmentStatus(ctx context.Context, change types.StatusChange) (*types.Assignment, error) {
	if change.AssignmentID == uuid.Nil {
		return nil, types.ErrAssignmentIDRequired
	}
	at := change.At
	if at.IsZero() {
		at = r.clock.Now()
	}
	rec := &AssignmentRecord{}
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().Model(rec).Where("id = ?", change.AssignmentID).Limit(1).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: assignment %s", types.ErrNotFound, change.AssignmentID)
		}
		if err != nil {
			return err
		}
		if rec.Status != string(change.From) {
			return fmt.Errorf("%w: assignment is %s", types.ErrInvalidTransition, rec.Status)
		}
		column := applyStatus(rec, change.To, at)
		res, err := tx.NewUpdate().
			Model(rec).
			Column("status", "updated_at", column).
			Where("id = ?", rec.ID).
			Where("status = ?", string(change.From)).
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		seq, err := tx.NewSelect().
			Model((*EventRecord)(nil)).
			Where("assignment_id = ?", rec.ID).
			Count(ctx)
		if err != nil {
			return err
		}
		_, err = tx.NewInsert().Model(&EventRecord{
			ID:           r.idGen.UUID(),
			AssignmentID: rec.ID,
			ReviewTaskID: rec.ReviewTaskID,
			ReviewerID:   rec.ReviewerID,
			ActorID:      change.ActorID,
			Sequence:     seq + 1,
			FromStatus:   string(change.From),
			ToStatus:     string(change.To),
			Reason:       change.Reason,
			OccurredAt:   at,
		}).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toDomainPtr(rec), nil
}

// HoldingAssignment returns the task's ACTIVE or ACCEPTED assignment.
func (r *Repository) HoldingAssignment(ctx context.Context, taskID uuid.UUID) (*types.Assignment, error) {
	if taskID == uuid.Nil {
		return nil, types.ErrTaskIDRequired
	}
	rec, err := r.assignments.Get(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("review_task_id = ?", taskID).
			Where("status IN (?)", bun.In(holdingStatuses()))
	})
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, fmt.Errorf("%w: no active assignment for task %s", types.ErrNotFound, taskID)
		}
		return nil, err
	}
	return toDomainPtr(rec), nil
}

// CountActive returns the ACTIVE+ACCEPTED count per reviewer. Every requested
// reviewer is present in the result, with zero when idle.
func (r *Repository) CountActive(ctx context.Context, reviewerIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(reviewerIDs))
	if len(reviewerIDs) == 0 {
		return counts, nil
	}
	for _, id := range reviewerIDs {
		counts[id] = 0
	}
	var rows []struct {
		ReviewerID uuid.UUID `bun:"reviewer_id"`
		Total      int       `bun:"total"`
	}
	err := r.db.NewSelect().
		Model((*AssignmentRecord)(nil)).
		Column("reviewer_id").
		ColumnExpr("COUNT(*) AS total").
		Where("reviewer_id IN (?)", bun.In(reviewerIDs)).
		Where("status IN (?)", bun.In(holdingStatuses())).
		Group("reviewer_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ReviewerID] = row.Total
	}
	return counts, nil
}

// ListOverdue returns one keyset page of ACTIVE assignments whose expected
// completion time is before AsOf, ordered by (expected_completion_at, id).
func (r *Repository) ListOverdue(ctx context.Context, filter types.OverdueFilter) (types.AssignmentPage, error) {
	limit := clampLimit(filter.Limit)
	var records []*AssignmentRecord
	q := r.db.NewSelect().
		Model(&records).
		Where("status = ?", string(types.AssignmentStatusActive)).
		Where("expected_completion_at IS NOT NULL").
		Where("expected_completion_at < ?", filter.AsOf)
	if after := filter.After; after != nil {
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("expected_completion_at > ?", after.ExpectedCompletionTime).
				WhereGroup(" OR ", func(q *bun.SelectQuery) *bun.SelectQuery {
					return q.Where("expected_completion_at = ?", after.ExpectedCompletionTime).
						Where("id > ?", after.ID)
				})
		})
	}
	err := q.OrderExpr("expected_completion_at ASC").
		OrderExpr("id ASC").
		Limit(limit + 1).
		Scan(ctx)
	if err != nil {
		return types.AssignmentPage{}, err
	}
	page := types.AssignmentPage{}
	if len(records) > limit {
		records = records[:limit]
		page.HasMore = true
	}
	page.Assignments = toDomainSlice(records)
	page.Total = len(page.Assignments)
	if page.HasMore {
		last := records[len(records)-1]
		page.NextCursor = &types.OverdueCursor{
			ExpectedCompletionTime: *last.ExpectedCompletionAt,
			ID:                     last.ID,
		}
	}
	return page, nil
}

// ListAssignments returns assignments matching the filter, newest first unless
// OldestFirst is set.
func (r *Repository) ListAssignments(ctx context.Context, filter types.AssignmentFilter) (types.AssignmentPage, error) {
	limit, offset := normalizePagination(filter.Pagination)
	records, total, err := r.assignments.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		if filter.ReviewTaskID != uuid.Nil {
			q = q.Where("review_task_id = ?", filter.ReviewTaskID)
		}
		if filter.ReviewerID != uuid.Nil {
			q = q.Where("reviewer_id = ?", filter.ReviewerID)
		}
		if reviewType := filter.ReviewType.Normalize(); reviewType != "" {
			q = q.Where("review_type = ?", string(reviewType))
		}
		if len(filter.Statuses) > 0 {
			q = q.Where("status IN (?)", bun.In(statusStrings(filter.Statuses)))
		}
		if filter.OldestFirst {
			q = q.OrderExpr("assigned_at ASC").OrderExpr("id ASC")
		} else {
			q = q.OrderExpr("assigned_at DESC").OrderExpr("id DESC")
		}
		return q.Limit(limit).Offset(offset)
	})
	if err != nil {
		return types.AssignmentPage{}, err
	}
	next := offset + len(records)
	return types.AssignmentPage{
		Assignments: toDomainSlice(records),
		Total:       total,
		NextOffset:  next,
		HasMore:     next < total,
	}, nil
}

// ListEvents returns the audit trail of one assignment in order.
func (r *Repository) ListEvents(ctx context.Context, assignmentID uuid.UUID) ([]types.AssignmentEvent, error) {
	if assignmentID == uuid.Nil {
		return nil, types.ErrAssignmentIDRequired
	}
	records, _, err := r.events.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("assignment_id = ?", assignmentID).OrderExpr("sequence ASC")
	})
	if err != nil {
		return nil, err
	}
	events := make([]types.AssignmentEvent, 0, len(records))
	for _, rec := range records {
		events = append(events, types.AssignmentEvent{
			ID:           rec.ID,
			AssignmentID: rec.AssignmentID,
			ReviewTaskID: rec.ReviewTaskID,
			ReviewerID:   rec.ReviewerID,
			ActorID:      rec.ActorID,
			FromStatus:   types.AssignmentStatus(rec.FromStatus),
			ToStatus:     types.AssignmentStatus(rec.ToStatus),
			Reason:       rec.Reason,
			OccurredAt:   rec.OccurredAt,
		})
	}
	return events, nil
}

// ListUpcoming returns ACTIVE assignments due within [from, until].
func (r *Repository) ListUpcoming(ctx context.Context, from, until time.Time, limit int) ([]types.Assignment, error) {
	records, _, err := r.assignments.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("status = ?", string(types.AssignmentStatusActive)).
			Where("expected_completion_at >= ?", from).
			Where("expected_completion_at <= ?", until).
			OrderExpr("expected_completion_at ASC").
			OrderExpr("id ASC").
			Limit(clampLimit(limit))
	})
	if err != nil {
		return nil, err
	}
	return toDomainSlice(records), nil
}

// ReviewerStats aggregates a reviewer's assignments by status.
func (r *Repository) ReviewerStats(ctx context.Context, filter types.ReviewerStatsFilter) (types.ReviewerStats, error) {
	stats := types.ReviewerStats{ReviewerID: filter.ReviewerID}
	if filter.ReviewerID == uuid.Nil {
		return stats, types.ErrReviewerIDRequired
	}
	var rows []struct {
		Status       string `bun:"status"`
		AutoAssigned bool   `bun:"auto_assigned"`
		Total        int    `bun:"total"`
	}
	q := r.db.NewSelect().
		Model((*AssignmentRecord)(nil)).
		Column("status", "auto_assigned").
		ColumnExpr("COUNT(*) AS total").
		Where("reviewer_id = ?", filter.ReviewerID)
	if filter.Since != nil {
		q = q.Where("assigned_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		q = q.Where("assigned_at < ?", *filter.Until)
	}
	if err := q.Group("status", "auto_assigned").Scan(ctx, &rows); err != nil {
		return stats, err
	}
	for _, row := range rows {
		stats.Total += row.Total
		if row.AutoAssigned {
			stats.AutoAssigned += row.Total
		}
		switch types.AssignmentStatus(row.Status) {
		case types.AssignmentStatusActive:
			stats.Active += row.Total
		case types.AssignmentStatusAccepted:
			stats.Accepted += row.Total
		case types.AssignmentStatusRejected:
			stats.Rejected += row.Total
		case types.AssignmentStatusCancelled:
			stats.Cancelled += row.Total
		case types.AssignmentStatusCompleted:
			stats.Completed += row.Total
		}
	}
	return stats, nil
}

func applyStatus(rec *AssignmentRecord, status types.AssignmentStatus, at time.Time) string {
	rec.Status = string(status)
	rec.UpdatedAt = at
	stamp := at
	switch status {
	case types.AssignmentStatusAccepted:
		rec.AcceptedAt = &stamp
		return "accepted_at"
	case types.AssignmentStatusRejected:
		rec.RejectedAt = &stamp
		return "rejected_at"
	case types.AssignmentStatusCancelled:
		rec.CancelledAt = &stamp
		return "cancelled_at"
	default:
		rec.CompletedAt = &stamp
		return "completed_at"
	}
}

func holdingStatuses() []string {
	return statusStrings(types.HoldingStatuses())
}

func statusStrings(statuses []types.AssignmentStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	return out
}

func normalizePagination(p types.Pagination) (int, int) {
	limit := p.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

func fromDomain(a types.Assignment) *AssignmentRecord {
	return &AssignmentRecord{
		ID:                   a.ID,
		ReviewTaskID:         a.ReviewTaskID,
		ReviewType:           string(a.ReviewType.Normalize()),
		ReviewerID:           a.ReviewerID,
		ReviewerRole:         a.ReviewerRole,
		AssignerID:           a.AssignerID,
		Status:               string(a.Status),
		AssignedAt:           a.AssignedAt,
		AcceptedAt:           a.AcceptedAt,
		RejectedAt:           a.RejectedAt,
		CancelledAt:          a.CancelledAt,
		CompletedAt:          a.CompletedAt,
		AssignmentReason:     a.AssignmentReason,
		AutoAssigned:         a.AutoAssigned,
		WeightScore:          a.WeightScore,
		ExpectedCompletionAt: a.ExpectedCompletionTime,
		UpdatedAt:            a.UpdatedAt,
	}
}

func toDomain(rec *AssignmentRecord) types.Assignment {
	return types.Assignment{
		ID:                     rec.ID,
		ReviewTaskID:           rec.ReviewTaskID,
		ReviewType:             types.ReviewType(rec.ReviewType),
		ReviewerID:             rec.ReviewerID,
		ReviewerRole:           rec.ReviewerRole,
		AssignerID:             rec.AssignerID,
		Status:                 types.AssignmentStatus(rec.Status),
		AssignedAt:             rec.AssignedAt,
		AcceptedAt:             rec.AcceptedAt,
		RejectedAt:             rec.RejectedAt,
		CancelledAt:            rec.CancelledAt,
		CompletedAt:            rec.CompletedAt,
		AssignmentReason:       rec.AssignmentReason,
		AutoAssigned:           rec.AutoAssigned,
		WeightScore:            rec.WeightScore,
		ExpectedCompletionTime: rec.ExpectedCompletionAt,
		UpdatedAt:              rec.UpdatedAt,
	}
}

func toDomainPtr(rec *AssignmentRecord) *types.Assignment {
	if rec == nil {
		return nil
	}
	a := toDomain(rec)
	return &a
}

func toDomainSlice(records []*AssignmentRecord) []types.Assignment {
	out := make([]types.Assignment, 0, len(records))
	for _, rec := range records {
		out = append(out, toDomain(rec))
	}
	return out
}

// RecordFromAssignment maps a domain assignment onto its table row.
func RecordFromAssignment(a types.Assignment) *AssignmentRecord {
	return fromDomain(a)
}

// requireAffected treats a guarded update that matched no row as a lost race
// on the status column.
func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: status changed concurrently", types.ErrInvalidTransition)
	}
	return nil
}
