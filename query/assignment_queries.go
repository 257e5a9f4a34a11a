package query

import (
	"context"
	"time"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	// DefaultUpcomingWindow is how far ahead upcoming deadlines look.
	DefaultUpcomingWindow = 2 * time.Hour
)

// AssignmentDetailInput selects one assignment.
type AssignmentDetailInput struct {
	AssignmentID uuid.UUID
}

// AssignmentDetail is the current state of an assignment with its trail.
type AssignmentDetail struct {
	Assignment types.Assignment
	Events     []types.AssignmentEvent
	Overdue    bool
}

// AssignmentDetailQuery loads an assignment and its event trail.
type AssignmentDetailQuery struct {
	assignments types.AssignmentRepository
	events      types.AssignmentReadRepository
	clock       types.Clock
}

// NewAssignmentDetailQuery constructs the query helper.
func NewAssignmentDetailQuery(assignments types.AssignmentRepository, events types.AssignmentReadRepository, clock types.Clock) *AssignmentDetailQuery {
	return &AssignmentDetailQuery{assignments: assignments, events: events, clock: safeClock(clock)}
}

var _ gocommand.Querier[AssignmentDetailInput, AssignmentDetail] = (*AssignmentDetailQuery)(nil)

// Query returns the assignment or ErrNotFound.
func (q *AssignmentDetailQuery) Query(ctx context.Context, input AssignmentDetailInput) (AssignmentDetail, error) {
	if q.assignments == nil {
		return AssignmentDetail{}, types.ErrMissingAssignmentRepository
	}
	if q.events == nil {
		return AssignmentDetail{}, types.ErrMissingReadRepository
	}
	assignment, err := q.assignments.GetAssignment(ctx, input.AssignmentID)
	if err != nil {
		return AssignmentDetail{}, err
	}
	events, err := q.events.ListEvents(ctx, assignment.ID)
	if err != nil {
		return AssignmentDetail{}, err
	}
	return AssignmentDetail{
		Assignment: *assignment,
		Events:     events,
		Overdue:    assignment.IsOverdue(q.clock.Now()),
	}, nil
}

// AssignmentEventsInput selects the trail of one assignment.
type AssignmentEventsInput struct {
	AssignmentID uuid.UUID
}

// AssignmentEventsQuery returns the ordered audit trail.
type AssignmentEventsQuery struct {
	repo types.AssignmentReadRepository
}

// NewAssignmentEventsQuery constructs the query helper.
func NewAssignmentEventsQuery(repo types.AssignmentReadRepository) *AssignmentEventsQuery {
	return &AssignmentEventsQuery{repo: repo}
}

var _ gocommand.Querier[AssignmentEventsInput, []types.AssignmentEvent] = (*AssignmentEventsQuery)(nil)

// Query delegates to the read repository.
func (q *AssignmentEventsQuery) Query(ctx context.Context, input AssignmentEventsInput) ([]types.AssignmentEvent, error) {
	if q.repo == nil {
		return nil, types.ErrMissingReadRepository
	}
	return q.repo.ListEvents(ctx, input.AssignmentID)
}

// TaskHistoryInput selects every assignment ever made for a task.
type TaskHistoryInput struct {
	TaskID     uuid.UUID
	Pagination types.Pagination
}

// TaskHistoryQuery lists a task's assignments newest first.
type TaskHistoryQuery struct {
	repo types.AssignmentReadRepository
}

// NewTaskHistoryQuery constructs the query helper.
func NewTaskHistoryQuery(repo types.AssignmentReadRepository) *TaskHistoryQuery {
	return &TaskHistoryQuery{repo: repo}
}

var _ gocommand.Querier[TaskHistoryInput, types.AssignmentPage] = (*TaskHistoryQuery)(nil)

// Query delegates to the read repository after normalizing paging.
func (q *TaskHistoryQuery) Query(ctx context.Context, input TaskHistoryInput) (types.AssignmentPage, error) {
	if q.repo == nil {
		return types.AssignmentPage{}, types.ErrMissingReadRepository
	}
	if input.TaskID == uuid.Nil {
		return types.AssignmentPage{}, types.ErrTaskIDRequired
	}
	return q.repo.ListAssignments(ctx, types.AssignmentFilter{
		ReviewTaskID: input.TaskID,
		Pagination:   normalizePagination(input.Pagination),
	})
}

// AssignmentListQuery lists assignments by any ledger filter. Admin listings
// use it.
type AssignmentListQuery struct {
	repo types.AssignmentReadRepository
}

// NewAssignmentListQuery constructs the query helper.
func NewAssignmentListQuery(repo types.AssignmentReadRepository) *AssignmentListQuery {
	return &AssignmentListQuery{repo: repo}
}

var _ gocommand.Querier[types.AssignmentFilter, types.AssignmentPage] = (*AssignmentListQuery)(nil)

// Query normalizes the review type and paging before delegating.
func (q *AssignmentListQuery) Query(ctx context.Context, filter types.AssignmentFilter) (types.AssignmentPage, error) {
	if q.repo == nil {
		return types.AssignmentPage{}, types.ErrMissingReadRepository
	}
	filter.ReviewType = filter.ReviewType.Normalize()
	filter.Pagination = normalizePagination(filter.Pagination)
	return q.repo.ListAssignments(ctx, filter)
}

// PendingAssignmentsInput selects a reviewer's ACTIVE assignments.
type PendingAssignmentsInput struct {
	ReviewerID uuid.UUID
	Pagination types.Pagination
}

// PendingAssignmentsQuery lists what a reviewer has not yet responded to,
// oldest first.
type PendingAssignmentsQuery struct {
	repo types.AssignmentReadRepository
}

// NewPendingAssignmentsQuery constructs the query helper.
func NewPendingAssignmentsQuery(repo types.AssignmentReadRepository) *PendingAssignmentsQuery {
	return &PendingAssignmentsQuery{repo: repo}
}

var _ gocommand.Querier[PendingAssignmentsInput, types.AssignmentPage] = (*PendingAssignmentsQuery)(nil)

// Query delegates to the read repository.
func (q *PendingAssignmentsQuery) Query(ctx context.Context, input PendingAssignmentsInput) (types.AssignmentPage, error) {
	if q.repo == nil {
		return types.AssignmentPage{}, types.ErrMissingReadRepository
	}
	if input.ReviewerID == uuid.Nil {
		return types.AssignmentPage{}, types.ErrReviewerIDRequired
	}
	return q.repo.ListAssignments(ctx, types.AssignmentFilter{
		ReviewerID:  input.ReviewerID,
		Statuses:    []types.AssignmentStatus{types.AssignmentStatusActive},
		OldestFirst: true,
		Pagination:  normalizePagination(input.Pagination),
	})
}

// UpcomingDeadlinesInput narrows the upcoming window. A zero Window uses the
// query default.
type UpcomingDeadlinesInput struct {
	Window time.Duration
	Limit  int
}

// UpcomingDeadlinesQuery lists ACTIVE assignments due soon.
type UpcomingDeadlinesQuery struct {
	repo   types.AssignmentReadRepository
	clock  types.Clock
	window time.Duration
}

// NewUpcomingDeadlinesQuery constructs the query helper.
func NewUpcomingDeadlinesQuery(repo types.AssignmentReadRepository, clock types.Clock, window time.Duration) *UpcomingDeadlinesQuery {
	if window <= 0 {
		window = DefaultUpcomingWindow
	}
	return &UpcomingDeadlinesQuery{repo: repo, clock: safeClock(clock), window: window}
}

var _ gocommand.Querier[UpcomingDeadlinesInput, []types.Assignment] = (*UpcomingDeadlinesQuery)(nil)

// Query returns assignments whose expected completion falls in
// [now, now+window].
func (q *UpcomingDeadlinesQuery) Query(ctx context.Context, input UpcomingDeadlinesInput) ([]types.Assignment, error) {
	if q.repo == nil {
		return nil, types.ErrMissingReadRepository
	}
	window := input.Window
	if window <= 0 {
		window = q.window
	}
	now := q.clock.Now()
	return q.repo.ListUpcoming(ctx, now, now.Add(window), normalizeLimit(input.Limit))
}

// ReviewerWorkloadInput lists the reviewers to count.
type ReviewerWorkloadInput struct {
	ReviewerIDs []uuid.UUID
}

// ReviewerWorkloadQuery returns ACTIVE+ACCEPTED counts per reviewer.
type ReviewerWorkloadQuery struct {
	repo types.AssignmentRepository
}

// NewReviewerWorkloadQuery constructs the query helper.
func NewReviewerWorkloadQuery(repo types.AssignmentRepository) *ReviewerWorkloadQuery {
	return &ReviewerWorkloadQuery{repo: repo}
}

var _ gocommand.Querier[ReviewerWorkloadInput, map[uuid.UUID]int] = (*ReviewerWorkloadQuery)(nil)

// Query delegates to the ledger.
func (q *ReviewerWorkloadQuery) Query(ctx context.Context, input ReviewerWorkloadInput) (map[uuid.UUID]int, error) {
	if q.repo == nil {
		return nil, types.ErrMissingAssignmentRepository
	}
	return q.repo.CountActive(ctx, input.ReviewerIDs)
}

// ReviewerStatsQuery aggregates a reviewer's outcomes.
type ReviewerStatsQuery struct {
	repo types.AssignmentReadRepository
}

// NewReviewerStatsQuery constructs the query helper.
func NewReviewerStatsQuery(repo types.AssignmentReadRepository) *ReviewerStatsQuery {
	return &ReviewerStatsQuery{repo: repo}
}

var _ gocommand.Querier[types.ReviewerStatsFilter, types.ReviewerStats] = (*ReviewerStatsQuery)(nil)

// Query delegates to the read repository.
func (q *ReviewerStatsQuery) Query(ctx context.Context, filter types.ReviewerStatsFilter) (types.ReviewerStats, error) {
	if q.repo == nil {
		return types.ReviewerStats{}, types.ErrMissingReadRepository
	}
	if filter.Since != nil && filter.Until != nil && filter.Until.Before(*filter.Since) {
		filter.Since, filter.Until = filter.Until, filter.Since
	}
	return q.repo.ReviewerStats(ctx, filter)
}

func normalizePagination(p types.Pagination) types.Pagination {
	p.Limit = normalizeLimit(p.Limit)
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func safeClock(clock types.Clock) types.Clock {
	if clock != nil {
		return clock
	}
	return types.SystemClock{}
}
