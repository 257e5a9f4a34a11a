package query

import (
	"context"
	"iter"
	"time"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-reviewers/pkg/types"
)

// OverdueInput selects assignments overdue as of AsOf. A zero AsOf means now
// at the time each iteration starts.
type OverdueInput struct {
	AsOf     time.Time
	PageSize int
}

// OverdueQuery exposes overdue assignments as a lazy sequence.
type OverdueQuery struct {
	repo  types.AssignmentRepository
	clock types.Clock
}

// NewOverdueQuery constructs the query helper.
func NewOverdueQuery(repo types.AssignmentRepository, clock types.Clock) *OverdueQuery {
	return &OverdueQuery{repo: repo, clock: safeClock(clock)}
}

var _ gocommand.Querier[OverdueInput, iter.Seq2[types.Assignment, error]] = (*OverdueQuery)(nil)

// Query returns a sequence that fetches pages on demand using ctx. Each range
// over the sequence starts again from the first overdue assignment. A read
// error is yielded once and ends the sequence.
func (q *OverdueQuery) Query(ctx context.Context, input OverdueInput) (iter.Seq2[types.Assignment, error], error) {
	if q.repo == nil {
		return nil, types.ErrMissingAssignmentRepository
	}
	pageSize := normalizeLimit(input.PageSize)
	return func(yield func(types.Assignment, error) bool) {
		asOf := input.AsOf
		if asOf.IsZero() {
			asOf = q.clock.Now()
		}
		filter := types.OverdueFilter{AsOf: asOf, Limit: pageSize}
		for {
			if err := ctx.Err(); err != nil {
				yield(types.Assignment{}, err)
				return
			}
			page, err := q.repo.ListOverdue(ctx, filter)
			if err != nil {
				yield(types.Assignment{}, err)
				return
			}
			for _, assignment := range page.Assignments {
				if !yield(assignment, nil) {
					return
				}
			}
			if !page.HasMore || page.NextCursor == nil {
				return
			}
			filter.After = page.NextCursor
		}
	}, nil
}
