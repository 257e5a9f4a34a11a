package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-reviewers/internal/testsupport"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T) (*Repository, *testsupport.Clock) {
	t.Helper()
	clock := testsupport.NewClock(baseTime)
	repo, err := NewRepository(RepositoryConfig{
		DB:    testsupport.NewDB(t),
		Clock: clock,
		IDGen: &testsupport.SequenceIDs{},
	})
	require.NoError(t, err)
	return repo, clock
}

func TestRepository_CreateAndFetchRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	score := 1.5
	expected := baseTime.Add(22 * time.Hour)
	assigner := uuid.New()
	created, err := repo.CreateAssignment(ctx, types.Assignment{
		ReviewTaskID:           uuid.New(),
		ReviewType:             types.ReviewTypeDelete,
		ReviewerID:             uuid.New(),
		ReviewerRole:           "moderator",
		AssignerID:             assigner,
		AssignmentReason:       "manual pick",
		AutoAssigned:           true,
		WeightScore:            &score,
		ExpectedCompletionTime: &expected,
	}, types.CreateOptions{ActorID: assigner})
	require.NoError(t, err)
	require.Equal(t, types.AssignmentStatusActive, created.Status)
	require.True(t, created.AssignedAt.Equal(baseTime))

	fetched, err := repo.GetAssignment(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, fetched.ID)
	require.Equal(t, created.ReviewTaskID, fetched.ReviewTaskID)
	require.Equal(t, created.ReviewerID, fetched.ReviewerID)
	require.Equal(t, "moderator", fetched.ReviewerRole)
	require.Equal(t, assigner, fetched.AssignerID)
	require.Equal(t, types.AssignmentStatusActive, fetched.Status)
	require.True(t, fetched.AssignedAt.Equal(created.AssignedAt))
	require.Nil(t, fetched.AcceptedAt)
	require.Nil(t, fetched.RejectedAt)
	require.Equal(t, "manual pick", fetched.AssignmentReason)
	require.True(t, fetched.AutoAssigned)
	require.NotNil(t, fetched.WeightScore)
	require.InDelta(t, 1.5, *fetched.WeightScore, 1e-9)
	require.NotNil(t, fetched.ExpectedCompletionTime)
	require.True(t, fetched.ExpectedCompletionTime.Equal(expected))

	events, err := repo.ListEvents(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, types.AssignmentStatus(""), events[0].FromStatus)
	require.Equal(t, types.AssignmentStatusActive, events[0].ToStatus)
	require.Equal(t, assigner, events[0].ActorID)
}

func TestRepository_SystemAssignmentHasNoAssigner(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	created, err := repo.CreateAssignment(ctx, types.Assignment{
		ReviewTaskID: uuid.New(),
		ReviewerID:   uuid.New(),
	}, types.CreateOptions{})
	require.NoError(t, err)

	fetched, err := repo.GetAssignment(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, uuid.Nil, fetched.AssignerID)
	require.Nil(t, fetched.WeightScore)
	require.Nil(t, fetched.ExpectedCompletionTime)
}

func TestRepository_CreateRejectsSecondHolder(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	taskID := uuid.New()

	first, err := repo.CreateAssignment(ctx, types.Assignment{ReviewTaskID: taskID, ReviewerID: uuid.New()}, types.CreateOptions{})
	require.NoError(t, err)

	_, err = repo.CreateAssignment(ctx, types.Assignment{ReviewTaskID: taskID, ReviewerID: uuid.New()}, types.CreateOptions{})
	require.ErrorIs(t, err, types.ErrDuplicateActiveAssignment)

	_, err = repo.UpdateAssignmentStatus(ctx, types.StatusChange{
		AssignmentID: first.ID,
		From:         types.AssignmentStatusActive,
		To:           types.AssignmentStatusAccepted,
	})
	require.NoError(t, err)

	_, err = repo.CreateAssignment(ctx, types.Assignment{ReviewTaskID: taskID, ReviewerID: uuid.New()}, types.CreateOptions{})
	require.ErrorIs(t, err, types.ErrDuplicateActiveAssignment, "accepted assignments still hold the task")

	_, err = repo.UpdateAssignmentStatus(ctx, types.StatusChange{
		AssignmentID: first.ID,
		From:         types.AssignmentStatusAccepted,
		To:           types.AssignmentStatusCancelled,
	})
	require.NoError(t, err)

	second, err := repo.CreateAssignment(ctx, types.Assignment{ReviewTaskID: taskID, ReviewerID: uuid.New()}, types.CreateOptions{})
	require.NoError(t, err)

	holder, err := repo.HoldingAssignment(ctx, taskID)
	require.NoError(t, err)
	require.Equal(t, second.ID, holder.ID)

	history, err := repo.ListAssignments(ctx, types.AssignmentFilter{ReviewTaskID: taskID, OldestFirst: true})
	require.NoError(t, err)
	require.Equal(t, 2, history.Total)
	require.Equal(t, first.ID, history.Assignments[0].ID)
	require.Equal(t, types.AssignmentStatusCancelled, history.Assignments[0].Status)
}

func TestRepository_ConcurrentCreateKeepsSingleHolder(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	taskID := uuid.New()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateAssignment(ctx, types.Assignment{ReviewTaskID: taskID, ReviewerID: uuid.New()}, types.CreateOptions{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, types.ErrDuplicateActiveAssignment)
	}
	require.Equal(t, 1, succeeded)

	page, err := repo.ListAssignments(ctx, types.AssignmentFilter{ReviewTaskID: taskID})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
}

func TestRepository_CreateEnforcesCapacity(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	reviewer := uuid.New()

	_, err := repo.CreateAssignment(ctx, types.Assignment{ReviewTaskID: uuid.New(), ReviewerID: reviewer}, types.CreateOptions{MaxConcurrent: 1})
	require.NoError(t, err)

	_, err = repo.CreateAssignment(ctx, types.Assignment{ReviewTaskID: uuid.New(), ReviewerID: reviewer}, types.CreateOptions{MaxConcurrent: 1})
	require.ErrorIs(t, err, types.ErrNoCapacity)

	_, err = repo.CreateAssignment(ctx, types.Assignment{ReviewTaskID: uuid.New(), ReviewerID: reviewer}, types.CreateOptions{})
	require.NoError(t, err, "zero cap disables the check")

	counts, err := repo.CountActive(ctx, []uuid.UUID{reviewer, uuid.New()})
	require.NoError(t, err)
	require.Equal(t, 2, counts[reviewer])
	require.Len(t, counts, 2)
}

func TestRepository_UpdateStatusGuardsCurrentState(t *testing.T) {
	ctx := context.Background()
	repo, clock := newTestRepository(t)

	created, err := repo.CreateAssignment(ctx, types.Assignment{ReviewTaskID: uuid.New(), ReviewerID: uuid.New()}, types.CreateOptions{})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	accepted, err := repo.UpdateAssignmentStatus(ctx, types.StatusChange{
		AssignmentID: created.ID,
		From:         types.AssignmentStatusActive,
		To:           types.AssignmentStatusAccepted,
		At:           clock.Now(),
	})
	require.NoError(t, err)
	require.Equal(t, types.AssignmentStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)
	require.True(t, accepted.AcceptedAt.Equal(clock.Now()))

	_, err = repo.UpdateAssignmentStatus(ctx, types.StatusChange{
		AssignmentID: created.ID,
		From:         types.AssignmentStatusActive,
		To:           types.AssignmentStatusRejected,
	})
	require.ErrorIs(t, err, types.ErrInvalidTransition)

	_, err = repo.UpdateAssignmentStatus(ctx, types.StatusChange{
		AssignmentID: uuid.New(),
		From:         types.AssignmentStatusActive,
		To:           types.AssignmentStatusAccepted,
	})
	require.ErrorIs(t, err, types.ErrNotFound)

	events, err := repo.ListEvents(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, types.AssignmentStatusActive, events[1].FromStatus)
	require.Equal(t, types.AssignmentStatusAccepted, events[1].ToStatus)
}

type stubResult struct {
	affected int64
	err      error
}

func (r stubResult) LastInsertId() (int64, error) { return 0, nil }
func (r stubResult) RowsAffected() (int64, error) { return r.affected, r.err }

func TestRequireAffected(t *testing.T) {
	require.NoError(t, requireAffected(stubResult{affected: 1}))
	require.ErrorIs(t, requireAffected(stubResult{}), types.ErrInvalidTransition)

	driverErr := errors.New("driver: rows affected unsupported")
	err := requireAffected(stubResult{affected: 0, err: driverErr})
	require.ErrorIs(t, err, driverErr)
	require.NotErrorIs(t, err, types.ErrInvalidTransition)

	err = requireAffected(stubResult{affected: 1, err: driverErr})
	require.ErrorIs(t, err, driverErr, "a driver error is never counted as success")
}

func TestRepository_ListOverduePagesWithCursor(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	due := func(offset time.Duration) *time.Time {
		at := baseTime.Add(offset)
		return &at
	}
	var overdue []uuid.UUID
	for i := 0; i < 5; i++ {
		a, err := repo.CreateAssignment(ctx, types.Assignment{
			ReviewTaskID:           uuid.New(),
			ReviewerID:             uuid.New(),
			ExpectedCompletionTime: due(-time.Duration(5-i) * time.Hour),
		}, types.CreateOptions{})
		require.NoError(t, err)
		overdue = append(overdue, a.ID)
	}
	_, err := repo.CreateAssignment(ctx, types.Assignment{
		ReviewTaskID:           uuid.New(),
		ReviewerID:             uuid.New(),
		ExpectedCompletionTime: due(time.Hour),
	}, types.CreateOptions{})
	require.NoError(t, err)
	accepted, err := repo.CreateAssignment(ctx, types.Assignment{
		ReviewTaskID:           uuid.New(),
		ReviewerID:             uuid.New(),
		ExpectedCompletionTime: due(-10 * time.Hour),
	}, types.CreateOptions{})
	require.NoError(t, err)
	_, err = repo.UpdateAssignmentStatus(ctx, types.StatusChange{AssignmentID: accepted.ID, From: types.AssignmentStatusActive, To: types.AssignmentStatusAccepted})
	require.NoError(t, err)

	var seen []uuid.UUID
	filter := types.OverdueFilter{AsOf: baseTime, Limit: 2}
	for {
		page, err := repo.ListOverdue(ctx, filter)
		require.NoError(t, err)
		for _, a := range page.Assignments {
			seen = append(seen, a.ID)
		}
		if !page.HasMore {
			break
		}
		filter.After = page.NextCursor
	}
	require.Equal(t, overdue, seen)
}

func TestRepository_UpcomingAndStats(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	reviewer := uuid.New()

	soon := baseTime.Add(90 * time.Minute)
	later := baseTime.Add(5 * time.Hour)
	first, err := repo.CreateAssignment(ctx, types.Assignment{ReviewTaskID: uuid.New(), ReviewerID: reviewer, AutoAssigned: true, ExpectedCompletionTime: &soon}, types.CreateOptions{})
	require.NoError(t, err)
	_, err = repo.CreateAssignment(ctx, types.Assignment{ReviewTaskID: uuid.New(), ReviewerID: reviewer, ExpectedCompletionTime: &later}, types.CreateOptions{})
	require.NoError(t, err)
	third, err := repo.CreateAssignment(ctx, types.Assignment{ReviewTaskID: uuid.New(), ReviewerID: reviewer, AutoAssigned: true}, types.CreateOptions{})
	require.NoError(t, err)
	_, err = repo.UpdateAssignmentStatus(ctx, types.StatusChange{AssignmentID: third.ID, From: types.AssignmentStatusActive, To: types.AssignmentStatusRejected})
	require.NoError(t, err)

	upcoming, err := repo.ListUpcoming(ctx, baseTime, baseTime.Add(2*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	require.Equal(t, first.ID, upcoming[0].ID)

	stats, err := repo.ReviewerStats(ctx, types.ReviewerStatsFilter{ReviewerID: reviewer})
	require.NoError(t, err)
	require.Equal(t, 3, stats.Total)
	require.Equal(t, 2, stats.Active)
	require.Equal(t, 1, stats.Rejected)
	require.Equal(t, 2, stats.AutoAssigned)

	until := baseTime
	stats, err = repo.ReviewerStats(ctx, types.ReviewerStatsFilter{ReviewerID: reviewer, Until: &until})
	require.NoError(t, err)
	require.Zero(t, stats.Total)
}

func TestRepository_Backlog(t *testing.T) {
	ctx := context.Background()
	repo, clock := newTestRepository(t)
	taskID := uuid.New()

	entry, err := repo.Enqueue(ctx, types.BacklogEntry{ReviewTaskID: taskID, ReviewType: types.ReviewTypeCreate, Reason: "no capacity"})
	require.NoError(t, err)
	require.Equal(t, 1, entry.Attempts)

	clock.Advance(time.Minute)
	entry, err = repo.Enqueue(ctx, types.BacklogEntry{ReviewTaskID: taskID, ReviewType: types.ReviewTypeCreate, Reason: "no eligible role"})
	require.NoError(t, err)
	require.Equal(t, 2, entry.Attempts)
	require.Equal(t, "no eligible role", entry.Reason)

	_, err = repo.Enqueue(ctx, types.BacklogEntry{ReviewTaskID: uuid.New(), ReviewType: types.ReviewTypeDelete})
	require.NoError(t, err)

	queued, err := repo.ListBacklog(ctx, types.BacklogFilter{ReviewType: types.ReviewTypeCreate})
	require.NoError(t, err)
	require.Len(t, queued, 1)
	require.Equal(t, taskID, queued[0].ReviewTaskID)

	require.NoError(t, repo.RemoveBacklog(ctx, taskID))
	require.NoError(t, repo.RemoveBacklog(ctx, taskID))

	all, err := repo.ListBacklog(ctx, types.BacklogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
}
