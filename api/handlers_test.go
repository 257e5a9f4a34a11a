package api

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-reviewers/internal/testsupport"
	"github.com/goliatone/go-reviewers/ledger"
	"github.com/goliatone/go-reviewers/permission"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/goliatone/go-reviewers/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var handlerBase = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

type handlerFixture struct {
	handlers  *Handlers
	clock     *testsupport.Clock
	directory *testsupport.Directory
	tasks     *testsupport.Tasks
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	db := testsupport.NewDB(t)
	clock := testsupport.NewClock(handlerBase)
	profiles, err := permission.NewRepository(permission.RepositoryConfig{DB: db, Clock: clock})
	require.NoError(t, err)
	store, err := ledger.NewRepository(ledger.RepositoryConfig{DB: db, Clock: clock})
	require.NoError(t, err)

	f := &handlerFixture{
		clock:     clock,
		directory: testsupport.NewDirectory(),
		tasks:     testsupport.NewTasks(),
	}
	svc := service.New(service.Config{
		Profiles:    profiles,
		Assignments: store,
		Directory:   f.directory,
		Tasks:       f.tasks,
		Clock:       clock,
	})
	f.handlers, err = NewHandlers(Config{Engine: svc})
	require.NoError(t, err)
	return f
}

func (f *handlerFixture) task(reviewType types.ReviewType) uuid.UUID {
	id := uuid.New()
	f.tasks.Put(types.ReviewTask{ID: id, ReviewType: reviewType, AuthorID: uuid.New()})
	return id
}

func TestNewHandlers_RequiresEngine(t *testing.T) {
	_, err := NewHandlers(Config{})
	require.ErrorIs(t, err, types.ErrServiceNotReady)
}

func TestHandlers_ProfileThenAssignAndRespond(t *testing.T) {
	ctx := context.Background()
	f := newHandlerFixture(t)
	admin, reviewer := uuid.New(), uuid.New()
	f.directory.Set(reviewer, "editor")
	f.directory.Set(admin, "chief")

	taskID := f.task(types.ReviewTypeUpdate)
	_, err := f.handlers.requestAssignment(ctx, taskID, admin, RequestAssignmentBody{Policy: "auto"})
	require.ErrorIs(t, err, types.ErrNoEligibleRole)
	require.Equal(t, TextCodeNoEligibleRole, MapError(err).TextCode)

	result, err := f.handlers.upsertProfile(ctx, admin, ProfileBody{
		RoleName:             "editor",
		ReviewType:           "UPDATE",
		Weight:               2,
		MaxConcurrentReviews: 3,
	})
	require.NoError(t, err)
	require.Equal(t, "update", result.Profile.ReviewType)
	require.True(t, result.Profile.AutoAssignment)
	require.Len(t, result.BacklogAssigned, 1, "queued task is placed once a role becomes eligible")
	placed := result.BacklogAssigned[0]
	require.Equal(t, reviewer, placed.ReviewerID)
	require.Nil(t, placed.AssignerID)

	accepted, err := f.handlers.respond(ctx, placed.ID, types.AssignmentActionAccept, reviewer, RespondBody{})
	require.NoError(t, err)
	require.Equal(t, "accepted", accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)

	_, err = f.handlers.respond(ctx, placed.ID, "approve", reviewer, RespondBody{})
	require.Equal(t, TextCodeValidation, MapError(err).TextCode)

	_, err = f.handlers.respond(ctx, placed.ID, types.AssignmentActionAccept, reviewer, RespondBody{})
	require.Equal(t, TextCodeInvalidTransition, MapError(err).TextCode)
}

func TestHandlers_ManualAssignmentKeepsAssigner(t *testing.T) {
	ctx := context.Background()
	f := newHandlerFixture(t)
	admin, reviewer := uuid.New(), uuid.New()
	f.directory.Set(admin, "chief")
	f.directory.Set(reviewer, "editor")

	for _, body := range []ProfileBody{
		{RoleName: "chief", ReviewType: "update", CanAssignReviewer: true, Weight: 1, MaxConcurrentReviews: 1},
		{RoleName: "editor", ReviewType: "update", Weight: 1, MaxConcurrentReviews: 1},
	} {
		_, err := f.handlers.upsertProfile(ctx, admin, body)
		require.NoError(t, err)
	}

	due := handlerBase.Add(6 * time.Hour)
	view, err := f.handlers.requestAssignment(ctx, f.task(types.ReviewTypeUpdate), admin, RequestAssignmentBody{
		Policy:                 "Manual",
		TargetReviewerID:       reviewer,
		Reason:                 "domain expert",
		ExpectedCompletionTime: &due,
	})
	require.NoError(t, err)
	require.False(t, view.Backlogged)
	require.NotNil(t, view.Assignment)
	require.Equal(t, admin, *view.Assignment.AssignerID)
	require.False(t, view.Assignment.AutoAssigned)
	require.Equal(t, due, view.Assignment.ExpectedCompletionTime.UTC())

	_, err = f.handlers.requestAssignment(ctx, f.task(types.ReviewTypeUpdate), admin, RequestAssignmentBody{
		Policy:           "manual",
		TargetReviewerID: reviewer,
	})
	mapped := MapError(err)
	require.Equal(t, TextCodeNoCapacity, mapped.TextCode)
	require.Equal(t, true, mapped.Metadata[MetadataRetryable])
}

func TestHandlers_OverdueRespectsLimit(t *testing.T) {
	ctx := context.Background()
	f := newHandlerFixture(t)
	_, err := f.handlers.upsertProfile(ctx, uuid.Nil, ProfileBody{RoleName: "editor", ReviewType: "update", Weight: 1, MaxConcurrentReviews: 10})
	require.NoError(t, err)
	for range 3 {
		f.directory.Set(uuid.New(), "editor")
	}
	for range 3 {
		_, err := f.handlers.requestAssignment(ctx, f.task(types.ReviewTypeUpdate), uuid.Nil, RequestAssignmentBody{})
		require.NoError(t, err)
	}

	views, more, err := f.handlers.overdue(ctx, handlerBase, 10)
	require.NoError(t, err)
	require.Empty(t, views)
	require.False(t, more)

	f.clock.Advance(30 * 24 * time.Hour)
	views, more, err = f.handlers.overdue(ctx, time.Time{}, 2)
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.True(t, more)
}

func TestHandlers_DeactivateProfile(t *testing.T) {
	ctx := context.Background()
	f := newHandlerFixture(t)
	_, err := f.handlers.upsertProfile(ctx, uuid.Nil, ProfileBody{RoleName: "editor", ReviewType: "delete", Weight: 1, MaxConcurrentReviews: 1})
	require.NoError(t, err)

	view, err := f.handlers.deactivateProfile(ctx, uuid.Nil, "editor", "delete")
	require.NoError(t, err)
	require.False(t, view.Profile.Active)

	_, err = f.handlers.deactivateProfile(ctx, uuid.Nil, "ghost", "delete")
	require.Equal(t, TextCodeNotFound, MapError(err).TextCode)
}

func TestParseHelpers(t *testing.T) {
	_, err := parseOptionalUUID("nope", "task_id")
	require.Equal(t, TextCodeValidation, MapError(err).TextCode)

	id, err := parseOptionalUUID("", ActorHeader)
	require.NoError(t, err)
	require.Equal(t, uuid.Nil, id)

	at, err := parseTime("2026-06-01T11:00:00+02:00", "as_of")
	require.NoError(t, err)
	require.Equal(t, handlerBase, at)

	_, err = parseDuration("-1h", "window")
	require.Error(t, err)
	window, err := parseDuration("90m", "window")
	require.NoError(t, err)
	require.Equal(t, 90*time.Minute, window)

	require.Equal(t, 100, clampLimit(0, 100, 500))
	require.Equal(t, 500, clampLimit(9000, 100, 500))
	require.Nil(t, timePtr(time.Time{}))
}
