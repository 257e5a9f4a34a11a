package command

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-reviewers/eligibility"
	"github.com/goliatone/go-reviewers/internal/testsupport"
	"github.com/goliatone/go-reviewers/ledger"
	"github.com/goliatone/go-reviewers/lifecycle"
	"github.com/goliatone/go-reviewers/permission"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 4, 6, 9, 0, 0, 0, time.UTC)

type harness struct {
	clock      *testsupport.Clock
	profiles   *permission.Repository
	ledger     *ledger.Repository
	directory  *testsupport.Directory
	tasks      *testsupport.Tasks
	gate       *stubFeatureGate
	recorder   *recordingHooks
	request    *RequestAssignmentCommand
	respond    *RespondAssignmentCommand
	backlog    *ReevaluateBacklogCommand
	upsert     *ProfileUpsertCommand
	deactivate *ProfileDeactivateCommand
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testsupport.NewDB(t)
	clock := testsupport.NewClock(baseTime)
	ids := &testsupport.SequenceIDs{}
	profiles, err := permission.NewRepository(permission.RepositoryConfig{DB: db, Clock: clock, IDGen: ids})
	require.NoError(t, err)
	store, err := ledger.NewRepository(ledger.RepositoryConfig{DB: db, Clock: clock, IDGen: ids})
	require.NoError(t, err)

	h := &harness{
		clock:     clock,
		profiles:  profiles,
		ledger:    store,
		directory: testsupport.NewDirectory(),
		tasks:     testsupport.NewTasks(),
		gate:      &stubFeatureGate{enabled: true},
		recorder:  &recordingHooks{},
	}
	hooks := h.recorder.hooks()
	manager := lifecycle.NewManager(lifecycle.Config{Repository: store, Clock: clock, Hooks: hooks})
	h.request = NewRequestAssignmentCommand(RequestAssignmentCommandConfig{
		Tasks:       h.tasks,
		Resolver:    eligibility.NewResolver(eligibility.Config{Profiles: profiles, Directory: h.directory}),
		Assignments: store,
		Lifecycle:   manager,
		Backlog:     store,
		FeatureGate: h.gate,
		Clock:       clock,
		Hooks:       hooks,
	})
	h.backlog = NewReevaluateBacklogCommand(ReevaluateBacklogCommandConfig{Backlog: store, Request: h.request})
	h.respond = NewRespondAssignmentCommand(RespondAssignmentCommandConfig{Lifecycle: manager, Backlog: h.backlog})
	profileCfg := ProfileCommandConfig{Profiles: profiles, Backlog: h.backlog, Clock: clock, Hooks: hooks}
	h.upsert = NewProfileUpsertCommand(profileCfg)
	h.deactivate = NewProfileDeactivateCommand(profileCfg)
	return h
}

func (h *harness) profile(t *testing.T, profile types.PermissionProfile) {
	t.Helper()
	profile.Active = true
	_, err := h.profiles.UpsertProfile(context.Background(), profile)
	require.NoError(t, err)
}

func (h *harness) task(reviewType types.ReviewType, author uuid.UUID) uuid.UUID {
	id := uuid.New()
	h.tasks.Put(types.ReviewTask{ID: id, ReviewType: reviewType, AuthorID: author})
	return id
}

func (h *harness) auto(t *testing.T, taskID uuid.UUID) (*RequestAssignmentResult, error) {
	t.Helper()
	result := &RequestAssignmentResult{}
	err := h.request.Execute(context.Background(), RequestAssignmentInput{TaskID: taskID, Result: result})
	return result, err
}

func TestRequestAssignment_WeightedSelectionAndCapacity(t *testing.T) {
	h := newHarness(t)
	h.profile(t, types.PermissionProfile{RoleName: "r1", ReviewType: types.ReviewTypeCreate, AutoAssignment: true, Weight: 2, MaxConcurrentReviews: 1})
	h.profile(t, types.PermissionProfile{RoleName: "r2", ReviewType: types.ReviewTypeCreate, AutoAssignment: true, Weight: 1, MaxConcurrentReviews: 5})
	reviewerA, reviewerB := uuid.New(), uuid.New()
	h.directory.Set(reviewerA, "r1")
	h.directory.Set(reviewerB, "r2")

	first, err := h.auto(t, h.task(types.ReviewTypeCreate, uuid.Nil))
	require.NoError(t, err)
	require.Equal(t, reviewerA, first.Assignment.ReviewerID)
	require.True(t, first.Assignment.AutoAssigned)
	require.Equal(t, uuid.Nil, first.Assignment.AssignerID)
	require.NotNil(t, first.Assignment.WeightScore)
	require.Equal(t, 2.0, *first.Assignment.WeightScore)

	second, err := h.auto(t, h.task(types.ReviewTypeCreate, uuid.Nil))
	require.NoError(t, err)
	require.Equal(t, reviewerB, second.Assignment.ReviewerID)
	require.Equal(t, 1.0, *second.Assignment.WeightScore)

	fetched, err := h.ledger.GetAssignment(context.Background(), second.Assignment.ID)
	require.NoError(t, err)
	require.Equal(t, *second.Assignment.WeightScore, *fetched.WeightScore)
	require.Equal(t, "r2", fetched.ReviewerRole)
}

func TestRequestAssignment_ExpectedCompletionDefaults(t *testing.T) {
	h := newHarness(t)
	h.profile(t, types.PermissionProfile{RoleName: "editor", ReviewType: types.ReviewTypeCreate, AutoAssignment: true})
	h.directory.Set(uuid.New(), "editor")

	result, err := h.auto(t, h.task(types.ReviewTypeCreate, uuid.Nil))
	require.NoError(t, err)
	require.NotNil(t, result.Assignment.ExpectedCompletionTime)
	require.True(t, result.Assignment.ExpectedCompletionTime.Equal(baseTime.Add(70*time.Hour)), "create deadline is 72h, minus the 2h buffer")

	deadline := baseTime.Add(10 * time.Hour)
	taskID := uuid.New()
	h.tasks.Put(types.ReviewTask{ID: taskID, ReviewType: types.ReviewTypeCreate, Deadline: &deadline})
	result, err = h.auto(t, taskID)
	require.NoError(t, err)
	require.True(t, result.Assignment.ExpectedCompletionTime.Equal(baseTime.Add(8*time.Hour)))

	explicit := baseTime.Add(time.Hour)
	out := &RequestAssignmentResult{}
	err = h.request.Execute(context.Background(), RequestAssignmentInput{
		TaskID:                 h.task(types.ReviewTypeCreate, uuid.Nil),
		ExpectedCompletionTime: &explicit,
		Result:                 out,
	})
	require.NoError(t, err)
	require.True(t, out.Assignment.ExpectedCompletionTime.Equal(explicit))
}

func TestRequestAssignment_AutoSkipsManualOnlyRoles(t *testing.T) {
	h := newHarness(t)
	h.profile(t, types.PermissionProfile{RoleName: "lead", ReviewType: types.ReviewTypeCreate, AutoAssignment: false, Weight: 10})
	h.profile(t, types.PermissionProfile{RoleName: "editor", ReviewType: types.ReviewTypeCreate, AutoAssignment: true, Weight: 1})
	lead, editor := uuid.New(), uuid.New()
	h.directory.Set(lead, "lead")
	h.directory.Set(editor, "editor")

	for range 3 {
		result, err := h.auto(t, h.task(types.ReviewTypeCreate, uuid.Nil))
		require.NoError(t, err)
		require.Equal(t, editor, result.Assignment.ReviewerID)
	}
}

func TestRequestAssignment_SelfReviewExcluded(t *testing.T) {
	h := newHarness(t)
	h.profile(t, types.PermissionProfile{RoleName: "editor", ReviewType: types.ReviewTypeCreate, AutoAssignment: true})
	author := uuid.New()
	h.directory.Set(author, "editor")

	result, err := h.auto(t, h.task(types.ReviewTypeCreate, author))
	require.ErrorIs(t, err, types.ErrNoEligibleRole)
	require.Contains(t, result.Excluded, eligibility.Exclusion{ReviewerID: author, Role: "editor", Reason: eligibility.ExclusionSelfReview})
}

func TestRequestAssignment_DuplicateTask(t *testing.T) {
	h := newHarness(t)
	h.profile(t, types.PermissionProfile{RoleName: "editor", ReviewType: types.ReviewTypeCreate, AutoAssignment: true})
	h.directory.Set(uuid.New(), "editor")
	h.directory.Set(uuid.New(), "editor")
	taskID := h.task(types.ReviewTypeCreate, uuid.Nil)

	_, err := h.auto(t, taskID)
	require.NoError(t, err)
	result, err := h.auto(t, taskID)
	require.ErrorIs(t, err, types.ErrDuplicateActiveAssignment)
	require.False(t, result.Backlogged)
}

func TestRequestAssignment_HeldTaskIsNeverQueued(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.profile(t, types.PermissionProfile{RoleName: "editor", ReviewType: types.ReviewTypeCreate, AutoAssignment: true, MaxConcurrentReviews: 1})
	h.directory.Set(uuid.New(), "editor")
	taskID := h.task(types.ReviewTypeCreate, uuid.Nil)

	first, err := h.auto(t, taskID)
	require.NoError(t, err)

	again, err := h.auto(t, taskID)
	require.ErrorIs(t, err, types.ErrDuplicateActiveAssignment)
	require.NotErrorIs(t, err, types.ErrNoCapacity)
	require.False(t, again.Backlogged)
	require.Nil(t, again.Excluded)

	entries, err := h.ledger.ListBacklog(ctx, types.BacklogFilter{})
	require.NoError(t, err)
	require.Empty(t, entries)

	require.NoError(t, h.respond.Execute(ctx, RespondAssignmentInput{AssignmentID: first.Assignment.ID, Action: types.AssignmentActionAccept}))
	require.NoError(t, h.respond.Execute(ctx, RespondAssignmentInput{AssignmentID: first.Assignment.ID, Action: types.AssignmentActionComplete}))

	_, err = h.ledger.HoldingAssignment(ctx, taskID)
	require.ErrorIs(t, err, types.ErrNotFound, "a completed task must not be handed out again")
}

func TestRequestAssignment_AutoIgnoresCallerAssigner(t *testing.T) {
	h := newHarness(t)
	h.profile(t, types.PermissionProfile{RoleName: "editor", ReviewType: types.ReviewTypeCreate, AutoAssignment: true})
	h.directory.Set(uuid.New(), "editor")

	result := &RequestAssignmentResult{}
	err := h.request.Execute(context.Background(), RequestAssignmentInput{
		TaskID:     h.task(types.ReviewTypeCreate, uuid.Nil),
		Policy:     types.AssignmentPolicyAuto,
		AssignerID: uuid.New(),
		Result:     result,
	})
	require.NoError(t, err)
	require.True(t, result.Assignment.AutoAssigned)
	require.Equal(t, uuid.Nil, result.Assignment.AssignerID)

	stored, err := h.ledger.GetAssignment(context.Background(), result.Assignment.ID)
	require.NoError(t, err)
	require.Equal(t, uuid.Nil, stored.AssignerID)
}

func TestRequestAssignment_ConcurrentRequestsHoldOnePerTask(t *testing.T) {
	h := newHarness(t)
	h.profile(t, types.PermissionProfile{RoleName: "editor", ReviewType: types.ReviewTypeCreate, AutoAssignment: true})
	for range 4 {
		h.directory.Set(uuid.New(), "editor")
	}
	taskID := h.task(types.ReviewTypeCreate, uuid.Nil)

	const workers = 6
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- h.request.Execute(context.Background(), RequestAssignmentInput{TaskID: taskID})
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
}

func TestRequestAssignment_ManualPolicy(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.profile(t, types.PermissionProfile{RoleName: "editor", ReviewType: types.ReviewTypeCreate, AutoAssignment: false, MaxConcurrentReviews: 1})
	h.profile(t, types.PermissionProfile{RoleName: "admin", ReviewType: types.ReviewTypeDelete, CanAssignReviewer: true})
	editor, otherEditor, admin := uuid.New(), uuid.New(), uuid.New()
	h.directory.Set(editor, "editor")
	h.directory.Set(otherEditor, "editor")
	h.directory.Set(admin, "admin")

	result := &RequestAssignmentResult{}
	err := h.request.Execute(ctx, RequestAssignmentInput{
		TaskID:           h.task(types.ReviewTypeCreate, uuid.Nil),
		Policy:           types.AssignmentPolicyManual,
		AssignerID:       otherEditor,
		TargetReviewerID: editor,
		Result:           result,
	})
	require.ErrorIs(t, err, types.ErrAssignmentNotPermitted)
	require.False(t, result.Backlogged, "manual failures are never queued")

	err = h.request.Execute(ctx, RequestAssignmentInput{
		TaskID:           h.task(types.ReviewTypeCreate, uuid.Nil),
		Policy:           "MANUAL",
		AssignerID:       admin,
		TargetReviewerID: editor,
		Reason:           "domain expert",
		Result:           result,
	})
	require.NoError(t, err)
	require.Equal(t, editor, result.Assignment.ReviewerID)
	require.Equal(t, admin, result.Assignment.AssignerID)
	require.False(t, result.Assignment.AutoAssigned)
	require.Nil(t, result.Assignment.WeightScore)
	require.Equal(t, "domain expert", result.Assignment.AssignmentReason)

	err = h.request.Execute(ctx, RequestAssignmentInput{
		TaskID:           h.task(types.ReviewTypeCreate, uuid.Nil),
		Policy:           types.AssignmentPolicyManual,
		AssignerID:       admin,
		TargetReviewerID: editor,
	})
	require.ErrorIs(t, err, types.ErrNoCapacity)
}

func TestRequestAssignment_FeatureGate(t *testing.T) {
	h := newHarness(t)
	h.profile(t, types.PermissionProfile{RoleName: "editor", ReviewType: types.ReviewTypeCreate, AutoAssignment: true, CanAssignReviewer: true})
	editor := uuid.New()
	h.directory.Set(editor, "editor")
	h.gate.enabled = false

	_, err := h.auto(t, h.task(types.ReviewTypeCreate, uuid.Nil))
	require.ErrorIs(t, err, types.ErrAutoAssignmentDisabled)
	require.Equal(t, []string{FeatureAutoAssignment}, h.gate.keys)

	err = h.request.Execute(context.Background(), RequestAssignmentInput{
		TaskID:           h.task(types.ReviewTypeCreate, uuid.Nil),
		Policy:           types.AssignmentPolicyManual,
		AssignerID:       editor,
		TargetReviewerID: editor,
	})
	require.NoError(t, err, "manual placement bypasses the auto gate")

	h.gate.enabled = true
	h.gate.err = errors.New("gate offline")
	_, err = h.auto(t, h.task(types.ReviewTypeCreate, uuid.Nil))
	require.ErrorIs(t, err, h.gate.err)
}

func TestRequestAssignment_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.ErrorIs(t, h.request.Execute(ctx, RequestAssignmentInput{}), types.ErrTaskIDRequired)
	require.ErrorIs(t, h.request.Execute(ctx, RequestAssignmentInput{TaskID: uuid.New(), Policy: "round_robin"}), types.ErrUnknownPolicy)
	require.ErrorIs(t, h.request.Execute(ctx, RequestAssignmentInput{TaskID: uuid.New(), Policy: types.AssignmentPolicyManual, TargetReviewerID: uuid.New()}), types.ErrAssignerRequired)
	require.ErrorIs(t, h.request.Execute(ctx, RequestAssignmentInput{TaskID: uuid.New(), Policy: types.AssignmentPolicyManual, AssignerID: uuid.New()}), types.ErrTargetReviewerRequired)
	require.ErrorIs(t, h.request.Execute(ctx, RequestAssignmentInput{TaskID: uuid.New()}), types.ErrNotFound)

	bare := NewRequestAssignmentCommand(RequestAssignmentCommandConfig{})
	require.ErrorIs(t, bare.Execute(ctx, RequestAssignmentInput{TaskID: uuid.New()}), types.ErrMissingTaskProvider)
}

func TestBacklog_NoCapacityQueuedUntilCapacityFrees(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.profile(t, types.PermissionProfile{RoleName: "editor", ReviewType: types.ReviewTypeCreate, AutoAssignment: true, MaxConcurrentReviews: 1})
	editor := uuid.New()
	h.directory.Set(editor, "editor")

	first, err := h.auto(t, h.task(types.ReviewTypeCreate, uuid.Nil))
	require.NoError(t, err)

	waiting := h.task(types.ReviewTypeCreate, uuid.Nil)
	queued, err := h.auto(t, waiting)
	require.ErrorIs(t, err, types.ErrNoCapacity)
	require.True(t, queued.Backlogged)
	require.Len(t, h.recorder.backlog, 1)
	require.Equal(t, "no_capacity", h.recorder.backlog[0].Reason)

	entries, err := h.ledger.ListBacklog(ctx, types.BacklogFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, waiting, entries[0].ReviewTaskID)

	accepted := &RespondAssignmentResult{}
	require.NoError(t, h.respond.Execute(ctx, RespondAssignmentInput{AssignmentID: first.Assignment.ID, Action: "ACCEPT", ActorID: editor, Result: accepted}))
	require.Equal(t, types.AssignmentStatusAccepted, accepted.Assignment.Status)
	require.Nil(t, accepted.Backlog, "non-terminal transitions leave the backlog alone")

	completed := &RespondAssignmentResult{}
	require.NoError(t, h.respond.Execute(ctx, RespondAssignmentInput{AssignmentID: first.Assignment.ID, Action: types.AssignmentActionComplete, ActorID: editor, Result: completed}))
	require.NotNil(t, completed.Backlog)
	require.Len(t, completed.Backlog.Assigned, 1)
	require.Equal(t, waiting, completed.Backlog.Assigned[0].ReviewTaskID)
	require.Equal(t, editor, completed.Backlog.Assigned[0].ReviewerID)

	entries, err = h.ledger.ListBacklog(ctx, types.BacklogFilter{})
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestBacklog_ProfileUpsertServesQueuedTasks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	reviewer := uuid.New()
	h.directory.Set(reviewer, "moderator")

	taskID := h.task(types.ReviewTypeDelete, uuid.Nil)
	result, err := h.auto(t, taskID)
	require.ErrorIs(t, err, types.ErrNoEligibleRole)
	require.True(t, result.Backlogged)

	out := &ProfileResult{}
	err = h.upsert.Execute(ctx, ProfileUpsertInput{
		RoleName:      "moderator",
		ReviewType:    types.ReviewTypeDelete,
		PriorityLevel: 3,
		ActorID:       reviewer,
		Result:        out,
	})
	require.NoError(t, err)
	require.True(t, out.Profile.Active)
	require.True(t, out.Profile.AutoAssignment)
	require.NotNil(t, out.Backlog)
	require.Len(t, out.Backlog.Assigned, 1)
	require.Equal(t, taskID, out.Backlog.Assigned[0].ReviewTaskID)
	require.Len(t, h.recorder.profiles, 1)
	require.Equal(t, profileActionUpsert, h.recorder.profiles[0].Action)
}

func TestBacklog_DropsVanishedAndHeldTasks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	gone := h.task(types.ReviewTypeCreate, uuid.Nil)
	held := h.task(types.ReviewTypeCreate, uuid.Nil)
	for _, id := range []uuid.UUID{gone, held} {
		_, err := h.auto(t, id)
		require.ErrorIs(t, err, types.ErrNoEligibleRole)
	}
	h.tasks.Delete(gone)

	h.profile(t, types.PermissionProfile{RoleName: "admin", ReviewType: types.ReviewTypeCreate, CanAssignReviewer: true})
	admin := uuid.New()
	h.directory.Set(admin, "admin")
	require.NoError(t, h.request.Execute(ctx, RequestAssignmentInput{
		TaskID:           held,
		Policy:           types.AssignmentPolicyManual,
		AssignerID:       admin,
		TargetReviewerID: admin,
	}))

	summary := &ReevaluateBacklogResult{}
	require.NoError(t, h.backlog.Execute(ctx, ReevaluateBacklogInput{Result: summary}))
	require.Equal(t, 1, summary.Attempted, "the manual placement already cleared its entry")
	require.Equal(t, 1, summary.Dropped)

	entries, err := h.ledger.ListBacklog(ctx, types.BacklogFilter{})
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRespondAssignment_Errors(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.ErrorIs(t, h.respond.Execute(ctx, RespondAssignmentInput{Action: types.AssignmentActionAccept}), types.ErrAssignmentIDRequired)
	require.ErrorIs(t, h.respond.Execute(ctx, RespondAssignmentInput{AssignmentID: uuid.New(), Action: "snooze"}), types.ErrUnknownAction)
	require.ErrorIs(t, h.respond.Execute(ctx, RespondAssignmentInput{AssignmentID: uuid.New(), Action: types.AssignmentActionAccept}), types.ErrNotFound)

	h.profile(t, types.PermissionProfile{RoleName: "editor", ReviewType: types.ReviewTypeCreate, AutoAssignment: true})
	h.directory.Set(uuid.New(), "editor")
	created, err := h.auto(t, h.task(types.ReviewTypeCreate, uuid.Nil))
	require.NoError(t, err)
	require.ErrorIs(t, h.respond.Execute(ctx, RespondAssignmentInput{AssignmentID: created.Assignment.ID, Action: types.AssignmentActionComplete}), types.ErrInvalidTransition)
}

func TestProfileCommands(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	actor := uuid.New()
	reviewer := uuid.New()
	h.directory.Set(reviewer, "editor")

	require.ErrorIs(t, h.upsert.Execute(ctx, ProfileUpsertInput{ReviewType: types.ReviewTypeCreate}), types.ErrRoleRequired)
	require.ErrorIs(t, h.upsert.Execute(ctx, ProfileUpsertInput{RoleName: "editor"}), types.ErrReviewTypeRequired)
	require.ErrorIs(t, h.upsert.Execute(ctx, ProfileUpsertInput{RoleName: "editor", ReviewType: types.ReviewTypeCreate, Weight: -1}), types.ErrInvalidProfile)

	manualOnly := false
	out := &ProfileResult{}
	require.NoError(t, h.upsert.Execute(ctx, ProfileUpsertInput{
		RoleName:       "editor",
		ReviewType:     types.ReviewTypeCreate,
		AutoAssignment: &manualOnly,
		Weight:         4,
		ActorID:        actor,
		Result:         out,
	}))
	require.False(t, out.Profile.AutoAssignment)
	require.Equal(t, 4, out.Profile.Weight)
	require.Equal(t, actor, out.Profile.CreatedBy)

	_, err := h.auto(t, h.task(types.ReviewTypeCreate, uuid.Nil))
	require.ErrorIs(t, err, types.ErrNoEligibleRole)

	require.NoError(t, h.deactivate.Execute(ctx, ProfileDeactivateInput{RoleName: "editor", ReviewType: types.ReviewTypeCreate, ActorID: actor, Result: out}))
	require.False(t, out.Profile.Active)
	require.Equal(t, profileActionDeactivate, h.recorder.profiles[len(h.recorder.profiles)-1].Action)

	active, err := h.profiles.ListActiveProfiles(ctx, types.ReviewTypeCreate)
	require.NoError(t, err)
	require.Empty(t, active)

	require.ErrorIs(t, h.deactivate.Execute(ctx, ProfileDeactivateInput{RoleName: "ghost", ReviewType: types.ReviewTypeCreate}), types.ErrNotFound)
}

type recordingHooks struct {
	mu       sync.Mutex
	changes  []types.AssignmentChange
	profiles []types.ProfileEvent
	backlog  []types.BacklogEntry
}

func (r *recordingHooks) hooks() types.Hooks {
	return types.Hooks{
		AfterAssignmentChange: func(_ context.Context, change types.AssignmentChange) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.changes = append(r.changes, change)
		},
		AfterProfileChange: func(_ context.Context, event types.ProfileEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.profiles = append(r.profiles, event)
		},
		AfterBacklogChange: func(_ context.Context, entry types.BacklogEntry) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.backlog = append(r.backlog, entry)
		},
	}
}

type stubFeatureGate struct {
	mu      sync.Mutex
	enabled bool
	err     error
	keys    []string
}

func (s *stubFeatureGate) Enabled(_ context.Context, key string, _ ...featuregate.ResolveOption) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	if s.err != nil {
		return false, s.err
	}
	return s.enabled, nil
}
