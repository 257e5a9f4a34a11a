// Package lifecycle owns assignment creation and the assignment state machine.
package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/google/uuid"
)

// Config wires the manager collaborators.
type Config struct {
	Repository types.AssignmentRepository
	Policy     types.TransitionPolicy
	Clock      types.Clock
	Logger     types.Logger
	Hooks      types.Hooks
}

// Manager creates assignments and moves them through their lifecycle. Every
// change is appended to the ledger's event trail.
type Manager struct {
	repo   types.AssignmentRepository
	policy types.TransitionPolicy
	clock  types.Clock
	logger types.Logger
	hooks  types.Hooks
	locks  *taskLocks
}

// NewManager constructs a manager with the default transition policy unless
// one is provided.
func NewManager(cfg Config) *Manager {
	policy := cfg.Policy
	if policy == nil {
		policy = types.DefaultTransitionPolicy()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Manager{
		repo:   cfg.Repository,
		policy: policy,
		clock:  clock,
		logger: logger,
		hooks:  cfg.Hooks,
		locks:  newTaskLocks(),
	}
}

// CreateInput describes a new assignment.
type CreateInput struct {
	Task         types.ReviewTask
	ReviewerID   uuid.UUID
	ReviewerRole string
	// AssignerID is uuid.Nil when the system picked the reviewer.
	AssignerID             uuid.UUID
	AutoAssigned           bool
	WeightScore            *float64
	ExpectedCompletionTime *time.Time
	Reason                 string
	// MaxConcurrent is the reviewer's cap, enforced inside the insert.
	MaxConcurrent int
}

// Create binds the reviewer to the task with status ACTIVE. Creation is
// serialized per task in process; the ledger's unique holder index covers
// writers in other processes.
func (m *Manager) Create(ctx context.Context, input CreateInput) (*types.Assignment, error) {
	if m.repo == nil {
		return nil, types.ErrMissingAssignmentRepository
	}
	if input.Task.ID == uuid.Nil {
		return nil, types.ErrTaskIDRequired
	}
	if input.ReviewerID == uuid.Nil {
		return nil, types.ErrReviewerIDRequired
	}
	unlock := m.locks.lock(input.Task.ID)
	defer unlock()

	now := m.clock.Now()
	created, err := m.repo.CreateAssignment(ctx, types.Assignment{
		ReviewTaskID:           input.Task.ID,
		ReviewType:             input.Task.ReviewType.Normalize(),
		ReviewerID:             input.ReviewerID,
		ReviewerRole:           strings.TrimSpace(input.ReviewerRole),
		AssignerID:             input.AssignerID,
		Status:                 types.AssignmentStatusActive,
		AssignedAt:             now,
		AssignmentReason:       strings.TrimSpace(input.Reason),
		AutoAssigned:           input.AutoAssigned,
		WeightScore:            input.WeightScore,
		ExpectedCompletionTime: input.ExpectedCompletionTime,
	}, types.CreateOptions{
		MaxConcurrent: input.MaxConcurrent,
		ActorID:       input.AssignerID,
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("review assignment created",
		"assignment_id", created.ID,
		"review_task_id", created.ReviewTaskID,
		"reviewer_id", created.ReviewerID,
		"auto_assigned", created.AutoAssigned,
	)
	m.emit(ctx, *created, types.AssignmentEvent{
		AssignmentID: created.ID,
		ReviewTaskID: created.ReviewTaskID,
		ReviewerID:   created.ReviewerID,
		ActorID:      input.AssignerID,
		ToStatus:     created.Status,
		Reason:       created.AssignmentReason,
		OccurredAt:   created.AssignedAt,
	})
	return created, nil
}

// TransitionInput requests an action on an existing assignment.
type TransitionInput struct {
	AssignmentID uuid.UUID
	Action       types.AssignmentAction
	ActorID      uuid.UUID
	Reason       string
}

// Transition applies the action after checking it against the policy. The
// ledger re-checks the current status in the same write so a concurrent
// responder cannot apply a second transition from the same state.
func (m *Manager) Transition(ctx context.Context, input TransitionInput) (*types.Assignment, error) {
	if m.repo == nil {
		return nil, types.ErrMissingAssignmentRepository
	}
	if input.AssignmentID == uuid.Nil {
		return nil, types.ErrAssignmentIDRequired
	}
	target, ok := input.Action.Target()
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownAction, input.Action)
	}
	current, err := m.repo.GetAssignment(ctx, input.AssignmentID)
	if err != nil {
		return nil, err
	}
	if err := m.policy.Validate(current.Status, target); err != nil {
		m.logger.Debug("review assignment transition rejected", "assignment_id", current.ID, "from", current.Status, "to", target)
		return nil, err
	}
	at := m.clock.Now()
	updated, err := m.repo.UpdateAssignmentStatus(ctx, types.StatusChange{
		AssignmentID: current.ID,
		From:         current.Status,
		To:           target,
		At:           at,
		ActorID:      input.ActorID,
		Reason:       strings.TrimSpace(input.Reason),
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("review assignment transitioned",
		"assignment_id", updated.ID,
		"review_task_id", updated.ReviewTaskID,
		"from", current.Status,
		"to", updated.Status,
	)
	m.emit(ctx, *updated, types.AssignmentEvent{
		AssignmentID: updated.ID,
		ReviewTaskID: updated.ReviewTaskID,
		ReviewerID:   updated.ReviewerID,
		ActorID:      input.ActorID,
		FromStatus:   current.Status,
		ToStatus:     updated.Status,
		Reason:       strings.TrimSpace(input.Reason),
		OccurredAt:   at,
	})
	return updated, nil
}

// Accept moves an ACTIVE assignment to ACCEPTED.
func (m *Manager) Accept(ctx context.Context, id, actor uuid.UUID) (*types.Assignment, error) {
	return m.Transition(ctx, TransitionInput{AssignmentID: id, Action: types.AssignmentActionAccept, ActorID: actor})
}

// Reject moves an ACTIVE assignment to REJECTED.
func (m *Manager) Reject(ctx context.Context, id, actor uuid.UUID, reason string) (*types.Assignment, error) {
	return m.Transition(ctx, TransitionInput{AssignmentID: id, Action: types.AssignmentActionReject, ActorID: actor, Reason: reason})
}

// Cancel moves an ACTIVE or ACCEPTED assignment to CANCELLED.
func (m *Manager) Cancel(ctx context.Context, id, actor uuid.UUID, reason string) (*types.Assignment, error) {
	return m.Transition(ctx, TransitionInput{AssignmentID: id, Action: types.AssignmentActionCancel, ActorID: actor, Reason: reason})
}

// Complete moves an ACCEPTED assignment to COMPLETED.
func (m *Manager) Complete(ctx context.Context, id, actor uuid.UUID) (*types.Assignment, error) {
	return m.Transition(ctx, TransitionInput{AssignmentID: id, Action: types.AssignmentActionComplete, ActorID: actor})
}

// IsOverdue reports whether the assignment is ACTIVE past its expected
// completion time. It never changes state.
func (m *Manager) IsOverdue(assignment types.Assignment, now time.Time) bool {
	return assignment.IsOverdue(now)
}

func (m *Manager) emit(ctx context.Context, assignment types.Assignment, event types.AssignmentEvent) {
	if m.hooks.AfterAssignmentChange == nil {
		return
	}
	m.hooks.AfterAssignmentChange(ctx, types.AssignmentChange{Assignment: assignment, Event: event})
}
