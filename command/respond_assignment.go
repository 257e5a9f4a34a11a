package command

import (
	"context"
	"fmt"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-reviewers/lifecycle"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/google/uuid"
)

// AssignmentTransitioner applies lifecycle actions.
type AssignmentTransitioner interface {
	Transition(ctx context.Context, input lifecycle.TransitionInput) (*types.Assignment, error)
}

// RespondAssignmentInput applies accept, reject, cancel or complete.
type RespondAssignmentInput struct {
	AssignmentID uuid.UUID
	Action       types.AssignmentAction
	ActorID      uuid.UUID
	Reason       string
	Result       *RespondAssignmentResult
}

// Type implements gocommand.Message.
func (RespondAssignmentInput) Type() string {
	return "command.review.assignment.respond"
}

// Validate implements gocommand.Message.
func (input RespondAssignmentInput) Validate() error {
	if input.AssignmentID == uuid.Nil {
		return types.ErrAssignmentIDRequired
	}
	if _, ok := input.Action.Target(); !ok {
		return fmt.Errorf("%w: %q", types.ErrUnknownAction, input.Action)
	}
	return nil
}

// RespondAssignmentResult carries the updated assignment and, after a
// terminal transition, what the backlog pass placed.
type RespondAssignmentResult struct {
	Assignment *types.Assignment
	Backlog    *ReevaluateBacklogResult
}

// RespondAssignmentCommandConfig wires the respond handler.
type RespondAssignmentCommandConfig struct {
	Lifecycle AssignmentTransitioner
	Backlog   *ReevaluateBacklogCommand
	Logger    types.Logger
}

// RespondAssignmentCommand moves an assignment through the state machine.
type RespondAssignmentCommand struct {
	lifecycle AssignmentTransitioner
	backlog   *ReevaluateBacklogCommand
	env
}

// NewRespondAssignmentCommand constructs the handler.
func NewRespondAssignmentCommand(cfg RespondAssignmentCommandConfig) *RespondAssignmentCommand {
	return &RespondAssignmentCommand{
		lifecycle: cfg.Lifecycle,
		backlog:   cfg.Backlog,
		env:       newEnv(nil, cfg.Logger, types.Hooks{}),
	}
}

var _ gocommand.Commander[RespondAssignmentInput] = (*RespondAssignmentCommand)(nil)

// Execute applies the action. A terminal transition frees reviewer capacity,
// so queued tasks of the same review type are retried afterwards; backlog
// failures are logged and never undo the transition.
func (c *RespondAssignmentCommand) Execute(ctx context.Context, input RespondAssignmentInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	if c.lifecycle == nil {
		return types.ErrMissingAssignmentRepository
	}
	updated, err := c.lifecycle.Transition(ctx, lifecycle.TransitionInput{
		AssignmentID: input.AssignmentID,
		Action:       input.Action,
		ActorID:      input.ActorID,
		Reason:       input.Reason,
	})
	if err != nil {
		return err
	}
	if input.Result != nil {
		input.Result.Assignment = updated
	}
	if !updated.Status.Terminal() || c.backlog == nil {
		return nil
	}
	summary := &ReevaluateBacklogResult{}
	if err := c.backlog.Execute(ctx, ReevaluateBacklogInput{ReviewType: updated.ReviewType, Result: summary}); err != nil {
		c.logger.Error("review backlog reevaluation failed", err, "assignment_id", updated.ID, "review_type", updated.ReviewType)
		return nil
	}
	if input.Result != nil {
		input.Result.Backlog = summary
	}
	return nil
}
