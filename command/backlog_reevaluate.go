package command

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-reviewers/pkg/types"
)

// ReevaluateBacklogInput retries queued auto requests. An empty ReviewType
// drains every type.
type ReevaluateBacklogInput struct {
	ReviewType types.ReviewType
	Limit      int
	Result     *ReevaluateBacklogResult
}

// Type implements gocommand.Message.
func (ReevaluateBacklogInput) Type() string {
	return "command.review.backlog.reevaluate"
}

// Validate implements gocommand.Message.
func (ReevaluateBacklogInput) Validate() error {
	return nil
}

// ReevaluateBacklogResult summarizes one pass over the backlog.
type ReevaluateBacklogResult struct {
	Attempted   int
	Assigned    []types.Assignment
	StillQueued int
	Dropped     int
}

// ReevaluateBacklogCommandConfig wires the backlog handler.
type ReevaluateBacklogCommandConfig struct {
	Backlog types.BacklogRepository
	Request *RequestAssignmentCommand
	Logger  types.Logger
}

// ReevaluateBacklogCommand re-runs auto placement for queued tasks, oldest
// first.
type ReevaluateBacklogCommand struct {
	backlog types.BacklogRepository
	request *RequestAssignmentCommand
	env
}

// NewReevaluateBacklogCommand constructs the handler.
func NewReevaluateBacklogCommand(cfg ReevaluateBacklogCommandConfig) *ReevaluateBacklogCommand {
	return &ReevaluateBacklogCommand{
		backlog: cfg.Backlog,
		request: cfg.Request,
		env:     newEnv(nil, cfg.Logger, types.Hooks{}),
	}
}

var _ gocommand.Commander[ReevaluateBacklogInput] = (*ReevaluateBacklogCommand)(nil)

// Execute walks the queued entries. Entries whose task is gone or already
// held are dropped; entries still blocked stay queued with a bumped attempt
// count. Other failures stop the pass.
func (c *ReevaluateBacklogCommand) Execute(ctx context.Context, input ReevaluateBacklogInput) error {
	if c.backlog == nil {
		return types.ErrMissingBacklogRepository
	}
	if c.request == nil {
		return types.ErrServiceNotReady
	}
	entries, err := c.backlog.ListBacklog(ctx, types.BacklogFilter{
		ReviewType: input.ReviewType,
		Limit:      input.Limit,
	})
	if err != nil {
		return err
	}
	summary := ReevaluateBacklogResult{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		summary.Attempted++
		result := &RequestAssignmentResult{}
		err := c.request.Execute(ctx, RequestAssignmentInput{
			TaskID: entry.ReviewTaskID,
			Policy: types.AssignmentPolicyAuto,
			Reason: "backlog",
			Result: result,
		})
		switch {
		case err == nil:
			summary.Assigned = append(summary.Assigned, *result.Assignment)
		case backloggable(err):
			summary.StillQueued++
		case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrDuplicateActiveAssignment):
			if rmErr := c.backlog.RemoveBacklog(ctx, entry.ReviewTaskID); rmErr != nil {
				return rmErr
			}
			summary.Dropped++
		case errors.Is(err, types.ErrAutoAssignmentDisabled):
			summary.StillQueued += len(entries) - summary.Attempted + 1
			c.finish(input, summary)
			return nil
		default:
			c.finish(input, summary)
			return err
		}
	}
	c.finish(input, summary)
	return nil
}

func (c *ReevaluateBacklogCommand) finish(input ReevaluateBacklogInput, summary ReevaluateBacklogResult) {
	if summary.Attempted > 0 {
		c.logger.Info("review backlog reevaluated",
			"review_type", input.ReviewType,
			"attempted", summary.Attempted,
			"assigned", len(summary.Assigned),
			"still_queued", summary.StillQueued,
			"dropped", summary.Dropped,
		)
	}
	if input.Result != nil {
		*input.Result = summary
	}
}
