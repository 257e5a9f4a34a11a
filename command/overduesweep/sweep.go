// Package overduesweep provides a cron-friendly command that scans overdue
// review assignments and drains the assignment backlog.
package overduesweep

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-reviewers/command"
	"github.com/goliatone/go-reviewers/lifecycle"
	"github.com/goliatone/go-reviewers/pkg/types"
)

const (
	// DefaultSchedule runs the sweep every five minutes.
	DefaultSchedule = "@every 5m"
	// DefaultBatchSize is the overdue page size.
	DefaultBatchSize = 100
	// MaxBatchSize caps a single page.
	MaxBatchSize = 200
	// DefaultRetryAttempts bounds reassignment retries on ErrNoCapacity.
	DefaultRetryAttempts = 3
	// DefaultRetryDelay is the first backoff step between reassignment retries.
	DefaultRetryDelay = 2 * time.Second
	maxRetryDelay     = 30 * time.Second
	reasonOverdue     = "overdue"
)

const sweepMessageType = "command.review.overdue.sweep"

var (
	// ErrMissingAssignments indicates the ledger dependency is missing.
	ErrMissingAssignments = errors.New("go-reviewers: overdue sweep requires assignment repository")
	// ErrMissingCommand indicates the command instance was not provided.
	ErrMissingCommand = errors.New("go-reviewers: overdue sweep command required")
)

// Config wires the sweep dependencies and defaults.
type Config struct {
	Schedule  string
	BatchSize int
	// ReassignOverdue cancels overdue ACTIVE assignments and requests a new
	// reviewer. When false the sweep only reports.
	ReassignOverdue bool
	RetryAttempts   uint
	RetryDelay      time.Duration
	Assignments     types.AssignmentRepository
	Lifecycle       command.AssignmentTransitioner
	Request         *command.RequestAssignmentCommand
	Backlog         *command.ReevaluateBacklogCommand
	// OnOverdue is called for every overdue assignment found, before any
	// reassignment.
	OnOverdue func(context.Context, types.Assignment)
	Clock     types.Clock
	Logger    types.Logger
}

// Input describes a single sweep run.
type Input struct {
	AsOf      *time.Time
	BatchSize int
	// Reassign overrides the configured ReassignOverdue for this run.
	Reassign *bool
	Result   *Result
}

// Type implements gocommand.Message.
func (Input) Type() string {
	return sweepMessageType
}

// Validate implements gocommand.Message.
func (Input) Validate() error {
	return nil
}

// Result summarizes a sweep run.
type Result struct {
	Overdue     int
	Cancelled   int
	Reassigned  int
	Backlogged  int
	Skipped     int
	BacklogPass command.ReevaluateBacklogResult
}

// Command scans overdue assignments on a schedule.
type Command struct {
	schedule      string
	batchSize     int
	reassign      bool
	retryAttempts uint
	retryDelay    time.Duration
	assignments   types.AssignmentRepository
	lifecycle     command.AssignmentTransitioner
	request       *command.RequestAssignmentCommand
	backlog       *command.ReevaluateBacklogCommand
	onOverdue     func(context.Context, types.Assignment)
	clock         types.Clock
	logger        types.Logger
}

// New constructs the sweep command.
func New(cfg Config) *Command {
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	attempts := cfg.RetryAttempts
	if attempts == 0 {
		attempts = DefaultRetryAttempts
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	return &Command{
		schedule:      normalizeSchedule(cfg.Schedule),
		batchSize:     normalizeBatchSize(cfg.BatchSize),
		reassign:      cfg.ReassignOverdue,
		retryAttempts: attempts,
		retryDelay:    delay,
		assignments:   cfg.Assignments,
		lifecycle:     cfg.Lifecycle,
		request:       cfg.Request,
		backlog:       cfg.Backlog,
		onOverdue:     cfg.OnOverdue,
		clock:         clock,
		logger:        logger,
	}
}

var _ gocommand.Commander[Input] = (*Command)(nil)
var _ gocommand.CronCommand = (*Command)(nil)

// Execute walks every overdue assignment as of the given time, then drains
// the backlog.
func (c *Command) Execute(ctx context.Context, input Input) error {
	if c == nil {
		return ErrMissingCommand
	}
	if c.assignments == nil {
		return ErrMissingAssignments
	}
	asOf := c.clock.Now()
	if input.AsOf != nil {
		asOf = input.AsOf.UTC()
	}
	reassign := c.reassign
	if input.Reassign != nil {
		reassign = *input.Reassign
	}
	if reassign && (c.lifecycle == nil || c.request == nil) {
		return types.ErrServiceNotReady
	}
	limit := resolveBatchSize(input.BatchSize, c.batchSize)

	summary := Result{}
	filter := types.OverdueFilter{AsOf: asOf, Limit: limit}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := c.assignments.ListOverdue(ctx, filter)
		if err != nil {
			return err
		}
		for _, assignment := range page.Assignments {
			summary.Overdue++
			c.logger.Info("review assignment overdue",
				"assignment_id", assignment.ID,
				"review_task_id", assignment.ReviewTaskID,
				"reviewer_id", assignment.ReviewerID,
				"expected_completion_at", assignment.ExpectedCompletionTime,
			)
			if c.onOverdue != nil {
				c.onOverdue(ctx, assignment)
			}
			if !reassign {
				continue
			}
			if err := c.reassignOne(ctx, assignment, &summary); err != nil {
				return err
			}
		}
		if !page.HasMore || page.NextCursor == nil {
			break
		}
		filter.After = page.NextCursor
	}

	if c.backlog != nil {
		if err := c.backlog.Execute(ctx, command.ReevaluateBacklogInput{Limit: limit, Result: &summary.BacklogPass}); err != nil {
			return err
		}
	}
	c.logSummary(summary, reassign)
	if input.Result != nil {
		*input.Result = summary
	}
	return nil
}

// CronHandler implements gocommand.CronCommand.
func (c *Command) CronHandler() func() error {
	return func() error {
		if c == nil {
			return ErrMissingCommand
		}
		return c.Execute(context.Background(), Input{BatchSize: c.batchSize})
	}
}

// CronOptions implements gocommand.CronCommand.
func (c *Command) CronOptions() gocommand.HandlerConfig {
	schedule := DefaultSchedule
	if c != nil {
		schedule = normalizeSchedule(c.schedule)
	}
	return gocommand.HandlerConfig{Expression: schedule}
}

func (c *Command) reassignOne(ctx context.Context, assignment types.Assignment, summary *Result) error {
	_, err := c.lifecycle.Transition(ctx, lifecycle.TransitionInput{
		AssignmentID: assignment.ID,
		Action:       types.AssignmentActionCancel,
		Reason:       reasonOverdue,
	})
	if errors.Is(err, types.ErrInvalidTransition) {
		// the reviewer responded after the page was read
		summary.Skipped++
		return nil
	}
	if err != nil {
		return err
	}
	summary.Cancelled++

	result := &command.RequestAssignmentResult{}
	err = retry.Do(
		func() error {
			return c.request.Execute(ctx, command.RequestAssignmentInput{
				TaskID: assignment.ReviewTaskID,
				Policy: types.AssignmentPolicyAuto,
				Reason: reasonOverdue,
				Result: result,
			})
		},
		retry.Context(ctx),
		retry.Attempts(c.retryAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, types.ErrNoCapacity)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("review reassignment retry", "review_task_id", assignment.ReviewTaskID, "attempt", n+1, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
	switch {
	case err == nil:
		summary.Reassigned++
		return nil
	case errors.Is(err, types.ErrNoCapacity), errors.Is(err, types.ErrNoEligibleRole):
		summary.Backlogged++
		return nil
	case errors.Is(err, types.ErrDuplicateActiveAssignment), errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrAutoAssignmentDisabled):
		c.logger.Info("review reassignment skipped", "review_task_id", assignment.ReviewTaskID, "reason", err.Error())
		summary.Skipped++
		return nil
	default:
		return err
	}
}

func (c *Command) logSummary(summary Result, reassign bool) {
	if c == nil || c.logger == nil {
		return
	}
	c.logger.Info(
		"review overdue sweep summary",
		"reassign", reassign,
		"overdue", summary.Overdue,
		"cancelled", summary.Cancelled,
		"reassigned", summary.Reassigned,
		"backlogged", summary.Backlogged,
		"skipped", summary.Skipped,
		"backlog_assigned", len(summary.BacklogPass.Assigned),
	)
}

func resolveBatchSize(input, fallback int) int {
	if input > 0 {
		return normalizeBatchSize(input)
	}
	if fallback > 0 {
		return normalizeBatchSize(fallback)
	}
	return DefaultBatchSize
}

func normalizeBatchSize(batchSize int) int {
	if batchSize <= 0 {
		return DefaultBatchSize
	}
	if batchSize > MaxBatchSize {
		return MaxBatchSize
	}
	return batchSize
}

func normalizeSchedule(schedule string) string {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return DefaultSchedule
	}
	return schedule
}
