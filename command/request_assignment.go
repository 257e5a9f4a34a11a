package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gocommand "github.com/goliatone/go-command"
	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-reviewers/eligibility"
	"github.com/goliatone/go-reviewers/lifecycle"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/goliatone/go-reviewers/selector"
	"github.com/google/uuid"
)

// CandidateResolver returns the reviewers allowed to take a task.
type CandidateResolver interface {
	Resolve(ctx context.Context, req eligibility.Request) (eligibility.Result, error)
}

// CandidateSelector picks one candidate given current workloads.
type CandidateSelector interface {
	Select(candidates []types.Candidate, workload map[uuid.UUID]int) (selector.Selection, error)
}

// AssignmentCreator persists a new assignment.
type AssignmentCreator interface {
	Create(ctx context.Context, input lifecycle.CreateInput) (*types.Assignment, error)
}

// RequestAssignmentInput asks the engine to bind a reviewer to a task.
type RequestAssignmentInput struct {
	TaskID uuid.UUID
	Policy types.AssignmentPolicy
	// AssignerID and TargetReviewerID are required for manual placement.
	AssignerID       uuid.UUID
	AssignerRole     string
	TargetReviewerID uuid.UUID
	// ExpectedCompletionTime overrides the deadline policy.
	ExpectedCompletionTime *time.Time
	Reason                 string
	Result                 *RequestAssignmentResult
}

// Type implements gocommand.Message.
func (RequestAssignmentInput) Type() string {
	return "command.review.assignment.request"
}

// Validate implements gocommand.Message.
func (input RequestAssignmentInput) Validate() error {
	if input.TaskID == uuid.Nil {
		return types.ErrTaskIDRequired
	}
	switch input.policy() {
	case types.AssignmentPolicyAuto:
		return nil
	case types.AssignmentPolicyManual:
		if input.AssignerID == uuid.Nil {
			return types.ErrAssignerRequired
		}
		if input.TargetReviewerID == uuid.Nil {
			return types.ErrTargetReviewerRequired
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", types.ErrUnknownPolicy, input.Policy)
	}
}

func (input RequestAssignmentInput) policy() types.AssignmentPolicy {
	policy := types.AssignmentPolicy(strings.ToLower(strings.TrimSpace(string(input.Policy))))
	if policy == "" {
		return types.AssignmentPolicyAuto
	}
	return policy
}

// RequestAssignmentResult carries the created assignment and the trace that
// led to it.
type RequestAssignmentResult struct {
	Assignment *types.Assignment
	Selection  *selector.Selection
	Excluded   []eligibility.Exclusion
	// Backlogged is set when a failed auto request was queued.
	Backlogged bool
}

// RequestAssignmentCommandConfig wires the request handler.
type RequestAssignmentCommandConfig struct {
	Tasks       types.TaskProvider
	Resolver    CandidateResolver
	Selector    CandidateSelector
	Assignments types.AssignmentRepository
	Lifecycle   AssignmentCreator
	// Backlog is optional; without it failed auto requests are not queued.
	Backlog     types.BacklogRepository
	Deadlines   *types.DeadlinePolicy
	FeatureGate featuregate.FeatureGate
	Clock       types.Clock
	Logger      types.Logger
	Hooks       types.Hooks
}

// RequestAssignmentCommand resolves eligibility, selects a reviewer for auto
// placement and creates the assignment.
type RequestAssignmentCommand struct {
	tasks       types.TaskProvider
	resolver    CandidateResolver
	selector    CandidateSelector
	assignments types.AssignmentRepository
	lifecycle   AssignmentCreator
	backlog     types.BacklogRepository
	deadlines   types.DeadlinePolicy
	featureGate featuregate.FeatureGate
	env
}

// NewRequestAssignmentCommand constructs the handler.
func NewRequestAssignmentCommand(cfg RequestAssignmentCommandConfig) *RequestAssignmentCommand {
	deadlines := types.DefaultDeadlinePolicy()
	if cfg.Deadlines != nil {
		deadlines = *cfg.Deadlines
	}
	sel := cfg.Selector
	if sel == nil {
		sel = selector.New(selector.WithLogger(cfg.Logger))
	}
	return &RequestAssignmentCommand{
		tasks:       cfg.Tasks,
		resolver:    cfg.Resolver,
		selector:    sel,
		assignments: cfg.Assignments,
		lifecycle:   cfg.Lifecycle,
		backlog:     cfg.Backlog,
		deadlines:   deadlines,
		featureGate: cfg.FeatureGate,
		env:         newEnv(cfg.Clock, cfg.Logger, cfg.Hooks),
	}
}

var _ gocommand.Commander[RequestAssignmentInput] = (*RequestAssignmentCommand)(nil)

// Execute places the task. Auto requests that fail with ErrNoCapacity or
// ErrNoEligibleRole are queued in the backlog and the error is still returned.
func (c *RequestAssignmentCommand) Execute(ctx context.Context, input RequestAssignmentInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	if err := c.ready(); err != nil {
		return err
	}
	policy := input.policy()

	task, err := c.tasks.GetReviewTask(ctx, input.TaskID)
	if err != nil {
		return err
	}
	if task == nil {
		return fmt.Errorf("%w: review task %s", types.ErrNotFound, input.TaskID)
	}
	if policy == types.AssignmentPolicyAuto {
		if err := autoAssignmentAllowed(ctx, c.featureGate, *task); err != nil {
			return err
		}
	}

	assignment, err := c.place(ctx, *task, policy, input)
	if err != nil {
		if policy == types.AssignmentPolicyAuto && backloggable(err) {
			c.enqueue(ctx, *task, err, input.Result)
		}
		return err
	}

	if c.backlog != nil {
		if err := c.backlog.RemoveBacklog(ctx, task.ID); err != nil {
			c.logger.Error("review backlog removal failed", err, "review_task_id", task.ID)
		}
	}
	if input.Result != nil {
		input.Result.Assignment = assignment
	}
	return nil
}

func (c *RequestAssignmentCommand) place(ctx context.Context, task types.ReviewTask, policy types.AssignmentPolicy, input RequestAssignmentInput) (*types.Assignment, error) {
	// A held task is never resolved, so it cannot surface a backloggable error.
	holder, err := c.assignments.HoldingAssignment(ctx, task.ID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}
	if holder != nil {
		return nil, fmt.Errorf("%w: review task %s held by assignment %s", types.ErrDuplicateActiveAssignment, task.ID, holder.ID)
	}

	req := eligibility.Request{
		ReviewType:    task.ReviewType,
		PriorityLevel: c.deadlines.PriorityLevel(task),
		AuthorID:      task.AuthorID,
		Policy:        policy,
	}
	if policy == types.AssignmentPolicyManual {
		req.Manual = &eligibility.ManualRequest{
			AssignerID:       input.AssignerID,
			AssignerRole:     input.AssignerRole,
			TargetReviewerID: input.TargetReviewerID,
		}
	}
	resolved, err := c.resolver.Resolve(ctx, req)
	if input.Result != nil {
		input.Result.Excluded = resolved.Excluded
	}
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(resolved.Candidates))
	for _, candidate := range resolved.Candidates {
		ids = append(ids, candidate.ReviewerID)
	}
	workload, err := c.assignments.CountActive(ctx, ids)
	if err != nil {
		return nil, err
	}

	var (
		chosen types.Candidate
		score  *float64
	)
	if policy == types.AssignmentPolicyAuto {
		selection, err := c.selector.Select(resolved.Candidates, workload)
		if err != nil {
			return nil, err
		}
		if input.Result != nil {
			input.Result.Selection = &selection
		}
		chosen = selection.Candidate
		value := selection.Score
		score = &value
	} else {
		chosen = resolved.Candidates[0]
		capacity := chosen.Profile.WithDefaults().MaxConcurrentReviews
		if load := workload[chosen.ReviewerID]; load >= capacity {
			return nil, fmt.Errorf("%w: reviewer %s holds %d of %d", types.ErrNoCapacity, chosen.ReviewerID, load, capacity)
		}
	}

	expected := c.deadlines.ExpectedCompletion(task, c.now())
	if input.ExpectedCompletionTime != nil {
		expected = input.ExpectedCompletionTime.UTC()
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = string(policy)
	}
	assigner := input.AssignerID
	if policy == types.AssignmentPolicyAuto {
		assigner = uuid.Nil
	}
	return c.lifecycle.Create(ctx, lifecycle.CreateInput{
		Task:                   task,
		ReviewerID:             chosen.ReviewerID,
		ReviewerRole:           chosen.Role,
		AssignerID:             assigner,
		AutoAssigned:           policy == types.AssignmentPolicyAuto,
		WeightScore:            score,
		ExpectedCompletionTime: &expected,
		Reason:                 reason,
		MaxConcurrent:          chosen.Profile.WithDefaults().MaxConcurrentReviews,
	})
}

func (c *RequestAssignmentCommand) enqueue(ctx context.Context, task types.ReviewTask, cause error, result *RequestAssignmentResult) {
	if c.backlog == nil {
		return
	}
	reason := "no_capacity"
	if errors.Is(cause, types.ErrNoEligibleRole) {
		reason = "no_eligible_role"
	}
	entry, err := c.backlog.Enqueue(ctx, types.BacklogEntry{
		ReviewTaskID: task.ID,
		ReviewType:   task.ReviewType,
		Reason:       reason,
	})
	if err != nil {
		c.logger.Error("review backlog enqueue failed", err, "review_task_id", task.ID)
		return
	}
	c.logger.Info("review task queued", "review_task_id", task.ID, "reason", reason, "attempts", entry.Attempts)
	if result != nil {
		result.Backlogged = true
	}
	c.backlogChanged(ctx, *entry)
}

func (c *RequestAssignmentCommand) ready() error {
	switch {
	case c.tasks == nil:
		return types.ErrMissingTaskProvider
	case c.resolver == nil:
		return types.ErrMissingProfileStore
	case c.assignments == nil, c.lifecycle == nil:
		return types.ErrMissingAssignmentRepository
	default:
		return nil
	}
}
