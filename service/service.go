package service

import (
	"context"
	"iter"
	"time"

	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-reviewers/command"
	"github.com/goliatone/go-reviewers/command/overduesweep"
	"github.com/goliatone/go-reviewers/eligibility"
	"github.com/goliatone/go-reviewers/lifecycle"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/goliatone/go-reviewers/query"
	"github.com/goliatone/go-reviewers/selector"
	"github.com/google/uuid"
)

// Service is the entry point for go-reviewers. It wires the profile store,
// the assignment ledger, host collaborators and the command/query facades.
type Service struct {
	cfg      Config
	manager  *lifecycle.Manager
	resolver *eligibility.Resolver
	selector *selector.Selector
	commands Commands
	queries  Queries
}

// Commands exposes the service command handlers.
type Commands struct {
	RequestAssignment *command.RequestAssignmentCommand
	RespondAssignment *command.RespondAssignmentCommand
	ReevaluateBacklog *command.ReevaluateBacklogCommand
	ProfileUpsert     *command.ProfileUpsertCommand
	ProfileDeactivate *command.ProfileDeactivateCommand
	OverdueSweep      *overduesweep.Command
}

// Queries exposes read-model helpers.
type Queries struct {
	AssignmentDetail   *query.AssignmentDetailQuery
	AssignmentEvents   *query.AssignmentEventsQuery
	TaskHistory        *query.TaskHistoryQuery
	AssignmentList     *query.AssignmentListQuery
	PendingAssignments *query.PendingAssignmentsQuery
	UpcomingDeadlines  *query.UpcomingDeadlinesQuery
	ReviewerWorkload   *query.ReviewerWorkloadQuery
	ReviewerStats      *query.ReviewerStatsQuery
	Overdue            *query.OverdueQuery
	ProfileList        *query.ProfileListQuery
}

// SweepConfig tunes the overdue sweep command.
type SweepConfig struct {
	Schedule        string
	BatchSize       int
	ReassignOverdue bool
	RetryAttempts   uint
	RetryDelay      time.Duration
	OnOverdue       func(context.Context, types.Assignment)
}

// Config captures all required dependencies so callers can provide their own
// instances (bun-backed stores, cached repositories, hooks, etc.).
type Config struct {
	Profiles types.ProfileStore
	// ProfileAdmin defaults to Profiles when it implements the admin contract.
	ProfileAdmin types.ProfileAdmin
	Assignments  types.AssignmentRepository
	// ReadRepository and Backlog default to Assignments when the ledger
	// implements them.
	ReadRepository   types.AssignmentReadRepository
	Backlog          types.BacklogRepository
	Directory        types.ReviewerDirectory
	Tasks            types.TaskProvider
	FeatureGate      featuregate.FeatureGate
	Hooks            types.Hooks
	Clock            types.Clock
	Logger           types.Logger
	TransitionPolicy types.TransitionPolicy
	Deadlines        *types.DeadlinePolicy
	SelectorStrategy selector.Strategy
	UpcomingWindow   time.Duration
	Sweep            SweepConfig
}

// New constructs a Service from the supplied configuration.
func New(cfg Config) *Service {
	norm := normalizeConfig(cfg)
	s := &Service{cfg: norm}
	s.manager = lifecycle.NewManager(lifecycle.Config{
		Repository: norm.Assignments,
		Policy:     norm.TransitionPolicy,
		Clock:      norm.Clock,
		Logger:     norm.Logger,
		Hooks:      norm.Hooks,
	})
	s.resolver = eligibility.NewResolver(eligibility.Config{
		Profiles:  norm.Profiles,
		Directory: norm.Directory,
		Logger:    norm.Logger,
	})
	s.selector = selector.New(
		selector.WithStrategy(norm.SelectorStrategy),
		selector.WithLogger(norm.Logger),
	)
	s.commands = s.buildCommands()
	s.queries = s.buildQueries()
	return s
}

func normalizeConfig(cfg Config) Config {
	if cfg.Clock == nil {
		cfg.Clock = types.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = types.NopLogger{}
	}
	if cfg.TransitionPolicy == nil {
		cfg.TransitionPolicy = types.DefaultTransitionPolicy()
	}
	if cfg.Deadlines == nil {
		deadlines := types.DefaultDeadlinePolicy()
		cfg.Deadlines = &deadlines
	}
	if cfg.ProfileAdmin == nil {
		if admin, ok := cfg.Profiles.(types.ProfileAdmin); ok {
			cfg.ProfileAdmin = admin
		}
	}
	if cfg.ReadRepository == nil {
		if reads, ok := cfg.Assignments.(types.AssignmentReadRepository); ok {
			cfg.ReadRepository = reads
		}
	}
	if cfg.Backlog == nil {
		if backlog, ok := cfg.Assignments.(types.BacklogRepository); ok {
			cfg.Backlog = backlog
		}
	}
	return cfg
}

// Commands returns the command facade.
func (s *Service) Commands() Commands {
	return s.commands
}

// Queries returns the query facade.
func (s *Service) Queries() Queries {
	return s.queries
}

// Lifecycle returns the assignment state machine shared by every command.
func (s *Service) Lifecycle() *lifecycle.Manager {
	if s == nil {
		return nil
	}
	return s.manager
}

// Ready reports whether the service has the required dependencies wired in.
func (s *Service) Ready() bool {
	return s != nil &&
		s.cfg.Profiles != nil &&
		s.cfg.Assignments != nil &&
		s.cfg.Directory != nil &&
		s.cfg.Tasks != nil
}

// HealthCheck surfaces the first missing dependency, including the read
// repository behind the audit queries.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s == nil {
		return types.ErrServiceNotReady
	}
	switch {
	case s.cfg.Profiles == nil:
		return types.ErrMissingProfileStore
	case s.cfg.Assignments == nil:
		return types.ErrMissingAssignmentRepository
	case s.cfg.Directory == nil:
		return types.ErrMissingReviewerDirectory
	case s.cfg.Tasks == nil:
		return types.ErrMissingTaskProvider
	case s.cfg.ReadRepository == nil:
		return types.ErrMissingReadRepository
	}
	return ctx.Err()
}

// RequestAssignment binds a reviewer to the task. Auto placement picks the
// reviewer; manual placement needs the assigner and the target reviewer.
func (s *Service) RequestAssignment(ctx context.Context, taskID uuid.UUID, policy types.AssignmentPolicy, assignerID, targetReviewerID uuid.UUID) (*types.Assignment, error) {
	if !s.Ready() {
		return nil, types.ErrServiceNotReady
	}
	result := &command.RequestAssignmentResult{}
	err := s.commands.RequestAssignment.Execute(ctx, command.RequestAssignmentInput{
		TaskID:           taskID,
		Policy:           policy,
		AssignerID:       assignerID,
		TargetReviewerID: targetReviewerID,
		Result:           result,
	})
	if err != nil {
		return nil, err
	}
	return result.Assignment, nil
}

// Respond applies accept, reject, cancel or complete to an assignment.
func (s *Service) Respond(ctx context.Context, assignmentID uuid.UUID, action types.AssignmentAction, actorID uuid.UUID, reason string) (*types.Assignment, error) {
	if !s.Ready() {
		return nil, types.ErrServiceNotReady
	}
	result := &command.RespondAssignmentResult{}
	err := s.commands.RespondAssignment.Execute(ctx, command.RespondAssignmentInput{
		AssignmentID: assignmentID,
		Action:       action,
		ActorID:      actorID,
		Reason:       reason,
		Result:       result,
	})
	if err != nil {
		return nil, err
	}
	return result.Assignment, nil
}

// ListOverdue returns the ACTIVE assignments past their expected completion
// as of asOf. Nothing is read until the sequence is ranged over, and every
// range starts from the beginning.
func (s *Service) ListOverdue(ctx context.Context, asOf time.Time) iter.Seq2[types.Assignment, error] {
	if s == nil {
		return failedSeq(types.ErrServiceNotReady)
	}
	seq, err := s.queries.Overdue.Query(ctx, query.OverdueInput{AsOf: asOf})
	if err != nil {
		return failedSeq(err)
	}
	return seq
}

// ReevaluateBacklog retries queued auto requests. An empty review type
// drains every type.
func (s *Service) ReevaluateBacklog(ctx context.Context, reviewType types.ReviewType) (command.ReevaluateBacklogResult, error) {
	if !s.Ready() {
		return command.ReevaluateBacklogResult{}, types.ErrServiceNotReady
	}
	result := command.ReevaluateBacklogResult{}
	err := s.commands.ReevaluateBacklog.Execute(ctx, command.ReevaluateBacklogInput{
		ReviewType: reviewType,
		Result:     &result,
	})
	return result, err
}

func (s *Service) buildCommands() Commands {
	request := command.NewRequestAssignmentCommand(command.RequestAssignmentCommandConfig{
		Tasks:       s.cfg.Tasks,
		Resolver:    s.resolver,
		Selector:    s.selector,
		Assignments: s.cfg.Assignments,
		Lifecycle:   s.manager,
		Backlog:     s.cfg.Backlog,
		Deadlines:   s.cfg.Deadlines,
		FeatureGate: s.cfg.FeatureGate,
		Clock:       s.cfg.Clock,
		Logger:      s.cfg.Logger,
		Hooks:       s.cfg.Hooks,
	})
	backlog := command.NewReevaluateBacklogCommand(command.ReevaluateBacklogCommandConfig{
		Backlog: s.cfg.Backlog,
		Request: request,
		Logger:  s.cfg.Logger,
	})
	profileCfg := command.ProfileCommandConfig{
		Profiles: s.cfg.ProfileAdmin,
		Backlog:  backlog,
		Clock:    s.cfg.Clock,
		Logger:   s.cfg.Logger,
		Hooks:    s.cfg.Hooks,
	}
	return Commands{
		RequestAssignment: request,
		RespondAssignment: command.NewRespondAssignmentCommand(command.RespondAssignmentCommandConfig{
			Lifecycle: s.manager,
			Backlog:   backlog,
			Logger:    s.cfg.Logger,
		}),
		ReevaluateBacklog: backlog,
		ProfileUpsert:     command.NewProfileUpsertCommand(profileCfg),
		ProfileDeactivate: command.NewProfileDeactivateCommand(profileCfg),
		OverdueSweep: overduesweep.New(overduesweep.Config{
			Schedule:        s.cfg.Sweep.Schedule,
			BatchSize:       s.cfg.Sweep.BatchSize,
			ReassignOverdue: s.cfg.Sweep.ReassignOverdue,
			RetryAttempts:   s.cfg.Sweep.RetryAttempts,
			RetryDelay:      s.cfg.Sweep.RetryDelay,
			Assignments:     s.cfg.Assignments,
			Lifecycle:       s.manager,
			Request:         request,
			Backlog:         backlog,
			OnOverdue:       s.cfg.Sweep.OnOverdue,
			Clock:           s.cfg.Clock,
			Logger:          s.cfg.Logger,
		}),
	}
}

func (s *Service) buildQueries() Queries {
	return Queries{
		AssignmentDetail:   query.NewAssignmentDetailQuery(s.cfg.Assignments, s.cfg.ReadRepository, s.cfg.Clock),
		AssignmentEvents:   query.NewAssignmentEventsQuery(s.cfg.ReadRepository),
		TaskHistory:        query.NewTaskHistoryQuery(s.cfg.ReadRepository),
		AssignmentList:     query.NewAssignmentListQuery(s.cfg.ReadRepository),
		PendingAssignments: query.NewPendingAssignmentsQuery(s.cfg.ReadRepository),
		UpcomingDeadlines:  query.NewUpcomingDeadlinesQuery(s.cfg.ReadRepository, s.cfg.Clock, s.cfg.UpcomingWindow),
		ReviewerWorkload:   query.NewReviewerWorkloadQuery(s.cfg.Assignments),
		ReviewerStats:      query.NewReviewerStatsQuery(s.cfg.ReadRepository),
		Overdue:            query.NewOverdueQuery(s.cfg.Assignments, s.cfg.Clock),
		ProfileList:        query.NewProfileListQuery(s.cfg.ProfileAdmin),
	}
}

func failedSeq(err error) iter.Seq2[types.Assignment, error] {
	return func(yield func(types.Assignment, error) bool) {
		yield(types.Assignment{}, err)
	}
}
