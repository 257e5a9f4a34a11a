package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/google/uuid"
)

const (
	profileActionUpsert     = "profile.upsert"
	profileActionDeactivate = "profile.deactivate"
)

// ProfileUpsertInput creates or replaces the profile of a (role, review type)
// pair. AutoAssignment and Active default to true when nil.
type ProfileUpsertInput struct {
	RoleName             string
	ReviewType           types.ReviewType
	CanAssignReviewer    bool
	CanSelfReview        bool
	AutoAssignment       *bool
	Weight               int
	MaxConcurrentReviews int
	PriorityLevel        int
	Active               *bool
	ActorID              uuid.UUID
	Result               *ProfileResult
}

// Type implements gocommand.Message.
func (ProfileUpsertInput) Type() string {
	return "command.review.profile.upsert"
}

// Validate implements gocommand.Message.
func (input ProfileUpsertInput) Validate() error {
	switch {
	case strings.TrimSpace(input.RoleName) == "":
		return types.ErrRoleRequired
	case input.ReviewType.Normalize() == "":
		return types.ErrReviewTypeRequired
	case input.Weight < 0, input.MaxConcurrentReviews < 0, input.PriorityLevel < 0:
		return types.ErrInvalidProfile
	default:
		return nil
	}
}

func (input ProfileUpsertInput) profile() types.PermissionProfile {
	return types.PermissionProfile{
		RoleName:             strings.TrimSpace(input.RoleName),
		ReviewType:           input.ReviewType.Normalize(),
		CanAssignReviewer:    input.CanAssignReviewer,
		CanSelfReview:        input.CanSelfReview,
		AutoAssignment:       boolOr(input.AutoAssignment, true),
		Weight:               input.Weight,
		MaxConcurrentReviews: input.MaxConcurrentReviews,
		PriorityLevel:        input.PriorityLevel,
		Active:               boolOr(input.Active, true),
		CreatedBy:            input.ActorID,
		UpdatedBy:            input.ActorID,
	}
}

// ProfileResult carries the stored profile.
type ProfileResult struct {
	Profile *types.PermissionProfile
	Backlog *ReevaluateBacklogResult
}

// ProfileCommandConfig wires both profile handlers.
type ProfileCommandConfig struct {
	Profiles types.ProfileAdmin
	Backlog  *ReevaluateBacklogCommand
	Clock    types.Clock
	Logger   types.Logger
	Hooks    types.Hooks
}

// ProfileUpsertCommand writes a profile and retries queued tasks of its
// review type.
type ProfileUpsertCommand struct {
	profiles types.ProfileAdmin
	backlog  *ReevaluateBacklogCommand
	env
}

// NewProfileUpsertCommand constructs the handler.
func NewProfileUpsertCommand(cfg ProfileCommandConfig) *ProfileUpsertCommand {
	return &ProfileUpsertCommand{
		profiles: cfg.Profiles,
		backlog:  cfg.Backlog,
		env:      newEnv(cfg.Clock, cfg.Logger, cfg.Hooks),
	}
}

var _ gocommand.Commander[ProfileUpsertInput] = (*ProfileUpsertCommand)(nil)

// Execute stores the profile.
func (c *ProfileUpsertCommand) Execute(ctx context.Context, input ProfileUpsertInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	if c.profiles == nil {
		return types.ErrMissingProfileStore
	}
	stored, err := c.profiles.UpsertProfile(ctx, input.profile())
	if err != nil {
		return err
	}
	c.logger.Info("review profile stored", "role", stored.RoleName, "review_type", stored.ReviewType, "active", stored.Active, "auto_assignment", stored.AutoAssignment)
	c.profileChanged(ctx, types.ProfileEvent{
		Profile:    *stored,
		Action:     profileActionUpsert,
		ActorID:    input.ActorID,
		OccurredAt: c.now(),
	})
	result := input.Result
	if result != nil {
		result.Profile = stored
	}
	if !stored.Active || c.backlog == nil {
		return nil
	}
	summary := &ReevaluateBacklogResult{}
	if err := c.backlog.Execute(ctx, ReevaluateBacklogInput{ReviewType: stored.ReviewType, Result: summary}); err != nil {
		c.logger.Error("review backlog reevaluation failed", err, "role", stored.RoleName, "review_type", stored.ReviewType)
		return nil
	}
	if result != nil {
		result.Backlog = summary
	}
	return nil
}

// ProfileDeactivateInput removes a profile from resolution.
type ProfileDeactivateInput struct {
	RoleName   string
	ReviewType types.ReviewType
	ActorID    uuid.UUID
	Result     *ProfileResult
}

// Type implements gocommand.Message.
func (ProfileDeactivateInput) Type() string {
	return "command.review.profile.deactivate"
}

// Validate implements gocommand.Message.
func (input ProfileDeactivateInput) Validate() error {
	switch {
	case strings.TrimSpace(input.RoleName) == "":
		return types.ErrRoleRequired
	case input.ReviewType.Normalize() == "":
		return types.ErrReviewTypeRequired
	default:
		return nil
	}
}

// ProfileDeactivateCommand flips a profile to inactive. Existing assignments
// are left untouched.
type ProfileDeactivateCommand struct {
	profiles types.ProfileAdmin
	env
}

// NewProfileDeactivateCommand constructs the handler.
func NewProfileDeactivateCommand(cfg ProfileCommandConfig) *ProfileDeactivateCommand {
	return &ProfileDeactivateCommand{
		profiles: cfg.Profiles,
		env:      newEnv(cfg.Clock, cfg.Logger, cfg.Hooks),
	}
}

var _ gocommand.Commander[ProfileDeactivateInput] = (*ProfileDeactivateCommand)(nil)

// Execute deactivates the profile.
func (c *ProfileDeactivateCommand) Execute(ctx context.Context, input ProfileDeactivateInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	if c.profiles == nil {
		return types.ErrMissingProfileStore
	}
	updated, err := c.profiles.DeactivateProfile(ctx, strings.TrimSpace(input.RoleName), input.ReviewType.Normalize(), input.ActorID)
	if err != nil {
		return err
	}
	c.logger.Info("review profile deactivated", "role", updated.RoleName, "review_type", updated.ReviewType)
	c.profileChanged(ctx, types.ProfileEvent{
		Profile:    *updated,
		Action:     profileActionDeactivate,
		ActorID:    input.ActorID,
		OccurredAt: c.now(),
	})
	if input.Result != nil {
		input.Result.Profile = updated
	}
	return nil
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}
