// Package eligibility decides which reviewers may legally receive a review
// task.
package eligibility

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/google/uuid"
)

// Request describes the task being placed and, for manual placement, who is
// placing it and with whom.
type Request struct {
	ReviewType    types.ReviewType
	PriorityLevel int
	AuthorID      uuid.UUID
	Policy        types.AssignmentPolicy
	Manual        *ManualRequest
}

// ManualRequest carries the assigner and the reviewer they picked.
type ManualRequest struct {
	AssignerID uuid.UUID
	// AssignerRole skips the directory lookup when the caller already knows it.
	AssignerRole     string
	TargetReviewerID uuid.UUID
}

// Exclusion explains why a reviewer was dropped from the candidate set.
type Exclusion struct {
	ReviewerID uuid.UUID
	Role       string
	Reason     string
}

const (
	ExclusionNoProfile  = "no_active_profile"
	ExclusionPriority   = "priority_too_low"
	ExclusionSelfReview = "self_review"
	ExclusionManualOnly = "auto_assignment_disabled"
)

// Result is the ordered candidate set plus the exclusions seen on the way.
type Result struct {
	Candidates []types.Candidate
	Excluded   []Exclusion
}

// Config wires the resolver collaborators.
type Config struct {
	Profiles  types.ProfileStore
	Directory types.ReviewerDirectory
	Logger    types.Logger
}

// Resolver applies the eligibility rules in order: active profiles for the
// review type, role priority, self-review, assigner permission, then the
// auto-assignment flag.
type Resolver struct {
	profiles  types.ProfileStore
	directory types.ReviewerDirectory
	logger    types.Logger
}

// NewResolver constructs a resolver.
func NewResolver(cfg Config) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Resolver{
		profiles:  cfg.Profiles,
		directory: cfg.Directory,
		logger:    logger,
	}
}

// Resolve returns every reviewer allowed to take the task, ordered by
// reviewer id. Ties between roles are left to the selector.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	if r.profiles == nil {
		return Result{}, types.ErrMissingProfileStore
	}
	if r.directory == nil {
		return Result{}, types.ErrMissingReviewerDirectory
	}
	reviewType := req.ReviewType.Normalize()
	if reviewType == "" {
		return Result{}, types.ErrReviewTypeRequired
	}
	policy := req.Policy
	if policy == "" {
		policy = types.AssignmentPolicyAuto
	}
	if policy == types.AssignmentPolicyManual && req.Manual == nil {
		return Result{}, types.ErrTargetReviewerRequired
	}

	profiles, err := r.profiles.ListActiveProfiles(ctx, reviewType)
	if err != nil {
		return Result{}, err
	}
	if len(profiles) == 0 {
		return Result{}, fmt.Errorf("%w: no active profile for review type %q", types.ErrNoEligibleRole, reviewType)
	}
	byRole := make(map[string]types.PermissionProfile, len(profiles))
	for _, profile := range profiles {
		byRole[profile.RoleName] = profile
	}

	pool, err := r.pool(ctx, policy, req.Manual, byRole)
	if err != nil {
		return Result{}, err
	}

	required := req.PriorityLevel
	if required <= 0 {
		required = types.DefaultPriorityLevel
	}
	result := Result{}
	selfReview := make(map[string]bool)
	seen := make(map[uuid.UUID]struct{}, len(pool))
	for _, reviewer := range pool {
		if _, dup := seen[reviewer.ID]; dup {
			continue
		}
		seen[reviewer.ID] = struct{}{}

		role := strings.TrimSpace(reviewer.Role)
		profile, ok := byRole[role]
		if !ok {
			result.exclude(reviewer, ExclusionNoProfile)
			continue
		}
		if profile.PriorityLevel < required {
			result.exclude(reviewer, ExclusionPriority)
			continue
		}
		if req.AuthorID != uuid.Nil && reviewer.ID == req.AuthorID {
			allowed, cached := selfReview[role]
			if !cached {
				allowed, err = r.profiles.CanSelfReview(ctx, role)
				if err != nil {
					return Result{}, err
				}
				selfReview[role] = allowed
			}
			if !allowed {
				result.exclude(reviewer, ExclusionSelfReview)
				continue
			}
		}
		result.Candidates = append(result.Candidates, types.Candidate{
			ReviewerID: reviewer.ID,
			Role:       role,
			Profile:    profile,
		})
	}

	if policy == types.AssignmentPolicyManual {
		if err := r.checkAssigner(ctx, req.Manual); err != nil {
			return Result{}, err
		}
	} else {
		result.Candidates = result.restrictToAuto()
	}

	for _, ex := range result.Excluded {
		r.logger.Debug("eligibility excluded reviewer", "reviewer_id", ex.ReviewerID, "role", ex.Role, "reason", ex.Reason, "review_type", reviewType)
	}
	if len(result.Candidates) == 0 {
		return result, fmt.Errorf("%w: no reviewer qualifies for review type %q at priority %d", types.ErrNoEligibleRole, reviewType, required)
	}
	sort.SliceStable(result.Candidates, func(i, j int) bool {
		return bytes.Compare(result.Candidates[i].ReviewerID[:], result.Candidates[j].ReviewerID[:]) < 0
	})
	return result, nil
}

func (r *Resolver) pool(ctx context.Context, policy types.AssignmentPolicy, manual *ManualRequest, byRole map[string]types.PermissionProfile) ([]types.Reviewer, error) {
	switch policy {
	case types.AssignmentPolicyManual:
		if manual.TargetReviewerID == uuid.Nil {
			return nil, types.ErrTargetReviewerRequired
		}
		role, err := r.directory.RoleOf(ctx, manual.TargetReviewerID)
		if err != nil {
			return nil, err
		}
		return []types.Reviewer{{ID: manual.TargetReviewerID, Role: role}}, nil
	case types.AssignmentPolicyAuto:
		roles := make([]string, 0, len(byRole))
		for role, profile := range byRole {
			if profile.AutoAssignment {
				roles = append(roles, role)
			}
		}
		if len(roles) == 0 {
			return nil, nil
		}
		sort.Strings(roles)
		return r.directory.ListReviewers(ctx, roles)
	default:
		return nil, types.ErrUnknownPolicy
	}
}

func (r *Resolver) checkAssigner(ctx context.Context, manual *ManualRequest) error {
	if manual.AssignerID == uuid.Nil {
		return types.ErrAssignerRequired
	}
	role := strings.TrimSpace(manual.AssignerRole)
	if role == "" {
		resolved, err := r.directory.RoleOf(ctx, manual.AssignerID)
		if err != nil {
			return err
		}
		role = resolved
	}
	allowed, err := r.profiles.CanAssignReviewer(ctx, role)
	if err != nil {
		return err
	}
	if !allowed {
		r.logger.Debug("eligibility rejected assigner", "assigner_id", manual.AssignerID, "role", role)
		return fmt.Errorf("%w: role %q cannot assign reviewers", types.ErrAssignmentNotPermitted, role)
	}
	return nil
}

func (res *Result) exclude(reviewer types.Reviewer, reason string) {
	res.Excluded = append(res.Excluded, Exclusion{ReviewerID: reviewer.ID, Role: reviewer.Role, Reason: reason})
}

func (res *Result) restrictToAuto() []types.Candidate {
	kept := res.Candidates[:0]
	for _, candidate := range res.Candidates {
		if !candidate.Profile.AutoAssignment {
			res.Excluded = append(res.Excluded, Exclusion{ReviewerID: candidate.ReviewerID, Role: candidate.Role, Reason: ExclusionManualOnly})
			continue
		}
		kept = append(kept, candidate)
	}
	return kept
}
