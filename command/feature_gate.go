package command

import (
	"context"

	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/google/uuid"
)

// FeatureAutoAssignment gates auto placement. Hosts should default it on.
const FeatureAutoAssignment = "reviews.auto_assignment"

// autoAssignmentAllowed resolves the auto placement flag for a task. The
// author scope lets a rollout target individual content owners; tasks with
// no author resolve from the context scope. A nil gate allows everything.
func autoAssignmentAllowed(ctx context.Context, gate featuregate.FeatureGate, task types.ReviewTask) error {
	if gate == nil {
		return nil
	}
	var opts []featuregate.ResolveOption
	if task.AuthorID != uuid.Nil {
		opts = append(opts, featuregate.WithScopeChain(featuregate.ScopeChain{
			{Kind: featuregate.ScopeUser, ID: task.AuthorID.String()},
			{Kind: featuregate.ScopeSystem},
		}))
	}
	enabled, err := gate.Enabled(ctx, FeatureAutoAssignment, opts...)
	if err != nil {
		return err
	}
	if !enabled {
		return types.ErrAutoAssignmentDisabled
	}
	return nil
}
