package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-reviewers/pkg/types"
)

// ProfileListQuery lists permission profiles for admin screens.
type ProfileListQuery struct {
	repo types.ProfileAdmin
}

// NewProfileListQuery constructs the query helper.
func NewProfileListQuery(repo types.ProfileAdmin) *ProfileListQuery {
	return &ProfileListQuery{repo: repo}
}

var _ gocommand.Querier[types.ProfileFilter, []types.PermissionProfile] = (*ProfileListQuery)(nil)

// Query delegates to the profile store.
func (q *ProfileListQuery) Query(ctx context.Context, filter types.ProfileFilter) ([]types.PermissionProfile, error) {
	if q.repo == nil {
		return nil, types.ErrMissingProfileStore
	}
	filter.ReviewType = filter.ReviewType.Normalize()
	return q.repo.ListProfiles(ctx, filter)
}
