package crudsvc

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-crud"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/google/uuid"
)

const defaultIndexLimit = 50

// params reads list filters off the query string. Malformed values read as
// unset so a bad filter widens the listing instead of failing it.
type params struct {
	ctx crud.Context
}

func (p params) text(key string) string {
	return strings.TrimSpace(p.ctx.Query(key))
}

func (p params) id(key string) uuid.UUID {
	id, err := uuid.Parse(p.text(key))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func (p params) flag(key string) bool {
	on, err := strconv.ParseBool(p.text(key))
	return err == nil && on
}

func (p params) number(key string, fallback int) int {
	n, err := strconv.Atoi(p.text(key))
	if err != nil {
		return fallback
	}
	return n
}

func (p params) list(key string) []string {
	var out []string
	for part := range strings.SplitSeq(p.text(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// assignmentFilter maps task_id, reviewer_id, status (comma separated),
// review_type, oldest_first, limit and offset.
func assignmentFilter(ctx crud.Context) types.AssignmentFilter {
	p := params{ctx: ctx}
	var statuses []types.AssignmentStatus
	for _, raw := range p.list("status") {
		statuses = append(statuses, types.AssignmentStatus(strings.ToLower(raw)))
	}
	return types.AssignmentFilter{
		ReviewTaskID: p.id("task_id"),
		ReviewerID:   p.id("reviewer_id"),
		Statuses:     statuses,
		ReviewType:   types.ReviewType(p.text("review_type")),
		OldestFirst:  p.flag("oldest_first"),
		Pagination: types.Pagination{
			Limit:  p.number("limit", defaultIndexLimit),
			Offset: p.number("offset", 0),
		},
	}
}

// profileFilter maps role, review_type and include_inactive.
func profileFilter(ctx crud.Context) types.ProfileFilter {
	p := params{ctx: ctx}
	return types.ProfileFilter{
		RoleName:        p.text("role"),
		ReviewType:      types.ReviewType(p.text("review_type")),
		IncludeInactive: p.flag("include_inactive"),
	}
}
