package permission

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record models the review_permission_profiles row.
type Record struct {
	bun.BaseModel `bun:"table:review_permission_profiles,alias:rpp"`

	ID                   uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	RoleName             string    `bun:"role_name,notnull" json:"role_name"`
	ReviewType           string    `bun:"review_type,notnull" json:"review_type"`
	CanAssignReviewer    bool      `bun:"can_assign_reviewer,notnull" json:"can_assign_reviewer"`
	CanSelfReview        bool      `bun:"can_self_review,notnull" json:"can_self_review"`
	AutoAssignment       bool      `bun:"auto_assignment,notnull" json:"auto_assignment"`
	Weight               int       `bun:"weight,notnull" json:"weight"`
	MaxConcurrentReviews int       `bun:"max_concurrent_reviews,notnull" json:"max_concurrent_reviews"`
	PriorityLevel        int       `bun:"priority_level,notnull" json:"priority_level"`
	Active               bool      `bun:"active,notnull" json:"active"`
	CreatedBy            uuid.UUID `bun:"created_by,type:uuid,nullzero" json:"created_by"`
	UpdatedBy            uuid.UUID `bun:"updated_by,type:uuid,nullzero" json:"updated_by"`
	CreatedAt            time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt            time.Time `bun:"updated_at,notnull" json:"updated_at"`
}
