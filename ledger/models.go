package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AssignmentRecord models the review_assignments row. It holds the current
// state of the assignment; the history lives in EventRecord rows.
type AssignmentRecord struct {
	bun.BaseModel `bun:"table:review_assignments,alias:ra"`

	ID                   uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	ReviewTaskID         uuid.UUID  `bun:"review_task_id,type:uuid,notnull" json:"review_task_id"`
	ReviewType           string     `bun:"review_type,notnull" json:"review_type"`
	ReviewerID           uuid.UUID  `bun:"reviewer_id,type:uuid,notnull" json:"reviewer_id"`
	ReviewerRole         string     `bun:"reviewer_role,notnull" json:"reviewer_role"`
	AssignerID           uuid.UUID  `bun:"assigner_id,type:uuid,nullzero" json:"assigner_id"`
	Status               string     `bun:"status,notnull" json:"status"`
	AssignedAt           time.Time  `bun:"assigned_at,notnull" json:"assigned_at"`
	AcceptedAt           *time.Time `bun:"accepted_at,nullzero" json:"accepted_at"`
	RejectedAt           *time.Time `bun:"rejected_at,nullzero" json:"rejected_at"`
	CancelledAt          *time.Time `bun:"cancelled_at,nullzero" json:"cancelled_at"`
	CompletedAt          *time.Time `bun:"completed_at,nullzero" json:"completed_at"`
	AssignmentReason     string     `bun:"assignment_reason,notnull" json:"assignment_reason"`
	AutoAssigned         bool       `bun:"auto_assigned,notnull" json:"auto_assigned"`
	WeightScore          *float64   `bun:"weight_score" json:"weight_score"`
	ExpectedCompletionAt *time.Time `bun:"expected_completion_at,nullzero" json:"expected_completion_at"`
	UpdatedAt            time.Time  `bun:"updated_at,notnull" json:"updated_at"`
}

// EventRecord models the append-only review_assignment_events row.
type EventRecord struct {
	bun.BaseModel `bun:"table:review_assignment_events,alias:rae"`

	ID           uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	AssignmentID uuid.UUID `bun:"assignment_id,type:uuid,notnull" json:"assignment_id"`
	ReviewTaskID uuid.UUID `bun:"review_task_id,type:uuid,notnull" json:"review_task_id"`
	ReviewerID   uuid.UUID `bun:"reviewer_id,type:uuid,notnull" json:"reviewer_id"`
	ActorID      uuid.UUID `bun:"actor_id,type:uuid,nullzero" json:"actor_id"`
	Sequence     int       `bun:"sequence,notnull" json:"sequence"`
	FromStatus   string    `bun:"from_status,notnull" json:"from_status"`
	ToStatus     string    `bun:"to_status,notnull" json:"to_status"`
	Reason       string    `bun:"reason,notnull" json:"reason"`
	OccurredAt   time.Time `bun:"occurred_at,notnull" json:"occurred_at"`
}

// BacklogRecord models the review_assignment_backlog row.
type BacklogRecord struct {
	bun.BaseModel `bun:"table:review_assignment_backlog,alias:rab"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	ReviewTaskID  uuid.UUID  `bun:"review_task_id,type:uuid,notnull" json:"review_task_id"`
	ReviewType    string     `bun:"review_type,notnull" json:"review_type"`
	Reason        string     `bun:"reason,notnull" json:"reason"`
	Attempts      int        `bun:"attempts,notnull" json:"attempts"`
	QueuedAt      time.Time  `bun:"queued_at,notnull" json:"queued_at"`
	LastAttemptAt *time.Time `bun:"last_attempt_at,nullzero" json:"last_attempt_at"`
}
