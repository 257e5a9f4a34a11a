package types

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProfileStore is the read contract over permission profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, role string, reviewType ReviewType) (*PermissionProfile, error)
	ListActiveProfiles(ctx context.Context, reviewType ReviewType) ([]PermissionProfile, error)
	HasPermission(ctx context.Context, role string, reviewType ReviewType) (bool, error)
	CanAssignReviewer(ctx context.Context, role string) (bool, error)
	CanSelfReview(ctx context.Context, role string) (bool, error)
}

// ProfileAdmin is the administrative write contract over permission profiles.
type ProfileAdmin interface {
	UpsertProfile(ctx context.Context, profile PermissionProfile) (*PermissionProfile, error)
	DeactivateProfile(ctx context.Context, role string, reviewType ReviewType, actor uuid.UUID) (*PermissionProfile, error)
	ListProfiles(ctx context.Context, filter ProfileFilter) ([]PermissionProfile, error)
}

// ProfileFilter narrows administrative profile listings.
type ProfileFilter struct {
	RoleName        string
	ReviewType      ReviewType
	IncludeInactive bool
}

// ReviewerDirectory resolves identities to roles and roles to reviewers.
type ReviewerDirectory interface {
	RoleOf(ctx context.Context, userID uuid.UUID) (string, error)
	ListReviewers(ctx context.Context, roles []string) ([]Reviewer, error)
}

// TaskProvider returns review task metadata by id.
type TaskProvider interface {
	GetReviewTask(ctx context.Context, taskID uuid.UUID) (*ReviewTask, error)
}

// CreateOptions carries the atomic guards checked while inserting an
// assignment.
type CreateOptions struct {
	// MaxConcurrent caps the reviewer's holding assignments; zero disables the check.
	MaxConcurrent int
	ActorID       uuid.UUID
}

// StatusChange moves an assignment from one status to another.
type StatusChange struct {
	AssignmentID uuid.UUID
	From         AssignmentStatus
	To           AssignmentStatus
	At           time.Time
	ActorID      uuid.UUID
	Reason       string
}

// AssignmentRepository is the ledger write contract plus the reads the
// engine depends on.
type AssignmentRepository interface {
	CreateAssignment(ctx context.Context, record Assignment, opts CreateOptions) (*Assignment, error)
	GetAssignment(ctx context.Context, id uuid.UUID) (*Assignment, error)
	UpdateAssignmentStatus(ctx context.Context, change StatusChange) (*Assignment, error)
	HoldingAssignment(ctx context.Context, taskID uuid.UUID) (*Assignment, error)
	CountActive(ctx context.Context, reviewerIDs []uuid.UUID) (map[uuid.UUID]int, error)
	ListOverdue(ctx context.Context, filter OverdueFilter) (AssignmentPage, error)
}

// AssignmentReadRepository powers audit and dashboard queries.
type AssignmentReadRepository interface {
	ListAssignments(ctx context.Context, filter AssignmentFilter) (AssignmentPage, error)
	ListEvents(ctx context.Context, assignmentID uuid.UUID) ([]AssignmentEvent, error)
	ListUpcoming(ctx context.Context, from, until time.Time, limit int) ([]Assignment, error)
	ReviewerStats(ctx context.Context, filter ReviewerStatsFilter) (ReviewerStats, error)
}

// BacklogRepository stores auto-assignment requests waiting on capacity or
// configuration.
type BacklogRepository interface {
	Enqueue(ctx context.Context, entry BacklogEntry) (*BacklogEntry, error)
	ListBacklog(ctx context.Context, filter BacklogFilter) ([]BacklogEntry, error)
	RemoveBacklog(ctx context.Context, taskID uuid.UUID) error
}

// BacklogFilter narrows backlog reads.
type BacklogFilter struct {
	ReviewType ReviewType
	Limit      int
}

// OverdueFilter pages through overdue assignments in keyset order.
type OverdueFilter struct {
	AsOf  time.Time
	After *OverdueCursor
	Limit int
}

// OverdueCursor is the keyset position of the last assignment seen.
type OverdueCursor struct {
	ExpectedCompletionTime time.Time
	ID                     uuid.UUID
}

// AssignmentFilter narrows ledger listings.
type AssignmentFilter struct {
	ReviewTaskID uuid.UUID
	ReviewerID   uuid.UUID
	Statuses     []AssignmentStatus
	ReviewType   ReviewType
	// OldestFirst orders by assigned_at ascending, the default is newest first.
	OldestFirst bool
	Pagination  Pagination
}

// AssignmentPage is a slice of assignments plus the paging state.
type AssignmentPage struct {
	Assignments []Assignment
	Total       int
	NextOffset  int
	HasMore     bool
	NextCursor  *OverdueCursor
}

// ReviewerStatsFilter selects the reviewer and the assigned_at window.
type ReviewerStatsFilter struct {
	ReviewerID uuid.UUID
	Since      *time.Time
	Until      *time.Time
}

// ReviewerStats aggregates a reviewer's assignments by outcome.
type ReviewerStats struct {
	ReviewerID   uuid.UUID
	Total        int
	Active       int
	Accepted     int
	Rejected     int
	Cancelled    int
	Completed    int
	AutoAssigned int
}
