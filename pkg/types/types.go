package types

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReviewType identifies the kind of content change awaiting review. The
// built-in values mirror the article workflow, hosts may register their own.
type ReviewType string

const (
	ReviewTypeCreate ReviewType = "create"
	ReviewTypeUpdate ReviewType = "update"
	ReviewTypeDelete ReviewType = "delete"
)

// Normalize lowercases and trims the review type.
func (t ReviewType) Normalize() ReviewType {
	return ReviewType(strings.ToLower(strings.TrimSpace(string(t))))
}

// AssignmentStatus is the lifecycle state of a single assignment.
type AssignmentStatus string

const (
	AssignmentStatusActive    AssignmentStatus = "active"
	AssignmentStatusAccepted  AssignmentStatus = "accepted"
	AssignmentStatusRejected  AssignmentStatus = "rejected"
	AssignmentStatusCancelled AssignmentStatus = "cancelled"
	AssignmentStatusCompleted AssignmentStatus = "completed"
)

// HoldingStatuses are the statuses that count towards workload and block a
// second assignment on the same task.
func HoldingStatuses() []AssignmentStatus {
	return []AssignmentStatus{AssignmentStatusActive, AssignmentStatusAccepted}
}

// Holding reports whether the status occupies the task and the reviewer.
func (s AssignmentStatus) Holding() bool {
	return s == AssignmentStatusActive || s == AssignmentStatusAccepted
}

// Terminal reports whether no further transitions are possible.
func (s AssignmentStatus) Terminal() bool {
	switch s {
	case AssignmentStatusRejected, AssignmentStatusCancelled, AssignmentStatusCompleted:
		return true
	default:
		return false
	}
}

// AssignmentAction is a reviewer or operator response to an assignment.
type AssignmentAction string

const (
	AssignmentActionAccept   AssignmentAction = "accept"
	AssignmentActionReject   AssignmentAction = "reject"
	AssignmentActionCancel   AssignmentAction = "cancel"
	AssignmentActionComplete AssignmentAction = "complete"
)

// Target maps the action to the status it moves the assignment into.
func (a AssignmentAction) Target() (AssignmentStatus, bool) {
	switch AssignmentAction(strings.ToLower(strings.TrimSpace(string(a)))) {
	case AssignmentActionAccept:
		return AssignmentStatusAccepted, true
	case AssignmentActionReject:
		return AssignmentStatusRejected, true
	case AssignmentActionCancel:
		return AssignmentStatusCancelled, true
	case AssignmentActionComplete:
		return AssignmentStatusCompleted, true
	default:
		return "", false
	}
}

// AssignmentPolicy selects between system and assigner driven assignment.
type AssignmentPolicy string

const (
	AssignmentPolicyAuto   AssignmentPolicy = "auto"
	AssignmentPolicyManual AssignmentPolicy = "manual"
)

const (
	DefaultProfileWeight        = 1
	DefaultMaxConcurrentReviews = 10
	DefaultPriorityLevel        = 1
)

// PermissionProfile is the behavioral configuration of a role for one review
// type.
type PermissionProfile struct {
	ID                   uuid.UUID
	RoleName             string
	ReviewType           ReviewType
	CanAssignReviewer    bool
	CanSelfReview        bool
	AutoAssignment       bool
	Weight               int
	MaxConcurrentReviews int
	PriorityLevel        int
	Active               bool
	CreatedBy            uuid.UUID
	UpdatedBy            uuid.UUID
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// WithDefaults fills zero limits with the documented defaults.
func (p PermissionProfile) WithDefaults() PermissionProfile {
	p.RoleName = strings.TrimSpace(p.RoleName)
	p.ReviewType = p.ReviewType.Normalize()
	if p.Weight <= 0 {
		p.Weight = DefaultProfileWeight
	}
	if p.MaxConcurrentReviews <= 0 {
		p.MaxConcurrentReviews = DefaultMaxConcurrentReviews
	}
	if p.PriorityLevel <= 0 {
		p.PriorityLevel = DefaultPriorityLevel
	}
	return p
}

// Assignment binds a reviewer to a review task.
type Assignment struct {
	ID           uuid.UUID
	ReviewTaskID uuid.UUID
	ReviewType   ReviewType
	ReviewerID   uuid.UUID
	ReviewerRole string
	// AssignerID is uuid.Nil for system assignments.
	AssignerID             uuid.UUID
	Status                 AssignmentStatus
	AssignedAt             time.Time
	AcceptedAt             *time.Time
	RejectedAt             *time.Time
	CancelledAt            *time.Time
	CompletedAt            *time.Time
	AssignmentReason       string
	AutoAssigned           bool
	WeightScore            *float64
	ExpectedCompletionTime *time.Time
	UpdatedAt              time.Time
}

// IsOverdue reports whether the assignment is still waiting on the reviewer
// past its expected completion time.
func (a Assignment) IsOverdue(now time.Time) bool {
	if a.Status != AssignmentStatusActive || a.ExpectedCompletionTime == nil {
		return false
	}
	return now.After(*a.ExpectedCompletionTime)
}

// AssignmentEvent is one entry of the append-only audit trail.
type AssignmentEvent struct {
	ID           uuid.UUID
	AssignmentID uuid.UUID
	ReviewTaskID uuid.UUID
	ReviewerID   uuid.UUID
	ActorID      uuid.UUID
	FromStatus   AssignmentStatus
	ToStatus     AssignmentStatus
	Reason       string
	OccurredAt   time.Time
}

// ReviewTask is the metadata the engine needs about the content under review.
type ReviewTask struct {
	ID            uuid.UUID
	ReviewType    ReviewType
	PriorityLevel int
	AuthorID      uuid.UUID
	Deadline      *time.Time
}

// Reviewer is a user that can be bound to review tasks.
type Reviewer struct {
	ID   uuid.UUID
	Role string
}

// Candidate is a reviewer that passed eligibility, together with the profile
// that qualified them.
type Candidate struct {
	ReviewerID uuid.UUID
	Role       string
	Profile    PermissionProfile
}

// BacklogEntry records an auto-assignment request that could not be served.
type BacklogEntry struct {
	ID            uuid.UUID
	ReviewTaskID  uuid.UUID
	ReviewType    ReviewType
	Reason        string
	Attempts      int
	QueuedAt      time.Time
	LastAttemptAt *time.Time
}

// AssignmentChange is emitted after an assignment is created or transitions.
type AssignmentChange struct {
	Assignment Assignment
	Event      AssignmentEvent
}

// ProfileEvent signals an administrative profile mutation.
type ProfileEvent struct {
	Profile    PermissionProfile
	Action     string
	ActorID    uuid.UUID
	OccurredAt time.Time
}

// Hooks groups optional callbacks invoked after key workflows complete.
type Hooks struct {
	AfterAssignmentChange func(context.Context, AssignmentChange)
	AfterProfileChange    func(context.Context, ProfileEvent)
	AfterBacklogChange    func(context.Context, BacklogEntry)
}

// Pagination is a plain limit/offset pair.
type Pagination struct {
	Limit  int
	Offset int
}

// Clock abstracts time retrieval for deterministic testing.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts UUID creation.
type IDGenerator interface {
	UUID() uuid.UUID
}

// Logger captures basic logging hooks used by the service.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Error(msg string, err error, fields ...any)
}

// SystemClock defers to time.Now for production usage.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator produces UUIDv4 identifiers.
type UUIDGenerator struct{}

// UUID implements IDGenerator.
func (UUIDGenerator) UUID() uuid.UUID { return uuid.New() }

// NopLogger discards all log lines.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NopLogger) Info(string, ...any) {}

// Error implements Logger.
func (NopLogger) Error(string, error, ...any) {}
