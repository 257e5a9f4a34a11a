package api

import (
	"time"

	"github.com/goliatone/go-reviewers/command"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/goliatone/go-reviewers/query"
	"github.com/google/uuid"
)

// AssignmentView is the JSON shape of an assignment.
type AssignmentView struct {
	ID                     uuid.UUID  `json:"id"`
	ReviewTaskID           uuid.UUID  `json:"review_task_id"`
	ReviewType             string     `json:"review_type"`
	ReviewerID             uuid.UUID  `json:"reviewer_id"`
	ReviewerRole           string     `json:"reviewer_role"`
	AssignerID             *uuid.UUID `json:"assigner_id,omitempty"`
	Status                 string     `json:"status"`
	AssignedAt             time.Time  `json:"assigned_at"`
	AcceptedAt             *time.Time `json:"accepted_at,omitempty"`
	RejectedAt             *time.Time `json:"rejected_at,omitempty"`
	CancelledAt            *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt            *time.Time `json:"completed_at,omitempty"`
	AssignmentReason       string     `json:"assignment_reason,omitempty"`
	AutoAssigned           bool       `json:"auto_assigned"`
	WeightScore            *float64   `json:"weight_score,omitempty"`
	ExpectedCompletionTime *time.Time `json:"expected_completion_time,omitempty"`
}

// EventView is the JSON shape of one audit trail entry.
type EventView struct {
	ID         uuid.UUID  `json:"id"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	FromStatus string     `json:"from_status,omitempty"`
	ToStatus   string     `json:"to_status"`
	Reason     string     `json:"reason,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// AssignmentDetailView adds the trail and the overdue flag.
type AssignmentDetailView struct {
	Assignment AssignmentView `json:"assignment"`
	Events     []EventView    `json:"events"`
	Overdue    bool           `json:"overdue"`
}

// AssignmentListView wraps a page of assignments.
type AssignmentListView struct {
	Assignments []AssignmentView `json:"assignments"`
	Total       int              `json:"total"`
	HasMore     bool             `json:"has_more"`
}

// RequestAssignmentView reports a placement attempt.
type RequestAssignmentView struct {
	Assignment *AssignmentView `json:"assignment,omitempty"`
	Backlogged bool            `json:"backlogged"`
}

// ProfileView is the JSON shape of a permission profile.
type ProfileView struct {
	ID                   uuid.UUID `json:"id"`
	RoleName             string    `json:"role_name"`
	ReviewType           string    `json:"review_type"`
	CanAssignReviewer    bool      `json:"can_assign_reviewer"`
	CanSelfReview        bool      `json:"can_self_review"`
	AutoAssignment       bool      `json:"auto_assignment"`
	Weight               int       `json:"weight"`
	MaxConcurrentReviews int       `json:"max_concurrent_reviews"`
	PriorityLevel        int       `json:"priority_level"`
	Active               bool      `json:"active"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ProfileResultView reports a profile write and the backlog it released.
type ProfileResultView struct {
	Profile          ProfileView      `json:"profile"`
	BacklogAssigned  []AssignmentView `json:"backlog_assigned,omitempty"`
	BacklogRemaining int              `json:"backlog_remaining"`
}

// StatsView is the JSON shape of reviewer statistics.
type StatsView struct {
	ReviewerID   uuid.UUID `json:"reviewer_id"`
	Total        int       `json:"total"`
	Active       int       `json:"active"`
	Accepted     int       `json:"accepted"`
	Rejected     int       `json:"rejected"`
	Cancelled    int       `json:"cancelled"`
	Completed    int       `json:"completed"`
	AutoAssigned int       `json:"auto_assigned"`
}

func toAssignmentView(a types.Assignment) AssignmentView {
	return AssignmentView{
		ID:                     a.ID,
		ReviewTaskID:           a.ReviewTaskID,
		ReviewType:             string(a.ReviewType),
		ReviewerID:             a.ReviewerID,
		ReviewerRole:           a.ReviewerRole,
		AssignerID:             optionalID(a.AssignerID),
		Status:                 string(a.Status),
		AssignedAt:             a.AssignedAt,
		AcceptedAt:             a.AcceptedAt,
		RejectedAt:             a.RejectedAt,
		CancelledAt:            a.CancelledAt,
		CompletedAt:            a.CompletedAt,
		AssignmentReason:       a.AssignmentReason,
		AutoAssigned:           a.AutoAssigned,
		WeightScore:            a.WeightScore,
		ExpectedCompletionTime: a.ExpectedCompletionTime,
	}
}

func toAssignmentViews(assignments []types.Assignment) []AssignmentView {
	out := make([]AssignmentView, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, toAssignmentView(a))
	}
	return out
}

func toDetailView(detail query.AssignmentDetail) AssignmentDetailView {
	events := make([]EventView, 0, len(detail.Events))
	for _, event := range detail.Events {
		events = append(events, EventView{
			ID:         event.ID,
			ActorID:    optionalID(event.ActorID),
			FromStatus: string(event.FromStatus),
			ToStatus:   string(event.ToStatus),
			Reason:     event.Reason,
			OccurredAt: event.OccurredAt,
		})
	}
	return AssignmentDetailView{
		Assignment: toAssignmentView(detail.Assignment),
		Events:     events,
		Overdue:    detail.Overdue,
	}
}

func toProfileView(p types.PermissionProfile) ProfileView {
	return ProfileView{
		ID:                   p.ID,
		RoleName:             p.RoleName,
		ReviewType:           string(p.ReviewType),
		CanAssignReviewer:    p.CanAssignReviewer,
		CanSelfReview:        p.CanSelfReview,
		AutoAssignment:       p.AutoAssignment,
		Weight:               p.Weight,
		MaxConcurrentReviews: p.MaxConcurrentReviews,
		PriorityLevel:        p.PriorityLevel,
		Active:               p.Active,
		UpdatedAt:            p.UpdatedAt,
	}
}

func toProfileResultView(result command.ProfileResult) ProfileResultView {
	view := ProfileResultView{}
	if result.Profile != nil {
		view.Profile = toProfileView(*result.Profile)
	}
	if result.Backlog != nil {
		view.BacklogAssigned = toAssignmentViews(result.Backlog.Assigned)
		view.BacklogRemaining = result.Backlog.StillQueued
	}
	return view
}

func toStatsView(stats types.ReviewerStats) StatsView {
	return StatsView{
		ReviewerID:   stats.ReviewerID,
		Total:        stats.Total,
		Active:       stats.Active,
		Accepted:     stats.Accepted,
		Rejected:     stats.Rejected,
		Cancelled:    stats.Cancelled,
		Completed:    stats.Completed,
		AutoAssigned: stats.AutoAssigned,
	}
}

func optionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
