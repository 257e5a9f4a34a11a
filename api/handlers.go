// Package api exposes the review engine over go-router.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-reviewers/command"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/goliatone/go-reviewers/query"
	"github.com/goliatone/go-reviewers/service"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// ActorHeader carries the acting user when no ActorResolver is configured.
const ActorHeader = "X-Actor-ID"

const (
	defaultOverdueLimit = 100
	maxOverdueLimit     = 500
)

// Engine is the part of the service the transport needs. *service.Service
// satisfies it.
type Engine interface {
	Commands() service.Commands
	Queries() service.Queries
	ListOverdue(ctx context.Context, asOf time.Time) iter.Seq2[types.Assignment, error]
}

// ActorResolver extracts the acting user from the request.
type ActorResolver func(c router.Context) (uuid.UUID, error)

// Config wires the HTTP handlers.
type Config struct {
	Engine Engine
	Actor  ActorResolver
	Logger types.Logger
}

// Handlers holds the review routes.
type Handlers struct {
	engine Engine
	actor  ActorResolver
	logger types.Logger
}

// NewHandlers constructs the handlers. The actor defaults to the
// X-Actor-ID header.
func NewHandlers(cfg Config) (*Handlers, error) {
	if cfg.Engine == nil {
		return nil, types.ErrServiceNotReady
	}
	actor := cfg.Actor
	if actor == nil {
		actor = headerActor
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Handlers{engine: cfg.Engine, actor: actor, logger: logger}, nil
}

// Register mounts the review routes under /reviews.
func Register[T any](r router.Router[T], h *Handlers) {
	reviews := r.Group("/reviews")
	reviews.Post("/tasks/:task_id/assignments", h.RequestAssignment())
	reviews.Get("/tasks/:task_id/assignments", h.TaskHistory())
	reviews.Get("/assignments/:id", h.AssignmentDetail())
	reviews.Post("/assignments/:id/:action", h.Respond())
	reviews.Get("/overdue", h.Overdue())
	reviews.Get("/upcoming", h.Upcoming())
	reviews.Get("/reviewers/:id/pending", h.Pending())
	reviews.Get("/reviewers/:id/stats", h.Stats())
	reviews.Get("/profiles", h.ListProfiles())
	reviews.Put("/profiles", h.UpsertProfile())
	reviews.Delete("/profiles/:role/:review_type", h.DeactivateProfile())
}

// RequestAssignmentBody is the payload of the assignment request route.
type RequestAssignmentBody struct {
	Policy                 string     `json:"policy"`
	TargetReviewerID       uuid.UUID  `json:"target_reviewer_id"`
	Reason                 string     `json:"reason"`
	ExpectedCompletionTime *time.Time `json:"expected_completion_time"`
}

// RespondBody is the payload of the respond route.
type RespondBody struct {
	Reason string `json:"reason"`
}

// ProfileBody is the payload of the profile upsert route.
type ProfileBody struct {
	RoleName             string `json:"role_name"`
	ReviewType           string `json:"review_type"`
	CanAssignReviewer    bool   `json:"can_assign_reviewer"`
	CanSelfReview        bool   `json:"can_self_review"`
	AutoAssignment       *bool  `json:"auto_assignment"`
	Weight               int    `json:"weight"`
	MaxConcurrentReviews int    `json:"max_concurrent_reviews"`
	PriorityLevel        int    `json:"priority_level"`
	Active               *bool  `json:"active"`
}

// RequestAssignment handles POST /reviews/tasks/:task_id/assignments.
func (h *Handlers) RequestAssignment() router.HandlerFunc {
	return func(c router.Context) error {
		taskID, err := paramUUID(c, "task_id")
		if err != nil {
			return h.fail(c, err)
		}
		actor, err := h.actor(c)
		if err != nil {
			return h.fail(c, err)
		}
		var body RequestAssignmentBody
		if err := c.Bind(&body); err != nil {
			return h.fail(c, validationError("go-reviewers: invalid request body"))
		}
		view, err := h.requestAssignment(c.Context(), taskID, actor, body)
		if err != nil {
			return h.fail(c, err)
		}
		return writeJSON(c, http.StatusCreated, view)
	}
}

// TaskHistory handles GET /reviews/tasks/:task_id/assignments.
func (h *Handlers) TaskHistory() router.HandlerFunc {
	return func(c router.Context) error {
		taskID, err := paramUUID(c, "task_id")
		if err != nil {
			return h.fail(c, err)
		}
		page, err := h.engine.Queries().TaskHistory.Query(c.Context(), query.TaskHistoryInput{
			TaskID:     taskID,
			Pagination: queryPagination(c),
		})
		if err != nil {
			return h.fail(c, err)
		}
		return writeJSON(c, http.StatusOK, toListView(page))
	}
}

// AssignmentDetail handles GET /reviews/assignments/:id.
func (h *Handlers) AssignmentDetail() router.HandlerFunc {
	return func(c router.Context) error {
		id, err := paramUUID(c, "id")
		if err != nil {
			return h.fail(c, err)
		}
		detail, err := h.engine.Queries().AssignmentDetail.Query(c.Context(), query.AssignmentDetailInput{AssignmentID: id})
		if err != nil {
			return h.fail(c, err)
		}
		return writeJSON(c, http.StatusOK, toDetailView(detail))
	}
}

// Respond handles POST /reviews/assignments/:id/:action.
func (h *Handlers) Respond() router.HandlerFunc {
	return func(c router.Context) error {
		id, err := paramUUID(c, "id")
		if err != nil {
			return h.fail(c, err)
		}
		actor, err := h.actor(c)
		if err != nil {
			return h.fail(c, err)
		}
		var body RespondBody
		if len(c.Body()) > 0 {
			if err := c.Bind(&body); err != nil {
				return h.fail(c, validationError("go-reviewers: invalid request body"))
			}
		}
		action := types.AssignmentAction(c.Param("action", ""))
		view, err := h.respond(c.Context(), id, action, actor, body)
		if err != nil {
			return h.fail(c, err)
		}
		return writeJSON(c, http.StatusOK, view)
	}
}

// Overdue handles GET /reviews/overdue.
func (h *Handlers) Overdue() router.HandlerFunc {
	return func(c router.Context) error {
		asOf, err := queryTime(c, "as_of")
		if err != nil {
			return h.fail(c, err)
		}
		limit := clampLimit(queryInt(c, "limit", defaultOverdueLimit), defaultOverdueLimit, maxOverdueLimit)
		views, hasMore, err := h.overdue(c.Context(), asOf, limit)
		if err != nil {
			return h.fail(c, err)
		}
		return writeJSON(c, http.StatusOK, AssignmentListView{Assignments: views, Total: len(views), HasMore: hasMore})
	}
}

// Upcoming handles GET /reviews/upcoming.
func (h *Handlers) Upcoming() router.HandlerFunc {
	return func(c router.Context) error {
		window, err := queryDuration(c, "window")
		if err != nil {
			return h.fail(c, err)
		}
		assignments, err := h.engine.Queries().UpcomingDeadlines.Query(c.Context(), query.UpcomingDeadlinesInput{
			Window: window,
			Limit:  queryInt(c, "limit", 0),
		})
		if err != nil {
			return h.fail(c, err)
		}
		views := toAssignmentViews(assignments)
		return writeJSON(c, http.StatusOK, AssignmentListView{Assignments: views, Total: len(views)})
	}
}

// Pending handles GET /reviews/reviewers/:id/pending.
func (h *Handlers) Pending() router.HandlerFunc {
	return func(c router.Context) error {
		reviewer, err := paramUUID(c, "id")
		if err != nil {
			return h.fail(c, err)
		}
		page, err := h.engine.Queries().PendingAssignments.Query(c.Context(), query.PendingAssignmentsInput{
			ReviewerID: reviewer,
			Pagination: queryPagination(c),
		})
		if err != nil {
			return h.fail(c, err)
		}
		return writeJSON(c, http.StatusOK, toListView(page))
	}
}

// Stats handles GET /reviews/reviewers/:id/stats.
func (h *Handlers) Stats() router.HandlerFunc {
	return func(c router.Context) error {
		reviewer, err := paramUUID(c, "id")
		if err != nil {
			return h.fail(c, err)
		}
		since, err := queryTime(c, "since")
		if err != nil {
			return h.fail(c, err)
		}
		until, err := queryTime(c, "until")
		if err != nil {
			return h.fail(c, err)
		}
		stats, err := h.engine.Queries().ReviewerStats.Query(c.Context(), types.ReviewerStatsFilter{
			ReviewerID: reviewer,
			Since:      timePtr(since),
			Until:      timePtr(until),
		})
		if err != nil {
			return h.fail(c, err)
		}
		return writeJSON(c, http.StatusOK, toStatsView(stats))
	}
}

// ListProfiles handles GET /reviews/profiles.
func (h *Handlers) ListProfiles() router.HandlerFunc {
	return func(c router.Context) error {
		includeInactive, _ := strconv.ParseBool(c.Query("include_inactive", "false"))
		profiles, err := h.engine.Queries().ProfileList.Query(c.Context(), types.ProfileFilter{
			RoleName:        strings.TrimSpace(c.Query("role", "")),
			ReviewType:      types.ReviewType(c.Query("review_type", "")),
			IncludeInactive: includeInactive,
		})
		if err != nil {
			return h.fail(c, err)
		}
		views := make([]ProfileView, 0, len(profiles))
		for _, profile := range profiles {
			views = append(views, toProfileView(profile))
		}
		return writeJSON(c, http.StatusOK, map[string]any{"profiles": views})
	}
}

// UpsertProfile handles PUT /reviews/profiles.
func (h *Handlers) UpsertProfile() router.HandlerFunc {
	return func(c router.Context) error {
		actor, err := h.actor(c)
		if err != nil {
			return h.fail(c, err)
		}
		var body ProfileBody
		if err := c.Bind(&body); err != nil {
			return h.fail(c, validationError("go-reviewers: invalid request body"))
		}
		view, err := h.upsertProfile(c.Context(), actor, body)
		if err != nil {
			return h.fail(c, err)
		}
		return writeJSON(c, http.StatusOK, view)
	}
}

// DeactivateProfile handles DELETE /reviews/profiles/:role/:review_type.
func (h *Handlers) DeactivateProfile() router.HandlerFunc {
	return func(c router.Context) error {
		actor, err := h.actor(c)
		if err != nil {
			return h.fail(c, err)
		}
		view, err := h.deactivateProfile(c.Context(), actor, c.Param("role", ""), c.Param("review_type", ""))
		if err != nil {
			return h.fail(c, err)
		}
		return writeJSON(c, http.StatusOK, view)
	}
}

func (h *Handlers) requestAssignment(ctx context.Context, taskID, actor uuid.UUID, body RequestAssignmentBody) (RequestAssignmentView, error) {
	policy := types.AssignmentPolicy(strings.ToLower(strings.TrimSpace(body.Policy)))
	input := command.RequestAssignmentInput{
		TaskID:                 taskID,
		Policy:                 policy,
		TargetReviewerID:       body.TargetReviewerID,
		ExpectedCompletionTime: body.ExpectedCompletionTime,
		Reason:                 body.Reason,
		Result:                 &command.RequestAssignmentResult{},
	}
	// system placements carry no assigner
	if policy == types.AssignmentPolicyManual {
		input.AssignerID = actor
	}
	if err := h.engine.Commands().RequestAssignment.Execute(ctx, input); err != nil {
		if input.Result.Backlogged {
			h.logger.Info("review request queued", "review_task_id", taskID, "error", err.Error())
		}
		return RequestAssignmentView{Backlogged: input.Result.Backlogged}, err
	}
	view := toAssignmentView(*input.Result.Assignment)
	return RequestAssignmentView{Assignment: &view}, nil
}

func (h *Handlers) respond(ctx context.Context, id uuid.UUID, action types.AssignmentAction, actor uuid.UUID, body RespondBody) (AssignmentView, error) {
	result := &command.RespondAssignmentResult{}
	err := h.engine.Commands().RespondAssignment.Execute(ctx, command.RespondAssignmentInput{
		AssignmentID: id,
		Action:       action,
		ActorID:      actor,
		Reason:       body.Reason,
		Result:       result,
	})
	if err != nil {
		return AssignmentView{}, err
	}
	return toAssignmentView(*result.Assignment), nil
}

func (h *Handlers) overdue(ctx context.Context, asOf time.Time, limit int) ([]AssignmentView, bool, error) {
	views := make([]AssignmentView, 0)
	for assignment, err := range h.engine.ListOverdue(ctx, asOf) {
		if err != nil {
			return nil, false, err
		}
		if len(views) == limit {
			return views, true, nil
		}
		views = append(views, toAssignmentView(assignment))
	}
	return views, false, nil
}

func (h *Handlers) upsertProfile(ctx context.Context, actor uuid.UUID, body ProfileBody) (ProfileResultView, error) {
	result := command.ProfileResult{}
	err := h.engine.Commands().ProfileUpsert.Execute(ctx, command.ProfileUpsertInput{
		RoleName:             body.RoleName,
		ReviewType:           types.ReviewType(body.ReviewType),
		CanAssignReviewer:    body.CanAssignReviewer,
		CanSelfReview:        body.CanSelfReview,
		AutoAssignment:       body.AutoAssignment,
		Weight:               body.Weight,
		MaxConcurrentReviews: body.MaxConcurrentReviews,
		PriorityLevel:        body.PriorityLevel,
		Active:               body.Active,
		ActorID:              actor,
		Result:               &result,
	})
	if err != nil {
		return ProfileResultView{}, err
	}
	return toProfileResultView(result), nil
}

func (h *Handlers) deactivateProfile(ctx context.Context, actor uuid.UUID, role, reviewType string) (ProfileResultView, error) {
	result := command.ProfileResult{}
	err := h.engine.Commands().ProfileDeactivate.Execute(ctx, command.ProfileDeactivateInput{
		RoleName:   role,
		ReviewType: types.ReviewType(reviewType),
		ActorID:    actor,
		Result:     &result,
	})
	if err != nil {
		return ProfileResultView{}, err
	}
	return toProfileResultView(result), nil
}

func (h *Handlers) fail(c router.Context, err error) error {
	rich := MapError(err)
	if rich.Code >= http.StatusInternalServerError {
		h.logger.Error("review request failed", err, "path", c.Path())
	}
	return writeJSON(c, rich.Code, errorEnvelope(rich))
}

func errorEnvelope(rich *goerrors.Error) map[string]any {
	body := map[string]any{
		"category":  fmt.Sprint(rich.Category),
		"code":      rich.Code,
		"text_code": rich.TextCode,
		"message":   rich.Message,
	}
	if len(rich.Metadata) > 0 {
		body["metadata"] = rich.Metadata
	}
	return map[string]any{"error": body}
}

func writeJSON(c router.Context, status int, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return c.Status(http.StatusInternalServerError).SendString("failed to marshal JSON")
	}
	c.SetHeader("Content-Type", "application/json")
	return c.Status(status).Send(data)
}

func toListView(page types.AssignmentPage) AssignmentListView {
	return AssignmentListView{
		Assignments: toAssignmentViews(page.Assignments),
		Total:       page.Total,
		HasMore:     page.HasMore,
	}
}

func headerActor(c router.Context) (uuid.UUID, error) {
	return parseOptionalUUID(c.Header(ActorHeader), ActorHeader)
}

func paramUUID(c router.Context, key string) (uuid.UUID, error) {
	id, err := parseOptionalUUID(c.Param(key, ""), key)
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.Nil, validationError(fmt.Sprintf("go-reviewers: %s required", key))
	}
	return id, nil
}

func parseOptionalUUID(raw, key string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, validationError(fmt.Sprintf("go-reviewers: invalid %s", key))
	}
	return id, nil
}

func queryTime(c router.Context, key string) (time.Time, error) {
	return parseTime(c.Query(key, ""), key)
}

func parseTime(raw, key string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, validationError(fmt.Sprintf("go-reviewers: %s must be RFC3339", key))
	}
	return parsed.UTC(), nil
}

func queryDuration(c router.Context, key string) (time.Duration, error) {
	return parseDuration(c.Query(key, ""), key)
}

func parseDuration(raw, key string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed < 0 {
		return 0, validationError(fmt.Sprintf("go-reviewers: invalid %s", key))
	}
	return parsed, nil
}

func queryInt(c router.Context, key string, def int) int {
	if value := strings.TrimSpace(c.Query(key, "")); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return def
}

func queryPagination(c router.Context) types.Pagination {
	return types.Pagination{
		Limit:  queryInt(c, "limit", 0),
		Offset: queryInt(c, "offset", 0),
	}
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
