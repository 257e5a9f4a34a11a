package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-reviewers/cmd/reviewerd/config"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// staticDirectory serves reviewer roles and mailboxes seeded from config.
type staticDirectory struct {
	mu        sync.RWMutex
	reviewers map[uuid.UUID]config.ReviewerConfig
}

func newStaticDirectory(seed []config.ReviewerConfig) (*staticDirectory, error) {
	d := &staticDirectory{reviewers: make(map[uuid.UUID]config.ReviewerConfig, len(seed))}
	for _, reviewer := range seed {
		id, err := uuid.Parse(strings.TrimSpace(reviewer.ID))
		if err != nil {
			return nil, err
		}
		d.reviewers[id] = reviewer
	}
	return d, nil
}

func (d *staticDirectory) RoleOf(_ context.Context, userID uuid.UUID) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	reviewer, ok := d.reviewers[userID]
	if !ok {
		return "", types.ErrNotFound
	}
	return reviewer.Role, nil
}

func (d *staticDirectory) ListReviewers(_ context.Context, roles []string) ([]types.Reviewer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	wanted := make(map[string]bool, len(roles))
	for _, role := range roles {
		wanted[role] = true
	}
	out := make([]types.Reviewer, 0)
	for id, reviewer := range d.reviewers {
		if wanted[reviewer.Role] {
			out = append(out, types.Reviewer{ID: id, Role: reviewer.Role})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (d *staticDirectory) EmailOf(_ context.Context, userID uuid.UUID) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.reviewers[userID].Email, nil
}

// taskRegistry holds review task metadata pushed by the content system.
type taskRegistry struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]types.ReviewTask
}

func newTaskRegistry() *taskRegistry {
	return &taskRegistry{tasks: make(map[uuid.UUID]types.ReviewTask)}
}

func (r *taskRegistry) GetReviewTask(_ context.Context, taskID uuid.UUID) (*types.ReviewTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &task, nil
}

func (r *taskRegistry) put(task types.ReviewTask) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = task
}

type taskBody struct {
	ReviewType    string     `json:"review_type"`
	AuthorID      uuid.UUID  `json:"author_id"`
	PriorityLevel int        `json:"priority_level"`
	Deadline      *time.Time `json:"deadline"`
}

// registerTaskRoutes lets the content system publish tasks before asking for
// a reviewer.
func registerTaskRoutes[T any](r router.Router[T], tasks *taskRegistry) {
	r.Put("/reviews/tasks/:task_id", func(c router.Context) error {
		id, err := uuid.Parse(c.Param("task_id", ""))
		if err != nil {
			return c.Status(http.StatusBadRequest).SendString("invalid task_id")
		}
		var body taskBody
		if err := c.Bind(&body); err != nil {
			return c.Status(http.StatusBadRequest).SendString("invalid body")
		}
		reviewType := types.ReviewType(body.ReviewType).Normalize()
		if reviewType == "" {
			return c.Status(http.StatusBadRequest).SendString("review_type required")
		}
		task := types.ReviewTask{
			ID:            id,
			ReviewType:    reviewType,
			AuthorID:      body.AuthorID,
			PriorityLevel: body.PriorityLevel,
			Deadline:      body.Deadline,
		}
		tasks.put(task)
		data, _ := json.Marshal(map[string]any{"id": id, "review_type": reviewType})
		c.SetHeader("Content-Type", "application/json")
		return c.Status(http.StatusOK).Send(data)
	})
}
