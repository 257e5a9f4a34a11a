package testsupport

import (
	"context"
	"sort"
	"sync"

	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/google/uuid"
)

// Directory is an in-memory reviewer directory.
type Directory struct {
	mu    sync.Mutex
	roles map[uuid.UUID]string
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{roles: make(map[uuid.UUID]string)}
}

// Set assigns the user's role.
func (d *Directory) Set(userID uuid.UUID, role string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.roles[userID] = role
}

// RoleOf implements types.ReviewerDirectory.
func (d *Directory) RoleOf(_ context.Context, userID uuid.UUID) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	role, ok := d.roles[userID]
	if !ok {
		return "", types.ErrNotFound
	}
	return role, nil
}

// ListReviewers implements types.ReviewerDirectory. Results are ordered by id.
func (d *Directory) ListReviewers(_ context.Context, roles []string) ([]types.Reviewer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	wanted := make(map[string]bool, len(roles))
	for _, role := range roles {
		wanted[role] = true
	}
	var out []types.Reviewer
	for id, role := range d.roles {
		if wanted[role] {
			out = append(out, types.Reviewer{ID: id, Role: role})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// Tasks is an in-memory review task provider.
type Tasks struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]types.ReviewTask
}

// NewTasks returns an empty task provider.
func NewTasks() *Tasks {
	return &Tasks{tasks: make(map[uuid.UUID]types.ReviewTask)}
}

// Put stores the task.
func (t *Tasks) Put(task types.ReviewTask) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tasks[task.ID] = task
}

// Delete forgets the task.
func (t *Tasks) Delete(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tasks, id)
}

// GetReviewTask implements types.TaskProvider.
func (t *Tasks) GetReviewTask(_ context.Context, id uuid.UUID) (*types.ReviewTask, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &task, nil
}
