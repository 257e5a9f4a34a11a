package types

import "time"

const (
	// DefaultCompletionBuffer is subtracted from the task deadline to derive
	// the expected completion time of an assignment.
	DefaultCompletionBuffer = 2 * time.Hour
	// DefaultCompletionFallback applies when neither the task nor its review
	// type carry a deadline.
	DefaultCompletionFallback = 24 * time.Hour
)

// ReviewDefaults are the priority and deadline applied to tasks that do not
// carry their own.
type ReviewDefaults struct {
	PriorityLevel int
	Deadline      time.Duration
}

// DeadlinePolicy derives task priority and assignment due times.
type DeadlinePolicy struct {
	Buffer   time.Duration
	Fallback time.Duration
	Defaults map[ReviewType]ReviewDefaults
}

// DefaultDeadlinePolicy returns the stock per-type defaults: deletions are
// the most urgent, creations the least.
func DefaultDeadlinePolicy() DeadlinePolicy {
	return DeadlinePolicy{
		Buffer:   DefaultCompletionBuffer,
		Fallback: DefaultCompletionFallback,
		Defaults: map[ReviewType]ReviewDefaults{
			ReviewTypeDelete: {PriorityLevel: 3, Deadline: 24 * time.Hour},
			ReviewTypeUpdate: {PriorityLevel: 2, Deadline: 48 * time.Hour},
			ReviewTypeCreate: {PriorityLevel: 1, Deadline: 72 * time.Hour},
		},
	}
}

// PriorityLevel returns the priority the task must be reviewed at.
func (p DeadlinePolicy) PriorityLevel(task ReviewTask) int {
	if task.PriorityLevel > 0 {
		return task.PriorityLevel
	}
	if def, ok := p.Defaults[task.ReviewType.Normalize()]; ok && def.PriorityLevel > 0 {
		return def.PriorityLevel
	}
	return DefaultPriorityLevel
}

// Deadline returns the task deadline, falling back to the review type default.
func (p DeadlinePolicy) Deadline(task ReviewTask, now time.Time) *time.Time {
	if task.Deadline != nil {
		deadline := *task.Deadline
		return &deadline
	}
	if def, ok := p.Defaults[task.ReviewType.Normalize()]; ok && def.Deadline > 0 {
		deadline := now.Add(def.Deadline)
		return &deadline
	}
	return nil
}

// ExpectedCompletion returns when the reviewer is expected to finish. The
// buffer is dropped when applying it would land in the past. A deadline that
// already passed gets the fallback window, so a fresh assignment is never
// overdue on creation.
func (p DeadlinePolicy) ExpectedCompletion(task ReviewTask, now time.Time) time.Time {
	deadline := p.Deadline(task, now)
	if deadline == nil || !deadline.After(now) {
		return now.Add(p.fallback())
	}
	expected := deadline.Add(-p.Buffer)
	if !expected.After(now) {
		return *deadline
	}
	return expected
}

func (p DeadlinePolicy) fallback() time.Duration {
	if p.Fallback > 0 {
		return p.Fallback
	}
	return DefaultCompletionFallback
}
