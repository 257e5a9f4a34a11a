package types

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidTransition reports that the target assignment status is not
// reachable from the current status.
var ErrInvalidTransition = errors.New("go-reviewers: assignment transition not allowed")

// TransitionPolicy validates assignment status transitions.
type TransitionPolicy interface {
	Validate(current, target AssignmentStatus) error
	AllowedTargets(current AssignmentStatus) []AssignmentStatus
}

// Transition is one edge of the assignment state machine.
type Transition struct {
	From AssignmentStatus
	To   AssignmentStatus
}

// StaticTransitionPolicy enforces a fixed set of edges. Statuses without
// outgoing edges are terminal.
type StaticTransitionPolicy struct {
	edges map[Transition]bool
	out   map[AssignmentStatus][]AssignmentStatus
}

// NewStaticTransitionPolicy builds a policy from a list of edges. Edges with
// an empty endpoint are ignored.
func NewStaticTransitionPolicy(transitions ...Transition) *StaticTransitionPolicy {
	p := &StaticTransitionPolicy{
		edges: make(map[Transition]bool, len(transitions)),
		out:   make(map[AssignmentStatus][]AssignmentStatus),
	}
	for _, t := range transitions {
		if t.From == "" || t.To == "" || p.edges[t] {
			continue
		}
		p.edges[t] = true
		p.out[t.From] = append(p.out[t.From], t.To)
	}
	for from := range p.out {
		sort.Slice(p.out[from], func(i, j int) bool { return p.out[from][i] < p.out[from][j] })
	}
	return p
}

// DefaultTransitionPolicy returns the review assignment state machine.
// Active assignments may be accepted, rejected or cancelled; accepted ones
// may be completed or cancelled.
func DefaultTransitionPolicy() *StaticTransitionPolicy {
	return NewStaticTransitionPolicy(
		Transition{From: AssignmentStatusActive, To: AssignmentStatusAccepted},
		Transition{From: AssignmentStatusActive, To: AssignmentStatusRejected},
		Transition{From: AssignmentStatusActive, To: AssignmentStatusCancelled},
		Transition{From: AssignmentStatusAccepted, To: AssignmentStatusCompleted},
		Transition{From: AssignmentStatusAccepted, To: AssignmentStatusCancelled},
	)
}

func (p *StaticTransitionPolicy) Validate(current, target AssignmentStatus) error {
	if p.edges[Transition{From: current, To: target}] {
		return nil
	}
	return fmt.Errorf("%w: %q -> %q", ErrInvalidTransition, current, target)
}

// AllowedTargets lists the reachable statuses in lexical order. Terminal
// statuses yield nil.
func (p *StaticTransitionPolicy) AllowedTargets(current AssignmentStatus) []AssignmentStatus {
	targets := p.out[current]
	if len(targets) == 0 {
		return nil
	}
	return append([]AssignmentStatus(nil), targets...)
}
