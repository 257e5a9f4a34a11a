package types

import (
	"errors"
	"testing"
)

func TestStaticTransitionPolicyValidate(t *testing.T) {
	policy := DefaultTransitionPolicy()

	if err := policy.Validate(AssignmentStatusActive, AssignmentStatusAccepted); err != nil {
		t.Fatalf("expected active->accepted to be allowed: %v", err)
	}

	if err := policy.Validate(AssignmentStatusAccepted, AssignmentStatusCompleted); err != nil {
		t.Fatalf("expected accepted->completed allowed: %v", err)
	}

	if err := policy.Validate(AssignmentStatusActive, AssignmentStatusCompleted); err == nil {
		t.Fatalf("expected active->completed to be rejected")
	}

	if err := policy.Validate(AssignmentStatusAccepted, AssignmentStatusAccepted); err == nil {
		t.Fatalf("expected accepted->accepted to be rejected")
	}

	for _, terminal := range []AssignmentStatus{AssignmentStatusRejected, AssignmentStatusCancelled, AssignmentStatusCompleted} {
		if err := policy.Validate(terminal, AssignmentStatusCancelled); err == nil {
			t.Fatalf("expected %s to be terminal", terminal)
		}
	}
}

func TestStaticTransitionPolicyAllowedTargets(t *testing.T) {
	policy := DefaultTransitionPolicy()
	targets := policy.AllowedTargets(AssignmentStatusActive)
	want := []AssignmentStatus{AssignmentStatusAccepted, AssignmentStatusCancelled, AssignmentStatusRejected}
	if len(targets) != len(want) {
		t.Fatalf("expected %v for active, got %v", want, targets)
	}
	for i := range want {
		if targets[i] != want[i] {
			t.Fatalf("expected %v for active, got %v", want, targets)
		}
	}
	if targets := policy.AllowedTargets(AssignmentStatusCompleted); targets != nil {
		t.Fatalf("expected no targets for completed, got %v", targets)
	}
}

func TestAssignmentActionTarget(t *testing.T) {
	status, ok := AssignmentAction(" Accept ").Target()
	if !ok || status != AssignmentStatusAccepted {
		t.Fatalf("expected accept to map to accepted, got %q %v", status, ok)
	}
	if _, ok := AssignmentAction("escalate").Target(); ok {
		t.Fatalf("expected unknown action to be rejected")
	}
}

func TestStaticTransitionPolicyIgnoresBlankEdges(t *testing.T) {
	policy := NewStaticTransitionPolicy(
		Transition{From: AssignmentStatusActive, To: ""},
		Transition{From: AssignmentStatusActive, To: AssignmentStatusAccepted},
		Transition{From: AssignmentStatusActive, To: AssignmentStatusAccepted},
	)
	if targets := policy.AllowedTargets(AssignmentStatusActive); len(targets) != 1 {
		t.Fatalf("expected a single deduplicated target, got %v", targets)
	}
	err := policy.Validate("", AssignmentStatusAccepted)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}
