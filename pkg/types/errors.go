package types

import "errors"

var (
	// ErrNotFound indicates the referenced assignment, profile or task does not exist.
	ErrNotFound = errors.New("go-reviewers: not found")
	// ErrNoEligibleRole indicates no role or reviewer qualifies for the task.
	ErrNoEligibleRole = errors.New("go-reviewers: no eligible role")
	// ErrAssignmentNotPermitted indicates the assigner's role may not assign reviewers.
	ErrAssignmentNotPermitted = errors.New("go-reviewers: assignment not permitted")
	// ErrNoCapacity indicates every eligible reviewer is at their concurrency cap.
	ErrNoCapacity = errors.New("go-reviewers: no reviewer capacity")
	// ErrDuplicateActiveAssignment indicates the task already has an active or accepted assignment.
	ErrDuplicateActiveAssignment = errors.New("go-reviewers: task already has an active assignment")
	// ErrAutoAssignmentDisabled indicates the auto-assignment feature gate is off.
	ErrAutoAssignmentDisabled = errors.New("go-reviewers: auto assignment disabled")
)

var (
	ErrTaskIDRequired         = errors.New("go-reviewers: review task id required")
	ErrAssignmentIDRequired   = errors.New("go-reviewers: assignment id required")
	ErrReviewerIDRequired     = errors.New("go-reviewers: reviewer id required")
	ErrAssignerRequired       = errors.New("go-reviewers: assigner id required for manual assignment")
	ErrTargetReviewerRequired = errors.New("go-reviewers: target reviewer required for manual assignment")
	ErrRoleRequired           = errors.New("go-reviewers: role name required")
	ErrReviewTypeRequired     = errors.New("go-reviewers: review type required")
	ErrUnknownPolicy          = errors.New("go-reviewers: unknown assignment policy")
	ErrUnknownAction          = errors.New("go-reviewers: unknown assignment action")
	ErrInvalidProfile         = errors.New("go-reviewers: invalid permission profile")
)

var (
	// ErrServiceNotReady indicates the service has not been properly configured.
	ErrServiceNotReady = errors.New("go-reviewers: service not ready")
	// ErrMissingProfileStore occurs when no profile store was supplied.
	ErrMissingProfileStore = errors.New("go-reviewers: missing profile store")
	// ErrMissingAssignmentRepository occurs when no ledger was supplied.
	ErrMissingAssignmentRepository = errors.New("go-reviewers: missing assignment repository")
	// ErrMissingReviewerDirectory occurs when no reviewer directory was supplied.
	ErrMissingReviewerDirectory = errors.New("go-reviewers: missing reviewer directory")
	// ErrMissingTaskProvider occurs when no review task provider was supplied.
	ErrMissingTaskProvider = errors.New("go-reviewers: missing task provider")
	// ErrMissingBacklogRepository occurs when backlog operations lack storage.
	ErrMissingBacklogRepository = errors.New("go-reviewers: missing backlog repository")
	// ErrMissingReadRepository occurs when audit queries lack a read model.
	ErrMissingReadRepository = errors.New("go-reviewers: missing assignment read repository")
)
