package api

import (
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-reviewers/pkg/types"
)

const (
	TextCodeNotFound               = "NOT_FOUND"
	TextCodeNoEligibleRole         = "NO_ELIGIBLE_ROLE"
	TextCodeAssignmentNotPermitted = "ASSIGNMENT_NOT_PERMITTED"
	TextCodeNoCapacity             = "NO_CAPACITY"
	TextCodeDuplicateAssignment    = "DUPLICATE_ACTIVE_ASSIGNMENT"
	TextCodeInvalidTransition      = "INVALID_TRANSITION"
	TextCodeAutoAssignmentDisabled = "AUTO_ASSIGNMENT_DISABLED"
	TextCodeValidation             = "VALIDATION_FAILED"
	TextCodeServiceNotReady        = "SERVICE_NOT_READY"
	TextCodeInternal               = "INTERNAL_ERROR"

	// MetadataRetryable marks errors the caller may retry unchanged later.
	MetadataRetryable = "retryable"
)

type errorMapping struct {
	targets   []error
	category  goerrors.Category
	code      int
	textCode  string
	retryable bool
}

var errorMappings = []errorMapping{
	{
		targets:  []error{types.ErrNotFound},
		category: goerrors.CategoryNotFound,
		code:     goerrors.CodeNotFound,
		textCode: TextCodeNotFound,
	},
	{
		targets:  []error{types.ErrNoEligibleRole},
		category: goerrors.CategoryValidation,
		code:     http.StatusUnprocessableEntity,
		textCode: TextCodeNoEligibleRole,
	},
	{
		targets:  []error{types.ErrAssignmentNotPermitted},
		category: goerrors.CategoryAuthz,
		code:     goerrors.CodeForbidden,
		textCode: TextCodeAssignmentNotPermitted,
	},
	{
		targets:   []error{types.ErrNoCapacity},
		category:  goerrors.CategoryConflict,
		code:      http.StatusConflict,
		textCode:  TextCodeNoCapacity,
		retryable: true,
	},
	{
		targets:  []error{types.ErrDuplicateActiveAssignment},
		category: goerrors.CategoryConflict,
		code:     http.StatusConflict,
		textCode: TextCodeDuplicateAssignment,
	},
	{
		targets:  []error{types.ErrInvalidTransition},
		category: goerrors.CategoryConflict,
		code:     http.StatusConflict,
		textCode: TextCodeInvalidTransition,
	},
	{
		targets:   []error{types.ErrAutoAssignmentDisabled},
		category:  goerrors.CategoryConflict,
		code:      http.StatusConflict,
		textCode:  TextCodeAutoAssignmentDisabled,
		retryable: true,
	},
	{
		targets: []error{
			types.ErrTaskIDRequired,
			types.ErrAssignmentIDRequired,
			types.ErrReviewerIDRequired,
			types.ErrAssignerRequired,
			types.ErrTargetReviewerRequired,
			types.ErrRoleRequired,
			types.ErrReviewTypeRequired,
			types.ErrUnknownPolicy,
			types.ErrUnknownAction,
			types.ErrInvalidProfile,
		},
		category: goerrors.CategoryValidation,
		code:     goerrors.CodeBadRequest,
		textCode: TextCodeValidation,
	},
	{
		targets: []error{
			types.ErrServiceNotReady,
			types.ErrMissingProfileStore,
			types.ErrMissingAssignmentRepository,
			types.ErrMissingReviewerDirectory,
			types.ErrMissingTaskProvider,
			types.ErrMissingBacklogRepository,
			types.ErrMissingReadRepository,
		},
		category: goerrors.CategoryInternal,
		code:     http.StatusServiceUnavailable,
		textCode: TextCodeServiceNotReady,
	},
}

// MapError converts engine errors into go-errors values carrying the HTTP
// status and a stable text code. Errors that are already rich pass through.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich
	}
	for _, mapping := range errorMappings {
		for _, target := range mapping.targets {
			if !errors.Is(err, target) {
				continue
			}
			mapped := goerrors.Wrap(err, mapping.category, err.Error()).
				WithCode(mapping.code).
				WithTextCode(mapping.textCode)
			if mapping.retryable {
				mapped = mapped.WithMetadata(map[string]any{MetadataRetryable: true})
			}
			return mapped
		}
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "go-reviewers: request failed").
		WithCode(goerrors.CodeInternal).
		WithTextCode(TextCodeInternal)
}

func validationError(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryValidation).
		WithCode(goerrors.CodeBadRequest).
		WithTextCode(TextCodeValidation)
}
