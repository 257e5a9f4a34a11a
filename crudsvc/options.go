package crudsvc

import (
	"context"
	"fmt"

	"github.com/goliatone/go-crud"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/google/uuid"
)

// ActorResolver extracts the acting user from a CRUD request. uuid.Nil means
// the write is unattributed.
type ActorResolver func(ctx crud.Context) uuid.UUID

type actorKey struct{}

// WithActor stores the acting user on the request context so the default
// resolver can find it.
func WithActor(ctx context.Context, actorID uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFromContext returns the user stored by WithActor.
func ActorFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if id, ok := ctx.Value(actorKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

type serviceOptions struct {
	actor  ActorResolver
	logger types.Logger
}

// ServiceOption customizes CRUD service behaviour.
type ServiceOption func(*serviceOptions)

// WithActorResolver overrides how the acting user is read from requests.
func WithActorResolver(resolver ActorResolver) ServiceOption {
	return func(cfg *serviceOptions) {
		if resolver != nil {
			cfg.actor = resolver
		}
	}
}

// WithLogger wires a logger for service diagnostics.
func WithLogger(logger types.Logger) ServiceOption {
	return func(cfg *serviceOptions) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

func applyOptions(opts []ServiceOption) serviceOptions {
	cfg := serviceOptions{
		actor: func(ctx crud.Context) uuid.UUID {
			return ActorFromContext(ctx.UserContext())
		},
		logger: types.NopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func notSupported(op crud.CrudOperation) error {
	return goerrors.New(
		fmt.Sprintf("go-reviewers: crud operation %s disabled for this resource", op),
		goerrors.CategoryValidation,
	).WithCode(goerrors.CodeBadRequest)
}

func missing(what string) error {
	return goerrors.New(fmt.Sprintf("go-reviewers: %s missing", what), goerrors.CategoryInternal).
		WithCode(goerrors.CodeInternal)
}

// WithCommandService mirrors crud.WithService for controllers that delegate
// to the command and query layer.
func WithCommandService[T any](svc crud.Service[T]) crud.Option[T] {
	return crud.WithService(svc)
}
