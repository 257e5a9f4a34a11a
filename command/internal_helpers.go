package command

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-reviewers/pkg/types"
)

// env carries the collaborators every command shares. The zero value of each
// field is replaced by a working default.
type env struct {
	clock  types.Clock
	logger types.Logger
	hooks  types.Hooks
}

func newEnv(clock types.Clock, logger types.Logger, hooks types.Hooks) env {
	if clock == nil {
		clock = types.SystemClock{}
	}
	if logger == nil {
		logger = types.NopLogger{}
	}
	return env{clock: clock, logger: logger, hooks: hooks}
}

func (e env) now() time.Time {
	if e.clock == nil {
		return time.Now().UTC()
	}
	return e.clock.Now()
}

func (e env) profileChanged(ctx context.Context, event types.ProfileEvent) {
	if e.hooks.AfterProfileChange != nil {
		e.hooks.AfterProfileChange(ctx, event)
	}
}

func (e env) backlogChanged(ctx context.Context, entry types.BacklogEntry) {
	if e.hooks.AfterBacklogChange != nil {
		e.hooks.AfterBacklogChange(ctx, entry)
	}
}

// backloggable reports whether an auto request failure may clear up later.
func backloggable(err error) bool {
	return errors.Is(err, types.ErrNoCapacity) || errors.Is(err, types.ErrNoEligibleRole)
}
