package main

import (
	"context"

	"github.com/goliatone/go-featuregate/adapters/configadapter"
	"github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-featuregate/resolver"
	"github.com/goliatone/go-featuregate/store"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-reviewers/command"
)

// newFeatureGate resolves flags from the features config block with runtime
// overrides held in memory. Auto assignment stays on unless config says
// otherwise, since unset keys resolve to false.
func newFeatureGate(flags map[string]bool, logger glog.Logger) *resolver.Gate {
	defaults := map[string]bool{command.FeatureAutoAssignment: true}
	for key, enabled := range flags {
		defaults[key] = enabled
	}

	opts := []resolver.Option{
		resolver.WithDefaults(configadapter.NewDefaultsFromBools(defaults)),
		resolver.WithOverrideStore(store.NewMemoryStore()),
	}
	if logger != nil {
		opts = append(opts, resolver.WithResolveHook(gate.ResolveHookFunc(func(_ context.Context, event gate.ResolveEvent) {
			logger.Debug("feature resolved",
				"key", event.NormalizedKey,
				"value", event.Value,
				"source", event.Source)
		})))
	}
	return resolver.New(opts...)
}
