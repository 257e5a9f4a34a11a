package main

import (
	"context"
	"testing"

	"github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-reviewers/command"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func authorChain(author uuid.UUID) gate.ResolveOption {
	return gate.WithScopeChain(gate.ScopeChain{
		{Kind: gate.ScopeUser, ID: author.String()},
		{Kind: gate.ScopeSystem},
	})
}

func TestFeatureGate_AutoAssignmentDefaultsOn(t *testing.T) {
	g := newFeatureGate(nil, nil)

	enabled, err := g.Enabled(context.Background(), command.FeatureAutoAssignment)
	require.NoError(t, err)
	require.True(t, enabled)

	enabled, err = g.Enabled(context.Background(), "reviews.unknown")
	require.NoError(t, err)
	require.False(t, enabled)
}

func TestFeatureGate_ConfigDisablesAutoAssignment(t *testing.T) {
	g := newFeatureGate(map[string]bool{command.FeatureAutoAssignment: false}, nil)

	enabled, err := g.Enabled(context.Background(), command.FeatureAutoAssignment, authorChain(uuid.New()))
	require.NoError(t, err)
	require.False(t, enabled)
}

func TestFeatureGate_AuthorOverride(t *testing.T) {
	ctx := context.Background()
	g := newFeatureGate(nil, nil)
	author := uuid.New()

	require.NoError(t, g.Set(ctx, command.FeatureAutoAssignment,
		gate.ScopeRef{Kind: gate.ScopeUser, ID: author.String()}, false, gate.ActorRef{ID: "ops"}))

	enabled, err := g.Enabled(ctx, command.FeatureAutoAssignment, authorChain(author))
	require.NoError(t, err)
	require.False(t, enabled, "override applies to the author")

	enabled, err = g.Enabled(ctx, command.FeatureAutoAssignment, authorChain(uuid.New()))
	require.NoError(t, err)
	require.True(t, enabled, "other authors keep the config default")
}
