package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertFileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.UpsertFile(ctx, "acme/widgets", "a.ts", "a.ts"))
	require.NoError(t, s.UpsertFile(ctx, "acme/widgets", "a.ts", "a.ts"))

	files, _, err := s.FullGraph(ctx, "acme/widgets")
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestUpsertEdgeEnsuresBothEndpoints(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.UpsertEdge(ctx, "acme/widgets", "a.ts", "b.ts", "b.ts"))

	files, edges, err := s.FullGraph(ctx, "acme/widgets")
	require.NoError(t, err)
	assert.Len(t, files, 2)
	require.Len(t, edges, 1)
	assert.Equal(t, "a.ts", edges[0].From)
	assert.Equal(t, "b.ts", edges[0].To)
}

func TestDeleteFileRemovesIncidentEdges(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.UpsertEdge(ctx, "acme/widgets", "a.ts", "b.ts", "b.ts"))
	require.NoError(t, s.UpsertEdge(ctx, "acme/widgets", "c.ts", "a.ts", "a.ts"))

	require.NoError(t, s.DeleteFile(ctx, "acme/widgets", "a.ts"))

	files, edges, err := s.FullGraph(ctx, "acme/widgets")
	require.NoError(t, err)

	for _, f := range files {
		assert.NotEqual(t, "a.ts", f.Path)
	}
	assert.Empty(t, edges)
}

func TestDeleteFileOnMissingNodeIsSuccess(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.DeleteFile(context.Background(), "acme/widgets", "ghost.ts"))
}

func TestDeleteOutgoingEdgesLeavesNodeIntact(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.UpsertEdge(ctx, "acme/widgets", "a.ts", "b.ts", "b.ts"))
	require.NoError(t, s.DeleteOutgoingEdges(ctx, "acme/widgets", "a.ts"))

	deps, err := s.Dependencies(ctx, "acme/widgets", "a.ts")
	require.NoError(t, err)
	assert.Empty(t, deps)

	files, _, err := s.FullGraph(ctx, "acme/widgets")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestRecursiveDependentsExcludesSelfAndToleratesCycles(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	// a.ts <-> b.ts mutual import.
	require.NoError(t, s.UpsertEdge(ctx, "acme/widgets", "a.ts", "b.ts", "b.ts"))
	require.NoError(t, s.UpsertEdge(ctx, "acme/widgets", "b.ts", "a.ts", "a.ts"))

	result, err := s.RecursiveDependents(ctx, "acme/widgets", "a.ts")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "b.ts", result[0].Path)
}

func TestRecursiveDependentsMultiHop(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	// c.ts -> b.ts -> a.ts: both b.ts and c.ts are recursive dependents of a.ts.
	require.NoError(t, s.UpsertEdge(ctx, "acme/widgets", "b.ts", "a.ts", "a.ts"))
	require.NoError(t, s.UpsertEdge(ctx, "acme/widgets", "c.ts", "b.ts", "b.ts"))

	result, err := s.RecursiveDependents(ctx, "acme/widgets", "a.ts")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "b.ts", result[0].Path)
	assert.Equal(t, "c.ts", result[1].Path)
}

func TestRecursiveDependentsThreeNodeCycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	// a.ts -> b.ts -> c.ts -> a.ts.
	require.NoError(t, s.UpsertEdge(ctx, "acme/widgets", "a.ts", "b.ts", "b.ts"))
	require.NoError(t, s.UpsertEdge(ctx, "acme/widgets", "b.ts", "c.ts", "c.ts"))
	require.NoError(t, s.UpsertEdge(ctx, "acme/widgets", "c.ts", "a.ts", "a.ts"))

	result, err := s.RecursiveDependents(ctx, "acme/widgets", "b.ts")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "a.ts", result[0].Path)
	assert.Equal(t, "c.ts", result[1].Path)
}

func TestRepoExistsAndLastAnalyzedSha(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	exists, err := s.RepoExists(ctx, "acme/widgets")
	require.NoError(t, err)
	assert.False(t, exists)

	_, present, err := s.GetLastAnalyzedSha(ctx, "acme/widgets")
	require.NoError(t, err)
	assert.False(t, present)

	require.NoError(t, s.SetLastAnalyzedSha(ctx, "acme/widgets", "deadbeef"))

	sha, present, err := s.GetLastAnalyzedSha(ctx, "acme/widgets")
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, "deadbeef", sha)

	exists, err = s.RepoExists(ctx, "acme/widgets")
	require.NoError(t, err)
	assert.True(t, exists)
}
