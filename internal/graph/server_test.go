package graph

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerAndHTTPClientRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	server := NewServer(store, nil)
	ts := httptest.NewServer(server)
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	ctx := context.Background()

	require.NoError(t, client.UpsertEdge(ctx, "acme/widgets", "a.ts", "b.ts", "b.ts"))

	deps, err := client.Dependencies(ctx, "acme/widgets", "a.ts")
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "b.ts", deps[0].Path)

	require.NoError(t, client.SetLastAnalyzedSha(ctx, "acme/widgets", "abc123"))
	sha, present, err := client.GetLastAnalyzedSha(ctx, "acme/widgets")
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, "abc123", sha)

	_, present2, err2 := client.GetLastAnalyzedSha(ctx, "acme/unknown")
	require.NoError(t, err2)
	assert.False(t, present2)

	require.NoError(t, client.HealthCheck(ctx))
}
