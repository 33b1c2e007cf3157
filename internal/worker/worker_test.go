package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saqib40/doraemon/internal/analyzer"
	"github.com/saqib40/doraemon/internal/extractor"
	"github.com/saqib40/doraemon/internal/graph"
	"github.com/saqib40/doraemon/internal/metrics"
	"github.com/saqib40/doraemon/internal/queue"
	"github.com/saqib40/doraemon/internal/source"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorkerProcessesJobAndAcks(t *testing.T) {
	store := graph.NewMemoryStore()
	provider := source.NewFakeProvider()
	repoURL := "https://github.com/acme/widgets"
	provider.AddSnapshot(repoURL, "sha1", map[string]string{"a.ts": `export const a = 1;`})

	a := analyzer.New(store, provider, extractor.NewRegexExtractor(), 2, testLogger())
	q := queue.NewMemoryQueue()
	w := New(a, q, testLogger())
	w.Metrics = metrics.New()
	w.IdleBackoff = 10 * time.Millisecond

	_, err := q.PublishAnalysis(context.Background(), queue.AnalysisPayload{RepoURL: repoURL, Sha: "sha1"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = w.Run(ctx)

	dispatched := q.Dispatched()
	require.Len(t, dispatched, 1)
	assert.Equal(t, queue.StatusSuccess, dispatched[0].Status)

	pending, err := q.PendingDepth(context.Background())
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestWorkerDropsPoisonPayload(t *testing.T) {
	store := graph.NewMemoryStore()
	provider := source.NewFakeProvider()
	a := analyzer.New(store, provider, extractor.NewRegexExtractor(), 2, testLogger())
	q := queue.NewMemoryQueue()
	w := New(a, q, testLogger())
	w.IdleBackoff = 10 * time.Millisecond

	q.EnqueueRaw("not json")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = w.Run(ctx)

	assert.Empty(t, q.Dispatched())
}
