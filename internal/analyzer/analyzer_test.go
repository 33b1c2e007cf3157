package analyzer

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saqib40/doraemon/internal/extractor"
	"github.com/saqib40/doraemon/internal/graph"
	"github.com/saqib40/doraemon/internal/queue"
	"github.com/saqib40/doraemon/internal/source"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAnalyzer(store *graph.MemoryStore, provider *source.FakeProvider) *Analyzer {
	return New(store, provider, extractor.NewRegexExtractor(), 4, testLogger())
}

// Scenario 1: first analysis of a previously unknown repo walks every file
// and upserts its imports; there is no prior baseline so the reported
// affected-files set is empty even though the whole tree was just ingested.
func TestReconcileFirstAnalysis(t *testing.T) {
	store := graph.NewMemoryStore()
	provider := source.NewFakeProvider()
	repoURL := "https://github.com/acme/widgets"
	provider.AddSnapshot(repoURL, "sha1", map[string]string{
		"a.ts": `import { b } from "./b";`,
		"b.ts": `export const b = 1;`,
	})

	a := newTestAnalyzer(store, provider)
	result := a.Reconcile(context.Background(), queue.AnalysisPayload{RepoURL: repoURL, Sha: "sha1"})

	require.Equal(t, queue.StatusSuccess, result.Status)
	assert.Equal(t, "acme/widgets", result.RepoName)
	assert.Equal(t, "sha1", result.Sha)
	assert.Empty(t, result.AffectedFiles)

	deps, err := store.Dependencies(context.Background(), "acme/widgets", "a.ts")
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "b.ts", deps[0].Path)

	sha, present, err := store.GetLastAnalyzedSha(context.Background(), "acme/widgets")
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, "sha1", sha)
}

// Scenario 2: a job for a sha already recorded as the last analyzed commit
// is a pure no-op — no mutation pass, no blast radius.
func TestReconcileNoChange(t *testing.T) {
	store := graph.NewMemoryStore()
	provider := source.NewFakeProvider()
	repoURL := "https://github.com/acme/widgets"
	provider.AddSnapshot(repoURL, "sha1", map[string]string{
		"a.ts": `export const a = 1;`,
	})

	a := newTestAnalyzer(store, provider)
	ctx := context.Background()
	first := a.Reconcile(ctx, queue.AnalysisPayload{RepoURL: repoURL, Sha: "sha1"})
	require.Equal(t, queue.StatusSuccess, first.Status)

	second := a.Reconcile(ctx, queue.AnalysisPayload{RepoURL: repoURL, Sha: "sha1"})
	assert.Equal(t, queue.StatusNoChange, second.Status)
	assert.Empty(t, second.AffectedFiles)
}

// Scenario 3: an incremental update that adds a new file and modifies an
// existing one reports both as directly changed, and the new edge the
// modified file gains is reflected in the store.
func TestReconcileIncrementalAddAndModify(t *testing.T) {
	store := graph.NewMemoryStore()
	provider := source.NewFakeProvider()
	repoURL := "https://github.com/acme/widgets"
	provider.AddSnapshot(repoURL, "sha1", map[string]string{
		"a.ts": `export const a = 1;`,
	})
	a := newTestAnalyzer(store, provider)
	ctx := context.Background()
	first := a.Reconcile(ctx, queue.AnalysisPayload{RepoURL: repoURL, Sha: "sha1"})
	require.Equal(t, queue.StatusSuccess, first.Status)

	provider.AddSnapshot(repoURL, "sha2", map[string]string{
		"a.ts": `import { b } from "./b";`,
		"b.ts": `export const b = 1;`,
	})
	second := a.Reconcile(ctx, queue.AnalysisPayload{RepoURL: repoURL, Sha: "sha2"})
	require.Equal(t, queue.StatusSuccess, second.Status)
	assert.ElementsMatch(t, []string{"a.ts", "b.ts"}, second.AffectedFiles)

	deps, err := store.Dependencies(ctx, "acme/widgets", "a.ts")
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "b.ts", deps[0].Path)
}

// Scenario 4: an incremental update that deletes a file removes it and its
// incident edges; the dependent that was modified to drop its import of the
// deleted file is reported as directly changed.
func TestReconcileIncrementalDelete(t *testing.T) {
	store := graph.NewMemoryStore()
	provider := source.NewFakeProvider()
	repoURL := "https://github.com/acme/widgets"
	provider.AddSnapshot(repoURL, "sha1", map[string]string{
		"a.ts": `import { b } from "./b";`,
		"b.ts": `export const b = 1;`,
	})
	a := newTestAnalyzer(store, provider)
	ctx := context.Background()
	first := a.Reconcile(ctx, queue.AnalysisPayload{RepoURL: repoURL, Sha: "sha1"})
	require.Equal(t, queue.StatusSuccess, first.Status)

	provider.AddSnapshot(repoURL, "sha2", map[string]string{
		"a.ts": `export const a = 1;`,
	})
	second := a.Reconcile(ctx, queue.AnalysisPayload{RepoURL: repoURL, Sha: "sha2"})
	require.Equal(t, queue.StatusSuccess, second.Status)
	assert.Equal(t, []string{"a.ts"}, second.AffectedFiles)

	deps, err := store.Dependencies(ctx, "acme/widgets", "a.ts")
	require.NoError(t, err)
	assert.Empty(t, deps)

	files, _, err := store.FullGraph(ctx, "acme/widgets")
	require.NoError(t, err)
	for _, f := range files {
		assert.NotEqual(t, "b.ts", f.Path)
	}
}

// Scenario 5: a mutual-import cycle between two files must not hang
// RecursiveDependents and must exclude the query file from its own result.
func TestReconcileBlastRadiusToleratesCycle(t *testing.T) {
	store := graph.NewMemoryStore()
	provider := source.NewFakeProvider()
	repoURL := "https://github.com/acme/widgets"
	provider.AddSnapshot(repoURL, "sha1", map[string]string{
		"a.ts": `import { b } from "./b";`,
		"b.ts": `import { a } from "./a";`,
	})
	a := newTestAnalyzer(store, provider)
	ctx := context.Background()
	result := a.Reconcile(ctx, queue.AnalysisPayload{RepoURL: repoURL, Sha: "sha1"})
	require.Equal(t, queue.StatusSuccess, result.Status)

	dependents, err := store.RecursiveDependents(ctx, "acme/widgets", "a.ts")
	require.NoError(t, err)
	require.Len(t, dependents, 1)
	assert.Equal(t, "b.ts", dependents[0].Path)
}

// Scenario 6: redelivering the same job (at-least-once queue semantics)
// must leave the store in the same state; the redelivered job finds the sha
// already committed and reports no-change.
func TestReconcileRedeliveryIsIdempotent(t *testing.T) {
	store := graph.NewMemoryStore()
	provider := source.NewFakeProvider()
	repoURL := "https://github.com/acme/widgets"
	provider.AddSnapshot(repoURL, "sha1", map[string]string{
		"a.ts": `import { b } from "./b";`,
		"b.ts": `export const b = 1;`,
	})
	a := newTestAnalyzer(store, provider)
	ctx := context.Background()

	first := a.Reconcile(ctx, queue.AnalysisPayload{RepoURL: repoURL, Sha: "sha1"})
	require.Equal(t, queue.StatusSuccess, first.Status)
	filesBefore, edgesBefore, err := store.FullGraph(ctx, "acme/widgets")
	require.NoError(t, err)

	// Redeliver the exact same job (the sha is already committed).
	redelivered := a.Reconcile(ctx, queue.AnalysisPayload{RepoURL: repoURL, Sha: "sha1"})
	assert.Equal(t, queue.StatusNoChange, redelivered.Status)

	filesAfter, edgesAfter, err := store.FullGraph(ctx, "acme/widgets")
	require.NoError(t, err)
	assert.ElementsMatch(t, filesBefore, filesAfter)
	assert.ElementsMatch(t, edgesBefore, edgesAfter)
}

func TestReconcileFailsOnMalformedRepoURL(t *testing.T) {
	store := graph.NewMemoryStore()
	provider := source.NewFakeProvider()
	a := newTestAnalyzer(store, provider)

	result := a.Reconcile(context.Background(), queue.AnalysisPayload{RepoURL: "not a valid url", Sha: "sha1"})
	assert.Equal(t, queue.StatusFailure, result.Status)
	assert.NotEmpty(t, result.Error)
}
