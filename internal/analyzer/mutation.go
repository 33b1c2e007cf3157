package analyzer

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	doraemonerrors "github.com/saqib40/doraemon/internal/errors"
)

// mutateFiles re-resolves the imports of each path in paths and upserts the
// file plus its import edges, up to Parallelism files concurrently. Each
// file's updates run as a logically atomic sequence; files do not share a
// transaction with one another.
func (a *Analyzer) mutateFiles(ctx context.Context, log *slog.Logger, repo, repoURL string, paths []string, knownFiles map[string]bool) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Parallelism)

	for _, p := range paths {
		path := p
		g.Go(func() error {
			return a.mutateFile(gctx, log, repo, repoURL, path, knownFiles)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return nil
}

func (a *Analyzer) mutateFile(ctx context.Context, log *slog.Logger, repo, repoURL, path string, knownFiles map[string]bool) error {
	contents, err := a.Provider.ReadFile(ctx, repoURL, path)
	if err != nil {
		return doraemonerrors.New(doraemonerrors.RemoteUnavailable, fmt.Sprintf("read file %s", path), err)
	}

	result, err := a.Extractor.Extract(ctx, path, contents, func(candidate string) bool { return knownFiles[candidate] })
	if err != nil {
		return doraemonerrors.New(doraemonerrors.StoreUnavailable, fmt.Sprintf("extract imports from %s", path), err)
	}
	if result.Skipped > 0 {
		log.Debug("extractor skipped unresolvable imports", "path", path, "skipped", result.Skipped)
	}

	if err := a.Store.UpsertFile(ctx, repo, path, basename(path)); err != nil {
		return doraemonerrors.New(doraemonerrors.StoreUnavailable, fmt.Sprintf("upsert file %s", path), err)
	}

	for _, edge := range result.Edges {
		if err := a.Store.UpsertEdge(ctx, repo, path, edge.ToPath, edge.ToName); err != nil {
			return doraemonerrors.New(doraemonerrors.StoreUnavailable, fmt.Sprintf("upsert edge %s -> %s", path, edge.ToPath), err)
		}
	}

	log.Debug("graph store operation", "op", "upsert", "path", path, "edges", len(result.Edges))
	return nil
}

func knownFileSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return set
}
