package analyzer

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// blastRadius computes A = D ∪ recursiveDependents(d) for every d in D,
// calling RecursiveDependents once per changed file concurrently. A
// per-query failure degrades to an empty contribution and is logged, not
// escalated — the overall job status stays success (PartialBlastRadius).
func (a *Analyzer) blastRadius(ctx context.Context, log *slog.Logger, repo string, directlyChanged []string) []string {
	affected := make(map[string]bool, len(directlyChanged))
	var mu sync.Mutex
	for _, path := range directlyChanged {
		affected[path] = true
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Parallelism)

	for _, p := range directlyChanged {
		path := p
		g.Go(func() error {
			dependents, err := a.Store.RecursiveDependents(gctx, repo, path)
			if err != nil {
				log.Warn("partial blast radius: recursive dependents query failed", "path", path, "error", err)
				return nil
			}
			mu.Lock()
			for _, d := range dependents {
				affected[d.Path] = true
			}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	result := make([]string, 0, len(affected))
	for path := range affected {
		result = append(result, path)
	}
	sort.Strings(result)
	return result
}
