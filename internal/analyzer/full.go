package analyzer

import (
	"context"
	"log/slog"

	doraemonerrors "github.com/saqib40/doraemon/internal/errors"
)

// fullAnalysis runs when the repo has no stored baseline: shallow-clone,
// enumerate every source file, and upsert each one's imports. There is no
// directly-changed set to report (no baseline to diff against), so the
// caller's blast radius degrades to empty. After returning, a full-history
// fetch is kicked off asynchronously to deepen the shallow clone.
func (a *Analyzer) fullAnalysis(ctx context.Context, log *slog.Logger, repo, repoURL, remoteSha string) ([]string, error) {
	if err := a.Provider.Fetch(ctx, repoURL); err != nil {
		return nil, doraemonerrors.New(doraemonerrors.RemoteUnavailable, "clone remote", err)
	}
	if err := a.Provider.Checkout(ctx, repoURL, remoteSha); err != nil {
		return nil, doraemonerrors.New(doraemonerrors.RemoteUnavailable, "checkout sha", err)
	}

	files, err := a.Provider.Walk(ctx, repoURL)
	if err != nil {
		return nil, doraemonerrors.New(doraemonerrors.RemoteUnavailable, "walk repo tree", err)
	}
	known := knownFileSet(files)

	if err := a.mutateFiles(ctx, log, repo, repoURL, files, known); err != nil {
		return nil, err
	}

	if deepener, ok := a.Provider.(interface {
		DeepenAsync(ctx context.Context, repoURL string, onError func(error))
	}); ok {
		deepener.DeepenAsync(ctx, repoURL, func(err error) {
			log.Warn("deepen clone failed", "repo_url", repoURL, "error", err)
		})
	}

	return nil, nil
}
