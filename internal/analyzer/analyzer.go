// Package analyzer reconciles one repository's persisted import graph with
// its latest remote commit and computes the blast radius of what changed.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	doraemonerrors "github.com/saqib40/doraemon/internal/errors"
	"github.com/saqib40/doraemon/internal/extractor"
	"github.com/saqib40/doraemon/internal/graph"
	"github.com/saqib40/doraemon/internal/queue"
	"github.com/saqib40/doraemon/internal/source"
)

// Analyzer reconciles a repo's graph against its latest remote commit.
type Analyzer struct {
	Store       graph.Store
	Provider    source.Provider
	Extractor   extractor.Extractor
	Parallelism int
	Logger      *slog.Logger
}

// New builds an Analyzer. parallelism bounds the mutation pass and the
// blast-radius fan-out; logger may be nil to use slog.Default().
func New(store graph.Store, provider source.Provider, ext extractor.Extractor, parallelism int, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Analyzer{Store: store, Provider: provider, Extractor: ext, Parallelism: parallelism, Logger: logger}
}

// Reconcile runs one job through the full state machine and returns the
// dispatch result. It has no error return: a failed reconciliation yields a
// DispatchResult with status:"failure" so the caller can publish and ack
// exactly once, per the propagation policy.
func (a *Analyzer) Reconcile(ctx context.Context, payload queue.AnalysisPayload) queue.DispatchResult {
	log := a.Logger.With("repo_url", payload.RepoURL, "sha", payload.Sha)
	log.Debug("state transition", "state", StateReceived)

	log.Debug("state transition", "state", StateParsing)
	owner, name, err := source.ParseRepoURL(payload.RepoURL)
	if err != nil {
		return a.failure(log, payload.RepoURL, payload.Sha, doraemonerrors.New(doraemonerrors.InputInvalid, "malformed repo URL", err))
	}
	repo := fmt.Sprintf("%s/%s", owner, name)
	log = log.With("repo", repo)

	log.Debug("state transition", "state", StateComparing)
	remoteSha, err := a.Provider.LatestSha(ctx, owner, name)
	if err != nil {
		return a.failure(log, repo, payload.Sha, doraemonerrors.New(doraemonerrors.RemoteUnavailable, "fetch latest sha", err))
	}

	localSha, present, err := a.Store.GetLastAnalyzedSha(ctx, repo)
	if err != nil {
		return a.failure(log, repo, payload.Sha, doraemonerrors.New(doraemonerrors.StoreUnavailable, "read last analyzed sha", err))
	}

	if present && localSha == remoteSha {
		log.Debug("state transition", "state", StateNoChange)
		log.Info("job terminal state", "state", StatePublishedNoChange)
		return queue.DispatchResult{RepoName: repo, Sha: remoteSha, Status: queue.StatusNoChange, AffectedFiles: []string{}}
	}

	var directlyChanged []string
	if present {
		log.Debug("state transition", "state", StateIncremental)
		directlyChanged, err = a.incremental(ctx, log, repo, payload.RepoURL, localSha, remoteSha)
	} else {
		log.Debug("state transition", "state", StateFullAnalysis)
		directlyChanged, err = a.fullAnalysis(ctx, log, repo, payload.RepoURL, remoteSha)
	}
	if err != nil {
		var category doraemonerrors.Category
		if de, ok := err.(*doraemonerrors.Error); ok {
			category = de.Category
		} else {
			category = doraemonerrors.StoreUnavailable
		}
		return a.failure(log, repo, remoteSha, doraemonerrors.New(category, "reconcile graph", err))
	}

	log.Debug("state transition", "state", StateCommitting)
	if err := a.Store.SetLastAnalyzedSha(ctx, repo, remoteSha); err != nil {
		return a.failure(log, repo, remoteSha, doraemonerrors.New(doraemonerrors.StoreUnavailable, "commit last analyzed sha", err))
	}

	log.Debug("state transition", "state", StatePublishing)
	affected := a.blastRadius(ctx, log, repo, directlyChanged)

	log.Info("job terminal state", "state", StatePublishedSuccess, "affected_files", len(affected))
	return queue.DispatchResult{
		RepoName:      repo,
		Sha:           remoteSha,
		Status:        queue.StatusSuccess,
		AffectedFiles: affected,
	}
}

func (a *Analyzer) failure(log *slog.Logger, repo, sha string, err *doraemonerrors.Error) queue.DispatchResult {
	log.Warn("job terminal state", "state", StatePublishedFailure, "category", err.Category, "error", err)
	return queue.DispatchResult{
		RepoName:      repo,
		Sha:           sha,
		Status:        queue.StatusFailure,
		AffectedFiles: []string{},
		Error:         err.Message,
	}
}

// basename returns the final path component, used as the display name of
// upserted files.
func basename(p string) string {
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}
