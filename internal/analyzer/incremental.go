package analyzer

import (
	"context"
	"fmt"
	"log/slog"

	doraemonerrors "github.com/saqib40/doraemon/internal/errors"
	"github.com/saqib40/doraemon/internal/source"
)

// incremental runs the incremental update protocol: fetch, diff, checkout,
// a deletion pass that completes fully before the mutation pass begins,
// then a bounded-parallel mutation pass. Returns the directly changed file
// paths (status A or M) for blast-radius computation.
func (a *Analyzer) incremental(ctx context.Context, log *slog.Logger, repo, repoURL, oldSha, newSha string) ([]string, error) {
	if err := a.Provider.Fetch(ctx, repoURL); err != nil {
		return nil, doraemonerrors.New(doraemonerrors.RemoteUnavailable, "fetch remote", err)
	}

	diff, err := a.Provider.Diff(ctx, repoURL, oldSha, newSha)
	if err != nil {
		return nil, doraemonerrors.New(doraemonerrors.RemoteUnavailable, "diff commits", err)
	}

	if err := a.Provider.Checkout(ctx, repoURL, newSha); err != nil {
		return nil, doraemonerrors.New(doraemonerrors.RemoteUnavailable, "checkout new sha", err)
	}

	var deletions, modifications []string
	var directlyChanged []string
	for _, entry := range diff {
		switch entry.Status {
		case source.DiffDeleted:
			deletions = append(deletions, entry.Path)
		case source.DiffAdded:
			modifications = append(modifications, entry.Path)
			directlyChanged = append(directlyChanged, entry.Path)
		case source.DiffModified:
			modifications = append(modifications, entry.Path)
			directlyChanged = append(directlyChanged, entry.Path)
		}
	}

	// Deletion pass completes fully before the mutation pass begins, so a
	// file deleted in the same diff never lingers as an import target.
	for _, path := range deletions {
		if err := a.Store.DeleteFile(ctx, repo, path); err != nil {
			return nil, doraemonerrors.New(doraemonerrors.StoreUnavailable, fmt.Sprintf("delete file %s", path), err)
		}
	}

	currentFiles, err := a.Provider.Walk(ctx, repoURL)
	if err != nil {
		return nil, doraemonerrors.New(doraemonerrors.RemoteUnavailable, "walk checked-out tree", err)
	}
	known := knownFileSet(currentFiles)

	modifiedSet := make(map[string]bool, len(modifications))
	for _, entry := range diff {
		if entry.Status == source.DiffModified {
			modifiedSet[entry.Path] = true
		}
	}
	for _, path := range modifications {
		if modifiedSet[path] {
			if err := a.Store.DeleteOutgoingEdges(ctx, repo, path); err != nil {
				return nil, doraemonerrors.New(doraemonerrors.StoreUnavailable, fmt.Sprintf("clear outgoing edges for %s", path), err)
			}
		}
	}

	if err := a.mutateFiles(ctx, log, repo, repoURL, modifications, known); err != nil {
		return nil, err
	}

	return directlyChanged, nil
}
