// Package source provides the Analyzer's view of a remote repository: the
// latest commit on the default branch, and the mirror operations (fetch,
// diff, checkout) needed to reconcile the local import graph against it.
package source

import "context"

// DiffStatus is the one-character status code from a version-control diff.
type DiffStatus string

const (
	DiffAdded    DiffStatus = "A"
	DiffModified DiffStatus = "M"
	DiffDeleted  DiffStatus = "D"
	DiffRenamed  DiffStatus = "R"
	DiffCopied   DiffStatus = "C"
)

// DiffEntry is one file's change between two commits. Renames and copies
// are already normalized away by the provider: a rename surfaces as a
// delete of the old path plus an add of the new one.
type DiffEntry struct {
	Status DiffStatus
	Path   string
}

// Provider is the Analyzer's dependency on the forge and the local git
// mirror: LatestSha queries the forge API directly, while Fetch/Diff/
// Checkout operate on a worker-local mirror of the repo.
type Provider interface {
	// LatestSha returns the current HEAD commit of owner/name's default
	// branch.
	LatestSha(ctx context.Context, owner, name string) (string, error)

	// Fetch ensures a local mirror of repoURL exists and brings it up to
	// date, cloning it if this is the first time this worker has seen the
	// repo.
	Fetch(ctx context.Context, repoURL string) error

	// Diff returns the file-level changes between oldSha and newSha in
	// repoURL's mirror.
	Diff(ctx context.Context, repoURL, oldSha, newSha string) ([]DiffEntry, error)

	// Checkout switches repoURL's mirror working tree to sha.
	Checkout(ctx context.Context, repoURL, sha string) error

	// Walk lists every source file path (relative to the repo root,
	// excluding node_modules and similar directories) at the mirror's
	// current checkout.
	Walk(ctx context.Context, repoURL string) ([]string, error)

	// ReadFile returns the contents of path within repoURL's mirror at
	// its current checkout.
	ReadFile(ctx context.Context, repoURL, path string) ([]byte, error)
}
