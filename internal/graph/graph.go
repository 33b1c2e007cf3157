// Package graph defines the persisted import-graph contract (File, Edge,
// Repo state, and the Store operations the Analyzer reconciles against) and
// ships a Neo4j-backed implementation, an in-memory fake for tests, and an
// HTTP client/server pair so the Analyzer can talk to a standalone
// graph-service process.
package graph

import "context"

// File is a single source file within a repo, keyed by (Repo, Path).
type File struct {
	Repo string `json:"repo"`
	Path string `json:"path"`
	Name string `json:"name"`
}

// Edge is a directed IMPORTS relationship: From imports To.
type Edge struct {
	Repo string `json:"repo"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Store is the persisted import-graph contract. Every operation is scoped
// to a single repo and must be idempotent: a retried call after an
// at-least-once redelivery leaves the graph in the same state as one
// successful call.
type Store interface {
	// RepoExists reports whether any File or Repo record exists for repo.
	RepoExists(ctx context.Context, repo string) (bool, error)

	// GetLastAnalyzedSha reads the Repo record's last analyzed commit.
	// present is false when the repo is unknown to the store.
	GetLastAnalyzedSha(ctx context.Context, repo string) (sha string, present bool, err error)

	// SetLastAnalyzedSha upserts the Repo record. Idempotent.
	SetLastAnalyzedSha(ctx context.Context, repo, sha string) error

	// UpsertFile creates the File if missing, else updates name. Idempotent.
	// Must not disturb any edge incident to the file.
	UpsertFile(ctx context.Context, repo, path, name string) error

	// DeleteFile removes the File and every edge incident to it, in one
	// transaction. Idempotent: deleting a missing node is success.
	DeleteFile(ctx context.Context, repo, path string) error

	// UpsertEdge ensures the target file exists, then ensures exactly one
	// IMPORTS edge from fromPath to toPath. The source file is also
	// ensured to exist in the same transaction. Idempotent.
	UpsertEdge(ctx context.Context, repo, fromPath, toPath, toName string) error

	// DeleteOutgoingEdges removes every outgoing IMPORTS edge from path,
	// leaving the node itself intact. Idempotent.
	DeleteOutgoingEdges(ctx context.Context, repo, path string) error

	// Dependencies returns the files path imports, one hop.
	Dependencies(ctx context.Context, repo, path string) ([]File, error)

	// Dependents returns the files importing path, one hop.
	Dependents(ctx context.Context, repo, path string) ([]File, error)

	// RecursiveDependents returns every file reachable by following
	// IMPORTS edges backwards, one or more hops, from path. Results are
	// deduplicated (cycles are tolerated) and never include path itself.
	RecursiveDependents(ctx context.Context, repo, path string) ([]File, error)

	// FullGraph returns every node and edge for the repo.
	FullGraph(ctx context.Context, repo string) ([]File, []Edge, error)

	// EnsureConstraints runs the store's schema migration. Safe to call
	// repeatedly.
	EnsureConstraints(ctx context.Context) error

	// HealthCheck verifies the store's backing connection is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases the store's connection resources.
	Close(ctx context.Context) error
}
