// Package extractor resolves a source file's import statements to other
// in-repo file paths, the input the Analyzer feeds into GraphStore.UpsertEdge.
package extractor

import "context"

// ImportEdge is one resolved import: fromPath imports toPath.
type ImportEdge struct {
	ToPath string
	ToName string
}

// Extractor resolves the imports of one file's contents to in-repo paths.
// A specifier that cannot be resolved to a file under the repo root is
// skipped, not an error: extraction always returns whatever it could
// resolve plus the count of specifiers it had to skip.
type Extractor interface {
	Extract(ctx context.Context, path string, contents []byte, exists func(path string) bool) (Result, error)
}

// Result is the outcome of extracting one file's imports.
type Result struct {
	Edges   []ImportEdge
	Skipped int
}
