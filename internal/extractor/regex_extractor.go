package extractor

import (
	"context"
	"path"
	"regexp"
	"strings"
)

// importRe matches ES module imports/exports and CommonJS requires:
//
//	import x from '...'        export x from '...'
//	import '...'                require('...')
var importRe = regexp.MustCompile(
	`(?:import|export)(?:[^'"]*?from\s*)?['"]([^'"]+)['"]|require\(\s*['"]([^'"]+)['"]\s*\)`,
)

var resolveExtensions = []string{"", ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}
var indexBasenames = []string{"index.ts", "index.tsx", "index.js", "index.jsx"}

// RegexExtractor is the default Extractor: it does not parse an AST, it
// regex-matches import/export/require specifiers and resolves relative
// ones ("./foo", "../bar") against the repo's known file set. Bare package
// specifiers (anything not starting with "." or "/") are outside the repo
// root and are skipped, not counted as an error.
type RegexExtractor struct{}

// NewRegexExtractor returns a RegexExtractor.
func NewRegexExtractor() *RegexExtractor { return &RegexExtractor{} }

func (e *RegexExtractor) Extract(_ context.Context, filePath string, contents []byte, exists func(string) bool) (Result, error) {
	var result Result
	dir := path.Dir(filePath)

	for _, match := range importRe.FindAllStringSubmatch(string(contents), -1) {
		specifier := match[1]
		if specifier == "" {
			specifier = match[2]
		}
		if specifier == "" {
			continue
		}

		if !strings.HasPrefix(specifier, ".") && !strings.HasPrefix(specifier, "/") {
			// Bare package specifier: outside the repo root, nothing to
			// resolve.
			continue
		}

		resolved, ok := resolve(dir, specifier, exists)
		if !ok {
			result.Skipped++
			continue
		}
		result.Edges = append(result.Edges, ImportEdge{ToPath: resolved, ToName: path.Base(resolved)})
	}

	return result, nil
}

// resolve joins a relative specifier against dir and tries each known
// source extension, then each index-file basename if the joined path is a
// directory-like specifier, returning the first candidate exists reports
// as present.
func resolve(dir, specifier string, exists func(string) bool) (string, bool) {
	joined := path.Clean(path.Join(dir, specifier))

	for _, ext := range resolveExtensions {
		candidate := joined + ext
		if exists(candidate) {
			return candidate, true
		}
	}
	for _, base := range indexBasenames {
		candidate := path.Join(joined, base)
		if exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}
