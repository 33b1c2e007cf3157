package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileSet(paths ...string) func(string) bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return func(p string) bool { return set[p] }
}

func TestExtractResolvesRelativeImportWithExtension(t *testing.T) {
	e := NewRegexExtractor()
	contents := []byte(`import { b } from './b';`)

	result, err := e.Extract(context.Background(), "a.ts", contents, fileSet("b.ts"))
	require.NoError(t, err)
	require.Len(t, result.Edges, 1)
	assert.Equal(t, "b.ts", result.Edges[0].ToPath)
	assert.Equal(t, 0, result.Skipped)
}

func TestExtractResolvesIndexFile(t *testing.T) {
	e := NewRegexExtractor()
	contents := []byte(`import utils from './utils';`)

	result, err := e.Extract(context.Background(), "a.ts", contents, fileSet("utils/index.ts"))
	require.NoError(t, err)
	require.Len(t, result.Edges, 1)
	assert.Equal(t, "utils/index.ts", result.Edges[0].ToPath)
}

func TestExtractSkipsBarePackageSpecifier(t *testing.T) {
	e := NewRegexExtractor()
	contents := []byte(`import React from 'react';`)

	result, err := e.Extract(context.Background(), "a.ts", contents, fileSet())
	require.NoError(t, err)
	assert.Empty(t, result.Edges)
	assert.Equal(t, 0, result.Skipped)
}

func TestExtractCountsUnresolvableRelativeImportAsSkipped(t *testing.T) {
	e := NewRegexExtractor()
	contents := []byte(`import x from './missing';`)

	result, err := e.Extract(context.Background(), "a.ts", contents, fileSet())
	require.NoError(t, err)
	assert.Empty(t, result.Edges)
	assert.Equal(t, 1, result.Skipped)
}

func TestExtractHandlesRequireAndNestedPaths(t *testing.T) {
	e := NewRegexExtractor()
	contents := []byte(`const b = require('../lib/b');`)

	result, err := e.Extract(context.Background(), "src/a.ts", contents, fileSet("lib/b.ts"))
	require.NoError(t, err)
	require.Len(t, result.Edges, 1)
	assert.Equal(t, "lib/b.ts", result.Edges[0].ToPath)
}

func TestExtractHandlesMultipleImportsInOneFile(t *testing.T) {
	e := NewRegexExtractor()
	contents := []byte(`
import { b } from './b';
import { c } from './c';
import React from 'react';
`)

	result, err := e.Extract(context.Background(), "a.ts", contents, fileSet("b.ts", "c.ts"))
	require.NoError(t, err)
	assert.Len(t, result.Edges, 2)
}
