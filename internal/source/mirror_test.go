package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNameStatusMapsRenameToDeleteAndAdd(t *testing.T) {
	entries := parseNameStatus("R100\told.ts\tnew.ts\n")
	assert := assert.New(t)
	if assert.Len(entries, 2) {
		assert.Equal(DiffEntry{Status: DiffDeleted, Path: "old.ts"}, entries[0])
		assert.Equal(DiffEntry{Status: DiffAdded, Path: "new.ts"}, entries[1])
	}
}

func TestParseNameStatusBasicCodes(t *testing.T) {
	entries := parseNameStatus("A\tc.ts\nM\ta.ts\nD\tb.ts\n")
	assert.Equal(t, []DiffEntry{
		{Status: DiffAdded, Path: "c.ts"},
		{Status: DiffModified, Path: "a.ts"},
		{Status: DiffDeleted, Path: "b.ts"},
	}, entries)
}

func TestParseNameStatusCopyWithoutNewPathFallsBackToModify(t *testing.T) {
	entries := parseNameStatus("C100\tfile.ts\n")
	if assert.Len(t, entries, 1) {
		assert.Equal(t, DiffModified, entries[0].Status)
		assert.Equal(t, "file.ts", entries[0].Path)
	}
}

func TestDirForIsStableAcrossURLVariants(t *testing.T) {
	m := &Mirror{baseDir: "/tmp/mirrors"}
	a := m.dirFor("https://github.com/acme/widget")
	b := m.dirFor("https://github.com/acme/widget.git")
	c := m.dirFor("https://github.com/acme/widget/")
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
}
