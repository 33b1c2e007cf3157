package source

import (
	"context"
	"fmt"
)

// FakeProvider is an in-memory Provider for tests: each repo is a sequence
// of named snapshots (sha -> file contents), with Diff computed by
// comparing two snapshots directly rather than shelling out to git.
type FakeProvider struct {
	Snapshots  map[string]map[string]map[string]string // repoURL -> sha -> path -> contents
	latestSha  map[string]string                       // repoURL -> latest sha
	checkedOut map[string]string                       // repoURL -> current sha
}

// NewFakeProvider returns an empty FakeProvider.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		Snapshots:  make(map[string]map[string]map[string]string),
		latestSha:  make(map[string]string),
		checkedOut: make(map[string]string),
	}
}

// AddSnapshot registers the file contents for repoURL at sha and marks sha
// as the repo's latest commit.
func (f *FakeProvider) AddSnapshot(repoURL, sha string, files map[string]string) {
	if f.Snapshots[repoURL] == nil {
		f.Snapshots[repoURL] = make(map[string]map[string]string)
	}
	f.Snapshots[repoURL][sha] = files
	f.latestSha[repoURL] = sha
}

func (f *FakeProvider) LatestSha(_ context.Context, owner, name string) (string, error) {
	repoURL := BuildGitHubURL(owner, name)
	sha, ok := f.latestSha[repoURL]
	if !ok {
		return "", fmt.Errorf("no snapshots registered for %s", repoURL)
	}
	return sha, nil
}

func (f *FakeProvider) Fetch(_ context.Context, repoURL string) error {
	if _, ok := f.Snapshots[repoURL]; !ok {
		return fmt.Errorf("unknown repo %s", repoURL)
	}
	return nil
}

func (f *FakeProvider) Diff(_ context.Context, repoURL, oldSha, newSha string) ([]DiffEntry, error) {
	oldFiles := f.Snapshots[repoURL][oldSha]
	newFiles := f.Snapshots[repoURL][newSha]

	var entries []DiffEntry
	for path := range oldFiles {
		if _, ok := newFiles[path]; !ok {
			entries = append(entries, DiffEntry{Status: DiffDeleted, Path: path})
		}
	}
	for path, content := range newFiles {
		old, existed := oldFiles[path]
		switch {
		case !existed:
			entries = append(entries, DiffEntry{Status: DiffAdded, Path: path})
		case old != content:
			entries = append(entries, DiffEntry{Status: DiffModified, Path: path})
		}
	}
	return entries, nil
}

func (f *FakeProvider) Checkout(_ context.Context, repoURL, sha string) error {
	if _, ok := f.Snapshots[repoURL][sha]; !ok {
		return fmt.Errorf("unknown sha %s for %s", sha, repoURL)
	}
	f.checkedOut[repoURL] = sha
	return nil
}

func (f *FakeProvider) Walk(_ context.Context, repoURL string) ([]string, error) {
	sha := f.checkedOut[repoURL]
	files := f.Snapshots[repoURL][sha]
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	return paths, nil
}

func (f *FakeProvider) ReadFile(_ context.Context, repoURL, path string) ([]byte, error) {
	sha := f.checkedOut[repoURL]
	content, ok := f.Snapshots[repoURL][sha][path]
	if !ok {
		return nil, fmt.Errorf("file %s not found at %s@%s", path, repoURL, sha)
	}
	return []byte(content), nil
}
