package graph

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store used by tests and local development; it
// implements the same contract as Neo4jStore without a database dependency.
type MemoryStore struct {
	mu    sync.Mutex
	repos map[string]string // repo -> lastAnalyzedSha
	files map[string]map[string]File
	edges map[string]map[string]map[string]bool // repo -> from -> to -> true
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		repos: make(map[string]string),
		files: make(map[string]map[string]File),
		edges: make(map[string]map[string]map[string]bool),
	}
}

func (s *MemoryStore) RepoExists(_ context.Context, repo string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.repos[repo]; ok {
		return true, nil
	}
	_, ok := s.files[repo]
	return ok && len(s.files[repo]) > 0, nil
}

func (s *MemoryStore) GetLastAnalyzedSha(_ context.Context, repo string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sha, ok := s.repos[repo]
	return sha, ok, nil
}

func (s *MemoryStore) SetLastAnalyzedSha(_ context.Context, repo, sha string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repos[repo] = sha
	return nil
}

func (s *MemoryStore) UpsertFile(_ context.Context, repo, path, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureFileLocked(repo, path, name)
	return nil
}

func (s *MemoryStore) ensureFileLocked(repo, path, name string) {
	if s.files[repo] == nil {
		s.files[repo] = make(map[string]File)
	}
	f, ok := s.files[repo][path]
	if !ok {
		f = File{Repo: repo, Path: path}
	}
	f.Name = name
	s.files[repo][path] = f
}

func (s *MemoryStore) DeleteFile(_ context.Context, repo, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.files[repo], path)
	delete(s.edges[repo], path)
	for _, targets := range s.edges[repo] {
		delete(targets, path)
	}
	return nil
}

func (s *MemoryStore) UpsertEdge(_ context.Context, repo, fromPath, toPath, toName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureFileLocked(repo, toPath, toName)
	if _, ok := s.files[repo][fromPath]; !ok {
		s.ensureFileLocked(repo, fromPath, baseName(fromPath))
	}

	if s.edges[repo] == nil {
		s.edges[repo] = make(map[string]map[string]bool)
	}
	if s.edges[repo][fromPath] == nil {
		s.edges[repo][fromPath] = make(map[string]bool)
	}
	s.edges[repo][fromPath][toPath] = true
	return nil
}

func (s *MemoryStore) DeleteOutgoingEdges(_ context.Context, repo, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.edges[repo], path)
	return nil
}

func (s *MemoryStore) Dependencies(_ context.Context, repo, path string) ([]File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []File
	for to := range s.edges[repo][path] {
		if f, ok := s.files[repo][to]; ok {
			out = append(out, f)
		}
	}
	sortFiles(out)
	return out, nil
}

func (s *MemoryStore) Dependents(_ context.Context, repo, path string) ([]File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []File
	for from, targets := range s.edges[repo] {
		if targets[path] {
			if f, ok := s.files[repo][from]; ok {
				out = append(out, f)
			}
		}
	}
	sortFiles(out)
	return out, nil
}

// RecursiveDependents walks the reverse-adjacency of repo's import graph
// with a visited set, so a→b→a cycles terminate and each file appears once.
func (s *MemoryStore) RecursiveDependents(_ context.Context, repo, path string) ([]File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	visited := make(map[string]bool)
	queue := []string{path}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for from, targets := range s.edges[repo] {
			if !targets[cur] || visited[from] || from == path {
				continue
			}
			visited[from] = true
			queue = append(queue, from)
		}
	}

	out := make([]File, 0, len(visited))
	for p := range visited {
		if f, ok := s.files[repo][p]; ok {
			out = append(out, f)
		}
	}
	sortFiles(out)
	return out, nil
}

func (s *MemoryStore) FullGraph(_ context.Context, repo string) ([]File, []Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := make([]File, 0, len(s.files[repo]))
	for _, f := range s.files[repo] {
		files = append(files, f)
	}
	sortFiles(files)

	var edges []Edge
	for from, targets := range s.edges[repo] {
		for to := range targets {
			edges = append(edges, Edge{Repo: repo, From: from, To: to})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})

	return files, edges, nil
}

func (s *MemoryStore) EnsureConstraints(_ context.Context) error { return nil }
func (s *MemoryStore) HealthCheck(_ context.Context) error       { return nil }
func (s *MemoryStore) Close(_ context.Context) error             { return nil }

func sortFiles(files []File) {
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
}
