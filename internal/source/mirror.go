package source

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// Mirror manages worker-local shallow clones, one directory per repo, keyed
// by a hash of the normalized repo URL so the same repo always resolves to
// the same directory across jobs on this worker.
type Mirror struct {
	baseDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMirror returns a Mirror rooted at baseDir, creating it if necessary.
func NewMirror(baseDir string) (*Mirror, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create mirror base dir %s: %w", baseDir, err)
	}
	return &Mirror{baseDir: baseDir, locks: make(map[string]*sync.Mutex)}, nil
}

// repoLock returns a mutex scoped to a single repo's mirror directory, so
// two jobs for the same repo landing on this worker never race on the
// filesystem.
func (m *Mirror) repoLock(repoURL string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[repoURL]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[repoURL] = lock
	}
	return lock
}

func (m *Mirror) dirFor(repoURL string) string {
	normalized := strings.TrimSuffix(strings.TrimSpace(repoURL), ".git")
	normalized = strings.TrimSuffix(normalized, "/")
	sum := sha256.Sum256([]byte(normalized))
	return filepath.Join(m.baseDir, fmt.Sprintf("%x", sum)[:16])
}

func (m *Mirror) isCloned(repoURL string) bool {
	info, err := os.Stat(filepath.Join(m.dirFor(repoURL), ".git"))
	return err == nil && info.IsDir()
}

// Fetch clones repoURL (shallow, depth 1) on first use, or runs `git fetch`
// against the existing mirror otherwise.
func (m *Mirror) Fetch(ctx context.Context, repoURL string) error {
	lock := m.repoLock(repoURL)
	lock.Lock()
	defer lock.Unlock()

	dir := m.dirFor(repoURL)
	if !m.isCloned(repoURL) {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("clear stale mirror dir %s: %w", dir, err)
		}
		if err := runGit(ctx, "", "clone", "--depth", "1", "--no-single-branch", repoURL, dir); err != nil {
			return fmt.Errorf("clone %s: %w", repoURL, err)
		}
		return nil
	}

	if err := runGit(ctx, dir, "fetch", "--depth", "1000", "origin"); err != nil {
		return fmt.Errorf("fetch %s: %w", repoURL, err)
	}
	return nil
}

// Deepen fetches full history for a mirror that was shallow-cloned during a
// full analysis. Fire-and-forget: callers log failures rather than
// escalating them.
func (m *Mirror) Deepen(ctx context.Context, repoURL string) error {
	lock := m.repoLock(repoURL)
	lock.Lock()
	defer lock.Unlock()

	dir := m.dirFor(repoURL)
	return runGit(ctx, dir, "fetch", "--unshallow", "origin")
}

// Diff returns the file-level changes between oldSha and newSha, mapping
// rename (R) and copy (C) statuses to a delete-of-old plus add-of-new pair
// when the new path is known, or to a plain modify otherwise.
func (m *Mirror) Diff(ctx context.Context, repoURL, oldSha, newSha string) ([]DiffEntry, error) {
	dir := m.dirFor(repoURL)
	out, err := runGitOutput(ctx, dir, "diff", "--name-status", oldSha, newSha)
	if err != nil {
		return nil, fmt.Errorf("diff %s %s..%s: %w", repoURL, oldSha, newSha, err)
	}
	return parseNameStatus(out), nil
}

func parseNameStatus(output string) []DiffEntry {
	var entries []DiffEntry
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		code := fields[0][:1]

		switch DiffStatus(code) {
		case DiffRenamed, DiffCopied:
			if len(fields) >= 3 {
				entries = append(entries,
					DiffEntry{Status: DiffDeleted, Path: fields[1]},
					DiffEntry{Status: DiffAdded, Path: fields[2]},
				)
			} else {
				entries = append(entries, DiffEntry{Status: DiffModified, Path: fields[1]})
			}
		default:
			entries = append(entries, DiffEntry{Status: DiffStatus(code), Path: fields[1]})
		}
	}
	return entries
}

// Checkout switches repoURL's mirror working tree to sha.
func (m *Mirror) Checkout(ctx context.Context, repoURL, sha string) error {
	dir := m.dirFor(repoURL)
	if err := runGit(ctx, dir, "checkout", sha); err != nil {
		return fmt.Errorf("checkout %s at %s: %w", repoURL, sha, err)
	}
	return nil
}

var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "dist": true, "build": true,
	"out": true, "coverage": true, ".next": true, ".nuxt": true,
	".cache": true, ".turbo": true,
}

var sourceExtensions = map[string]bool{
	".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".mjs": true, ".cjs": true,
}

// Walk lists every JS/TS source file path, relative to the repo root.
func (m *Mirror) Walk(ctx context.Context, repoURL string) ([]string, error) {
	dir := m.dirFor(repoURL)
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if sourceExtensions[filepath.Ext(path)] {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", repoURL, err)
	}
	return files, nil
}

// ReadFile returns the contents of path within repoURL's mirror.
func (m *Mirror) ReadFile(ctx context.Context, repoURL, path string) ([]byte, error) {
	dir := m.dirFor(repoURL)
	data, err := os.ReadFile(filepath.Join(dir, path))
	if err != nil {
		return nil, fmt.Errorf("read %s in %s: %w", path, repoURL, err)
	}
	return data, nil
}

func runGit(ctx context.Context, dir string, args ...string) error {
	_, err := runGitOutput(ctx, dir, args...)
	return err
}

func runGitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}
