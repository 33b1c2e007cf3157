package source

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"
	"golang.org/x/time/rate"
)

// GitHubProvider implements Provider: LatestSha queries the GitHub API
// directly (rate-limited), while Fetch/Diff/Checkout/Walk/ReadFile delegate
// to a worker-local git Mirror.
type GitHubProvider struct {
	client      *github.Client
	rateLimiter *rate.Limiter
	mirror      *Mirror
}

// NewGitHubProvider builds a Provider authenticated with token (may be
// empty for unauthenticated, lower-rate-limit access), limiting API calls
// to ratePerSec requests per second, backed by mirror for git operations.
func NewGitHubProvider(token string, ratePerSec int, mirror *Mirror) *GitHubProvider {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &GitHubProvider{
		client:      client,
		rateLimiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
		mirror:      mirror,
	}
}

// LatestSha returns the HEAD commit of owner/name's default branch.
func (p *GitHubProvider) LatestSha(ctx context.Context, owner, name string) (string, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	repo, _, err := p.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return "", fmt.Errorf("fetch repository %s/%s: %w", owner, name, err)
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	branch, _, err := p.client.Repositories.GetBranch(ctx, owner, name, repo.GetDefaultBranch(), 0)
	if err != nil {
		return "", fmt.Errorf("fetch default branch %s for %s/%s: %w", repo.GetDefaultBranch(), owner, name, err)
	}

	return branch.GetCommit().GetSHA(), nil
}

func (p *GitHubProvider) Fetch(ctx context.Context, repoURL string) error {
	return p.mirror.Fetch(ctx, repoURL)
}

func (p *GitHubProvider) Diff(ctx context.Context, repoURL, oldSha, newSha string) ([]DiffEntry, error) {
	return p.mirror.Diff(ctx, repoURL, oldSha, newSha)
}

func (p *GitHubProvider) Checkout(ctx context.Context, repoURL, sha string) error {
	return p.mirror.Checkout(ctx, repoURL, sha)
}

func (p *GitHubProvider) Walk(ctx context.Context, repoURL string) ([]string, error) {
	return p.mirror.Walk(ctx, repoURL)
}

func (p *GitHubProvider) ReadFile(ctx context.Context, repoURL, path string) ([]byte, error) {
	return p.mirror.ReadFile(ctx, repoURL, path)
}

// DeepenAsync fire-and-forgets a full-history fetch for repoURL, reporting
// failures through onError rather than escalating them. The fetch is
// detached from ctx's cancellation: the job that triggered it completes
// (and its context dies) long before a full-history fetch finishes.
func (p *GitHubProvider) DeepenAsync(ctx context.Context, repoURL string, onError func(error)) {
	deepenCtx := context.WithoutCancel(ctx)
	go func() {
		if err := p.mirror.Deepen(deepenCtx, repoURL); err != nil && onError != nil {
			onError(err)
		}
	}()
}
