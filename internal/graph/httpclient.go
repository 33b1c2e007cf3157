package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/saqib40/doraemon/internal/metrics"
)

// HTTPClient implements Store by calling a remote graph-service process over
// the routes Server exposes. The Analyzer uses this so it never links the
// Neo4j driver directly.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client

	// Metrics records per-operation round-trip latency via ObserveGraphOp
	// when set. Nil disables recording.
	Metrics *metrics.Registry
}

// NewHTTPClient returns a Store client targeting baseURL (e.g.
// "http://graph-service:8081").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// do performs one round trip against the graph-service and records its
// latency under operation via ObserveGraphOp, so the HTTP transport's share
// of GraphStore op latency shows up on /metrics the same way the in-process
// Neo4jStore's does.
func (c *HTTPClient) do(ctx context.Context, operation, method, path string, body any, out any) (int, error) {
	start := time.Now()
	status, err := c.doRequest(ctx, method, path, body, out)
	if c.Metrics != nil {
		c.Metrics.ObserveGraphOp(operation, time.Since(start).Seconds())
	}
	return status, err
}

func (c *HTTPClient) doRequest(ctx context.Context, method, path string, body any, out any) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call graph-service %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("graph-service %s %s returned %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response from %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

func splitRepo(repo string) (owner, name string) {
	idx := -1
	for i := 0; i < len(repo); i++ {
		if repo[i] == '/' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return repo, ""
	}
	return repo[:idx], repo[idx+1:]
}

func (c *HTTPClient) RepoExists(ctx context.Context, repo string) (bool, error) {
	_, present, err := c.GetLastAnalyzedSha(ctx, repo)
	if err != nil || present {
		return present, err
	}
	files, _, err := c.FullGraph(ctx, repo)
	if err != nil {
		return false, err
	}
	return len(files) > 0, nil
}

func (c *HTTPClient) GetLastAnalyzedSha(ctx context.Context, repo string) (string, bool, error) {
	owner, name := splitRepo(repo)
	var out struct {
		LastAnalyzedSha string `json:"lastAnalyzedSha"`
	}
	status, err := c.do(ctx, "get_last_analyzed_sha", http.MethodGet, fmt.Sprintf("/repository/%s/%s/lastAnalyzedSha", owner, name), nil, &out)
	if status == http.StatusNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return out.LastAnalyzedSha, true, nil
}

func (c *HTTPClient) SetLastAnalyzedSha(ctx context.Context, repo, sha string) error {
	owner, name := splitRepo(repo)
	_, err := c.do(ctx, "set_last_analyzed_sha", http.MethodPut, fmt.Sprintf("/repository/%s/%s/lastAnalyzedSha", owner, name),
		map[string]string{"sha": sha}, nil)
	return err
}

func (c *HTTPClient) UpsertFile(ctx context.Context, repo, path, name string) error {
	_, err := c.do(ctx, "upsert_file", http.MethodPost, "/internal/files",
		upsertFileRequest{Repo: repo, Path: path, Name: name}, nil)
	return err
}

func (c *HTTPClient) DeleteFile(ctx context.Context, repo, path string) error {
	_, err := c.do(ctx, "delete_file", http.MethodDelete, "/internal/files",
		upsertFileRequest{Repo: repo, Path: path}, nil)
	return err
}

func (c *HTTPClient) UpsertEdge(ctx context.Context, repo, fromPath, toPath, toName string) error {
	_, err := c.do(ctx, "upsert_edge", http.MethodPost, "/internal/relationships",
		edgeRequest{Repo: repo, From: fromPath, To: toPath, ToName: toName}, nil)
	return err
}

func (c *HTTPClient) DeleteOutgoingEdges(ctx context.Context, repo, path string) error {
	_, err := c.do(ctx, "delete_outgoing_edges", http.MethodDelete, "/internal/relationships",
		edgeRequest{Repo: repo, From: path}, nil)
	return err
}

func (c *HTTPClient) queryFiles(ctx context.Context, repo, op, path string) ([]File, error) {
	owner, name := splitRepo(repo)
	u := fmt.Sprintf("/files/%s/%s/%s?filePath=%s", owner, name, op, url.QueryEscape(path))
	var out struct {
		Files []apiFile `json:"files"`
	}
	if _, err := c.do(ctx, op, http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	files := make([]File, len(out.Files))
	for i, f := range out.Files {
		files[i] = File{Repo: repo, Path: f.ID, Name: f.Name}
	}
	return files, nil
}

func (c *HTTPClient) Dependencies(ctx context.Context, repo, path string) ([]File, error) {
	return c.queryFiles(ctx, repo, "dependencies", path)
}

func (c *HTTPClient) Dependents(ctx context.Context, repo, path string) ([]File, error) {
	return c.queryFiles(ctx, repo, "dependents", path)
}

func (c *HTTPClient) RecursiveDependents(ctx context.Context, repo, path string) ([]File, error) {
	return c.queryFiles(ctx, repo, "recursive-dependents", path)
}

func (c *HTTPClient) FullGraph(ctx context.Context, repo string) ([]File, []Edge, error) {
	owner, name := splitRepo(repo)
	var out struct {
		Nodes []apiFile `json:"nodes"`
		Edges []apiEdge `json:"edges"`
	}
	if _, err := c.do(ctx, "full_graph", http.MethodGet, fmt.Sprintf("/graph/%s/%s", owner, name), nil, &out); err != nil {
		return nil, nil, err
	}
	files := make([]File, len(out.Nodes))
	for i, n := range out.Nodes {
		files[i] = File{Repo: repo, Path: n.ID, Name: n.Name}
	}
	edges := make([]Edge, len(out.Edges))
	for i, e := range out.Edges {
		edges[i] = Edge{Repo: repo, From: e.From, To: e.To}
	}
	return files, edges, nil
}

// EnsureConstraints is a no-op over the HTTP transport: schema migration is
// the graph-service process's own startup responsibility.
func (c *HTTPClient) EnsureConstraints(ctx context.Context) error { return nil }

func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	_, err := c.do(ctx, "health_check", http.MethodGet, "/health", nil, nil)
	return err
}

func (c *HTTPClient) Close(ctx context.Context) error { return nil }
