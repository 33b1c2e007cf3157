package ingest

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saqib40/doraemon/internal/queue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(secret string) (*Server, *queue.MemoryQueue) {
	q := queue.NewMemoryQueue()
	return New(q, secret, testLogger()), q
}

func doTrigger(t *testing.T, s *Server, authHeader string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/trigger", bytes.NewReader(raw))
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestTriggerRejectsMissingAuthHeader(t *testing.T) {
	s, _ := newTestServer("secret123")
	rec := doTrigger(t, s, "", map[string]any{"repoUrl": "acme/widgets", "sha": "abc"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTriggerRejectsWrongToken(t *testing.T) {
	s, _ := newTestServer("secret123")
	rec := doTrigger(t, s, "Bearer wrong", map[string]any{"repoUrl": "acme/widgets", "sha": "abc"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTriggerRejectsMissingFields(t *testing.T) {
	s, _ := newTestServer("secret123")
	rec := doTrigger(t, s, "Bearer secret123", map[string]any{"repoUrl": "acme/widgets"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerRejectsMissingEvent(t *testing.T) {
	s, _ := newTestServer("secret123")
	rec := doTrigger(t, s, "Bearer secret123", map[string]any{"repoUrl": "acme/widgets", "sha": "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerPublishesJobAndReturns202(t *testing.T) {
	s, q := newTestServer("secret123")
	rec := doTrigger(t, s, "Bearer secret123", map[string]any{"repoUrl": "acme/widgets", "sha": "abc", "event": "push"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp triggerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.JobID)

	job, err := q.NextJob(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "acme/widgets", job.Payload.RepoURL)
	assert.Equal(t, "abc", job.Payload.Sha)
}

func TestTriggerWithEmptySecretSkipsAuth(t *testing.T) {
	s, _ := newTestServer("")
	rec := doTrigger(t, s, "", map[string]any{"repoUrl": "acme/widgets", "sha": "abc", "event": "push"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestHealthReturns200(t *testing.T) {
	s, _ := newTestServer("secret123")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
