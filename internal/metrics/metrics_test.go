package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	m := New()
	m.ObserveJobTerminalState("success")
	m.ObserveGraphOp("upsert_file", 0.01)
	m.ObserveBlastRadius(3)
	m.IncPoisonMessage()
	m.SetQueuePendingDepth(2)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "doraemon_jobs_total"))
	assert.True(t, strings.Contains(body, "doraemon_poison_messages_total 1"))
	assert.True(t, strings.Contains(body, "doraemon_queue_pending_depth 2"))
}
