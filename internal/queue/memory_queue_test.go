package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAndConsumeAnalysisJob(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	id, err := q.PublishAnalysis(ctx, AnalysisPayload{RepoURL: "https://github.com/acme/widget", Sha: "X", Event: "push"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	job, err := q.NextJob(ctx)
	require.NoError(t, err)
	require.True(t, job.Parsed)
	assert.Equal(t, "X", job.Payload.Sha)

	require.NoError(t, q.Ack(ctx, job.ID))
}

func TestRequeueSimulatesRedelivery(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	id, err := q.PublishAnalysis(ctx, AnalysisPayload{RepoURL: "https://github.com/acme/widget", Sha: "X"})
	require.NoError(t, err)

	job, err := q.NextJob(ctx)
	require.NoError(t, err)
	require.Equal(t, id, job.ID)

	q.Requeue(id)

	redelivered, err := q.NextJob(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, redelivered.ID)
}

func TestPublishDispatchRecordsResult(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	require.NoError(t, q.PublishDispatch(ctx, DispatchResult{
		RepoName: "acme/widget",
		Sha:      "X",
		Status:   StatusSuccess,
	}))

	results := q.Dispatched()
	require.Len(t, results, 1)
	assert.Equal(t, StatusSuccess, results[0].Status)
}
