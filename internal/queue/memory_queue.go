package queue

import (
	"context"
	"fmt"
	"sync"
)

// MemoryQueue is an in-process Queue used by tests: a FIFO slice of jobs
// standing in for the analysis stream, plus a slice recording every
// dispatched result.
type MemoryQueue struct {
	mu         sync.Mutex
	jobs       []*Job
	pending    map[string]*Job
	dispatched []DispatchResult
	nextID     int
}

// NewMemoryQueue returns an empty MemoryQueue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{pending: make(map[string]*Job)}
}

func (q *MemoryQueue) EnsureGroup(_ context.Context) error { return nil }

func (q *MemoryQueue) PublishAnalysis(_ context.Context, payload AnalysisPayload) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextID++
	id := fmt.Sprintf("%d-0", q.nextID)
	q.jobs = append(q.jobs, &Job{ID: id, Payload: payload, Parsed: true})
	return id, nil
}

// NextJob returns the oldest undelivered job without blocking; callers in
// tests drive delivery synchronously rather than across goroutines.
func (q *MemoryQueue) NextJob(ctx context.Context) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return nil, context.DeadlineExceeded
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	q.pending[job.ID] = job
	return job, nil
}

func (q *MemoryQueue) Ack(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, id)
	return nil
}

func (q *MemoryQueue) PublishDispatch(_ context.Context, result DispatchResult) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dispatched = append(q.dispatched, result)
	return nil
}

// Dispatched returns every result published so far, for test assertions.
func (q *MemoryQueue) Dispatched() []DispatchResult {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]DispatchResult, len(q.dispatched))
	copy(out, q.dispatched)
	return out
}

// EnqueueRaw injects an undecodable message, simulating a poison payload
// a consumer could receive from a real broker.
func (q *MemoryQueue) EnqueueRaw(raw string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextID++
	id := fmt.Sprintf("%d-0", q.nextID)
	q.jobs = append(q.jobs, &Job{ID: id, Raw: raw, Parsed: false})
}

// Requeue puts a job back at the front as if it were never acknowledged,
// simulating an at-least-once redelivery.
func (q *MemoryQueue) Requeue(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if job, ok := q.pending[id]; ok {
		q.jobs = append([]*Job{job}, q.jobs...)
	}
}

// PendingDepth reports the number of delivered-but-unacknowledged jobs,
// satisfying PendingReporter the same way RedisQueue does.
func (q *MemoryQueue) PendingDepth(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.pending)), nil
}

func (q *MemoryQueue) Close() error { return nil }
