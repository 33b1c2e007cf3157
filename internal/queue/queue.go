// Package queue implements the reliable work-distribution contract: an
// analysis stream carrying inbound jobs and a dispatch stream carrying
// results, with at-least-once delivery and explicit acknowledgement.
package queue

import (
	"context"
	"time"
)

// AnalysisPayload is the inbound job record carried on the analysis stream.
type AnalysisPayload struct {
	RepoURL    string    `json:"repoUrl"`
	Sha        string    `json:"sha"`
	Event      string    `json:"event"`
	PRNumber   *int      `json:"prNumber"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// DispatchStatus is the terminal outcome reported on the dispatch stream.
type DispatchStatus string

const (
	StatusSuccess  DispatchStatus = "success"
	StatusNoChange DispatchStatus = "no-change"
	StatusFailure  DispatchStatus = "failure"
)

// DispatchResult is the outbound record carried on the dispatch stream.
type DispatchResult struct {
	RepoName      string         `json:"repoName"`
	Sha           string         `json:"sha"`
	Status        DispatchStatus `json:"status"`
	AffectedFiles []string       `json:"affectedFiles"`
	Error         string         `json:"error,omitempty"`
}

// Job is a delivered analysis message: its queue-assigned ID and payload.
// Raw holds the undecoded message body so a poison payload can still be
// acknowledged even when Payload failed to parse.
type Job struct {
	ID      string
	Payload AnalysisPayload
	Raw     string
	Parsed  bool
}

// Queue is the reliable work-distribution contract.
type Queue interface {
	// PublishAnalysis appends a job to the analysis stream and returns its
	// assigned message ID.
	PublishAnalysis(ctx context.Context, payload AnalysisPayload) (string, error)

	// NextJob blocks until a new message is delivered to this consumer.
	// The message stays in the pending set until Ack is called.
	NextJob(ctx context.Context) (*Job, error)

	// Ack removes id from this consumer's pending set.
	Ack(ctx context.Context, id string) error

	// PublishDispatch appends a result to the dispatch stream.
	PublishDispatch(ctx context.Context, result DispatchResult) error

	// EnsureGroup creates the consumer group (and the stream, if absent).
	// Idempotent: an "already exists" error is swallowed.
	EnsureGroup(ctx context.Context) error

	// Close releases the queue client's connection resources.
	Close() error
}

// PendingReporter is implemented by Queue backends that can report the
// current size of this consumer's pending entries list (delivered but not
// yet acknowledged). Not every backend needs it to satisfy Queue itself;
// the worker's metrics loop type-asserts for it. `doraemon status` does not
// use it: it reads RedisQueue.GroupPendingDepth, the group-wide total.
type PendingReporter interface {
	PendingDepth(ctx context.Context) (int64, error)
}
