package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const payloadField = "payload"

// RedisQueue implements Queue over Redis Streams: analysisStream carries
// inbound jobs via a consumer group, dispatchStream carries results.
type RedisQueue struct {
	client *redis.Client
	logger *slog.Logger

	analysisStream string
	dispatchStream string
	group          string
	consumer       string
	blockTimeout   time.Duration
}

// RedisQueueConfig configures a RedisQueue.
type RedisQueueConfig struct {
	Addr           string
	Password       string
	AnalysisStream string
	DispatchStream string
	ConsumerGroup  string
	ConsumerName   string
	BlockTimeout   time.Duration
}

// NewRedisQueue connects to cfg.Addr and verifies connectivity before
// returning.
func NewRedisQueue(ctx context.Context, cfg RedisQueueConfig, logger *slog.Logger) (*RedisQueue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ConsumerName == "" {
		cfg.ConsumerName = defaultConsumerName()
	}
	if cfg.BlockTimeout == 0 {
		cfg.BlockTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisQueue{
		client:         client,
		logger:         logger.With("component", "queue"),
		analysisStream: cfg.AnalysisStream,
		dispatchStream: cfg.DispatchStream,
		group:          cfg.ConsumerGroup,
		consumer:       cfg.ConsumerName,
		blockTimeout:   cfg.BlockTimeout,
	}, nil
}

func defaultConsumerName() string {
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return fmt.Sprintf("%s:%d", host, os.Getpid())
}

// EnsureGroup creates the consumer group (and analysisStream itself, via
// MKSTREAM) if it does not already exist. The "BUSYGROUP" error on a repeat
// call is swallowed.
func (q *RedisQueue) EnsureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.analysisStream, q.group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s on %s: %w", q.group, q.analysisStream, err)
	}
	return nil
}

func (q *RedisQueue) PublishAnalysis(ctx context.Context, payload AnalysisPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode analysis payload: %w", err)
	}

	id, err := q.withBackoff(ctx, func() (string, error) {
		return q.client.XAdd(ctx, &redis.XAddArgs{
			Stream: q.analysisStream,
			Values: map[string]any{payloadField: data},
		}).Result()
	})
	if err != nil {
		return "", fmt.Errorf("publish analysis job: %w", err)
	}
	return id, nil
}

func (q *RedisQueue) PublishDispatch(ctx context.Context, result DispatchResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode dispatch result: %w", err)
	}

	_, err = q.withBackoff(ctx, func() (string, error) {
		return q.client.XAdd(ctx, &redis.XAddArgs{
			Stream: q.dispatchStream,
			Values: map[string]any{payloadField: data},
		}).Result()
	})
	if err != nil {
		return fmt.Errorf("publish dispatch result: %w", err)
	}
	return nil
}

// NextJob blocks until a new message is delivered to this consumer or ctx
// ends, polling XReadGroup with the ">" ID (each call blocks up to
// blockTimeout). Read errors are retried with exponential backoff starting
// at 50ms, doubling, capped at 5s, with jitter. A message that fails to decode
// is returned with Parsed=false so the caller can still Ack it (poison-pill
// drop policy) instead of retrying forever.
func (q *RedisQueue) NextJob(ctx context.Context) (*Job, error) {
	delay := 50 * time.Millisecond
	const maxDelay = 5 * time.Second

	for {
		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: q.consumer,
			Streams:  []string{q.analysisStream, ">"},
			Count:    1,
			Block:    q.blockTimeout,
		}).Result()

		if errors.Is(err, redis.Nil) {
			delay = 50 * time.Millisecond
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			q.logger.Warn("queue read failed, backing off", "error", err, "delay", delay)
			if !sleepBackoff(ctx, delay) {
				return nil, ctx.Err()
			}
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				return q.decodeJob(msg), nil
			}
		}
	}
}

func (q *RedisQueue) decodeJob(msg redis.XMessage) *Job {
	raw, _ := msg.Values[payloadField].(string)
	job := &Job{ID: msg.ID, Raw: raw}

	var payload AnalysisPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		q.logger.Warn("dropping unparseable job payload", "id", msg.ID, "error", err)
		return job
	}
	job.Payload = payload
	job.Parsed = true
	return job
}

func (q *RedisQueue) Ack(ctx context.Context, id string) error {
	if err := q.client.XAck(ctx, q.analysisStream, q.group, id).Err(); err != nil {
		q.logger.Warn("ack failed, will not retry", "id", id, "error", err)
		return nil
	}
	return nil
}

// PendingDepth reports the number of messages currently in this consumer's
// pending entries list via XPENDING's summary form, satisfying
// queue.PendingReporter.
func (q *RedisQueue) PendingDepth(ctx context.Context) (int64, error) {
	summary, err := q.client.XPending(ctx, q.analysisStream, q.group).Result()
	if err != nil {
		return 0, fmt.Errorf("xpending summary: %w", err)
	}
	if count, ok := summary.Consumers[q.consumer]; ok {
		return count, nil
	}
	return 0, nil
}

// GroupPendingDepth reports the total number of delivered-but-unacknowledged
// messages across every consumer in the group, for operator-facing
// inspection (`doraemon status`) where a single CLI invocation's own
// per-consumer count would be meaningless.
func (q *RedisQueue) GroupPendingDepth(ctx context.Context) (int64, error) {
	summary, err := q.client.XPending(ctx, q.analysisStream, q.group).Result()
	if err != nil {
		return 0, fmt.Errorf("xpending summary: %w", err)
	}
	return summary.Count, nil
}

// ClaimStale reclaims messages idle for at least minIdleTime in this
// consumer group, handing them to this consumer. Not required by the
// core's correctness argument (at-least-once already covers crashed
// consumers) but lets an operator recover a dead consumer's pending set.
func (q *RedisQueue) ClaimStale(ctx context.Context, minIdleTime time.Duration) ([]string, error) {
	messages, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.analysisStream,
		Group:    q.group,
		Consumer: q.consumer,
		MinIdle:  minIdleTime,
		Start:    "0-0",
		Count:    100,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("claim stale messages: %w", err)
	}
	ids := make([]string, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	return ids, nil
}

// ReplayJob re-publishes the payload of jobID as a fresh analysis message
// and acknowledges the original, for an operator recovering a job stuck in
// a dead consumer's pending set. Returns the new message ID.
func (q *RedisQueue) ReplayJob(ctx context.Context, jobID string) (string, error) {
	messages, err := q.client.XRange(ctx, q.analysisStream, jobID, jobID).Result()
	if err != nil {
		return "", fmt.Errorf("look up job %s: %w", jobID, err)
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("job %s not found on %s", jobID, q.analysisStream)
	}

	job := q.decodeJob(messages[0])
	if !job.Parsed {
		return "", fmt.Errorf("job %s has an unparseable payload, cannot replay", jobID)
	}

	newID, err := q.PublishAnalysis(ctx, job.Payload)
	if err != nil {
		return "", fmt.Errorf("republish job %s: %w", jobID, err)
	}
	if err := q.Ack(ctx, jobID); err != nil {
		q.logger.Warn("ack of replayed job failed", "id", jobID, "error", err)
	}
	return newID, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// withBackoff retries fn on transport error with exponential backoff
// starting at 50ms, doubling, capped at 5s, with jitter.
func (q *RedisQueue) withBackoff(ctx context.Context, fn func() (string, error)) (string, error) {
	delay := 50 * time.Millisecond
	const maxDelay = 5 * time.Second

	for attempt := 0; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if attempt >= 5 {
			return "", err
		}
		q.logger.Warn("transport error, retrying", "attempt", attempt, "error", err)
		if !sleepBackoff(ctx, delay) {
			return "", ctx.Err()
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

func sleepBackoff(ctx context.Context, base time.Duration) bool {
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	select {
	case <-time.After(base + jitter):
		return true
	case <-ctx.Done():
		return false
	}
}
