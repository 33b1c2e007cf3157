// Package worker runs the long-lived Analyzer loop: pull a job, reconcile
// it, publish the dispatch result, acknowledge, repeat until shutdown.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/saqib40/doraemon/internal/analyzer"
	"github.com/saqib40/doraemon/internal/metrics"
	"github.com/saqib40/doraemon/internal/queue"
)

// Worker drains AnalysisPayload jobs from a Queue through an Analyzer.
type Worker struct {
	Analyzer *analyzer.Analyzer
	Queue    queue.Queue
	Logger   *slog.Logger
	Metrics  *metrics.Registry

	// IdleBackoff is how long Run sleeps after a NextJob call returns no
	// job before polling again. Defaults to 1s.
	IdleBackoff time.Duration

	// GracePeriod bounds how long an in-flight job's Reconcile/publish/ack
	// sequence is allowed to run after shutdown begins. It is applied to
	// every job unconditionally (via a context derived from
	// context.Background(), not from Run's ctx), so the job in flight when
	// SIGINT/SIGTERM arrives is never cancelled mid-Store/Provider/Queue
	// call just because polling stopped. Defaults to 10s.
	GracePeriod time.Duration
}

// New builds a Worker. logger may be nil to use slog.Default(); metrics may
// be nil to disable metric recording.
func New(a *analyzer.Analyzer, q queue.Queue, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{Analyzer: a, Queue: q, Logger: logger, IdleBackoff: time.Second, GracePeriod: 10 * time.Second}
}

// Run processes jobs until ctx is cancelled. It returns nil on a clean
// context-cancellation shutdown; any other NextJob error is returned to
// the caller to decide whether the process should exit non-zero. ctx only
// governs NextJob polling — a job already pulled off the queue runs to
// completion (or GracePeriod expiry) on its own detached context, never
// truncated by ctx's cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.Queue.EnsureGroup(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		job, err := w.Queue.NextJob(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, context.DeadlineExceeded) {
				w.refreshPendingDepth(ctx)
				w.sleep(ctx, w.IdleBackoff)
				continue
			}
			w.Logger.Error("next job failed", "error", err)
			w.sleep(ctx, w.IdleBackoff)
			continue
		}
		if job == nil {
			w.refreshPendingDepth(ctx)
			w.sleep(ctx, w.IdleBackoff)
			continue
		}

		w.refreshPendingDepth(ctx)
		w.runJobWithGracePeriod(job)
	}
}

// refreshPendingDepth updates the queue-pending-depth gauge from the
// backend's own pending-entries accounting, when both a Metrics registry
// and a queue.PendingReporter are available. Errors are logged, not
// escalated — a stale gauge reading is not a job failure.
func (w *Worker) refreshPendingDepth(ctx context.Context) {
	if w.Metrics == nil {
		return
	}
	reporter, ok := w.Queue.(queue.PendingReporter)
	if !ok {
		return
	}
	depth, err := reporter.PendingDepth(ctx)
	if err != nil {
		w.Logger.Warn("pending depth query failed", "error", err)
		return
	}
	w.Metrics.SetQueuePendingDepth(float64(depth))
}

// runJobWithGracePeriod processes job against a fresh context bounded by
// GracePeriod instead of Run's ctx, so a shutdown signal received mid-job
// gives the Store/Provider/Queue calls already in flight up to GracePeriod
// to finish and acknowledge rather than being cancelled outright.
func (w *Worker) runJobWithGracePeriod(job *queue.Job) {
	jobCtx, cancel := context.WithTimeout(context.Background(), w.GracePeriod)
	defer cancel()
	w.processJob(jobCtx, job)
}

func (w *Worker) processJob(ctx context.Context, job *queue.Job) {
	log := w.Logger.With("job_id", job.ID)

	if !job.Parsed {
		// Poison payload: cannot be decoded into an AnalysisPayload. Ack it
		// to drop it from the pending set rather than retrying forever.
		log.Warn("dropping poison job payload", "raw", job.Raw)
		if w.Metrics != nil {
			w.Metrics.IncPoisonMessage()
		}
		if err := w.Queue.Ack(ctx, job.ID); err != nil {
			log.Error("ack poison job failed", "error", err)
		}
		return
	}

	result := w.Analyzer.Reconcile(ctx, job.Payload)
	if w.Metrics != nil {
		w.Metrics.ObserveJobTerminalState(string(result.Status))
		w.Metrics.ObserveBlastRadius(len(result.AffectedFiles))
	}

	if err := w.Queue.PublishDispatch(ctx, result); err != nil {
		log.Error("publish dispatch result failed", "error", err, "status", result.Status)
		// Do not ack: at-least-once delivery means this job is retried by
		// another NextJob call (this worker's or another's) once its
		// pending entry is reclaimed.
		return
	}

	if err := w.Queue.Ack(ctx, job.ID); err != nil {
		log.Error("ack job failed", "error", err)
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
