// Command doraemon-worker runs the long-lived Analyzer loop: pull a job
// from the analysis stream, reconcile the repo's import graph, publish the
// dispatch result, acknowledge.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saqib40/doraemon/internal/analyzer"
	"github.com/saqib40/doraemon/internal/config"
	"github.com/saqib40/doraemon/internal/extractor"
	"github.com/saqib40/doraemon/internal/graph"
	"github.com/saqib40/doraemon/internal/logging"
	"github.com/saqib40/doraemon/internal/metrics"
	"github.com/saqib40/doraemon/internal/queue"
	"github.com/saqib40/doraemon/internal/source"
	"github.com/saqib40/doraemon/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "doraemon-worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	result := cfg.Validate(false, true, true, false)
	if result.HasErrors() {
		return fmt.Errorf("invalid configuration:\n%s", result.Error())
	}

	log, err := logging.New(logging.Production(""))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Close()

	ctx := context.Background()

	store := graph.NewHTTPClient(cfg.GraphService.URL)
	m := metrics.New()
	store.Metrics = m

	mirror, err := source.NewMirror(cfg.Mirror.BaseDir)
	if err != nil {
		return fmt.Errorf("init mirror: %w", err)
	}
	provider := source.NewGitHubProvider(cfg.GitHub.Token, cfg.GitHub.RateLimitPerSec, mirror)

	q, err := queue.NewRedisQueue(ctx, queue.RedisQueueConfig{
		Addr:           cfg.Redis.Addr,
		Password:       cfg.Redis.Password,
		AnalysisStream: cfg.Queue.AnalysisStream,
		DispatchStream: cfg.Queue.DispatchStream,
		ConsumerGroup:  cfg.Queue.ConsumerGroup,
		ConsumerName:   cfg.Queue.ConsumerName,
		BlockTimeout:   cfg.Queue.BlockTimeout,
	}, log.Logger)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer q.Close()

	a := analyzer.New(store, provider, extractor.NewRegexExtractor(), cfg.Mirror.Parallelism, log.Logger)
	w := worker.New(a, q, log.Logger)
	w.Metrics = m
	w.GracePeriod = 10 * time.Second

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", m.Handler())
	metricsMux.HandleFunc("/health", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Ports.Metrics), Handler: metricsMux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", "error", err)
		}
	}()

	// runCtx only gates NextJob polling; cancelling it stops the worker
	// from picking up new jobs but, per Worker.GracePeriod, never
	// truncates a job already pulled off the queue.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("shutting down, in-flight job gets grace period", "signal", sig.String(), "grace_period", w.GracePeriod)
		cancel()
	}()

	log.Info("worker started", "consumer", cfg.Queue.ConsumerName)
	if err := w.Run(runCtx); err != nil {
		return fmt.Errorf("worker run: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)

	return nil
}
