// Command doraemon-ingester accepts authenticated job submissions from CI
// and publishes them to the analysis queue.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saqib40/doraemon/internal/config"
	"github.com/saqib40/doraemon/internal/ingest"
	"github.com/saqib40/doraemon/internal/logging"
	"github.com/saqib40/doraemon/internal/metrics"
	"github.com/saqib40/doraemon/internal/queue"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "doraemon-ingester: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	result := cfg.Validate(false, true, false, true)
	if result.HasErrors() {
		return fmt.Errorf("invalid configuration:\n%s", result.Error())
	}

	log, err := logging.New(logging.Production(""))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Close()

	ctx := context.Background()
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
	if err := q.EnsureGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	m := metrics.New()
	ingestServer := ingest.New(q, cfg.Ingester.Secret, log.Logger)

	mux := http.NewServeMux()
	mux.Handle("/", ingestServer)
	mux.Handle("/metrics", m.Handler())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Ports.Ingester),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("ingester listening", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
	}

	return nil
}
