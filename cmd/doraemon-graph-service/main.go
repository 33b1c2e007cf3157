// Command doraemon-graph-service serves the GraphStore contract over HTTP,
// backed by Neo4j.
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
	"github.com/saqib40/doraemon/internal/graph"
	"github.com/saqib40/doraemon/internal/logging"
	"github.com/saqib40/doraemon/internal/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "doraemon-graph-service: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	result := cfg.Validate(true, false, false, false)
	if result.HasErrors() {
		return fmt.Errorf("invalid configuration:\n%s", result.Error())
	}

	log, err := logging.New(logging.Production(""))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := graph.NewNeo4jStore(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database)
	cancel()
	if err != nil {
		return fmt.Errorf("connect to neo4j: %w", err)
	}
	defer store.Close(context.Background())

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.EnsureConstraints(migrateCtx); err != nil {
		migrateCancel()
		return fmt.Errorf("ensure constraints: %w", err)
	}
	migrateCancel()

	m := metrics.New()
	store.Metrics = m
	server := graph.NewServer(store, log.Logger)

	mux := http.NewServeMux()
	mux.Handle("/", server)
	mux.Handle("/metrics", m.Handler())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Ports.GraphService),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("graph-service listening", "addr", httpServer.Addr)
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
