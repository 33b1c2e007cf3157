package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/saqib40/doraemon/internal/config"
	"github.com/saqib40/doraemon/internal/graph"
	"github.com/saqib40/doraemon/internal/queue"
)

var (
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
	bold  = color.New(color.Bold)
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check connectivity to the graph store and job queue",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadViper(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	bold.Println("doraemon status")
	fmt.Println("================")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fmt.Printf("\nGraphStore (%s):\n", cfg.Neo4j.URI)
	store, err := graph.NewNeo4jStore(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database)
	if err != nil {
		printFailure("connect", err)
	} else {
		defer store.Close(context.Background())
		if err := store.HealthCheck(ctx); err != nil {
			printFailure("health check", err)
		} else {
			printSuccess("reachable")
		}
	}

	fmt.Printf("\nJobQueue (%s):\n", cfg.Redis.Addr)
	q, err := queue.NewRedisQueue(ctx, queue.RedisQueueConfig{
		Addr:           cfg.Redis.Addr,
		Password:       cfg.Redis.Password,
		AnalysisStream: cfg.Queue.AnalysisStream,
		DispatchStream: cfg.Queue.DispatchStream,
		ConsumerGroup:  cfg.Queue.ConsumerGroup,
	}, nil)
	if err != nil {
		printFailure("connect", err)
	} else {
		defer q.Close()
		printSuccess("reachable")
		if err := q.EnsureGroup(ctx); err != nil {
			printFailure("pending-set depth", err)
		} else if depth, err := q.GroupPendingDepth(ctx); err != nil {
			printFailure("pending-set depth", err)
		} else {
			fmt.Printf("  pending-set depth: %d\n", depth)
		}
	}

	fmt.Printf("\nMirror cache directory: %s\n", cfg.Mirror.BaseDir)
	fmt.Printf("Mutation parallelism: %d\n", cfg.Mirror.Parallelism)

	return nil
}

func printSuccess(msg string) {
	_, _ = green.Println("  ✓ " + msg)
}

func printFailure(op string, err error) {
	_, _ = red.Printf("  ✗ %s failed: %v\n", op, err)
}
