package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/saqib40/doraemon/internal/config"
	"github.com/saqib40/doraemon/internal/queue"
)

var replayCmd = &cobra.Command{
	Use:   "replay <job-id>",
	Short: "Re-publish a stuck analysis job and acknowledge the original",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadViper(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	q, err := queue.NewRedisQueue(ctx, queue.RedisQueueConfig{
		Addr:           cfg.Redis.Addr,
		Password:       cfg.Redis.Password,
		AnalysisStream: cfg.Queue.AnalysisStream,
		DispatchStream: cfg.Queue.DispatchStream,
		ConsumerGroup:  cfg.Queue.ConsumerGroup,
	}, nil)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer q.Close()

	newID, err := q.ReplayJob(ctx, args[0])
	if err != nil {
		return fmt.Errorf("replay job %s: %w", args[0], err)
	}

	green.Printf("✓ replayed %s as %s\n", args[0], newID)
	return nil
}
