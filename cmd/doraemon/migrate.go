package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/saqib40/doraemon/internal/config"
	"github.com/saqib40/doraemon/internal/graph"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run the GraphStore schema migration (constraint creation)",
	Long:  `Drops any legacy single-property constraint on File.id and creates the composite (id, repo) constraint, plus the Repository.name uniqueness constraint. Safe to run repeatedly.`,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadViper(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := graph.NewNeo4jStore(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database)
	if err != nil {
		return fmt.Errorf("connect to neo4j: %w", err)
	}
	defer store.Close(context.Background())

	if err := store.EnsureConstraints(ctx); err != nil {
		return fmt.Errorf("ensure constraints: %w", err)
	}

	green.Println("✓ constraints up to date")
	return nil
}
