package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("/nonexistent/.env")
	require.NoError(t, err)

	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, "neo4j", cfg.Neo4j.User)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "analysisStream", cfg.Queue.AnalysisStream)
	assert.Equal(t, "dispatchStream", cfg.Queue.DispatchStream)
	assert.Equal(t, 8, cfg.Mirror.Parallelism)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEO4J_URI", "bolt://db.internal:7687")
	t.Setenv("MUTATION_PARALLELISM", "16")

	cfg, err := Load("/nonexistent/.env")
	require.NoError(t, err)

	assert.Equal(t, "bolt://db.internal:7687", cfg.Neo4j.URI)
	assert.Equal(t, 16, cfg.Mirror.Parallelism)
}

func TestValidateReportsAllMissingFields(t *testing.T) {
	cfg := &Config{}
	result := cfg.Validate(true, true, true, true)

	require.True(t, result.HasErrors())
	assert.Greater(t, len(result.Errors), 3)
}

func TestValidatePassesWithCompleteConfig(t *testing.T) {
	cfg := &Config{
		Neo4j:  Neo4jConfig{URI: "bolt://x", User: "neo4j", Password: "secret"},
		Redis:  RedisConfig{Addr: "localhost:6379"},
		GitHub: GitHubConfig{Token: "tok", RateLimitPerSec: 10},		Queue: QueueConfig{
			AnalysisStream: "a",
			DispatchStream: "d",
			ConsumerGroup:  "g",
		},
		Ingester:     IngesterConfig{Secret: "shh"},
		GraphService: GraphServiceConfig{URL: "http://localhost:8081"},
		Mirror:       MirrorConfig{BaseDir: "/tmp/mirrors", Parallelism: 4},
	}

	result := cfg.Validate(true, true, true, true)
	assert.False(t, result.HasErrors())
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NEO4J_URI", "NEO4J_USER", "NEO4J_PASSWORD", "NEO4J_DATABASE",
		"REDIS_URL", "REDIS_PASSWORD", "GITHUB_TOKEN", "GITHUB_RATE_LIMIT",
		"INGESTER_SECRET", "GRAPH_SERVICE_URL", "ANALYSIS_STREAM", "DISPATCH_STREAM",
		"CONSUMER_GROUP", "WORKER_CONSUMER_NAME", "QUEUE_BLOCK_TIMEOUT",
		"MIRROR_BASE_DIR", "MUTATION_PARALLELISM", "INGESTER_PORT",
		"GRAPH_SERVICE_PORT", "METRICS_PORT",
	} {
		orig, had := os.LookupEnv(key)
		os.Unsetenv(key)
		if had {
			t.Cleanup(func() { os.Setenv(key, orig) })
		}
	}
}
