package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadViper builds a Config the same way Load does, but through viper so the
// operator CLI can also layer a YAML config file (doraemon.yaml, searched in
// the working directory and $HOME/.doraemon) underneath the process
// environment. envFile, if non-empty, still takes precedence as a .env file
// loaded first, matching Load's precedence.
func LoadViper(envFile string) (*Config, error) {
	if _, err := Load(envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("doraemon")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.doraemon")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Load's variable names where they differ from the key-derived ones.
	for key, env := range map[string]string{
		"redis.addr":            "REDIS_URL",
		"queue.analysis_stream": "ANALYSIS_STREAM",
		"queue.dispatch_stream": "DISPATCH_STREAM",
		"queue.consumer_group":  "CONSUMER_GROUP",
		"queue.consumer_name":   "WORKER_CONSUMER_NAME",
		"mirror.parallelism":    "MUTATION_PARALLELISM",
		"ports.ingester":        "INGESTER_PORT",
		"ports.graph_service":   "GRAPH_SERVICE_PORT",
		"ports.metrics":         "METRICS_PORT",
	} {
		_ = v.BindEnv(key, env)
	}

	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.user", "neo4j")
	v.SetDefault("neo4j.database", "neo4j")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("queue.analysis_stream", "analysisStream")
	v.SetDefault("queue.dispatch_stream", "dispatchStream")
	v.SetDefault("queue.consumer_group", "doraemon-analyzers")
	v.SetDefault("queue.block_timeout", "5s")
	v.SetDefault("graph_service.url", "http://localhost:8081")
	v.SetDefault("mirror.base_dir", defaultMirrorDir())
	v.SetDefault("mirror.parallelism", 8)
	v.SetDefault("ports.ingester", 8080)
	v.SetDefault("ports.graph_service", 8081)
	v.SetDefault("ports.metrics", 9090)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read doraemon.yaml: %w", err)
		}
	}

	cfg := &Config{
		Neo4j: Neo4jConfig{
			URI:      v.GetString("neo4j.uri"),
			User:     v.GetString("neo4j.user"),
			Password: v.GetString("neo4j.password"),
			Database: v.GetString("neo4j.database"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
		},
		GitHub: GitHubConfig{
			Token:           v.GetString("github.token"),
			RateLimitPerSec: v.GetInt("github.rate_limit"),
		},
		Ingester: IngesterConfig{
			Secret: v.GetString("ingester.secret"),
		},
		GraphService: GraphServiceConfig{
			URL: v.GetString("graph_service.url"),
		},
		Queue: QueueConfig{
			AnalysisStream: v.GetString("queue.analysis_stream"),
			DispatchStream: v.GetString("queue.dispatch_stream"),
			ConsumerGroup:  v.GetString("queue.consumer_group"),
			ConsumerName:   v.GetString("queue.consumer_name"),
			BlockTimeout:   v.GetDuration("queue.block_timeout"),
		},
		Mirror: MirrorConfig{
			BaseDir:     v.GetString("mirror.base_dir"),
			Parallelism: v.GetInt("mirror.parallelism"),
		},
		Ports: PortsConfig{
			Ingester:     v.GetInt("ports.ingester"),
			GraphService: v.GetInt("ports.graph_service"),
			Metrics:      v.GetInt("ports.metrics"),
		},
	}
	if cfg.GitHub.RateLimitPerSec == 0 {
		cfg.GitHub.RateLimitPerSec = 10
	}
	if cfg.Queue.ConsumerName == "" {
		cfg.Queue.ConsumerName = defaultConsumerName()
	}

	return cfg, nil
}
