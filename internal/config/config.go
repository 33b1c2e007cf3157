// Package config loads and validates doraemon's process configuration:
// defaults in code, overridden by a .env file, overridden by the process
// environment, validated once before any component is constructed.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting a doraemon binary needs at startup.
type Config struct {
	Neo4j        Neo4jConfig
	Redis        RedisConfig
	GitHub       GitHubConfig
	Ingester     IngesterConfig
	GraphService GraphServiceConfig
	Queue        QueueConfig
	Mirror       MirrorConfig
	Ports        PortsConfig
}

type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

type RedisConfig struct {
	Addr     string
	Password string
}

type GitHubConfig struct {
	Token           string
	RateLimitPerSec int
}

type IngesterConfig struct {
	Secret string
}

type GraphServiceConfig struct {
	// URL is the base address workers use to reach the graph-service
	// process, e.g. "http://graph-service:8081".
	URL string
}

type QueueConfig struct {
	AnalysisStream string
	DispatchStream string
	ConsumerGroup  string
	ConsumerName   string
	BlockTimeout   time.Duration
}

type MirrorConfig struct {
	BaseDir     string
	Parallelism int
}

type PortsConfig struct {
	Ingester     int
	GraphService int
	Metrics      int
}

// Load reads a .env file (if present, ignored if absent) and then builds a
// Config from the process environment, applying defaults for anything
// unset. It does not validate; call (*Config).Validate for that.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Neo4j: Neo4jConfig{
			URI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
			User:     getEnv("NEO4J_USER", "neo4j"),
			Password: getEnv("NEO4J_PASSWORD", ""),
			Database: getEnv("NEO4J_DATABASE", "neo4j"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_URL", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		GitHub: GitHubConfig{
			Token:           getEnv("GITHUB_TOKEN", ""),
			RateLimitPerSec: getEnvInt("GITHUB_RATE_LIMIT", 10),
		},
		Ingester: IngesterConfig{
			Secret: getEnv("INGESTER_SECRET", ""),
		},
		GraphService: GraphServiceConfig{
			URL: getEnv("GRAPH_SERVICE_URL", "http://localhost:8081"),
		},
		Queue: QueueConfig{
			AnalysisStream: getEnv("ANALYSIS_STREAM", "analysisStream"),
			DispatchStream: getEnv("DISPATCH_STREAM", "dispatchStream"),
			ConsumerGroup:  getEnv("CONSUMER_GROUP", "doraemon-analyzers"),
			ConsumerName:   getEnv("WORKER_CONSUMER_NAME", defaultConsumerName()),
			BlockTimeout:   getEnvDuration("QUEUE_BLOCK_TIMEOUT", 5*time.Second),
		},
		Mirror: MirrorConfig{
			BaseDir:     getEnv("MIRROR_BASE_DIR", defaultMirrorDir()),
			Parallelism: getEnvInt("MUTATION_PARALLELISM", 8),
		},
		Ports: PortsConfig{
			Ingester:     getEnvInt("INGESTER_PORT", 8080),
			GraphService: getEnvInt("GRAPH_SERVICE_PORT", 8081),
			Metrics:      getEnvInt("METRICS_PORT", 9090),
		},
	}

	return cfg, nil
}

func defaultMirrorDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".doraemon/mirrors"
	}
	return home + "/.doraemon/mirrors"
}

func defaultConsumerName() string {
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return fmt.Sprintf("%s:%d", host, os.Getpid())
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
