package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// exportedConfig mirrors Config with yaml tags matching the keys LoadViper
// reads from doraemon.yaml, so `doraemon config` output can be pasted back
// into a config file as-is.
type exportedConfig struct {
	Neo4j struct {
		URI      string `yaml:"uri"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
	} `yaml:"neo4j"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
	} `yaml:"redis"`
	GitHub struct {
		Token     string `yaml:"token"`
		RateLimit int    `yaml:"rate_limit"`
	} `yaml:"github"`
	Ingester struct {
		Secret string `yaml:"secret"`
	} `yaml:"ingester"`
	GraphService struct {
		URL string `yaml:"url"`
	} `yaml:"graph_service"`
	Queue struct {
		AnalysisStream string `yaml:"analysis_stream"`
		DispatchStream string `yaml:"dispatch_stream"`
		ConsumerGroup  string `yaml:"consumer_group"`
		ConsumerName   string `yaml:"consumer_name"`
		BlockTimeout   string `yaml:"block_timeout"`
	} `yaml:"queue"`
	Mirror struct {
		BaseDir     string `yaml:"base_dir"`
		Parallelism int    `yaml:"parallelism"`
	} `yaml:"mirror"`
	Ports struct {
		Ingester     int `yaml:"ingester"`
		GraphService int `yaml:"graph_service"`
		Metrics      int `yaml:"metrics"`
	} `yaml:"ports"`
}

// ExportYAML renders the effective configuration as YAML with every secret
// masked, for `doraemon config` output.
func (c *Config) ExportYAML() ([]byte, error) {
	var e exportedConfig

	e.Neo4j.URI = c.Neo4j.URI
	e.Neo4j.User = c.Neo4j.User
	e.Neo4j.Password = mask(c.Neo4j.Password)
	e.Neo4j.Database = c.Neo4j.Database
	e.Redis.Addr = c.Redis.Addr
	e.Redis.Password = mask(c.Redis.Password)
	e.GitHub.Token = mask(c.GitHub.Token)
	e.GitHub.RateLimit = c.GitHub.RateLimitPerSec
	e.Ingester.Secret = mask(c.Ingester.Secret)
	e.GraphService.URL = c.GraphService.URL
	e.Queue.AnalysisStream = c.Queue.AnalysisStream
	e.Queue.DispatchStream = c.Queue.DispatchStream
	e.Queue.ConsumerGroup = c.Queue.ConsumerGroup
	e.Queue.ConsumerName = c.Queue.ConsumerName
	e.Queue.BlockTimeout = c.Queue.BlockTimeout.String()
	e.Mirror.BaseDir = c.Mirror.BaseDir
	e.Mirror.Parallelism = c.Mirror.Parallelism
	e.Ports.Ingester = c.Ports.Ingester
	e.Ports.GraphService = c.Ports.GraphService
	e.Ports.Metrics = c.Ports.Metrics

	out, err := yaml.Marshal(&e)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}

// mask hides all but the last four characters of a secret; short secrets are
// fully hidden.
func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
