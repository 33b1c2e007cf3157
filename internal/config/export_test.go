package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestExportYAMLMasksSecrets(t *testing.T) {
	cfg := &Config{
		Neo4j:    Neo4jConfig{URI: "bolt://x:7687", User: "neo4j", Password: "hunter2hunter2"},
		GitHub:   GitHubConfig{Token: "ghp_abcdefgh1234", RateLimitPerSec: 10},
		Ingester: IngesterConfig{Secret: "shh"},
		Queue:    QueueConfig{AnalysisStream: "a", BlockTimeout: 5 * time.Second},
	}

	out, err := cfg.ExportYAML()
	require.NoError(t, err)

	body := string(out)
	assert.NotContains(t, body, "hunter2hunter2")
	assert.NotContains(t, body, "ghp_abcdefgh1234")
	assert.Contains(t, body, "****1234")
	assert.Contains(t, body, "bolt://x:7687")

	// Output keys must round-trip as a doraemon.yaml.
	var parsed exportedConfig
	require.NoError(t, yaml.Unmarshal(out, &parsed))
	assert.Equal(t, "a", parsed.Queue.AnalysisStream)
	assert.Equal(t, "5s", parsed.Queue.BlockTimeout)
}

func TestMaskShortSecretFully(t *testing.T) {
	assert.Equal(t, "****", mask("shh"))
	assert.Equal(t, "", mask(""))
}
