package config

import "fmt"

// ValidationResult accumulates every problem found in a Config instead of
// failing on the first, so an operator sees the whole list of missing
// settings in one pass.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

func (r *ValidationResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors reports whether validation found anything fatal.
func (r *ValidationResult) HasErrors() bool { return len(r.Errors) > 0 }

// Error renders every accumulated error as a newline-separated, bulleted
// list for display to an operator.
func (r *ValidationResult) Error() string {
	var out string
	for _, e := range r.Errors {
		out += fmt.Sprintf("  - %s\n", e)
	}
	return out
}

// Validate checks cfg for the settings each component requires to start,
// scoped by which components the caller intends to run.
func (c *Config) Validate(needsGraph, needsQueue, needsGitHub, needsIngester bool) *ValidationResult {
	r := &ValidationResult{}

	if needsGraph {
		if c.Neo4j.URI == "" {
			r.addError("NEO4J_URI is required")
		}
		if c.Neo4j.User == "" {
			r.addError("NEO4J_USER is required")
		}
		if c.Neo4j.Password == "" {
			r.addWarning("NEO4J_PASSWORD is empty, assuming an unauthenticated instance")
		}
	}

	if needsQueue {
		if c.Redis.Addr == "" {
			r.addError("REDIS_URL is required")
		}
		if c.Queue.AnalysisStream == "" {
			r.addError("ANALYSIS_STREAM must not be empty")
		}
		if c.Queue.DispatchStream == "" {
			r.addError("DISPATCH_STREAM must not be empty")
		}
		if c.Queue.ConsumerGroup == "" {
			r.addError("CONSUMER_GROUP must not be empty")
		}
	}

	if needsGitHub {
		if c.GitHub.Token == "" {
			r.addWarning("GITHUB_TOKEN is empty, API calls will use the unauthenticated rate limit")
		}
		if c.GitHub.RateLimitPerSec <= 0 {
			r.addError("GITHUB_RATE_LIMIT must be positive")
		}
	}

	if needsIngester {
		if c.Ingester.Secret == "" {
			r.addError("INGESTER_SECRET is required to authenticate webhook callers")
		}
	}

	if c.GraphService.URL == "" {
		r.addError("GRAPH_SERVICE_URL must not be empty")
	}
	if c.Mirror.BaseDir == "" {
		r.addError("MIRROR_BASE_DIR must not be empty")
	}
	if c.Mirror.Parallelism <= 0 {
		r.addError("MUTATION_PARALLELISM must be positive")
	}

	return r
}
