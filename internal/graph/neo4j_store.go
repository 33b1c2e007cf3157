package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/saqib40/doraemon/internal/metrics"
)

// Neo4jStore is the Store implementation backing the graph-service binary.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string

	// Metrics records per-operation latency via ObserveGraphOp when set.
	// Nil disables recording (e.g. in tests that don't construct a
	// Registry).
	Metrics *metrics.Registry
}

// NewNeo4jStore opens a driver against uri and verifies connectivity before
// returning, so startup fails fast on a misconfigured or unreachable
// instance rather than on the first query.
func NewNeo4jStore(ctx context.Context, uri, user, password, database string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = 50
			c.ConnectionAcquisitionTimeout = 0
		})
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	return &Neo4jStore{driver: driver, database: database}, nil
}

func (s *Neo4jStore) write(ctx context.Context, operation, cypher string, params map[string]any) (*neo4j.EagerResult, error) {
	start := time.Now()
	result, err := neo4j.ExecuteQuery(ctx, s.driver, cypher, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database))
	s.observe(operation, start)
	return result, err
}

func (s *Neo4jStore) read(ctx context.Context, operation, cypher string, params map[string]any) (*neo4j.EagerResult, error) {
	start := time.Now()
	result, err := neo4j.ExecuteQuery(ctx, s.driver, cypher, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database),
		neo4j.ExecuteQueryWithReadersRouting())
	s.observe(operation, start)
	return result, err
}

func (s *Neo4jStore) observe(operation string, start time.Time) {
	if s.Metrics != nil {
		s.Metrics.ObserveGraphOp(operation, time.Since(start).Seconds())
	}
}

func (s *Neo4jStore) RepoExists(ctx context.Context, repo string) (bool, error) {
	b := newQueryBuilder()
	result, err := s.read(ctx, "repo_exists", cypherRepoExists(b, repo), b.Params())
	if err != nil {
		return false, fmt.Errorf("check repo exists: %w", err)
	}
	for _, rec := range result.Records {
		if v, ok := rec.Get("exists"); ok {
			if exists, _ := v.(bool); exists {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *Neo4jStore) GetLastAnalyzedSha(ctx context.Context, repo string) (string, bool, error) {
	b := newQueryBuilder()
	result, err := s.read(ctx, "get_last_analyzed_sha", cypherGetRepo(b, repo), b.Params())
	if err != nil {
		return "", false, fmt.Errorf("get last analyzed sha: %w", err)
	}
	if len(result.Records) == 0 {
		return "", false, nil
	}
	sha, _ := result.Records[0].Get("sha")
	shaStr, _ := sha.(string)
	return shaStr, true, nil
}

func (s *Neo4jStore) SetLastAnalyzedSha(ctx context.Context, repo, sha string) error {
	b := newQueryBuilder()
	_, err := s.write(ctx, "set_last_analyzed_sha", cypherUpsertRepo(b, repo, sha), b.Params())
	if err != nil {
		return fmt.Errorf("set last analyzed sha: %w", err)
	}
	return nil
}

func (s *Neo4jStore) UpsertFile(ctx context.Context, repo, path, name string) error {
	b := newQueryBuilder()
	_, err := s.write(ctx, "upsert_file", cypherUpsertFile(b, repo, path, name), b.Params())
	if err != nil {
		return fmt.Errorf("upsert file %s: %w", path, err)
	}
	return nil
}

func (s *Neo4jStore) DeleteFile(ctx context.Context, repo, path string) error {
	b := newQueryBuilder()
	_, err := s.write(ctx, "delete_file", cypherDeleteFile(b, repo, path), b.Params())
	if err != nil {
		return fmt.Errorf("delete file %s: %w", path, err)
	}
	return nil
}

func (s *Neo4jStore) UpsertEdge(ctx context.Context, repo, fromPath, toPath, toName string) error {
	fromName := baseName(fromPath)
	b := newQueryBuilder()
	_, err := s.write(ctx, "upsert_edge", cypherUpsertEdge(b, repo, fromPath, fromName, toPath, toName), b.Params())
	if err != nil {
		return fmt.Errorf("upsert edge %s -> %s: %w", fromPath, toPath, err)
	}
	return nil
}

func (s *Neo4jStore) DeleteOutgoingEdges(ctx context.Context, repo, path string) error {
	b := newQueryBuilder()
	_, err := s.write(ctx, "delete_outgoing_edges", cypherDeleteOutgoingEdges(b, repo, path), b.Params())
	if err != nil {
		return fmt.Errorf("delete outgoing edges for %s: %w", path, err)
	}
	return nil
}

func (s *Neo4jStore) Dependencies(ctx context.Context, repo, path string) ([]File, error) {
	b := newQueryBuilder()
	result, err := s.read(ctx, "dependencies", cypherDependencies(b, repo, path), b.Params())
	if err != nil {
		return nil, fmt.Errorf("dependencies of %s: %w", path, err)
	}
	return filesFromRecords(repo, result.Records), nil
}

func (s *Neo4jStore) Dependents(ctx context.Context, repo, path string) ([]File, error) {
	b := newQueryBuilder()
	result, err := s.read(ctx, "dependents", cypherDependents(b, repo, path), b.Params())
	if err != nil {
		return nil, fmt.Errorf("dependents of %s: %w", path, err)
	}
	return filesFromRecords(repo, result.Records), nil
}

func (s *Neo4jStore) RecursiveDependents(ctx context.Context, repo, path string) ([]File, error) {
	b := newQueryBuilder()
	result, err := s.read(ctx, "recursive_dependents", cypherRecursiveDependents(b, repo, path), b.Params())
	if err != nil {
		return nil, fmt.Errorf("recursive dependents of %s: %w", path, err)
	}
	return filesFromRecords(repo, result.Records), nil
}

func (s *Neo4jStore) FullGraph(ctx context.Context, repo string) ([]File, []Edge, error) {
	nb := newQueryBuilder()
	nodeResult, err := s.read(ctx, "full_graph_nodes", cypherFullGraphNodes(nb, repo), nb.Params())
	if err != nil {
		return nil, nil, fmt.Errorf("full graph nodes: %w", err)
	}
	files := filesFromRecords(repo, nodeResult.Records)

	eb := newQueryBuilder()
	edgeResult, err := s.read(ctx, "full_graph_edges", cypherFullGraphEdges(eb, repo), eb.Params())
	if err != nil {
		return nil, nil, fmt.Errorf("full graph edges: %w", err)
	}

	edges := make([]Edge, 0, len(edgeResult.Records))
	for _, rec := range edgeResult.Records {
		from, _ := rec.Get("fromId")
		to, _ := rec.Get("toId")
		fromStr, _ := from.(string)
		toStr, _ := to.(string)
		edges = append(edges, Edge{Repo: repo, From: fromStr, To: toStr})
	}

	return files, edges, nil
}

// EnsureConstraints drops any legacy single-property uniqueness constraint
// on File.id and creates the composite (id, repo) uniqueness constraint on
// File plus the uniqueness constraint on Repository.name. Safe to call
// repeatedly: every statement is idempotent.
func (s *Neo4jStore) EnsureConstraints(ctx context.Context) error {
	legacy, err := s.legacyFileIDConstraintName(ctx)
	if err != nil {
		return fmt.Errorf("inspect existing constraints: %w", err)
	}
	if legacy != "" {
		dropQuery := fmt.Sprintf("DROP CONSTRAINT %s IF EXISTS", legacy)
		if _, err := s.write(ctx, "drop_legacy_constraint", dropQuery, nil); err != nil {
			return fmt.Errorf("drop legacy constraint %s: %w", legacy, err)
		}
	}

	statements := []string{
		fmt.Sprintf("CREATE CONSTRAINT file_id_repo_unique IF NOT EXISTS "+
			"FOR (f:%s) REQUIRE (f.id, f.repo) IS UNIQUE", labelFile),
		fmt.Sprintf("CREATE CONSTRAINT repo_name_unique IF NOT EXISTS "+
			"FOR (r:%s) REQUIRE r.name IS UNIQUE", labelRepo),
	}
	for _, stmt := range statements {
		if _, err := s.write(ctx, "create_constraint", stmt, nil); err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
	}
	return nil
}

// legacyFileIDConstraintName looks for a single-property uniqueness
// constraint on File.id (the pre-migration schema) and returns its name, or
// "" if none exists.
func (s *Neo4jStore) legacyFileIDConstraintName(ctx context.Context) (string, error) {
	result, err := s.read(ctx, "show_constraints", "SHOW CONSTRAINTS", nil)
	if err != nil {
		return "", err
	}
	for _, rec := range result.Records {
		labelsField, _ := rec.Get("labelsOrTypes")
		propsField, _ := rec.Get("properties")
		nameField, _ := rec.Get("name")

		labels, _ := labelsField.([]any)
		props, _ := propsField.([]any)
		name, _ := nameField.(string)

		if len(labels) != 1 || len(props) != 1 {
			continue
		}
		label, _ := labels[0].(string)
		prop, _ := props[0].(string)
		if strings.EqualFold(label, labelFile) && prop == "id" {
			return name, nil
		}
	}
	return "", nil
}

func (s *Neo4jStore) HealthCheck(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func filesFromRecords(repo string, records []*neo4j.Record) []File {
	files := make([]File, 0, len(records))
	for _, rec := range records {
		id, _ := rec.Get("id")
		name, _ := rec.Get("name")
		idStr, _ := id.(string)
		nameStr, _ := name.(string)
		files = append(files, File{Repo: repo, Path: idStr, Name: nameStr})
	}
	return files
}

func baseName(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}
