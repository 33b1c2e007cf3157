package graph

import (
	"fmt"
	"regexp"
)

// queryBuilder assembles parameterized Cypher so every value passed to the
// driver goes through a named parameter, never string concatenation.
type queryBuilder struct {
	params  map[string]any
	counter int
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{params: make(map[string]any)}
}

func (b *queryBuilder) bind(value any) string {
	name := fmt.Sprintf("p%d", b.counter)
	b.counter++
	b.params[name] = value
	return "$" + name
}

func (b *queryBuilder) Params() map[string]any { return b.params }

var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func isValidIdentifier(s string) bool {
	return s != "" && identifierRe.MatchString(s)
}

const (
	labelRepo = "Repository"
	labelFile = "File"
	relImport = "IMPORTS"
)

func cypherUpsertRepo(b *queryBuilder, repo, sha string) string {
	return fmt.Sprintf(
		"MERGE (r:%s {name: %s}) SET r.lastAnalyzedSha = %s",
		labelRepo, b.bind(repo), b.bind(sha),
	)
}

func cypherGetRepo(b *queryBuilder, repo string) string {
	return fmt.Sprintf(
		"MATCH (r:%s {name: %s}) RETURN r.lastAnalyzedSha AS sha",
		labelRepo, b.bind(repo),
	)
}

func cypherRepoExists(b *queryBuilder, repo string) string {
	return fmt.Sprintf(
		"MATCH (r:%s {name: %s}) RETURN count(r) > 0 AS exists "+
			"UNION MATCH (f:%s {repo: %s}) RETURN count(f) > 0 AS exists",
		labelRepo, b.bind(repo), labelFile, b.bind(repo),
	)
}

func cypherUpsertFile(b *queryBuilder, repo, path, name string) string {
	return fmt.Sprintf(
		"MERGE (f:%s {id: %s, repo: %s}) SET f.name = %s, f.path = %s",
		labelFile, b.bind(path), b.bind(repo), b.bind(name), b.bind(path),
	)
}

func cypherDeleteFile(b *queryBuilder, repo, path string) string {
	return fmt.Sprintf(
		"MATCH (f:%s {id: %s, repo: %s}) DETACH DELETE f",
		labelFile, b.bind(path), b.bind(repo),
	)
}

// cypherUpsertEdge ensures both endpoints exist before merging the edge, so
// a concurrent delete of the source never leaves an orphaned edge behind.
func cypherUpsertEdge(b *queryBuilder, repo, fromPath, fromName, toPath, toName string) string {
	return fmt.Sprintf(
		"MERGE (from:%s {id: %s, repo: %s}) SET from.name = %s, from.path = %s "+
			"MERGE (to:%s {id: %s, repo: %s}) SET to.name = %s, to.path = %s "+
			"MERGE (from)-[:%s]->(to)",
		labelFile, b.bind(fromPath), b.bind(repo), b.bind(fromName), b.bind(fromPath),
		labelFile, b.bind(toPath), b.bind(repo), b.bind(toName), b.bind(toPath),
		relImport,
	)
}

func cypherDeleteOutgoingEdges(b *queryBuilder, repo, path string) string {
	return fmt.Sprintf(
		"MATCH (f:%s {id: %s, repo: %s})-[r:%s]->() DELETE r",
		labelFile, b.bind(path), b.bind(repo), relImport,
	)
}

func cypherDependencies(b *queryBuilder, repo, path string) string {
	return fmt.Sprintf(
		"MATCH (f:%s {id: %s, repo: %s})-[:%s]->(d:%s) "+
			"RETURN d.id AS id, d.name AS name",
		labelFile, b.bind(path), b.bind(repo), relImport, labelFile,
	)
}

func cypherDependents(b *queryBuilder, repo, path string) string {
	return fmt.Sprintf(
		"MATCH (f:%s {id: %s, repo: %s})<-[:%s]-(d:%s) "+
			"RETURN d.id AS id, d.name AS name",
		labelFile, b.bind(path), b.bind(repo), relImport, labelFile,
	)
}

// cypherRecursiveDependents walks IMPORTS edges backwards with a variable
// length pattern; Cypher never repeats a relationship within one path, so
// cycles terminate, and RETURN DISTINCT deduplicates the reached nodes,
// matching the backward-reachability contract.
func cypherRecursiveDependents(b *queryBuilder, repo, path string) string {
	return fmt.Sprintf(
		"MATCH (f:%s {id: %s, repo: %s})<-[:%s*1..]-(d:%s) "+
			"WHERE d.id <> %s "+
			"RETURN DISTINCT d.id AS id, d.name AS name",
		labelFile, b.bind(path), b.bind(repo), relImport, labelFile, b.bind(path),
	)
}

func cypherFullGraphNodes(b *queryBuilder, repo string) string {
	return fmt.Sprintf(
		"MATCH (f:%s {repo: %s}) RETURN f.id AS id, f.name AS name",
		labelFile, b.bind(repo),
	)
}

func cypherFullGraphEdges(b *queryBuilder, repo string) string {
	return fmt.Sprintf(
		"MATCH (from:%s {repo: %s})-[:%s]->(to:%s {repo: %s}) "+
			"RETURN from.id AS fromId, to.id AS toId",
		labelFile, b.bind(repo), relImport, labelFile, b.bind(repo),
	)
}
