package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Server exposes a Store over HTTP, matching the graph-service routes: the
// Analyzer's HTTPClient is the other half of this contract.
type Server struct {
	store  Store
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewServer builds a Server backed by store. logger may be nil, in which
// case slog.Default() is used.
func NewServer(store Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{store: store, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) routes() {
	s.mux.HandleFunc("GET /graph/{owner}/{repo}", s.handleFullGraph)
	s.mux.HandleFunc("GET /repository/{owner}/{repo}/lastAnalyzedSha", s.handleGetLastAnalyzedSha)
	s.mux.HandleFunc("PUT /repository/{owner}/{repo}/lastAnalyzedSha", s.handleSetLastAnalyzedSha)
	s.mux.HandleFunc("GET /files/{owner}/{repo}/dependencies", s.handleFiles(s.store.Dependencies))
	s.mux.HandleFunc("GET /files/{owner}/{repo}/dependents", s.handleFiles(s.store.Dependents))
	s.mux.HandleFunc("GET /files/{owner}/{repo}/recursive-dependents", s.handleFiles(s.store.RecursiveDependents))
	s.mux.HandleFunc("POST /internal/files", s.handleUpsertFile)
	s.mux.HandleFunc("DELETE /internal/files", s.handleDeleteFile)
	s.mux.HandleFunc("POST /internal/relationships", s.handleUpsertEdge)
	s.mux.HandleFunc("DELETE /internal/relationships", s.handleDeleteOutgoingEdges)
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

func repoName(r *http.Request) string {
	return fmt.Sprintf("%s/%s", r.PathValue("owner"), r.PathValue("repo"))
}

type apiFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type apiEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Server) handleFullGraph(w http.ResponseWriter, r *http.Request) {
	repo := repoName(r)
	files, edges, err := s.store.FullGraph(r.Context(), repo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	nodes := make([]apiFile, len(files))
	for i, f := range files {
		nodes[i] = apiFile{ID: f.Path, Name: f.Name}
	}
	edgeDTOs := make([]apiEdge, len(edges))
	for i, e := range edges {
		edgeDTOs[i] = apiEdge{From: e.From, To: e.To}
	}

	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes, "edges": edgeDTOs})
}

func (s *Server) handleGetLastAnalyzedSha(w http.ResponseWriter, r *http.Request) {
	repo := repoName(r)
	sha, present, err := s.store.GetLastAnalyzedSha(r.Context(), repo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !present {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"lastAnalyzedSha": sha})
}

func (s *Server) handleSetLastAnalyzedSha(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Sha string `json:"sha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Sha == "" {
		http.Error(w, "sha is required", http.StatusBadRequest)
		return
	}
	if err := s.store.SetLastAnalyzedSha(r.Context(), repoName(r), body.Sha); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleFiles adapts a one-hop or recursive Store query (Dependencies,
// Dependents, RecursiveDependents) into a handler reading the target path
// from the ?filePath= query parameter.
func (s *Server) handleFiles(query func(ctx context.Context, repo, path string) ([]File, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := r.URL.Query().Get("filePath")
		if filePath == "" {
			http.Error(w, "filePath query parameter is required", http.StatusBadRequest)
			return
		}
		files, err := query(r.Context(), repoName(r), filePath)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		dtos := make([]apiFile, len(files))
		for i, f := range files {
			dtos[i] = apiFile{ID: f.Path, Name: f.Name}
		}
		writeJSON(w, http.StatusOK, map[string]any{"files": dtos})
	}
}

type upsertFileRequest struct {
	Repo string `json:"repo"`
	Path string `json:"path"`
	Name string `json:"name"`
}

func (s *Server) handleUpsertFile(w http.ResponseWriter, r *http.Request) {
	var req upsertFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Repo == "" || req.Path == "" {
		http.Error(w, "repo and path are required", http.StatusBadRequest)
		return
	}
	if err := s.store.UpsertFile(r.Context(), req.Repo, req.Path, req.Name); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	var req upsertFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Repo == "" || req.Path == "" {
		http.Error(w, "repo and path are required", http.StatusBadRequest)
		return
	}
	if err := s.store.DeleteFile(r.Context(), req.Repo, req.Path); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type edgeRequest struct {
	Repo   string `json:"repo"`
	From   string `json:"from"`
	To     string `json:"to"`
	ToName string `json:"toName"`
}

func (s *Server) handleUpsertEdge(w http.ResponseWriter, r *http.Request) {
	var req edgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Repo == "" || req.From == "" || req.To == "" {
		http.Error(w, "repo, from, and to are required", http.StatusBadRequest)
		return
	}
	if err := s.store.UpsertEdge(r.Context(), req.Repo, req.From, req.To, req.ToName); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDeleteOutgoingEdges(w http.ResponseWriter, r *http.Request) {
	var req edgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Repo == "" || req.From == "" {
		http.Error(w, "repo and from are required", http.StatusBadRequest)
		return
	}
	if err := s.store.DeleteOutgoingEdges(r.Context(), req.Repo, req.From); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.HealthCheck(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("graph store operation failed", "path", r.URL.Path, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
