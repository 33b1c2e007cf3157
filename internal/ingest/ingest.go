// Package ingest implements the Ingester HTTP surface: authenticated job
// submission from CI into the analysis queue.
package ingest

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saqib40/doraemon/internal/queue"
)

// Server exposes POST /trigger and GET /health over net/http.
type Server struct {
	queue  queue.Queue
	secret string
	logger *slog.Logger
	mux    *http.ServeMux
}

// New builds a Server. secret is the shared bearer token CI must present;
// an empty secret disables authentication (local development only).
func New(q queue.Queue, secret string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{queue: q, secret: secret, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /trigger", s.handleTrigger)
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type triggerRequest struct {
	RepoURL  string `json:"repoUrl"`
	Sha      string `json:"sha"`
	Event    string `json:"event"`
	PRNumber *int   `json:"prNumber"`
}

type triggerResponse struct {
	JobID string `json:"jobId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleTrigger authenticates the caller, validates the payload, and
// publishes an analysis job. It returns 401 when the Authorization header
// is missing or malformed, 403 when the bearer token does not match, 400
// on an invalid payload, 202 with the assigned job ID on success, and 500
// when the queue publish itself fails.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if s.secret != "" {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing or malformed Authorization header")
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.secret)) != 1 {
			writeError(w, http.StatusForbidden, "invalid bearer token")
			return
		}
	}

	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if req.RepoURL == "" || req.Sha == "" || req.Event == "" {
		writeError(w, http.StatusBadRequest, "repoUrl, sha, and event are required")
		return
	}

	requestID := uuid.NewString()
	log := s.logger.With("request_id", requestID, "repo_url", req.RepoURL, "sha", req.Sha)

	jobID, err := s.queue.PublishAnalysis(r.Context(), queue.AnalysisPayload{
		RepoURL:    req.RepoURL,
		Sha:        req.Sha,
		Event:      req.Event,
		PRNumber:   req.PRNumber,
		ReceivedAt: receivedAt(r.Context()),
	})
	if err != nil {
		log.Error("publish analysis job failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to enqueue analysis job")
		return
	}

	log.Info("analysis job enqueued", "job_id", jobID)
	writeJSON(w, http.StatusAccepted, triggerResponse{JobID: jobID})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header value.
func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", false
	}
	return token, true
}

// receivedAt is a seam so tests can stub the request timestamp; production
// code always uses the wall clock.
var receivedAtFunc = time.Now

func receivedAt(_ context.Context) time.Time { return receivedAtFunc() }

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
