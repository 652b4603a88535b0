package server

import (
	"encoding/json"
	"net/http"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *WorkflowServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/projects", s.handleCreateProject)
	mux.HandleFunc("GET /v1/projects/{id}", s.handleGetProject)
	mux.HandleFunc("GET /v1/projects/{id}/events", s.handleGetEvents)
	mux.HandleFunc("GET /v1/stages", s.handleGetStages)
	mux.HandleFunc("PUT /v1/projects/{id}/viewing", s.handleSetViewing)
	mux.HandleFunc("POST /v1/projects/{id}/advance", s.handleAdvance)
	mux.HandleFunc("GET /v1/projects/{id}/tree", s.handleGetTree)
	mux.HandleFunc("GET /v1/projects/{id}/gates", s.handleListGates)
	mux.HandleFunc("GET /v1/projects/{id}/gates/{stage}", s.handleGetGate)
	mux.HandleFunc("POST /v1/projects/{id}/gates/{stage}/checklist/{item}", s.handleToggleChecklistItem)
	mux.HandleFunc("POST /v1/projects/{id}/gates/{stage}/approvals", s.handleSubmitApproval)
	mux.HandleFunc("PUT /v1/projects/{id}/gates/{stage}/checks/{check}", s.handleRecordAutoCheck)
	mux.HandleFunc("POST /v1/projects/{id}/gates/{stage}/signal", s.handleSignalGate)
	mux.HandleFunc("POST /v1/projects/{id}/gates/{stage}/reopen", s.handleReopenGate)
	mux.HandleFunc("GET /v1/projects/{id}/commits", s.handleListCommits)
	mux.HandleFunc("POST /v1/projects/{id}/commits", s.handleCreateCommit)
	mux.HandleFunc("GET /v1/projects/{id}/commits/{n}", s.handleGetCommit)
	mux.HandleFunc("POST /v1/projects/{id}/commits/{n}/rollback", s.handleRollback)
	mux.HandleFunc("GET /v1/projects/{id}/artifacts", s.handleListArtifacts)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	return AuthMiddleware(authToken, mux)
}

// handleHealth handles GET /v1/health.
func (s *WorkflowServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGetStages handles GET /v1/stages.
func (s *WorkflowServer) handleGetStages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"stages": s.engine.Graph().Stages(),
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
