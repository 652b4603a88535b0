package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/forgeline/stageflow/internal/engine"
	"github.com/forgeline/stageflow/internal/model"
)

// handleListCommits handles GET /v1/projects/{id}/commits.
func (s *WorkflowServer) handleListCommits(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	q := r.URL.Query()
	filter := model.CommitFilter{
		Stage:  q.Get("stage"),
		Author: q.Get("author"),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	commits, total, err := s.engine.History(r.Context(), id, filter)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	// Ensure commits is never null in JSON output.
	if commits == nil {
		commits = []*model.Commit{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"commits": commits,
		"total":   total,
	})
}

// handleCreateCommit handles POST /v1/projects/{id}/commits.
func (s *WorkflowServer) handleCreateCommit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	var in engine.CommitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	in.Project = id

	commit, err := s.engine.Commit(r.Context(), in)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, commit)
}

// handleGetCommit handles GET /v1/projects/{id}/commits/{n}.
func (s *WorkflowServer) handleGetCommit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	n, err := strconv.ParseInt(r.PathValue("n"), 10, 64)
	if id == "" || err != nil {
		writeError(w, http.StatusBadRequest, "id and a numeric commit id are required")
		return
	}

	commit, err := s.engine.CommitByID(r.Context(), id, n)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, commit)
}

type rollbackInput struct {
	Actor   string `json:"actor"`
	Confirm string `json:"confirm"`
}

// handleRollback handles POST /v1/projects/{id}/commits/{n}/rollback.
// The body's confirm field must be the decimal commit id being rolled back to.
func (s *WorkflowServer) handleRollback(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	n, err := strconv.ParseInt(r.PathValue("n"), 10, 64)
	if id == "" || err != nil {
		writeError(w, http.StatusBadRequest, "id and a numeric commit id are required")
		return
	}

	var in rollbackInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	commit, err := s.engine.Rollback(r.Context(), id, n, in.Actor, in.Confirm)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, commit)
}

// handleListArtifacts handles GET /v1/projects/{id}/artifacts.
func (s *WorkflowServer) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	artifacts, err := s.engine.Artifacts(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if artifacts == nil {
		artifacts = []*model.ArtifactState{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"artifacts": artifacts,
		"total":     len(artifacts),
	})
}
