package server

import (
	"encoding/json"
	"net/http"
)

type setViewingInput struct {
	User  string `json:"user"`
	Stage string `json:"stage"`
}

// handleSetViewing handles PUT /v1/projects/{id}/viewing.
func (s *WorkflowServer) handleSetViewing(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	var in setViewingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	view, err := s.engine.SetViewingStage(r.Context(), id, in.User, in.Stage)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

type advanceInput struct {
	Actor string `json:"actor"`
}

// handleAdvance handles POST /v1/projects/{id}/advance.
func (s *WorkflowServer) handleAdvance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	var in advanceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cursor, err := s.engine.AdvanceCurrentStage(r.Context(), id, in.Actor)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cursor)
}

// handleGetTree handles GET /v1/projects/{id}/tree.
func (s *WorkflowServer) handleGetTree(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	user := r.URL.Query().Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "user query parameter is required")
		return
	}

	tree, err := s.engine.VisibleArtifactTree(r.Context(), id, user)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tree)
}
