package server

import (
	"encoding/json"
	"net/http"

	"github.com/forgeline/stageflow/internal/model"
)

type createProjectInput struct {
	Project string `json:"project"`
}

// handleCreateProject handles POST /v1/projects.
func (s *WorkflowServer) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var in createProjectInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	summary, err := s.engine.CreateProject(r.Context(), in.Project)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, summary)
}

// handleGetProject handles GET /v1/projects/{id}.
func (s *WorkflowServer) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	summary, err := s.engine.Project(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleGetEvents handles GET /v1/projects/{id}/events.
func (s *WorkflowServer) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	evts, err := s.engine.Events(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	// Ensure events is never null in JSON output.
	if evts == nil {
		evts = []*model.Event{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": evts,
		"total":  len(evts),
	})
}
