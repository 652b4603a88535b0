package server

import (
	"encoding/json"
	"net/http"

	"github.com/forgeline/stageflow/internal/model"
)

// handleGetGate handles GET /v1/projects/{id}/gates/{stage}.
func (s *WorkflowServer) handleGetGate(w http.ResponseWriter, r *http.Request) {
	id, stageID := r.PathValue("id"), r.PathValue("stage")
	if id == "" || stageID == "" {
		writeError(w, http.StatusBadRequest, "id and stage are required")
		return
	}

	gate, err := s.engine.Gate(r.Context(), id, stageID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, gate)
}

// handleListGates handles GET /v1/projects/{id}/gates.
func (s *WorkflowServer) handleListGates(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	gates, err := s.engine.Gates(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"gates": gates,
		"total": len(gates),
	})
}

type toggleChecklistInput struct {
	Completed bool   `json:"completed"`
	Actor     string `json:"actor"`
}

// handleToggleChecklistItem handles POST /v1/projects/{id}/gates/{stage}/checklist/{item}.
func (s *WorkflowServer) handleToggleChecklistItem(w http.ResponseWriter, r *http.Request) {
	id, stageID, item := r.PathValue("id"), r.PathValue("stage"), r.PathValue("item")
	if id == "" || stageID == "" || item == "" {
		writeError(w, http.StatusBadRequest, "id, stage, and item are required")
		return
	}

	var in toggleChecklistInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	gate, err := s.engine.ToggleChecklistItem(r.Context(), id, stageID, item, in.Completed, in.Actor)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, gate)
}

type submitApprovalInput struct {
	User     string `json:"user"`
	Role     string `json:"role"`
	Decision string `json:"decision"`
	Comment  string `json:"comment"`
}

// handleSubmitApproval handles POST /v1/projects/{id}/gates/{stage}/approvals.
func (s *WorkflowServer) handleSubmitApproval(w http.ResponseWriter, r *http.Request) {
	id, stageID := r.PathValue("id"), r.PathValue("stage")
	if id == "" || stageID == "" {
		writeError(w, http.StatusBadRequest, "id and stage are required")
		return
	}

	var in submitApprovalInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	gate, err := s.engine.SubmitApproval(r.Context(), id, stageID, in.User, in.Role, model.ApprovalDecision(in.Decision), in.Comment)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, gate)
}

type recordAutoCheckInput struct {
	Label  string   `json:"label"`
	Passed bool     `json:"passed"`
	Score  *float64 `json:"score,omitempty"`
}

// handleRecordAutoCheck handles PUT /v1/projects/{id}/gates/{stage}/checks/{check}.
func (s *WorkflowServer) handleRecordAutoCheck(w http.ResponseWriter, r *http.Request) {
	id, stageID, check := r.PathValue("id"), r.PathValue("stage"), r.PathValue("check")
	if id == "" || stageID == "" || check == "" {
		writeError(w, http.StatusBadRequest, "id, stage, and check are required")
		return
	}

	var in recordAutoCheckInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	gate, err := s.engine.RecordAutoCheck(r.Context(), id, stageID, model.AutoCheck{
		ID:     check,
		Label:  in.Label,
		Passed: in.Passed,
		Score:  in.Score,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, gate)
}

type reopenGateInput struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

// handleReopenGate handles POST /v1/projects/{id}/gates/{stage}/reopen.
func (s *WorkflowServer) handleReopenGate(w http.ResponseWriter, r *http.Request) {
	id, stageID := r.PathValue("id"), r.PathValue("stage")
	if id == "" || stageID == "" {
		writeError(w, http.StatusBadRequest, "id and stage are required")
		return
	}

	var in reopenGateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	gate, err := s.engine.Reopen(r.Context(), id, stageID, in.Actor, in.Reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, gate)
}

type signalGateInput struct {
	Status string `json:"status"`
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

// handleSignalGate handles POST /v1/projects/{id}/gates/{stage}/signal.
func (s *WorkflowServer) handleSignalGate(w http.ResponseWriter, r *http.Request) {
	id, stageID := r.PathValue("id"), r.PathValue("stage")
	if id == "" || stageID == "" {
		writeError(w, http.StatusBadRequest, "id and stage are required")
		return
	}

	var in signalGateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	gate, err := s.engine.SignalGate(r.Context(), id, stageID, model.GateStatus(in.Status), in.Actor, in.Reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, gate)
}
