// Package server exposes the workflow engine over HTTP/JSON, including the
// SSE event stream.
package server

import (
	"errors"
	"net/http"

	"github.com/forgeline/stageflow/internal/engine"
	"github.com/forgeline/stageflow/internal/model"
	"github.com/forgeline/stageflow/internal/stage"
)

// WorkflowServer serves the workflow HTTP API. Events recorded by the engine
// are fanned out to connected SSE clients through the hub.
type WorkflowServer struct {
	engine *engine.Engine
	sseHub *sseHub
}

// NewWorkflowServer returns a WorkflowServer wrapping the given engine.
// It registers itself as the engine's event sink.
func NewWorkflowServer(e *engine.Engine) *WorkflowServer {
	s := &WorkflowServer{
		engine: e,
		sseHub: newSSEHub(),
	}
	e.OnEvent = s.broadcastEvent
	return s
}

// writeEngineError maps engine errors onto HTTP status codes and writes the
// JSON error response.
func writeEngineError(w http.ResponseWriter, err error) {
	var (
		validation     *model.ValidationError
		unknownStage   *stage.UnknownStageError
		unknownProject *engine.UnknownProjectError
		unknownCommit  *engine.UnknownCommitError
		unknownItem    *engine.UnknownChecklistItemError
		notAccessible  *engine.StageNotAccessibleError
		projectExists  *engine.ProjectExistsError
		notPassed      *engine.GateNotPassedError
		alreadyPassed  *engine.GateAlreadyPassedError
		stale          *engine.StaleCommitError
		notConfirmed   *engine.RollbackNotConfirmedError
		finalStage     *engine.FinalStageError
		invalidSignal  *engine.InvalidGateSignalError
	)

	var input engine.InputError

	switch {
	case errors.As(err, &input),
		errors.As(err, &validation),
		errors.Is(err, engine.ErrEmptyComment),
		errors.As(err, &invalidSignal):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notAccessible):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &unknownStage),
		errors.As(err, &unknownProject),
		errors.As(err, &unknownCommit),
		errors.As(err, &unknownItem):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &projectExists),
		errors.As(err, &notPassed),
		errors.As(err, &alreadyPassed),
		errors.As(err, &stale),
		errors.As(err, &notConfirmed),
		errors.As(err, &finalStage):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
