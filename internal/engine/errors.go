package engine

import (
	"errors"
	"fmt"

	"github.com/forgeline/stageflow/internal/model"
)

// ErrEmptyComment is returned when an approval or rejection is submitted
// without a comment.
var ErrEmptyComment = errors.New("a comment is required")

// UnknownProjectError is returned when no project exists with the given id.
type UnknownProjectError struct {
	Project string
}

func (e *UnknownProjectError) Error() string {
	return fmt.Sprintf("unknown project %q", e.Project)
}

// ProjectExistsError is returned when creating a project whose id is taken.
type ProjectExistsError struct {
	Project string
}

func (e *ProjectExistsError) Error() string {
	return fmt.Sprintf("project %q already exists", e.Project)
}

// StageNotAccessibleError is returned when a stage is beyond the project's
// current stage.
type StageNotAccessibleError struct {
	Stage   string
	Current string
}

func (e *StageNotAccessibleError) Error() string {
	return fmt.Sprintf("stage %q is not accessible (current stage is %q)", e.Stage, e.Current)
}

// GateNotPassedError is returned when advancing a project whose current
// stage's gate has not passed.
type GateNotPassedError struct {
	Stage  string
	Status model.GateStatus
}

func (e *GateNotPassedError) Error() string {
	return fmt.Sprintf("gate for stage %q has not passed (status %s)", e.Stage, e.Status)
}

// GateAlreadyPassedError is returned when mutating a gate that has passed.
type GateAlreadyPassedError struct {
	Stage string
}

func (e *GateAlreadyPassedError) Error() string {
	return fmt.Sprintf("gate for stage %q has already passed", e.Stage)
}

// UnknownChecklistItemError is returned when a checklist item id is not on
// the gate.
type UnknownChecklistItemError struct {
	Stage string
	Item  string
}

func (e *UnknownChecklistItemError) Error() string {
	return fmt.Sprintf("no checklist item %q on gate for stage %q", e.Item, e.Stage)
}

// StaleCommitError is returned when a commit's base version for an artifact
// no longer matches the ledger head. The caller must re-fetch and retry.
type StaleCommitError struct {
	Artifact string
	Base     int64
	Head     int64
}

func (e *StaleCommitError) Error() string {
	return fmt.Sprintf("stale commit for artifact %q: base version %d, ledger head is %d", e.Artifact, e.Base, e.Head)
}

// UnknownCommitError is returned when a commit id is not in the ledger.
type UnknownCommitError struct {
	Project string
	ID      int64
}

func (e *UnknownCommitError) Error() string {
	return fmt.Sprintf("no commit %d in project %q", e.ID, e.Project)
}

// RollbackNotConfirmedError is returned when the confirmation token passed
// to a rollback does not match the target commit id.
type RollbackNotConfirmedError struct {
	ID int64
}

func (e *RollbackNotConfirmedError) Error() string {
	return fmt.Sprintf("rollback of commit %d not confirmed", e.ID)
}

// FinalStageError is returned when advancing a project already at the last
// stage of the catalog.
type FinalStageError struct {
	Stage string
}

func (e *FinalStageError) Error() string {
	return fmt.Sprintf("stage %q is the final stage", e.Stage)
}

// InvalidGateSignalError is returned when an externally asserted gate state
// is neither blocked nor failed.
type InvalidGateSignalError struct {
	Status model.GateStatus
}

func (e *InvalidGateSignalError) Error() string {
	return fmt.Sprintf("invalid gate signal %q: must be blocked or failed", e.Status)
}
