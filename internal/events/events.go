package events

import (
	"context"

	"github.com/forgeline/stageflow/internal/model"
)

// Event topic constants
const (
	TopicProjectCreated = "stageflow.project.created"

	// Gate events
	TopicGateChecklist = "stageflow.gate.checklist"
	TopicGateApproval  = "stageflow.gate.approval"
	TopicGateAutoCheck = "stageflow.gate.autocheck"
	TopicGatePassed    = "stageflow.gate.passed"
	TopicGateReopened  = "stageflow.gate.reopened"
	TopicGateSignaled  = "stageflow.gate.signaled"

	// Cursor events
	TopicStageAdvanced = "stageflow.stage.advanced"
	TopicViewChanged   = "stageflow.view.changed"

	// Ledger events
	TopicCommitCreated    = "stageflow.commit.created"
	TopicCommitRolledBack = "stageflow.commit.rolledback"
)

// Event types

type ProjectCreated struct {
	Project      string `json:"project"`
	CurrentStage string `json:"current_stage"`
	Stages       int    `json:"stages"`
}

type ChecklistToggled struct {
	Project   string               `json:"project"`
	StageID   string               `json:"stage_id"`
	Item      *model.ChecklistItem `json:"item"`
	GateState model.GateStatus     `json:"gate_status"`
}

type ApprovalSubmitted struct {
	Project   string           `json:"project"`
	StageID   string           `json:"stage_id"`
	Approval  *model.Approval  `json:"approval"`
	GateState model.GateStatus `json:"gate_status"`
}

type AutoCheckRecorded struct {
	Project   string           `json:"project"`
	StageID   string           `json:"stage_id"`
	Check     *model.AutoCheck `json:"check"`
	GateState model.GateStatus `json:"gate_status"`
}

type GatePassed struct {
	Project string `json:"project"`
	StageID string `json:"stage_id"`
}

type GateReopened struct {
	Project string `json:"project"`
	StageID string `json:"stage_id"`
	Reason  string `json:"reason,omitempty"`
}

type GateSignaled struct {
	Project string           `json:"project"`
	StageID string           `json:"stage_id"`
	Status  model.GateStatus `json:"status"`
	Reason  string           `json:"reason,omitempty"`
}

type StageAdvanced struct {
	Project string `json:"project"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type ViewChanged struct {
	Project string `json:"project"`
	User    string `json:"user"`
	Stage   string `json:"stage"`
}

type CommitCreated struct {
	Commit *model.Commit `json:"commit"`
}

// CommitRolledBack carries the appended rollback commit, the id of the
// commit rolled back to, and how many commits were reverted.
type CommitRolledBack struct {
	Commit   *model.Commit `json:"commit"`
	Target   int64         `json:"target"`
	Reverted int           `json:"reverted"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
