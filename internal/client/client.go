// Package client provides a transport-agnostic interface for the stageflow
// service and an HTTP/JSON implementation that talks to the stageflow REST API.
package client

import (
	"context"

	"github.com/forgeline/stageflow/internal/engine"
	"github.com/forgeline/stageflow/internal/model"
)

// WorkflowClient is the interface that all stageflow CLI commands use to
// communicate with the workflow server. It is implemented by HTTPClient
// (default) and can be backed by any transport.
type WorkflowClient interface {
	// Projects
	CreateProject(ctx context.Context, project string) (*engine.ProjectSummary, error)
	GetProject(ctx context.Context, project string) (*engine.ProjectSummary, error)
	ListStages(ctx context.Context) ([]model.Stage, error)

	// Cursor
	SetViewingStage(ctx context.Context, project, user, stage string) (*model.ViewState, error)
	Advance(ctx context.Context, project, actor string) (*model.Cursor, error)
	GetTree(ctx context.Context, project, user string) (*model.ArtifactTree, error)

	// Gates
	GetGate(ctx context.Context, project, stage string) (*model.GateRecord, error)
	ListGates(ctx context.Context, project string) ([]*model.GateRecord, error)
	ToggleChecklistItem(ctx context.Context, project, stage, item string, completed bool, actor string) (*model.GateRecord, error)
	SubmitApproval(ctx context.Context, req *SubmitApprovalRequest) (*model.GateRecord, error)
	RecordAutoCheck(ctx context.Context, project, stage string, check model.AutoCheck) (*model.GateRecord, error)
	Reopen(ctx context.Context, project, stage, actor, reason string) (*model.GateRecord, error)
	SignalGate(ctx context.Context, project, stage, status, actor, reason string) (*model.GateRecord, error)

	// Ledger
	CreateCommit(ctx context.Context, req *engine.CommitInput) (*model.Commit, error)
	GetCommit(ctx context.Context, project string, id int64) (*model.Commit, error)
	ListCommits(ctx context.Context, project string, filter model.CommitFilter) (*ListCommitsResponse, error)
	Rollback(ctx context.Context, project string, id int64, actor, confirm string) (*model.Commit, error)
	ListArtifacts(ctx context.Context, project string) ([]*model.ArtifactState, error)

	// Events
	GetEvents(ctx context.Context, project string) ([]*model.Event, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// SubmitApprovalRequest holds parameters for submitting an approval or
// rejection on a gate.
type SubmitApprovalRequest struct {
	Project  string `json:"-"`
	Stage    string `json:"-"`
	User     string `json:"user"`
	Role     string `json:"role,omitempty"`
	Decision string `json:"decision"`
	Comment  string `json:"comment"`
}

// ListCommitsResponse is the response from ListCommits.
type ListCommitsResponse struct {
	Commits []*model.Commit `json:"commits"`
	Total   int             `json:"total"`
}
