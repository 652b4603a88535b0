package store

import (
	"context"

	"github.com/forgeline/stageflow/internal/model"
)

// Store defines the persistence interface for the workflow engine.
// Read methods return (nil, nil) when the record does not exist; translating
// that into a typed error is the engine's job.
type Store interface {
	// Cursor
	CreateCursor(ctx context.Context, cursor *model.Cursor) error
	GetCursor(ctx context.Context, project string) (*model.Cursor, error)
	UpdateCursor(ctx context.Context, cursor *model.Cursor) error
	ListCursors(ctx context.Context) ([]*model.Cursor, error)

	// Per-user viewing state
	GetViewState(ctx context.Context, project, user string) (*model.ViewState, error)
	PutViewState(ctx context.Context, vs *model.ViewState) error
	ListViewStates(ctx context.Context, project string) ([]*model.ViewState, error)

	// Gates (full record including checklist, approvals, auto-checks)
	CreateGate(ctx context.Context, gate *model.GateRecord) error
	GetGate(ctx context.Context, project, stageID string) (*model.GateRecord, error)
	SaveGate(ctx context.Context, gate *model.GateRecord) error
	ListGates(ctx context.Context, project string) ([]*model.GateRecord, error)

	// Commit ledger (append-only)
	AppendCommit(ctx context.Context, commit *model.Commit) (int64, error)
	GetCommit(ctx context.Context, project string, id int64) (*model.Commit, error)
	ListCommits(ctx context.Context, project string, filter model.CommitFilter) ([]*model.Commit, int, error)
	ArtifactHead(ctx context.Context, project, name string) (int64, error)
	ListArtifacts(ctx context.Context, project string) ([]*model.ArtifactState, error)

	// Event log (append-only)
	RecordEvent(ctx context.Context, event *model.Event) error
	ListEvents(ctx context.Context, project string) ([]*model.Event, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
