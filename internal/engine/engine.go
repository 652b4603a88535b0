// Package engine implements the stage-gated workflow operations: gate
// evaluation, the project cursor, and the append-only commit ledger.
// All mutating operations run inside a store transaction; either the whole
// operation applies or nothing does.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/forgeline/stageflow/internal/events"
	"github.com/forgeline/stageflow/internal/idgen"
	"github.com/forgeline/stageflow/internal/model"
	"github.com/forgeline/stageflow/internal/stage"
	"github.com/forgeline/stageflow/internal/store"
)

// InputError indicates invalid user input.
// Transport layers map this to 400.
type InputError string

func (e InputError) Error() string { return string(e) }

// Engine is the workflow engine. OnEvent, when set, is called with every
// event after it has been recorded, so a serving layer can fan events out
// to live subscribers.
type Engine struct {
	store     store.Store
	graph     *stage.Graph
	publisher events.Publisher

	OnEvent func(topic string, event any)
}

// New creates an Engine. publisher may be a NoopPublisher.
func New(st store.Store, graph *stage.Graph, publisher events.Publisher) *Engine {
	return &Engine{store: st, graph: graph, publisher: publisher}
}

// Graph returns the stage catalog the engine was built with.
func (e *Engine) Graph() *stage.Graph {
	return e.graph
}

// ProjectSummary is the read model for one project: its cursor plus the
// stages a collaborator may browse.
type ProjectSummary struct {
	Cursor           *model.Cursor `json:"cursor"`
	AccessibleStages []model.Stage `json:"accessible_stages"`
}

// CreateProject seeds a new project: a cursor at the first catalog stage and
// one gate per stage built from the catalog's gate templates.
func (e *Engine) CreateProject(ctx context.Context, project string) (*ProjectSummary, error) {
	if strings.TrimSpace(project) == "" {
		return nil, InputError("project id is required")
	}

	now := time.Now().UTC()
	cursor := &model.Cursor{
		Project:      project,
		CurrentStage: e.graph.First().ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := e.store.RunInTransaction(ctx, func(tx store.Store) error {
		existing, err := tx.GetCursor(ctx, project)
		if err != nil {
			return fmt.Errorf("failed to load cursor: %w", err)
		}
		if existing != nil {
			return &ProjectExistsError{Project: project}
		}
		if err := tx.CreateCursor(ctx, cursor); err != nil {
			return fmt.Errorf("failed to create cursor: %w", err)
		}
		for _, def := range e.graph.Definitions() {
			gate, err := newGateFromTemplate(project, def)
			if err != nil {
				return err
			}
			if err := tx.CreateGate(ctx, gate); err != nil {
				return fmt.Errorf("failed to create gate for stage %q: %w", def.Stage.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.recordAndPublish(ctx, events.TopicProjectCreated, project, "", events.ProjectCreated{
		Project:      project,
		CurrentStage: cursor.CurrentStage,
		Stages:       len(e.graph.Stages()),
	})

	return &ProjectSummary{Cursor: cursor, AccessibleStages: []model.Stage{e.graph.First()}}, nil
}

// Project returns the project's cursor and accessible stages.
func (e *Engine) Project(ctx context.Context, project string) (*ProjectSummary, error) {
	cursor, err := e.store.GetCursor(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to load cursor: %w", err)
	}
	if cursor == nil {
		return nil, &UnknownProjectError{Project: project}
	}
	stages, err := e.accessibleStages(cursor)
	if err != nil {
		return nil, err
	}
	return &ProjectSummary{Cursor: cursor, AccessibleStages: stages}, nil
}

// Events returns the project's persisted event log.
func (e *Engine) Events(ctx context.Context, project string) ([]*model.Event, error) {
	cursor, err := e.store.GetCursor(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to load cursor: %w", err)
	}
	if cursor == nil {
		return nil, &UnknownProjectError{Project: project}
	}
	return e.store.ListEvents(ctx, project)
}

func newGateFromTemplate(project string, def stage.Definition) (*model.GateRecord, error) {
	checklist := make([]model.ChecklistItem, 0, len(def.Gate.Checklist))
	for _, label := range def.Gate.Checklist {
		id, err := idgen.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate checklist item id: %w", err)
		}
		checklist = append(checklist, model.ChecklistItem{ID: id, Label: label})
	}
	return &model.GateRecord{
		Project:           project,
		StageID:           def.Stage.ID,
		Status:            model.GateNotStarted,
		RequiredApprovals: def.Gate.RequiredApprovals,
		TotalApprovers:    def.Gate.TotalApprovers,
		Checklist:         checklist,
	}, nil
}

// recordAndPublish persists an event and publishes it best-effort. The
// mutation itself has already committed; failures here are logged, not
// propagated.
func (e *Engine) recordAndPublish(ctx context.Context, topic, project, actor string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("failed to marshal event", "topic", topic, "project", project, "error", err)
		return
	}
	if err := e.store.RecordEvent(ctx, &model.Event{
		Project: project,
		Topic:   topic,
		Actor:   actor,
		Payload: payload,
	}); err != nil {
		slog.Warn("failed to record event", "topic", topic, "project", project, "error", err)
	}
	if err := e.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "project", project, "error", err)
	}
	if e.OnEvent != nil {
		e.OnEvent(topic, event)
	}
}

// loadCursor fetches a cursor inside a transaction, mapping a missing row
// to UnknownProjectError.
func loadCursor(ctx context.Context, tx store.Store, project string) (*model.Cursor, error) {
	cursor, err := tx.GetCursor(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to load cursor: %w", err)
	}
	if cursor == nil {
		return nil, &UnknownProjectError{Project: project}
	}
	return cursor, nil
}

// loadGate fetches a gate inside a transaction. Gates are seeded for every
// catalog stage at project creation, so a missing row means a missing
// project.
func loadGate(ctx context.Context, tx store.Store, g *stage.Graph, project, stageID string) (*model.GateRecord, error) {
	if _, err := g.Order(stageID); err != nil {
		return nil, err
	}
	gate, err := tx.GetGate(ctx, project, stageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load gate: %w", err)
	}
	if gate == nil {
		return nil, &UnknownProjectError{Project: project}
	}
	return gate, nil
}
