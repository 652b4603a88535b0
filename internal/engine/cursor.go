package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/forgeline/stageflow/internal/events"
	"github.com/forgeline/stageflow/internal/model"
	"github.com/forgeline/stageflow/internal/store"
)

// SetViewingStage moves one collaborator's browsing position. The stage must
// be at or before the project's current stage. The current stage is never
// touched.
func (e *Engine) SetViewingStage(ctx context.Context, project, user, stageID string) (*model.ViewState, error) {
	if strings.TrimSpace(user) == "" {
		return nil, InputError("user is required")
	}

	vs := &model.ViewState{Project: project, User: user, ViewingStage: stageID}

	err := e.store.RunInTransaction(ctx, func(tx store.Store) error {
		cursor, err := loadCursor(ctx, tx, project)
		if err != nil {
			return err
		}
		ok, err := e.graph.IsAccessible(stageID, cursor.CurrentStage)
		if err != nil {
			return err
		}
		if !ok {
			return &StageNotAccessibleError{Stage: stageID, Current: cursor.CurrentStage}
		}
		if err := tx.PutViewState(ctx, vs); err != nil {
			return fmt.Errorf("failed to save view state: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.recordAndPublish(ctx, events.TopicViewChanged, project, user, events.ViewChanged{
		Project: project,
		User:    user,
		Stage:   stageID,
	})
	return vs, nil
}

// AdvanceCurrentStage moves the project's current stage to the next catalog
// stage. It succeeds only when the current stage's gate has passed and a
// successor exists. Collaborators whose viewing stage was tracking the old
// current stage move along with it.
func (e *Engine) AdvanceCurrentStage(ctx context.Context, project, actor string) (*model.Cursor, error) {
	var cursor *model.Cursor
	var from, to string

	err := e.store.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		cursor, err = loadCursor(ctx, tx, project)
		if err != nil {
			return err
		}
		from = cursor.CurrentStage

		gate, err := loadGate(ctx, tx, e.graph, project, from)
		if err != nil {
			return err
		}
		if gate.Status != model.GatePassed {
			return &GateNotPassedError{Stage: from, Status: gate.Status}
		}

		next, ok, err := e.graph.Next(from)
		if err != nil {
			return err
		}
		if !ok {
			return &FinalStageError{Stage: from}
		}
		to = next

		cursor.CurrentStage = to
		cursor.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateCursor(ctx, cursor); err != nil {
			return fmt.Errorf("failed to update cursor: %w", err)
		}

		views, err := tx.ListViewStates(ctx, project)
		if err != nil {
			return fmt.Errorf("failed to list view states: %w", err)
		}
		for _, vs := range views {
			if vs.ViewingStage != from {
				continue
			}
			vs.ViewingStage = to
			if err := tx.PutViewState(ctx, vs); err != nil {
				return fmt.Errorf("failed to move view state for %q: %w", vs.User, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.recordAndPublish(ctx, events.TopicStageAdvanced, project, actor, events.StageAdvanced{
		Project: project,
		From:    from,
		To:      to,
	})
	return cursor, nil
}

// AccessibleStages returns the stages a collaborator may browse, in catalog
// order.
func (e *Engine) AccessibleStages(ctx context.Context, project string) ([]model.Stage, error) {
	cursor, err := e.store.GetCursor(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to load cursor: %w", err)
	}
	if cursor == nil {
		return nil, &UnknownProjectError{Project: project}
	}
	return e.accessibleStages(cursor)
}

func (e *Engine) accessibleStages(cursor *model.Cursor) ([]model.Stage, error) {
	limit, err := e.graph.Order(cursor.CurrentStage)
	if err != nil {
		return nil, err
	}
	var out []model.Stage
	for _, s := range e.graph.Stages() {
		if s.Order <= limit {
			out = append(out, s)
		}
	}
	return out, nil
}

// ViewingStageOf returns the stage a user is browsing. A user with no
// recorded view state tracks the current stage.
func (e *Engine) ViewingStageOf(ctx context.Context, project, user string) (string, error) {
	cursor, err := e.store.GetCursor(ctx, project)
	if err != nil {
		return "", fmt.Errorf("failed to load cursor: %w", err)
	}
	if cursor == nil {
		return "", &UnknownProjectError{Project: project}
	}
	if strings.TrimSpace(user) == "" {
		return cursor.CurrentStage, nil
	}
	vs, err := e.store.GetViewState(ctx, project, user)
	if err != nil {
		return "", fmt.Errorf("failed to load view state: %w", err)
	}
	if vs == nil {
		return cursor.CurrentStage, nil
	}
	return vs.ViewingStage, nil
}
