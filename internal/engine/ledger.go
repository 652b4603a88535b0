package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/forgeline/stageflow/internal/events"
	"github.com/forgeline/stageflow/internal/model"
	"github.com/forgeline/stageflow/internal/store"
)

// CommitInput is a request to append a commit to the ledger. BaseVersions
// maps each artifact name to the commit id the author's copy was based on;
// zero (or a missing entry) means the artifact is new.
type CommitInput struct {
	Project      string                 `json:"project"`
	Stage        string                 `json:"stage"`
	Author       string                 `json:"author"`
	Message      string                 `json:"message"`
	Description  string                 `json:"description,omitempty"`
	Artifacts    []model.CommitArtifact `json:"artifacts"`
	LinkedItems  []model.LinkedItem     `json:"linked_items,omitempty"`
	BaseVersions map[string]int64       `json:"base_versions,omitempty"`
}

// Commit appends a new immutable commit. Each artifact's base version must
// match the ledger head for that artifact; a stale base is rejected and the
// author must re-fetch.
func (e *Engine) Commit(ctx context.Context, in CommitInput) (*model.Commit, error) {
	commit := &model.Commit{
		Project:     in.Project,
		StageID:     in.Stage,
		Author:      in.Author,
		Message:     in.Message,
		Description: in.Description,
		Artifacts:   in.Artifacts,
		LinkedItems: in.LinkedItems,
		Timestamp:   time.Now().UTC(),
	}
	if err := model.ValidateCommitRequest(commit); err != nil {
		return nil, err
	}

	err := e.store.RunInTransaction(ctx, func(tx store.Store) error {
		cursor, err := loadCursor(ctx, tx, in.Project)
		if err != nil {
			return err
		}
		ok, err := e.graph.IsAccessible(in.Stage, cursor.CurrentStage)
		if err != nil {
			return err
		}
		if !ok {
			return &StageNotAccessibleError{Stage: in.Stage, Current: cursor.CurrentStage}
		}

		for _, a := range commit.Artifacts {
			head, err := tx.ArtifactHead(ctx, in.Project, a.Name)
			if err != nil {
				return fmt.Errorf("failed to read head for artifact %q: %w", a.Name, err)
			}
			base := in.BaseVersions[a.Name]
			if head != base {
				return &StaleCommitError{Artifact: a.Name, Base: base, Head: head}
			}
		}

		id, err := tx.AppendCommit(ctx, commit)
		if err != nil {
			return fmt.Errorf("failed to append commit: %w", err)
		}
		commit.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.recordAndPublish(ctx, events.TopicCommitCreated, in.Project, in.Author, events.CommitCreated{Commit: commit})
	return commit, nil
}

// History returns commits newest first, optionally filtered by stage and
// author, with limit/offset paging. The second return is the total match
// count before paging.
func (e *Engine) History(ctx context.Context, project string, filter model.CommitFilter) ([]*model.Commit, int, error) {
	cursor, err := e.store.GetCursor(ctx, project)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load cursor: %w", err)
	}
	if cursor == nil {
		return nil, 0, &UnknownProjectError{Project: project}
	}
	if filter.Stage != "" {
		if _, err := e.graph.Order(filter.Stage); err != nil {
			return nil, 0, err
		}
	}
	return e.store.ListCommits(ctx, project, filter)
}

// CommitByID reads a single commit from the ledger.
func (e *Engine) CommitByID(ctx context.Context, project string, id int64) (*model.Commit, error) {
	commit, err := e.store.GetCommit(ctx, project, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit: %w", err)
	}
	if commit == nil {
		return nil, &UnknownCommitError{Project: project, ID: id}
	}
	return commit, nil
}

// Artifacts returns the latest ledger state of every artifact in a project.
func (e *Engine) Artifacts(ctx context.Context, project string) ([]*model.ArtifactState, error) {
	cursor, err := e.store.GetCursor(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to load cursor: %w", err)
	}
	if cursor == nil {
		return nil, &UnknownProjectError{Project: project}
	}
	return e.store.ListArtifacts(ctx, project)
}

// Rollback restores artifact state as of a prior commit by appending a new
// commit referencing it. History is never mutated or deleted. The caller
// must confirm with the target commit id rendered in decimal; interactive
// confirmation is the caller's job, never the engine's. If the target
// commit's stage gate had passed, it is reopened.
func (e *Engine) Rollback(ctx context.Context, project string, commitID int64, actor, confirm string) (*model.Commit, error) {
	if confirm != strconv.FormatInt(commitID, 10) {
		return nil, &RollbackNotConfirmedError{ID: commitID}
	}

	var rollback *model.Commit
	reverted := 0
	reopened := false
	var target *model.Commit

	err := e.store.RunInTransaction(ctx, func(tx store.Store) error {
		if _, err := loadCursor(ctx, tx, project); err != nil {
			return err
		}

		var err error
		target, err = tx.GetCommit(ctx, project, commitID)
		if err != nil {
			return fmt.Errorf("failed to load commit: %w", err)
		}
		if target == nil {
			return &UnknownCommitError{Project: project, ID: commitID}
		}

		// Artifacts touched after the target are the ones being restored.
		later, _, err := tx.ListCommits(ctx, project, model.CommitFilter{})
		if err != nil {
			return fmt.Errorf("failed to list commits: %w", err)
		}
		touched := make(map[string]bool)
		var restored []model.CommitArtifact
		for _, c := range later {
			if c.ID <= commitID {
				continue
			}
			reverted++
			for _, a := range c.Artifacts {
				if touched[a.Name] {
					continue
				}
				touched[a.Name] = true
				restored = append(restored, model.CommitArtifact{
					Name:          a.Name,
					ChangeSummary: fmt.Sprintf("restored to commit %d", commitID),
				})
			}
		}
		if len(restored) == 0 {
			for _, a := range target.Artifacts {
				restored = append(restored, model.CommitArtifact{Name: a.Name, ChangeSummary: "unchanged"})
			}
		}

		id := commitID
		rollback = &model.Commit{
			Project:    project,
			StageID:    target.StageID,
			Author:     actor,
			Message:    fmt.Sprintf("Rollback to commit %d", commitID),
			Timestamp:  time.Now().UTC(),
			Artifacts:  restored,
			RollbackOf: &id,
		}
		newID, err := tx.AppendCommit(ctx, rollback)
		if err != nil {
			return fmt.Errorf("failed to append rollback commit: %w", err)
		}
		rollback.ID = newID

		gate, err := loadGate(ctx, tx, e.graph, project, target.StageID)
		if err != nil {
			return err
		}
		if gate.Status == model.GatePassed {
			gate.Status = model.GatePending
			if err := tx.SaveGate(ctx, gate); err != nil {
				return fmt.Errorf("failed to reopen gate: %w", err)
			}
			reopened = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.recordAndPublish(ctx, events.TopicCommitRolledBack, project, actor, events.CommitRolledBack{
		Commit:   rollback,
		Target:   commitID,
		Reverted: reverted,
	})
	if reopened {
		e.recordAndPublish(ctx, events.TopicGateReopened, project, actor, events.GateReopened{
			Project: project,
			StageID: target.StageID,
			Reason:  fmt.Sprintf("rollback to commit %d", commitID),
		})
	}
	return rollback, nil
}
