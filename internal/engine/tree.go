package engine

import (
	"context"
	"fmt"

	"github.com/forgeline/stageflow/internal/model"
)

// VisibleArtifactTree builds the stage-folder listing exposed to the editing
// surface for one user: every stage at or before the user's viewing stage,
// each with the latest ledger state of its artifacts. Folders past the
// viewing stage are omitted entirely.
func (e *Engine) VisibleArtifactTree(ctx context.Context, project, user string) (*model.ArtifactTree, error) {
	viewing, err := e.ViewingStageOf(ctx, project, user)
	if err != nil {
		return nil, err
	}
	limit, err := e.graph.Order(viewing)
	if err != nil {
		return nil, err
	}

	arts, err := e.store.ListArtifacts(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	byStage := make(map[string][]model.ArtifactNode)
	for _, a := range arts {
		byStage[a.StageID] = append(byStage[a.StageID], model.ArtifactNode{
			Name:         a.Name,
			LastCommitID: a.LastCommitID,
			LastAuthor:   a.LastAuthor,
			LastEditedAt: a.LastEditedAt,
		})
	}

	tree := &model.ArtifactTree{Project: project, ViewingStage: viewing}
	for _, s := range e.graph.Stages() {
		if s.Order > limit {
			break
		}
		tree.Folders = append(tree.Folders, model.StageFolder{
			StageID:   s.ID,
			Name:      s.Name,
			Artifacts: byStage[s.ID],
		})
	}
	return tree, nil
}
