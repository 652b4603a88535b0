// Package snapshot periodically exports the full workflow state as JSONL to
// one or more destinations (S3, git).
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/forgeline/stageflow/internal/model"
	"github.com/forgeline/stageflow/internal/store"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version      string    `json:"version"`
	Type         string    `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	ProjectCount int       `json:"project_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes every project's cursor, view states, gates, commits,
// and events from the store as JSONL to w. Projects are ordered by id;
// commits and events are in ledger order within each project.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	cursors, err := s.ListCursors(ctx)
	if err != nil {
		return fmt.Errorf("list cursors: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:      "1",
		Type:         "header",
		Timestamp:    time.Now().UTC(),
		ProjectCount: len(cursors),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, cursor := range cursors {
		project := cursor.Project

		if err := enc.Encode(record{Type: "cursor", Data: cursor}); err != nil {
			return fmt.Errorf("encode cursor for %s: %w", project, err)
		}

		views, err := s.ListViewStates(ctx, project)
		if err != nil {
			return fmt.Errorf("list view states for %s: %w", project, err)
		}
		for _, vs := range views {
			if err := enc.Encode(record{Type: "view_state", Data: vs}); err != nil {
				return fmt.Errorf("encode view state for %s: %w", project, err)
			}
		}

		gates, err := s.ListGates(ctx, project)
		if err != nil {
			return fmt.Errorf("list gates for %s: %w", project, err)
		}
		for _, g := range gates {
			if err := enc.Encode(record{Type: "gate", Data: g}); err != nil {
				return fmt.Errorf("encode gate %s for %s: %w", g.StageID, project, err)
			}
		}

		commits, _, err := s.ListCommits(ctx, project, model.CommitFilter{})
		if err != nil {
			return fmt.Errorf("list commits for %s: %w", project, err)
		}
		// ListCommits returns newest first; the snapshot keeps ledger order.
		for i := len(commits) - 1; i >= 0; i-- {
			if err := enc.Encode(record{Type: "commit", Data: commits[i]}); err != nil {
				return fmt.Errorf("encode commit %d for %s: %w", commits[i].ID, project, err)
			}
		}

		events, err := s.ListEvents(ctx, project)
		if err != nil {
			return fmt.Errorf("list events for %s: %w", project, err)
		}
		for _, e := range events {
			if err := enc.Encode(record{Type: "event", Data: e}); err != nil {
				return fmt.Errorf("encode event %d for %s: %w", e.ID, project, err)
			}
		}
	}

	return nil
}
