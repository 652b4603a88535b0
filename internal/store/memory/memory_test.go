package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/forgeline/stageflow/internal/model"
	"github.com/forgeline/stageflow/internal/store"
)

func TestCursorRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	got, err := s.GetCursor(ctx, "sf-missing")
	if err != nil {
		t.Fatalf("GetCursor: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing cursor, got %+v", got)
	}

	cursor := &model.Cursor{Project: "sf-abc", CurrentStage: "discover", CreatedAt: time.Now()}
	if err := s.CreateCursor(ctx, cursor); err != nil {
		t.Fatalf("CreateCursor: %v", err)
	}

	got, err = s.GetCursor(ctx, "sf-abc")
	if err != nil {
		t.Fatalf("GetCursor: %v", err)
	}
	if got == nil || got.CurrentStage != "discover" {
		t.Fatalf("unexpected cursor: %+v", got)
	}

	got.CurrentStage = "define"
	if err := s.UpdateCursor(ctx, got); err != nil {
		t.Fatalf("UpdateCursor: %v", err)
	}
	got, _ = s.GetCursor(ctx, "sf-abc")
	if got.CurrentStage != "define" {
		t.Fatalf("CurrentStage = %q, want define", got.CurrentStage)
	}
}

func TestListCursors(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, p := range []string{"sf-web", "sf-api"} {
		if err := s.CreateCursor(ctx, &model.Cursor{Project: p, CurrentStage: "discover"}); err != nil {
			t.Fatalf("CreateCursor(%s): %v", p, err)
		}
	}

	cursors, err := s.ListCursors(ctx)
	if err != nil {
		t.Fatalf("ListCursors: %v", err)
	}
	if len(cursors) != 2 {
		t.Fatalf("cursors = %d, want 2", len(cursors))
	}
	if cursors[0].Project != "sf-api" || cursors[1].Project != "sf-web" {
		t.Errorf("unexpected order: %s, %s", cursors[0].Project, cursors[1].Project)
	}
}

func TestViewStates(t *testing.T) {
	ctx := context.Background()
	s := New()

	vs, err := s.GetViewState(ctx, "sf-abc", "alice")
	if err != nil || vs != nil {
		t.Fatalf("expected (nil, nil) for missing view state, got (%+v, %v)", vs, err)
	}

	for _, v := range []*model.ViewState{
		{Project: "sf-abc", User: "bob", ViewingStage: "discover"},
		{Project: "sf-abc", User: "alice", ViewingStage: "define"},
	} {
		if err := s.PutViewState(ctx, v); err != nil {
			t.Fatalf("PutViewState: %v", err)
		}
	}

	list, err := s.ListViewStates(ctx, "sf-abc")
	if err != nil {
		t.Fatalf("ListViewStates: %v", err)
	}
	if len(list) != 2 || list[0].User != "alice" || list[1].User != "bob" {
		t.Fatalf("unexpected list: %+v", list)
	}

	// Upsert replaces in place.
	if err := s.PutViewState(ctx, &model.ViewState{Project: "sf-abc", User: "alice", ViewingStage: "discover"}); err != nil {
		t.Fatalf("PutViewState: %v", err)
	}
	vs, _ = s.GetViewState(ctx, "sf-abc", "alice")
	if vs.ViewingStage != "discover" {
		t.Fatalf("ViewingStage = %q, want discover", vs.ViewingStage)
	}
}

func TestGateIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()

	gate := &model.GateRecord{
		Project: "sf-abc",
		StageID: "design",
		Status:  model.GatePending,
		Checklist: []model.ChecklistItem{
			{ID: "c1", Label: "Wireframes reviewed"},
		},
	}
	if err := s.CreateGate(ctx, gate); err != nil {
		t.Fatalf("CreateGate: %v", err)
	}

	got, err := s.GetGate(ctx, "sf-abc", "design")
	if err != nil {
		t.Fatalf("GetGate: %v", err)
	}
	// Mutating the returned record must not change stored state.
	got.Checklist[0].Completed = true
	again, _ := s.GetGate(ctx, "sf-abc", "design")
	if again.Checklist[0].Completed {
		t.Fatal("stored gate mutated through returned copy")
	}
}

func TestCommitLedger(t *testing.T) {
	ctx := context.Background()
	s := New()

	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	commits := []*model.Commit{
		{Project: "sf-abc", StageID: "discover", Author: "alice", Message: "initial brief", Timestamp: ts,
			Artifacts: []model.CommitArtifact{{Name: "brief.md", ChangeSummary: "+40"}}},
		{Project: "sf-abc", StageID: "discover", Author: "bob", Message: "interview notes", Timestamp: ts.Add(time.Hour),
			Artifacts: []model.CommitArtifact{{Name: "interviews.md"}}},
		{Project: "sf-abc", StageID: "define", Author: "alice", Message: "revise brief", Timestamp: ts.Add(2 * time.Hour),
			Artifacts: []model.CommitArtifact{{Name: "brief.md", ChangeSummary: "+5 -2"}}},
	}
	for i, c := range commits {
		id, err := s.AppendCommit(ctx, c)
		if err != nil {
			t.Fatalf("AppendCommit: %v", err)
		}
		if id != int64(i+1) {
			t.Fatalf("commit id = %d, want %d", id, i+1)
		}
	}

	got, err := s.GetCommit(ctx, "sf-abc", 2)
	if err != nil {
		t.Fatalf("GetCommit: %v", err)
	}
	if got == nil || got.Author != "bob" {
		t.Fatalf("unexpected commit: %+v", got)
	}
	if missing, _ := s.GetCommit(ctx, "sf-abc", 99); missing != nil {
		t.Fatalf("expected nil for missing commit, got %+v", missing)
	}

	list, total, err := s.ListCommits(ctx, "sf-abc", model.CommitFilter{})
	if err != nil {
		t.Fatalf("ListCommits: %v", err)
	}
	if total != 3 || len(list) != 3 {
		t.Fatalf("total = %d, len = %d, want 3/3", total, len(list))
	}
	if list[0].ID != 3 || list[2].ID != 1 {
		t.Fatalf("expected newest first, got ids %d..%d", list[0].ID, list[2].ID)
	}

	list, total, err = s.ListCommits(ctx, "sf-abc", model.CommitFilter{Author: "alice", Limit: 1})
	if err != nil {
		t.Fatalf("ListCommits: %v", err)
	}
	if total != 2 || len(list) != 1 || list[0].ID != 3 {
		t.Fatalf("filtered list wrong: total=%d list=%+v", total, list)
	}

	head, err := s.ArtifactHead(ctx, "sf-abc", "brief.md")
	if err != nil {
		t.Fatalf("ArtifactHead: %v", err)
	}
	if head != 3 {
		t.Fatalf("ArtifactHead = %d, want 3", head)
	}
	if head, _ := s.ArtifactHead(ctx, "sf-abc", "unknown.md"); head != 0 {
		t.Fatalf("ArtifactHead for unknown = %d, want 0", head)
	}

	arts, err := s.ListArtifacts(ctx, "sf-abc")
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	if len(arts) != 2 {
		t.Fatalf("len(artifacts) = %d, want 2", len(arts))
	}
	if arts[0].Name != "brief.md" || arts[0].LastCommitID != 3 || arts[0].StageID != "define" {
		t.Fatalf("unexpected artifact state: %+v", arts[0])
	}
}

func TestCommitIDsPerProject(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, proj := range []string{"sf-a", "sf-b"} {
		id, err := s.AppendCommit(ctx, &model.Commit{
			Project: proj, StageID: "discover", Author: "alice", Message: "first",
			Artifacts: []model.CommitArtifact{{Name: "brief.md"}},
		})
		if err != nil {
			t.Fatalf("AppendCommit: %v", err)
		}
		if id != 1 {
			t.Fatalf("first id for %s = %d, want 1", proj, id)
		}
	}
}

func TestTransactionRollback(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.CreateCursor(ctx, &model.Cursor{Project: "sf-abc", CurrentStage: "discover"}); err != nil {
		t.Fatalf("CreateCursor: %v", err)
	}

	boom := errors.New("boom")
	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		c, err := tx.GetCursor(ctx, "sf-abc")
		if err != nil {
			return err
		}
		c.CurrentStage = "define"
		if err := tx.UpdateCursor(ctx, c); err != nil {
			return err
		}
		if _, err := tx.AppendCommit(ctx, &model.Commit{
			Project: "sf-abc", StageID: "discover", Author: "alice", Message: "doomed",
			Artifacts: []model.CommitArtifact{{Name: "brief.md"}},
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	c, _ := s.GetCursor(ctx, "sf-abc")
	if c.CurrentStage != "discover" {
		t.Fatalf("transaction leaked: CurrentStage = %q", c.CurrentStage)
	}
	if _, total, _ := s.ListCommits(ctx, "sf-abc", model.CommitFilter{}); total != 0 {
		t.Fatalf("transaction leaked: %d commits", total)
	}
}

func TestTransactionCommit(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.CreateCursor(ctx, &model.Cursor{Project: "sf-abc", CurrentStage: "discover"}); err != nil {
			return err
		}
		return tx.RecordEvent(ctx, &model.Event{Project: "sf-abc", Topic: "stageflow.project.created", Actor: "alice"})
	})
	if err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}

	c, _ := s.GetCursor(ctx, "sf-abc")
	if c == nil {
		t.Fatal("cursor not persisted after commit")
	}
	events, _ := s.ListEvents(ctx, "sf-abc")
	if len(events) != 1 || events[0].ID != 1 {
		t.Fatalf("unexpected events: %+v", events)
	}
}
