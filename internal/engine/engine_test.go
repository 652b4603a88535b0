package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/forgeline/stageflow/internal/events"
	"github.com/forgeline/stageflow/internal/model"
	"github.com/forgeline/stageflow/internal/stage"
	"github.com/forgeline/stageflow/internal/store/memory"
)

const testProject = "sf-test"

// newTestEngine builds an engine over an in-memory store with a four-stage
// catalog. The design gate needs three approvals and has a six-item
// checklist; the others are deliberately light so tests can pass them fast.
func newTestEngine(t *testing.T) (*Engine, *memory.MemoryStore) {
	t.Helper()

	graph, err := stage.New([]stage.Definition{
		{Stage: model.Stage{ID: "discover", Order: 1, Name: "Discover"},
			Gate: stage.GateTemplate{RequiredApprovals: 0, TotalApprovers: 1, Checklist: []string{"Brief written"}}},
		{Stage: model.Stage{ID: "define", Order: 2, Name: "Define"},
			Gate: stage.GateTemplate{RequiredApprovals: 1, TotalApprovers: 2, Checklist: []string{"Requirements agreed"}}},
		{Stage: model.Stage{ID: "design", Order: 3, Name: "Design"},
			Gate: stage.GateTemplate{RequiredApprovals: 3, TotalApprovers: 5, Checklist: []string{
				"Wireframes reviewed", "Design tokens set", "Accessibility pass",
				"Architecture diagram completed", "API contract drafted", "Review meeting held",
			}}},
		{Stage: model.Stage{ID: "develop", Order: 4, Name: "Develop"},
			Gate: stage.GateTemplate{RequiredApprovals: 1, TotalApprovers: 2, Checklist: []string{"Feature complete"}}},
	})
	if err != nil {
		t.Fatalf("stage.New: %v", err)
	}

	st := memory.New()
	eng := New(st, graph, &events.NoopPublisher{})
	if _, err := eng.CreateProject(context.Background(), testProject); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return eng, st
}

// passGate drives a gate to passed: completes every checklist item and
// submits the required approvals.
func passGate(t *testing.T, eng *Engine, stageID string) {
	t.Helper()
	ctx := context.Background()

	gate, err := eng.Gate(ctx, testProject, stageID)
	if err != nil {
		t.Fatalf("Gate(%s): %v", stageID, err)
	}
	for _, item := range gate.Checklist {
		if _, err := eng.ToggleChecklistItem(ctx, testProject, stageID, item.ID, true, "alice"); err != nil {
			t.Fatalf("ToggleChecklistItem(%s, %s): %v", stageID, item.ID, err)
		}
	}
	for i := 0; i < gate.RequiredApprovals; i++ {
		user := fmt.Sprintf("approver-%d", i)
		if _, err := eng.SubmitApproval(ctx, testProject, stageID, user, "reviewer", model.DecisionApproved, "looks good"); err != nil {
			t.Fatalf("SubmitApproval(%s, %s): %v", stageID, user, err)
		}
	}

	gate, err = eng.Gate(ctx, testProject, stageID)
	if err != nil {
		t.Fatalf("Gate(%s): %v", stageID, err)
	}
	if gate.Status != model.GatePassed {
		t.Fatalf("gate %s status = %s, want passed", stageID, gate.Status)
	}
}

// advanceTo passes gates and advances until the current stage is stageID.
func advanceTo(t *testing.T, eng *Engine, stageID string) {
	t.Helper()
	ctx := context.Background()

	for {
		summary, err := eng.Project(ctx, testProject)
		if err != nil {
			t.Fatalf("Project: %v", err)
		}
		if summary.Cursor.CurrentStage == stageID {
			return
		}
		passGate(t, eng, summary.Cursor.CurrentStage)
		if _, err := eng.AdvanceCurrentStage(ctx, testProject, "alice"); err != nil {
			t.Fatalf("AdvanceCurrentStage: %v", err)
		}
	}
}

func TestCreateProject(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	summary, err := eng.Project(ctx, testProject)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if summary.Cursor.CurrentStage != "discover" {
		t.Errorf("CurrentStage = %q, want discover", summary.Cursor.CurrentStage)
	}
	if len(summary.AccessibleStages) != 1 || summary.AccessibleStages[0].ID != "discover" {
		t.Errorf("AccessibleStages = %+v, want [discover]", summary.AccessibleStages)
	}

	gates, err := eng.Gates(ctx, testProject)
	if err != nil {
		t.Fatalf("Gates: %v", err)
	}
	if len(gates) != 4 {
		t.Fatalf("len(gates) = %d, want 4", len(gates))
	}
	design := gates[2]
	if design.StageID != "design" || design.RequiredApprovals != 3 || len(design.Checklist) != 6 {
		t.Errorf("unexpected design gate: %+v", design)
	}
	if design.Status != model.GateNotStarted {
		t.Errorf("initial status = %s, want not_started", design.Status)
	}
	for _, item := range design.Checklist {
		if item.ID == "" || item.Completed {
			t.Errorf("bad seeded checklist item: %+v", item)
		}
	}

	if _, err := eng.CreateProject(ctx, testProject); err == nil {
		t.Fatal("expected ProjectExistsError on duplicate create")
	} else {
		var exists *ProjectExistsError
		if !errors.As(err, &exists) {
			t.Fatalf("error = %v, want ProjectExistsError", err)
		}
	}

	var unknown *UnknownProjectError
	if _, err := eng.Project(ctx, "sf-nope"); !errors.As(err, &unknown) {
		t.Fatalf("error = %v, want UnknownProjectError", err)
	}
}

func TestGatePassCondition(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	advanceTo(t, eng, "design")

	gate, _ := eng.Gate(ctx, testProject, "design")

	// 4 of 6 checklist items complete, 2 approvals: ready, not passed.
	for _, item := range gate.Checklist[:4] {
		if _, err := eng.ToggleChecklistItem(ctx, testProject, "design", item.ID, true, "alice"); err != nil {
			t.Fatalf("ToggleChecklistItem: %v", err)
		}
	}
	for _, user := range []string{"maya", "ravi"} {
		if _, err := eng.SubmitApproval(ctx, testProject, "design", user, "reviewer", model.DecisionApproved, "approved"); err != nil {
			t.Fatalf("SubmitApproval: %v", err)
		}
	}
	got, _ := eng.Gate(ctx, testProject, "design")
	if got.Status != model.GateReady {
		t.Fatalf("status = %s, want ready", got.Status)
	}

	// Completing the remaining items and a third approval flips it to passed.
	for _, item := range gate.Checklist[4:] {
		if _, err := eng.ToggleChecklistItem(ctx, testProject, "design", item.ID, true, "alice"); err != nil {
			t.Fatalf("ToggleChecklistItem: %v", err)
		}
	}
	got, err := eng.SubmitApproval(ctx, testProject, "design", "imani", "lead", model.DecisionApproved, "ship it")
	if err != nil {
		t.Fatalf("SubmitApproval: %v", err)
	}
	if got.Status != model.GatePassed {
		t.Fatalf("status = %s, want passed", got.Status)
	}

	// passed is sticky: a rejection on a passed gate is refused.
	var alreadyPassed *GateAlreadyPassedError
	if _, err := eng.SubmitApproval(ctx, testProject, "design", "maya", "reviewer", model.DecisionRejected, "changed my mind"); !errors.As(err, &alreadyPassed) {
		t.Fatalf("error = %v, want GateAlreadyPassedError", err)
	}
	if _, err := eng.ToggleChecklistItem(ctx, testProject, "design", gate.Checklist[0].ID, false, "maya"); !errors.As(err, &alreadyPassed) {
		t.Fatalf("error = %v, want GateAlreadyPassedError", err)
	}
	got, _ = eng.Gate(ctx, testProject, "design")
	if got.Status != model.GatePassed {
		t.Fatalf("status after refused mutations = %s, want passed", got.Status)
	}
}

func TestApprovalUpsertAndBlankComment(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	advanceTo(t, eng, "design")

	if _, err := eng.SubmitApproval(ctx, testProject, "design", "maya", "reviewer", model.DecisionApproved, "first pass"); err != nil {
		t.Fatalf("SubmitApproval: %v", err)
	}
	gate, _ := eng.Gate(ctx, testProject, "design")
	firstID := gate.Approvals[0].ID

	// Same user again replaces in place, keeping the id and position.
	if _, err := eng.SubmitApproval(ctx, testProject, "design", "maya", "reviewer", model.DecisionRejected, "found a gap"); err != nil {
		t.Fatalf("SubmitApproval: %v", err)
	}
	gate, _ = eng.Gate(ctx, testProject, "design")
	if len(gate.Approvals) != 1 {
		t.Fatalf("len(approvals) = %d, want 1", len(gate.Approvals))
	}
	if gate.Approvals[0].ID != firstID || gate.Approvals[0].Status != model.DecisionRejected {
		t.Fatalf("unexpected approval after upsert: %+v", gate.Approvals[0])
	}
	if gate.ApprovedCount() != 0 {
		t.Fatalf("ApprovedCount = %d, want 0", gate.ApprovedCount())
	}
	// A rejection does not fail the gate by itself.
	if gate.Status == model.GateFailed {
		t.Fatal("rejection must not set failed")
	}

	// Blank comment: rejected, no state change.
	before, _ := eng.Gate(ctx, testProject, "design")
	if _, err := eng.SubmitApproval(ctx, testProject, "design", "ravi", "reviewer", model.DecisionApproved, "   "); !errors.Is(err, ErrEmptyComment) {
		t.Fatalf("error = %v, want ErrEmptyComment", err)
	}
	after, _ := eng.Gate(ctx, testProject, "design")
	if len(after.Approvals) != len(before.Approvals) || after.Status != before.Status {
		t.Fatal("blank-comment submission changed gate state")
	}
}

func TestChecklistToggle(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	gate, _ := eng.Gate(ctx, testProject, "discover")
	itemID := gate.Checklist[0].ID

	got, err := eng.ToggleChecklistItem(ctx, testProject, "discover", itemID, true, "alice")
	if err != nil {
		t.Fatalf("ToggleChecklistItem: %v", err)
	}
	item := got.Checklist[0]
	if !item.Completed || item.CompletedBy != "alice" || item.CompletedAt == nil {
		t.Fatalf("unexpected item after toggle on: %+v", item)
	}

	var unknownItem *UnknownChecklistItemError
	if _, err := eng.ToggleChecklistItem(ctx, testProject, "discover", "sf-bogus", true, "alice"); !errors.As(err, &unknownItem) {
		t.Fatalf("error = %v, want UnknownChecklistItemError", err)
	}
}

func TestChecklistToggleOffClearsAttribution(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	advanceTo(t, eng, "define")

	gate, _ := eng.Gate(ctx, testProject, "define")
	itemID := gate.Checklist[0].ID
	if _, err := eng.ToggleChecklistItem(ctx, testProject, "define", itemID, true, "alice"); err != nil {
		t.Fatalf("ToggleChecklistItem: %v", err)
	}
	got, err := eng.ToggleChecklistItem(ctx, testProject, "define", itemID, false, "bob")
	if err != nil {
		t.Fatalf("ToggleChecklistItem: %v", err)
	}
	item := got.Checklist[0]
	if item.Completed || item.CompletedBy != "" || item.CompletedAt != nil {
		t.Fatalf("toggle off did not clear attribution: %+v", item)
	}
	if got.Status != model.GatePending {
		t.Fatalf("status = %s, want pending after all work undone", got.Status)
	}
}

func TestAutoChecksGatePass(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	// discover needs zero approvals: checklist plus passing checks auto-pass it.
	if _, err := eng.RecordAutoCheck(ctx, testProject, "discover", model.AutoCheck{ID: "lint", Label: "Lint", Passed: false}); err != nil {
		t.Fatalf("RecordAutoCheck: %v", err)
	}
	gate, _ := eng.Gate(ctx, testProject, "discover")
	if _, err := eng.ToggleChecklistItem(ctx, testProject, "discover", gate.Checklist[0].ID, true, "alice"); err != nil {
		t.Fatalf("ToggleChecklistItem: %v", err)
	}
	gate, _ = eng.Gate(ctx, testProject, "discover")
	if gate.Status != model.GateReady {
		t.Fatalf("status = %s, want ready while a check is failing", gate.Status)
	}

	// Upsert by id: the same check flipping to passed completes the gate.
	score := 0.97
	gate, err := eng.RecordAutoCheck(ctx, testProject, "discover", model.AutoCheck{ID: "lint", Label: "Lint", Passed: true, Score: &score})
	if err != nil {
		t.Fatalf("RecordAutoCheck: %v", err)
	}
	if len(gate.AutoChecks) != 1 {
		t.Fatalf("len(autoChecks) = %d, want 1 after upsert", len(gate.AutoChecks))
	}
	if gate.Status != model.GatePassed {
		t.Fatalf("status = %s, want passed", gate.Status)
	}
}

func TestSignalAndReopen(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	advanceTo(t, eng, "define")

	var invalid *InvalidGateSignalError
	if _, err := eng.SignalGate(ctx, testProject, "define", model.GateReady, "ops", ""); !errors.As(err, &invalid) {
		t.Fatalf("error = %v, want InvalidGateSignalError", err)
	}

	gate, err := eng.SignalGate(ctx, testProject, "define", model.GateBlocked, "ops", "waiting on legal")
	if err != nil {
		t.Fatalf("SignalGate: %v", err)
	}
	if gate.Status != model.GateBlocked {
		t.Fatalf("status = %s, want blocked", gate.Status)
	}

	// blocked survives ordinary mutations until the pass condition is met.
	gate, _ = eng.Gate(ctx, testProject, "define")
	if gate, err = eng.ToggleChecklistItem(ctx, testProject, "define", gate.Checklist[0].ID, true, "alice"); err != nil {
		t.Fatalf("ToggleChecklistItem: %v", err)
	}
	if gate.Status != model.GateBlocked {
		t.Fatalf("status = %s, want blocked preserved", gate.Status)
	}
	gate, err = eng.SubmitApproval(ctx, testProject, "define", "maya", "reviewer", model.DecisionApproved, "unblocked and fine")
	if err != nil {
		t.Fatalf("SubmitApproval: %v", err)
	}
	if gate.Status != model.GatePassed {
		t.Fatalf("status = %s, want passed once condition met", gate.Status)
	}

	// reopen is the only way out of passed.
	gate, err = eng.Reopen(ctx, testProject, "define", "alice", "late requirement change")
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if gate.Status != model.GatePending {
		t.Fatalf("status = %s, want pending after reopen", gate.Status)
	}
	if len(gate.Approvals) != 1 || !gate.Checklist[0].Completed {
		t.Fatal("reopen must keep checklist and approvals")
	}
}

func TestSetViewingStage(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	advanceTo(t, eng, "design")

	var notAccessible *StageNotAccessibleError
	if _, err := eng.SetViewingStage(ctx, testProject, "priya", "develop"); !errors.As(err, &notAccessible) {
		t.Fatalf("error = %v, want StageNotAccessibleError", err)
	}

	vs, err := eng.SetViewingStage(ctx, testProject, "priya", "define")
	if err != nil {
		t.Fatalf("SetViewingStage: %v", err)
	}
	if vs.ViewingStage != "define" {
		t.Fatalf("ViewingStage = %q, want define", vs.ViewingStage)
	}

	// Viewing never moves the current stage.
	summary, _ := eng.Project(ctx, testProject)
	if summary.Cursor.CurrentStage != "design" {
		t.Fatalf("CurrentStage = %q, want design", summary.Cursor.CurrentStage)
	}

	// Another user is unaffected and defaults to the current stage.
	viewing, err := eng.ViewingStageOf(ctx, testProject, "omar")
	if err != nil {
		t.Fatalf("ViewingStageOf: %v", err)
	}
	if viewing != "design" {
		t.Fatalf("ViewingStageOf(omar) = %q, want design", viewing)
	}
}

func TestAdvanceCurrentStage(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	var notPassed *GateNotPassedError
	if _, err := eng.AdvanceCurrentStage(ctx, testProject, "alice"); !errors.As(err, &notPassed) {
		t.Fatalf("error = %v, want GateNotPassedError", err)
	}

	passGate(t, eng, "discover")

	// priya tracks the current stage implicitly; omar pinned an earlier view.
	if _, err := eng.SetViewingStage(ctx, testProject, "priya", "discover"); err != nil {
		t.Fatalf("SetViewingStage: %v", err)
	}

	cursor, err := eng.AdvanceCurrentStage(ctx, testProject, "alice")
	if err != nil {
		t.Fatalf("AdvanceCurrentStage: %v", err)
	}
	if cursor.CurrentStage != "define" {
		t.Fatalf("CurrentStage = %q, want define", cursor.CurrentStage)
	}

	// A view state tracking the old current stage moves along with it.
	viewing, _ := eng.ViewingStageOf(ctx, testProject, "priya")
	if viewing != "define" {
		t.Fatalf("ViewingStageOf(priya) = %q, want define", viewing)
	}

	stages, _ := eng.AccessibleStages(ctx, testProject)
	if len(stages) != 2 || stages[1].ID != "define" {
		t.Fatalf("AccessibleStages = %+v, want [discover define]", stages)
	}
}

func TestAdvanceAtFinalStage(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	advanceTo(t, eng, "develop")
	passGate(t, eng, "develop")

	var final *FinalStageError
	if _, err := eng.AdvanceCurrentStage(ctx, testProject, "alice"); !errors.As(err, &final) {
		t.Fatalf("error = %v, want FinalStageError", err)
	}
}

func TestCommitAndStaleBase(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	advanceTo(t, eng, "design")

	first, err := eng.Commit(ctx, CommitInput{
		Project: testProject,
		Stage:   "design",
		Author:  "priya",
		Message: "initial diagram",
		Artifacts: []model.CommitArtifact{
			{Name: "architecture.md", ChangeSummary: "+120"},
		},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if first.ID != 1 {
		t.Fatalf("first commit id = %d, want 1", first.ID)
	}

	// Priya updates from the current head.
	second, err := eng.Commit(ctx, CommitInput{
		Project: testProject,
		Stage:   "design",
		Author:  "priya",
		Message: "update diagram",
		Artifacts: []model.CommitArtifact{
			{Name: "architecture.md", ChangeSummary: "+15 -3"},
		},
		BaseVersions: map[string]int64{"architecture.md": first.ID},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	// A second author still based on the first commit is stale.
	var stale *StaleCommitError
	_, err = eng.Commit(ctx, CommitInput{
		Project: testProject,
		Stage:   "design",
		Author:  "omar",
		Message: "tweak diagram",
		Artifacts: []model.CommitArtifact{
			{Name: "architecture.md", ChangeSummary: "+2 -2"},
		},
		BaseVersions: map[string]int64{"architecture.md": first.ID},
	})
	if !errors.As(err, &stale) {
		t.Fatalf("error = %v, want StaleCommitError", err)
	}
	if stale.Artifact != "architecture.md" || stale.Base != first.ID || stale.Head != second.ID {
		t.Fatalf("unexpected conflict detail: %+v", stale)
	}

	// Commits to an inaccessible stage are refused.
	var notAccessible *StageNotAccessibleError
	_, err = eng.Commit(ctx, CommitInput{
		Project:   testProject,
		Stage:     "develop",
		Author:    "omar",
		Message:   "too early",
		Artifacts: []model.CommitArtifact{{Name: "main.go"}},
	})
	if !errors.As(err, &notAccessible) {
		t.Fatalf("error = %v, want StageNotAccessibleError", err)
	}
}

func TestHistoryFilters(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	advanceTo(t, eng, "define")

	base := map[string]int64{}
	for i, c := range []struct{ stage, author, name string }{
		{"discover", "alice", "brief.md"},
		{"discover", "bob", "interviews.md"},
		{"define", "alice", "requirements.md"},
	} {
		commit, err := eng.Commit(ctx, CommitInput{
			Project:      testProject,
			Stage:        c.stage,
			Author:       c.author,
			Message:      fmt.Sprintf("commit %d", i+1),
			Artifacts:    []model.CommitArtifact{{Name: c.name}},
			BaseVersions: base,
		})
		if err != nil {
			t.Fatalf("Commit: %v", err)
		}
		base[c.name] = commit.ID
	}

	all, total, err := eng.History(ctx, testProject, model.CommitFilter{})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if total != 3 || all[0].ID != 3 {
		t.Fatalf("unexpected history: total=%d first=%d", total, all[0].ID)
	}

	byStage, total, err := eng.History(ctx, testProject, model.CommitFilter{Stage: "discover"})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if total != 2 || len(byStage) != 2 {
		t.Fatalf("stage filter: total=%d len=%d, want 2/2", total, len(byStage))
	}

	byAuthor, total, err := eng.History(ctx, testProject, model.CommitFilter{Author: "alice", Limit: 1})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if total != 2 || len(byAuthor) != 1 || byAuthor[0].StageID != "define" {
		t.Fatalf("author filter: total=%d list=%+v", total, byAuthor)
	}

	var unknownStage *stage.UnknownStageError
	if _, _, err := eng.History(ctx, testProject, model.CommitFilter{Stage: "shipping"}); !errors.As(err, &unknownStage) {
		t.Fatalf("error = %v, want UnknownStageError", err)
	}
}

func TestRollback(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	advanceTo(t, eng, "develop")

	// Two design commits; the design gate passed on the way to develop.
	first, err := eng.Commit(ctx, CommitInput{
		Project:   testProject,
		Stage:     "design",
		Author:    "priya",
		Message:   "initial diagram",
		Artifacts: []model.CommitArtifact{{Name: "architecture.md"}},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := eng.Commit(ctx, CommitInput{
		Project:      testProject,
		Stage:        "design",
		Author:       "omar",
		Message:      "rework diagram",
		Artifacts:    []model.CommitArtifact{{Name: "architecture.md"}},
		BaseVersions: map[string]int64{"architecture.md": first.ID},
	}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	// Wrong confirmation token: refused, nothing appended.
	var notConfirmed *RollbackNotConfirmedError
	if _, err := eng.Rollback(ctx, testProject, first.ID, "priya", "yes"); !errors.As(err, &notConfirmed) {
		t.Fatalf("error = %v, want RollbackNotConfirmedError", err)
	}
	if _, total, _ := eng.History(ctx, testProject, model.CommitFilter{}); total != 2 {
		t.Fatalf("refused rollback changed history: %d commits", total)
	}

	rollback, err := eng.Rollback(ctx, testProject, first.ID, "priya", "1")
	if err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if !rollback.IsRollback() || *rollback.RollbackOf != first.ID {
		t.Fatalf("unexpected rollback commit: %+v", rollback)
	}
	if rollback.StageID != "design" {
		t.Fatalf("rollback stage = %q, want design", rollback.StageID)
	}

	// History-preserving: all prior commits remain, plus the new one.
	all, total, _ := eng.History(ctx, testProject, model.CommitFilter{})
	if total != 3 || all[0].ID != rollback.ID || all[2].ID != first.ID {
		t.Fatalf("unexpected history after rollback: total=%d", total)
	}

	// The passed design gate reopened; the cursor stayed where it was.
	gate, _ := eng.Gate(ctx, testProject, "design")
	if gate.Status != model.GatePending {
		t.Fatalf("design gate = %s, want pending after rollback", gate.Status)
	}
	summary, _ := eng.Project(ctx, testProject)
	if summary.Cursor.CurrentStage != "develop" {
		t.Fatalf("CurrentStage = %q, want develop (rollback never moves the cursor)", summary.Cursor.CurrentStage)
	}

	var unknownCommit *UnknownCommitError
	if _, err := eng.Rollback(ctx, testProject, 99, "priya", "99"); !errors.As(err, &unknownCommit) {
		t.Fatalf("error = %v, want UnknownCommitError", err)
	}
}

func TestVisibleArtifactTree(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	advanceTo(t, eng, "design")

	base := map[string]int64{}
	for _, c := range []struct{ stage, name string }{
		{"discover", "brief.md"},
		{"define", "requirements.md"},
		{"design", "architecture.md"},
	} {
		commit, err := eng.Commit(ctx, CommitInput{
			Project:      testProject,
			Stage:        c.stage,
			Author:       "alice",
			Message:      "add " + c.name,
			Artifacts:    []model.CommitArtifact{{Name: c.name}},
			BaseVersions: base,
		})
		if err != nil {
			t.Fatalf("Commit: %v", err)
		}
		base[c.name] = commit.ID
	}

	// Default view tracks the current stage: all three folders.
	tree, err := eng.VisibleArtifactTree(ctx, testProject, "priya")
	if err != nil {
		t.Fatalf("VisibleArtifactTree: %v", err)
	}
	if tree.ViewingStage != "design" || len(tree.Folders) != 3 {
		t.Fatalf("unexpected tree: viewing=%q folders=%d", tree.ViewingStage, len(tree.Folders))
	}

	// Viewing define hides the design folder entirely.
	if _, err := eng.SetViewingStage(ctx, testProject, "priya", "define"); err != nil {
		t.Fatalf("SetViewingStage: %v", err)
	}
	tree, err = eng.VisibleArtifactTree(ctx, testProject, "priya")
	if err != nil {
		t.Fatalf("VisibleArtifactTree: %v", err)
	}
	if len(tree.Folders) != 2 {
		t.Fatalf("len(folders) = %d, want 2", len(tree.Folders))
	}
	for _, f := range tree.Folders {
		if f.StageID == "design" || f.StageID == "develop" {
			t.Fatalf("folder %q should be hidden", f.StageID)
		}
	}
	if tree.Folders[0].Artifacts[0].Name != "brief.md" {
		t.Fatalf("unexpected discover folder: %+v", tree.Folders[0])
	}

	// Another user's tree is unaffected by priya's view.
	tree, _ = eng.VisibleArtifactTree(ctx, testProject, "omar")
	if len(tree.Folders) != 3 {
		t.Fatalf("omar sees %d folders, want 3", len(tree.Folders))
	}
}

func TestEventLog(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	gate, _ := eng.Gate(ctx, testProject, "discover")
	if _, err := eng.ToggleChecklistItem(ctx, testProject, "discover", gate.Checklist[0].ID, true, "alice"); err != nil {
		t.Fatalf("ToggleChecklistItem: %v", err)
	}

	evs, err := eng.Events(ctx, testProject)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	// project.created, gate.checklist, gate.passed (zero approvals needed).
	topics := make([]string, len(evs))
	for i, ev := range evs {
		topics[i] = ev.Topic
	}
	want := []string{events.TopicProjectCreated, events.TopicGateChecklist, events.TopicGatePassed}
	if len(topics) != len(want) {
		t.Fatalf("topics = %v, want %v", topics, want)
	}
	for i := range want {
		if topics[i] != want[i] {
			t.Fatalf("topics = %v, want %v", topics, want)
		}
	}
}
