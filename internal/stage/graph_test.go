package stage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/forgeline/stageflow/internal/model"
)

func testGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := New([]Definition{
		{Stage: model.Stage{ID: "discover", Order: 1, Name: "Discover"}},
		{Stage: model.Stage{ID: "define", Order: 2, Name: "Define"}},
		{Stage: model.Stage{ID: "design", Order: 3, Name: "Design"}},
		{Stage: model.Stage{ID: "develop", Order: 4, Name: "Develop"}},
	})
	if err != nil {
		t.Fatalf("building graph: %v", err)
	}
	return g
}

func TestNewRejectsBadCatalogs(t *testing.T) {
	for name, defs := range map[string][]Definition{
		"empty": nil,
		"duplicate id": {
			{Stage: model.Stage{ID: "a", Order: 1}},
			{Stage: model.Stage{ID: "a", Order: 2}},
		},
		"duplicate order": {
			{Stage: model.Stage{ID: "a", Order: 1}},
			{Stage: model.Stage{ID: "b", Order: 1}},
		},
		"zero order": {
			{Stage: model.Stage{ID: "a", Order: 0}},
		},
		"missing id": {
			{Stage: model.Stage{ID: "", Order: 1}},
		},
		"approvers below required": {
			{Stage: model.Stage{ID: "a", Order: 1}, Gate: GateTemplate{RequiredApprovals: 3, TotalApprovers: 2}},
		},
	} {
		if _, err := New(defs); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestNewSortsByOrder(t *testing.T) {
	g, err := New([]Definition{
		{Stage: model.Stage{ID: "b", Order: 2}},
		{Stage: model.Stage{ID: "a", Order: 1}},
	})
	if err != nil {
		t.Fatalf("building graph: %v", err)
	}
	if g.First().ID != "a" {
		t.Errorf("First() = %q, want %q", g.First().ID, "a")
	}
}

func TestOrder(t *testing.T) {
	g := testGraph(t)

	got, err := g.Order("design")
	if err != nil {
		t.Fatalf("Order(design): %v", err)
	}
	if got != 3 {
		t.Errorf("Order(design) = %d, want 3", got)
	}

	_, err = g.Order("deploy")
	var unknown *UnknownStageError
	if !errors.As(err, &unknown) {
		t.Fatalf("Order(deploy) error = %v, want *UnknownStageError", err)
	}
	if unknown.Stage != "deploy" {
		t.Errorf("UnknownStageError.Stage = %q, want %q", unknown.Stage, "deploy")
	}
}

func TestIsAccessible(t *testing.T) {
	g := testGraph(t)

	// isAccessible(s, c) iff order(s) <= order(c), for every pair.
	stages := g.Stages()
	for _, s := range stages {
		for _, ref := range stages {
			got, err := g.IsAccessible(s.ID, ref.ID)
			if err != nil {
				t.Fatalf("IsAccessible(%s, %s): %v", s.ID, ref.ID, err)
			}
			want := s.Order <= ref.Order
			if got != want {
				t.Errorf("IsAccessible(%s, %s) = %v, want %v", s.ID, ref.ID, got, want)
			}
		}
	}

	if _, err := g.IsAccessible("nope", "design"); err == nil {
		t.Error("expected error for unknown stage id")
	}
	if _, err := g.IsAccessible("design", "nope"); err == nil {
		t.Error("expected error for unknown reference stage")
	}
}

func TestNext(t *testing.T) {
	g := testGraph(t)

	next, ok, err := g.Next("discover")
	if err != nil || !ok || next != "define" {
		t.Errorf("Next(discover) = (%q, %v, %v), want (define, true, nil)", next, ok, err)
	}

	_, ok, err = g.Next("develop")
	if err != nil {
		t.Fatalf("Next(develop): %v", err)
	}
	if ok {
		t.Error("Next at the final stage should report ok=false")
	}

	if _, _, err := g.Next("nope"); err == nil {
		t.Error("expected error for unknown stage")
	}
}

func TestUpTo(t *testing.T) {
	g := testGraph(t)

	got, err := g.UpTo("design")
	if err != nil {
		t.Fatalf("UpTo(design): %v", err)
	}
	want := []string{"discover", "define", "design"}
	if len(got) != len(want) {
		t.Fatalf("UpTo(design) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("UpTo(design)[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDefaultCatalog(t *testing.T) {
	g := DefaultCatalog()

	stages := g.Stages()
	if len(stages) != 7 {
		t.Fatalf("default catalog has %d stages, want 7", len(stages))
	}
	if g.First().ID != "discover" {
		t.Errorf("first stage = %q, want discover", g.First().ID)
	}
	last := stages[len(stages)-1]
	if last.ID != "delivery" {
		t.Errorf("last stage = %q, want delivery", last.ID)
	}

	// Every stage carries a gate template.
	for _, d := range g.Definitions() {
		if d.Gate.TotalApprovers < d.Gate.RequiredApprovals {
			t.Errorf("stage %s: total approvers %d < required %d", d.Stage.ID, d.Gate.TotalApprovers, d.Gate.RequiredApprovals)
		}
		if len(d.Gate.Checklist) == 0 {
			t.Errorf("stage %s: no checklist items in template", d.Stage.ID)
		}
	}
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stages.toml")
	content := `
[[stages]]
id = "alpha"
name = "Alpha"
order = 1
required_approvals = 1
total_approvers = 2
checklist = ["one", "two"]

[[stages]]
id = "beta"
name = "Beta"
order = 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing catalog: %v", err)
	}

	g, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(g.Stages()) != 2 {
		t.Fatalf("loaded %d stages, want 2", len(g.Stages()))
	}
	defs := g.Definitions()
	if defs[0].Gate.RequiredApprovals != 1 || len(defs[0].Gate.Checklist) != 2 {
		t.Errorf("alpha gate template not loaded: %+v", defs[0].Gate)
	}
}

func TestLoadCatalogOrDefault(t *testing.T) {
	g, err := LoadCatalogOrDefault("")
	if err != nil {
		t.Fatalf("LoadCatalogOrDefault(\"\"): %v", err)
	}
	if len(g.Stages()) != 7 {
		t.Errorf("expected embedded default catalog")
	}

	if _, err := LoadCatalogOrDefault("/nonexistent/stages.toml"); err == nil {
		t.Error("expected error for missing catalog file")
	}
}
