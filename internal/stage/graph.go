// Package stage holds the static ordered catalog of lifecycle stages and the
// accessibility rules over it. A Graph is built once at process start and is
// immutable afterwards.
package stage

import (
	"fmt"
	"sort"

	"github.com/forgeline/stageflow/internal/model"
)

// UnknownStageError is returned when a stage id is not in the catalog.
type UnknownStageError struct {
	Stage string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage %q", e.Stage)
}

// GateTemplate is the gate definition seeded for a stage when a project is
// created: how many approvals the gate needs and which checklist items it
// starts with.
type GateTemplate struct {
	RequiredApprovals int
	TotalApprovers    int
	Checklist         []string
}

// Definition is one catalog entry: a stage plus its gate template.
type Definition struct {
	Stage model.Stage
	Gate  GateTemplate
}

// Graph is the immutable, ordered stage catalog. All methods are pure and
// safe for concurrent use.
type Graph struct {
	defs []Definition
	byID map[string]int // stage id -> index into defs
}

// New builds a Graph from catalog definitions. Definitions are sorted by
// order; ids must be unique and orders positive and strictly increasing.
func New(defs []Definition) (*Graph, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("stage catalog is empty")
	}

	sorted := append([]Definition(nil), defs...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Stage.Order < sorted[j].Stage.Order
	})

	byID := make(map[string]int, len(sorted))
	prev := 0
	for i, d := range sorted {
		s := d.Stage
		if s.ID == "" {
			return nil, fmt.Errorf("stage at order %d has no id", s.Order)
		}
		if _, dup := byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate stage id %q", s.ID)
		}
		if s.Order <= prev {
			return nil, fmt.Errorf("stage %q: order %d is not strictly increasing (previous %d)", s.ID, s.Order, prev)
		}
		if d.Gate.RequiredApprovals < 0 {
			return nil, fmt.Errorf("stage %q: required_approvals must be >= 0", s.ID)
		}
		if d.Gate.TotalApprovers < d.Gate.RequiredApprovals {
			return nil, fmt.Errorf("stage %q: total_approvers %d < required_approvals %d",
				s.ID, d.Gate.TotalApprovers, d.Gate.RequiredApprovals)
		}
		byID[s.ID] = i
		prev = s.Order
	}

	return &Graph{defs: sorted, byID: byID}, nil
}

// Order returns the catalog order of a stage.
func (g *Graph) Order(stageID string) (int, error) {
	i, ok := g.byID[stageID]
	if !ok {
		return 0, &UnknownStageError{Stage: stageID}
	}
	return g.defs[i].Stage.Order, nil
}

// IsAccessible reports whether stageID is at or before referenceStage.
func (g *Graph) IsAccessible(stageID, referenceStage string) (bool, error) {
	so, err := g.Order(stageID)
	if err != nil {
		return false, err
	}
	ro, err := g.Order(referenceStage)
	if err != nil {
		return false, err
	}
	return so <= ro, nil
}

// Next returns the immediate successor of stageID in catalog order.
// ok is false at the final stage.
func (g *Graph) Next(stageID string) (next string, ok bool, err error) {
	i, found := g.byID[stageID]
	if !found {
		return "", false, &UnknownStageError{Stage: stageID}
	}
	if i+1 >= len(g.defs) {
		return "", false, nil
	}
	return g.defs[i+1].Stage.ID, true, nil
}

// First returns the first stage in catalog order.
func (g *Graph) First() model.Stage {
	return g.defs[0].Stage
}

// Stages returns all stages in catalog order.
func (g *Graph) Stages() []model.Stage {
	out := make([]model.Stage, len(g.defs))
	for i, d := range g.defs {
		out[i] = d.Stage
	}
	return out
}

// Definitions returns all catalog entries in order, gate templates included.
func (g *Graph) Definitions() []Definition {
	return append([]Definition(nil), g.defs...)
}

// Name returns the display name of a stage, or the id itself when unknown.
func (g *Graph) Name(stageID string) string {
	if i, ok := g.byID[stageID]; ok {
		return g.defs[i].Stage.Name
	}
	return stageID
}

// UpTo returns the ids of all stages with order <= order(referenceStage),
// in catalog order.
func (g *Graph) UpTo(referenceStage string) ([]string, error) {
	ro, err := g.Order(referenceStage)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, d := range g.defs {
		if d.Stage.Order <= ro {
			out = append(out, d.Stage.ID)
		}
	}
	return out, nil
}
