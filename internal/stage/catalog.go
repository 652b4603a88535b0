package stage

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/forgeline/stageflow/internal/model"
)

//go:embed default_stages.toml
var defaultCatalogTOML []byte

// catalogFile is the TOML shape of a stage catalog file.
type catalogFile struct {
	Stages []catalogStage `toml:"stages"`
}

type catalogStage struct {
	ID                string   `toml:"id"`
	Name              string   `toml:"name"`
	Order             int      `toml:"order"`
	RequiredApprovals int      `toml:"required_approvals"`
	TotalApprovers    int      `toml:"total_approvers"`
	Checklist         []string `toml:"checklist"`
}

// LoadCatalog reads a stage catalog from a TOML file and builds a Graph.
func LoadCatalog(path string) (*Graph, error) {
	var cf catalogFile
	if _, err := toml.DecodeFile(path, &cf); err != nil {
		return nil, fmt.Errorf("decode stage catalog %s: %w", path, err)
	}
	g, err := buildGraph(cf)
	if err != nil {
		return nil, fmt.Errorf("stage catalog %s: %w", path, err)
	}
	return g, nil
}

// DefaultCatalog builds the Graph from the embedded default catalog
// (Discover through Delivery).
func DefaultCatalog() *Graph {
	var cf catalogFile
	if err := toml.Unmarshal(defaultCatalogTOML, &cf); err != nil {
		panic(fmt.Sprintf("embedded stage catalog is malformed: %v", err))
	}
	g, err := buildGraph(cf)
	if err != nil {
		panic(fmt.Sprintf("embedded stage catalog is invalid: %v", err))
	}
	return g
}

// LoadCatalogOrDefault loads the catalog from path when it is non-empty,
// falling back to the embedded default otherwise.
func LoadCatalogOrDefault(path string) (*Graph, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stage catalog %s: %w", path, err)
	}
	return LoadCatalog(path)
}

func buildGraph(cf catalogFile) (*Graph, error) {
	defs := make([]Definition, 0, len(cf.Stages))
	for _, s := range cf.Stages {
		defs = append(defs, Definition{
			Stage: model.Stage{
				ID:    s.ID,
				Order: s.Order,
				Name:  s.Name,
			},
			Gate: GateTemplate{
				RequiredApprovals: s.RequiredApprovals,
				TotalApprovers:    s.TotalApprovers,
				Checklist:         s.Checklist,
			},
		})
	}
	return New(defs)
}
