package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/clarityworks/clarifier/internal/clerrors"
)

//go:embed nodes.yaml
var defaultCatalogYAML []byte

// Catalog is the loaded, validated stage registry. Immutable after Load
// except via Reload, which swaps the whole definition set at once.
type Catalog struct {
	stages map[string]*StageDefinition
	start  string
	order  []string
	path   string // non-empty when loaded from a file; used by Reload
}

// LoadDefault loads the embedded built-in catalog.
func LoadDefault() (*Catalog, error) {
	return LoadBytes(defaultCatalogYAML)
}

// LoadFile loads a catalog from a YAML file. The path is remembered so
// Reload can re-read it on demand.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &clerrors.ConfigError{Reason: fmt.Sprintf("read catalog %s: %v", path, err)}
	}
	c, err := LoadBytes(data)
	if err != nil {
		return nil, err
	}
	c.path = path
	return c, nil
}

// LoadBytes parses and validates catalog YAML.
func LoadBytes(data []byte) (*Catalog, error) {
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, &clerrors.ConfigError{Reason: fmt.Sprintf("invalid catalog YAML: %v", err)}
	}
	if len(cf.Stages) == 0 {
		return nil, &clerrors.ConfigError{Reason: "catalog defines no stages"}
	}

	start := cf.Workflow.StartStage
	if start == "" {
		start = StageStart
	}
	if _, ok := cf.Stages[start]; !ok {
		return nil, &clerrors.ConfigError{Stage: start, Reason: "start stage is not defined"}
	}

	for id, def := range cf.Stages {
		def.ID = id
		if def.Terminal() {
			continue
		}
		if _, ok := cf.Stages[def.Next]; !ok {
			return nil, &clerrors.ConfigError{Stage: id, Reason: fmt.Sprintf("next stage %q is not defined", def.Next)}
		}
	}

	c := &Catalog{stages: cf.Stages, start: start}
	order, err := c.buildOrder()
	if err != nil {
		return nil, err
	}
	c.order = order
	return c, nil
}

// Reload re-reads the catalog from its file source and swaps the definition
// set in place. Catalogs loaded from bytes or the embedded default are left
// unchanged. A load error leaves the current definitions intact.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}
	fresh, err := LoadFile(c.path)
	if err != nil {
		return err
	}
	c.stages, c.start, c.order = fresh.stages, fresh.start, fresh.order
	return nil
}

// StartStage returns the designated first stage id.
func (c *Catalog) StartStage() string { return c.start }

// Stage returns a stage definition by id.
func (c *Catalog) Stage(id string) (*StageDefinition, bool) {
	d, ok := c.stages[id]
	return d, ok
}

// Next returns the static default transition for a stage. The terminal
// sentinel is returned for the last stage and for unknown ids.
func (c *Catalog) Next(id string) string {
	d, ok := c.stages[id]
	if !ok || d.Terminal() {
		return TerminalSentinel
	}
	return d.Next
}

// Order returns the stage ids in workflow order, from the start stage to the
// last stage before the terminal sentinel.
func (c *Catalog) Order() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of stages in workflow order.
func (c *Catalog) Len() int { return len(c.order) }

// Position returns the index of a stage in workflow order, or -1.
func (c *Catalog) Position(id string) int {
	for i, s := range c.order {
		if s == id {
			return i
		}
	}
	return -1
}

// buildOrder walks the static transition chain from the start stage. A
// revisited id means the chain loops; that is a configuration error, not
// something to iterate through.
func (c *Catalog) buildOrder() ([]string, error) {
	var order []string
	visited := make(map[string]bool)

	cur := c.start
	for cur != "" && cur != TerminalSentinel {
		if visited[cur] {
			return nil, &clerrors.ConfigError{Stage: cur, Reason: "transition chain contains a cycle"}
		}
		visited[cur] = true
		order = append(order, cur)
		cur = c.stages[cur].Next
	}
	return order, nil
}
