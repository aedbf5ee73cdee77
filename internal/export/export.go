// Package export serializes a finished project record into its scaffolding
// artifacts: README.md, .plan.yml, architecture.md and the JSON snapshot.
// Output is best-effort human-readable; nothing reads these files back.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/clarityworks/clarifier/internal/clerrors"
	"github.com/clarityworks/clarifier/internal/project"
)

// Exporter writes the output artifacts for a project.
type Exporter struct {
	outDir     string
	clarityDir string
	logger     zerolog.Logger
}

// New creates an Exporter. Artifacts land in outDir, the JSON snapshot in
// clarityDir.
func New(outDir, clarityDir string, logger zerolog.Logger) *Exporter {
	return &Exporter{
		outDir:     outDir,
		clarityDir: clarityDir,
		logger:     logger.With().Str("component", "export").Logger(),
	}
}

// Export writes every artifact. The first write failure aborts the export.
func (e *Exporter) Export(r *project.Record) error {
	if err := os.MkdirAll(e.outDir, 0o755); err != nil {
		return &clerrors.PersistError{Path: e.outDir, Err: err}
	}

	steps := []struct {
		name string
		fn   func(*project.Record) error
	}{
		{"snapshot", e.writeSnapshot},
		{"readme", e.writeReadme},
		{"plan", e.writePlan},
		{"architecture", e.writeArchitecture},
	}
	for _, step := range steps {
		if err := step.fn(r); err != nil {
			return fmt.Errorf("export %s: %w", step.name, err)
		}
	}

	e.logger.Info().Str("project", r.Name).Str("dir", e.outDir).Msg("project exported")
	return nil
}

func (e *Exporter) writeSnapshot(r *project.Record) error {
	if err := os.MkdirAll(e.clarityDir, 0o755); err != nil {
		return &clerrors.PersistError{Path: e.clarityDir, Err: err}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return e.write(filepath.Join(e.clarityDir, r.Name+".json"), data)
}

// planFile is the YAML shape of .plan.yml.
type planFile struct {
	Plan []project.Task `yaml:"plan"`
}

func (e *Exporter) writePlan(r *project.Record) error {
	data, err := yaml.Marshal(planFile{Plan: r.Tasks})
	if err != nil {
		return err
	}
	return e.write(filepath.Join(e.outDir, ".plan.yml"), data)
}

func (e *Exporter) writeReadme(r *project.Record) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", r.Name)
	if r.Description != "" {
		sb.WriteString(r.Description + "\n\n")
	}
	if r.Purpose != "" {
		sb.WriteString(r.Purpose + "\n\n")
	}

	sb.WriteString("## Features (MVP)\n\n")
	for _, f := range r.MVPFeatures {
		fmt.Fprintf(&sb, "- %s\n", f)
	}

	if len(r.TechStack) > 0 {
		sb.WriteString("\n## Tech Stack\n\n")
		for _, t := range r.TechStack {
			fmt.Fprintf(&sb, "- %s\n", t)
		}
	}

	if len(r.ExcludedFeatures) > 0 {
		sb.WriteString("\n## Not Included\n\n")
		for _, f := range r.ExcludedFeatures {
			fmt.Fprintf(&sb, "- %s\n", f)
		}
	}

	if len(r.FileMap) > 0 {
		sb.WriteString("\n## Project Structure\n\n")
		for _, path := range sortedKeys(r.FileMap) {
			fmt.Fprintf(&sb, "- `%s`: %s\n", path, r.FileMap[path])
		}
	}

	sb.WriteString("\n> Created with Clarifier.\n")
	return e.write(filepath.Join(e.outDir, "README.md"), []byte(sb.String()))
}

func (e *Exporter) writeArchitecture(r *project.Record) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s - Architecture\n\n## Overview\n\n", r.Name)
	if r.Description != "" {
		sb.WriteString(r.Description + "\n")
	}

	sb.WriteString("\n## Design Decisions\n\n")
	for _, key := range sortedKeys(r.Decisions) {
		fmt.Fprintf(&sb, "### %s\n\n%s\n\n", key, r.Decisions[key])
	}

	if len(r.FileMap) > 0 {
		sb.WriteString("## File Structure\n\n")
		for _, path := range sortedKeys(r.FileMap) {
			fmt.Fprintf(&sb, "- `%s`: %s\n", path, r.FileMap[path])
		}
	}

	return e.write(filepath.Join(e.outDir, "architecture.md"), []byte(sb.String()))
}

func (e *Exporter) write(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &clerrors.PersistError{Path: path, Err: err}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
