package stage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/clarityworks/clarifier/internal/catalog"
	"github.com/clarityworks/clarifier/internal/project"
)

// FileMapHandler maps features to a concrete file layout, parsed from
// "path: description" lines. Replace-semantics on every submission.
type FileMapHandler struct{}

func (h *FileMapHandler) ID() string { return catalog.StageFileMapBuilder }

func (h *FileMapHandler) Prompt(_ context.Context, r *project.Record) PromptData {
	var sb strings.Builder
	sb.WriteString(suggestedStructure(r))
	for _, path := range sortedKeys(r.FileMap) {
		fmt.Fprintf(&sb, "%s: %s\n", path, r.FileMap[path])
	}

	return PromptData{
		Title:       "File Structure Mapping",
		Description: "Map your features to a file structure. Each line should be in the format: path/to/file.ext: Description",
		Fields: []Field{
			{ID: "file_map", Question: "File Structure (suggested structure below):", Kind: KindText, Value: sb.String()},
		},
	}
}

func (h *FileMapHandler) Apply(r *project.Record, resp Responses) error {
	r.FileMap = ParseKeyValues(resp.Text("file_map"))
	return nil
}

// suggestedStructure derives a starter file layout from the chosen stack.
// Every suggested line is a comment so it parses away unless the user adopts it.
func suggestedStructure(r *project.Record) string {
	var sb strings.Builder
	sb.WriteString("# Suggested structure (edit as needed):\n")

	switch firstIn(r.TechStack, frontendOptions) {
	case "React":
		sb.WriteString("# src/components/App.jsx: Main application component\n")
		sb.WriteString("# src/pages/Home.jsx: Home page\n")
		sb.WriteString("# src/styles/main.css: Main stylesheet\n")
	case "Next.js":
		sb.WriteString("# pages/index.js: Home page\n")
		sb.WriteString("# components/Layout.js: Layout component\n")
	case "Vue":
		sb.WriteString("# src/App.vue: Root component\n")
		sb.WriteString("# src/components/Home.vue: Home view\n")
	}

	switch firstIn(r.TechStack, backendOptions) {
	case "Node.js":
		sb.WriteString("# server/index.js: Express entry point\n")
		sb.WriteString("# server/routes/api.js: API routes\n")
	case "Python/Flask":
		sb.WriteString("# app.py: Main Flask application\n")
		sb.WriteString("# routes/api.py: API routes\n")
	case "Python/FastAPI":
		sb.WriteString("# main.py: FastAPI application\n")
		sb.WriteString("# routers/api.py: API routes\n")
	case "Go":
		sb.WriteString("# cmd/server/main.go: Service entry point\n")
		sb.WriteString("# internal/api/handlers.go: HTTP handlers\n")
	}

	sb.WriteString("# README.md: Project documentation\n")
	return sb.String()
}

// TaskPlannerHandler breaks the MVP into estimated, prioritized tasks parsed
// from "title: file: estimate: priority" lines. Replace-semantics.
type TaskPlannerHandler struct{}

func (h *TaskPlannerHandler) ID() string { return catalog.StageTaskPlanner }

func (h *TaskPlannerHandler) Prompt(_ context.Context, r *project.Record) PromptData {
	var sb strings.Builder
	sb.WriteString(suggestedTasks(r))
	for _, t := range r.Tasks {
		fmt.Fprintf(&sb, "%s: %s: %s: %d\n", t.Title, t.File, t.Estimate, t.Priority)
	}

	return PromptData{
		Title:       "Development Task Planning",
		Description: "Break down the project into atomic development tasks. Format: Task Title: file/path.ext: Time Estimate: Priority (1-5)",
		Fields: []Field{
			{ID: "tasks", Question: "Development Tasks:", Kind: KindText, Value: sb.String()},
		},
	}
}

func (h *TaskPlannerHandler) Apply(r *project.Record, resp Responses) error {
	r.Tasks = ParseTasks(resp.Text("tasks"))
	return nil
}

// suggestedTasks seeds setup, per-feature and wrap-up tasks from the MVP
// features and the file map.
func suggestedTasks(r *project.Record) string {
	var sb strings.Builder
	sb.WriteString("# Suggested tasks (edit as needed):\n")
	sb.WriteString("# Project setup: README.md: 0.5h: 1\n")

	for i, feature := range r.MVPFeatures {
		file := relatedFile(r.FileMap, feature)
		fmt.Fprintf(&sb, "# Implement %s: %s: 2h: %d\n", feature, file, i+2)
	}

	sb.WriteString("# Write tests: : 3h: 4\n")
	sb.WriteString("# Documentation: README.md: 1h: 5\n")
	return sb.String()
}

// relatedFile finds a file whose description mentions a word of the feature.
func relatedFile(fileMap map[string]string, feature string) string {
	words := strings.Fields(strings.ToLower(feature))
	for _, path := range sortedKeys(fileMap) {
		desc := strings.ToLower(fileMap[path])
		for _, w := range words {
			if strings.Contains(desc, w) {
				return path
			}
		}
	}
	return ""
}

// ExportHandler is the terminal stage. The engine triggers the actual export
// on the terminal transition; the handler itself only confirms.
type ExportHandler struct{}

func (h *ExportHandler) ID() string { return catalog.StageExporter }

func (h *ExportHandler) Prompt(_ context.Context, _ *project.Record) PromptData {
	return PromptData{
		Title:       "Export Project Files",
		Description: "Your project planning is complete! Submit to export all files.",
	}
}

func (h *ExportHandler) Apply(*project.Record, Responses) error { return nil }

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
