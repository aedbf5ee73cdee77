package stage

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/clarityworks/clarifier/internal/project"
)

var listMarkerRe = regexp.MustCompile(`^(\-|\*|\d+\.)\s+`)

// SplitItems splits multi-line input into clean list items: one per line,
// trimmed, list markers stripped, blank lines and #-comment lines dropped.
// Comment lines carry suggested content shown to the user; they only become
// real data once the user removes the marker.
func SplitItems(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = listMarkerRe.ReplaceAllString(line, "")
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

// SplitCommaItems splits comma-separated input into trimmed non-empty items.
func SplitCommaItems(text string) []string {
	var items []string
	for _, part := range strings.Split(text, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

// ParseKeyValues parses "key: value" lines into a map, following the shared
// line policy of SplitItems. Lines without a colon are ignored.
func ParseKeyValues(text string) map[string]string {
	out := make(map[string]string)
	for _, line := range SplitItems(text) {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key != "" && value != "" {
			out[key] = value
		}
	}
	return out
}

// defaultTaskPriority is used when the priority column fails to parse.
const defaultTaskPriority = 3

// ParseTasks parses "title: file: estimate: priority" lines into tasks.
// Lines with fewer than four colon-separated parts are skipped; a
// non-integer priority falls back to the default.
func ParseTasks(text string) []project.Task {
	var tasks []project.Task
	for _, line := range SplitItems(text) {
		parts := strings.Split(line, ":")
		if len(parts) < 4 {
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		priority, err := strconv.Atoi(parts[3])
		if err != nil {
			priority = defaultTaskPriority
		}

		tasks = append(tasks, project.Task{
			Title:    parts[0],
			File:     parts[1],
			Estimate: parts[2],
			Priority: priority,
		})
	}
	return tasks
}
