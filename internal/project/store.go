package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clarityworks/clarifier/internal/clerrors"
)

// Store persists one JSON file per project under a fixed directory.
//
// Writes are whole-file overwrites with no atomicity beyond the host
// filesystem; two engines pointed at the same project name can clobber each
// other. Known gap: the clarifier is a single-user tool.
type Store struct {
	dir    string
	logger zerolog.Logger
}

// NewStore creates a store rooted at dir (typically ".clarity").
func NewStore(dir string, logger zerolog.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: logger.With().Str("component", "project.store").Logger(),
	}
}

// Path returns the on-disk path for a project name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Exists reports whether a snapshot exists for the project.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// Save writes the full record, overwriting any previous snapshot.
func (s *Store) Save(r *Record) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &clerrors.PersistError{Path: s.dir, Err: err}
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return &clerrors.PersistError{Path: s.Path(r.Name), Err: err}
	}

	path := s.Path(r.Name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &clerrors.PersistError{Path: path, Err: err}
	}

	s.logger.Debug().Str("project", r.Name).Str("path", path).Msg("project saved")
	return nil
}

// Load reads a record by project name.
func (s *Store) Load(name string) (*Record, error) {
	path := s.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("project %q not found", name)
		}
		return nil, &clerrors.PersistError{Path: path, Err: err}
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, &clerrors.PersistError{Path: path, Err: fmt.Errorf("corrupt snapshot: %w", err)}
	}
	if r.Name == "" {
		r.Name = name
	}
	r.normalize()
	return &r, nil
}

// LoadOrCreate returns the stored record, or a fresh empty one if none exists.
func (s *Store) LoadOrCreate(name string) (*Record, error) {
	if s.Exists(name) {
		return s.Load(name)
	}
	return NewRecord(name), nil
}

// List returns the names of all stored projects, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &clerrors.PersistError{Path: s.dir, Err: err}
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}
