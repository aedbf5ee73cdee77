package server

import (
	"sync"

	"github.com/clarityworks/clarifier/internal/engine"
)

// EngineFactory builds a workflow engine for a project name.
type EngineFactory func(name string) (*engine.Engine, error)

// Sessions keeps one live engine per project name. Engines are created
// lazily and never evicted; the clarifier serves a handful of projects, not
// a fleet.
type Sessions struct {
	mu      sync.Mutex
	engines map[string]*engine.Engine
	factory EngineFactory
}

// NewSessions creates a session registry backed by the factory.
func NewSessions(factory EngineFactory) *Sessions {
	return &Sessions{
		engines: make(map[string]*engine.Engine),
		factory: factory,
	}
}

// get returns the engine for a project, creating it on first use. The engine
// itself is single-threaded, so callers hold the session lock for the whole
// operation via With.
func (s *Sessions) get(name string) (*engine.Engine, error) {
	if eng, ok := s.engines[name]; ok {
		return eng, nil
	}
	eng, err := s.factory(name)
	if err != nil {
		return nil, err
	}
	s.engines[name] = eng
	return eng, nil
}

// With runs fn against the project's engine under the registry lock.
func (s *Sessions) With(name string, fn func(*engine.Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	eng, err := s.get(name)
	if err != nil {
		return err
	}
	return fn(eng)
}

// Drop removes a project's live engine, forcing a reload from disk on the
// next request. Used after a catalog reload.
func (s *Sessions) Drop(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.engines, name)
}

// Reset discards every live engine.
func (s *Sessions) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engines = make(map[string]*engine.Engine)
}
