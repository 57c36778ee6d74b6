// Package runtimestate owns the RuntimeState Store: the exclusive owner
// of every PromptRuntime and tool handle (§3, "Ownership").
package runtimestate

import (
	"sync"

	"github.com/kvanta-dev/promptmesh/internal/promptdoc"
	"github.com/kvanta-dev/promptmesh/internal/toolregistry"
)

// Store holds the id→runtime map, the file-path→id index, and the
// id→handle index. A full reload replaces all three atomically at the
// end of the pass (§4.8 step 9); a single-file reload mutates just the
// entries for the affected file.
type Store struct {
	mu        sync.RWMutex
	runtimes  map[string]promptdoc.Runtime
	byFile    map[string]string // file path -> id
	handles   map[string]toolregistry.Handle
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		runtimes: map[string]promptdoc.Runtime{},
		byFile:   map[string]string{},
		handles:  map[string]toolregistry.Handle{},
	}
}

// Snapshot is an immutable copy of the Store's state, used to compute a
// reload pass's diff without holding the lock for the whole pass.
type Snapshot struct {
	Runtimes map[string]promptdoc.Runtime
	ByFile   map[string]string
	Handles  map[string]toolregistry.Handle
}

// Snap copies the current state out for read-only use by a reload pass.
func (s *Store) Snap() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Runtimes: cloneRuntimes(s.runtimes),
		ByFile:   cloneStrings(s.byFile),
		Handles:  cloneHandles(s.handles),
	}
}

// ReplaceAll atomically installs a complete new state, per §4.8 step 9.
// handles must contain exactly one entry per id whose runtime_state is
// active or legacy, per §3's tool-handle invariant.
func (s *Store) ReplaceAll(runtimes map[string]promptdoc.Runtime, byFile map[string]string, handles map[string]toolregistry.Handle) {
	s.mu.Lock()
	s.runtimes = runtimes
	s.byFile = byFile
	s.handles = handles
	s.mu.Unlock()
}

// Get returns the runtime for id, if any.
func (s *Store) Get(id string) (promptdoc.Runtime, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rt, ok := s.runtimes[id]
	return rt, ok
}

// IDByFile resolves a file path to the id it last produced, if any.
func (s *Store) IDByFile(file string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byFile[file]
	return id, ok
}

// All returns a copy of every runtime currently known, for `list` and
// `stats`.
func (s *Store) All() map[string]promptdoc.Runtime {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRuntimes(s.runtimes)
}

// Handle returns the tool handle registered for id, if any.
func (s *Store) Handle(id string) (toolregistry.Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handles[id]
	return h, ok
}

// HandleCount reports how many ids currently hold a live tool handle —
// the "prompt" half of the Control Surface's `stats` tool count.
func (s *Store) HandleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handles)
}

// SetOne installs or replaces the runtime, file index entry, and handle
// for a single id — the singleReload success path (§4.8).
func (s *Store) SetOne(file string, rt promptdoc.Runtime, handle toolregistry.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runtimes[rt.ID] = rt
	s.byFile[file] = rt.ID
	if handle != nil {
		s.handles[rt.ID] = handle
	} else {
		delete(s.handles, rt.ID)
	}
}

// RemoveByFile drops the runtime, handle, and index entry for whatever
// id file last produced — the singleReload deletion path (§4.8). It
// returns the removed handle, if any, so the caller can call Remove()
// on it outside the lock.
func (s *Store) RemoveByFile(file string) (toolregistry.Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byFile[file]
	if !ok {
		return nil, false
	}
	delete(s.byFile, file)
	delete(s.runtimes, id)
	h, hasHandle := s.handles[id]
	delete(s.handles, id)
	return h, hasHandle
}

func cloneRuntimes(in map[string]promptdoc.Runtime) map[string]promptdoc.Runtime {
	out := make(map[string]promptdoc.Runtime, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneStrings(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneHandles(in map[string]toolregistry.Handle) map[string]toolregistry.Handle {
	out := make(map[string]toolregistry.Handle, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
