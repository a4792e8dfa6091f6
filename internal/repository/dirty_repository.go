package repository

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
	"sync"
)

// DirtyStore tracks the symbols whose derived value cache must be recomputed
// before being trusted. The production store is a JSON file visible to both
// processes; tests use the in-memory variant.
type DirtyStore interface {
	// Read returns the current dirty set, upper-cased.
	Read() map[string]bool
	// Mark adds a symbol to the dirty set.
	Mark(symbol string) error
	// Clear removes a symbol from the dirty set.
	Clear(symbol string) error
}

// FileDirtyStore persists the dirty set as a sorted JSON list of symbols. The
// mutex serializes the read-modify-write cycle so an API Mark racing the
// worker's Clear cannot lose a flag.
type FileDirtyStore struct {
	mu   sync.Mutex
	path string
}

// NewFileDirtyStore creates a file-backed dirty store at the layout's
// dirty-set path.
func NewFileDirtyStore(layout Layout) *FileDirtyStore {
	return &FileDirtyStore{path: layout.DirtyPath()}
}

// Read returns the dirty set. A missing or malformed file reads as empty.
func (s *FileDirtyStore) Read() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileDirtyStore) read() map[string]bool {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return map[string]bool{}
	}
	var symbols []string
	if err := json.Unmarshal(data, &symbols); err != nil {
		return map[string]bool{}
	}
	set := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		set[strings.ToUpper(sym)] = true
	}
	return set
}

// Mark adds a symbol to the dirty set.
func (s *FileDirtyStore) Mark(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.read()
	set[strings.ToUpper(symbol)] = true
	return s.write(set)
}

// Clear removes a symbol from the dirty set.
func (s *FileDirtyStore) Clear(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.read()
	upper := strings.ToUpper(symbol)
	if !set[upper] {
		return nil
	}
	delete(set, upper)
	return s.write(set)
}

func (s *FileDirtyStore) write(set map[string]bool) error {
	symbols := make([]string, 0, len(set))
	for sym := range set {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	data, err := json.MarshalIndent(symbols, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// MemoryDirtyStore is an in-memory DirtyStore for tests.
type MemoryDirtyStore struct {
	mu  sync.Mutex
	set map[string]bool
}

// NewMemoryDirtyStore creates an empty in-memory dirty store.
func NewMemoryDirtyStore() *MemoryDirtyStore {
	return &MemoryDirtyStore{set: map[string]bool{}}
}

// Read returns a copy of the dirty set.
func (s *MemoryDirtyStore) Read() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.set))
	for sym := range s.set {
		out[sym] = true
	}
	return out
}

// Mark adds a symbol to the dirty set.
func (s *MemoryDirtyStore) Mark(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set[strings.ToUpper(symbol)] = true
	return nil
}

// Clear removes a symbol from the dirty set.
func (s *MemoryDirtyStore) Clear(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.set, strings.ToUpper(symbol))
	return nil
}
