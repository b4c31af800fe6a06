package people

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// DefaultPriority applies to identifiers without an override entry, and to
// entries whose priority field does not parse.
const DefaultPriority = 5

var fields = []string{"identifier", "display_name", "priority", "ignored", "notes"}

// Entry is one row of the override directory. Priority stays a raw string so
// a malformed value round-trips through save instead of being destroyed.
type Entry struct {
	Identifier  string
	DisplayName string
	Priority    string
	Ignored     bool
	Notes       string
}

// Store is the editable override directory backed by a tab-separated file.
// Entries load lazily on first access and every mutation persists.
type Store struct {
	path string

	mu      sync.RWMutex
	loaded  bool
	entries map[string]Entry
	order   []string
}

// NewStore creates a store over the given people.tsv path. The file does not
// need to exist yet.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the entry for an identifier.
func (s *Store) Get(identifier string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return Entry{}, false
	}
	e, ok := s.entries[identifier]
	return e, ok
}

// Put stores an entry and persists the directory.
func (s *Store) Put(identifier string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	e.Identifier = identifier
	if _, ok := s.entries[identifier]; !ok {
		s.order = append(s.order, identifier)
	}
	s.entries[identifier] = e
	return s.save()
}

// SetIgnored flags or unflags an identifier and persists the directory,
// creating a bare entry when none exists.
func (s *Store) SetIgnored(identifier string, ignored bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	e, ok := s.entries[identifier]
	if !ok {
		e = Entry{Identifier: identifier}
		s.order = append(s.order, identifier)
	}
	e.Ignored = ignored
	s.entries[identifier] = e
	return s.save()
}

// Ignored reports whether an identifier is flagged ignored.
func (s *Store) Ignored(identifier string) bool {
	e, ok := s.Get(identifier)
	return ok && e.Ignored
}

// DisplayName returns the override display name, "" when absent.
func (s *Store) DisplayName(identifier string) string {
	e, _ := s.Get(identifier)
	return e.DisplayName
}

// Priority returns the override priority for an identifier. Missing entries
// and unparsable values fall back to DefaultPriority.
func (s *Store) Priority(identifier string) int {
	e, ok := s.Get(identifier)
	if !ok || strings.TrimSpace(e.Priority) == "" {
		return DefaultPriority
	}
	p, err := strconv.Atoi(strings.TrimSpace(e.Priority))
	if err != nil {
		return DefaultPriority
	}
	return p
}

// Reload discards the in-memory state and re-reads the backing file.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	return s.ensureLoaded()
}

func (s *Store) ensureLoaded() error {
	if s.loaded {
		return nil
	}
	s.entries = make(map[string]Entry)
	s.order = nil

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.Comment = '#'
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	for i, rec := range records {
		if i == 0 || len(rec) == 0 || rec[0] == "" {
			continue // header or blank
		}
		e := Entry{Identifier: rec[0]}
		if len(rec) > 1 {
			e.DisplayName = rec[1]
		}
		if len(rec) > 2 {
			e.Priority = rec[2]
		}
		if len(rec) > 3 {
			e.Ignored = truthy(rec[3])
		}
		if len(rec) > 4 {
			e.Notes = rec[4]
		}
		if _, ok := s.entries[e.Identifier]; !ok {
			s.order = append(s.order, e.Identifier)
		}
		s.entries[e.Identifier] = e
	}
	s.loaded = true
	return nil
}

// save rewrites the whole file. Callers hold the lock.
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.Write(fields); err != nil {
		return err
	}
	for _, id := range s.order {
		e := s.entries[id]
		ignored := ""
		if e.Ignored {
			ignored = "1"
		}
		if err := w.Write([]string{id, e.DisplayName, e.Priority, ignored, e.Notes}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
