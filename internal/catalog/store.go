package catalog

import "sync/atomic"

type snapshot struct {
	entries     []SyntaxEntry
	completions []CompletionEntry
}

// Store holds the catalog and its projection. Replace swaps both at once so
// readers never see completions from two catalogs.
type Store struct {
	cur atomic.Pointer[snapshot]
}

// NewStore returns an empty store.
func NewStore() *Store {
	s := &Store{}
	s.cur.Store(&snapshot{})
	return s
}

// Replace installs a new catalog and recomputes every completion entry.
func (s *Store) Replace(entries []SyntaxEntry) {
	s.cur.Store(&snapshot{
		entries:     entries,
		completions: Project(entries),
	})
}

// Entries returns the current catalog. Callers must not modify it.
func (s *Store) Entries() []SyntaxEntry { return s.cur.Load().entries }

// Completions returns the current projection. Callers must not modify it.
func (s *Store) Completions() []CompletionEntry { return s.cur.Load().completions }

// Len is the number of syntax entries held.
func (s *Store) Len() int { return len(s.cur.Load().entries) }
