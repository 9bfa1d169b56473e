// Package document keeps the text of the documents opened by the client.
package document

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/akhenakh/skriptls/protocol"
)

// ErrUnknownDocument is returned when a change targets a document that was
// never opened.
var ErrUnknownDocument = errors.New("document: unknown document")

// Document is a snapshot of an open text document.
type Document struct {
	URI        protocol.DocumentURI
	LanguageID string
	Version    int
	Text       string
}

// Lines splits the document into lines.
func (d Document) Lines() []string { return Lines(d.Text) }

// Store holds open documents keyed by URI. It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	docs map[protocol.DocumentURI]*Document
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[protocol.DocumentURI]*Document)}
}

// Open records a document sent with textDocument/didOpen. Reopening a URI
// replaces its content.
func (s *Store) Open(item protocol.TextDocumentItem) Document {
	d := &Document{
		URI:        item.URI,
		LanguageID: item.LanguageID,
		Version:    item.Version,
		Text:       item.Text,
	}
	s.mu.Lock()
	s.docs[item.URI] = d
	s.mu.Unlock()
	return *d
}

// Change applies content changes in order and returns the new snapshot.
func (s *Store) Change(uri protocol.DocumentURI, version int, changes []protocol.TextDocumentContentChangeEvent) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[uri]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrUnknownDocument, uri)
	}
	d.Text = ApplyChanges(d.Text, changes)
	d.Version = version
	return *d, nil
}

// SetText replaces the whole text of an open document, as sent with a
// didSave that includes text.
func (s *Store) SetText(uri protocol.DocumentURI, text string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[uri]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrUnknownDocument, uri)
	}
	d.Text = text
	return *d, nil
}

// Close forgets a document.
func (s *Store) Close(uri protocol.DocumentURI) {
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()
}

// Get returns a snapshot of the document.
func (s *Store) Get(uri protocol.DocumentURI) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[uri]
	if !ok {
		return Document{}, false
	}
	return *d, true
}

// URIs lists the open documents in lexical order.
func (s *Store) URIs() []protocol.DocumentURI {
	s.mu.RLock()
	out := make([]protocol.DocumentURI, 0, len(s.docs))
	for uri := range s.docs {
		out = append(out, uri)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
