package diagnostic

import (
	"sort"
	"sync"

	"github.com/akhenakh/skriptls/protocol"
)

// Marker channels. Each is replaced independently of the other.
const (
	ChannelErrors   = "errors"
	ChannelWarnings = "warnings"
)

// Surface holds the marker channels of every document.
type Surface struct {
	mu   sync.RWMutex
	docs map[protocol.DocumentURI]map[string][]Marker
}

// NewSurface returns an empty surface.
func NewSurface() *Surface {
	return &Surface{docs: make(map[protocol.DocumentURI]map[string][]Marker)}
}

// Replace swaps the whole content of one channel.
func (s *Surface) Replace(uri protocol.DocumentURI, channel string, markers []Marker) {
	s.ReplaceAll(uri, map[string][]Marker{channel: markers})
}

// ReplaceAll swaps several channels at once; readers observe either the old
// or the new content of all of them.
func (s *Surface) ReplaceAll(uri protocol.DocumentURI, channels map[string][]Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok {
		doc = make(map[string][]Marker)
		s.docs[uri] = doc
	}
	for name, markers := range channels {
		doc[name] = append([]Marker(nil), markers...)
	}
}

// Channel returns a copy of one channel.
func (s *Surface) Channel(uri protocol.DocumentURI, channel string) []Marker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Marker(nil), s.docs[uri][channel]...)
}

// Count returns the number of markers in a channel.
func (s *Surface) Count(uri protocol.DocumentURI, channel string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[uri][channel])
}

// Markers returns every marker of the document, channels in name order.
func (s *Surface) Markers(uri protocol.DocumentURI) []Marker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := s.docs[uri]
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)
	var out []Marker
	for _, name := range names {
		out = append(out, doc[name]...)
	}
	return out
}

// Clear forgets every channel of the document.
func (s *Surface) Clear(uri protocol.DocumentURI) {
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()
}
