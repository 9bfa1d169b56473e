package document

import (
	"errors"
	"testing"

	"github.com/akhenakh/skriptls/protocol"
)

func rng(sl, sc, el, ec uint) *protocol.Range {
	return &protocol.Range{
		Start: protocol.Position{Line: sl, Character: sc},
		End:   protocol.Position{Line: el, Character: ec},
	}
}

func TestApplyChanges(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		changes []protocol.TextDocumentContentChangeEvent
		want    string
	}{
		{
			name:    "full replace",
			text:    "on load:\n",
			changes: []protocol.TextDocumentContentChangeEvent{{Text: "command /x:\n"}},
			want:    "command /x:\n",
		},
		{
			name:    "insert in second line",
			text:    "on load:\n\tbroadcast \"hi\"",
			changes: []protocol.TextDocumentContentChangeEvent{{Range: rng(1, 12, 1, 14), Text: "yo"}},
			want:    "on load:\n\tbroadcast \"yo\"",
		},
		{
			name:    "surrogate pair counts two units",
			text:    "# 😀x",
			changes: []protocol.TextDocumentContentChangeEvent{{Range: rng(0, 4, 0, 5), Text: "y"}},
			want:    "# 😀y",
		},
		{
			name: "sequential edits",
			text: "a\nb",
			changes: []protocol.TextDocumentContentChangeEvent{
				{Range: rng(0, 1, 0, 1), Text: "c"},
				{Range: rng(1, 0, 1, 1), Text: "d"},
			},
			want: "ac\nd",
		},
		{
			name:    "range past end clamps",
			text:    "abc",
			changes: []protocol.TextDocumentContentChangeEvent{{Range: rng(0, 2, 9, 9), Text: ""}},
			want:    "ab",
		},
		{
			name:    "delete newline",
			text:    "a\r\nb",
			changes: []protocol.TextDocumentContentChangeEvent{{Range: rng(0, 1, 1, 0), Text: " "}},
			want:    "a b",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ApplyChanges(tt.text, tt.changes); got != tt.want {
				t.Fatalf("ApplyChanges = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLinesAndLength(t *testing.T) {
	lines := Lines("on load:\r\n\tset {_x} to 1\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[0] != "on load:" {
		t.Fatalf("carriage return not stripped: %q", lines[0])
	}
	if n := LineLength(lines[1]); n != 14 {
		t.Fatalf("LineLength = %d, want 14", n)
	}
	if n := LineLength("é😀"); n != 3 {
		t.Fatalf("LineLength = %d, want 3", n)
	}
	if got := Lines(""); len(got) != 1 || got[0] != "" {
		t.Fatalf("Lines(\"\") = %q", got)
	}
}

func TestStore(t *testing.T) {
	s := NewStore()
	uri := protocol.DocumentURI("file:///a.sk")
	s.Open(protocol.TextDocumentItem{URI: uri, LanguageID: "skript", Version: 1, Text: "on load:"})

	d, err := s.Change(uri, 2, []protocol.TextDocumentContentChangeEvent{{Range: rng(0, 3, 0, 7), Text: "join"}})
	if err != nil {
		t.Fatalf("Change: %v", err)
	}
	if d.Text != "on join:" || d.Version != 2 {
		t.Fatalf("unexpected document %+v", d)
	}
	if _, err := s.Change("file:///missing.sk", 1, nil); !errors.Is(err, ErrUnknownDocument) {
		t.Fatalf("expected ErrUnknownDocument, got %v", err)
	}
	if uris := s.URIs(); len(uris) != 1 || uris[0] != uri {
		t.Fatalf("URIs = %v", uris)
	}
	s.Close(uri)
	if _, ok := s.Get(uri); ok {
		t.Fatal("document still present after Close")
	}
}
