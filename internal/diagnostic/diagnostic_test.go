package diagnostic

import (
	"testing"

	"github.com/akhenakh/skriptls/internal/document"
	"github.com/akhenakh/skriptls/protocol"
)

var doc = []string{"on load:", "\tbroadcast \"hi\"", "\tstop"}

func TestProjectFullLine(t *testing.T) {
	got := Project(doc, []Diagnostic{{Line: 2, Message: "bad"}}, SeverityError)
	if len(got) != 1 {
		t.Fatalf("got %d markers", len(got))
	}
	m := got[0]
	if m.StartLine != 2 || m.EndLine != 2 || m.StartColumn != 0 || m.EndColumn != len(doc[1])+1 {
		t.Fatalf("unexpected marker %+v", m)
	}
	if m.Message != "bad" || m.Severity != SeverityError || m.Origin.Line != 2 {
		t.Fatalf("unexpected marker %+v", m)
	}
}

func TestProjectEmptyDocument(t *testing.T) {
	got := Project(document.Lines(""), []Diagnostic{{Line: 3, Message: "m"}}, SeverityError)
	if len(got) != 1 || got[0].StartLine != 1 || got[0].EndColumn != 1 {
		t.Fatalf("markers = %+v, want one on the single empty line", got)
	}
}

func TestProjectLineZeroIsFirstLine(t *testing.T) {
	m := Project(doc, []Diagnostic{{Line: 0, Message: "m"}}, SeverityWarning)[0]
	if m.StartLine != 1 || m.EndColumn != len(doc[0])+1 {
		t.Fatalf("line 0 not mapped to first line: %+v", m)
	}
}

func TestProjectClampsOutOfRange(t *testing.T) {
	got := Project(doc, []Diagnostic{{Line: 10, Message: "gone"}, {Line: -3, Message: "neg"}}, SeverityError)
	if got[0].StartLine != 3 || got[0].EndColumn != len(doc[2])+1 {
		t.Fatalf("line past end not clamped: %+v", got[0])
	}
	if got[1].StartLine != 1 {
		t.Fatalf("negative line not clamped: %+v", got[1])
	}
	if m := Project(nil, []Diagnostic{{Line: 4}}, SeverityError)[0]; m.StartLine != 1 || m.EndColumn != 1 {
		t.Fatalf("empty document: %+v", m)
	}
}

func TestProjectUTF16Length(t *testing.T) {
	m := Project([]string{"send \"😀\""}, []Diagnostic{{Line: 1}}, SeverityError)[0]
	if m.EndColumn != 10 {
		t.Fatalf("EndColumn = %d, want 10", m.EndColumn)
	}
}

func TestLineIndex(t *testing.T) {
	tests := []struct{ line, count, want int }{
		{0, 3, 0},
		{1, 3, 0},
		{3, 3, 2},
		{4, 3, 2},
		{-1, 3, 0},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := LineIndex(tt.line, tt.count); got != tt.want {
			t.Errorf("LineIndex(%d, %d) = %d, want %d", tt.line, tt.count, got, tt.want)
		}
	}
}

func TestSurfaceChannelsAreIndependent(t *testing.T) {
	s := NewSurface()
	uri := protocol.DocumentURI("file:///a.sk")
	s.Replace(uri, ChannelErrors, Project(doc, []Diagnostic{{Line: 1, Message: "e1"}, {Line: 2, Message: "e2"}}, SeverityError))
	s.Replace(uri, ChannelWarnings, Project(doc, []Diagnostic{{Line: 3, Message: "w1"}}, SeverityWarning))

	s.Replace(uri, ChannelErrors, Project(doc, []Diagnostic{{Line: 3, Message: "e3"}}, SeverityError))
	errs := s.Channel(uri, ChannelErrors)
	if len(errs) != 1 || errs[0].Message != "e3" {
		t.Fatalf("errors channel = %+v", errs)
	}
	if w := s.Channel(uri, ChannelWarnings); len(w) != 1 || w[0].Message != "w1" {
		t.Fatalf("warnings channel disturbed: %+v", w)
	}
}

func TestSurfaceReplaceAllSwapsBoth(t *testing.T) {
	s := NewSurface()
	uri := protocol.DocumentURI("file:///a.sk")
	s.ReplaceAll(uri, map[string][]Marker{
		ChannelErrors:   Project(doc, []Diagnostic{{Line: 1, Message: "old-e"}}, SeverityError),
		ChannelWarnings: Project(doc, []Diagnostic{{Line: 2, Message: "old-w"}}, SeverityWarning),
	})
	s.ReplaceAll(uri, map[string][]Marker{
		ChannelErrors:   Project(doc, []Diagnostic{{Line: 2, Message: "new-e"}}, SeverityError),
		ChannelWarnings: nil,
	})
	all := s.Markers(uri)
	if len(all) != 1 || all[0].Message != "new-e" {
		t.Fatalf("markers from previous response survived: %+v", all)
	}
	if s.Count(uri, ChannelErrors) != 1 || s.Count(uri, ChannelWarnings) != 0 {
		t.Fatal("unexpected counts")
	}
	s.Clear(uri)
	if len(s.Markers(uri)) != 0 {
		t.Fatal("Clear left markers")
	}
}

func TestToProtocol(t *testing.T) {
	markers := Project(doc, []Diagnostic{{Line: 2, Message: "bad"}}, SeverityWarning)
	got := ToProtocol(markers)
	if len(got) != 1 {
		t.Fatalf("got %d diagnostics", len(got))
	}
	d := got[0]
	wantRange := protocol.Range{
		Start: protocol.Position{Line: 1, Character: 0},
		End:   protocol.Position{Line: 1, Character: uint(len(doc[1]))},
	}
	if d.Range != wantRange || d.Severity != protocol.SeverityWarning || d.Message != "bad" || d.Source != Source {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
}
