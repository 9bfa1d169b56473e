// Package diagnostic projects line-addressed diagnostics from the parse
// service onto document markers.
package diagnostic

import (
	"github.com/akhenakh/skriptls/internal/document"
)

// Diagnostic is an error or warning reported by the parse service. Line is
// 1-based; 0 is treated as the first line.
type Diagnostic struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Severity of a marker.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	}
	return "unknown"
}

// Marker is a diagnostic spanning one full line. Lines are 1-based, columns
// count UTF-16 units from 0 and EndColumn is one past the line length.
type Marker struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
	Message     string
	Severity    Severity
	Origin      Diagnostic
}

// LineIndex maps a diagnostic line to a 0-based index into a document of
// lineCount lines. Lines outside the document are clamped to the nearest
// existing line.
func LineIndex(line, lineCount int) int {
	idx := line - 1
	if line == 0 {
		idx = 0
	}
	if idx >= lineCount {
		idx = lineCount - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// Project builds one full-line marker per diagnostic against the current
// lines of the document.
func Project(lines []string, diags []Diagnostic, severity Severity) []Marker {
	markers := make([]Marker, 0, len(diags))
	for _, d := range diags {
		idx := LineIndex(d.Line, len(lines))
		length := 0
		if idx < len(lines) {
			length = document.LineLength(lines[idx])
		}
		markers = append(markers, Marker{
			StartLine:   idx + 1,
			StartColumn: 0,
			EndLine:     idx + 1,
			EndColumn:   length + 1,
			Message:     d.Message,
			Severity:    severity,
			Origin:      d,
		})
	}
	return markers
}
