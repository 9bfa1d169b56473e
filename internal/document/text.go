package document

import (
	"strings"
	"unicode/utf8"

	"fortio.org/safecast"

	"github.com/akhenakh/skriptls/protocol"
)

// ApplyChanges applies LSP content changes to text. A change without a range
// replaces the whole text; ranged changes use UTF-16 character offsets.
func ApplyChanges(text string, changes []protocol.TextDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		start := OffsetForPosition(text, change.Range.Start)
		end := OffsetForPosition(text, change.Range.End)
		if end < start {
			end = start
		}
		text = text[:start] + change.Text + text[end:]
	}
	return text
}

// OffsetForPosition converts a line/UTF-16 position into a byte offset.
// Positions past the end of a line or of the text are clamped.
func OffsetForPosition(text string, pos protocol.Position) int {
	wantLine, err := safecast.Conv[int](pos.Line)
	if err != nil {
		return len(text)
	}
	wantChar, err := safecast.Conv[int](pos.Character)
	if err != nil {
		wantChar = int(^uint(0) >> 1)
	}

	line := 0
	i := 0
	for i < len(text) && line < wantLine {
		if text[i] == '\n' {
			line++
		}
		i++
	}
	if line < wantLine {
		return len(text)
	}
	units := 0
	for i < len(text) && units < wantChar {
		if text[i] == '\n' {
			break
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		need := 1
		if r > 0xFFFF {
			need = 2
		}
		if units+need > wantChar {
			break
		}
		units += need
		i += size
	}
	return i
}

// Lines splits text on '\n' and strips a trailing '\r' from each line.
// An empty text has one empty line.
func Lines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// LineLength is the length of line in UTF-16 code units, the unit used for
// LSP character offsets.
func LineLength(line string) int {
	n := 0
	for _, r := range line {
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}
	return n
}
