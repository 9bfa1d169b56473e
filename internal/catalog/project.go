package catalog

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// EventSuffix opens the block of an event: a line break and one indent.
const EventSuffix = ":\n\t"

// placeholderRe matches the first %...% span; a backslash escapes the
// character after it.
var placeholderRe = func() *regexp2.Regexp {
	re := regexp2.MustCompile(`(%)(?:(?=(\\?))\2.)*?\1`, regexp2.ECMAScript)
	re.MatchTimeout = time.Second
	return re
}()

// BuildValuePattern wraps the first %...% span of pattern as the snippet
// placeholder ${1:%...%}. Later spans are left literal.
func BuildValuePattern(pattern string) string {
	m, err := placeholderRe.FindStringMatch(pattern)
	if err != nil || m == nil {
		return pattern
	}
	// Match offsets count runes.
	runes := []rune(pattern)
	var b strings.Builder
	b.Grow(len(pattern) + 5)
	b.WriteString(string(runes[:m.Index]))
	b.WriteString("${1:")
	b.WriteString(m.String())
	b.WriteString("}")
	b.WriteString(string(runes[m.Index+m.Length:]))
	return b.String()
}

// CompletionEntry is an editor-ready suggestion for one pattern line.
type CompletionEntry struct {
	Label         string
	InsertText    string
	Detail        string
	Documentation string
	Event         bool
}

// Detail is the display string of an entry: title, syntax type and addon.
func Detail(e SyntaxEntry) string {
	return e.Title + " - " + e.SyntaxType + " - " + e.AddonName
}

// Project derives one CompletionEntry per non-empty pattern line, in entry
// order then line order.
func Project(entries []SyntaxEntry) []CompletionEntry {
	out := make([]CompletionEntry, 0, len(entries))
	for _, e := range entries {
		detail := Detail(e)
		for _, line := range strings.Split(e.SyntaxPattern, "\n") {
			line = strings.TrimSuffix(line, "\r")
			if line == "" {
				continue
			}
			insert := BuildValuePattern(line)
			if e.IsEvent() {
				insert += EventSuffix
			}
			out = append(out, CompletionEntry{
				Label:         line,
				InsertText:    insert,
				Detail:        detail,
				Documentation: e.Description,
				Event:         e.IsEvent(),
			})
		}
	}
	return out
}
