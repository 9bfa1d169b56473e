package grammar

import (
	"time"

	"github.com/dlclark/regexp2"
)

// CharacterPair is an open/close pair of characters.
type CharacterPair struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// AutoClosingPair is a pair closed automatically unless the cursor is inside
// one of the NotIn scopes ("string", "comment").
type AutoClosingPair struct {
	Open  string   `json:"open"`
	Close string   `json:"close"`
	NotIn []string `json:"notIn,omitempty"`
}

// CommentRule describes the comment tokens of the language.
type CommentRule struct {
	LineComment  string    `json:"lineComment"`
	BlockComment [2]string `json:"blockComment"`
}

// OnEnterRule indents the next line when the current line matches
// BeforeText.
type OnEnterRule struct {
	BeforeText string `json:"beforeText"`
	Action     string `json:"action"`
}

// FoldingMarkers delimit explicit folding regions.
type FoldingMarkers struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// FoldingRules describes how the language folds.
type FoldingRules struct {
	OffSide bool           `json:"offSide"`
	Markers FoldingMarkers `json:"markers"`
}

// LanguageConfiguration is the editing metadata of the language, served to
// clients through skript/languageConfiguration.
type LanguageConfiguration struct {
	Comments         CommentRule       `json:"comments"`
	Brackets         [][2]string       `json:"brackets"`
	AutoClosingPairs []AutoClosingPair `json:"autoClosingPairs"`
	SurroundingPairs []CharacterPair   `json:"surroundingPairs"`
	OnEnterRules     []OnEnterRule     `json:"onEnterRules"`
	Folding          FoldingRules      `json:"folding"`
}

const (
	indentPattern      = `^\s*(?:def|on|class|for|if|elif|else|while|try|with|finally|except|async).*?:\s*$`
	regionStartPattern = `^\s*#region\b`
	regionEndPattern   = `^\s*#endregion\b`
)

// Configuration returns the static language configuration.
func Configuration() LanguageConfiguration {
	return LanguageConfiguration{
		Comments: CommentRule{
			LineComment:  "#",
			BlockComment: [2]string{"'''", "'''"},
		},
		Brackets: [][2]string{{"{", "}"}, {"[", "]"}, {"(", ")"}},
		AutoClosingPairs: []AutoClosingPair{
			{Open: "{", Close: "}"},
			{Open: "[", Close: "]"},
			{Open: "(", Close: ")"},
			{Open: "%", Close: "%"},
			{Open: `"`, Close: `"`, NotIn: []string{"string"}},
			{Open: "'", Close: "'", NotIn: []string{"string", "comment"}},
		},
		SurroundingPairs: []CharacterPair{
			{Open: "{", Close: "}"},
			{Open: "[", Close: "]"},
			{Open: "(", Close: ")"},
			{Open: "%", Close: "%"},
			{Open: `"`, Close: `"`},
			{Open: "'", Close: "'"},
		},
		OnEnterRules: []OnEnterRule{
			{BeforeText: indentPattern, Action: "indent"},
		},
		Folding: FoldingRules{
			OffSide: true,
			Markers: FoldingMarkers{Start: regionStartPattern, End: regionEndPattern},
		},
	}
}

var (
	indentRe      = mustCompile(indentPattern)
	regionStartRe = mustCompile(regionStartPattern)
	regionEndRe   = mustCompile(regionEndPattern)
)

func mustCompile(pattern string) *regexp2.Regexp {
	re := regexp2.MustCompile(pattern, regexp2.ECMAScript)
	re.MatchTimeout = time.Second
	return re
}

func matches(re *regexp2.Regexp, line string) bool {
	ok, err := re.MatchString(line)
	return err == nil && ok
}

// IndentsNext reports whether pressing enter after line opens an indented
// block.
func IndentsNext(line string) bool { return matches(indentRe, line) }
