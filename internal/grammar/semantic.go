package grammar

import (
	"strings"

	"fortio.org/safecast"
	"github.com/alecthomas/chroma/v2"

	"github.com/akhenakh/skriptls/internal/document"
	"github.com/akhenakh/skriptls/protocol"
)

// Semantic token types, indexes into Legend.TokenTypes.
const (
	TokenComment uint32 = iota
	TokenString
	TokenNumber
	TokenKeyword
	TokenType
	TokenVariable
	TokenMacro
	TokenDecorator
)

// ModifierReadonly marks option references, which are substituted at load
// time and cannot be assigned.
const ModifierReadonly uint32 = 1 << 0

// Legend is advertised with the semantic tokens capability.
var Legend = protocol.SemanticTokensLegend{
	TokenTypes:     []string{"comment", "string", "number", "keyword", "type", "variable", "macro", "decorator"},
	TokenModifiers: []string{"readonly"},
}

// classify maps a chroma token type to a semantic token type. Tokens that
// editors colour on their own (punctuation, plain names, whitespace) are
// not reported.
func classify(tt chroma.TokenType) (typ, mods uint32, ok bool) {
	switch tt {
	case chroma.CommentSingle:
		return TokenComment, 0, true
	case chroma.LiteralString, chroma.LiteralStringDelimiter:
		return TokenString, 0, true
	case chroma.LiteralNumber, chroma.LiteralNumberHex:
		return TokenNumber, 0, true
	case chroma.Keyword:
		return TokenKeyword, 0, true
	case chroma.KeywordType:
		return TokenType, 0, true
	case chroma.NameVariable:
		return TokenVariable, 0, true
	case chroma.NameVariableGlobal:
		return TokenMacro, ModifierReadonly, true
	case chroma.NameDecorator:
		return TokenDecorator, 0, true
	}
	return 0, 0, false
}

// Span is one classified run of text on a single line. Start and Length
// are in UTF-16 code units.
type Span struct {
	Line      uint32
	Start     uint32
	Length    uint32
	Type      uint32
	Modifiers uint32
}

// Spans classifies text into single-line spans in document order. Adjacent
// spans of the same class on a line are merged.
func Spans(text string) ([]Span, error) {
	tokens, err := Tokenise(text)
	if err != nil {
		return nil, err
	}

	var (
		out        []Span
		line, col  uint32
		hasPending bool
		pending    Span
	)
	flush := func() {
		if hasPending {
			out = append(out, pending)
			hasPending = false
		}
	}
	for _, tok := range tokens {
		typ, mods, ok := classify(tok.Type)
		segments := strings.Split(tok.Value, "\n")
		for i, seg := range segments {
			if i > 0 {
				line++
				col = 0
			}
			n, err := safecast.Conv[uint32](document.LineLength(seg))
			if err != nil {
				return nil, err
			}
			if ok && n > 0 {
				switch {
				case hasPending && pending.Line == line && pending.Start+pending.Length == col &&
					pending.Type == typ && pending.Modifiers == mods:
					pending.Length += n
				default:
					flush()
					pending = Span{Line: line, Start: col, Length: n, Type: typ, Modifiers: mods}
					hasPending = true
				}
			}
			col += n
		}
	}
	flush()
	return out, nil
}

// SemanticTokens encodes the spans of text with the LSP relative encoding.
func SemanticTokens(text string) ([]uint32, error) {
	spans, err := Spans(text)
	if err != nil {
		return nil, err
	}
	data := make([]uint32, 0, len(spans)*5)
	var prevLine, prevStart uint32
	for _, s := range spans {
		deltaLine := s.Line - prevLine
		deltaStart := s.Start
		if deltaLine == 0 {
			deltaStart = s.Start - prevStart
		}
		data = append(data, deltaLine, deltaStart, s.Length, s.Type, s.Modifiers)
		prevLine, prevStart = s.Line, s.Start
	}
	return data, nil
}
