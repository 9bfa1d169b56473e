package grammar

import (
	"encoding/json"
	"testing"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/akhenakh/skriptls/protocol"
)

// significant returns the non-whitespace tokens of text.
func significant(t *testing.T, text string) []chroma.Token {
	t.Helper()
	tokens, err := Tokenise(text)
	if err != nil {
		t.Fatalf("Tokenise: %v", err)
	}
	var out []chroma.Token
	for _, tok := range tokens {
		if tok.Type == chroma.TextWhitespace || tok.Value == "" {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func TestLexerRegistered(t *testing.T) {
	if l := lexers.Get("skript"); l == nil || l.Config().Name != "Skript" {
		t.Fatalf("skript lexer not registered: %v", l)
	}
	if l := lexers.Get("sk"); l == nil || l.Config().Name != "Skript" {
		t.Fatal("sk alias not registered")
	}
}

func TestTokeniseClasses(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		first chroma.TokenType
		value string
	}{
		{"comment", "# hello world", chroma.CommentSingle, "# hello world"},
		{"keyword", "set {_x} to 1", chroma.Keyword, "set"},
		{"type keyword", "int", chroma.KeywordType, "int"},
		{"identifier", "settings", chroma.Name, "settings"},
		{"hex", "0xFFl", chroma.LiteralNumberHex, "0xFFl"},
		{"number", "-1.5e3", chroma.LiteralNumber, "-1.5e3"},
		{"tag", "@plugin", chroma.NameDecorator, "@plugin"},
		{"option", "{@prefix}", chroma.NameVariableGlobal, "{@"},
		{"variable", "{_x}", chroma.NameVariable, "{"},
		{"string", `"hi"`, chroma.LiteralStringDelimiter, `"`},
		{"doc string", "'''doc'''", chroma.LiteralString, "'''doc'''"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := significant(t, tt.text)
			if len(toks) == 0 {
				t.Fatal("no tokens")
			}
			if toks[0].Type != tt.first || toks[0].Value != tt.value {
				t.Fatalf("first token = %s %q, want %s %q", toks[0].Type, toks[0].Value, tt.first, tt.value)
			}
		})
	}
}

func TestMultiLineDocString(t *testing.T) {
	toks := significant(t, "'''start\nmiddle\nend'''\nset")
	last := toks[len(toks)-1]
	if last.Type != chroma.Keyword || last.Value != "set" {
		t.Fatalf("lexer did not leave doc string: last token %s %q", last.Type, last.Value)
	}
	for _, tok := range toks[:len(toks)-1] {
		if tok.Type != chroma.LiteralString {
			t.Fatalf("unexpected token inside doc string: %s %q", tok.Type, tok.Value)
		}
	}
}

func TestUnterminatedStringEndsAtLineEnd(t *testing.T) {
	toks := significant(t, "\"abc\nset")
	last := toks[len(toks)-1]
	if last.Type != chroma.Keyword {
		t.Fatalf("string leaked past line end: %s %q", last.Type, last.Value)
	}
}

func TestSemanticTokens(t *testing.T) {
	text := "# c\non load:\n\tset {_x} to \"é\""
	data, err := SemanticTokens(text)
	if err != nil {
		t.Fatalf("SemanticTokens: %v", err)
	}
	want := []uint32{
		0, 0, 3, TokenComment, 0,
		2, 1, 3, TokenKeyword, 0,
		0, 4, 4, TokenVariable, 0,
		0, 8, 3, TokenString, 0,
	}
	if len(data) != len(want) {
		t.Fatalf("data = %v, want %v", data, want)
	}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("data = %v, want %v", data, want)
		}
	}
}

func TestSemanticTokensOptionsAreReadonly(t *testing.T) {
	spans, err := Spans("send {@prefix}")
	if err != nil {
		t.Fatalf("Spans: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("spans = %+v", spans)
	}
	s := spans[0]
	if s.Type != TokenMacro || s.Modifiers != ModifierReadonly || s.Start != 5 || s.Length != 9 {
		t.Fatalf("unexpected span %+v", s)
	}
}

func TestFoldingRanges(t *testing.T) {
	text := "#region events\non load:\n\tset {_x} to 1\n\n\tif {_x} is 1:\n\t\tbroadcast \"x\"\n#endregion\ncommand /a:\n\ttrigger:\n\t\tstop"
	got := FoldingRanges(text)
	want := []protocol.FoldingRange{
		{StartLine: 0, EndLine: 6, Kind: protocol.FoldingRegion},
		{StartLine: 1, EndLine: 5},
		{StartLine: 4, EndLine: 5},
		{StartLine: 7, EndLine: 9},
		{StartLine: 8, EndLine: 9},
	}
	if len(got) != len(want) {
		t.Fatalf("FoldingRanges = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("FoldingRanges[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestIndentsNext(t *testing.T) {
	for line, want := range map[string]bool{
		"on join:":          true,
		"\tif {_x} is 1:  ": true,
		"command /x:":       false,
		"on join":           false,
		"set {_x} to 1":     false,
	} {
		if got := IndentsNext(line); got != want {
			t.Errorf("IndentsNext(%q) = %v, want %v", line, got, want)
		}
	}
}

func TestConfigurationJSON(t *testing.T) {
	raw, err := json.Marshal(Configuration())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"comments", "brackets", "autoClosingPairs", "surroundingPairs", "onEnterRules", "folding"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing %s", key)
		}
	}
	cfg := Configuration()
	found := false
	for _, p := range cfg.AutoClosingPairs {
		if p.Open == "%" && p.Close == "%" {
			found = true
		}
	}
	if !found {
		t.Error("percent sign is not self-pairing")
	}
}
