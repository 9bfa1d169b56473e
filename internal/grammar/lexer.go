// Package grammar describes the Skript language to editors: a chroma regex
// lexer, semantic token classification, folding and the static language
// configuration.
package grammar

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// LanguageID is the LSP language identifier of Skript documents.
const LanguageID = "skript"

// Keywords are the reserved words highlighted as keywords.
var Keywords = []string{
	"set", "continue", "for", "new", "switch", "assert", "goto", "do",
	"if", "private", "this", "break", "protected", "throw", "else", "public",
	"enum", "return", "catch", "try", "interface", "static", "class",
	"finally", "const", "super", "while", "true", "false", "trigger",
}

// TypeKeywords are the reserved type names.
var TypeKeywords = []string{
	"boolean", "double", "byte", "int", "short", "char", "void", "long", "float",
}

// Operators lists the operator symbols of the language.
var Operators = []string{
	"=", ">", "<", "!", "~", "?", ":", "==", "<=", ">=", "!=",
	"&&", "||", "++", "--", "+", "-", "*", "/", "&", "|", "^", "%",
	"<<", ">>", ">>>", "+=", "-=", "*=", "/=",
}

// Lexer is the Skript lexer, registered with chroma's lexer registry.
var Lexer = lexers.Register(chroma.MustNewLexer(
	&chroma.Config{
		Name:      "Skript",
		Aliases:   []string{"skript", "sk"},
		Filenames: []string{"*.sk"},
		MimeTypes: []string{"text/x-skript"},
		EnsureNL:  true,
	},
	skriptRules,
))

// Continuation states consume the line break themselves so a construct
// spanning lines keeps its state instead of being reset to root.
func skriptRules() chroma.Rules {
	return chroma.Rules{
		"root": {
			chroma.Include("whitespace"),
			chroma.Include("numbers"),
			chroma.Include("strings"),
			chroma.Include("skriptOptionsVariable"),
			chroma.Include("skriptVariables"),
			{Pattern: `[,:;]`, Type: chroma.Punctuation},
			{Pattern: `[{}\[\]()%]`, Type: chroma.Punctuation},
			{Pattern: `@[a-zA-Z]\w*`, Type: chroma.NameDecorator},
			{Pattern: chroma.Words(``, `\b`, clone(TypeKeywords)...), Type: chroma.KeywordType},
			{Pattern: chroma.Words(``, `\b`, clone(Keywords)...), Type: chroma.Keyword},
			{Pattern: `[a-zA-Z]\w*`, Type: chroma.Name},
			{Pattern: `.`, Type: chroma.Text},
		},
		"whitespace": {
			{Pattern: `\s+`, Type: chroma.TextWhitespace},
			{Pattern: `(^#.*$)`, Type: chroma.CommentSingle},
			{Pattern: `('''.*''')|(""".*""")`, Type: chroma.LiteralString},
			{Pattern: `'''.*$`, Type: chroma.LiteralString, Mutator: chroma.Push("endDocString")},
			{Pattern: `""".*$`, Type: chroma.LiteralString, Mutator: chroma.Push("endDblDocString")},
		},
		"endDocString": {
			{Pattern: `\n`, Type: chroma.LiteralString},
			{Pattern: `\\'`, Type: chroma.LiteralString},
			{Pattern: `.*'''`, Type: chroma.LiteralString, Mutator: chroma.Pop(1)},
			{Pattern: `.*$`, Type: chroma.LiteralString},
		},
		"endDblDocString": {
			{Pattern: `\n`, Type: chroma.LiteralString},
			{Pattern: `\\"`, Type: chroma.LiteralString},
			{Pattern: `.*"""`, Type: chroma.LiteralString, Mutator: chroma.Pop(1)},
			{Pattern: `.*$`, Type: chroma.LiteralString},
		},
		"numbers": {
			{Pattern: `-?0x([abcdef]|[ABCDEF]|\d)+[lL]?`, Type: chroma.LiteralNumberHex},
			{Pattern: `-?(\d*\.)?\d+([eE][+-]?\d+)?[jJ]?[lL]?`, Type: chroma.LiteralNumber},
		},
		"strings": {
			{Pattern: `'$`, Type: chroma.LiteralStringDelimiter},
			{Pattern: `'`, Type: chroma.LiteralStringDelimiter, Mutator: chroma.Push("stringBody")},
			{Pattern: `"$`, Type: chroma.LiteralStringDelimiter},
			{Pattern: `"`, Type: chroma.LiteralStringDelimiter, Mutator: chroma.Push("dblStringBody")},
		},
		"stringBody": {
			{Pattern: `\\.`, Type: chroma.LiteralString},
			{Pattern: `'`, Type: chroma.LiteralStringDelimiter, Mutator: chroma.Pop(1)},
			{Pattern: `.(?=.*')`, Type: chroma.LiteralString},
			{Pattern: `.*\\\n`, Type: chroma.LiteralString},
			{Pattern: `.*$`, Type: chroma.LiteralString, Mutator: chroma.Pop(1)},
		},
		"dblStringBody": {
			{Pattern: `\\.`, Type: chroma.LiteralString},
			{Pattern: `"`, Type: chroma.LiteralStringDelimiter, Mutator: chroma.Pop(1)},
			{Pattern: `.(?=.*")`, Type: chroma.LiteralString},
			{Pattern: `.*\\\n`, Type: chroma.LiteralString},
			{Pattern: `.*$`, Type: chroma.LiteralString, Mutator: chroma.Pop(1)},
		},
		"skriptVariables": {
			{Pattern: `}$`, Type: chroma.NameVariable},
			{Pattern: `{`, Type: chroma.NameVariable, Mutator: chroma.Push("skriptVariablesBody")},
		},
		"skriptVariablesBody": {
			{Pattern: `\\.`, Type: chroma.NameVariable},
			{Pattern: `}`, Type: chroma.NameVariable, Mutator: chroma.Pop(1)},
			{Pattern: `.(?=.*})`, Type: chroma.NameVariable},
			{Pattern: `.*\\\n`, Type: chroma.NameVariable},
			{Pattern: `.*$`, Type: chroma.NameVariable, Mutator: chroma.Pop(1)},
		},
		"skriptOptionsVariable": {
			{Pattern: `}$`, Type: chroma.NameVariableGlobal},
			{Pattern: `{@`, Type: chroma.NameVariableGlobal, Mutator: chroma.Push("skriptOptionsVariableBody")},
		},
		"skriptOptionsVariableBody": {
			{Pattern: `\\.`, Type: chroma.NameVariableGlobal},
			{Pattern: `}`, Type: chroma.NameVariableGlobal, Mutator: chroma.Pop(1)},
			{Pattern: `.(?=.*})`, Type: chroma.NameVariableGlobal},
			{Pattern: `.*\\\n`, Type: chroma.NameVariableGlobal},
			{Pattern: `.*$`, Type: chroma.NameVariableGlobal, Mutator: chroma.Pop(1)},
		},
	}
}

// clone protects the exported lists from chroma.Words, which sorts in place.
func clone(words []string) []string { return append([]string(nil), words...) }

// Tokenise runs the lexer over text.
func Tokenise(text string) ([]chroma.Token, error) {
	it, err := Lexer.Tokenise(nil, text)
	if err != nil {
		return nil, err
	}
	return it.Tokens(), nil
}
