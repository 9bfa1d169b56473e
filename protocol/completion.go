package protocol

import "encoding/json"

// CompletionParams parameters for textDocument/completion request.
type CompletionParams struct {
	TextDocumentPositionParams
	Context *CompletionContext `json:"context,omitempty"`
}

// CompletionTriggerKind tells how a completion was triggered.
type CompletionTriggerKind int

const (
	CompletionInvoked                         CompletionTriggerKind = 1
	CompletionTriggerCharacter                CompletionTriggerKind = 2
	CompletionTriggerForIncompleteCompletions CompletionTriggerKind = 3
)

// CompletionContext carries the trigger of a completion request.
type CompletionContext struct {
	TriggerKind      CompletionTriggerKind `json:"triggerKind"`
	TriggerCharacter string                `json:"triggerCharacter,omitempty"`
}

// CompletionList represents a list of completion items.
type CompletionList struct {
	IsIncomplete bool             `json:"isIncomplete"`
	Items        []CompletionItem `json:"items"`
}

// CompletionItem represents a single completion suggestion.
type CompletionItem struct {
	Label            string              `json:"label"`
	Kind             *CompletionItemKind `json:"kind,omitempty"`
	Detail           string              `json:"detail,omitempty"`
	Documentation    json.RawMessage     `json:"documentation,omitempty"` // MarkupContent | string
	SortText         string              `json:"sortText,omitempty"`
	FilterText       string              `json:"filterText,omitempty"`
	InsertText       string              `json:"insertText,omitempty"`
	InsertTextFormat *InsertTextFormat   `json:"insertTextFormat,omitempty"`
	TextEdit         *TextEdit           `json:"textEdit,omitempty"`
}

// CompletionItemKind specifies the kind of completion item.
type CompletionItemKind int

const (
	Text          CompletionItemKind = 1
	Method        CompletionItemKind = 2
	Function      CompletionItemKind = 3
	Constructor   CompletionItemKind = 4
	Field         CompletionItemKind = 5
	Variable      CompletionItemKind = 6
	Class         CompletionItemKind = 7
	Interface     CompletionItemKind = 8
	Module        CompletionItemKind = 9
	Property      CompletionItemKind = 10
	Unit          CompletionItemKind = 11
	Value         CompletionItemKind = 12
	Enum          CompletionItemKind = 13
	Keyword       CompletionItemKind = 14
	Snippet       CompletionItemKind = 15
	Color         CompletionItemKind = 16
	File          CompletionItemKind = 17
	Reference     CompletionItemKind = 18
	Folder        CompletionItemKind = 19
	EnumMember    CompletionItemKind = 20
	Constant      CompletionItemKind = 21
	Struct        CompletionItemKind = 22
	Event         CompletionItemKind = 23
	Operator      CompletionItemKind = 24
	TypeParameter CompletionItemKind = 25
)

// InsertTextFormat defines whether the insert text is plaintext or a snippet.
type InsertTextFormat int

const (
	PlainTextFormat InsertTextFormat = 1
	SnippetFormat   InsertTextFormat = 2
)
