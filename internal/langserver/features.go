package langserver

import (
	"context"
	"encoding/json"

	"github.com/akhenakh/skriptls/internal/catalog"
	"github.com/akhenakh/skriptls/internal/grammar"
	"github.com/akhenakh/skriptls/jsonrpc2"
	"github.com/akhenakh/skriptls/protocol"
)

func (s *Server) completion(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	entries := s.catalog.Completions()
	snippets := s.lsp.ClientCapabilities().SnippetSupport()
	items := make([]protocol.CompletionItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, completionItem(e, snippets))
	}
	return &protocol.CompletionList{Items: items}, nil
}

func completionItem(e catalog.CompletionEntry, snippets bool) protocol.CompletionItem {
	kind := protocol.Snippet
	if e.Event {
		kind = protocol.Event
	}
	format := protocol.SnippetFormat
	insert := e.InsertText
	if !snippets {
		format = protocol.PlainTextFormat
		insert = e.Label
		if e.Event {
			insert += catalog.EventSuffix
		}
	}
	item := protocol.CompletionItem{
		Label:            e.Label,
		Kind:             &kind,
		Detail:           e.Detail,
		InsertText:       insert,
		InsertTextFormat: &format,
	}
	if e.Documentation != "" {
		item.Documentation, _ = json.Marshal(protocol.MarkupContent{Kind: protocol.PlainText, Value: e.Documentation})
	}
	return item
}

func (s *Server) semanticTokens(ctx context.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	doc, ok := s.docs.Get(params.TextDocument.URI)
	if !ok {
		return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "unknown document %s", params.TextDocument.URI)
	}
	data, err := grammar.SemanticTokens(doc.Text)
	if err != nil {
		return nil, err
	}
	return &protocol.SemanticTokens{Data: data}, nil
}

func (s *Server) foldingRange(ctx context.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	doc, ok := s.docs.Get(params.TextDocument.URI)
	if !ok {
		return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "unknown document %s", params.TextDocument.URI)
	}
	return grammar.FoldingRanges(doc.Text), nil
}

// codeAction offers the manual parse trigger.
func (s *Server) codeAction(ctx context.Context, params *protocol.CodeActionParams) ([]protocol.CodeAction, error) {
	uri := params.TextDocument.URI
	if _, ok := s.docs.Get(uri); !ok || !params.Context.Allows(protocol.Source) {
		return nil, nil
	}
	arg, err := json.Marshal(uri)
	if err != nil {
		return nil, err
	}
	return []protocol.CodeAction{{
		Title: "Parse now",
		Kind:  protocol.Source,
		Command: &protocol.Command{
			Title:     "Parse now",
			Command:   CommandParse,
			Arguments: []json.RawMessage{arg},
		},
	}}, nil
}

func (s *Server) languageConfiguration(ctx context.Context) (grammar.LanguageConfiguration, error) {
	return grammar.Configuration(), nil
}
