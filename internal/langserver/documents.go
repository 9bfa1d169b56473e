package langserver

import (
	"context"

	"go.uber.org/zap"

	"github.com/akhenakh/skriptls/protocol"
)

func (s *Server) didOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	doc := s.docs.Open(params.TextDocument)
	s.logger.Debug("document opened",
		zap.String("uri", string(doc.URI)),
		zap.Int("version", doc.Version),
		zap.String("language", doc.LanguageID))
	s.engine.Touch(doc.URI)
	return nil
}

func (s *Server) didChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	doc, err := s.docs.Change(params.TextDocument.URI, params.TextDocument.Version, params.ContentChanges)
	if err != nil {
		return err
	}
	s.engine.Touch(doc.URI)
	return nil
}

func (s *Server) didSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := params.TextDocument.URI
	if params.Text != nil {
		if _, err := s.docs.SetText(uri, *params.Text); err != nil {
			return err
		}
	}
	if _, ok := s.docs.Get(uri); ok {
		s.engine.Touch(uri)
	}
	return nil
}

func (s *Server) didClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.docs.Close(uri)
	s.engine.Forget(uri)
	s.endProgress(ctx, uri, "closed")
	s.logger.Debug("document closed", zap.String("uri", string(uri)))
	return protocol.SendDiagnostics(ctx, s.lsp.Conn(), uri, nil, nil)
}
