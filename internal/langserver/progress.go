package langserver

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akhenakh/skriptls/internal/analysis"
	"github.com/akhenakh/skriptls/protocol"
)

const progressCreateTimeout = 2 * time.Second

// beginProgress starts a work done progress for uri unless one is active.
// The lock is not held while the client answers the create request, which
// is read by the same loop that delivers didClose.
func (s *Server) beginProgress(ctx context.Context, uri protocol.DocumentURI) {
	s.progressMu.Lock()
	if _, ok := s.progress[uri]; ok {
		s.progressMu.Unlock()
		return
	}
	s.progress[uri] = "" // creation pending
	s.progressMu.Unlock()

	token := uuid.NewString()
	cctx, cancel := context.WithTimeout(ctx, progressCreateTimeout)
	defer cancel()
	conn := s.lsp.Conn()
	err := protocol.CreateProgress(cctx, conn, token)

	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	if pending, ok := s.progress[uri]; !ok || pending != "" {
		// Ended while the client was answering.
		return
	}
	if err != nil {
		delete(s.progress, uri)
		s.logger.Debug("progress not created", zap.Error(err))
		return
	}
	if err := protocol.BeginProgress(ctx, conn, token, "Skript", "Parsing "+path.Base(string(uri))); err != nil {
		delete(s.progress, uri)
		s.logger.Debug("progress not started", zap.Error(err))
		return
	}
	s.progress[uri] = token
}

// endProgress ends the work done progress of uri, if any.
func (s *Server) endProgress(ctx context.Context, uri protocol.DocumentURI, message string) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	token, ok := s.progress[uri]
	if !ok {
		return
	}
	delete(s.progress, uri)
	if token == "" {
		return
	}
	if err := protocol.EndProgress(ctx, s.lsp.Conn(), token, message); err != nil {
		s.logger.Debug("progress not ended", zap.Error(err))
	}
}

func summary(st analysis.Status) string {
	return fmt.Sprintf("%d errors, %d warnings", st.Errors, st.Warnings)
}
