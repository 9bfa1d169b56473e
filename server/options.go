package server

import (
	"context"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/akhenakh/skriptls/protocol"
)

// Option defines a function signature for configuring the Server.
type Option func(*options)

// options holds the configurable settings for a Server.
type options struct {
	stream          io.ReadWriter // Default: os.Stdin/os.Stdout
	logger          *zap.Logger   // Default: no-op
	serverInfo      *protocol.ServerInfo
	syncKind        protocol.TextDocumentSyncKind
	commands        []string
	triggerChars    []string
	codeActionKinds []protocol.CodeActionKind
	legend          *protocol.SemanticTokensLegend
	onInitialized   func(ctx context.Context, s *Server)
}

// defaultOptions returns the default server configuration.
func defaultOptions() *options {
	return &options{
		stream:   ReadWriter{os.Stdin, os.Stdout}, // Combine stdin/stdout
		logger:   zap.NewNop(),
		syncKind: protocol.SyncFull,
	}
}

// WithStream sets the input/output stream for the server connection.
func WithStream(rw io.ReadWriter) Option {
	return func(o *options) {
		o.stream = rw
	}
}

// WithLogger sets the logger used by the server.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithServerInfo sets the name and version reported by initialize.
func WithServerInfo(name, version string) Option {
	return func(o *options) {
		o.serverInfo = &protocol.ServerInfo{Name: name, Version: version}
	}
}

// WithTextDocumentSync selects the change sync kind advertised when
// textDocument/didChange is handled.
func WithTextDocumentSync(kind protocol.TextDocumentSyncKind) Option {
	return func(o *options) {
		o.syncKind = kind
	}
}

// WithCommands lists the commands handled by workspace/executeCommand.
func WithCommands(commands ...string) Option {
	return func(o *options) {
		o.commands = append(o.commands, commands...)
	}
}

// WithCompletionTriggers sets the completion trigger characters.
func WithCompletionTriggers(chars ...string) Option {
	return func(o *options) {
		o.triggerChars = append(o.triggerChars, chars...)
	}
}

// WithCodeActionKinds lists the code action kinds the server may return.
func WithCodeActionKinds(kinds ...protocol.CodeActionKind) Option {
	return func(o *options) {
		o.codeActionKinds = append(o.codeActionKinds, kinds...)
	}
}

// WithSemanticTokensLegend sets the legend advertised with
// textDocument/semanticTokens/full.
func WithSemanticTokensLegend(legend protocol.SemanticTokensLegend) Option {
	return func(o *options) {
		o.legend = &legend
	}
}

// WithInitializedHook registers fn to run once the client has sent
// initialized. fn runs on its own goroutine so it may issue requests to the
// client.
func WithInitializedHook(fn func(ctx context.Context, s *Server)) Option {
	return func(o *options) {
		o.onInitialized = fn
	}
}

// ReadWriter combines an io.Reader and io.Writer into an io.ReadWriter.
// Useful for using os.Stdin and os.Stdout together.
type ReadWriter struct {
	io.Reader
	io.Writer
}

// Close attempts to close the underlying streams if they support it.
func (rw ReadWriter) Close() error {
	var errR, errW error
	cR, okR := rw.Reader.(io.Closer)
	cW, okW := rw.Writer.(io.Closer)

	if okR {
		errR = cR.Close()
	}

	// Close the writer only if it's a closer AND it's different from the reader's closer
	// (or if the reader wasn't a closer).
	if okW && (!okR || cR != cW) {
		errW = cW.Close()
	}

	if errR != nil {
		return errR // Prioritize reader error
	}
	return errW // Return writer error if reader error was nil
}
