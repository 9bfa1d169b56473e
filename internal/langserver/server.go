// Package langserver is the Skript language server: it binds documents,
// analysis, the syntax catalog and the grammar to LSP methods.
package langserver

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/akhenakh/skriptls/internal/analysis"
	"github.com/akhenakh/skriptls/internal/catalog"
	"github.com/akhenakh/skriptls/internal/config"
	"github.com/akhenakh/skriptls/internal/document"
	"github.com/akhenakh/skriptls/internal/grammar"
	"github.com/akhenakh/skriptls/internal/notify"
	"github.com/akhenakh/skriptls/protocol"
	"github.com/akhenakh/skriptls/server"
)

// Name is reported to clients in serverInfo.
const Name = "skriptls"

// Commands handled by workspace/executeCommand.
const (
	CommandParse          = "skript.parse"
	CommandDiagnostics    = "skript.diagnostics"
	CommandSetParseURL    = "skript.setParseUrl"
	CommandRefreshCatalog = "skript.refreshCatalog"
)

// Config holds the dependencies of a Server.
type Config struct {
	// Stream carries the LSP messages. Nil means stdin/stdout.
	Stream   io.ReadWriter
	Parser   analysis.Parser
	Live     *config.Live
	Catalog  *catalog.Store
	Loader   *catalog.Loader // nil disables catalog loading
	Debounce time.Duration
	Logger   *zap.Logger
	Version  string
}

// Server is a running Skript language server.
type Server struct {
	lsp      *server.Server
	docs     *document.Store
	engine   *analysis.Engine
	catalog  *catalog.Store
	loader   *catalog.Loader
	live     *config.Live
	notifier notify.Notifier
	logger   *zap.Logger

	progressMu sync.Mutex
	progress   map[protocol.DocumentURI]string
}

// New builds a server from cfg and registers its handlers.
func New(cfg Config) (*Server, error) {
	if cfg.Parser == nil {
		return nil, errors.New("langserver: a parser is required")
	}
	if cfg.Live == nil {
		return nil, errors.New("langserver: a live configuration is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := cfg.Catalog
	if store == nil {
		store = catalog.NewStore()
	}
	delay := cfg.Debounce
	if delay <= 0 {
		delay = analysis.DefaultDelay
	}

	s := &Server{
		docs:     document.NewStore(),
		catalog:  store,
		loader:   cfg.Loader,
		live:     cfg.Live,
		logger:   logger,
		progress: make(map[protocol.DocumentURI]string),
	}

	opts := []server.Option{
		server.WithLogger(logger.Named("lsp")),
		server.WithServerInfo(Name, cfg.Version),
		server.WithTextDocumentSync(protocol.SyncIncremental),
		server.WithCommands(CommandParse, CommandDiagnostics, CommandSetParseURL, CommandRefreshCatalog),
		server.WithCodeActionKinds(protocol.Source),
		server.WithSemanticTokensLegend(grammar.Legend),
		server.WithInitializedHook(s.initialized),
	}
	if cfg.Stream != nil {
		opts = append(opts, server.WithStream(cfg.Stream))
	}
	s.lsp = server.NewServer(opts...)
	s.notifier = notify.NewClient(s.lsp.Conn(), logger.Named("notify"))

	s.engine = analysis.NewEngine(cfg.Parser, s.docs, s,
		analysis.WithDelay(delay),
		analysis.WithLogger(logger.Named("analysis")),
		analysis.WithNotifier(s.notifier),
		analysis.WithParseURL(cfg.Live.ParseURL),
	)
	cfg.Live.Subscribe(func(u string) {
		uris := s.docs.URIs()
		logger.Info("parse url changed", zap.String("url", u), zap.Int("documents", len(uris)))
		for _, uri := range uris {
			s.engine.Touch(uri)
		}
	})

	if err := s.register(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) register() error {
	for method, h := range map[string]any{
		protocol.MethodTextDocumentDidOpen:             s.didOpen,
		protocol.MethodTextDocumentDidChange:           s.didChange,
		protocol.MethodTextDocumentDidSave:             s.didSave,
		protocol.MethodTextDocumentDidClose:            s.didClose,
		protocol.MethodTextDocumentCompletion:          s.completion,
		protocol.MethodTextDocumentSemanticTokens:      s.semanticTokens,
		protocol.MethodTextDocumentFoldingRange:        s.foldingRange,
		protocol.MethodTextDocumentCodeAction:          s.codeAction,
		protocol.MethodWorkspaceExecuteCommand:         s.executeCommand,
		protocol.MethodWorkspaceDidChangeConfiguration: s.didChangeConfiguration,
		protocol.MethodSkriptLanguageConfiguration:     s.languageConfiguration,
	} {
		if err := s.lsp.Register(method, h); err != nil {
			return err
		}
	}
	return nil
}

// Run serves until the client exits, then stops pending analyses. It
// returns server.ErrExit after a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	defer s.engine.Close()
	return s.lsp.Run(ctx)
}

// initialized loads the syntax catalog once the client is ready.
func (s *Server) initialized(ctx context.Context, _ *server.Server) {
	if s.loader == nil {
		return
	}
	if s.loader.Warm() {
		s.logger.Debug("serving cached catalog until the fetch completes")
	}
	n, err := s.loader.Load(ctx)
	if err != nil {
		s.logger.Warn("catalog unavailable", zap.Error(err), zap.Int("entries", n))
		s.notifier.Notify(ctx, notify.LevelWarning, "Skript syntax catalog unavailable: "+err.Error())
	}
}
