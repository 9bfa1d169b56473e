// Package server implements the Language Server Protocol lifecycle and
// method dispatch on top of jsonrpc2.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/akhenakh/skriptls/jsonrpc2"
	"github.com/akhenakh/skriptls/protocol"
)

var (
	// ErrExit is returned by Run when the client sent exit after shutdown.
	ErrExit = errors.New("lsp: exit")
	// ErrExitWithoutShutdown is returned by Run when the client sent exit
	// without a prior shutdown request.
	ErrExitWithoutShutdown = errors.New("lsp: exit without shutdown")
)

const exitWait = 2 * time.Second

// Server represents an LSP server.
type Server struct {
	conn         *jsonrpc2.Conn
	handlers     map[string]*typedHandler
	mu           sync.RWMutex
	state        atomic.Value // Stores serverState
	shutdownOnce sync.Once
	pendingReqs  sync.WaitGroup
	logger       *zap.Logger
	opts         *options

	initMu     sync.RWMutex
	initParams *protocol.InitializeParams // Store params from client

	inflightMu sync.Mutex
	inflight   map[string]context.CancelFunc
}

// serverState represents the lifecycle state of the server.
type serverState int

const (
	stateUninitialized serverState = iota
	stateInitializing
	stateRunning
	stateShutdown
)

func (s serverState) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateInitializing:
		return "initializing"
	case stateRunning:
		return "running"
	case stateShutdown:
		return "shutdown"
	}
	return "unknown"
}

// NewServer creates a new LSP server instance.
// It communicates over stdin/stdout unless WithStream is given.
func NewServer(opts ...Option) *Server {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	s := &Server{
		handlers: make(map[string]*typedHandler),
		logger:   options.logger,
		opts:     options,
		inflight: make(map[string]context.CancelFunc),
	}
	s.state.Store(stateUninitialized)

	stream := jsonrpc2.NewStream(options.stream)
	s.conn = jsonrpc2.NewConn(stream)

	s.registerDefaultHandlers()
	return s
}

// registerDefaultHandlers registers handlers for required LSP methods.
func (s *Server) registerDefaultHandlers() {
	for method, h := range map[string]any{
		protocol.MethodInitialize:    s.handleInitialize,
		protocol.MethodInitialized:   s.handleInitialized,
		protocol.MethodShutdown:      s.handleShutdown,
		protocol.MethodCancelRequest: s.handleCancel,
		protocol.MethodSetTrace:      func(context.Context) {},
	} {
		if err := s.Register(method, h); err != nil {
			panic(err)
		}
	}
}

// Register associates a handler function with an LSP method name.
// The handler func must match the signature patterns described in handler.go.
func (s *Server) Register(method string, handlerFunc any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.handlers[method]; exists {
		return fmt.Errorf("handler already registered for method: %s", method)
	}
	th, err := newTypedHandler(handlerFunc)
	if err != nil {
		return fmt.Errorf("invalid handler for method %s: %w", method, err)
	}
	s.handlers[method] = th
	s.logger.Debug("registered handler",
		zap.String("method", method),
		zap.Bool("takesConn", th.takesConn),
		zap.Bool("takesParams", th.takesParams))
	return nil
}

// Conn returns the client connection.
func (s *Server) Conn() *jsonrpc2.Conn { return s.conn }

// InitParams returns the params of the initialize request, or nil before
// the client initialized the server.
func (s *Server) InitParams() *protocol.InitializeParams {
	s.initMu.RLock()
	defer s.initMu.RUnlock()
	return s.initParams
}

// ClientCapabilities returns the capabilities announced by the client.
func (s *Server) ClientCapabilities() protocol.ClientCapabilities {
	if p := s.InitParams(); p != nil {
		return p.Capabilities
	}
	return protocol.ClientCapabilities{}
}

// Run starts the server's main loop, reading and processing messages.
//
// Notifications, initialize and shutdown are handled on the read loop in
// arrival order. Other requests run on their own goroutine. Run returns
// ErrExit or ErrExitWithoutShutdown when the client sends exit.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("server listening")
	defer s.logger.Info("server stopped")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.conn.Close()
		case <-done:
		}
	}()

	for {
		msg, err := s.conn.Read(ctx)
		if err != nil {
			var rpcErr *jsonrpc2.ErrorObject
			if errors.As(err, &rpcErr) {
				s.logger.Warn("dropping malformed message", zap.Error(err))
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				if s.currentState() == stateShutdown {
					return nil
				}
				s.logger.Warn("client closed connection before shutdown")
				return io.ErrUnexpectedEOF
			}
			return fmt.Errorf("fatal error reading message: %w", err)
		}

		switch m := msg.(type) {
		case *jsonrpc2.RequestMessage:
			if m.Method == protocol.MethodInitialize || m.Method == protocol.MethodShutdown {
				s.handleRequest(ctx, m)
				continue
			}
			s.pendingReqs.Add(1)
			go func() {
				defer s.pendingReqs.Done()
				s.handleRequest(ctx, m)
			}()
		case *jsonrpc2.NotificationMessage:
			if m.Method == protocol.MethodExit {
				return s.exit()
			}
			s.handleNotification(ctx, m)
		case *jsonrpc2.ResponseMessage:
			if !s.conn.Deliver(m) {
				s.logger.Warn("response without pending call", zap.ByteString("id", m.ID))
			}
		}
	}
}

// currentState safely gets the current server state.
func (s *Server) currentState() serverState {
	state, _ := s.state.Load().(serverState)
	return state
}

// handleRequest handles an incoming request message.
func (s *Server) handleRequest(ctx context.Context, req *jsonrpc2.RequestMessage) {
	method := req.Method
	log := s.logger.With(zap.String("method", method), zap.ByteString("id", req.ID))
	log.Debug("--> request")

	switch state := s.currentState(); {
	case state == stateShutdown:
		s.sendResponse(ctx, req.ID, nil, jsonrpc2.NewError(jsonrpc2.InvalidRequest, "server is shutting down"))
		return
	case state == stateUninitialized && method != protocol.MethodInitialize:
		s.sendResponse(ctx, req.ID, nil, jsonrpc2.NewError(jsonrpc2.ServerNotInitialized, "server not initialized"))
		return
	}

	s.mu.RLock()
	handler, found := s.handlers[method]
	s.mu.RUnlock()
	if !found {
		s.sendResponse(ctx, req.ID, nil, jsonrpc2.Errorf(jsonrpc2.MethodNotFound, "method not found: %s", method))
		return
	}

	reqCtx, cancel := context.WithCancel(ctx)
	key := idKey(req.ID)
	s.inflightMu.Lock()
	s.inflight[key] = cancel
	s.inflightMu.Unlock()
	defer func() {
		s.inflightMu.Lock()
		delete(s.inflight, key)
		s.inflightMu.Unlock()
		cancel()
	}()

	result, err := handler.invoke(reqCtx, s.conn, req.Params)

	var errResp *jsonrpc2.ErrorObject
	if err != nil {
		switch {
		case errors.As(err, &errResp):
		case errors.Is(err, context.Canceled) && ctx.Err() == nil:
			errResp = jsonrpc2.NewError(jsonrpc2.RequestCancelled, "request cancelled")
		default:
			log.Error("handler failed", zap.Error(err))
			errResp = jsonrpc2.NewError(jsonrpc2.InternalError, err.Error())
		}
	}
	s.sendResponse(ctx, req.ID, result, errResp)
}

// handleNotification handles an incoming notification message.
func (s *Server) handleNotification(ctx context.Context, n *jsonrpc2.NotificationMessage) {
	method := n.Method
	s.logger.Debug("--> notification", zap.String("method", method))

	currentState := s.currentState()
	if currentState == stateShutdown {
		s.logger.Debug("ignoring notification during shutdown", zap.String("method", method))
		return
	}
	if currentState == stateUninitialized && method != protocol.MethodCancelRequest {
		s.logger.Debug("ignoring notification before initialization", zap.String("method", method))
		return
	}

	s.mu.RLock()
	handler, found := s.handlers[method]
	s.mu.RUnlock()
	if !found {
		// Notifications unknown to the server are ignored.
		return
	}
	if _, err := handler.invoke(ctx, s.conn, n.Params); err != nil {
		s.logger.Error("notification handler failed", zap.String("method", method), zap.Error(err))
	}
}

// sendResponse marshals and sends a JSON-RPC response.
func (s *Server) sendResponse(ctx context.Context, id json.RawMessage, result any, respErr *jsonrpc2.ErrorObject) {
	if len(id) == 0 || string(id) == "null" {
		return
	}

	response := &jsonrpc2.ResponseMessage{
		JSONRPC: jsonrpc2.Version,
		ID:      id,
	}
	switch {
	case respErr != nil:
		response.Error = respErr
	case result != nil:
		raw, err := json.Marshal(result)
		if err != nil {
			response.Error = jsonrpc2.Errorf(jsonrpc2.InternalError, "failed to marshal result: %v", err)
		} else {
			response.Result = raw
		}
	default:
		response.Result = json.RawMessage("null")
	}

	if response.Error != nil {
		s.logger.Debug("<-- response", zap.ByteString("id", id), zap.Int("code", response.Error.Code))
	} else {
		s.logger.Debug("<-- response", zap.ByteString("id", id))
	}
	if err := s.conn.Write(ctx, response); err != nil {
		s.logger.Warn("writing response", zap.ByteString("id", id), zap.Error(err))
	}
}

// --- Standard Handlers ---

func (s *Server) handleInitialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	if !s.state.CompareAndSwap(stateUninitialized, stateInitializing) {
		return nil, jsonrpc2.NewError(jsonrpc2.InvalidRequest, "server already initialized or is shutting down")
	}
	s.initMu.Lock()
	s.initParams = params
	s.initMu.Unlock()

	if params.ClientInfo != nil {
		s.logger.Info("client connected",
			zap.String("client", params.ClientInfo.Name),
			zap.String("version", params.ClientInfo.Version))
	}

	return &protocol.InitializeResult{
		Capabilities: s.determineServerCapabilities(),
		ServerInfo:   s.opts.serverInfo,
	}, nil
}

// determineServerCapabilities inspects registered handlers to build the capabilities struct.
func (s *Server) determineServerCapabilities() protocol.ServerCapabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()

	caps := protocol.ServerCapabilities{}
	has := func(method string) bool {
		_, ok := s.handlers[method]
		return ok
	}

	hasOpen := has(protocol.MethodTextDocumentDidOpen)
	hasChange := has(protocol.MethodTextDocumentDidChange)
	hasClose := has(protocol.MethodTextDocumentDidClose)
	hasSave := has(protocol.MethodTextDocumentDidSave)
	if hasOpen || hasChange || hasClose || hasSave {
		caps.TextDocumentSync = &protocol.TextDocumentSyncOptions{
			OpenClose: hasOpen || hasClose,
		}
		if hasChange {
			caps.TextDocumentSync.Change = s.opts.syncKind
		}
		if hasSave {
			caps.TextDocumentSync.Save = &protocol.SaveOptions{IncludeText: true}
		}
	}

	if has(protocol.MethodTextDocumentCompletion) {
		caps.CompletionProvider = &protocol.CompletionOptions{
			TriggerCharacters: s.opts.triggerChars,
		}
	}
	if has(protocol.MethodTextDocumentFoldingRange) {
		caps.FoldingRangeProvider = true
	}
	if has(protocol.MethodTextDocumentSemanticTokens) && s.opts.legend != nil {
		caps.SemanticTokensProvider = &protocol.SemanticTokensOptions{
			Legend: *s.opts.legend,
			Full:   true,
		}
	}
	if has(protocol.MethodTextDocumentCodeAction) {
		caps.CodeActionProvider = &protocol.CodeActionOptions{
			CodeActionKinds: s.opts.codeActionKinds,
		}
	}
	if has(protocol.MethodWorkspaceExecuteCommand) {
		commands := s.opts.commands
		if commands == nil {
			commands = []string{}
		}
		caps.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{Commands: commands}
	}
	return caps
}

func (s *Server) handleInitialized(ctx context.Context, _ *protocol.InitializedParams) error {
	if !s.state.CompareAndSwap(stateInitializing, stateRunning) {
		s.logger.Warn("initialized received in unexpected state", zap.Stringer("state", s.currentState()))
		return nil
	}
	s.logger.Info("server running")
	if hook := s.opts.onInitialized; hook != nil {
		s.pendingReqs.Add(1)
		go func() {
			defer s.pendingReqs.Done()
			hook(ctx, s)
		}()
	}
	return nil
}

func (s *Server) handleShutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.state.Store(stateShutdown)
		s.logger.Info("server shutting down")
	})
	return nil
}

// handleCancel cancels the context of an in-flight request.
func (s *Server) handleCancel(ctx context.Context, params *protocol.CancelParams) {
	key := idKey(params.ID)
	s.inflightMu.Lock()
	cancel, ok := s.inflight[key]
	s.inflightMu.Unlock()
	if ok {
		s.logger.Debug("cancelling request", zap.String("id", key))
		cancel()
	}
}

// exit waits briefly for pending requests, closes the connection and
// reports how the session ended.
func (s *Server) exit() error {
	graceful := s.currentState() == stateShutdown

	waitCh := make(chan struct{})
	go func() {
		s.pendingReqs.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
	case <-time.After(exitWait):
		s.logger.Warn("timed out waiting for pending requests")
	}

	if err := s.conn.Close(); err != nil {
		s.logger.Debug("closing connection", zap.Error(err))
	}
	if graceful {
		return ErrExit
	}
	return ErrExitWithoutShutdown
}

// Notify sends a notification to the client.
func (s *Server) Notify(ctx context.Context, method string, params any) error {
	if state := s.currentState(); state != stateRunning {
		return fmt.Errorf("cannot send notification %s while server is %s", method, state)
	}
	if err := s.conn.Notify(ctx, method, params); err != nil {
		return fmt.Errorf("failed to write notification %s: %w", method, err)
	}
	return nil
}

func idKey(id json.RawMessage) string {
	if unquoted, err := strconv.Unquote(string(id)); err == nil {
		return unquoted
	}
	return string(id)
}
