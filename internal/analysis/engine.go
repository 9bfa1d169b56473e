// Package analysis schedules remote parses of open documents and applies
// their results to the diagnostic surface.
//
// Edits are debounced per document. Every parse carries a per-document
// sequence number; a result is applied only when no newer result has been
// applied already, so a slow early response never overwrites a fast later
// one.
package analysis

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/akhenakh/skriptls/internal/diagnostic"
	"github.com/akhenakh/skriptls/internal/document"
	"github.com/akhenakh/skriptls/internal/notify"
	"github.com/akhenakh/skriptls/internal/remote"
	"github.com/akhenakh/skriptls/protocol"
)

// DefaultDelay is the quiet period before an edited document is parsed.
const DefaultDelay = 200 * time.Millisecond

// ErrClosed is returned by AnalyzeNow after Close.
var ErrClosed = errors.New("analysis: engine closed")

// Parser sends a script to the parse service.
type Parser interface {
	Parse(ctx context.Context, parseURL, script string) (*remote.ParseResult, error)
}

// Documents gives read access to the open documents.
type Documents interface {
	Get(uri protocol.DocumentURI) (document.Document, bool)
}

// Status is the busy flag and counters of one document.
type Status struct {
	URI      protocol.DocumentURI
	Busy     bool
	Errors   int
	Warnings int
}

// Publisher pushes results to the client.
type Publisher interface {
	PublishDiagnostics(ctx context.Context, uri protocol.DocumentURI, version int, markers []diagnostic.Marker) error
	PublishStatus(ctx context.Context, status Status) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithDelay sets the debounce quiet period.
func WithDelay(d time.Duration) Option {
	return func(e *Engine) { e.delay = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithNotifier sets the sink for failure notifications.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithSurface shares an existing marker surface.
func WithSurface(s *diagnostic.Surface) Option {
	return func(e *Engine) {
		if s != nil {
			e.surface = s
		}
	}
}

// WithParseURL sets the function returning the current parse endpoint.
func WithParseURL(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.parseURL = fn
		}
	}
}

type docState struct {
	debouncer *Debouncer
	issued    uint64
	applied   uint64
	inflight  int
}

// Engine runs analyses.
type Engine struct {
	parser    Parser
	docs      Documents
	publisher Publisher
	surface   *diagnostic.Surface
	notifier  notify.Notifier
	parseURL  func() string
	delay     time.Duration
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	states map[protocol.DocumentURI]*docState
	closed bool

	// applyMu keeps surface updates and their publication in one order.
	applyMu sync.Mutex
}

// NewEngine returns an engine parsing documents from docs with parser and
// reporting through publisher.
func NewEngine(parser Parser, docs Documents, publisher Publisher, opts ...Option) *Engine {
	e := &Engine{
		parser:    parser,
		docs:      docs,
		publisher: publisher,
		surface:   diagnostic.NewSurface(),
		notifier:  notify.Discard,
		parseURL:  func() string { return "" },
		delay:     DefaultDelay,
		logger:    zap.NewNop(),
		states:    make(map[protocol.DocumentURI]*docState),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	return e
}

// Surface returns the marker surface the engine writes to.
func (e *Engine) Surface() *diagnostic.Surface { return e.surface }

// Touch schedules a debounced analysis of uri.
func (e *Engine) Touch(uri protocol.DocumentURI) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.stateLocked(uri).debouncer.Call()
}

func (e *Engine) stateLocked(uri protocol.DocumentURI) *docState {
	st, ok := e.states[uri]
	if !ok {
		st = &docState{}
		st.debouncer = NewDebouncer(e.delay, func() { e.fire(uri) })
		e.states[uri] = st
	}
	return st
}

// fire runs on the debouncer's timer.
func (e *Engine) fire(uri protocol.DocumentURI) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		_, _ = e.analyze(e.ctx, uri)
	}()
}

// AnalyzeNow parses uri immediately, dropping any pending debounced run,
// and returns the resulting status.
func (e *Engine) AnalyzeNow(ctx context.Context, uri protocol.DocumentURI) (Status, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return Status{}, ErrClosed
	}
	e.stateLocked(uri).debouncer.Cancel()
	e.wg.Add(1)
	e.mu.Unlock()
	defer e.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(e.ctx, cancel)
	defer stop()

	return e.analyze(ctx, uri)
}

// Forget drops uri: pending and in-flight analyses are discarded and its
// markers cleared.
func (e *Engine) Forget(uri protocol.DocumentURI) {
	e.mu.Lock()
	if st, ok := e.states[uri]; ok {
		st.debouncer.Cancel()
		delete(e.states, uri)
	}
	e.mu.Unlock()

	e.applyMu.Lock()
	e.surface.Clear(uri)
	e.applyMu.Unlock()
}

// Status returns the current status of uri.
func (e *Engine) Status(uri protocol.DocumentURI) Status {
	e.mu.Lock()
	busy := false
	if st, ok := e.states[uri]; ok {
		busy = st.inflight > 0
	}
	e.mu.Unlock()
	return e.statusFor(uri, busy)
}

func (e *Engine) statusFor(uri protocol.DocumentURI, busy bool) Status {
	return Status{
		URI:      uri,
		Busy:     busy,
		Errors:   e.surface.Count(uri, diagnostic.ChannelErrors),
		Warnings: e.surface.Count(uri, diagnostic.ChannelWarnings),
	}
}

// Close cancels in-flight analyses and waits for them to return.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for _, st := range e.states {
		st.debouncer.Cancel()
	}
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
}

func (e *Engine) analyze(ctx context.Context, uri protocol.DocumentURI) (Status, error) {
	// The snapshot and its sequence number are taken together so that a
	// higher sequence always carries newer text.
	e.mu.Lock()
	st, ok := e.states[uri]
	if !ok {
		e.mu.Unlock()
		return Status{}, document.ErrUnknownDocument
	}
	doc, ok := e.docs.Get(uri)
	if !ok {
		e.mu.Unlock()
		return Status{}, document.ErrUnknownDocument
	}
	st.issued++
	seq := st.issued
	st.inflight++
	e.mu.Unlock()

	logger := e.logger.With(zap.String("uri", string(uri)), zap.Uint64("seq", seq))
	e.publishStatus(ctx, e.statusFor(uri, true))

	parseURL := e.parseURL()
	logger.Debug("parse started", zap.Int("version", doc.Version), zap.String("url", parseURL))
	start := time.Now()
	res, err := e.parser.Parse(ctx, parseURL, doc.Text)

	e.applyMu.Lock()
	defer e.applyMu.Unlock()

	e.mu.Lock()
	st.inflight--
	busy := st.inflight > 0
	current := e.states[uri] == st
	stale := seq <= st.applied
	if err == nil && current && !stale {
		st.applied = seq
	}
	e.mu.Unlock()

	if !current {
		logger.Debug("discarding result for closed document")
		return Status{}, document.ErrUnknownDocument
	}

	if err != nil {
		if ctx.Err() != nil {
			logger.Debug("parse canceled", zap.Error(err))
		} else {
			logger.Warn("parse failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
			e.notifier.Notify(ctx, notify.LevelError, err.Error())
		}
		status := e.statusFor(uri, busy)
		e.publishStatus(ctx, status)
		return status, err
	}

	if stale {
		logger.Debug("discarding stale result")
		status := e.statusFor(uri, busy)
		e.publishStatus(ctx, status)
		return status, nil
	}

	// Project onto the text as it is now; lines that disappeared since
	// the request was sent are clamped.
	latest, ok := e.docs.Get(uri)
	if !ok {
		latest = doc
	}
	lines := latest.Lines()
	e.surface.ReplaceAll(uri, map[string][]diagnostic.Marker{
		diagnostic.ChannelErrors:   diagnostic.Project(lines, res.Errors, diagnostic.SeverityError),
		diagnostic.ChannelWarnings: diagnostic.Project(lines, res.Warnings, diagnostic.SeverityWarning),
	})
	status := e.statusFor(uri, busy)
	logger.Debug("parse applied",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("errors", status.Errors),
		zap.Int("warnings", status.Warnings))

	if err := e.publisher.PublishDiagnostics(ctx, uri, latest.Version, e.surface.Markers(uri)); err != nil {
		logger.Warn("publishing diagnostics failed", zap.Error(err))
	}
	e.publishStatus(ctx, status)
	return status, nil
}

func (e *Engine) publishStatus(ctx context.Context, status Status) {
	if err := e.publisher.PublishStatus(ctx, status); err != nil {
		e.logger.Warn("publishing status failed", zap.String("uri", string(status.URI)), zap.Error(err))
	}
}
