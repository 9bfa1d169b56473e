// Package notify delivers short user-facing notifications. The sink is
// injected into the components that need it.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/akhenakh/skriptls/jsonrpc2"
	"github.com/akhenakh/skriptls/protocol"
)

// Level is the severity of a notification.
type Level int

const (
	LevelError Level = iota + 1
	LevelWarning
	LevelInfo
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelInfo:
		return "info"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Notifier shows a transient message to the user.
type Notifier interface {
	Notify(ctx context.Context, level Level, message string)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, level Level, message string)

// Notify calls f.
func (f Func) Notify(ctx context.Context, level Level, message string) { f(ctx, level, message) }

// Discard drops every notification.
var Discard Notifier = Func(func(context.Context, Level, string) {})

// Client sends notifications to the LSP client as window/showMessage.
type Client struct {
	conn   *jsonrpc2.Conn
	logger *zap.Logger
}

// NewClient returns a notifier writing to conn.
func NewClient(conn *jsonrpc2.Conn, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{conn: conn, logger: logger}
}

// Notify implements Notifier.
func (c *Client) Notify(ctx context.Context, level Level, message string) {
	if err := protocol.ShowNotification(ctx, c.conn, messageType(level), message); err != nil {
		c.logger.Warn("notification not delivered", zap.String("message", message), zap.Error(err))
	}
}

func messageType(l Level) protocol.MessageType {
	switch l {
	case LevelError:
		return protocol.Error
	case LevelWarning:
		return protocol.Warning
	}
	return protocol.Info
}

// Writer prints notifications as coloured lines.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a notifier writing to w, usually os.Stderr. Colour
// follows fatih/color's terminal detection.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

var levelColors = map[Level]*color.Color{
	LevelError:   color.New(color.FgRed, color.Bold),
	LevelWarning: color.New(color.FgYellow, color.Bold),
	LevelInfo:    color.New(color.FgCyan),
}

// Notify implements Notifier.
func (w *Writer) Notify(_ context.Context, level Level, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	prefix := level.String()
	if c, ok := levelColors[level]; ok {
		prefix = c.Sprint(prefix)
	}
	fmt.Fprintf(w.w, "%s: %s\n", prefix, message)
}

// Entry is one recorded notification.
type Entry struct {
	Level   Level
	Message string
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, level Level, message string) {
	r.mu.Lock()
	r.entries = append(r.entries, Entry{Level: level, Message: message})
	r.mu.Unlock()
}

// Entries returns a copy of the recorded notifications.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}
