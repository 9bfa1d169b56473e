package jsonrpc2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
)

// Conn reads and writes JSON-RPC messages over a Stream. Writes are
// serialized; Read must only be called from one goroutine.
type Conn struct {
	stream *Stream
	mu     sync.Mutex // protects writes and closed
	closed bool

	nextID    atomic.Int64
	pendingMu sync.Mutex
	pending   map[string]chan *ResponseMessage
}

// NewConn creates a new connection over stream.
func NewConn(stream *Stream) *Conn {
	return &Conn{
		stream:  stream,
		pending: make(map[string]chan *ResponseMessage),
	}
}

// Read decodes the next message from the stream. The result is one of
// *RequestMessage, *NotificationMessage or *ResponseMessage.
func (c *Conn) Read(ctx context.Context) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := c.stream.ReadMessage()
	if err != nil {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.failPending()
		return nil, err
	}

	var base struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, NewError(ParseError, fmt.Sprintf("failed to parse base message: %v", err))
	}
	hasID := len(base.ID) > 0 && string(base.ID) != "null"

	switch {
	case base.Method != "" && hasID:
		var req RequestMessage
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, NewError(ParseError, fmt.Sprintf("failed to parse request message: %v", err))
		}
		return &req, nil
	case base.Method != "":
		var ntf NotificationMessage
		if err := json.Unmarshal(data, &ntf); err != nil {
			return nil, NewError(ParseError, fmt.Sprintf("failed to parse notification message: %v", err))
		}
		return &ntf, nil
	case hasID:
		var resp ResponseMessage
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, NewError(ParseError, fmt.Sprintf("failed to parse response message: %v", err))
		}
		return &resp, nil
	}
	return nil, NewError(InvalidRequest, "message is not a valid request, notification, or response")
}

// Write encodes and sends msg. It is safe for concurrent use.
func (c *Conn) Write(ctx context.Context, msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return io.ErrClosedPipe
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return c.stream.WriteMessage(msg)
}

// Notify sends a notification with the given params.
func (c *Conn) Notify(ctx context.Context, method string, params any) error {
	raw, err := marshalParams(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params for %s: %w", method, err)
	}
	return c.Write(ctx, &NotificationMessage{JSONRPC: Version, Method: method, Params: raw})
}

// Call sends a request to the peer and waits for its response. The response
// must be handed back through Deliver by whoever owns the read loop. result
// may be nil when the caller does not care about the payload.
func (c *Conn) Call(ctx context.Context, method string, params, result any) error {
	raw, err := marshalParams(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params for %s: %w", method, err)
	}
	id := strconv.FormatInt(c.nextID.Add(1), 10)
	ch := make(chan *ResponseMessage, 1)

	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	req := &RequestMessage{JSONRPC: Version, ID: json.RawMessage(id), Method: method, Params: raw}
	if err := c.Write(ctx, req); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case resp, ok := <-ch:
		if !ok || resp == nil {
			return io.ErrClosedPipe
		}
		if resp.Error != nil {
			return resp.Error
		}
		if result == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
		return nil
	}
}

// Deliver routes a response to the pending Call waiting for it. It reports
// false when no call is waiting for the response ID.
func (c *Conn) Deliver(resp *ResponseMessage) bool {
	key := string(resp.ID)
	if unquoted, err := strconv.Unquote(key); err == nil {
		key = unquoted
	}
	c.pendingMu.Lock()
	ch, ok := c.pending[key]
	if ok {
		delete(c.pending, key)
	}
	c.pendingMu.Unlock()
	if ok {
		ch <- resp
	}
	return ok
}

// Close closes the underlying stream and fails pending calls.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	err := c.stream.Close()
	c.mu.Unlock()
	c.failPending()
	return err
}

func (c *Conn) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	return json.Marshal(params)
}
