package jsonrpc2

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

type readWriter struct {
	io.Reader
	io.Writer
}

func frame(body string) string {
	return "Content-Length: " + itoa(len(body)) + "\r\n\r\n" + body
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestStreamRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	s := NewStream(readWriter{Reader: &buf, Writer: &buf})
	msg := &NotificationMessage{JSONRPC: Version, Method: "initialized", Params: json.RawMessage(`{}`)}
	if err := s.WriteMessage(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "Content-Length: ") {
		t.Fatalf("missing header: %q", buf.String())
	}
	body, err := s.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got NotificationMessage
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Method != "initialized" {
		t.Fatalf("unexpected method %q", got.Method)
	}
	if _, err := s.ReadMessage(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF at end of input, got %v", err)
	}
}

func TestStreamRejectsMissingLength(t *testing.T) {
	s := NewStream(readWriter{Reader: strings.NewReader("Content-Type: x\r\n\r\n{}"), Writer: io.Discard})
	if _, err := s.ReadMessage(); err == nil {
		t.Fatal("expected error for missing Content-Length")
	}
}

func TestConnReadClassifiesMessages(t *testing.T) {
	input := frame(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`) +
		frame(`{"jsonrpc":"2.0","method":"initialized","params":{}}`) +
		frame(`{"jsonrpc":"2.0","id":"7","result":null}`)
	c := NewConn(NewStream(readWriter{Reader: strings.NewReader(input), Writer: io.Discard}))
	ctx := context.Background()

	msg, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("read request: %v", err)
	}
	if req, ok := msg.(*RequestMessage); !ok || req.Method != "initialize" {
		t.Fatalf("expected initialize request, got %#v", msg)
	}
	msg, err = c.Read(ctx)
	if err != nil {
		t.Fatalf("read notification: %v", err)
	}
	if _, ok := msg.(*NotificationMessage); !ok {
		t.Fatalf("expected notification, got %T", msg)
	}
	msg, err = c.Read(ctx)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if _, ok := msg.(*ResponseMessage); !ok {
		t.Fatalf("expected response, got %T", msg)
	}
	if _, err := c.Read(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if err := c.Write(ctx, &NotificationMessage{JSONRPC: Version, Method: "x"}); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected closed pipe after EOF, got %v", err)
	}
}

func TestConnCallDeliver(t *testing.T) {
	pr, pw := io.Pipe()
	c := NewConn(NewStream(readWriter{Reader: strings.NewReader(""), Writer: pw}))
	peer := NewStream(readWriter{Reader: pr, Writer: io.Discard})

	type result struct {
		OK bool `json:"ok"`
	}
	done := make(chan error, 1)
	var got result
	go func() {
		done <- c.Call(context.Background(), "window/workDoneProgress/create", map[string]string{"token": "t"}, &got)
	}()

	body, err := peer.ReadMessage()
	if err != nil {
		t.Fatalf("peer read: %v", err)
	}
	var req RequestMessage
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if req.Method != "window/workDoneProgress/create" {
		t.Fatalf("unexpected method %q", req.Method)
	}
	if !c.Deliver(&ResponseMessage{JSONRPC: Version, ID: req.ID, Result: json.RawMessage(`{"ok":true}`)}) {
		t.Fatal("response was not routed to the pending call")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("call: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("call did not return")
	}
	if !got.OK {
		t.Fatal("result was not decoded")
	}
	if c.Deliver(&ResponseMessage{JSONRPC: Version, ID: req.ID}) {
		t.Fatal("duplicate response must not be routed")
	}
}

func TestConnCallErrorResponse(t *testing.T) {
	pr, pw := io.Pipe()
	c := NewConn(NewStream(readWriter{Reader: strings.NewReader(""), Writer: pw}))
	peer := NewStream(readWriter{Reader: pr, Writer: io.Discard})

	done := make(chan error, 1)
	go func() {
		done <- c.Call(context.Background(), "x", nil, nil)
	}()
	body, err := peer.ReadMessage()
	if err != nil {
		t.Fatalf("peer read: %v", err)
	}
	var req RequestMessage
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	c.Deliver(&ResponseMessage{JSONRPC: Version, ID: req.ID, Error: NewError(MethodNotFound, "nope")})

	err = <-done
	var rpcErr *ErrorObject
	if !errors.As(err, &rpcErr) || rpcErr.Code != MethodNotFound {
		t.Fatalf("expected MethodNotFound error, got %v", err)
	}
}
