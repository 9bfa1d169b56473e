package jsonrpc2

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	headerContentLength = "Content-Length"
	headerSeparator     = "\r\n"

	// maxContentLength bounds a single message body.
	maxContentLength = 64 << 20
)

// Stream reads and writes framed JSON-RPC messages over an io.ReadWriter.
type Stream struct {
	reader *bufio.Reader
	writer io.Writer
	source io.ReadWriter
}

// NewStream creates a new Stream.
func NewStream(rw io.ReadWriter) *Stream {
	return &Stream{
		reader: bufio.NewReader(rw),
		writer: rw,
		source: rw,
	}
}

// Close closes the underlying source if it implements io.Closer.
func (s *Stream) Close() error {
	if closer, ok := s.source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// ReadMessage reads the next message body. A clean end of input before any
// header byte is reported as io.EOF.
func (s *Stream) ReadMessage() ([]byte, error) {
	contentLength := -1
	first := true
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if first && errors.Is(err, io.EOF) && line == "" {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read header line: %w", err)
		}
		first = false

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(name), headerContentLength) {
			// Content-Type is always utf-8 JSON for LSP.
			continue
		}
		length, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid Content-Length %q: %w", value, err)
		}
		if length <= 0 || length > maxContentLength {
			return nil, fmt.Errorf("invalid Content-Length: %d", length)
		}
		contentLength = length
	}

	if contentLength == -1 {
		return nil, errors.New("missing Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(s.reader, body); err != nil {
		return nil, fmt.Errorf("failed to read message content (expected %d bytes): %w", contentLength, err)
	}
	return body, nil
}

// WriteMessage marshals msg and writes it with its header in a single Write.
func (s *Stream) WriteMessage(msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + 32)
	fmt.Fprintf(&buf, "%s: %d%s%s", headerContentLength, len(body), headerSeparator, headerSeparator)
	buf.Write(body)

	if _, err := s.writer.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}
