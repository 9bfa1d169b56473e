// Package jsonrpc2 implements the JSON-RPC 2.0 framing used by the Language
// Server Protocol: Content-Length headed messages over a byte stream.
package jsonrpc2

import (
	"encoding/json"
	"fmt"
)

const Version = "2.0"

// RequestMessage is a JSON-RPC request. ID is kept raw so string and number
// identifiers round-trip untouched.
type RequestMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// ResponseMessage is a JSON-RPC response.
type ResponseMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// NotificationMessage is a JSON-RPC notification (a request without ID).
type NotificationMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// ErrorObject is the error member of a response.
type ErrorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ErrorObject) Error() string {
	return fmt.Sprintf("jsonrpc2 error %d: %s", e.Code, e.Message)
}

// JSON-RPC 2.0 error codes.
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// LSP error codes.
const (
	ServerNotInitialized = -32002
	RequestFailed        = -32803
	RequestCancelled     = -32800
	ContentModified      = -32801
)

// NewError creates a new ErrorObject.
func NewError(code int, message string) *ErrorObject {
	return &ErrorObject{Code: code, Message: message}
}

// Errorf creates a new ErrorObject with a formatted message.
func Errorf(code int, format string, args ...any) *ErrorObject {
	return &ErrorObject{Code: code, Message: fmt.Sprintf(format, args...)}
}
