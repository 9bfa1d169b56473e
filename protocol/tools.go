package protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/akhenakh/skriptls/jsonrpc2"
)

var errNilConn = errors.New("protocol: nil connection")

// ShowNotification sends window/showMessage to the client.
func ShowNotification(ctx context.Context, conn *jsonrpc2.Conn, msgType MessageType, message string) error {
	if conn == nil {
		return errNilConn
	}
	params := ShowMessageParams{
		Type:    msgType,
		Message: message,
	}
	if err := conn.Notify(ctx, MethodWindowShowMessage, params); err != nil {
		return fmt.Errorf("sending showMessage: %w", err)
	}
	return nil
}

// SendDiagnostics sends the full set of diagnostics for uri to the client.
// A nil slice is sent as an empty list so the client clears the document.
func SendDiagnostics(ctx context.Context, conn *jsonrpc2.Conn, uri DocumentURI, version *int, diagnostics []Diagnostic) error {
	if conn == nil {
		return errNilConn
	}
	if diagnostics == nil {
		diagnostics = []Diagnostic{}
	}
	params := PublishDiagnosticsParams{
		URI:         uri,
		Version:     version,
		Diagnostics: diagnostics,
	}
	if err := conn.Notify(ctx, MethodTextDocumentPublishDiagnostics, params); err != nil {
		return fmt.Errorf("sending diagnostics for %s: %w", uri, err)
	}
	return nil
}

// SendStatus sends the skript/status notification.
func SendStatus(ctx context.Context, conn *jsonrpc2.Conn, status SkriptStatusParams) error {
	if conn == nil {
		return errNilConn
	}
	if err := conn.Notify(ctx, MethodSkriptStatus, status); err != nil {
		return fmt.Errorf("sending status for %s: %w", status.URI, err)
	}
	return nil
}

// CreateProgress asks the client to create a work done progress for token.
// The call blocks until the client answers.
func CreateProgress(ctx context.Context, conn *jsonrpc2.Conn, token ProgressToken) error {
	if conn == nil {
		return errNilConn
	}
	params := WorkDoneProgressCreateParams{Token: token}
	if err := conn.Call(ctx, MethodWindowWorkDoneProgressCreate, params, nil); err != nil {
		return fmt.Errorf("creating progress: %w", err)
	}
	return nil
}

// BeginProgress reports the start of the work identified by token.
func BeginProgress(ctx context.Context, conn *jsonrpc2.Conn, token ProgressToken, title, message string) error {
	return sendProgress(ctx, conn, token, WorkDoneProgressBegin{Kind: "begin", Title: title, Message: message})
}

// EndProgress reports the end of the work identified by token.
func EndProgress(ctx context.Context, conn *jsonrpc2.Conn, token ProgressToken, message string) error {
	return sendProgress(ctx, conn, token, WorkDoneProgressEnd{Kind: "end", Message: message})
}

func sendProgress(ctx context.Context, conn *jsonrpc2.Conn, token ProgressToken, value any) error {
	if conn == nil {
		return errNilConn
	}
	if err := conn.Notify(ctx, MethodProgress, ProgressParams{Token: token, Value: value}); err != nil {
		return fmt.Errorf("sending progress: %w", err)
	}
	return nil
}
