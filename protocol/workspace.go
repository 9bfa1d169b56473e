package protocol

import "encoding/json"

// ExecuteCommandParams parameters for the workspace/executeCommand request.
type ExecuteCommandParams struct {
	Command   string            `json:"command"`
	Arguments []json.RawMessage `json:"arguments,omitempty"`
}

// DidChangeConfigurationParams parameters for workspace/didChangeConfiguration.
type DidChangeConfigurationParams struct {
	Settings json.RawMessage `json:"settings"`
}

// ProgressToken is either a string or an integer.
type ProgressToken any

// WorkDoneProgressCreateParams parameters for window/workDoneProgress/create.
type WorkDoneProgressCreateParams struct {
	Token ProgressToken `json:"token"`
}

// ProgressParams parameters for the $/progress notification.
type ProgressParams struct {
	Token ProgressToken `json:"token"`
	Value any           `json:"value"`
}

// WorkDoneProgressBegin starts a work done progress.
type WorkDoneProgressBegin struct {
	Kind        string `json:"kind"` // "begin"
	Title       string `json:"title"`
	Cancellable bool   `json:"cancellable,omitempty"`
	Message     string `json:"message,omitempty"`
}

// WorkDoneProgressEnd ends a work done progress.
type WorkDoneProgressEnd struct {
	Kind    string `json:"kind"` // "end"
	Message string `json:"message,omitempty"`
}

// SkriptStatusParams is the skript/status notification payload. Clients
// render it as the busy indicator and the error/warning counters.
type SkriptStatusParams struct {
	URI      DocumentURI `json:"uri"`
	Busy     bool        `json:"busy"`
	Errors   int         `json:"errors"`
	Warnings int         `json:"warnings"`
}
