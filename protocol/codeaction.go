package protocol

import "encoding/json"

// CodeActionParams parameters for the textDocument/codeAction request.
type CodeActionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Range        Range                  `json:"range"`
	Context      CodeActionContext      `json:"context"`
}

// CodeActionContext carries the diagnostics overlapping the requested range.
type CodeActionContext struct {
	Diagnostics []Diagnostic     `json:"diagnostics"`
	Only        []CodeActionKind `json:"only,omitempty"`
}

// CodeActionKind is the kind of a code action, a hierarchical identifier.
type CodeActionKind string

const (
	QuickFix CodeActionKind = "quickfix"
	Source   CodeActionKind = "source"
)

// CodeAction represents a change or command offered for a range.
type CodeAction struct {
	Title       string         `json:"title"`
	Kind        CodeActionKind `json:"kind,omitempty"`
	Diagnostics []Diagnostic   `json:"diagnostics,omitempty"`
	IsPreferred bool           `json:"isPreferred,omitempty"`
	Command     *Command       `json:"command,omitempty"`
}

// Command represents a reference to a command the client asks the server
// to run through workspace/executeCommand.
type Command struct {
	Title     string            `json:"title"`
	Command   string            `json:"command"`
	Arguments []json.RawMessage `json:"arguments,omitempty"`
}

// CodeActionOptions defines server capabilities for CodeAction.
type CodeActionOptions struct {
	WorkDoneProgressOptions
	CodeActionKinds []CodeActionKind `json:"codeActionKinds,omitempty"`
}

// Allows reports whether kind k is requested by an Only filter.
// An empty filter allows every kind.
func (c CodeActionContext) Allows(k CodeActionKind) bool {
	if len(c.Only) == 0 {
		return true
	}
	for _, o := range c.Only {
		if o == k || len(k) > len(o) && k[:len(o)] == o && k[len(o)] == '.' {
			return true
		}
	}
	return false
}
