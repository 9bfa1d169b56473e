package langserver

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/akhenakh/skriptls/internal/analysis"
	"github.com/akhenakh/skriptls/internal/diagnostic"
	"github.com/akhenakh/skriptls/internal/notify"
	"github.com/akhenakh/skriptls/jsonrpc2"
	"github.com/akhenakh/skriptls/protocol"
)

// ParseStatus is the result of skript.parse.
type ParseStatus struct {
	URI      protocol.DocumentURI `json:"uri"`
	Errors   int                  `json:"errors"`
	Warnings int                  `json:"warnings"`
	Failed   bool                 `json:"failed,omitempty"`
}

// Details is the result of skript.diagnostics: the (line, message) pairs of
// the last applied parse.
type Details struct {
	URI      protocol.DocumentURI    `json:"uri"`
	Errors   []diagnostic.Diagnostic `json:"errors"`
	Warnings []diagnostic.Diagnostic `json:"warnings"`
}

// CatalogStatus is the result of skript.refreshCatalog.
type CatalogStatus struct {
	Entries     int `json:"entries"`
	Completions int `json:"completions"`
}

func (s *Server) executeCommand(ctx context.Context, params *protocol.ExecuteCommandParams) (any, error) {
	switch params.Command {
	case CommandParse:
		uri, err := uriArg(params.Arguments)
		if err != nil {
			return nil, err
		}
		st, err := s.engine.AnalyzeNow(ctx, uri)
		if err != nil && st.URI == "" {
			return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "%v", err)
		}
		// Parse failures were already reported to the user.
		return ParseStatus{URI: uri, Errors: st.Errors, Warnings: st.Warnings, Failed: err != nil}, nil

	case CommandDiagnostics:
		uri, err := uriArg(params.Arguments)
		if err != nil {
			return nil, err
		}
		surface := s.engine.Surface()
		return Details{
			URI:      uri,
			Errors:   origins(surface.Channel(uri, diagnostic.ChannelErrors)),
			Warnings: origins(surface.Channel(uri, diagnostic.ChannelWarnings)),
		}, nil

	case CommandSetParseURL:
		var u string
		if err := stringArg(params.Arguments, &u); err != nil {
			return nil, err
		}
		if err := s.live.SetParseURL(u); err != nil {
			return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "invalid parse url: %v", err)
		}
		return nil, nil

	case CommandRefreshCatalog:
		if s.loader == nil {
			return nil, jsonrpc2.NewError(jsonrpc2.RequestFailed, "catalog loading is disabled")
		}
		n, err := s.loader.Load(ctx)
		if err != nil {
			s.notifier.Notify(ctx, notify.LevelWarning, "Skript syntax catalog unavailable: "+err.Error())
			return nil, jsonrpc2.Errorf(jsonrpc2.RequestFailed, "%v", err)
		}
		return CatalogStatus{Entries: n, Completions: len(s.catalog.Completions())}, nil
	}
	return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "unknown command %q", params.Command)
}

func origins(markers []diagnostic.Marker) []diagnostic.Diagnostic {
	out := make([]diagnostic.Diagnostic, len(markers))
	for i, m := range markers {
		out[i] = m.Origin
	}
	return out
}

var errMissingArgument = jsonrpc2.NewError(jsonrpc2.InvalidParams, "missing command argument")

func stringArg(args []json.RawMessage, dst *string) error {
	if len(args) == 0 {
		return errMissingArgument
	}
	if err := json.Unmarshal(args[0], dst); err != nil || *dst == "" {
		return jsonrpc2.NewError(jsonrpc2.InvalidParams, "command argument must be a non-empty string")
	}
	return nil
}

func uriArg(args []json.RawMessage) (protocol.DocumentURI, error) {
	var s string
	if err := stringArg(args, &s); err != nil {
		return "", err
	}
	return protocol.DocumentURI(s), nil
}

// settings is the workspace/didChangeConfiguration payload.
type settings struct {
	Skript struct {
		ParseURL string `json:"parseUrl"`
	} `json:"skript"`
}

func (s *Server) didChangeConfiguration(ctx context.Context, params *protocol.DidChangeConfigurationParams) error {
	var cfg settings
	if len(params.Settings) > 0 {
		if err := json.Unmarshal(params.Settings, &cfg); err != nil {
			s.logger.Warn("ignoring malformed settings", zap.Error(err))
			return nil
		}
	}
	if cfg.Skript.ParseURL == "" {
		return nil
	}
	if err := s.live.SetParseURL(cfg.Skript.ParseURL); err != nil {
		s.notifier.Notify(ctx, notify.LevelWarning, "Ignoring skript.parseUrl: "+err.Error())
	}
	return nil
}

// PublishDiagnostics implements analysis.Publisher.
func (s *Server) PublishDiagnostics(ctx context.Context, uri protocol.DocumentURI, version int, markers []diagnostic.Marker) error {
	return protocol.SendDiagnostics(ctx, s.lsp.Conn(), uri, &version, diagnostic.ToProtocol(markers))
}

// PublishStatus implements analysis.Publisher.
func (s *Server) PublishStatus(ctx context.Context, st analysis.Status) error {
	err := protocol.SendStatus(ctx, s.lsp.Conn(), protocol.SkriptStatusParams{
		URI:      st.URI,
		Busy:     st.Busy,
		Errors:   st.Errors,
		Warnings: st.Warnings,
	})
	if s.lsp.ClientCapabilities().WorkDoneProgress() {
		if st.Busy {
			s.beginProgress(ctx, st.URI)
		} else {
			s.endProgress(ctx, st.URI, summary(st))
		}
	}
	return err
}

var _ analysis.Publisher = (*Server)(nil)
