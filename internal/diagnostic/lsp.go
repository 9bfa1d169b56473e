package diagnostic

import (
	"fortio.org/safecast"

	"github.com/akhenakh/skriptls/protocol"
)

// Source is the diagnostic source reported to clients.
const Source = "skript"

// ToProtocol converts markers to LSP diagnostics. LSP lines are 0-based and
// the end character is exclusive, so a marker covers the full line text.
func ToProtocol(markers []Marker) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(markers))
	for _, m := range markers {
		line, err := safecast.Conv[uint](m.StartLine - 1)
		if err != nil {
			continue
		}
		end, err := safecast.Conv[uint](m.EndColumn - 1)
		if err != nil {
			end = 0
		}
		out = append(out, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: line, Character: 0},
				End:   protocol.Position{Line: line, Character: end},
			},
			Severity: severityToProtocol(m.Severity),
			Source:   Source,
			Message:  m.Message,
		})
	}
	return out
}

func severityToProtocol(s Severity) protocol.DiagnosticSeverity {
	if s == SeverityWarning {
		return protocol.SeverityWarning
	}
	return protocol.SeverityError
}
