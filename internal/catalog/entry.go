// Package catalog turns the remote syntax catalog into completion entries.
package catalog

import "encoding/json"

// EventType is the syntax type of event entries.
const EventType = "event"

// SyntaxEntry describes one language construct of the catalog.
type SyntaxEntry struct {
	Title         string `msgpack:"title"`
	SyntaxType    string `msgpack:"syntax_type"`
	SyntaxPattern string `msgpack:"syntax_pattern"`
	Description   string `msgpack:"description"`
	AddonName     string `msgpack:"addon_name"`
}

// IsEvent reports whether the entry opens an event block.
func (e SyntaxEntry) IsEvent() bool { return e.SyntaxType == EventType }

type wireAddon struct {
	Name string `json:"name"`
}

type wireEntry struct {
	Title         string    `json:"title"`
	SyntaxType    string    `json:"syntax_type"`
	SyntaxPattern string    `json:"syntax_pattern"`
	Description   string    `json:"description"`
	Addon         wireAddon `json:"addon"`
}

// UnmarshalJSON decodes the catalog service representation, where the addon
// is a nested object.
func (e *SyntaxEntry) UnmarshalJSON(data []byte) error {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = SyntaxEntry{
		Title:         w.Title,
		SyntaxType:    w.SyntaxType,
		SyntaxPattern: w.SyntaxPattern,
		Description:   w.Description,
		AddonName:     w.Addon.Name,
	}
	return nil
}

// MarshalJSON encodes the entry in the catalog service representation.
func (e SyntaxEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEntry{
		Title:         e.Title,
		SyntaxType:    e.SyntaxType,
		SyntaxPattern: e.SyntaxPattern,
		Description:   e.Description,
		Addon:         wireAddon{Name: e.AddonName},
	})
}
