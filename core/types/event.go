package types

// Event is the raw representation of a state change emitted by the ledger.
// Typed constructors live in core/events; consumers that only need the wire
// form (indexers, the CLI log sink) work with this struct directly.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Attribute returns the named attribute or the empty string.
func (e *Event) Attribute(key string) string {
	if e == nil || e.Attributes == nil {
		return ""
	}
	return e.Attributes[key]
}
