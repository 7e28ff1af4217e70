package events

import "minerledger/core/types"

// Event represents a structured state change emitted by the sale ledger.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. indexers, logs).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default wherever a component exposes events optionally.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Recorder is an Emitter that retains every emitted event in order. Used by
// tests and the CLI host to observe a transaction's output.
type Recorder struct {
	Events []Event
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	r.Events = append(r.Events, evt)
}

// Raw resolves the wire representation of an emitted event when the concrete
// type provides one.
func Raw(evt Event) *types.Event {
	type rawer interface {
		Event() *types.Event
	}
	if r, ok := evt.(rawer); ok {
		return r.Event()
	}
	return nil
}
