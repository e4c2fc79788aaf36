// Package progress defines the events a search run reports while it works.
//
// The enumerator emits exactly one Discovered event once the project list is
// final. The dispatcher emits one Completed event per finished project and a
// ProjectFailed event for every project whose search gave up. Consumers
// receive events through a Sink; Pump moves them onto a single goroutine so
// renderers never see concurrent calls.
package progress

import (
	"sync"
)

// Kind identifies a progress event.
type Kind int

const (
	// Discovered reports the number of projects that will be searched.
	Discovered Kind = iota + 1
	// Completed reports that one more project finished, successfully or not.
	Completed
	// ProjectFailed reports a project whose search failed after retries.
	ProjectFailed
)

// String returns the event kind name.
func (k Kind) String() string {
	switch k {
	case Discovered:
		return "discovered"
	case Completed:
		return "completed"
	case ProjectFailed:
		return "project_failed"
	default:
		return "unknown"
	}
}

// Event is a single progress notification.
type Event struct {
	Kind Kind

	// Total is set for Discovered and Completed.
	Total int

	// Done is set for Completed. It increases by one per event.
	Done int

	// ProjectID and Project identify the failed project (ProjectFailed only).
	ProjectID int64
	Project   string

	// Error is the failure message (ProjectFailed only).
	Error string
}

// Sink receives progress events. Implementations must be safe for
// concurrent use unless they are only fed through a Pump.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

type nopSink struct{}

func (nopSink) Emit(Event) {}

// Nop returns a Sink that drops every event.
func Nop() Sink { return nopSink{} }

// OrNop returns s, or a no-op sink when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop()
	}
	return s
}

// Recorder collects events in arrival order.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit records e.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of kind k were recorded.
func (r *Recorder) Count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}
