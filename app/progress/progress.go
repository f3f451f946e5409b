// Package progress carries run-progress events from the aggregation
// pipeline to whoever wants to observe them. The orchestrator owns a
// single injected Sink; emission is best-effort and never affects the
// pipeline.
package progress

import "sync"

type Status string

const (
	StatusIdle        Status = "idle"
	StatusFetching    Status = "fetching"
	StatusTranslating Status = "translating"
	StatusSaving      Status = "saving"
	StatusComplete    Status = "complete"
)

// Event is one progress snapshot. Later events fully supersede
// earlier ones.
type Event struct {
	Status  Status `json:"status"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// Sink receives progress events. Implementations must swallow their
// own failures; publishing is fire-and-forget by contract.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) { f(e) }

// Nop discards all events.
var Nop Sink = SinkFunc(func(Event) {})

// Tracker is a Sink keeping only the latest event, read by polling.
// Safe for concurrent use; the single-writer discipline is up to the
// orchestrator.
type Tracker struct {
	mu   sync.RWMutex
	last Event
}

func NewTracker() *Tracker {
	return &Tracker{last: Event{Status: StatusIdle}}
}

func (t *Tracker) Publish(e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = e
}

// Snapshot returns the most recent event.
func (t *Tracker) Snapshot() Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}
