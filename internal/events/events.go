// Package events implements the synchronous event bus the analyser uses to
// publish compilingClass, compiledClass and saveDatabase (spec.md §4, §6).
// No event/pubsub library appears anywhere in the retrieved corpus, so this
// is a minimal hand-rolled bus in the teacher's style (plain Go, no
// reflection, deterministic fan-out order).
package events

import "sync"

// Name identifies one of the three observable events.
type Name string

const (
	CompilingClass Name = "compilingClass"
	CompiledClass  Name = "compiledClass"
	SaveDatabase   Name = "saveDatabase"
)

// Handler receives an event payload. Payloads are documented per-event at
// the call site (compile.CompilingClassEvent, compile.CompiledClassEvent,
// db.SaveDatabaseEvent).
type Handler func(payload any)

// Bus is a synchronous, single-writer event bus: Emit blocks until every
// registered handler for that event name has run, in registration order.
type Bus struct {
	mu       sync.Mutex
	handlers map[Name][]Handler
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Name][]Handler)}
}

// On registers h to run whenever name is emitted.
func (b *Bus) On(name Name, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Emit runs every handler registered for name, in order, synchronously.
func (b *Bus) Emit(name Name, payload any) {
	b.mu.Lock()
	hs := append([]Handler(nil), b.handlers[name]...)
	b.mu.Unlock()
	for _, h := range hs {
		h(payload)
	}
}
