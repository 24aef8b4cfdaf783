package detect

import "sync"

// Ledger is an append-only in-memory sequence of detection events. Appends
// happen from the monitor goroutine while reads may come from any
// goroutine, so access is serialized with a mutex. The ledger imposes no
// size cap; bounding growth is the caller's policy via Clear.
type Ledger struct {
	mu     sync.Mutex
	events []*Event
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append adds an event to the end of the ledger.
func (l *Ledger) Append(e *Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

// All returns the recorded events in append order. The returned slice is a
// copy and safe to hold across later appends; the events themselves are
// immutable.
func (l *Ledger) All() []*Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of recorded events.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Clear removes all recorded events.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}
