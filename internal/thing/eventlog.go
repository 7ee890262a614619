package thing

import "sync"

// EventLog is the append-only in-memory history of dispatched events for
// a single thing. Events are recorded in dispatch order and are never
// removed or reordered.
//
// All methods are safe for concurrent use.
type EventLog struct {
	mu     sync.RWMutex
	events []EventRecord
}

// NewEventLog creates an empty event log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Append records an event at the end of the log.
func (l *EventLog) Append(ev EventRecord) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

// Snapshot returns a copy of the log in dispatch order. The returned
// slice is independent of the log; callers can safely retain it.
func (l *EventLog) Snapshot() []EventRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]EventRecord, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of recorded events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}
