package eventlog

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Recorder appends committed events. Stores call Append inside their own
// critical section (mutex or SQL transaction) so the log order equals the
// commit order of mutations.
type Recorder interface {
	Append(ctx context.Context, event Event) (Event, error)
}

// Reader projects the log for audit consumers.
type Reader interface {
	// List returns events with Seq > afterSeq in ascending order, at most
	// limit entries. limit <= 0 means no cap.
	List(ctx context.Context, afterSeq uint64, limit int) ([]Event, error)
}

// Log is the in-memory recorder. It favors clarity over performance, the same
// trade the other in-memory stores make, and fans appended events out to
// subscribers for streaming consumers.
type Log struct {
	mu     sync.RWMutex
	events []Event
	nextID uint64
	subs   map[int]chan Event
	subSeq int
}

// NewLog creates an empty append-only log. Sequence numbers start at 1 so a
// zero afterSeq cursor reads from the beginning.
func NewLog() *Log {
	return &Log{subs: make(map[int]chan Event)}
}

// Append assigns the next sequence number (and an event ID if unset) and
// stores the event. It never fails; the error return satisfies Recorder so
// SQL-backed recorders can share the interface.
func (l *Log) Append(_ context.Context, event Event) (Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	event.Seq = l.nextID
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	l.events = append(l.events, event)

	for _, ch := range l.subs {
		select {
		case ch <- event:
		default:
			// Slow subscribers miss events rather than stall mutations.
		}
	}
	return event, nil
}

// List returns events after the given sequence cursor in append order.
func (l *Log) List(_ context.Context, afterSeq uint64, limit int) ([]Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Event
	for _, e := range l.events {
		if e.Seq <= afterSeq {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Len reports the number of appended events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Subscribe registers a buffered channel receiving every event appended after
// the call. The returned cancel func must be called to release the channel.
func (l *Log) Subscribe(buffer int) (<-chan Event, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)
	key := l.subSeq
	l.subSeq++
	l.subs[key] = ch

	cancel := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, ok := l.subs[key]; ok {
			delete(l.subs, key)
			close(ch)
		}
	}
	return ch, cancel
}
