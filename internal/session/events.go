package session

import (
	"sync"

	"github.com/google/uuid"
)

// Event is emitted on every state transition of a session. It carries the
// same fields as a Status snapshot so stream consumers parse one shape.
type Event struct {
	SessionID       uuid.UUID `json:"session_id"`
	State           State     `json:"state"`
	ProgressPercent int       `json:"progress_percent"`
	StatusMessage   string    `json:"status_message"`
	AttemptCount    int       `json:"attempt_count"`
	Error           *Error    `json:"error,omitempty"`
}

// eventBus fans transition events out to per-session subscribers. Sends never
// block: a subscriber that cannot keep up misses intermediate events and
// recovers the latest state from GetStatus.
type eventBus struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[chan Event]struct{}
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[uuid.UUID]map[chan Event]struct{})}
}

// subscribe registers a listener for one session. The returned cancel
// function must be called when the listener is done; the channel is closed
// either by cancel or when the session reaches a terminal state.
func (b *eventBus) subscribe(id uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	if b.subs[id] == nil {
		b.subs[id] = make(map[chan Event]struct{})
	}
	b.subs[id][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if set, ok := b.subs[id]; ok {
				if _, still := set[ch]; still {
					delete(set, ch)
					close(ch)
				}
				if len(set) == 0 {
					delete(b.subs, id)
				}
			}
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// publish delivers the event to all subscribers of its session. When the
// event is terminal the channels are closed afterwards.
func (b *eventBus) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.subs[ev.SessionID]
	for ch := range set {
		select {
		case ch <- ev:
		default:
		}
	}
	if ev.State.Terminal() && ev.State != StateFailed {
		// Failed sessions stay open for retry; their subscribers keep the
		// stream until they cancel it themselves.
		for ch := range set {
			close(ch)
		}
		delete(b.subs, ev.SessionID)
	}
}
