package attendance

import (
	"sync"
	"time"

	"github.com/kozaktomas/attendance-scanner/internal/constants"
)

// Event types sent to subscribers.
const (
	EventSession     = "session"     // a session was activated or cleared
	EventInitialized = "initialized" // Absent records were created
	EventMarked      = "marked"      // a student was marked Present or Late
	EventChanged     = "changed"     // records changed outside the live loop
)

// Event describes a change to attendance state.
type Event struct {
	Type    string    `json:"type"`
	ClassID string    `json:"class,omitempty"`
	Subject string    `json:"subject,omitempty"`
	Name    string    `json:"name,omitempty"`
	Status  string    `json:"status,omitempty"`
	Time    string    `json:"time,omitempty"`
	Count   int       `json:"count,omitempty"`
	At      time.Time `json:"at"`
}

// broadcaster fans events out to listeners without blocking the sender.
type broadcaster struct {
	listeners []chan Event
	mu        sync.RWMutex
}

func (b *broadcaster) add() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

func (b *broadcaster) remove(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

func (b *broadcaster) count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

func (b *broadcaster) send(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}
