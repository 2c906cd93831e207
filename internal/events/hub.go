package events

import (
	"sync"
	"time"
)

type EventType string

const (
	EventLog          EventType = "log"
	EventStatusChange EventType = "status"
	EventRefresh      EventType = "refresh"
)

// Event is one item on the outbound feed consumed by UI projections. LogLine
// is set for log events, Code/Status for status changes, Refresh carries no
// payload.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"ts"`
	LogLine   string    `json:"log,omitempty"`
	Code      string    `json:"code,omitempty"`
	Status    string    `json:"status,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// Hub fans events out to subscribers. A slow subscriber loses events rather
// than blocking the trading loop.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, 256)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch
}

func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *Hub) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
	h.mu.Unlock()
}

func (h *Hub) Log(line string) {
	h.Publish(Event{Type: EventLog, LogLine: line})
}

func (h *Hub) StatusChange(code, status, reason string) {
	h.Publish(Event{Type: EventStatusChange, Code: code, Status: status, Reason: reason})
}

func (h *Hub) Refresh() {
	h.Publish(Event{Type: EventRefresh})
}
