package core

import (
	"sync"
	"time"
)

// NotificationEvent is one entry in the hub's sequence-numbered history,
// ported from the teacher's app.NotificationHub.
type NotificationEvent struct {
	Seq       int64
	Method    string
	Payload   any
	Timestamp time.Time
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// NotificationHub fans out ghost_msg/msg_delivered events (spec.md §6) to
// every subscribed host connection, keeping a bounded replay buffer so a
// subscriber that connects late can catch up from a given sequence number.
// A subscriber whose channel fills is dropped rather than allowed to stall
// publishers — the same backpressure choice the teacher's hub makes.
type NotificationHub struct {
	mu      sync.Mutex
	nextSeq int64
	limit   int
	history []NotificationEvent
	subs    map[int]chan NotificationEvent
	nextSub int
}

func NewNotificationHub(limit int) *NotificationHub {
	if limit < 1 {
		limit = 1
	}
	return &NotificationHub{
		limit: limit,
		subs:  make(map[int]chan NotificationEvent),
	}
}

func (h *NotificationHub) Publish(method string, payload any) NotificationEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextSeq++
	event := NotificationEvent{
		Seq:       h.nextSeq,
		Method:    method,
		Payload:   payload,
		Timestamp: nowUTC(),
	}
	h.history = append(h.history, event)
	if len(h.history) > h.limit {
		h.history = append([]NotificationEvent(nil), h.history[len(h.history)-h.limit:]...)
	}

	for id, ch := range h.subs {
		select {
		case ch <- event:
		default:
			close(ch)
			delete(h.subs, id)
		}
	}

	return event
}

// Subscribe returns the backlog since fromSeq, a live channel for events
// published afterwards, and a cancel function the caller must call exactly
// once when it stops reading.
func (h *NotificationHub) Subscribe(fromSeq int64) ([]NotificationEvent, <-chan NotificationEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	replay := make([]NotificationEvent, 0)
	for _, event := range h.history {
		if event.Seq > fromSeq {
			replay = append(replay, event)
		}
	}

	id := h.nextSub
	h.nextSub++
	ch := make(chan NotificationEvent, 128)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			close(sub)
			delete(h.subs, id)
		}
	}
	return replay, ch, cancel
}

func (h *NotificationHub) BacklogSize() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.history)
}
