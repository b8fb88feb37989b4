package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotificationHub_PublishAndSubscribeReplay(t *testing.T) {
	hub := NewNotificationHub(10)
	hub.Publish("ghost_msg", "first")
	hub.Publish("ghost_msg", "second")

	replay, live, cancel := hub.Subscribe(0)
	defer cancel()
	require.Len(t, replay, 2)
	require.Equal(t, "first", replay[0].Payload)
	require.Equal(t, "second", replay[1].Payload)

	hub.Publish("msg_delivered", "third")
	event := <-live
	require.Equal(t, "third", event.Payload)
}

func TestNotificationHub_SubscribeFromSeqSkipsOlder(t *testing.T) {
	hub := NewNotificationHub(10)
	first := hub.Publish("ghost_msg", "a")
	hub.Publish("ghost_msg", "b")

	replay, _, cancel := hub.Subscribe(first.Seq)
	defer cancel()
	require.Len(t, replay, 1)
	require.Equal(t, "b", replay[0].Payload)
}

func TestNotificationHub_HistoryBoundedByLimit(t *testing.T) {
	hub := NewNotificationHub(2)
	hub.Publish("a", 1)
	hub.Publish("b", 2)
	hub.Publish("c", 3)

	require.Equal(t, 2, hub.BacklogSize())
	replay, _, cancel := hub.Subscribe(0)
	defer cancel()
	require.Len(t, replay, 2)
	require.Equal(t, 2, replay[0].Payload)
	require.Equal(t, 3, replay[1].Payload)
}

func TestNotificationHub_SlowSubscriberDroppedOnBackpressure(t *testing.T) {
	hub := NewNotificationHub(256)
	_, live, cancel := hub.Subscribe(0)
	defer cancel()

	for i := 0; i < 200; i++ {
		hub.Publish("ghost_msg", i)
	}

	// The 128 events buffered before the overflow are still readable; the
	// close becomes visible once they are drained.
	for i := 0; i < 128; i++ {
		<-live
	}
	_, ok := <-live
	require.False(t, ok, "channel should have been closed once its buffer overflowed")
}
