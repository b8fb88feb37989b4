package ghost

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ghostcore/internal/vault"
)

// recordingSink captures emitted events for assertions, grounded on the
// teacher's test style of small hand-rolled fakes rather than a mocking
// framework.
type recordingSink struct {
	mu        sync.Mutex
	msgs      []GhostMessage
	delivered []MessageDelivered
	gotMsg    chan struct{}
	gotAck    chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		gotMsg: make(chan struct{}, 16),
		gotAck: make(chan struct{}, 16),
	}
}

func (s *recordingSink) GhostMsg(m GhostMessage) {
	s.mu.Lock()
	s.msgs = append(s.msgs, m)
	s.mu.Unlock()
	s.gotMsg <- struct{}{}
}

func (s *recordingSink) MsgDelivered(m MessageDelivered) {
	s.mu.Lock()
	s.delivered = append(s.delivered, m)
	s.mu.Unlock()
	s.gotAck <- struct{}{}
}

func newTestVault(t *testing.T, password string) *vault.Vault {
	t.Helper()
	v := vault.New(t.TempDir())
	_, err := v.Init(password)
	require.NoError(t, err)
	return v
}

func waitOrTimeout(t *testing.T, ch <-chan struct{}, d time.Duration) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(d):
		t.Fatal("timed out waiting for event")
	}
}

func TestGhostEcho_SendReceiveAck(t *testing.T) {
	vaultA := newTestVault(t, "alice-pass")
	vaultB := newTestVault(t, "bob-pass")
	idA, err := vaultA.Identity()
	require.NoError(t, err)
	idB, err := vaultB.Identity()
	require.NoError(t, err)

	sinkA, sinkB := newRecordingSink(), newRecordingSink()
	actorA := New(vaultA, sinkA, nil, DefaultConfig()).WithTransport(newMockTransport())
	actorB := New(vaultB, sinkB, nil, DefaultConfig()).WithTransport(newMockTransport())

	ctx := context.Background()
	require.NoError(t, actorA.Start(ctx))
	require.NoError(t, actorB.Start(ctx))
	defer actorA.Shutdown()
	defer actorB.Shutdown()

	messageID, err := actorA.Send(ctx, idB.PublicID(), "hello")
	require.NoError(t, err)
	require.NotEmpty(t, messageID)

	waitOrTimeout(t, sinkB.gotMsg, 2*time.Second)
	sinkB.mu.Lock()
	require.Len(t, sinkB.msgs, 1)
	require.Equal(t, messageID, sinkB.msgs[0].ID)
	require.Equal(t, idA.PublicID(), sinkB.msgs[0].From)
	require.Equal(t, "hello", sinkB.msgs[0].Content)
	sinkB.mu.Unlock()

	waitOrTimeout(t, sinkA.gotAck, 2*time.Second)
	sinkA.mu.Lock()
	require.Len(t, sinkA.delivered, 1)
	require.Equal(t, messageID, sinkA.delivered[0].ID)
	sinkA.mu.Unlock()
}

func TestSend_NotRunningFails(t *testing.T) {
	v := newTestVault(t, "p")
	actor := New(v, newRecordingSink(), nil, DefaultConfig()).WithTransport(newMockTransport())
	other := newTestVault(t, "q")
	id, err := other.Identity()
	require.NoError(t, err)

	_, err = actor.Send(context.Background(), id.PublicID(), "hi")
	require.ErrorIs(t, err, ErrNotRunning)
}

func TestStart_AlreadyRunningFails(t *testing.T) {
	v := newTestVault(t, "p")
	actor := New(v, newRecordingSink(), nil, DefaultConfig()).WithTransport(newMockTransport())
	ctx := context.Background()
	require.NoError(t, actor.Start(ctx))
	defer actor.Shutdown()

	err := actor.Start(ctx)
	require.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestSend_InvalidRecipientFails(t *testing.T) {
	v := newTestVault(t, "p")
	actor := New(v, newRecordingSink(), nil, DefaultConfig()).WithTransport(newMockTransport())
	require.NoError(t, actor.Start(context.Background()))
	defer actor.Shutdown()

	_, err := actor.Send(context.Background(), "not-valid-base58-!!!", "hi")
	require.ErrorIs(t, err, ErrInvalidRecipient)
}

func TestAckTable_PruneRemovesOnlyOlderThanCutoff(t *testing.T) {
	table := newAckTable()
	now := time.Now()
	table.add("old", now.Add(-10*time.Minute))
	table.add("fresh", now)

	table.pruneOlderThan(now.Add(-5 * time.Minute))

	snap := table.snapshot()
	_, hasOld := snap["old"]
	_, hasFresh := snap["fresh"]
	require.False(t, hasOld)
	require.True(t, hasFresh)
}

func TestMockTransport_TopicIsolation(t *testing.T) {
	subscriberOnTopic := newMockTransport()
	subscriberElsewhere := newMockTransport()

	var gotOnTopic, gotElsewhere []string
	require.NoError(t, subscriberOnTopic.Start(context.Background(), func(topic string, data []byte) {
		gotOnTopic = append(gotOnTopic, string(data))
	}))
	require.NoError(t, subscriberElsewhere.Start(context.Background(), func(topic string, data []byte) {
		gotElsewhere = append(gotElsewhere, string(data))
	}))
	defer subscriberOnTopic.Stop()
	defer subscriberElsewhere.Stop()

	require.NoError(t, subscriberOnTopic.Subscribe("/deaddrop/inbox/A"))
	require.NoError(t, subscriberElsewhere.Subscribe("/deaddrop/inbox/B"))

	publisher := newMockTransport()
	require.NoError(t, publisher.Start(context.Background(), func(string, []byte) {}))
	defer publisher.Stop()
	require.NoError(t, publisher.Publish(context.Background(), "/deaddrop/inbox/A", []byte("for A only")))

	require.Equal(t, []string{"for A only"}, gotOnTopic)
	require.Empty(t, gotElsewhere, "a message published to topic A must never reach a subscriber of topic B")
}

func TestHandleSwarmEvent_DecryptFailureDoesNotCrashLoop(t *testing.T) {
	v := newTestVault(t, "p")
	actor := New(v, newRecordingSink(), nil, DefaultConfig()).WithTransport(newMockTransport())
	require.NoError(t, actor.Start(context.Background()))
	defer actor.Shutdown()

	actor.onSwarmMessage("some-topic", []byte("not a valid envelope"))

	other := newTestVault(t, "q")
	id, err := other.Identity()
	require.NoError(t, err)
	_, err = actor.Send(context.Background(), id.PublicID(), "still alive")
	require.NoError(t, err)
}
