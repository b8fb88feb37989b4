package ghost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ghostcore/internal/platform/ratelimiter"
	"ghostcore/internal/vault"
)

var (
	ErrAlreadyRunning   = errors.New("ghost: already running")
	ErrNotRunning       = errors.New("ghost: not running")
	ErrInvalidRecipient = errors.New("ghost: invalid recipient")
	ErrPublishFailed    = errors.New("ghost: publish failed")
)

// EventSink receives the two asynchronous events spec.md §6 names. It is
// the actor's only channel to the host; implementations must not block
// for long (internal/core's NotificationHub satisfies this with a
// bounded, non-blocking-send channel per subscriber).
type EventSink interface {
	GhostMsg(GhostMessage)
	MsgDelivered(MessageDelivered)
}

type sendCommand struct {
	targetPK [32]byte
	content  string
	result   chan<- sendResult
}

type sendResult struct {
	messageID string
	err       error
}

type shutdownCommand struct {
	done chan<- struct{}
}

type swarmEvent struct {
	topic string
	data  []byte
}

// Actor is the single-writer gossip messaging actor of spec.md §4.3. All
// mutable state (the ack table, the transport's mesh) is touched only
// from the loop goroutine started by Start; every other method merely
// hands a command or a swarm delivery across a channel.
type Actor struct {
	vault     *vault.Vault
	transport Transport
	sink      EventSink
	logger    *slog.Logger
	cfg       Config
	limiter   *ratelimiter.MapLimiter

	cmds  chan any
	swarm chan swarmEvent
	acks  *ackTable

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	stopped chan struct{}
}

func New(v *vault.Vault, sink EventSink, logger *slog.Logger, cfg Config) *Actor {
	cfg = normalizeConfig(cfg)
	if logger == nil {
		logger = slog.Default()
	}
	return &Actor{
		vault:   v,
		sink:    sink,
		logger:  logger,
		cfg:     cfg,
		limiter: ratelimiter.New(cfg.InboundRatePerSec, cfg.InboundRateBurst, 10*time.Minute),
		cmds:    make(chan any, 32),
		swarm:   make(chan swarmEvent, 256),
		acks:    newAckTable(),
	}
}

// WithTransport overrides the production transport, used by tests to
// inject mockTransport instances that share a single globalBus.
func (a *Actor) WithTransport(t Transport) *Actor {
	a.transport = t
	return a
}

// Start is idempotent: a second call while running returns
// ErrAlreadyRunning. It spawns the event loop and blocks only long enough
// to subscribe to the own inbox topic and begin peer discovery.
func (a *Actor) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrAlreadyRunning
	}
	if a.transport == nil {
		a.transport = newRealTransport(a.cfg)
	}
	identity, err := a.vault.Identity()
	if err != nil {
		a.mu.Unlock()
		return fmt.Errorf("ghost: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.stopped = make(chan struct{})
	a.running = true
	a.mu.Unlock()

	if err := a.transport.Start(ctx, a.onSwarmMessage); err != nil {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
		return fmt.Errorf("ghost: start transport: %w", err)
	}
	ownTopic := InboxTopic(identity.PublicID())
	if err := a.transport.Subscribe(ownTopic); err != nil {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
		return fmt.Errorf("ghost: subscribe own inbox: %w", err)
	}

	go a.loop(loopCtx)
	return nil
}

// onSwarmMessage is the transport's delivery callback; it never touches
// actor state directly — it only enqueues onto the swarm channel that the
// loop goroutine reads from, preserving single-writer semantics.
func (a *Actor) onSwarmMessage(topic string, data []byte) {
	select {
	case a.swarm <- swarmEvent{topic: topic, data: data}:
	default:
		a.logger.Warn("ghost: swarm event dropped, channel full")
	}
}

// Send implements spec.md §4.3's send(target_pk_base58, content).
func (a *Actor) Send(ctx context.Context, targetPublicKeyBase58, content string) (string, error) {
	a.mu.Lock()
	running := a.running
	a.mu.Unlock()
	if !running {
		return "", ErrNotRunning
	}

	targetPK, err := vault.DecodePublicKey(targetPublicKeyBase58)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}

	result := make(chan sendResult, 1)
	select {
	case a.cmds <- sendCommand{targetPK: targetPK, content: content, result: result}:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case r := <-result:
		return r.messageID, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Shutdown sends the terminal command and waits (best-effort, bounded by
// cfg.PublishDrainLimit) for the loop to drain and exit.
func (a *Actor) Shutdown() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	done := make(chan struct{})
	select {
	case a.cmds <- shutdownCommand{done: done}:
	case <-time.After(a.cfg.PublishDrainLimit):
		a.cancel()
		return
	}

	select {
	case <-done:
	case <-time.After(a.cfg.PublishDrainLimit):
	}
}

func (a *Actor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// loop is the single event-loop task spec.md §4.3/§5/§9 describes: it
// cooperatively multiplexes swarm deliveries, inbound commands, and a
// maintenance ticker in one select, relying on Go's fair pseudo-random
// selection among ready cases to satisfy the no-starvation requirement
// rather than hand-rolled priority bookkeeping.
func (a *Actor) loop(ctx context.Context) {
	defer close(a.stopped)
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
		a.transport.Stop()
	}()

	ticker := time.NewTicker(a.cfg.MaintenanceTick)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.swarm:
			a.handleSwarmEvent(ctx, evt)
		case cmd := <-a.cmds:
			if a.handleCommand(ctx, cmd) {
				return
			}
		case <-ticker.C:
			a.acks.pruneOlderThan(time.Now().Add(-a.cfg.AckTTL))
			peerCount.Set(float64(a.transport.PeerCount()))
		case <-ctx.Done():
			return
		}
	}
}

func (a *Actor) handleCommand(ctx context.Context, cmd any) (terminal bool) {
	switch c := cmd.(type) {
	case sendCommand:
		id, err := a.doSend(ctx, c.targetPK, c.content)
		c.result <- sendResult{messageID: id, err: err}
		return false
	case shutdownCommand:
		close(c.done)
		a.cancel()
		return true
	default:
		return false
	}
}

func (a *Actor) doSend(ctx context.Context, targetPK [32]byte, content string) (string, error) {
	id := uuid.New().String()
	env := envelope{Kind: "msg", ID: id, Content: content, Ts: time.Now().Unix()}
	payload, err := marshalEnvelope(env)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	ciphertext, err := a.vault.EncryptTo(targetPK, payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	targetID := base58Encode(targetPK)
	topic := InboxTopic(targetID)
	if err := a.transport.Publish(ctx, topic, ciphertext); err != nil {
		publishFailures.Inc()
		return "", fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	a.acks.add(id, time.Now())
	return id, nil
}

// handleSwarmEvent implements spec.md §4.3's inbound message handling:
// decrypt, dispatch on kind, and for "msg" synthesize+publish an ack on
// the sender's inbox topic. Decryption failures are logged and dropped —
// a malformed gossip message must never crash the loop.
func (a *Actor) handleSwarmEvent(ctx context.Context, evt swarmEvent) {
	senderPK, plaintext, err := a.vault.DecryptFrom(evt.data)
	if err != nil {
		messagesDropped.Inc()
		a.logger.Warn("ghost: dropping undecryptable gossip message", "topic", evt.topic, "err", err)
		return
	}
	senderID := base58Encode(senderPK)
	if !a.limiter.Allow(senderID, time.Now()) {
		messagesDropped.Inc()
		a.logger.Warn("ghost: inbound rate limit exceeded", "from", senderID)
		return
	}

	env, err := unmarshalEnvelope(plaintext)
	if err != nil {
		messagesDropped.Inc()
		a.logger.Warn("ghost: dropping malformed envelope", "from", senderID, "err", err)
		return
	}

	switch env.Kind {
	case "msg":
		a.sink.GhostMsg(GhostMessage{ID: env.ID, From: senderID, Content: env.Content, Timestamp: env.Ts})
		a.sendAck(ctx, senderPK, env.ID)
	case "ack":
		if entry, ok := a.acks.ack(env.ID); ok {
			messagesDelivered.Inc()
			ackRoundTripSeconds.Observe(time.Since(entry.SentAt).Seconds())
			a.sink.MsgDelivered(MessageDelivered{ID: env.ID})
		}
	default:
		messagesDropped.Inc()
		a.logger.Warn("ghost: dropping envelope with unknown kind", "kind", env.Kind)
	}
}

func (a *Actor) sendAck(ctx context.Context, toPK [32]byte, messageID string) {
	env := envelope{Kind: "ack", ID: messageID, Ts: time.Now().Unix()}
	payload, err := marshalEnvelope(env)
	if err != nil {
		a.logger.Warn("ghost: failed to build ack envelope", "err", err)
		return
	}
	ciphertext, err := a.vault.EncryptTo(toPK, payload)
	if err != nil {
		a.logger.Warn("ghost: failed to encrypt ack", "err", err)
		return
	}
	topic := InboxTopic(base58Encode(toPK))
	if err := a.transport.Publish(ctx, topic, ciphertext); err != nil {
		a.logger.Warn("ghost: failed to publish ack", "err", err)
	}
}
