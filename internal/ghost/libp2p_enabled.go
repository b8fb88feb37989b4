//go:build libp2p_transport

package ghost

import (
	"context"
	"fmt"
	"sync"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	ma "github.com/multiformats/go-multiaddr"
)

// libp2pTransport is the production Transport: TCP + Noise + yamux swarm,
// gossipsub v1.1 topics, mDNS discovery, and (under nat_traversal, see
// relay_enabled.go) circuit relay v2 + DCUtR. Grounded on
// original_source's run_p2p_actor and on the teacher's gowaku_enabled.go
// for the build-tag split shape. Peers found by mDNS are dialed once; the
// transport does no redial or backoff of its own.
type libp2pTransport struct {
	cfg Config

	mu        sync.Mutex
	h         host.Host
	ps        *pubsub.PubSub
	topics    map[string]*pubsub.Topic
	subs      map[string]*pubsub.Subscription
	cancel    context.CancelFunc
	runCtx    context.Context
	onMessage func(topic string, data []byte)
}

func newRealTransport(cfg Config) Transport {
	return &libp2pTransport{
		cfg:    cfg,
		topics: make(map[string]*pubsub.Topic),
		subs:   make(map[string]*pubsub.Subscription),
	}
}

func (t *libp2pTransport) Start(ctx context.Context, onMessage func(topic string, data []byte)) error {
	listenAddr, err := ma.NewMultiaddr(fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", t.cfg.ListenPort))
	if err != nil {
		return fmt.Errorf("ghost: build listen addr: %w", err)
	}

	opts := []libp2p.Option{
		libp2p.ListenAddrs(listenAddr),
		libp2p.DefaultSecurity,
		libp2p.DefaultMuxers,
	}
	opts = append(opts, relayOptions()...)
	h, err := libp2p.New(opts...)
	if err != nil {
		return fmt.Errorf("ghost: start libp2p host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h,
		pubsub.WithMessageSignaturePolicy(pubsub.StrictSign),
	)
	if err != nil {
		h.Close()
		return fmt.Errorf("ghost: start gossipsub: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	t.h = h
	t.ps = ps
	t.cancel = cancel
	t.runCtx = runCtx
	t.onMessage = onMessage
	t.mu.Unlock()

	mdnsService := mdns.NewMdnsService(h, "", &discoveryNotifee{host: h})
	if err := mdnsService.Start(); err != nil {
		cancel()
		h.Close()
		return fmt.Errorf("ghost: start mdns: %w", err)
	}
	return nil
}

// readLoop fans one topic subscription's messages into the single
// onMessage callback; the actor's own event loop is the single writer
// that decides what to do with each delivery, keeping the swarm's own
// concurrency confined to this goroutine per topic.
func (t *libp2pTransport) readLoop(ctx context.Context, topic string, sub *pubsub.Subscription) {
	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			return
		}
		t.mu.Lock()
		handler := t.onMessage
		self := t.h.ID()
		t.mu.Unlock()
		if handler != nil && msg.GetFrom() != self {
			handler(topic, msg.GetData())
		}
	}
}

func (t *libp2pTransport) Subscribe(topic string) error {
	t.mu.Lock()
	if _, ok := t.topics[topic]; ok {
		t.mu.Unlock()
		return nil
	}
	top, err := t.ps.Join(topic)
	if err != nil {
		t.mu.Unlock()
		return fmt.Errorf("ghost: join topic %q: %w", topic, err)
	}
	sub, err := top.Subscribe()
	if err != nil {
		t.mu.Unlock()
		return fmt.Errorf("ghost: subscribe topic %q: %w", topic, err)
	}
	t.topics[topic] = top
	t.subs[topic] = sub
	runCtx := t.runCtx
	t.mu.Unlock()

	go t.readLoop(runCtx, topic, sub)
	return nil
}

func (t *libp2pTransport) Publish(ctx context.Context, topic string, data []byte) error {
	t.mu.Lock()
	top, ok := t.topics[topic]
	t.mu.Unlock()
	if !ok {
		if err := t.Subscribe(topic); err != nil {
			return err
		}
		t.mu.Lock()
		top = t.topics[topic]
		t.mu.Unlock()
	}
	return top.Publish(ctx, data)
}

func (t *libp2pTransport) PeerCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.h == nil {
		return 0
	}
	return len(t.h.Network().Peers())
}

func (t *libp2pTransport) ListenAddresses() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.h == nil {
		return nil
	}
	addrs := make([]string, 0, len(t.h.Addrs()))
	for _, a := range t.h.Addrs() {
		addrs = append(addrs, a.String())
	}
	return addrs
}

func (t *libp2pTransport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	if t.h != nil {
		t.h.Close()
	}
}

type discoveryNotifee struct {
	host host.Host
}

func (n *discoveryNotifee) HandlePeerFound(pi peer.AddrInfo) {
	_ = n.host.Connect(context.Background(), pi)
}
