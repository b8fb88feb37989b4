// Package ghost runs the gossip messaging actor: a single-writer event
// loop around a peer-to-peer swarm with topic-based routing, end-to-end
// message encryption (via internal/vault), and delivery acknowledgements.
// Grounded on original_source/src-tauri/src/p2p.rs for the actor shape
// and on internal/waku's Node/Config/backend-interface split for the
// Go-idiomatic transport abstraction.
package ghost

import (
	"context"
	"time"
)

// Transport is the abstract peer-to-peer swarm spec.md §4.3 describes:
// an authenticated, multiplexed connection layer with topic-based
// publish/subscribe and local peer discovery. Two implementations exist:
// mockTransport (always built, used in tests and as the default) and the
// real libp2p-backed transport in libp2p_enabled.go, built only under
// the libp2p_transport build tag (nat_traversal additionally compiles in
// relay support, see relay_enabled.go).
type Transport interface {
	Start(ctx context.Context, onMessage func(topic string, data []byte)) error
	Stop()
	Subscribe(topic string) error
	Publish(ctx context.Context, topic string, data []byte) error
	PeerCount() int
	ListenAddresses() []string
}

// Config mirrors internal/waku.Config's yaml-tagged, normalize-on-load
// shape, trimmed to what the gossip actor actually needs.
type Config struct {
	ListenPort        int           `yaml:"listenPort"`
	EnableRelay       bool          `yaml:"enableRelay"`
	MaintenanceTick   time.Duration `yaml:"maintenanceTick"`
	AckTTL            time.Duration `yaml:"ackTtl"`
	PublishDrainLimit time.Duration `yaml:"publishDrainLimit"`
	InboundRatePerSec float64       `yaml:"inboundRatePerSec"`
	InboundRateBurst  int           `yaml:"inboundRateBurst"`
}

func DefaultConfig() Config {
	return Config{
		ListenPort:        0,
		EnableRelay:       false,
		MaintenanceTick:   60 * time.Second,
		AckTTL:            5 * time.Minute,
		PublishDrainLimit: 2 * time.Second,
		InboundRatePerSec: 20,
		InboundRateBurst:  40,
	}
}

func normalizeConfig(cfg Config) Config {
	def := DefaultConfig()
	if cfg.MaintenanceTick <= 0 {
		cfg.MaintenanceTick = def.MaintenanceTick
	}
	if cfg.AckTTL <= 0 {
		cfg.AckTTL = def.AckTTL
	}
	if cfg.PublishDrainLimit <= 0 {
		cfg.PublishDrainLimit = def.PublishDrainLimit
	}
	if cfg.InboundRatePerSec <= 0 {
		cfg.InboundRatePerSec = def.InboundRatePerSec
	}
	if cfg.InboundRateBurst <= 0 {
		cfg.InboundRateBurst = def.InboundRateBurst
	}
	return cfg
}

// InboxTopic implements spec.md §4.3's topic convention:
// "/deaddrop/inbox/" || base58(pk).
func InboxTopic(base58PublicKey string) string {
	return "/deaddrop/inbox/" + base58PublicKey
}
