//go:build libp2p_transport && nat_traversal

package ghost

import "github.com/libp2p/go-libp2p"

// relayOptions adds circuit-relay v2 client behavior and DCUtR hole
// punching to the libp2p host, matching spec.md §4.3's "whether relays
// are used is a build-time configuration" and original_source's
// relay_client + dcutr behaviour composition. Kept as a separate file
// behind its own build tag, the same layering the teacher uses to keep
// go-waku's relay-specific wiring isolated from the base transport.
func relayOptions() []libp2p.Option {
	return []libp2p.Option{
		libp2p.EnableRelay(),
		libp2p.EnableHolePunching(),
	}
}
