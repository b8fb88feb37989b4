//go:build libp2p_transport && !nat_traversal

package ghost

import "github.com/libp2p/go-libp2p"

// No relay/DCUtR in this build; see relay_enabled.go for the counterpart.
func relayOptions() []libp2p.Option {
	return nil
}
