//go:build !libp2p_transport

package ghost

// newRealTransport is unavailable in this build; the default build ships
// only the deterministic mock transport. Production builds compile with
// -tags libp2p_transport (optionally plus nat_traversal) to get the real
// swarm in libp2p_enabled.go.
func newRealTransport(cfg Config) Transport {
	return newMockTransport()
}
