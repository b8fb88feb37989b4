// Package shamir deals and reconstructs dead-drop session keys under
// Shamir's secret sharing scheme over GF(256), via hashicorp/vault's
// implementation (the same primitive Vault uses to split its own unseal
// key). No example repo in the retrieval pack implements a secrecy-
// preserving threshold scheme — the pack's only threshold-recovery code
// is Reed-Solomon erasure coding, which reconstructs from any k of n
// fragments but does not hide the secret below the threshold.
package shamir

import (
	"encoding/hex"
	"errors"
	"fmt"

	vaultshamir "github.com/hashicorp/vault/shamir"
)

var (
	ErrInvalidPolicy = errors.New("shamir: invalid threshold policy")
	ErrInvalidShare  = errors.New("shamir: invalid share encoding")
)

const (
	MinThreshold = 2
	MaxShares    = 10
)

// ValidatePolicy enforces spec's 2 <= t <= n <= 10.
func ValidatePolicy(threshold, total int) error {
	if threshold < MinThreshold || total > MaxShares || threshold > total {
		return ErrInvalidPolicy
	}
	return nil
}

// Deal splits secret into total shares, any threshold of which reconstruct
// it; any threshold-1 reveal nothing. Shares are returned hex-encoded, per
// spec.md §4.2 step 7.
func Deal(secret []byte, threshold, total int) ([]string, error) {
	if err := ValidatePolicy(threshold, total); err != nil {
		return nil, err
	}
	shares, err := vaultshamir.Split(secret, total, threshold)
	if err != nil {
		return nil, fmt.Errorf("shamir: split: %w", err)
	}
	out := make([]string, len(shares))
	for i, s := range shares {
		out[i] = hex.EncodeToString(s)
	}
	return out, nil
}

// Reconstruct recovers the secret from at least threshold hex-encoded
// shares. Fewer than threshold shares either fails outright or returns
// garbage indistinguishable from a wrong secret — callers must not treat
// a successful call against too few shares as proof of correctness;
// the caller (the dead-drop pipeline) verifies correctness by attempting
// decryption, not by trusting Reconstruct alone.
func Reconstruct(shares []string) ([]byte, error) {
	decoded := make([][]byte, 0, len(shares))
	for _, s := range shares {
		raw, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidShare, err)
		}
		decoded = append(decoded, raw)
	}
	secret, err := vaultshamir.Combine(decoded)
	if err != nil {
		return nil, fmt.Errorf("shamir: combine: %w", err)
	}
	return secret, nil
}
