package vault

import (
	"errors"
	"fmt"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/curve25519"
)

var ErrInvalidMnemonic = errors.New("vault: invalid mnemonic")

// ExportMnemonic returns a BIP-39 mnemonic that deterministically
// regenerates the vault's current X25519 scalar via ImportMnemonic. This
// is a supplement beyond the wire identity file: it lets a user back up
// the identity as words instead of the encrypted file.
func (v *Vault) ExportMnemonic() (string, error) {
	identity, err := v.Identity()
	if err != nil {
		return "", err
	}
	entropy := append([]byte(nil), identity.PrivateKey[:]...)
	defer zeroBytes(entropy)
	return bip39.NewMnemonic(entropy)
}

// ImportMnemonic regenerates the X25519 identity from a previously
// exported mnemonic and persists it under password, the same way Init
// persists a freshly generated identity. It overwrites any existing
// identity file at v.path. The entropy recovered from the mnemonic is
// the scalar itself — ExportMnemonic encodes the raw scalar as BIP-39
// entropy, so this is its exact inverse, not a further derivation.
func (v *Vault) ImportMnemonic(mnemonic, password string) (string, error) {
	seed, err := bip39.EntropyFromMnemonic(mnemonic)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	if len(seed) != 32 {
		zeroBytes(seed)
		return "", fmt.Errorf("%w: expected 32 bytes of entropy, got %d", ErrInvalidMnemonic, len(seed))
	}

	identity, err := identityFromScalar(seed)
	zeroBytes(seed)
	if err != nil {
		return "", err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.persist(identity, password); err != nil {
		return "", err
	}
	v.identity = identity
	return identity.PublicID(), nil
}

func identityFromScalar(sk []byte) (*Identity, error) {
	id := &Identity{}
	copy(id.PrivateKey[:], sk)
	out, err := curve25519.X25519(id.PrivateKey[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("vault: derive public key: %w", err)
	}
	copy(id.PublicKey[:], out)
	return id, nil
}
