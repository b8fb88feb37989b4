// Package vault owns the long-term X25519 identity: generation, password-gated
// persistence, and ECDH-based message encryption for Ghost Mode. The
// dead-drop pipeline does not use the vault.
package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"

	"ghostcore/internal/securestore"
)

const (
	identityFileName = "identity.enc"

	// messageKeyLabel domain-separates the ECDH-derived message AEAD key
	// from any other use of the same shared secret.
	messageKeyLabel = "deaddrop-message-key"
)

var (
	ErrWrongPassword    = errors.New("vault: wrong password")
	ErrAuthFailed       = errors.New("vault: message authentication failed")
	ErrInvalidPeerKey   = errors.New("vault: invalid peer public key")
	ErrNotInitialized   = errors.New("vault: identity not initialized")
	ErrEnvelopeTooShort = errors.New("vault: envelope too short")

	// ErrIO wraps failures reading, writing, or renaming the identity file,
	// so callers can distinguish a disk/permission problem from a vault
	// logic error (wrong password, corrupt record).
	ErrIO = errors.New("vault: io error")
)

// storedIdentity is the on-disk record at <app-data-dir>/identity.enc,
// layered on top of securestore.Envelope's salt/nonce/ciphertext shape.
type storedIdentity struct {
	PrivateKey []byte `json:"sk"`
}

// Identity is the unsealed long-term keypair. The private scalar must be
// wiped before the Identity is discarded; callers do this via Vault.Wipe,
// never by letting an Identity fall out of scope unattended.
type Identity struct {
	PrivateKey [32]byte
	PublicKey  [32]byte
}

// PublicID returns the base58 encoding of the public key, the identifier
// handed out to other peers.
func (id *Identity) PublicID() string {
	return base58.Encode(id.PublicKey[:])
}

func generateIdentity() (*Identity, error) {
	var sk [32]byte
	if _, err := rand.Read(sk[:]); err != nil {
		return nil, fmt.Errorf("vault: generate scalar: %w", err)
	}
	var pk [32]byte
	out, err := curve25519.X25519(sk[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("vault: derive public key: %w", err)
	}
	copy(pk[:], out)
	return &Identity{PrivateKey: sk, PublicKey: pk}, nil
}

// Vault is the process-wide, single-writer owner of the unsealed identity.
// Once init succeeds, the identity stays cached in memory for the lifetime
// of the process; there is no re-prompt.
type Vault struct {
	mu       sync.RWMutex
	identity *Identity
	path     string
}

// New returns a Vault rooted at the given app-data directory. The directory
// need not exist yet; Init creates it.
func New(appDataDir string) *Vault {
	return &Vault{path: filepath.Join(appDataDir, identityFileName)}
}

// Init loads the existing identity file if present, decrypting it with
// password, or generates and persists a fresh identity if no file exists.
// It returns the base58 public identifier either way.
func (v *Vault) Init(password string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	raw, err := os.ReadFile(v.path)
	switch {
	case err == nil:
		identity, derr := decryptIdentity(password, raw)
		if derr != nil {
			return "", derr
		}
		v.identity = identity
	case os.IsNotExist(err):
		identity, gerr := generateIdentity()
		if gerr != nil {
			return "", fmt.Errorf("vault: %w", gerr)
		}
		if perr := v.persist(identity, password); perr != nil {
			return "", perr
		}
		v.identity = identity
	default:
		return "", fmt.Errorf("%w: read identity file: %v", ErrIO, err)
	}

	return v.identity.PublicID(), nil
}

func decryptIdentity(password string, raw []byte) (*Identity, error) {
	plaintext, err := securestore.Decrypt(password, raw)
	if err != nil {
		if errors.Is(err, securestore.ErrAuthFailed) {
			return nil, ErrWrongPassword
		}
		return nil, fmt.Errorf("vault: decrypt identity: %w", err)
	}
	var stored storedIdentity
	if err := json.Unmarshal(plaintext, &stored); err != nil {
		return nil, fmt.Errorf("vault: malformed identity record: %w", err)
	}
	if len(stored.PrivateKey) != 32 {
		return nil, fmt.Errorf("vault: malformed private key length %d", len(stored.PrivateKey))
	}
	var sk [32]byte
	copy(sk[:], stored.PrivateKey)
	zeroBytes(stored.PrivateKey)

	out, err := curve25519.X25519(sk[:], curve25519.Basepoint)
	if err != nil {
		zeroBytes(sk[:])
		return nil, fmt.Errorf("vault: derive public key: %w", err)
	}
	var pk [32]byte
	copy(pk[:], out)
	return &Identity{PrivateKey: sk, PublicKey: pk}, nil
}

func (v *Vault) persist(identity *Identity, password string) error {
	skCopy := append([]byte(nil), identity.PrivateKey[:]...)
	defer zeroBytes(skCopy)

	payload, err := json.Marshal(storedIdentity{PrivateKey: skCopy})
	if err != nil {
		return fmt.Errorf("vault: marshal identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(v.path), 0o700); err != nil {
		return fmt.Errorf("%w: create app data dir: %v", ErrIO, err)
	}
	encrypted, err := securestore.Encrypt(password, payload)
	if err != nil {
		return fmt.Errorf("vault: encrypt identity: %w", err)
	}

	tmp := v.path + ".tmp"
	if err := os.WriteFile(tmp, encrypted, 0o600); err != nil {
		return fmt.Errorf("%w: write identity file: %v", ErrIO, err)
	}
	if err := os.Rename(tmp, v.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: rename identity file: %v", ErrIO, err)
	}
	return nil
}

// PublicID returns the cached public identifier, or ErrNotInitialized.
func (v *Vault) PublicID() (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.identity == nil {
		return "", ErrNotInitialized
	}
	return v.identity.PublicID(), nil
}

// Identity returns a copy of the cached identity for ECDH use elsewhere
// (e.g. the gossip actor). Callers must not persist the returned private
// key beyond the lifetime that Wipe governs.
func (v *Vault) Identity() (*Identity, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.identity == nil {
		return nil, ErrNotInitialized
	}
	id := *v.identity
	return &id, nil
}

// Wipe zeroizes the cached private scalar. Call once on process shutdown.
func (v *Vault) Wipe() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.identity != nil {
		zeroBytes(v.identity.PrivateKey[:])
		v.identity = nil
	}
}

// EncryptTo builds a Ghost Message Envelope addressed to recipientPK:
// sender_pk(32) || nonce(12) || ciphertext || tag(16).
func (v *Vault) EncryptTo(recipientPK [32]byte, plaintext []byte) ([]byte, error) {
	identity, err := v.Identity()
	if err != nil {
		return nil, err
	}
	key, err := messageKey(identity.PrivateKey, recipientPK)
	if err != nil {
		return nil, err
	}
	defer zeroBytes(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	envelope := make([]byte, 0, 32+len(nonce)+len(ciphertext))
	envelope = append(envelope, identity.PublicKey[:]...)
	envelope = append(envelope, nonce...)
	envelope = append(envelope, ciphertext...)
	return envelope, nil
}

// DecryptFrom splits a Ghost Message Envelope, derives the shared secret
// against the embedded sender public key, and verifies+decrypts.
func (v *Vault) DecryptFrom(envelope []byte) (senderPK [32]byte, plaintext []byte, err error) {
	if len(envelope) < 32+chacha20poly1305.NonceSize+chacha20poly1305.Overhead {
		return senderPK, nil, ErrEnvelopeTooShort
	}
	identity, ierr := v.Identity()
	if ierr != nil {
		return senderPK, nil, ierr
	}

	copy(senderPK[:], envelope[:32])
	nonce := envelope[32 : 32+chacha20poly1305.NonceSize]
	ciphertext := envelope[32+chacha20poly1305.NonceSize:]

	key, kerr := messageKey(identity.PrivateKey, senderPK)
	if kerr != nil {
		return senderPK, nil, kerr
	}
	defer zeroBytes(key)

	aead, aerr := chacha20poly1305.New(key)
	if aerr != nil {
		return senderPK, nil, aerr
	}
	plaintext, err = aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return senderPK, nil, ErrAuthFailed
	}
	return senderPK, plaintext, nil
}

// messageKey derives the per-pair AEAD key: SHA256(label || ECDH(sk, peerPK)).
func messageKey(sk [32]byte, peerPK [32]byte) ([]byte, error) {
	shared, err := curve25519.X25519(sk[:], peerPK[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeerKey, err)
	}
	defer zeroBytes(shared)

	h := sha256.New()
	h.Write([]byte(messageKeyLabel))
	h.Write(shared)
	return h.Sum(nil), nil
}

// DecodePublicKey parses a base58-encoded public identifier into a 32-byte
// key, returning ErrInvalidPeerKey on bad encoding or wrong length.
func DecodePublicKey(id string) ([32]byte, error) {
	var pk [32]byte
	raw, err := base58.Decode(id)
	if err != nil {
		return pk, ErrInvalidPeerKey
	}
	if len(raw) != 32 {
		return pk, ErrInvalidPeerKey
	}
	copy(pk[:], raw)
	return pk, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
