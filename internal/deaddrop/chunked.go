package deaddrop

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// ChunkSize is the fixed streaming window: 4 MiB, per spec.md §4.2 step 3.
const ChunkSize = 4 * 1024 * 1024

var ErrTamperedChunk = errors.New("deaddrop: chunk authentication failed")

// encryptStream reads plaintext from src in ChunkSize windows and writes
// u32_le(len) || nonce(12) || ciphertext || tag(16) chunks to dst, where
// len covers ciphertext+tag but excludes nonce and the length prefix
// itself, per spec.md §3. A zero-length input produces zero chunks — an
// empty on-disk artifact — matching dead_drop.rs's bytes_read == 0 break.
func encryptStream(dst io.Writer, src io.Reader, key []byte) error {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return fmt.Errorf("deaddrop: init aead: %w", err)
	}

	buf := make([]byte, ChunkSize)
	for {
		n, readErr := io.ReadFull(src, buf)
		if n > 0 {
			if err := writeChunk(dst, aead, buf[:n]); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("deaddrop: read plaintext: %w", readErr)
		}
	}
	return nil
}

func writeChunk(dst io.Writer, aead cipher.AEAD, plaintext []byte) error {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("deaddrop: generate nonce: %w", err)
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	var lenPrefix [4]byte
	binary.LittleEndian.PutUint32(lenPrefix[:], uint32(len(ciphertext)))
	if _, err := dst.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("deaddrop: write length prefix: %w", err)
	}
	if _, err := dst.Write(nonce); err != nil {
		return fmt.Errorf("deaddrop: write nonce: %w", err)
	}
	if _, err := dst.Write(ciphertext); err != nil {
		return fmt.Errorf("deaddrop: write ciphertext: %w", err)
	}
	return nil
}

// decryptStream reverses encryptStream, verifying each chunk's AEAD tag.
// The first tampered or truncated chunk aborts with ErrTamperedChunk and
// no further plaintext is produced, per spec.md §8 boundary behavior.
func decryptStream(dst io.Writer, src io.Reader, key []byte) error {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return fmt.Errorf("deaddrop: init aead: %w", err)
	}

	for {
		var lenPrefix [4]byte
		_, err := io.ReadFull(src, lenPrefix[:])
		if err == io.EOF {
			return nil
		}
		if err == io.ErrUnexpectedEOF {
			return ErrTamperedChunk
		}
		if err != nil {
			return fmt.Errorf("deaddrop: read length prefix: %w", err)
		}
		ctLen := binary.LittleEndian.Uint32(lenPrefix[:])

		nonce := make([]byte, chacha20poly1305.NonceSize)
		if _, err := io.ReadFull(src, nonce); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return ErrTamperedChunk
			}
			return fmt.Errorf("deaddrop: read nonce: %w", err)
		}
		ciphertext := make([]byte, ctLen)
		if _, err := io.ReadFull(src, ciphertext); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return ErrTamperedChunk
			}
			return fmt.Errorf("deaddrop: read ciphertext: %w", err)
		}

		plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
		if err != nil {
			return ErrTamperedChunk
		}
		if _, err := dst.Write(plaintext); err != nil {
			return fmt.Errorf("deaddrop: write plaintext: %w", err)
		}
	}
}
