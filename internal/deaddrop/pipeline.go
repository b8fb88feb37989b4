// Package deaddrop implements the off-line file-exchange pipeline:
// constant-memory chunked authenticated encryption, publication of the
// ciphertext to a content-addressed storage daemon, and Shamir dealing of
// the symmetric key. Grounded on original_source/src-tauri/src/dead_drop.rs
// for both the creation path and (as a supplement — the distilled spec
// left retrieval as an open question) the retrieval path.
package deaddrop

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"ghostcore/internal/deaddrop/ipfsclient"
	"ghostcore/internal/shamir"
)

var (
	ErrIO           = errors.New("deaddrop: io error")
	ErrUploadFailed = errors.New("deaddrop: upload failed")
)

const sessionKeySize = 32

// Created is the result of CreateDrop: a content id and the hex-encoded
// key shares, per spec.md §6.
type Created struct {
	CID    string
	Shares []string
}

// Pipeline wires a storage client into the create/open operations. It
// holds no session state of its own — each call is a pure function from
// (file, policy) to (cid, shares) or back, per spec.md §2.
type Pipeline struct {
	storage *ipfsclient.Client
}

func New(storage *ipfsclient.Client) *Pipeline {
	if storage == nil {
		storage = ipfsclient.New("")
	}
	return &Pipeline{storage: storage}
}

// CreateDrop implements spec.md §4.2's create_drop(path, t, n) operation.
func (p *Pipeline) CreateDrop(ctx context.Context, path string, threshold, total int) (*Created, error) {
	if err := shamir.ValidatePolicy(threshold, total); err != nil {
		return nil, err
	}

	src, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open input: %v", ErrIO, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "ghostcore-drop-*.bin")
	if err != nil {
		return nil, fmt.Errorf("%w: create temp file: %v", ErrIO, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	sessionKey := make([]byte, sessionKeySize)
	if _, err := rand.Read(sessionKey); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("%w: generate session key: %v", ErrIO, err)
	}
	defer zeroBytes(sessionKey)

	if err := encryptStream(tmp, src, sessionKey); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("%w: encrypt: %v", ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("%w: close temp file: %v", ErrIO, err)
	}

	// Non-retry policy: a single upload attempt. On failure the temp file
	// is removed (deferred above) and shares are never dealt, so no
	// partial success is ever reported.
	uploadStarted := time.Now()
	uploadSrc, err := os.Open(tmpPath)
	if err != nil {
		uploadDurationSeconds.Observe(time.Since(uploadStarted).Seconds())
		uploadFailures.Inc()
		return nil, fmt.Errorf("%w: reopen temp file: %v", ErrIO, err)
	}
	cid, err := p.storage.Add(ctx, "drop.bin", uploadSrc)
	uploadSrc.Close()
	uploadDurationSeconds.Observe(time.Since(uploadStarted).Seconds())
	if err != nil {
		uploadFailures.Inc()
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	shares, err := shamir.Deal(sessionKey, threshold, total)
	if err != nil {
		return nil, err
	}

	return &Created{CID: cid, Shares: shares}, nil
}

// OpenDrop implements the supplemented retrieval path: download the
// ciphertext by cid, recombine the session key from shares, and
// stream-decrypt to destPath. Grounded on original_source's
// retrieve_dead_drop.
func (p *Pipeline) OpenDrop(ctx context.Context, cid string, shares []string, destPath string) error {
	sessionKey, err := shamir.Reconstruct(shares)
	if err != nil {
		return err
	}
	defer zeroBytes(sessionKey)

	downloadStarted := time.Now()
	body, err := p.storage.Cat(ctx, cid)
	if err != nil {
		downloadDurationSeconds.Observe(time.Since(downloadStarted).Seconds())
		downloadFailures.Inc()
		return err
	}
	defer body.Close()

	tmp, err := os.CreateTemp("", "ghostcore-open-*.bin")
	if err != nil {
		downloadDurationSeconds.Observe(time.Since(downloadStarted).Seconds())
		downloadFailures.Inc()
		return fmt.Errorf("%w: create temp file: %v", ErrIO, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		downloadDurationSeconds.Observe(time.Since(downloadStarted).Seconds())
		downloadFailures.Inc()
		return fmt.Errorf("%w: download: %v", ErrIO, err)
	}
	downloadDurationSeconds.Observe(time.Since(downloadStarted).Seconds())
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: seek temp file: %v", ErrIO, err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("%w: create output file: %v", ErrIO, err)
	}
	defer out.Close()

	if err := decryptStream(out, tmp, sessionKey); err != nil {
		tmp.Close()
		os.Remove(destPath)
		return err
	}
	return tmp.Close()
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
