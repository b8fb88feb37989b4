// Package ipfsclient wraps the local content-addressed storage daemon's
// HTTP API (http://127.0.0.1:5001/api/v0) used by the dead-drop pipeline.
// No example repo in the retrieval pack carries a third-party HTTP client
// beyond net/http; mime/multipart.Writer is the idiomatic standard-library
// equivalent of the multipart upload original_source builds with
// reqwest::multipart, so this client stays on the standard library by
// design, not by omission.
package ipfsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

var ErrStorageUnavailable = errors.New("ipfsclient: storage backend unavailable")

const defaultBaseURL = "http://127.0.0.1:5001/api/v0"

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

type addResponse struct {
	Hash string `json:"Hash"`
}

// Add uploads r as a single multipart request to /api/v0/add and returns
// the resulting content identifier. The whole multipart body, including
// all of r, is built in memory before the request is sent; the upload is
// not streamed.
func (c *Client) Add(ctx context.Context, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("ipfsclient: build multipart form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("ipfsclient: read upload body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("ipfsclient: close multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/add", &body)
	if err != nil {
		return "", fmt.Errorf("ipfsclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: add returned status %d", ErrStorageUnavailable, resp.StatusCode)
	}

	var parsed addResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("ipfsclient: decode add response: %w", err)
	}
	if parsed.Hash == "" {
		return "", fmt.Errorf("%w: add response missing Hash", ErrStorageUnavailable)
	}
	return parsed.Hash, nil
}

// Cat streams the content behind cid from /api/v0/cat.
func (c *Client) Cat(ctx context.Context, cid string) (io.ReadCloser, error) {
	endpoint := c.baseURL + "/cat?arg=" + url.QueryEscape(cid)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("ipfsclient: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: cat returned status %d", ErrStorageUnavailable, resp.StatusCode)
	}
	return resp.Body, nil
}

// ID hits /api/v0/id, the liveness check test_ipfs is built on.
func (c *Client) ID(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/id", nil)
	if err != nil {
		return "", fmt.Errorf("ipfsclient: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: id returned status %d", ErrStorageUnavailable, resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ipfsclient: read id response: %w", err)
	}
	return string(raw), nil
}
