// Package source fetches the published data artifacts (screener CSV and the
// JSON documents) from a local directory or an HTTP origin.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 64 << 20
)

// Fetcher returns the raw bytes of a named artifact. Names are slash
// separated and relative, e.g. "ticker_history/AAPL.json".
type Fetcher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// cleanName rejects absolute names and names escaping the root.
func cleanName(name string) (string, error) {
	n := path.Clean(strings.TrimSpace(name))
	if n == "." || n == "" || strings.HasPrefix(n, "/") || n == ".." || strings.HasPrefix(n, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return n, nil
}

// Dir serves artifacts from a directory.
type Dir struct {
	root string
}

// NewDir returns a Fetcher over root.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

func (d *Dir) Fetch(ctx context.Context, name string) ([]byte, error) {
	n, err := cleanName(name)
	if err != nil {
		return nil, &FetchError{Name: name, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Name: n, Err: err}
	}
	b, err := os.ReadFile(filepath.Join(d.root, filepath.FromSlash(n)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &FetchError{Name: n, Err: ErrNotFound}
		}
		return nil, &FetchError{Name: n, Err: err}
	}
	return b, nil
}

// HTTP serves artifacts from a base URL.
type HTTP struct {
	base     *url.URL
	client   *http.Client
	maxBytes int64
}

// HTTPOption configures an HTTP fetcher.
type HTTPOption func(*HTTP)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		if d > 0 {
			h.client.Timeout = d
		}
	}
}

// WithMaxBytes caps the accepted body size. Larger bodies fail with
// ErrTooLarge.
func WithMaxBytes(n int64) HTTPOption {
	return func(h *HTTP) {
		if n > 0 {
			h.maxBytes = n
		}
	}
}

// NewHTTP returns a Fetcher resolving names against base.
func NewHTTP(base string, opts ...HTTPOption) (*HTTP, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBase, base)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	h := &HTTP{base: u, client: &http.Client{Timeout: defaultTimeout}, maxBytes: maxBodyBytes}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *HTTP) Fetch(ctx context.Context, name string) ([]byte, error) {
	n, err := cleanName(name)
	if err != nil {
		return nil, &FetchError{Name: name, Err: err}
	}
	ref, err := url.Parse(n)
	if err != nil {
		return nil, &FetchError{Name: n, Err: fmt.Errorf("%w: %v", ErrInvalidName, err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.base.ResolveReference(ref).String(), nil)
	if err != nil {
		return nil, &FetchError{Name: n, Err: err}
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &FetchError{Name: n, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, h.maxBytes))
		kind := ErrBadStatus
		if resp.StatusCode == http.StatusNotFound {
			kind = ErrNotFound
		}
		return nil, &FetchError{Name: n, Status: resp.StatusCode, Err: kind}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		return nil, &FetchError{Name: n, Status: resp.StatusCode, Err: err}
	}
	if int64(len(b)) > h.maxBytes {
		return nil, &FetchError{Name: n, Err: fmt.Errorf("%w: over %d bytes", ErrTooLarge, h.maxBytes)}
	}
	return b, nil
}
