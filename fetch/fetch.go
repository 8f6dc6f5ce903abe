// Package fetch downloads the source archives into a local cache. A cached
// file is never fetched again, even when stale.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmozeiko/overflow/internal/fsutil"
	"github.com/mmozeiko/overflow/internal/logtrace"
	"github.com/mmozeiko/overflow/vector"
)

// DefaultUserAgent is sent with every request.
const DefaultUserAgent = "Mozilla/5.0"

// Client fetches archives over HTTP(S).
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient creates a client whose requests time out after timeout.
func NewClient(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result describes one Ensure call.
type Result struct {
	Path       string
	Downloaded bool
	Bytes      int64
}

// Ensure makes sure path exists, downloading url into it when absent.
func (c *Client) Ensure(ctx context.Context, url, path string) (Result, error) {
	fields := logtrace.Fields{logtrace.FieldModule: "fetch", logtrace.FieldURL: url, logtrace.FieldPath: path}

	exists, err := fsutil.Exists(path)
	if err != nil {
		return Result{}, vector.WrapError(vector.KindInternal, "HV-NET-010", fmt.Sprintf("stat %s", path), err)
	}
	if exists {
		logtrace.Debug(ctx, "archive cached, skipping download", fields)
		return Result{Path: path}, nil
	}

	logtrace.Info(ctx, "downloading archive", fields)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, vector.WrapError(vector.KindTransport, "HV-NET-001", "failed to create request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, vector.WrapError(vector.KindTransport, "HV-NET-002", fmt.Sprintf("failed to fetch %s", url), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Result{}, vector.NewError(vector.KindTransport, "HV-NET-003", fmt.Sprintf("fetch %s: unexpected status %d", url, resp.StatusCode))
	}

	var written int64
	err = fsutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		n, cerr := io.Copy(w, resp.Body)
		written = n
		if cerr != nil {
			return vector.WrapError(vector.KindTransport, "HV-NET-004", fmt.Sprintf("download %s", url), cerr)
		}
		if resp.ContentLength >= 0 && n != resp.ContentLength {
			return vector.NewError(vector.KindTransport, "HV-NET-004", fmt.Sprintf("download %s: got %d of %d bytes", url, n, resp.ContentLength))
		}
		return nil
	})
	if err != nil {
		var ve *vector.Error
		if errors.As(err, &ve) {
			return Result{}, err
		}
		return Result{}, vector.WrapError(vector.KindInternal, "HV-NET-011", fmt.Sprintf("write %s", path), err)
	}

	logtrace.Info(ctx, "archive downloaded", logtrace.WithFields(fields, logtrace.Fields{logtrace.FieldBytes: written}))
	return Result{Path: path, Downloaded: true, Bytes: written}, nil
}
