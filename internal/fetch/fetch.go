// Package fetch retrieves watched pages over HTTP.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"prensabot/pkg/logx"
)

// userAgent identifies as a desktop browser; some of the watched portals
// serve reduced markup to unknown clients.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Safari/537.36"

type Config struct {
	// Timeout bounds each request end to end. Default 30s.
	Timeout time.Duration
	// MaxBodyBytes caps how much of a response body is read. Default 10 MiB.
	MaxBodyBytes int64
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %s", e.URL, e.Status)
}

type Client struct {
	mu   sync.Mutex
	cfg  Config
	http *http.Client
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) *Client {
	c := &Client{
		// The request deadline comes from the per-call context, not from
		// http.Client.Timeout, so Apply can change it between requests.
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        16,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		log: log.With(logx.String("comp", "fetch")),
	}
	c.applyLocked(cfg)
	return c
}

// Apply updates the timeout and body cap. Requests already in flight keep
// their original deadline.
func (c *Client) Apply(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyLocked(cfg)
}

func (c *Client) applyLocked(cfg Config) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 << 20
	}
	c.cfg = cfg
}

// Get retrieves url and returns the response body. Redirects are followed;
// a non-2xx final response returns a *StatusError.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	c.mu.Lock()
	cfg := c.cfg
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if int64(len(body)) > cfg.MaxBodyBytes {
		return nil, fmt.Errorf("read %s: body exceeds %d bytes", url, cfg.MaxBodyBytes)
	}

	c.log.Debug("page fetched",
		logx.String("url", url),
		logx.Int("bytes", len(body)),
		logx.Duration("elapsed", time.Since(start)))
	return body, nil
}
