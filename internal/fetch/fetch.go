// Package fetch downloads remote images and stores them as temp files.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"resty.dev/v3"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "wallscribe"
	DefaultMaxBytes  = 50 * 1024 * 1024
)

var (
	// ErrNetwork covers connection failures, bad statuses and unreadable bodies.
	ErrNetwork = errors.New("network error")

	// ErrIO covers temp file creation, writes and flushes.
	ErrIO = errors.New("io error")
)

// Fetcher returns the bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Client fetches over HTTP.
type Client struct {
	http     *resty.Client
	maxBytes int64
	logger   *zap.Logger
}

type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.http.SetHeader("User-Agent", ua)
		}
	}
}

// WithMaxBytes caps the accepted body size. Reading stops as soon as the
// cap is passed.
func WithMaxBytes(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxBytes = n
			c.http.SetResponseBodyLimit(n)
		}
	}
}

func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:     resty.New(),
		maxBytes: DefaultMaxBytes,
		logger:   zap.NewNop(),
	}
	c.http.SetTimeout(DefaultTimeout)
	c.http.SetHeader("User-Agent", DefaultUserAgent)
	c.http.SetResponseBodyLimit(DefaultMaxBytes)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads url and returns its body.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	c.logger.Debug("Fetching image", zap.String("url", url))

	res, err := c.http.R().SetContext(ctx).Get(url)
	if errors.Is(err, resty.ErrReadExceedsThresholdLimit) {
		return nil, fmt.Errorf("%w: response from %s exceeds %d bytes", ErrNetwork, url, c.maxBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to download %s: %v", ErrNetwork, url, err)
	}

	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status for %s: %s", ErrNetwork, url, res.Status())
	}

	body := res.Bytes()
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("%w: response from %s exceeds %d bytes", ErrNetwork, url, c.maxBytes)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty response from %s", ErrNetwork, url)
	}

	c.logger.Debug("Fetched image",
		zap.String("url", url),
		zap.Int("bytes", len(body)))

	return body, nil
}
