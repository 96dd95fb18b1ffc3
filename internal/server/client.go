package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"resty.dev/v3"

	"github.com/darkawower/wallscribe/internal/core"
)

// Client talks to a running server over its unix socket.
type Client struct {
	http *resty.Client
}

func NewClient(socketPath string) *Client {
	client := resty.NewWithClient(&http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socketPath)
			},
		},
	})

	client.SetBaseURL("http://wallscribe")
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "application/json")
	client.SetHeader("User-Agent", "wallscribe")

	return &Client{http: client}
}

// SetPath asks the server to use a local file as the base wallpaper.
func (c *Client) SetPath(ctx context.Context, path string) (core.Status, error) {
	var status core.Status
	_, err := c.post(ctx, "/wallpaper/path", PathRequest{Path: path}, &status)
	return status, err
}

func (c *Client) SetURL(ctx context.Context, url string) (core.Status, error) {
	var status core.Status
	_, err := c.post(ctx, "/wallpaper/url", URLRequest{URL: url}, &status)
	return status, err
}

func (c *Client) Overlay(ctx context.Context, text string) (core.Status, error) {
	var status core.Status
	_, err := c.post(ctx, "/wallpaper/text", TextRequest{Text: text}, &status)
	return status, err
}

// StatusRaw returns the undecoded /status body.
func (c *Client) StatusRaw(ctx context.Context) ([]byte, error) {
	res, err := c.http.R().SetContext(ctx).Get("/status")
	if err != nil {
		return nil, fmt.Errorf("failed to reach server: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("failed to get status: %s", res.Status())
	}
	return res.Bytes(), nil
}

func (c *Client) Status(ctx context.Context) (core.Status, error) {
	body, err := c.StatusRaw(ctx)
	if err != nil {
		return core.Status{}, err
	}
	var status core.Status
	if err := decode(body, &status); err != nil {
		return core.Status{}, err
	}
	return status, nil
}

func (c *Client) Colors(ctx context.Context, n int) (core.Palette, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("n", strconv.Itoa(n)).
		Get("/colors")
	if err != nil {
		return core.Palette{}, fmt.Errorf("failed to reach server: %w", err)
	}

	var palette core.Palette
	if err := decode(res.Bytes(), &palette); err != nil {
		return core.Palette{}, err
	}
	return palette, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) (*resty.Response, error) {
	res, err := c.http.R().SetContext(ctx).SetBody(body).Post(path)
	if err != nil {
		return nil, fmt.Errorf("failed to reach server: %w", err)
	}
	if err := decode(res.Bytes(), out); err != nil {
		return res, err
	}
	return res, nil
}

// RemoteError is an error reported by the server.
type RemoteError struct {
	Message   string
	Retryable bool
}

func (e *RemoteError) Error() string {
	return e.Message
}

// decode unpacks a Response envelope into out, or returns its error.
func decode(body []byte, out any) error {
	var envelope struct {
		Status    string          `json:"status"`
		Error     string          `json:"error"`
		Retryable bool            `json:"retryable"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to parse server response: %w", err)
	}
	if envelope.Status != StatusOK {
		msg := envelope.Error
		if msg == "" {
			msg = "server returned status " + envelope.Status
		}
		return &RemoteError{Message: msg, Retryable: envelope.Retryable}
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to parse server response: %w", err)
	}
	return nil
}
