package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const requestTimeout = 5 * time.Second

// HTTPChannel is the primary request/response channel. Every wire message
// is POSTed to the ground station ingest endpoint; the relay fans the same
// records out to its viewers regardless of which channel carried them.
type HTTPChannel struct {
	client *http.Client
	url    string
}

// NewHTTPChannel creates the primary channel for the given ground station
// base URL, e.g. "http://10.0.0.5:3003".
func NewHTTPChannel(baseURL string) *HTTPChannel {
	return &HTTPChannel{
		client: &http.Client{Timeout: requestTimeout},
		url:    baseURL + "/api/data",
	}
}

func (c *HTTPChannel) Send(payload []byte) error {
	resp, err := c.client.Post(c.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("posting payload: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}
	return nil
}

func (c *HTTPChannel) Name() string { return "http" }

// Prober answers whether the ground station is reachable, using a
// low-payload GET against the ping endpoint.
type Prober struct {
	client *http.Client
	url    string
}

// NewProber creates a prober for the given ground station base URL.
func NewProber(baseURL string) *Prober {
	return &Prober{
		client: &http.Client{Timeout: requestTimeout},
		url:    baseURL + "/api/ping",
	}
}

// Probe performs one reachability check. A nil return means the ground
// station answered.
func (p *Prober) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("building probe request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probing ground station: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}
	return nil
}
