// Package client talks to a herd primary's admin API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fleetops/herd/internal/cluster"
)

const defaultBaseURL = "http://127.0.0.1:9090"

// Client is an HTTP client for the primary's admin endpoints.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a client for the admin API at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// IsReachable checks whether a primary is running and answering.
func (c *Client) IsReachable() bool {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// Stats fetches the pool snapshot from the primary.
func (c *Client) Stats(ctx context.Context) (*cluster.Stats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cluster/stats", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		var er struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error == "" {
			return nil, fmt.Errorf("admin API returned %s", resp.Status)
		}
		return nil, fmt.Errorf("admin API error: %s", er.Error)
	}
	var st cluster.Stats
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return &st, nil
}
