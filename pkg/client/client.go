// Package client is a thin HTTP wrapper for the perch API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a perch server.
type Client struct {
	URL        string
	HTTPClient *http.Client
}

// New creates a new perch client.
func New(url string) *Client {
	return &Client{
		URL: strings.TrimRight(url, "/"),
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Push enqueues a reference string.
func (c *Client) Push(ctx context.Context, ref string) error {
	_, status, err := c.do(ctx, "POST", "/api/v1/items", map[string]string{"ref": ref})
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("push: unexpected status %d", status)
	}
	return nil
}

// Pop claims and removes one item. ok is false when the server had
// nothing claimable.
func (c *Client) Pop(ctx context.Context) (string, bool, error) {
	data, status, err := c.do(ctx, "POST", "/api/v1/items/pop", nil)
	if err != nil {
		return "", false, err
	}
	switch status {
	case http.StatusNoContent:
		return "", false, nil
	case http.StatusOK:
		var resp struct {
			Ref string `json:"ref"`
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return "", false, fmt.Errorf("pop: decode response: %w", err)
		}
		return resp.Ref, true, nil
	default:
		return "", false, fmt.Errorf("pop: unexpected status %d", status)
	}
}

// Count returns the number of outstanding items, claimed ones included.
func (c *Client) Count(ctx context.Context) (int64, error) {
	data, status, err := c.do(ctx, "GET", "/api/v1/items/count", nil)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("count: unexpected status %d", status)
	}
	var resp struct {
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, fmt.Errorf("count: decode response: %w", err)
	}
	return resp.Count, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return data, resp.StatusCode, nil
}
