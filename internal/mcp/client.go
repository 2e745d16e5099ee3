// Package mcp is the HTTP client the MCP tools use to read the running
// relay's status API.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/relaybridge/zulip-relay/internal/conf"
	"github.com/relaybridge/zulip-relay/internal/service"
)

// Client is the HTTP client for the relay status API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for baseURL (e.g. http://127.0.0.1:9877)
func NewClient(baseURL string) *Client {
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetStatus fetches the relay runtime state
func (c *Client) GetStatus(ctx context.Context) (*service.Snapshot, error) {
	var snap service.Snapshot
	if err := c.get(ctx, "/api/status", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetParams fetches the configuration dump
func (c *Client) GetParams(ctx context.Context) ([]conf.Param, error) {
	var result struct {
		Params []conf.Param `json:"params"`
	}
	if err := c.get(ctx, "/api/params", &result); err != nil {
		return nil, err
	}
	return result.Params, nil
}

// Health checks that the relay answers
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil)
}

// ============ HTTP Helpers ============

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP GET failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
