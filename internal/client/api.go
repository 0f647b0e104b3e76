// Package client talks to a hashquest-host over its HTTP API
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

	"hashquest/internal/api"
	"hashquest/internal/engine"
	"hashquest/internal/game"
	"hashquest/internal/gameerr"
	"hashquest/internal/ledger"
)

// APIClient represents a client for the hashquest-host API
type APIClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewAPIClient creates a new API client for addr (host:port or a URL)
func NewAPIClient(addr string) *APIClient {
	base := strings.TrimRight(addr, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &APIClient{
		BaseURL: base,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetHealth calls the health endpoint
func (c *APIClient) GetHealth(ctx context.Context) (*api.HealthResponse, error) {
	var result api.HealthResponse
	if err := c.call(ctx, http.MethodGet, "/api/v1/health", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Snapshot fetches the game view, with a hash-rate series of buckets points
func (c *APIClient) Snapshot(ctx context.Context, buckets int) (game.Snapshot, error) {
	var result game.Snapshot
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/v1/state?series=%d", buckets), nil, &result)
	return result, err
}

// Upgrades fetches the catalog with ownership flags
func (c *APIClient) Upgrades(ctx context.Context) ([]game.UpgradeView, error) {
	var result []game.UpgradeView
	err := c.call(ctx, http.MethodGet, "/api/v1/upgrades", nil, &result)
	return result, err
}

// Summary fetches the human-readable progress report
func (c *APIClient) Summary(ctx context.Context) (string, error) {
	var result api.SummaryResponse
	err := c.call(ctx, http.MethodGet, "/api/v1/summary", nil, &result)
	return result.Summary, err
}

func (c *APIClient) Start(ctx context.Context) error {
	return c.command(ctx, "/api/v1/start")
}

func (c *APIClient) Stop(ctx context.Context) error {
	return c.command(ctx, "/api/v1/stop")
}

func (c *APIClient) Pause(ctx context.Context) error {
	return c.command(ctx, "/api/v1/pause")
}

func (c *APIClient) Resume(ctx context.Context) error {
	return c.command(ctx, "/api/v1/resume")
}

func (c *APIClient) command(ctx context.Context, endpoint string) error {
	var status engine.Status
	return c.call(ctx, http.MethodPost, endpoint, nil, &status)
}

// SetTickRate returns the rate the host applied
func (c *APIClient) SetTickRate(ctx context.Context, rate float64) (float64, error) {
	var result api.TickRateResponse
	err := c.call(ctx, http.MethodPost, "/api/v1/tick-rate", api.TickRateRequest{Rate: rate}, &result)
	return result.Rate, err
}

// PurchaseUpgrade buys id on the host
func (c *APIClient) PurchaseUpgrade(ctx context.Context, id string) (ledger.Upgrade, error) {
	var result api.PurchaseResponse
	err := c.call(ctx, http.MethodPost, "/api/v1/upgrades/"+id+"/purchase", nil, &result)
	return result.Upgrade, err
}

// ResetGame wipes progress on the host
func (c *APIClient) ResetGame(ctx context.Context) error {
	var state ledger.GameState
	return c.call(ctx, http.MethodPost, "/api/v1/reset", nil, &state)
}

// ExportSave returns the host's save string
func (c *APIClient) ExportSave(ctx context.Context) (string, error) {
	var result api.SaveData
	err := c.call(ctx, http.MethodGet, "/api/v1/save", nil, &result)
	return result.Data, err
}

// ImportSave replaces the host's state with an exported save string
func (c *APIClient) ImportSave(ctx context.Context, data string) error {
	var state ledger.GameState
	return c.call(ctx, http.MethodPost, "/api/v1/save", api.SaveData{Data: data}, &state)
}

// call makes a request and decodes a JSON response into out. Domain errors
// come back as *gameerr.GameError so errors.Is works across the wire.
func (c *APIClient) call(ctx context.Context, method, endpoint string, data interface{}, out interface{}) error {
	var body io.Reader
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	// Read response body first to provide better error messages
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Check for non-2xx status codes
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			if errResp.Code != 0 {
				return gameerr.New(errResp.Code, errResp.Error, errResp.Details)
			}
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, errResp.Error)
		}
		// Truncate response for error message (avoid huge HTML dumps)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, preview(respBody, 200))
	}

	// Check content type to ensure we're getting JSON
	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "json") {
		return fmt.Errorf("unexpected content type %q (expected JSON): %s", contentType, preview(respBody, 100))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode JSON response: %w (response: %s)", err, preview(respBody, 100))
	}
	return nil
}

func preview(body []byte, n int) string {
	s := string(body)
	if len(s) > n {
		s = s[:n] + "..."
	}
	return s
}
