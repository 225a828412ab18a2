package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/udisondev/npcspawn/internal/model"
)

// Health mirrors GET /health.
type Health struct {
	Status  string `json:"status"`
	Entries int    `json:"entries"`
	Ticks   uint64 `json:"ticks"`
}

// OpResult mirrors the body of spawning operations.
type OpResult struct {
	Spawned int    `json:"spawned"`
	Error   string `json:"error,omitempty"`
}

// APIError is a non-2xx admin API response.
type APIError struct {
	Status  int
	Message string
	Spawned int
}

func (e *APIError) Error() string {
	if e.Spawned > 0 {
		return fmt.Sprintf("admin API %d: %s (spawned %d)", e.Status, e.Message, e.Spawned)
	}
	return fmt.Sprintf("admin API %d: %s", e.Status, e.Message)
}

// Client talks to the spawnd admin API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a client for baseURL ("127.0.0.1:7080" or "http://host:port").
func NewClient(baseURL, apiKey string) *Client {
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Health fetches liveness and counters.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/health", nil, &h)
	return h, err
}

// Reload asks the server to re-read its declaration source.
func (c *Client) Reload(ctx context.Context) (int, error) {
	return c.op(ctx, "/api/v1/reload")
}

// ForceRespawn tops up every entry of room.
func (c *Client) ForceRespawn(ctx context.Context, room string) (int, error) {
	return c.op(ctx, "/api/v1/rooms/"+url.PathEscape(room)+"/respawn")
}

// ResetArea hard-resets every entry of area.
func (c *Client) ResetArea(ctx context.Context, area string) (int, error) {
	return c.op(ctx, "/api/v1/areas/"+url.PathEscape(area)+"/reset")
}

// List returns entry summaries; empty room/area mean no filter.
func (c *Client) List(ctx context.Context, room, area string) ([]model.EntrySummary, error) {
	q := url.Values{}
	if room != "" {
		q.Set("room", room)
	}
	if area != "" {
		q.Set("area", area)
	}
	path := "/api/v1/entries"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []model.EntrySummary
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Entry returns one entry summary.
func (c *Client) Entry(ctx context.Context, id uuid.UUID) (model.EntrySummary, error) {
	var sum model.EntrySummary
	err := c.do(ctx, http.MethodGet, "/api/v1/entries/"+id.String(), nil, &sum)
	return sum, err
}

// Register adds a new entry.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (model.EntrySummary, error) {
	var sum model.EntrySummary
	err := c.do(ctx, http.MethodPost, "/api/v1/entries", req, &sum)
	return sum, err
}

// Remove drops an entry.
func (c *Client) Remove(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/entries/"+id.String(), nil, nil)
}

// Kill reports the death of a live NPC.
func (c *Client) Kill(ctx context.Context, objectID uint32) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/npcs/%d/death", objectID), nil, nil)
}

func (c *Client) op(ctx context.Context, path string) (int, error) {
	var res OpResult
	err := c.do(ctx, http.MethodPost, path, nil, &res)
	return res.Spawned, err
}

func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set(APIKeyHeader, c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var res OpResult
		if json.Unmarshal(respBody, &res) != nil || res.Error == "" {
			res.Error = strings.TrimSpace(string(respBody))
		}
		return &APIError{Status: resp.StatusCode, Message: res.Error, Spawned: res.Spawned}
	}

	if target == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, target); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
