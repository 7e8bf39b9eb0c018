package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is the HTTP client for the slowmode admin API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new admin API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Policy is a guild policy as served by the admin API
type Policy struct {
	GuildID         string   `json:"guild_id"`
	Enabled         bool     `json:"enabled"`
	MinDelay        int      `json:"min_delay"`
	MaxDelay        int      `json:"max_delay"`
	Target          int      `json:"target"`
	Channels        []string `json:"channels"`
	ReportChannelID string   `json:"report_channel_id"`
}

// PolicyUpdate is a partial policy change, nil fields are left untouched
type PolicyUpdate struct {
	Enabled         *bool   `json:"enabled,omitempty"`
	MinDelay        *int    `json:"min_delay,omitempty"`
	MaxDelay        *int    `json:"max_delay,omitempty"`
	Target          *int    `json:"target,omitempty"`
	ReportChannelID *string `json:"report_channel_id,omitempty"`
}

// ChannelStatus is the controller's view of one monitored channel
type ChannelStatus struct {
	ChannelID     string `json:"channel_id"`
	History       []int  `json:"history"`
	CachedEvents  int    `json:"cached_events"`
	LiveReportID  string `json:"live_report_id,omitempty"`
	SurveyRunning bool   `json:"survey_running"`
}

func guildPath(guildID string, rest ...string) string {
	p := "/api/guilds/" + url.PathEscape(guildID)
	for _, r := range rest {
		p += "/" + url.PathEscape(r)
	}
	return p
}

// ============ Policy Operations ============

// GetPolicy gets the policy of a guild
func (c *Client) GetPolicy(ctx context.Context, guildID string) (*Policy, error) {
	var p Policy
	if err := c.do(ctx, http.MethodGet, guildPath(guildID, "policy"), nil, &p, http.StatusOK); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePolicy applies a partial policy update
func (c *Client) UpdatePolicy(ctx context.Context, guildID string, update PolicyUpdate) (*Policy, error) {
	var p Policy
	if err := c.do(ctx, http.MethodPut, guildPath(guildID, "policy"), update, &p, http.StatusOK); err != nil {
		return nil, err
	}
	return &p, nil
}

// AddChannel adds a monitored channel
func (c *Client) AddChannel(ctx context.Context, guildID, channelID string) (*Policy, error) {
	var p Policy
	if err := c.do(ctx, http.MethodPost, guildPath(guildID, "channels", channelID), nil, &p, http.StatusOK); err != nil {
		return nil, err
	}
	return &p, nil
}

// RemoveChannel removes a monitored channel
func (c *Client) RemoveChannel(ctx context.Context, guildID, channelID string) (*Policy, error) {
	var p Policy
	if err := c.do(ctx, http.MethodDelete, guildPath(guildID, "channels", channelID), nil, &p, http.StatusOK); err != nil {
		return nil, err
	}
	return &p, nil
}

// ============ Controller Operations ============

// Status gets the per-channel status of a guild
func (c *Client) Status(ctx context.Context, guildID string) ([]ChannelStatus, error) {
	var result struct {
		Channels []ChannelStatus `json:"channels"`
	}
	if err := c.do(ctx, http.MethodGet, guildPath(guildID, "status"), nil, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return result.Channels, nil
}

// StartSurvey starts a calibration survey of a channel
func (c *Client) StartSurvey(ctx context.Context, guildID, channelID string) error {
	return c.do(ctx, http.MethodPost, guildPath(guildID, "channels", channelID, "survey"), nil, nil, http.StatusAccepted)
}

// ============ HTTP Helpers ============

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}, wantStatus int) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
