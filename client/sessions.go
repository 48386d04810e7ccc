package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	models "github.com/novachat/nova/models"
)

// Session is a saved conversation snapshot as the relay returns it.
type Session struct {
	ID                string                    `json:"id"`
	Name              string                    `json:"name"`
	Messages          []models.Message          `json:"messages"`
	Personality       string                    `json:"personality"`
	CustomPersonality *models.CustomPersonality `json:"custom_personality"`
	CreatedAt         time.Time                 `json:"created_at"`
	UpdatedAt         time.Time                 `json:"updated_at"`
}

// ListSessions fetches all saved sessions, most recently updated first.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/sessions", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, raw)
	}

	var sessions []Session
	if err := json.Unmarshal(raw, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

// CreateSession saves a new named snapshot and returns it.
func (c *Client) CreateSession(ctx context.Context, name string, messages []models.Message, personalityID string, custom *models.CustomPersonality) (*Session, error) {
	body := map[string]interface{}{
		"name":        name,
		"messages":    messages,
		"personality": personalityID,
	}
	if custom != nil {
		body["customPersonality"] = custom
	}

	var session Session
	if err := c.postJSON(ctx, "/sessions", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateSession resyncs a saved session's transcript and optionally its
// personality selection.
func (c *Client) UpdateSession(ctx context.Context, id string, messages []models.Message, personalityID *string, custom *models.CustomPersonality) error {
	body := map[string]interface{}{
		"messages": messages,
	}
	if personalityID != nil {
		body["personality"] = *personalityID
	}
	if custom != nil {
		body["customPersonality"] = custom
	}
	return c.doJSON(ctx, "PUT", "/sessions/"+id, body)
}

// RenameSession changes only the saved session's name.
func (c *Client) RenameSession(ctx context.Context, id, name string) error {
	return c.doJSON(ctx, "PUT", "/sessions/"+id+"/name", map[string]string{"name": name})
}

// DeleteSession removes a saved session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.doJSON(ctx, "DELETE", "/sessions/"+id, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(jsonBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return apiError(resp.StatusCode, raw)
	}
	return nil
}

func apiError(status int, raw []byte) error {
	var envelope models.ErrorEnvelope
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
		return fmt.Errorf("%s", envelope.Error)
	}
	return fmt.Errorf("request failed with status %d", status)
}
