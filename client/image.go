package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	models "github.com/novachat/nova/models"
)

// GenerateImage calls the image-generation endpoint with the given prompt.
// Errors are returned, not funneled through callbacks: image generation is a
// plain request/response call.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (*models.ImageResponse, error) {
	var out models.ImageResponse
	if err := c.postJSON(ctx, "/generate-image", models.ImageRequest{Prompt: prompt}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GeneratePersonality sends one designer turn to the personality-generation
// endpoint.
func (c *Client) GeneratePersonality(ctx context.Context, message string, history []models.ChatMessage) (*models.PersonalityResponse, error) {
	req := models.PersonalityRequest{Message: message, History: history}
	var out models.PersonalityResponse
	if err := c.postJSON(ctx, "/generate-personality", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+path, bytes.NewReader(jsonBytes))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var envelope models.ErrorEnvelope
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
			return fmt.Errorf("%s", envelope.Error)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
