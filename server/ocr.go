package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

// OCRClient extracts text from images through an external OCR service. It
// implements deepseek.ImageDescriber and is invoked once per image, in image
// order, before the main completion call. A failure affects only the image it
// was called for.
type OCRClient struct {
	BaseURL    string       // OCR endpoint URL
	APIKeyEnv  string       // Optional: env var for the key (defaults to OCR_API_KEY)
	HTTPClient *http.Client `json:"-"`
}

type ocrRequest struct {
	ImageURL string `json:"image_url"`
}

type ocrResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// DescribeImage sends one image reference to the OCR service and returns the
// extracted text.
func (o *OCRClient) DescribeImage(ctx context.Context, imageURL string) (string, error) {
	env := o.APIKeyEnv
	if env == "" {
		env = "OCR_API_KEY"
	}
	apiKey := os.Getenv(env)

	jsonBytes, err := json.Marshal(ocrRequest{ImageURL: imageURL})
	if err != nil {
		return "", fmt.Errorf("failed to encode OCR request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.BaseURL, bytes.NewReader(jsonBytes))
	if err != nil {
		return "", fmt.Errorf("failed to build OCR request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	client := o.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("OCR request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read OCR response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OCR service returned status %d", resp.StatusCode)
	}

	var parsed ocrResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("malformed OCR response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("OCR service error: %s", parsed.Error)
	}
	return parsed.Text, nil
}
