package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	models "github.com/novachat/nova/models"
)

// Generator produces an image for a text prompt. Implementations return a
// RelayError so handlers can mirror the provider's status class.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*models.ImageResponse, *models.RelayError)
}

const (
	openAIImagesURL = "https://api.openai.com/v1/images/generations"
	dalleModel      = "dall-e-3"
)

// OpenAI_Generator generates images through the OpenAI images API (DALL-E).
type OpenAI_Generator struct {
	Model      string       // defaults to dall-e-3
	BaseURL    string       // Optional: custom endpoint
	APIKeyEnv  string       // Optional: env var for the key (defaults to OPENAI_API_KEY)
	HTTPClient *http.Client `json:"-"`
}

type openAIImageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type openAIImageResponse struct {
	Data []struct {
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// APIKey returns the configured credential, or "" if unset.
func (g *OpenAI_Generator) APIKey() string {
	env := g.APIKeyEnv
	if env == "" {
		env = "OPENAI_API_KEY"
	}
	return os.Getenv(env)
}

func (g *OpenAI_Generator) Generate(ctx context.Context, prompt string) (*models.ImageResponse, *models.RelayError) {
	apiKey := g.APIKey()
	if apiKey == "" {
		log.Printf("OPENAI_API_KEY is not configured")
		return nil, &models.RelayError{
			Kind:    models.ErrKindConfiguration,
			Status:  http.StatusInternalServerError,
			Message: "Image generation is not configured",
		}
	}

	model := g.Model
	if model == "" {
		model = dalleModel
	}
	baseURL := g.BaseURL
	if baseURL == "" {
		baseURL = openAIImagesURL
	}

	jsonBytes, err := json.Marshal(openAIImageRequest{
		Model:  model,
		Prompt: prompt,
		N:      1,
		Size:   "1024x1024",
	})
	if err != nil {
		return nil, &models.RelayError{
			Kind:    models.ErrKindUpstream,
			Status:  http.StatusInternalServerError,
			Message: "Failed to build image request",
		}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", baseURL, bytes.NewReader(jsonBytes))
	if err != nil {
		return nil, &models.RelayError{
			Kind:    models.ErrKindUpstream,
			Status:  http.StatusInternalServerError,
			Message: "Failed to build image request",
		}
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := g.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &models.RelayError{
			Kind:    models.ErrKindTransport,
			Status:  http.StatusInternalServerError,
			Message: "Image request failed",
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.RelayError{
			Kind:    models.ErrKindTransport,
			Status:  http.StatusInternalServerError,
			Message: "Failed to read image response",
		}
	}

	if resp.StatusCode != http.StatusOK {
		var parsed openAIImageResponse
		detail := ""
		if json.Unmarshal(raw, &parsed) == nil && parsed.Error != nil {
			detail = parsed.Error.Message
		}
		log.Printf("OpenAI API error: %d %s", resp.StatusCode, detail)

		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return nil, &models.RelayError{
				Kind:    models.ErrKindRateLimit,
				Status:  http.StatusTooManyRequests,
				Message: "Rate limits exceeded, please try again later.",
			}
		case http.StatusUnauthorized:
			return nil, &models.RelayError{
				Kind:    models.ErrKindConfiguration,
				Status:  http.StatusUnauthorized,
				Message: "Invalid API key.",
			}
		default:
			msg := detail
			if msg == "" {
				msg = fmt.Sprintf("Image generation failed: %d", resp.StatusCode)
			}
			return nil, &models.RelayError{
				Kind:    models.ErrKindUpstream,
				Status:  http.StatusInternalServerError,
				Message: msg,
			}
		}
	}

	var parsed openAIImageResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &models.RelayError{
			Kind:    models.ErrKindUpstream,
			Status:  http.StatusInternalServerError,
			Message: "Malformed image response",
		}
	}
	if len(parsed.Data) == 0 {
		return nil, &models.RelayError{
			Kind:    models.ErrKindUpstream,
			Status:  http.StatusInternalServerError,
			Message: "No image returned",
		}
	}

	return &models.ImageResponse{
		Text:     parsed.Data[0].RevisedPrompt,
		ImageURL: parsed.Data[0].URL,
	}, nil
}
