package deepseek

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	models "github.com/novachat/nova/models"
)

const (
	DeepseekBaseURL = "https://api.deepseek.com/chat/completions"
	DefaultModel    = "deepseek-chat"
)

// ImageDescriber extracts a textual description (OCR or captioning) from a
// single image reference. Used when the upstream model cannot accept images.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, imageURL string) (string, error)
}

// Deepseek_Model talks to the DeepSeek chat completions API.
// Also supports any OpenAI-compatible API endpoint via BaseURL.
type Deepseek_Model struct {
	Model          string   // Model identifier (e.g. "deepseek-chat")
	Temperature    *float64
	MaxTokens      *int
	BaseURL        string         // Optional: custom API base URL (defaults to DeepSeek)
	APIKeyEnv      string         // Optional: env var name for the API key (defaults to DEEPSEEK_API_KEY)
	SupportsVision bool           // Whether the model accepts image input
	Describer      ImageDescriber `json:"-"` // Optional: OCR side-channel for text-only models
	HTTPClient     *http.Client   `json:"-"` // Optional: defaults to http.DefaultClient
}

// APIKey returns the configured upstream credential, or "" if unset.
func (d *Deepseek_Model) APIKey() string {
	env := d.APIKeyEnv
	if env == "" {
		env = "DEEPSEEK_API_KEY"
	}
	return os.Getenv(env)
}

// Stream_Chat sends a streaming completion request and returns the raw
// response whose body is the upstream event stream, ready to be piped
// through unmodified. Non-success upstream statuses are collapsed into a
// RelayError; the upstream body is logged, never returned.
func (d *Deepseek_Model) Stream_Chat(ctx context.Context, systemPrompt string, messages []models.Message) (*http.Response, *models.RelayError) {
	body := ChatCompletionRequest{
		Model:       d.modelName(),
		Messages:    d.buildMessages(ctx, systemPrompt, messages),
		Stream:      true,
		Temperature: d.Temperature,
		MaxTokens:   d.MaxTokens,
	}

	resp, relayErr := d.send(ctx, body)
	if relayErr != nil {
		return nil, relayErr
	}
	return resp, nil
}

// Chat sends a non-streaming completion request and returns the assistant's
// text content.
func (d *Deepseek_Model) Chat(ctx context.Context, messages []Message) (string, *models.RelayError) {
	body := ChatCompletionRequest{
		Model:       d.modelName(),
		Messages:    messages,
		Temperature: d.Temperature,
		MaxTokens:   d.MaxTokens,
	}

	resp, relayErr := d.send(ctx, body)
	if relayErr != nil {
		return "", relayErr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &models.RelayError{
			Kind:    models.ErrKindTransport,
			Status:  http.StatusInternalServerError,
			Message: "Failed to read upstream response",
		}
	}

	var completion ChatCompletionResponse
	if err := json.Unmarshal(raw, &completion); err != nil {
		return "", &models.RelayError{
			Kind:    models.ErrKindUpstream,
			Status:  http.StatusInternalServerError,
			Message: "Malformed upstream response",
		}
	}
	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}

// send marshals and posts the request, mapping failures to the stable error
// vocabulary. On success the caller owns resp.Body.
func (d *Deepseek_Model) send(ctx context.Context, body ChatCompletionRequest) (*http.Response, *models.RelayError) {
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		return nil, &models.RelayError{
			Kind:    models.ErrKindUpstream,
			Status:  http.StatusInternalServerError,
			Message: "Failed to build upstream request",
		}
	}

	baseURL := d.BaseURL
	if baseURL == "" {
		baseURL = DeepseekBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, "POST", baseURL, bytes.NewReader(jsonBytes))
	if err != nil {
		return nil, &models.RelayError{
			Kind:    models.ErrKindUpstream,
			Status:  http.StatusInternalServerError,
			Message: "Failed to build upstream request",
		}
	}
	req.Header.Set("Authorization", "Bearer "+d.APIKey())
	req.Header.Set("Content-Type", "application/json")

	client := d.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &models.RelayError{
			Kind:    models.ErrKindTransport,
			Status:  http.StatusInternalServerError,
			Message: "Upstream request failed",
		}
	}

	if resp.StatusCode != http.StatusOK {
		errText, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		log.Printf("DeepSeek API error: %d - %s", resp.StatusCode, string(errText))
		return nil, models.NewRelayError(resp.StatusCode)
	}

	return resp, nil
}

func (d *Deepseek_Model) modelName() string {
	if d.Model == "" {
		return DefaultModel
	}
	return d.Model
}

// buildMessages converts the conversation into upstream wire format, with the
// system prompt prepended. Messages carrying images are encoded as multimodal
// parts for vision models; for text-only models each image becomes a textual
// segment, OCR-extracted when a describer is configured.
func (d *Deepseek_Model) buildMessages(ctx context.Context, systemPrompt string, history []models.Message) []Message {
	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, Message{
		Role:    models.RoleSystem,
		Content: systemPrompt,
	})

	for _, msg := range history {
		if len(msg.Images) == 0 {
			messages = append(messages, Message{
				Role:    msg.Role,
				Content: msg.Content,
			})
			continue
		}

		if d.SupportsVision {
			messages = append(messages, Message{
				Role:    msg.Role,
				Content: d.buildMultimodalContent(msg),
			})
		} else {
			messages = append(messages, Message{
				Role:    msg.Role,
				Content: d.describeImagesAsText(ctx, msg),
			})
		}
	}

	return messages
}

// buildMultimodalContent encodes a message as ordered parts: all images first,
// then the text part if non-empty.
func (d *Deepseek_Model) buildMultimodalContent(msg models.Message) []ContentPart {
	parts := make([]ContentPart, 0, len(msg.Images)+1)
	for _, imageURL := range msg.Images {
		parts = append(parts, ContentPart{
			Type:     "image_url",
			ImageURL: &ImageURL{URL: imageURL},
		})
	}
	if strings.TrimSpace(msg.Content) != "" {
		parts = append(parts, ContentPart{
			Type: "text",
			Text: msg.Content,
		})
	}
	return parts
}

// describeImagesAsText synthesizes a textual stand-in for each attached image,
// in array order, prepended to the original text. An OCR failure for one image
// degrades to an error marker for that image only.
func (d *Deepseek_Model) describeImagesAsText(ctx context.Context, msg models.Message) string {
	var sb strings.Builder
	for i, imageURL := range msg.Images {
		if d.Describer == nil {
			sb.WriteString(fmt.Sprintf("[Image %d attached: this model cannot interpret images]\n", i+1))
			continue
		}
		text, err := d.Describer.DescribeImage(ctx, imageURL)
		if err != nil {
			log.Printf("Image %d extraction failed: %v", i+1, err)
			sb.WriteString(fmt.Sprintf("[Image %d content: extraction failed]\n", i+1))
			continue
		}
		sb.WriteString(fmt.Sprintf("[Image %d content: %s]\n", i+1, text))
	}
	sb.WriteString(msg.Content)
	return sb.String()
}
