package imagegen

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/genai"

	models "github.com/novachat/nova/models"
)

const geminiImageModel = "gemini-2.5-flash-image"

// Gemini_Generator generates images with Gemini's image model. Image bytes
// come back inline, so they are written under ImagesDir and served from
// ServerHost/images/ by the relay.
type Gemini_Generator struct {
	Model      string // defaults to gemini-2.5-flash-image
	ImagesDir  string // defaults to "images"
	ServerHost string // base URL the saved images are served from
}

func (g *Gemini_Generator) Generate(ctx context.Context, prompt string) (*models.ImageResponse, *models.RelayError) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		log.Printf("Failed to create Gemini client: %v", err)
		return nil, &models.RelayError{
			Kind:    models.ErrKindConfiguration,
			Status:  http.StatusInternalServerError,
			Message: "Image generation is not configured",
		}
	}

	model := g.Model
	if model == "" {
		model = geminiImageModel
	}

	result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		log.Printf("Gemini image generation failed: %v", err)
		return nil, &models.RelayError{
			Kind:    models.ErrKindUpstream,
			Status:  http.StatusInternalServerError,
			Message: "Image generation failed",
		}
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, &models.RelayError{
			Kind:    models.ErrKindUpstream,
			Status:  http.StatusInternalServerError,
			Message: "No image returned",
		}
	}

	var text string
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
			continue
		}
		if part.InlineData == nil {
			continue
		}

		imageURL, saveErr := g.saveImage(part.InlineData.Data, part.InlineData.MIMEType)
		if saveErr != nil {
			log.Printf("Failed to save generated image: %v", saveErr)
			return nil, &models.RelayError{
				Kind:    models.ErrKindUpstream,
				Status:  http.StatusInternalServerError,
				Message: "Failed to store generated image",
			}
		}
		return &models.ImageResponse{Text: text, ImageURL: imageURL}, nil
	}

	return nil, &models.RelayError{
		Kind:    models.ErrKindUpstream,
		Status:  http.StatusInternalServerError,
		Message: "No image data found in response",
	}
}

func (g *Gemini_Generator) saveImage(data []byte, mimeType string) (string, error) {
	extension := "png"
	if strings.Contains(mimeType, "jpeg") || strings.Contains(mimeType, "jpg") {
		extension = "jpg"
	} else if strings.Contains(mimeType, "webp") {
		extension = "webp"
	}

	imagesDir := g.ImagesDir
	if imagesDir == "" {
		imagesDir = "images"
	}
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create images directory: %w", err)
	}

	filename := fmt.Sprintf("generated_image_%s.%s", time.Now().Format("20060102_150405"), extension)
	if err := os.WriteFile(filepath.Join(imagesDir, filename), data, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	serverHost := g.ServerHost
	if serverHost == "" {
		serverHost = "http://localhost:8080"
	}
	return fmt.Sprintf("%s/images/%s", serverHost, filename), nil
}
