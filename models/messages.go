package models

import "github.com/google/uuid"

// Message roles as they appear on the wire.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single entry in a conversation transcript.
// Images holds embedded image references (data URLs or hosted URLs) attached
// by the user; ImageURL carries a generated image on assistant messages.
type Message struct {
	ID       string   `json:"id"`
	Role     string   `json:"role"` // "user", "assistant", "system"
	Content  string   `json:"content"`
	Images   []string `json:"images,omitempty"`
	ImageURL string   `json:"imageUrl,omitempty"`
}

// NewMessage creates a message with a fresh opaque ID.
func NewMessage(role, content string) Message {
	return Message{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
	}
}

// CustomPersonality is the payload attached to the "Custom" personality.
type CustomPersonality struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
}

// ChatRequest is the body of POST /chat. The protocol is stateless per call:
// the full history is resent every turn.
type ChatRequest struct {
	Messages          []Message          `json:"messages"`
	Personality       string             `json:"personality"`
	CustomPersonality *CustomPersonality `json:"customPersonality,omitempty"`
}

// ChatMessage is the reduced role+content shape used by the personality
// designer history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ImageRequest is the body of POST /generate-image.
type ImageRequest struct {
	Prompt string `json:"prompt"`
}

// ImageResponse carries a generated image URL plus any descriptive text
// (e.g. the provider's revised prompt).
type ImageResponse struct {
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// PersonalityRequest is the body of POST /generate-personality.
type PersonalityRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history"`
}

// PersonalityResponse is the designer's reply. Personality is non-nil only
// when the model emitted a complete definition.
type PersonalityResponse struct {
	Response    string             `json:"response"`
	Personality *CustomPersonality `json:"personality,omitempty"`
}

// ErrorEnvelope is the JSON error body returned by every endpoint.
type ErrorEnvelope struct {
	Error string `json:"error"`
}
