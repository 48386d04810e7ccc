package server

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/novachat/nova/imagegen"
	models "github.com/novachat/nova/models"
	"github.com/novachat/nova/models/deepseek"
	"github.com/novachat/nova/personality"
	"github.com/novachat/nova/stores"
)

// Handler holds the relay server's collaborators. The relay is stateless per
// request: every /chat call carries the full conversation and nothing is
// remembered between calls.
type Handler struct {
	Model    *deepseek.Deepseek_Model
	Designer *deepseek.Deepseek_Model // personality designer model; falls back to Model
	ImageGen imagegen.Generator
	Sessions stores.SessionStore
	Logger   *log.Logger
}

// NewHandler creates a handler with a default logger.
func NewHandler(model *deepseek.Deepseek_Model) *Handler {
	return &Handler{
		Model:  model,
		Logger: log.New(os.Stderr, "[nova] ", log.LstdFlags),
	}
}

// RegisterRoutes wires all relay endpoints onto the engine. CORS headers and
// pre-flight handling apply to every route.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.Use(CORSMiddleware())

	r.POST("/chat", h.Chat)
	r.OPTIONS("/chat", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/ws/chat", h.ChatWebSocket)

	r.POST("/generate-image", h.GenerateImage)
	r.OPTIONS("/generate-image", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.POST("/generate-personality", h.GeneratePersonality)
	r.OPTIONS("/generate-personality", func(c *gin.Context) { c.Status(http.StatusOK) })

	if h.Sessions != nil {
		r.GET("/sessions", h.ListSessions)
		r.POST("/sessions", h.CreateSession)
		r.PUT("/sessions/:id", h.UpdateSession)
		r.PUT("/sessions/:id/name", h.RenameSession)
		r.DELETE("/sessions/:id", h.DeleteSession)
	}
}

// Chat relays a conversation to the upstream completion API and pipes the
// event stream back byte-for-byte.
func (h *Handler) Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorEnvelope{Error: "Invalid request body"})
		return
	}
	if req.Personality == "" {
		req.Personality = personality.Default
	}

	if h.Model.APIKey() == "" {
		h.Logger.Printf("Upstream API key is not configured")
		c.JSON(http.StatusInternalServerError, models.ErrorEnvelope{Error: "Chat service is not configured"})
		return
	}

	systemPrompt := personality.ResolveSystemPrompt(req.Personality, req.CustomPersonality)
	if req.Personality == personality.Custom && req.CustomPersonality != nil {
		h.Logger.Printf("Chat request received. Custom personality: %s, messages: %d", req.CustomPersonality.Name, len(req.Messages))
	} else {
		h.Logger.Printf("Chat request received. Personality: %s, messages: %d", req.Personality, len(req.Messages))
	}

	resp, relayErr := h.Model.Stream_Chat(c.Request.Context(), systemPrompt, req.Messages)
	if relayErr != nil {
		c.JSON(relayErr.Status, models.ErrorEnvelope{Error: relayErr.Message})
		return
	}
	defer resp.Body.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)

	// Forward chunks as they arrive; buffering the full body would destroy
	// perceived latency.
	w := c.Writer
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				h.Logger.Printf("Client disconnected mid-stream: %v", werr)
				return
			}
			w.Flush()
		}
		if err != nil {
			return
		}
	}
}

// GenerateImage handles POST /generate-image.
func (h *Handler) GenerateImage(c *gin.Context) {
	var req models.ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, models.ErrorEnvelope{Error: "Prompt is required"})
		return
	}

	if h.ImageGen == nil {
		h.Logger.Printf("Image generation backend is not configured")
		c.JSON(http.StatusInternalServerError, models.ErrorEnvelope{Error: "Image generation is not configured"})
		return
	}

	h.Logger.Printf("Image generation request: %s", req.Prompt)

	result, relayErr := h.ImageGen.Generate(c.Request.Context(), req.Prompt)
	if relayErr != nil {
		c.JSON(relayErr.Status, models.ErrorEnvelope{Error: relayErr.Message})
		return
	}
	c.JSON(http.StatusOK, result)
}

// designerPrompt steers the personality designer model. Replies may end with
// a fenced JSON block carrying a complete personality definition.
const designerPrompt = `You are a creative AI personality designer. Your job is to help users create custom AI personalities for a chatbot called Nova.

When a user describes what kind of personality they want, you should:
1. Acknowledge their idea with enthusiasm
2. Generate a complete personality definition

When you feel you have enough information to create a personality, respond with your message AND include a JSON block at the end in this exact format:

` + "```json" + `
{
  "name": "Short name for the personality (2-4 words)",
  "description": "Brief description for the settings menu (one sentence)",
  "prompt": "Full system prompt that defines how Nova should behave in this mode. Be detailed about tone, vocabulary, mannerisms, and any special characteristics."
}
` + "```" + `

Examples of good personalities:
- A wise old wizard who speaks in riddles and medieval language
- A hyperactive coffee-obsessed barista who uses lots of caffeine metaphors
- A calm meditation guru who speaks slowly and peacefully
- A dramatic theater actor who treats everything like a stage performance

Be creative and have fun! The personality should be unique and engaging.`

var jsonBlockRe = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// GeneratePersonality handles POST /generate-personality.
func (h *Handler) GeneratePersonality(c *gin.Context) {
	var req models.PersonalityRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, models.ErrorEnvelope{Error: "Message is required"})
		return
	}

	designer := h.Designer
	if designer == nil {
		designer = h.Model
	}
	if designer.APIKey() == "" {
		h.Logger.Printf("Personality designer API key is not configured")
		c.JSON(http.StatusInternalServerError, models.ErrorEnvelope{Error: "Personality generation is not configured"})
		return
	}

	h.Logger.Printf("Personality generation request: %s", req.Message)

	messages := make([]deepseek.Message, 0, len(req.History)+2)
	messages = append(messages, deepseek.Message{Role: models.RoleSystem, Content: designerPrompt})
	for _, m := range req.History {
		messages = append(messages, deepseek.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, deepseek.Message{Role: models.RoleUser, Content: req.Message})

	content, relayErr := designer.Chat(c.Request.Context(), messages)
	if relayErr != nil {
		c.JSON(relayErr.Status, models.ErrorEnvelope{Error: relayErr.Message})
		return
	}

	resp := models.PersonalityResponse{
		Response:    strings.TrimSpace(jsonBlockRe.ReplaceAllString(content, "")),
		Personality: extractPersonality(content),
	}
	if resp.Response == "" {
		resp.Response = "I've created a personality for you! Check the preview below."
	}
	c.JSON(http.StatusOK, resp)
}

// extractPersonality pulls an optional fenced JSON personality definition out
// of the designer's reply. A malformed block is ignored, not an error.
func extractPersonality(content string) *models.CustomPersonality {
	match := jsonBlockRe.FindStringSubmatch(content)
	if match == nil {
		return nil
	}
	var p models.CustomPersonality
	if err := json.Unmarshal([]byte(match[1]), &p); err != nil {
		log.Printf("Failed to parse personality JSON: %v", err)
		return nil
	}
	if p.Name == "" && p.Prompt == "" {
		return nil
	}
	return &p
}

// sessionResponse is the API shape of a persisted session row.
type sessionResponse struct {
	ID                string                    `json:"id"`
	Name              string                    `json:"name"`
	Messages          []models.Message          `json:"messages"`
	Personality       string                    `json:"personality"`
	CustomPersonality *models.CustomPersonality `json:"custom_personality"`
	CreatedAt         time.Time                 `json:"created_at"`
	UpdatedAt         time.Time                 `json:"updated_at"`
}

func toSessionResponse(s *stores.ChatSession) (*sessionResponse, error) {
	messages, err := s.Messages()
	if err != nil {
		return nil, err
	}
	custom, err := s.CustomPersonality()
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return &sessionResponse{
		ID:                s.ID,
		Name:              s.Name,
		Messages:          messages,
		Personality:       s.Personality,
		CustomPersonality: custom,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}, nil
}

// ListSessions handles GET /sessions, most recently updated first.
func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.Sessions.List()
	if err != nil {
		h.Logger.Printf("Failed to list sessions: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorEnvelope{Error: "Failed to load sessions"})
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for i := range sessions {
		resp, err := toSessionResponse(&sessions[i])
		if err != nil {
			h.Logger.Printf("Skipping corrupt session %s: %v", sessions[i].ID, err)
			continue
		}
		out = append(out, *resp)
	}
	c.JSON(http.StatusOK, out)
}

type createSessionRequest struct {
	Name              string                    `json:"name"`
	Messages          []models.Message          `json:"messages"`
	Personality       string                    `json:"personality"`
	CustomPersonality *models.CustomPersonality `json:"customPersonality"`
}

// CreateSession handles POST /sessions.
func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, models.ErrorEnvelope{Error: "Session name is required"})
		return
	}
	if req.Personality == "" {
		req.Personality = personality.Default
	}

	session, err := h.Sessions.Create(req.Name, req.Messages, req.Personality, req.CustomPersonality)
	if err != nil {
		h.Logger.Printf("Failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorEnvelope{Error: "Failed to save session"})
		return
	}

	resp, err := toSessionResponse(session)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorEnvelope{Error: "Failed to save session"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

type updateSessionRequest struct {
	Messages          []models.Message          `json:"messages"`
	Personality       *string                   `json:"personality"`
	CustomPersonality *models.CustomPersonality `json:"customPersonality"`
	ClearCustom       bool                      `json:"clearCustomPersonality"`
}

// UpdateSession handles PUT /sessions/:id.
func (h *Handler) UpdateSession(c *gin.Context) {
	var req updateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorEnvelope{Error: "Invalid request body"})
		return
	}

	err := h.Sessions.Update(c.Param("id"), stores.SessionUpdate{
		Messages:    req.Messages,
		Personality: req.Personality,
		Custom:      req.CustomPersonality,
		ClearCustom: req.ClearCustom,
	})
	if err != nil {
		h.Logger.Printf("Failed to update session %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, models.ErrorEnvelope{Error: "Failed to update session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type renameSessionRequest struct {
	Name string `json:"name"`
}

// RenameSession handles PUT /sessions/:id/name.
func (h *Handler) RenameSession(c *gin.Context) {
	var req renameSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, models.ErrorEnvelope{Error: "Session name is required"})
		return
	}

	if err := h.Sessions.Rename(c.Param("id"), req.Name); err != nil {
		h.Logger.Printf("Failed to rename session %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, models.ErrorEnvelope{Error: "Failed to rename session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteSession handles DELETE /sessions/:id.
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.Sessions.Delete(c.Param("id")); err != nil {
		h.Logger.Printf("Failed to delete session %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, models.ErrorEnvelope{Error: "Failed to delete session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
