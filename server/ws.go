package server

import (
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/novachat/nova/client"
	models "github.com/novachat/nova/models"
	"github.com/novachat/nova/personality"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsWriter serializes frames onto one websocket connection.
type wsWriter struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsWriter) WriteDelta(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(map[string]string{"delta": text})
}

func (w *wsWriter) WriteDone() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(map[string]string{"type": "done"})
}

func (w *wsWriter) WriteError(message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(map[string]string{"error": message})
}

// ChatWebSocket streams one chat turn over a websocket: the client sends a
// single ChatRequest frame and receives {delta} frames followed by a done
// frame, or a single {error} frame. Same relay semantics as POST /chat with
// the event-stream framing decoded server-side.
func (h *Handler) ChatWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	writer := &wsWriter{conn: conn}

	var req models.ChatRequest
	if err := conn.ReadJSON(&req); err != nil {
		writer.WriteError("Invalid chat request")
		return
	}
	if req.Personality == "" {
		req.Personality = personality.Default
	}

	if h.Model.APIKey() == "" {
		h.Logger.Printf("Upstream API key is not configured")
		writer.WriteError("Chat service is not configured")
		return
	}

	systemPrompt := personality.ResolveSystemPrompt(req.Personality, req.CustomPersonality)
	resp, relayErr := h.Model.Stream_Chat(c.Request.Context(), systemPrompt, req.Messages)
	if relayErr != nil {
		writer.WriteError(relayErr.Message)
		return
	}
	defer resp.Body.Close()

	decoder := client.NewDecoder()
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			fragments, done, decErr := decoder.Feed(buf[:n])
			for _, fragment := range fragments {
				if err := writer.WriteDelta(fragment); err != nil {
					h.Logger.Printf("WebSocket client went away: %v", err)
					return
				}
			}
			if decErr != nil {
				writer.WriteError("Malformed response from the chat service")
				return
			}
			if done {
				writer.WriteDone()
				return
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				if decoder.Close() == nil {
					writer.WriteDone()
				} else {
					writer.WriteError("Chat stream ended unexpectedly")
				}
				return
			}
			writer.WriteError("Connection to the chat service was lost")
			return
		}
	}
}
