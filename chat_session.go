package nova

import (
	"context"
	"fmt"
	"sync"

	"github.com/novachat/nova/client"
	"github.com/novachat/nova/conversation"
	models "github.com/novachat/nova/models"
	"github.com/novachat/nova/personality"
)

// ChatSession drives one conversation from the client side: it owns the
// transcript, the active personality selection, and the single-stream guard.
// `/image` commands are intercepted and routed to the image-generation
// endpoint instead of the relay.
type ChatSession struct {
	Client       *client.Client
	Conversation *conversation.Store

	Personality string
	Custom      *models.CustomPersonality

	// SavedID links this conversation to a persisted session; when set, a
	// completed stream resyncs the transcript automatically.
	SavedID string

	// OnNotice receives transient user-visible notices (send failures,
	// persistence errors). Notices never touch the transcript.
	OnNotice func(message string)

	mu      sync.Mutex
	loading bool
}

// NewChatSession creates a session against the given relay with the default
// personality.
func NewChatSession(relayURL string) *ChatSession {
	return &ChatSession{
		Client:       client.New(relayURL),
		Conversation: conversation.New(),
		Personality:  personality.Default,
	}
}

// Loading reports whether a stream is in flight for this conversation.
func (s *ChatSession) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Send submits one user message and blocks until the reply completes or
// fails. Only one stream may be in flight per conversation; a second Send
// while loading is rejected without touching the transcript.
func (s *ChatSession) Send(ctx context.Context, content string, images []string) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return fmt.Errorf("a message is already in flight for this conversation")
	}
	s.loading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	if prompt, ok := client.ParseImageCommand(content); ok {
		return s.sendImageCommand(ctx, content, prompt)
	}

	userMsg := models.NewMessage(models.RoleUser, content)
	userMsg.Images = images
	s.Conversation.Append(userMsg)

	var streamErr error
	s.Client.StreamChat(ctx, client.StreamRequest{
		Messages:          s.Conversation.Snapshot(),
		Personality:       s.Personality,
		CustomPersonality: s.Custom,
		OnDelta: func(text string) {
			s.Conversation.AppendOrExtendAssistant(text)
		},
		OnDone: func() {
			s.Conversation.FinishAssistant()
		},
		OnError: func(message string) {
			// Prior messages stay intact; the in-progress assistant message
			// simply stops extending.
			s.Conversation.FinishAssistant()
			streamErr = fmt.Errorf("%s", message)
			s.notice(message)
		},
	})
	if streamErr != nil {
		return streamErr
	}

	s.resync(ctx)
	return nil
}

// sendImageCommand routes a `/image` message to the image endpoint. The
// command text is kept as the user message and the generated image lands on
// the assistant reply.
func (s *ChatSession) sendImageCommand(ctx context.Context, content, prompt string) error {
	s.Conversation.Append(models.NewMessage(models.RoleUser, content))

	result, err := s.Client.GenerateImage(ctx, prompt)
	if err != nil {
		s.notice(err.Error())
		return err
	}

	reply := models.NewMessage(models.RoleAssistant, result.Text)
	reply.ImageURL = result.ImageURL
	s.Conversation.Append(reply)

	s.resync(ctx)
	return nil
}

// Save persists the current transcript as a new named session and links this
// conversation to it.
func (s *ChatSession) Save(ctx context.Context, name string) error {
	session, err := s.Client.CreateSession(ctx, name, s.Conversation.Snapshot(), s.Personality, s.Custom)
	if err != nil {
		s.notice("Failed to save chat: " + err.Error())
		return err
	}
	s.SavedID = session.ID
	return nil
}

// Load replaces the working transcript and personality selection with a
// saved session. In-memory state is untouched on failure.
func (s *ChatSession) Load(session client.Session) {
	s.Conversation.ReplaceAll(session.Messages)
	s.Personality = session.Personality
	s.Custom = session.CustomPersonality
	s.SavedID = session.ID
}

// resync pushes the transcript back to the saved session, if any. Persistence
// failures surface as notices and never roll back in-memory state.
func (s *ChatSession) resync(ctx context.Context) {
	if s.SavedID == "" {
		return
	}
	personalityID := s.Personality
	if err := s.Client.UpdateSession(ctx, s.SavedID, s.Conversation.Snapshot(), &personalityID, s.Custom); err != nil {
		s.notice("Failed to sync chat: " + err.Error())
	}
}

func (s *ChatSession) notice(message string) {
	if s.OnNotice != nil {
		s.OnNotice(message)
	}
}
