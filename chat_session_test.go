package nova

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	models "github.com/novachat/nova/models"
)

// fakeRelay mimics the relay's /chat and /generate-image endpoints.
type fakeRelay struct {
	chatCalls  int32
	imageCalls int32
	lastImage  models.ImageRequest
	chatReply  string
}

func (f *fakeRelay) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.chatCalls, 1)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range []string{f.chatReply[:len(f.chatReply)/2], f.chatReply[len(f.chatReply)/2:]} {
			record, _ := json.Marshal(map[string]interface{}{
				"choices": []map[string]interface{}{{"delta": map[string]string{"content": delta}}},
			})
			fmt.Fprintf(w, "data: %s\n\n", record)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	mux.HandleFunc("/generate-image", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.imageCalls, 1)
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &f.lastImage)
		json.NewEncoder(w).Encode(models.ImageResponse{
			Text:     "A red fox in a meadow",
			ImageURL: "https://images.example/fox.png",
		})
	})
	return mux
}

func TestSend_StreamsReplyIntoTranscript(t *testing.T) {
	relay := &fakeRelay{chatReply: "Hello there!"}
	srv := httptest.NewServer(relay.handler())
	defer srv.Close()

	session := NewChatSession(srv.URL)
	if err := session.Send(context.Background(), "hi", nil); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	msgs := session.Conversation.Snapshot()
	if len(msgs) != 2 {
		t.Fatalf("expected user + assistant, got %d messages", len(msgs))
	}
	if msgs[0].Role != models.RoleUser || msgs[0].Content != "hi" {
		t.Errorf("user message wrong: %+v", msgs[0])
	}
	if msgs[1].Role != models.RoleAssistant || msgs[1].Content != "Hello there!" {
		t.Errorf("assistant message wrong: %+v", msgs[1])
	}
	if session.Loading() {
		t.Error("loading should clear after the stream completes")
	}
}

func TestSend_ImageCommandSkipsChatRelay(t *testing.T) {
	relay := &fakeRelay{chatReply: "unused"}
	srv := httptest.NewServer(relay.handler())
	defer srv.Close()

	session := NewChatSession(srv.URL)
	if err := session.Send(context.Background(), "/image a red fox", nil); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if got := atomic.LoadInt32(&relay.imageCalls); got != 1 {
		t.Fatalf("image endpoint called %d times, want 1", got)
	}
	if got := atomic.LoadInt32(&relay.chatCalls); got != 0 {
		t.Errorf("chat relay must not be called for an image command, got %d calls", got)
	}
	if relay.lastImage.Prompt != "a red fox" {
		t.Errorf("prompt = %q, want %q", relay.lastImage.Prompt, "a red fox")
	}

	msgs := session.Conversation.Snapshot()
	if len(msgs) != 2 {
		t.Fatalf("expected user + assistant, got %d messages", len(msgs))
	}
	if msgs[0].Content != "/image a red fox" {
		t.Errorf("command text should remain the user message: %q", msgs[0].Content)
	}
	if msgs[1].ImageURL != "https://images.example/fox.png" {
		t.Errorf("assistant reply missing image url: %+v", msgs[1])
	}
	if msgs[1].Content != "A red fox in a meadow" {
		t.Errorf("assistant reply missing descriptive text: %+v", msgs[1])
	}
}

func TestSend_ImageFailureLeavesUserMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorEnvelope{Error: "Image generation is not configured"})
	}))
	defer srv.Close()

	var notices []string
	session := NewChatSession(srv.URL)
	session.OnNotice = func(msg string) { notices = append(notices, msg) }

	err := session.Send(context.Background(), "/image a red fox", nil)
	if err == nil {
		t.Fatal("expected an error")
	}

	msgs := session.Conversation.Snapshot()
	if len(msgs) != 1 || msgs[0].Content != "/image a red fox" {
		t.Errorf("user message should survive a failed generation: %+v", msgs)
	}
	if len(notices) != 1 || notices[0] != "Image generation is not configured" {
		t.Errorf("notices = %v", notices)
	}
}

func TestSend_RejectsConcurrentSend(t *testing.T) {
	blockStream := make(chan struct{})
	firstInFlight := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(firstInFlight)
		<-blockStream
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	session := NewChatSession(srv.URL)

	firstDone := make(chan error, 1)
	go func() { firstDone <- session.Send(context.Background(), "slow one", nil) }()
	<-firstInFlight

	if err := session.Send(context.Background(), "second", nil); err == nil {
		t.Error("second send while streaming should be rejected")
	}

	close(blockStream)
	if err := <-firstDone; err != nil {
		t.Errorf("first send failed: %v", err)
	}
}

func TestSend_StreamErrorKeepsPriorMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(models.ErrorEnvelope{Error: "Rate limits exceeded, please try again later."})
	}))
	defer srv.Close()

	var notices []string
	session := NewChatSession(srv.URL)
	session.OnNotice = func(msg string) { notices = append(notices, msg) }
	session.Conversation.Append(models.NewMessage(models.RoleUser, "earlier"))
	session.Conversation.Append(models.NewMessage(models.RoleAssistant, "earlier reply"))

	err := session.Send(context.Background(), "hi", nil)
	if err == nil {
		t.Fatal("expected an error")
	}

	msgs := session.Conversation.Snapshot()
	if len(msgs) != 3 {
		t.Fatalf("expected prior messages plus the new user message, got %d", len(msgs))
	}
	if msgs[0].Content != "earlier" || msgs[1].Content != "earlier reply" {
		t.Errorf("prior transcript damaged: %+v", msgs[:2])
	}
	if len(notices) != 1 || notices[0] != "Rate limits exceeded, please try again later." {
		t.Errorf("notices = %v", notices)
	}
}
