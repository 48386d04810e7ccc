package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	models "github.com/novachat/nova/models"
)

// StreamRequest carries one full conversation turn plus the caller's
// callbacks. OnDelta is invoked synchronously for each decoded fragment, in
// arrival order. OnDone fires exactly once after the last fragment; OnError
// fires exactly once on any failure and suppresses OnDone.
type StreamRequest struct {
	Messages          []models.Message
	Personality       string
	CustomPersonality *models.CustomPersonality

	OnDelta func(text string)
	OnDone  func()
	OnError func(message string)
}

// Client talks to the relay server. The protocol is stateless per call: the
// entire history is resent every turn and no session memory lives on the
// server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *log.Logger
}

// New creates a relay client for the given base URL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: http.DefaultClient,
		Logger:     log.New(os.Stderr, "[relay] ", log.LstdFlags),
	}
}

// StreamChat opens a single streaming request to the relay and decodes the
// event stream into the request's callbacks. All failure paths are funneled
// through OnError; nothing escapes past this boundary. There is no automatic
// retry.
//
// Cancelling ctx aborts the request, releases the connection, and stops
// further callbacks without invoking OnDone or OnError.
func (c *Client) StreamChat(ctx context.Context, req StreamRequest) {
	onDelta := req.OnDelta
	if onDelta == nil {
		onDelta = func(string) {}
	}
	onDone := req.OnDone
	if onDone == nil {
		onDone = func() {}
	}
	onError := req.OnError
	if onError == nil {
		onError = func(string) {}
	}

	body := models.ChatRequest{
		Messages:          req.Messages,
		Personality:       req.Personality,
		CustomPersonality: req.CustomPersonality,
	}
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		onError("Failed to encode chat request")
		return
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/chat", bytes.NewReader(jsonBytes))
	if err != nil {
		onError("Failed to build chat request")
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		if ctxErr(err) {
			return
		}
		c.logf("chat request failed: %v", err)
		onError("Failed to reach the chat service")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		onError(c.readErrorEnvelope(resp))
		return
	}

	c.consumeStream(ctx, resp.Body, onDelta, onDone, onError)
}

// consumeStream reads the response body sequentially and drives the decoder.
// Fragment processing is never reordered or parallelized; the transport
// guarantees byte order and the decoder preserves it.
func (c *Client) consumeStream(ctx context.Context, body io.Reader, onDelta func(string), onDone func(), onError func(string)) {
	decoder := NewDecoder()
	buf := make([]byte, 4096)

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			fragments, done, decErr := decoder.Feed(buf[:n])
			for _, fragment := range fragments {
				onDelta(fragment)
			}
			if decErr != nil {
				c.logf("stream decode error: %v", decErr)
				onError("Malformed response from the chat service")
				return
			}
			if done {
				onDone()
				return
			}
		}

		if readErr != nil {
			if ctxErr(readErr) {
				return
			}
			if readErr == io.EOF {
				if err := decoder.Close(); err != nil {
					c.logf("stream closed mid-record")
					onError("Chat stream ended unexpectedly")
					return
				}
				// Clean close without the sentinel still counts as done.
				onDone()
				return
			}
			if ctx.Err() != nil {
				return
			}
			c.logf("stream read error: %v", readErr)
			onError("Connection to the chat service was lost")
			return
		}
	}
}

func (c *Client) readErrorEnvelope(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil {
		var envelope models.ErrorEnvelope
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
			return envelope.Error
		}
	}
	return fmt.Sprintf("Request failed with status %d", resp.StatusCode)
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) logf(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}

func ctxErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
