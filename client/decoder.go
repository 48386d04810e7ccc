package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/novachat/nova/models/deepseek"
)

// doneSentinel terminates the event stream.
const doneSentinel = "[DONE]"

// Decoder is an incremental parser for the newline-delimited `data:` framing
// used by streaming completion APIs. Chunks may split records anywhere, so a
// carry-over buffer holds the trailing partial line between Feed calls.
//
// Records carrying completion-chunk JSON yield their delta text; plain-text
// records pass through verbatim. A record that looks like JSON but does not
// parse is a malformed payload.
type Decoder struct {
	carry []byte
	done  bool
}

// NewDecoder creates an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed consumes one chunk of the response body and returns the text fragments
// it completes, in order. done becomes true on the terminal sentinel; no
// fragments follow it.
func (d *Decoder) Feed(chunk []byte) (fragments []string, done bool, err error) {
	if d.done {
		return nil, true, nil
	}

	d.carry = append(d.carry, chunk...)

	for {
		idx := bytes.IndexByte(d.carry, '\n')
		if idx < 0 {
			return fragments, false, nil
		}

		line := string(d.carry[:idx])
		d.carry = d.carry[idx+1:]

		fragment, isDone, lineErr := d.decodeLine(line)
		if lineErr != nil {
			return fragments, false, lineErr
		}
		if isDone {
			d.done = true
			return fragments, true, nil
		}
		if fragment != "" {
			fragments = append(fragments, fragment)
		}
	}
}

// Close signals end of input. A clean close is one with no unterminated
// record left in the carry-over buffer.
func (d *Decoder) Close() error {
	if d.done {
		return nil
	}
	if strings.TrimSpace(string(d.carry)) != "" {
		return fmt.Errorf("stream closed mid-record")
	}
	return nil
}

// Done reports whether the terminal sentinel was seen.
func (d *Decoder) Done() bool {
	return d.done
}

func (d *Decoder) decodeLine(line string) (fragment string, done bool, err error) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return "", false, nil
	}

	// Non-data lines (comments, event names) are part of the framing, not
	// payload.
	if !strings.HasPrefix(line, "data:") {
		return "", false, nil
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

	if data == doneSentinel {
		return "", true, nil
	}

	if strings.HasPrefix(data, "{") {
		var resp deepseek.StreamResponse
		if jsonErr := json.Unmarshal([]byte(data), &resp); jsonErr != nil {
			return "", false, fmt.Errorf("malformed stream payload: %w", jsonErr)
		}
		var sb strings.Builder
		for _, choice := range resp.Choices {
			if choice.Delta != nil {
				sb.WriteString(choice.Delta.Content)
			}
		}
		return sb.String(), false, nil
	}

	// Plain-text record.
	return data, false, nil
}
