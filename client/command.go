package client

import "strings"

// ParseImageCommand recognizes the `/image <prompt>` chat command
// (case-insensitive). Matching messages are routed to the image-generation
// endpoint instead of the chat relay.
func ParseImageCommand(content string) (prompt string, ok bool) {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) < len("/image") {
		return "", false
	}
	head := trimmed[:len("/image")]
	if !strings.EqualFold(head, "/image") {
		return "", false
	}
	rest := trimmed[len("/image"):]
	if rest != "" && !strings.HasPrefix(rest, " ") && !strings.HasPrefix(rest, "\t") {
		return "", false
	}
	prompt = strings.TrimSpace(rest)
	if prompt == "" {
		return "", false
	}
	return prompt, true
}
