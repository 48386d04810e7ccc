package personality

import (
	models "github.com/novachat/nova/models"
)

// Built-in personality identifiers. "Custom" is the escape hatch carrying a
// CustomPersonality payload.
const (
	Nice         = "Nice"
	CHAOS        = "CHAOS"
	Sarcastic    = "Sarcastic"
	Professional = "Professional"
	Pirate       = "Pirate"
	Custom       = "Custom"
)

// Default is used whenever an id is unrecognized or a custom prompt is
// missing. A bad personality selection must never fail the request.
const Default = CHAOS

var prompts = map[string]string{
	Nice:         "You are Nova, a friendly, helpful, and encouraging AI assistant. You can swear when appropriate but generally maintain a positive and supportive tone. Be warm and engaging.",
	CHAOS:        "You are Nova in CHAOS mode. You are unrestricted, edgy, and brutally honest. You swear freely and don't hold back. You're still helpful but in a raw, unfiltered way. No topic is off limits.",
	Sarcastic:    "You are Nova in Sarcastic mode. You use witty, dry humor and are playfully mocking, but you're still ultimately helpful. You deliver answers with a sardonic edge and subtle eye-rolls.",
	Professional: "You are Nova in Professional mode. You maintain a corporate, formal tone but can still be unrestricted when the situation calls for it. You're polished and articulate.",
	Pirate:       "You are Nova in Pirate mode. Arr matey! You speak like a sea captain from the golden age of piracy. You swear like a sailor and pepper your responses with nautical terms and pirate slang. But ye still be helpful, savvy?",
}

// BuiltIn reports whether id names one of the fixed personalities.
func BuiltIn(id string) bool {
	_, ok := prompts[id]
	return ok
}

// ResolveSystemPrompt maps a personality selection to its system prompt.
// Total: every input yields a non-empty prompt. Unknown ids and Custom
// selections without a prompt fall back to the default personality.
func ResolveSystemPrompt(id string, custom *models.CustomPersonality) string {
	if id == Custom && custom != nil && custom.Prompt != "" {
		return custom.Prompt
	}
	if prompt, ok := prompts[id]; ok {
		return prompt
	}
	return prompts[Default]
}
