package personality

import (
	"testing"

	models "github.com/novachat/nova/models"
)

func TestResolveSystemPrompt_BuiltIns(t *testing.T) {
	for _, id := range []string{Nice, CHAOS, Sarcastic, Professional, Pirate} {
		prompt := ResolveSystemPrompt(id, nil)
		if prompt == "" {
			t.Errorf("built-in %s resolved to empty prompt", id)
		}
	}

	if ResolveSystemPrompt(Nice, nil) == ResolveSystemPrompt(Pirate, nil) {
		t.Error("distinct built-ins should have distinct prompts")
	}
}

func TestResolveSystemPrompt_UnknownFallsBackToDefault(t *testing.T) {
	got := ResolveSystemPrompt("Bogus", nil)
	want := ResolveSystemPrompt(Default, nil)
	if got != want {
		t.Errorf("unknown id should resolve to the default prompt")
	}
	if got == "" {
		t.Error("fallback prompt must be non-empty")
	}
}

func TestResolveSystemPrompt_Custom(t *testing.T) {
	custom := &models.CustomPersonality{
		Name:   "Wizard",
		Prompt: "You speak in riddles.",
	}
	if got := ResolveSystemPrompt(Custom, custom); got != "You speak in riddles." {
		t.Errorf("custom prompt should be returned verbatim, got %q", got)
	}
}

func TestResolveSystemPrompt_CustomWithoutPrompt(t *testing.T) {
	want := ResolveSystemPrompt(Default, nil)

	if got := ResolveSystemPrompt(Custom, nil); got != want {
		t.Error("Custom with nil payload should fall back to the default prompt")
	}
	if got := ResolveSystemPrompt(Custom, &models.CustomPersonality{Name: "Empty"}); got != want {
		t.Error("Custom with empty prompt should fall back to the default prompt")
	}
}

func TestBuiltIn(t *testing.T) {
	if !BuiltIn(CHAOS) {
		t.Error("CHAOS is a built-in")
	}
	if BuiltIn(Custom) {
		t.Error("Custom is not a built-in")
	}
	if BuiltIn("nope") {
		t.Error("unknown id is not a built-in")
	}
}
