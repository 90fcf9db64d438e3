package genai

import (
	"os"
	"testing"
)

func TestNewClientModelDefault(t *testing.T) {
	os.Unsetenv("GAME_MODEL")
	if c := NewClient(); c.Model != "gpt-4o-mini" {
		t.Errorf("default model = %q, want gpt-4o-mini", c.Model)
	}
}

func TestNewClientModelOverride(t *testing.T) {
	os.Setenv("GAME_MODEL", "gpt-4o")
	defer os.Unsetenv("GAME_MODEL")
	if c := NewClient(); c.Model != "gpt-4o" {
		t.Errorf("overridden model = %q, want gpt-4o", c.Model)
	}
}
