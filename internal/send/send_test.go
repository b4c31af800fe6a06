package send

import (
	"strings"
	"testing"
)

func TestChatID(t *testing.T) {
	if got := chatID("chat123", true); got != "any;+;chat123" {
		t.Errorf("chatID group = %q", got)
	}
	if got := chatID("+15551230001", false); got != "any;-;+15551230001" {
		t.Errorf("chatID direct = %q", got)
	}
}

func TestEscapeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`plain text`, `plain text`},
		{`say "hi"`, `say \"hi\"`},
		{`back\slash`, `back\\slash`},
		{`both \ and "`, `both \\ and \"`},
	}
	for _, tt := range tests {
		if got := escapeText(tt.in); got != tt.want {
			t.Errorf("escapeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScript(t *testing.T) {
	s := script("+15551230001", `she said "go"`, false)
	if !strings.Contains(s, `chat id "any;-;+15551230001"`) {
		t.Errorf("script missing chat id: %s", s)
	}
	if !strings.Contains(s, `send "she said \"go\""`) {
		t.Errorf("script missing escaped text: %s", s)
	}
	if !strings.Contains(s, `tell application "Messages"`) {
		t.Errorf("script missing tell block: %s", s)
	}
}
