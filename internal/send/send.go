package send

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// sendTimeout bounds one osascript invocation. Messages.app occasionally
// hangs on first launch; the timeout keeps a stuck send from wedging the
// whole batch.
const sendTimeout = 10 * time.Second

// AppleScript delivers messages through Messages.app via osascript.
type AppleScript struct {
	limiter *rate.Limiter
	timeout time.Duration
}

// NewAppleScript builds a sender paced to one delivery every half second,
// which keeps Messages.app responsive during send-all batches.
func NewAppleScript() *AppleScript {
	return &AppleScript{
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		timeout: sendTimeout,
	}
}

// Send delivers text to a chat. It blocks on the rate limiter, then runs
// osascript with a bounded timeout.
func (a *AppleScript) Send(ctx context.Context, identifier, text string, isGroup bool) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "osascript", "-e", script(identifier, text, isGroup))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("osascript send failed: %w (output: %s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// chatID builds the chat id Messages.app expects: "any;+;<id>" for group
// chats, "any;-;<id>" for direct ones.
func chatID(identifier string, isGroup bool) string {
	if isGroup {
		return "any;+;" + identifier
	}
	return "any;-;" + identifier
}

// escapeText makes text safe inside an AppleScript string literal.
func escapeText(text string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(text)
}

func script(identifier, text string, isGroup bool) string {
	return fmt.Sprintf(`tell application "Messages"
	set targetChat to chat id "%s"
	send "%s" to targetChat
end tell`, chatID(identifier, isGroup), escapeText(text))
}
