package model

import (
	"testing"
	"time"
)

func TestReactionKindForCode(t *testing.T) {
	tests := []struct {
		code int64
		kind ReactionKind
		ok   bool
	}{
		{2000, ReactionLoved, true},
		{2001, ReactionLiked, true},
		{2003, ReactionLaughed, true},
		{2006, ReactionHeart, true},
		{1999, 0, false},
		{2007, 0, false},
		{3000, 0, false}, // removal, never a reaction
		{0, 0, false},
	}
	for _, tt := range tests {
		kind, ok := ReactionKindForCode(tt.code)
		if ok != tt.ok {
			t.Errorf("ReactionKindForCode(%d) ok = %v, want %v", tt.code, ok, tt.ok)
			continue
		}
		if ok && kind != tt.kind {
			t.Errorf("ReactionKindForCode(%d) = %v, want %v", tt.code, kind, tt.kind)
		}
	}
}

func TestIsRemovalCode(t *testing.T) {
	for _, code := range []int64{3000, 3003, 3006} {
		if !IsRemovalCode(code) {
			t.Errorf("IsRemovalCode(%d) = false, want true", code)
		}
	}
	for _, code := range []int64{2000, 2999, 3007, 0} {
		if IsRemovalCode(code) {
			t.Errorf("IsRemovalCode(%d) = true, want false", code)
		}
	}
}

func TestReactionSummaryDedup(t *testing.T) {
	m := &Message{Reactions: []Reaction{
		{Kind: ReactionLoved},
		{Kind: ReactionLoved},
		{Kind: ReactionLaughed},
	}}
	want := ReactionLoved.Emoji() + ReactionLaughed.Emoji()
	if got := m.ReactionSummary(); got != want {
		t.Errorf("ReactionSummary() = %q, want %q", got, want)
	}

	empty := &Message{}
	if got := empty.ReactionSummary(); got != "" {
		t.Errorf("ReactionSummary() on empty = %q, want empty", got)
	}
}

func TestDisplayText(t *testing.T) {
	m := &Message{Text: " ￼ check this out ￼ "}
	if got := m.DisplayText(); got != "check this out" {
		t.Errorf("DisplayText() = %q, want %q", got, "check this out")
	}
}

func TestIsMediaOnly(t *testing.T) {
	img := Attachment{PathRaw: AttachmentsRoot + "ab/photo.jpeg", MimeType: "image/jpeg"}
	pdf := Attachment{PathRaw: AttachmentsRoot + "ab/doc.pdf", MimeType: "application/pdf"}

	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"image no text", Message{Text: "￼", Attachments: []Attachment{img}}, true},
		{"image with text", Message{Text: "look ￼", Attachments: []Attachment{img}}, false},
		{"non-image attachment", Message{Text: "", Attachments: []Attachment{pdf}}, false},
		{"no attachments", Message{Text: ""}, false},
	}
	for _, tt := range tests {
		if got := tt.msg.IsMediaOnly(); got != tt.want {
			t.Errorf("%s: IsMediaOnly() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestAttachmentURL(t *testing.T) {
	inside := Attachment{PathRaw: AttachmentsRoot + "ab/cd/photo.jpeg"}
	if got := inside.URL(); got != "/attachment/ab/cd/photo.jpeg" {
		t.Errorf("URL() = %q, want %q", got, "/attachment/ab/cd/photo.jpeg")
	}

	outside := Attachment{PathRaw: "/etc/passwd"}
	if got := outside.URL(); got != "" {
		t.Errorf("URL() for path outside root = %q, want empty", got)
	}
}

func TestConversationName(t *testing.T) {
	resolve := func(id string) (string, bool) {
		names := map[string]string{
			"+15551230001": "Ada Lovelace",
			"+15551230002": "Grace Hopper",
			"+15551230003": "Alan Turing",
		}
		name, ok := names[id]
		return name, ok
	}

	// Explicit display name wins over everything.
	c := &Conversation{DisplayName: "Family", ChatIdentifier: "chat123", Style: styleGroup}
	if got := c.Name(resolve); got != "Family" {
		t.Errorf("Name() = %q, want %q", got, "Family")
	}

	// Direct thread resolves through the identifier.
	c = &Conversation{ChatIdentifier: "+15551230001", Style: styleDirect}
	if got := c.Name(resolve); got != "Ada Lovelace" {
		t.Errorf("Name() = %q, want %q", got, "Ada Lovelace")
	}

	// Unresolvable direct thread falls back to the raw identifier.
	c = &Conversation{ChatIdentifier: "+15559990000", Style: styleDirect}
	if got := c.Name(resolve); got != "+15559990000" {
		t.Errorf("Name() = %q, want %q", got, "+15559990000")
	}

	// Groups list up to three first names plus an overflow count.
	c = &Conversation{
		ChatIdentifier: "chat456",
		Style:          styleGroup,
		Participants: []string{
			"+15551230001", "+15551230002", "+15551230003",
			"+15551230004", "+15551230005",
		},
	}
	want := "Ada, Grace, Alan +2"
	if got := c.Name(resolve); got != want {
		t.Errorf("Name() = %q, want %q", got, want)
	}

	// Unresolvable participants appear raw.
	c = &Conversation{
		ChatIdentifier: "chat789",
		Style:          styleGroup,
		Participants:   []string{"+15551230001", "+15559990000"},
	}
	want = "Ada, +15559990000"
	if got := c.Name(resolve); got != want {
		t.Errorf("Name() = %q, want %q", got, want)
	}

	// A nil resolver is fine.
	c = &Conversation{ChatIdentifier: "+15551230001", Style: styleDirect}
	if got := c.Name(nil); got != "+15551230001" {
		t.Errorf("Name(nil) = %q, want raw identifier", got)
	}
}

func TestMessagesURL(t *testing.T) {
	direct := &Conversation{ChatIdentifier: "+15551230001", Style: styleDirect}
	if got := direct.MessagesURL(); got != "imessage://+15551230001" {
		t.Errorf("MessagesURL() = %q", got)
	}
	group := &Conversation{ChatIdentifier: "chat123", Style: styleGroup}
	if got := group.MessagesURL(); got != "imessage://?groupID=chat123" {
		t.Errorf("MessagesURL() = %q", got)
	}
}

func TestAttachmentPath(t *testing.T) {
	a := Attachment{PathRaw: "/tmp/file.png"}
	if got := a.Path(); got != "/tmp/file.png" {
		t.Errorf("Path() = %q, want unchanged absolute path", got)
	}
	if (Attachment{}).Path() != "" {
		t.Error("Path() on empty attachment should be empty")
	}
}

func TestIsGroup(t *testing.T) {
	if !(&Conversation{Style: styleGroup}).IsGroup() {
		t.Error("style 43 should be a group")
	}
	if (&Conversation{Style: styleDirect}).IsGroup() {
		t.Error("style 45 should not be a group")
	}
}

func TestMessageZeroValues(t *testing.T) {
	m := &Message{Date: time.Unix(0, 0)}
	if m.DisplayText() != "" || m.IsMediaOnly() || m.ReactionSummary() != "" {
		t.Error("zero message should have no displayable content")
	}
}
