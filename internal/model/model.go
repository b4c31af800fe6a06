package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AttachmentsRoot is the raw-path prefix under which attachment files may be
// served. Files outside this root never get a URL.
const AttachmentsRoot = "~/Library/Messages/Attachments/"

// objectReplacement is the placeholder character Messages inserts where an
// attachment sits inline in the text.
const objectReplacement = "\ufffc"

// chat.style values in chat.db.
const (
	styleGroup  = 43
	styleDirect = 45
)

// ReactionKind identifies a tapback reaction.
type ReactionKind int

const (
	ReactionLoved ReactionKind = iota
	ReactionLiked
	ReactionDisliked
	ReactionLaughed
	ReactionEmphasized
	ReactionQuestioned
	ReactionHeart
)

// Association type codes in chat.db. 2000-2006 add a reaction, 3000-3006
// remove one. Removals are recognized but never reconciled (see Reconciler
// notes in DESIGN.md).
const (
	reactionCodeBase = 2000
	reactionCodeLast = 2006
	removalCodeBase  = 3000
	removalCodeLast  = 3006
)

var reactionEmoji = [...]string{
	ReactionLoved:      "❤️",
	ReactionLiked:      "\U0001f44d",
	ReactionDisliked:   "\U0001f44e",
	ReactionLaughed:    "\U0001f602",
	ReactionEmphasized: "‼️",
	ReactionQuestioned: "❓",
	ReactionHeart:      "\U0001faf6",
}

// Emoji returns the display symbol for the reaction kind.
func (k ReactionKind) Emoji() string {
	if k < 0 || int(k) >= len(reactionEmoji) {
		return ""
	}
	return reactionEmoji[k]
}

// ReactionKindForCode maps an associated_message_type code to its kind.
// Removal codes and anything else outside 2000-2006 report false.
func ReactionKindForCode(code int64) (ReactionKind, bool) {
	if code < reactionCodeBase || code > reactionCodeLast {
		return 0, false
	}
	return ReactionKind(code - reactionCodeBase), true
}

// IsRemovalCode reports whether code is an un-reaction association.
func IsRemovalCode(code int64) bool {
	return code >= removalCodeBase && code <= removalCodeLast
}

// Attachment is a file attached to a message.
type Attachment struct {
	PathRaw      string
	MimeType     string
	TransferName string
}

// IsImage reports whether the attachment is an image by MIME type.
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.MimeType, "image/")
}

// Path returns the on-disk path with a leading ~ expanded.
func (a Attachment) Path() string {
	if a.PathRaw == "" {
		return ""
	}
	if strings.HasPrefix(a.PathRaw, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return a.PathRaw
		}
		return filepath.Join(home, a.PathRaw[2:])
	}
	return a.PathRaw
}

// URL returns the serving path for the attachment, or "" when the file lives
// outside the attachments root.
func (a Attachment) URL() string {
	if strings.HasPrefix(a.PathRaw, AttachmentsRoot) {
		return "/attachment/" + a.PathRaw[len(AttachmentsRoot):]
	}
	return ""
}

// Reaction is a tapback attached to a message. Sender is empty for direct
// threads and for rows with no handle.
type Reaction struct {
	Kind     ReactionKind
	IsFromMe bool
	Sender   string
}

// Message is a single record in a conversation.
type Message struct {
	RowID       int64
	GUID        string
	Text        string
	Date        time.Time
	IsFromMe    bool
	Sender      string
	Attachments []Attachment
	Reactions   []Reaction
}

// DisplayText strips inline attachment placeholders and surrounding space.
func (m *Message) DisplayText() string {
	return strings.TrimSpace(strings.ReplaceAll(m.Text, objectReplacement, ""))
}

// IsMediaOnly reports whether the message carries at least one image and no
// displayable text.
func (m *Message) IsMediaOnly() bool {
	if m.DisplayText() != "" {
		return false
	}
	for _, a := range m.Attachments {
		if a.IsImage() {
			return true
		}
	}
	return false
}

// ReactionSummary collapses the stored reaction list into the display string:
// one symbol per kind, first occurrence wins, insertion order preserved.
func (m *Message) ReactionSummary() string {
	var b strings.Builder
	seen := make(map[ReactionKind]bool, len(m.Reactions))
	for _, r := range m.Reactions {
		if seen[r.Kind] {
			continue
		}
		seen[r.Kind] = true
		b.WriteString(r.Kind.Emoji())
	}
	return b.String()
}

// Conversation is a thread with its most recent records.
type Conversation struct {
	ChatID          int64
	DisplayName     string
	ChatIdentifier  string
	Style           int
	UnreadCount     int
	LastMessageDate time.Time
	Messages        []*Message
	Participants    []string
}

// IsGroup reports whether the thread is a group chat.
func (c *Conversation) IsGroup() bool {
	return c.Style == styleGroup
}

// Name computes the display name for the thread. The explicit display name
// wins, then a resolver hit on the chat identifier, then (for groups) a short
// participant listing, then the raw identifier. resolve may be nil.
func (c *Conversation) Name(resolve func(string) (string, bool)) string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	if resolve != nil {
		if name, ok := resolve(c.ChatIdentifier); ok {
			return name
		}
	}
	if c.IsGroup() && len(c.Participants) > 0 {
		names := make([]string, 0, 3)
		for _, p := range c.Participants {
			if len(names) == 3 {
				break
			}
			if resolve != nil {
				if name, ok := resolve(p); ok {
					// First name only, to keep group labels short.
					if fields := strings.Fields(name); len(fields) > 0 {
						names = append(names, fields[0])
						continue
					}
				}
			}
			names = append(names, p)
		}
		label := strings.Join(names, ", ")
		if extra := len(c.Participants) - 3; extra > 0 {
			label += fmt.Sprintf(" +%d", extra)
		}
		return label
	}
	return c.ChatIdentifier
}

// MessagesURL returns the deep link that opens the thread in Messages.app.
func (c *Conversation) MessagesURL() string {
	if c.IsGroup() {
		return "imessage://?groupID=" + c.ChatIdentifier
	}
	return "imessage://" + c.ChatIdentifier
}
