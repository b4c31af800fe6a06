package server

import (
	"time"

	"crusher/internal/model"
)

type attachmentView struct {
	URL          string `json:"url,omitempty"`
	MimeType     string `json:"mime_type"`
	TransferName string `json:"transfer_name"`
	IsImage      bool   `json:"is_image"`
}

type messageView struct {
	Text        string           `json:"text"`
	Date        time.Time        `json:"date"`
	IsFromMe    bool             `json:"is_from_me"`
	Sender      string           `json:"sender,omitempty"`
	Reactions   string           `json:"reactions,omitempty"`
	MediaOnly   bool             `json:"media_only"`
	Attachments []attachmentView `json:"attachments,omitempty"`
}

type conversationView struct {
	ChatID       int64         `json:"chat_id"`
	Name         string        `json:"name"`
	Identifier   string        `json:"identifier"`
	IsGroup      bool          `json:"is_group"`
	UnreadCount  int           `json:"unread_count"`
	LastActivity time.Time     `json:"last_activity"`
	MessagesURL  string        `json:"messages_url"`
	Ignored      bool          `json:"ignored"`
	Later        bool          `json:"later"`
	Draft        string        `json:"draft,omitempty"`
	Committed    string        `json:"committed,omitempty"`
	Messages     []messageView `json:"messages"`
}

type inboxView struct {
	Conversations []conversationView `json:"conversations"`
	GridCols      int                `json:"grid_cols"`
	Total         int                `json:"total"`
	Ready         int                `json:"ready"`
	Remaining     int                `json:"remaining"`
}

type statsView struct {
	Total     int `json:"total"`
	Remaining int `json:"remaining"`
	Ready     int `json:"ready"`
	Later     int `json:"later"`
	Drafts    int `json:"drafts"`
}

func (s *Server) conversationView(conv *model.Conversation, drafts, committed map[int64]string, later map[int64]bool) conversationView {
	view := conversationView{
		ChatID:       conv.ChatID,
		Name:         conv.Name(s.inbox.ResolveIdentity),
		Identifier:   conv.ChatIdentifier,
		IsGroup:      conv.IsGroup(),
		UnreadCount:  conv.UnreadCount,
		LastActivity: conv.LastMessageDate,
		MessagesURL:  conv.MessagesURL(),
		Ignored:      s.people.Ignored(conv.ChatIdentifier),
		Later:        later[conv.ChatID],
		Draft:        drafts[conv.ChatID],
		Committed:    committed[conv.ChatID],
		Messages:     make([]messageView, 0, len(conv.Messages)),
	}
	for _, msg := range conv.Messages {
		mv := messageView{
			Text:      msg.DisplayText(),
			Date:      msg.Date,
			IsFromMe:  msg.IsFromMe,
			Sender:    msg.Sender,
			Reactions: msg.ReactionSummary(),
			MediaOnly: msg.IsMediaOnly(),
		}
		for _, a := range msg.Attachments {
			mv.Attachments = append(mv.Attachments, attachmentView{
				URL:          a.URL(),
				MimeType:     a.MimeType,
				TransferName: a.TransferName,
				IsImage:      a.IsImage(),
			})
		}
		view.Messages = append(view.Messages, mv)
	}
	return view
}
