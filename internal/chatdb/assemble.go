package chatdb

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"crusher/internal/model"
)

// recentMessageLimit caps how many records are loaded per thread.
const recentMessageLimit = 15

// reactionPrefixes are the three historical associated_message_guid forms,
// tried in order. They are mutually exclusive in practice.
var reactionPrefixes = []string{"p:0/", "p:1/", "bp:"}

// NameResolver maps a raw handle identifier (phone/email) to a display name.
// A nil resolver is treated as always missing.
type NameResolver func(identifier string) (string, bool)

// UnreadConversations returns every thread with at least one unread incoming
// message, each populated with participants, its most recent records in
// chronological order, attachments and reactions. Row-level decode problems
// degrade the affected row; only query failures surface.
func (s *Store) UnreadConversations(ctx context.Context, resolve NameResolver) ([]*model.Conversation, error) {
	convs, err := s.queryUnreadChats(ctx)
	if err != nil {
		return nil, err
	}

	// Participants are loaded before anything that resolves group names.
	for _, conv := range convs {
		if !conv.IsGroup() {
			continue
		}
		if err := s.loadParticipants(ctx, conv); err != nil {
			return nil, err
		}
	}

	for _, conv := range convs {
		if err := s.loadMessages(ctx, conv, resolve); err != nil {
			return nil, err
		}
	}
	return convs, nil
}

func (s *Store) queryUnreadChats(ctx context.Context) ([]*model.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			c.ROWID,
			c.display_name,
			c.chat_identifier,
			c.style,
			COUNT(*) AS unread_count,
			MAX(m.date) AS last_message_date
		FROM chat c
		JOIN chat_message_join cmj ON c.ROWID = cmj.chat_id
		JOIN message m ON cmj.message_id = m.ROWID
		WHERE m.is_read = 0
		  AND m.is_from_me = 0
		  AND m.item_type = 0
		  AND m.is_finished = 1
		  AND c.is_filtered != 2
		GROUP BY c.ROWID
		ORDER BY last_message_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query unread chats: %w", err)
	}
	defer rows.Close()

	var convs []*model.Conversation
	for rows.Next() {
		var (
			chatID      int64
			displayName sql.NullString
			identifier  sql.NullString
			style       sql.NullInt64
			unread      int
			lastDate    sql.NullInt64
		)
		if err := rows.Scan(&chatID, &displayName, &identifier, &style, &unread, &lastDate); err != nil {
			continue
		}
		convs = append(convs, &model.Conversation{
			ChatID:          chatID,
			DisplayName:     displayName.String,
			ChatIdentifier:  identifier.String,
			Style:           int(style.Int64),
			UnreadCount:     unread,
			LastMessageDate: AppleTime(lastDate),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read unread chats: %w", err)
	}
	return convs, nil
}

func (s *Store) loadParticipants(ctx context.Context, conv *model.Conversation) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT h.id FROM handle h
		JOIN chat_handle_join chj ON h.ROWID = chj.handle_id
		WHERE chj.chat_id = ?`, conv.ChatID)
	if err != nil {
		return fmt.Errorf("failed to query participants for chat %d: %w", conv.ChatID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		conv.Participants = append(conv.Participants, id)
	}
	return rows.Err()
}

func (s *Store) loadMessages(ctx context.Context, conv *model.Conversation, resolve NameResolver) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			m.ROWID,
			m.guid,
			m.text,
			m.attributedBody,
			m.date,
			m.is_from_me,
			m.cache_has_attachments,
			h.id AS sender
		FROM message m
		JOIN chat_message_join cmj ON m.ROWID = cmj.message_id
		LEFT JOIN handle h ON m.handle_id = h.ROWID
		WHERE cmj.chat_id = ?
		  AND m.item_type = 0
		  AND m.associated_message_type = 0
		ORDER BY m.date DESC
		LIMIT ?`, conv.ChatID, recentMessageLimit)
	if err != nil {
		return fmt.Errorf("failed to query messages for chat %d: %w", conv.ChatID, err)
	}
	defer rows.Close()

	byGUID := make(map[string]*model.Message)
	for rows.Next() {
		var (
			rowID          int64
			guid           string
			text           sql.NullString
			body           []byte
			date           sql.NullInt64
			fromMe         bool
			hasAttachments bool
			sender         sql.NullString
		)
		if err := rows.Scan(&rowID, &guid, &text, &body, &date, &fromMe, &hasAttachments, &sender); err != nil {
			continue
		}

		msgText := text.String
		if msgText == "" && len(body) > 0 {
			msgText = ParseAttributedBody(body)
		}

		var attachments []model.Attachment
		if hasAttachments {
			attachments = s.loadAttachments(ctx, rowID)
		}

		// A record with no displayable content is dropped.
		if strings.TrimSpace(msgText) == "" && len(attachments) == 0 {
			continue
		}

		senderName := ""
		if sender.Valid && conv.IsGroup() {
			senderName = resolveOrRaw(resolve, sender.String)
		}

		msg := &model.Message{
			RowID:       rowID,
			GUID:        guid,
			Text:        msgText,
			Date:        AppleTime(date),
			IsFromMe:    fromMe,
			Sender:      senderName,
			Attachments: attachments,
		}
		conv.Messages = append(conv.Messages, msg)
		byGUID[guid] = msg
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read messages for chat %d: %w", conv.ChatID, err)
	}

	if len(byGUID) > 0 {
		if err := s.loadReactions(ctx, conv, byGUID, resolve); err != nil {
			return err
		}
	}

	// The query returns newest first; expose oldest first.
	slices.Reverse(conv.Messages)
	return nil
}

// loadAttachments returns the attachments joined to a message, skipping rows
// without a filename. Failures degrade to no attachments.
func (s *Store) loadAttachments(ctx context.Context, messageRowID int64) []model.Attachment {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.filename, a.mime_type, a.transfer_name
		FROM attachment a
		JOIN message_attachment_join maj ON a.ROWID = maj.attachment_id
		WHERE maj.message_id = ?`, messageRowID)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []model.Attachment
	for rows.Next() {
		var filename, mimeType, transferName sql.NullString
		if err := rows.Scan(&filename, &mimeType, &transferName); err != nil {
			continue
		}
		if filename.String == "" {
			continue
		}
		out = append(out, model.Attachment{
			PathRaw:      filename.String,
			MimeType:     mimeType.String,
			TransferName: transferName.String,
		})
	}
	return out
}

func (s *Store) loadReactions(ctx context.Context, conv *model.Conversation, byGUID map[string]*model.Message, resolve NameResolver) error {
	args := make([]any, 0, len(conv.Messages)*len(reactionPrefixes))
	for _, m := range conv.Messages {
		for _, prefix := range reactionPrefixes {
			args = append(args, prefix+m.GUID)
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			m.associated_message_guid,
			m.associated_message_type,
			m.is_from_me,
			h.id AS sender
		FROM message m
		LEFT JOIN handle h ON m.handle_id = h.ROWID
		WHERE m.associated_message_guid IN (%s)
		  AND m.associated_message_type BETWEEN 2000 AND 2006`, placeholders), args...)
	if err != nil {
		return fmt.Errorf("failed to query reactions for chat %d: %w", conv.ChatID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ref    string
			code   int64
			fromMe bool
			sender sql.NullString
		)
		if err := rows.Scan(&ref, &code, &fromMe, &sender); err != nil {
			continue
		}

		kind, ok := model.ReactionKindForCode(code)
		if !ok {
			continue
		}
		msg, ok := byGUID[stripReactionPrefix(ref)]
		if !ok {
			continue
		}

		senderName := ""
		if sender.Valid && conv.IsGroup() {
			senderName = resolveOrRaw(resolve, sender.String)
		}
		msg.Reactions = append(msg.Reactions, model.Reaction{
			Kind:     kind,
			IsFromMe: fromMe,
			Sender:   senderName,
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read reactions for chat %d: %w", conv.ChatID, err)
	}
	return nil
}

// stripReactionPrefix recovers the target guid from an association reference.
// An unprefixed reference already is the guid.
func stripReactionPrefix(ref string) string {
	for _, prefix := range reactionPrefixes {
		if strings.HasPrefix(ref, prefix) {
			return ref[len(prefix):]
		}
	}
	return ref
}

func resolveOrRaw(resolve NameResolver, identifier string) string {
	if resolve != nil {
		if name, ok := resolve(identifier); ok {
			return name
		}
	}
	return identifier
}
