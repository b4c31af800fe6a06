package inbox

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/singleflight"

	"crusher/internal/chatdb"
	"crusher/internal/contacts"
	"crusher/internal/model"
)

// Sender delivers an outgoing message for a chat identifier.
type Sender interface {
	Send(ctx context.Context, identifier, text string, isGroup bool) error
}

// Service orchestrates the read path and the write-side collaborators. It
// owns the long-lived resolver; every Assemble opens and closes its own
// read-only store connection.
type Service struct {
	storePath string
	resolver  *contacts.Resolver
	sender    Sender

	// Concurrent sends to the same chat collapse into one delivery.
	sending singleflight.Group
}

// New builds a Service over the message store at storePath.
func New(storePath string, resolver *contacts.Resolver, sender Sender) *Service {
	return &Service{storePath: storePath, resolver: resolver, sender: sender}
}

// Assemble builds the full unread-thread graph and returns it ranked.
func (s *Service) Assemble(ctx context.Context) ([]*model.Conversation, error) {
	store, err := chatdb.Open(s.storePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	convs, err := store.UnreadConversations(ctx, s.resolver.Resolve)
	if err != nil {
		return nil, err
	}
	return s.Rank(convs), nil
}

// Rank orders threads by override priority, then most recent activity first.
// The sort is stable, so ties keep their input order.
func (s *Service) Rank(convs []*model.Conversation) []*model.Conversation {
	sort.SliceStable(convs, func(i, j int) bool {
		pi := s.resolver.Priority(convs[i].ChatIdentifier)
		pj := s.resolver.Priority(convs[j].ChatIdentifier)
		if pi != pj {
			return pi < pj
		}
		return convs[i].LastMessageDate.After(convs[j].LastMessageDate)
	})
	return convs
}

// ResolveIdentity maps an identifier to a display name.
func (s *Service) ResolveIdentity(identifier string) (string, bool) {
	return s.resolver.Resolve(identifier)
}

// PriorityOf returns the ranking priority for an identifier.
func (s *Service) PriorityOf(identifier string) int {
	return s.resolver.Priority(identifier)
}

// MarkRead marks every unread message in a chat as read.
func (s *Service) MarkRead(identifier string) (int64, error) {
	return chatdb.MarkRead(s.storePath, identifier)
}

// Send delivers text to a chat and marks it read on success. At most one
// send per identifier is in flight at a time; concurrent callers share the
// outcome of the first.
func (s *Service) Send(ctx context.Context, identifier, text string, isGroup bool) error {
	if s.sender == nil {
		return fmt.Errorf("no message sender configured")
	}
	_, err, _ := s.sending.Do(identifier, func() (any, error) {
		if err := s.sender.Send(ctx, identifier, text, isGroup); err != nil {
			return nil, err
		}
		if _, err := chatdb.MarkRead(s.storePath, identifier); err != nil {
			return nil, fmt.Errorf("message sent but chat not marked read: %w", err)
		}
		return nil, nil
	})
	return err
}
