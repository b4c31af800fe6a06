package server

import "sync"

// session holds the per-run triage state: drafts being typed, messages
// committed for the next send-all, and threads deferred to later. It only
// lives as long as the process; chat.db is never written except to flip the
// read flag.
type session struct {
	mu        sync.Mutex
	drafts    map[int64]string
	committed map[int64]string
	later     map[int64]bool
}

func newSession() *session {
	return &session{
		drafts:    make(map[int64]string),
		committed: make(map[int64]string),
		later:     make(map[int64]bool),
	}
}

// setDraft records draft text for a chat, clearing any committed state. An
// empty text clears the draft.
func (s *session) setDraft(chatID int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.committed, chatID)
	if text == "" {
		delete(s.drafts, chatID)
		return
	}
	s.drafts[chatID] = text
}

// commit promotes text from draft to committed.
func (s *session) commit(chatID int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed[chatID] = text
	delete(s.drafts, chatID)
}

// toggleLater flips the later mark and reports the new state. Marking later
// clears draft and committed text.
func (s *session) toggleLater(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.later[chatID] {
		delete(s.later, chatID)
		return false
	}
	s.later[chatID] = true
	delete(s.drafts, chatID)
	delete(s.committed, chatID)
	return true
}

// takeCommitted removes and returns all committed messages.
func (s *session) takeCommitted() map[int64]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.committed
	s.committed = make(map[int64]string)
	return out
}

// restoreCommitted puts back a message whose send failed.
func (s *session) restoreCommitted(chatID int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed[chatID] = text
}

// prune drops state for chats that no longer exist.
func (s *session) prune(current map[int64]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.drafts {
		if !current[id] {
			delete(s.drafts, id)
		}
	}
	for id := range s.committed {
		if !current[id] {
			delete(s.committed, id)
		}
	}
	for id := range s.later {
		if !current[id] {
			delete(s.later, id)
		}
	}
}

// snapshot returns copies of the three maps for rendering.
func (s *session) snapshot() (drafts, committed map[int64]string, later map[int64]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drafts = make(map[int64]string, len(s.drafts))
	for k, v := range s.drafts {
		drafts[k] = v
	}
	committed = make(map[int64]string, len(s.committed))
	for k, v := range s.committed {
		committed[k] = v
	}
	later = make(map[int64]bool, len(s.later))
	for k, v := range s.later {
		later[k] = v
	}
	return drafts, committed, later
}
