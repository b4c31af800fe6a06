package inbox

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"crusher/internal/contacts"
	"crusher/internal/model"
	"crusher/internal/people"
)

func testResolver(t *testing.T, priorities map[string]string) *contacts.Resolver {
	t.Helper()
	ppl := people.NewStore(filepath.Join(t.TempDir(), "people.tsv"))
	for id, prio := range priorities {
		if err := ppl.Put(id, people.Entry{Priority: prio}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	return contacts.NewResolver(ppl, nil)
}

func TestRank(t *testing.T) {
	resolver := testResolver(t, map[string]string{"+15550000001": "1"})
	svc := New("", resolver, nil)

	t0 := time.Unix(1700000000, 0)
	t1 := t0.Add(time.Hour)
	t2 := t0.Add(2 * time.Hour)

	// The priority-1 thread wins despite being the least recent; the two
	// default-priority threads fall back to recency.
	convs := []*model.Conversation{
		{ChatIdentifier: "+15550000005a", LastMessageDate: t0},
		{ChatIdentifier: "+15550000001", LastMessageDate: t1},
		{ChatIdentifier: "+15550000005b", LastMessageDate: t2},
	}
	ranked := svc.Rank(convs)

	want := []string{"+15550000001", "+15550000005b", "+15550000005a"}
	for i, id := range want {
		if ranked[i].ChatIdentifier != id {
			t.Errorf("ranked[%d] = %q, want %q", i, ranked[i].ChatIdentifier, id)
		}
	}
}

func TestRankStable(t *testing.T) {
	svc := New("", testResolver(t, nil), nil)

	// Same priority, same timestamp: input order is preserved.
	ts := time.Unix(1700000000, 0)
	convs := []*model.Conversation{
		{ChatIdentifier: "a", LastMessageDate: ts},
		{ChatIdentifier: "b", LastMessageDate: ts},
		{ChatIdentifier: "c", LastMessageDate: ts},
	}
	ranked := svc.Rank(convs)
	for i, id := range []string{"a", "b", "c"} {
		if ranked[i].ChatIdentifier != id {
			t.Errorf("ranked[%d] = %q, want %q", i, ranked[i].ChatIdentifier, id)
		}
	}
}

type fakeSender struct {
	calls []string
	err   error
}

func (f *fakeSender) Send(ctx context.Context, identifier, text string, isGroup bool) error {
	f.calls = append(f.calls, identifier+":"+text)
	return f.err
}

// sendFixture creates a minimal message store with one unread thread.
func sendFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE chat (ROWID INTEGER PRIMARY KEY, chat_identifier TEXT)`,
		`CREATE TABLE message (ROWID INTEGER PRIMARY KEY, is_read INTEGER DEFAULT 0)`,
		`CREATE TABLE chat_message_join (chat_id INTEGER, message_id INTEGER)`,
		`INSERT INTO chat (ROWID, chat_identifier) VALUES (1, '+15551230001')`,
		`INSERT INTO message (ROWID) VALUES (1), (2)`,
		`INSERT INTO chat_message_join (chat_id, message_id) VALUES (1, 1), (1, 2)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return path
}

func TestSendMarksRead(t *testing.T) {
	path := sendFixture(t)
	sender := &fakeSender{}
	svc := New(path, testResolver(t, nil), sender)

	if err := svc.Send(context.Background(), "+15551230001", "on my way", false); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(sender.calls) != 1 || sender.calls[0] != "+15551230001:on my way" {
		t.Errorf("sender calls = %v", sender.calls)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen fixture: %v", err)
	}
	defer db.Close()
	var unread int
	if err := db.QueryRow(`SELECT COUNT(*) FROM message WHERE is_read = 0`).Scan(&unread); err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if unread != 0 {
		t.Errorf("%d messages still unread after Send", unread)
	}
}

func TestSendFailureLeavesUnread(t *testing.T) {
	path := sendFixture(t)
	sender := &fakeSender{err: errors.New("osascript exploded")}
	svc := New(path, testResolver(t, nil), sender)

	if err := svc.Send(context.Background(), "+15551230001", "hi", false); err == nil {
		t.Fatal("Send should surface the sender failure")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen fixture: %v", err)
	}
	defer db.Close()
	var unread int
	if err := db.QueryRow(`SELECT COUNT(*) FROM message WHERE is_read = 0`).Scan(&unread); err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if unread != 2 {
		t.Errorf("unread = %d, want 2 (failed send must not mark read)", unread)
	}
}

func TestSendWithoutSender(t *testing.T) {
	svc := New("", testResolver(t, nil), nil)
	if err := svc.Send(context.Background(), "+15551230001", "hi", false); err == nil {
		t.Fatal("Send without a configured sender should fail")
	}
}
