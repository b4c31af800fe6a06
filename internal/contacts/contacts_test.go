package contacts

import (
	"errors"
	"path/filepath"
	"testing"

	"crusher/internal/people"
)

type fakeDirectory struct {
	contacts []Contact
	err      error
	calls    int
}

func (d *fakeDirectory) Contacts() ([]Contact, error) {
	d.calls++
	return d.contacts, d.err
}

func testDirectory() *fakeDirectory {
	return &fakeDirectory{contacts: []Contact{
		{GivenName: "Jo", FamilyName: "Lee", Phones: []string{"+1 (555) 123-4567"}},
		{GivenName: "Sam", Emails: []string{"Sam@Example.COM"}},
		{Phones: []string{"+15559990000"}}, // nameless, must be skipped
	}}
}

func TestResolveFromDirectory(t *testing.T) {
	r := NewResolver(nil, testDirectory())

	tests := []struct {
		identifier string
		want       string
	}{
		{"+15551234567", "Jo Lee"},
		// Country code stripped, formatted input normalized.
		{"5551234567", "Jo Lee"},
		{"(555) 123-4567", "Jo Lee"},
		// Emails are lowercased on both sides.
		{"sam@example.com", "Sam"},
		{"SAM@EXAMPLE.COM", "Sam"},
	}
	for _, tt := range tests {
		got, ok := r.Resolve(tt.identifier)
		if !ok {
			t.Errorf("Resolve(%q) missed", tt.identifier)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.identifier, got, tt.want)
		}
	}

	if _, ok := r.Resolve("+15559990000"); ok {
		t.Error("nameless contact should not resolve")
	}
	if _, ok := r.Resolve("+447700900000"); ok {
		t.Error("unknown number should not resolve")
	}
}

func TestResolveOverrideWins(t *testing.T) {
	ppl := people.NewStore(filepath.Join(t.TempDir(), "people.tsv"))
	if err := ppl.Put("+15551234567", people.Entry{DisplayName: "Boss"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// An override row with no display name must fall through to contacts.
	if err := ppl.Put("sam@example.com", people.Entry{Priority: "1"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	r := NewResolver(ppl, testDirectory())
	if got, _ := r.Resolve("+15551234567"); got != "Boss" {
		t.Errorf("Resolve = %q, want override name", got)
	}
	if got, _ := r.Resolve("sam@example.com"); got != "Sam" {
		t.Errorf("Resolve = %q, want directory name behind empty override", got)
	}
}

func TestResolveDirectoryFailure(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("no address book")}
	r := NewResolver(nil, dir)

	if _, ok := r.Resolve("+15551234567"); ok {
		t.Error("Resolve should miss when the directory is unavailable")
	}
	r.Resolve("+15551234567")
	if dir.calls != 1 {
		t.Errorf("directory consulted %d times, want 1 (failure is cached)", dir.calls)
	}

	// Invalidate forces a rebuild on the next lookup.
	dir.err = nil
	dir.contacts = testDirectory().contacts
	r.Invalidate()
	if got, ok := r.Resolve("+15551234567"); !ok || got != "Jo Lee" {
		t.Errorf("Resolve after Invalidate = %q, %v", got, ok)
	}
}

func TestResolverPriority(t *testing.T) {
	ppl := people.NewStore(filepath.Join(t.TempDir(), "people.tsv"))
	if err := ppl.Put("+15551234567", people.Entry{Priority: "1"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	r := NewResolver(ppl, nil)
	if got := r.Priority("+15551234567"); got != 1 {
		t.Errorf("Priority = %d, want 1", got)
	}
	if got := r.Priority("+15550000000"); got != people.DefaultPriority {
		t.Errorf("Priority = %d, want default", got)
	}

	nilStore := NewResolver(nil, nil)
	if got := nilStore.Priority("+15551234567"); got != people.DefaultPriority {
		t.Errorf("Priority with nil store = %d, want default", got)
	}
}

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+1 (707) 287-4936", "+17072874936"},
		{"555-1234", "5551234"},
		{"  +44 7700 900000 ", "+447700900000"},
		{"5+5+5", "555"}, // plus only allowed in front
		{"Jo.Lee@Example.COM", "jo.lee@example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeIdentifier(tt.in); got != tt.want {
			t.Errorf("NormalizeIdentifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
