package contacts

import (
	"log/slog"
	"strings"
	"sync"

	"crusher/internal/people"
)

// Contact is one entry from the OS contact directory.
type Contact struct {
	GivenName  string
	FamilyName string
	Phones     []string
	Emails     []string
}

// Directory enumerates an OS-level contact source. Implementations must
// tolerate partial data; total unavailability is reported as an error and
// handled by the Resolver.
type Directory interface {
	Contacts() ([]Contact, error)
}

// Resolver maps opaque identifiers (phones, emails) to display names by
// merging the override directory with the OS contacts. One Resolver lives
// for the whole process; the OS cache is built once, on first use.
type Resolver struct {
	people *people.Store
	dir    Directory

	mu     sync.Mutex
	loaded bool
	cache  map[string]string
}

// NewResolver builds a resolver over the override store and the OS
// directory. Either may be nil.
func NewResolver(ppl *people.Store, dir Directory) *Resolver {
	return &Resolver{people: ppl, dir: dir}
}

// Resolve returns the display name for an identifier. The override directory
// always wins when it holds a non-empty name; otherwise the OS cache is
// consulted directly, then with the identifier normalized, then with a US
// country code stripped. A miss is expected, not an error.
func (r *Resolver) Resolve(identifier string) (string, bool) {
	if r.people != nil {
		if name := r.people.DisplayName(identifier); name != "" {
			return name, true
		}
	}

	cache := r.contactCache()
	if name, ok := cache[identifier]; ok {
		return name, true
	}
	normalized := NormalizeIdentifier(identifier)
	if name, ok := cache[normalized]; ok {
		return name, true
	}
	if strings.HasPrefix(normalized, "+1") {
		if name, ok := cache[normalized[2:]]; ok {
			return name, true
		}
	}
	return "", false
}

// Priority returns the override priority for an identifier, defaulting when
// absent or unparsable.
func (r *Resolver) Priority(identifier string) int {
	if r.people == nil {
		return people.DefaultPriority
	}
	return r.people.Priority(identifier)
}

// Invalidate drops the OS cache so the next Resolve rebuilds it.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = false
	r.cache = nil
}

// contactCache returns the identifier-to-name map, building it on first use.
// A directory failure degrades to an empty cache for the rest of the process
// lifetime (until Invalidate).
func (r *Resolver) contactCache() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return r.cache
	}

	r.cache = make(map[string]string)
	r.loaded = true
	if r.dir == nil {
		return r.cache
	}

	contacts, err := r.dir.Contacts()
	if err != nil {
		slog.Warn("contact directory unavailable, names degrade to overrides only", "error", err)
		return r.cache
	}

	for _, c := range contacts {
		name := strings.TrimSpace(strings.TrimSpace(c.GivenName) + " " + strings.TrimSpace(c.FamilyName))
		if name == "" {
			continue
		}
		for _, phone := range c.Phones {
			normalized := NormalizeIdentifier(phone)
			if normalized == "" {
				continue
			}
			r.cache[normalized] = name
			// US numbers are often dialed without the country code.
			if strings.HasPrefix(normalized, "+1") && len(normalized) == 12 {
				r.cache[normalized[2:]] = name
			}
		}
		for _, email := range c.Emails {
			addr := strings.ToLower(strings.TrimSpace(email))
			if addr == "" {
				continue
			}
			r.cache[addr] = name
		}
	}
	return r.cache
}

// NormalizeIdentifier canonicalizes a contact identifier: emails are
// lowercased, phone numbers keep digits and a leading + only.
func NormalizeIdentifier(s string) string {
	s = strings.TrimSpace(s)
	if strings.ContainsRune(s, '@') {
		return strings.ToLower(s)
	}
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
