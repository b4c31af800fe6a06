package contacts

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// abFileName is the per-source AddressBook store inside each Sources
// subdirectory.
const abFileName = "AddressBook-v22.abcddb"

// AddressBookDirectory enumerates contacts from the macOS AddressBook
// SQLite stores.
type AddressBookDirectory struct {
	SourcesDir string
}

// DefaultSourcesDir returns the standard AddressBook sources location.
func DefaultSourcesDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, "Library", "Application Support", "AddressBook", "Sources"), nil
}

// Contacts reads every source database under SourcesDir. A single unreadable
// source is skipped; an unreadable sources directory fails the enumeration.
func (d AddressBookDirectory) Contacts() ([]Contact, error) {
	entries, err := os.ReadDir(d.SourcesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read AddressBook sources: %w", err)
	}

	var out []Contact
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dbPath := filepath.Join(d.SourcesDir, entry.Name(), abFileName)
		if _, err := os.Stat(dbPath); err != nil {
			continue
		}
		contacts, err := readSource(dbPath)
		if err != nil {
			slog.Warn("skipping AddressBook source", "path", dbPath, "error", err)
			continue
		}
		out = append(out, contacts...)
	}
	return out, nil
}

func readSource(path string) ([]Contact, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open AddressBook source: %w", err)
	}
	defer db.Close()

	var out []Contact

	phoneRows, err := db.Query(`
		SELECT COALESCE(r.ZFIRSTNAME, ''), COALESCE(r.ZLASTNAME, ''), p.ZFULLNUMBER
		FROM ZABCDRECORD r
		JOIN ZABCDPHONENUMBER p ON r.Z_PK = p.ZOWNER
		WHERE (r.ZFIRSTNAME IS NOT NULL OR r.ZLASTNAME IS NOT NULL)
		  AND p.ZFULLNUMBER IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to query phone numbers: %w", err)
	}
	for phoneRows.Next() {
		var given, family, phone string
		if err := phoneRows.Scan(&given, &family, &phone); err != nil {
			continue
		}
		out = append(out, Contact{GivenName: given, FamilyName: family, Phones: []string{phone}})
	}
	phoneRows.Close()

	emailRows, err := db.Query(`
		SELECT COALESCE(r.ZFIRSTNAME, ''), COALESCE(r.ZLASTNAME, ''), e.ZADDRESSNORMALIZED
		FROM ZABCDRECORD r
		JOIN ZABCDEMAILADDRESS e ON r.Z_PK = e.ZOWNER
		WHERE (r.ZFIRSTNAME IS NOT NULL OR r.ZLASTNAME IS NOT NULL)
		  AND e.ZADDRESSNORMALIZED IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to query email addresses: %w", err)
	}
	for emailRows.Next() {
		var given, family, email string
		if err := emailRows.Scan(&given, &family, &email); err != nil {
			continue
		}
		out = append(out, Contact{GivenName: given, FamilyName: family, Emails: []string{email}})
	}
	emailRows.Close()

	return out, nil
}
