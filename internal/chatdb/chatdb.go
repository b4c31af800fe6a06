package chatdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// accessHint is appended to open failures: the usual cause is missing Full
// Disk Access, which the user has to grant by hand.
const accessHint = "grant Full Disk Access in System Settings > Privacy & Security, then relaunch"

// Store is a read-only handle to the message database. One Store is opened
// per assembly and closed when it finishes; nothing is cached across opens.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the standard chat.db location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, "Library", "Messages", "chat.db"), nil
}

// Open opens the message database read-only. A store that cannot be opened
// at all is the only hard failure in the read path.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("message store not found at %s (%s): %w", path, accessHint, err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open message store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot read message store at %s (%s): %w", path, accessHint, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// MarkRead flips every unread message in the identified chat to read and
// returns how many rows changed. It opens its own read-write connection
// because Store handles are read-only.
func MarkRead(path, chatIdentifier string) (int64, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=rw")
	if err != nil {
		return 0, fmt.Errorf("failed to open message store for writing: %w", err)
	}
	defer db.Close()

	res, err := db.Exec(`
		UPDATE message SET is_read = 1
		WHERE ROWID IN (
			SELECT m.ROWID FROM message m
			JOIN chat_message_join cmj ON m.ROWID = cmj.message_id
			JOIN chat c ON cmj.chat_id = c.ROWID
			WHERE c.chat_identifier = ? AND m.is_read = 0
		)`, chatIdentifier)
	if err != nil {
		return 0, fmt.Errorf("failed to mark chat %s read: %w", chatIdentifier, err)
	}
	return res.RowsAffected()
}
