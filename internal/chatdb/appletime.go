package chatdb

import (
	"database/sql"
	"time"
)

// appleEpoch is 2001-01-01T00:00:00Z, the zero point for chat.db dates.
const appleEpoch = 978307200

// nanosecondFloor: date values whose magnitude exceeds this are stored with
// nanosecond precision (newer schema versions), otherwise seconds.
const nanosecondFloor = int64(1e12)

// AppleTime converts a raw chat.db date column to a local-time instant.
// NULL dates fall back to now so a malformed row never aborts assembly.
func AppleTime(raw sql.NullInt64) time.Time {
	if !raw.Valid {
		return time.Now()
	}
	ts := raw.Int64
	if ts > nanosecondFloor || ts < -nanosecondFloor {
		ts /= int64(time.Second)
	}
	return time.Unix(ts+appleEpoch, 0)
}
