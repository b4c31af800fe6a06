package chatdb

import (
	"database/sql"
	"testing"
	"time"
)

func TestAppleTimeSeconds(t *testing.T) {
	// Apple epoch itself.
	got := AppleTime(sql.NullInt64{Int64: 0, Valid: true})
	want := time.Unix(appleEpoch, 0)
	if !got.Equal(want) {
		t.Errorf("AppleTime(0) = %v, want %v", got, want)
	}

	// 2023-ish, stored in seconds.
	got = AppleTime(sql.NullInt64{Int64: 700000000, Valid: true})
	want = time.Unix(700000000+appleEpoch, 0)
	if !got.Equal(want) {
		t.Errorf("AppleTime(700000000) = %v, want %v", got, want)
	}
}

func TestAppleTimeScaleInvariance(t *testing.T) {
	// The same instant stored in seconds and in nanoseconds must decode
	// identically.
	const raw = int64(700000000)
	seconds := AppleTime(sql.NullInt64{Int64: raw, Valid: true})
	nanos := AppleTime(sql.NullInt64{Int64: raw * int64(time.Second), Valid: true})
	if !seconds.Equal(nanos) {
		t.Errorf("seconds form %v != nanoseconds form %v", seconds, nanos)
	}
}

func TestAppleTimeNull(t *testing.T) {
	before := time.Now().Add(-time.Minute)
	got := AppleTime(sql.NullInt64{})
	after := time.Now().Add(time.Minute)
	if got.Before(before) || got.After(after) {
		t.Errorf("AppleTime(NULL) = %v, want roughly now", got)
	}
}
