package chatdb

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// nsStringMarker precedes the embedded string payload in an attributedBody
// blob. The layout after it: 5 header bytes, then a length indicator, then
// the UTF-8 payload.
var nsStringMarker = []byte("NSString")

const (
	markerHeaderLen = 5
	// longLengthSentinel flags a two-byte little-endian length instead of
	// the single-byte form (payloads longer than 128 bytes).
	longLengthSentinel = 0x81
)

// ParseAttributedBody extracts message text from an attributedBody blob.
// Blobs without the marker, and truncated or corrupt blobs, yield "" so the
// surrounding row always survives.
func ParseAttributedBody(blob []byte) string {
	idx := bytes.Index(blob, nsStringMarker)
	if idx < 0 {
		return ""
	}
	after := blob[idx+len(nsStringMarker):]
	if len(after) < markerHeaderLen+1 {
		return ""
	}
	data := after[markerHeaderLen:]

	length := int(data[0])
	start := 1
	if data[0] == longLengthSentinel {
		if len(data) < 3 {
			return ""
		}
		length = int(data[1]) | int(data[2])<<8
		start = 3
	}
	if start+length > len(data) {
		return ""
	}
	return strings.ToValidUTF8(string(data[start:start+length]), string(utf8.RuneError))
}
