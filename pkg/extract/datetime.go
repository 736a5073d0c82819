package extract

import (
	"strconv"
	"strings"
	"time"
)

// CanonicalTime is the normalized layout capture times are stored in.
// It sorts lexicographically and the year is a fixed-width prefix.
const CanonicalTime = "2006-01-02 15:04:05"

// takenLayouts are the source encodings we accept, most common first:
// the EXIF colon-separated form, ISO-ish variants, and a couple of
// locale forms seen in rewritten metadata.
var takenLayouts = []string{
	"2006:01:02 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006:01:02 15:04:05-07:00",
	"01/02/2006 15:04:05",
	"2006:01:02",
	"2006-01-02",
}

// ParseTaken normalizes a capture-time string to CanonicalTime.
// Returns "" when no accepted layout matches.
func ParseTaken(s string) string {
	s = strings.TrimSpace(strings.Trim(s, "\x00"))
	if s == "" {
		return ""
	}
	for _, layout := range takenLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(CanonicalTime)
		}
	}
	return ""
}

// FormatTaken renders a wall-clock time in the canonical layout.
func FormatTaken(t time.Time) string {
	return t.Format(CanonicalTime)
}

// Year extracts the capture year from a canonical time string,
// or 0 when the string is empty or mangled.
func Year(canonical string) int {
	if len(canonical) < 4 {
		return 0
	}
	y, err := strconv.Atoi(canonical[:4])
	if err != nil {
		return 0
	}
	return y
}
