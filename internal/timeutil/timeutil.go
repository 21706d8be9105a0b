package timeutil

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Layouts accepted for incoming timestamps. Callers send anything from full
// RFC3339 down to a bare date, so try from most to least specific.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an arbitrary date-like string into a time.Time.
func ParseTimestamp(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}

// NormalizeTimestamp parses an arbitrary date-like string and returns it as
// an RFC3339 UTC string.
func NormalizeTimestamp(value string) (string, error) {
	t, err := ParseTimestamp(value)
	if err != nil {
		return "", err
	}
	return t.UTC().Format(time.RFC3339), nil
}

var tzAliases = map[string]string{
	"vancouver":      "America/Vancouver",
	"vancouver time": "America/Vancouver",
	"pacific":        "America/Los_Angeles",
	"pacific time":   "America/Los_Angeles",
	"pst":            "America/Los_Angeles",
	"pdt":            "America/Los_Angeles",
	"los angeles":    "America/Los_Angeles",
	"la":             "America/Los_Angeles",
	"pt":             "America/Los_Angeles",
}

var (
	ianaZonePattern  = regexp.MustCompile(`^[A-Za-z_]+/[A-Za-z_]+(?:/[A-Za-z_]+)?$`)
	utcOffsetPattern = regexp.MustCompile(`^[+-]\d{2}:?\d{2}$`)
)

// NormalizeTimeZone maps free-form timezone input to an IANA zone. It never
// fails: aliases resolve to canonical zones, Area/City strings pass through
// unchanged, and anything else (including bare UTC offsets) falls back to def.
func NormalizeTimeZone(input, def string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return def
	}
	s := strings.ToLower(trimmed)
	if zone, ok := tzAliases[s]; ok {
		return zone
	}
	if ianaZonePattern.MatchString(trimmed) {
		return trimmed
	}
	if utcOffsetPattern.MatchString(s) {
		// Offsets are ambiguous across DST; use the configured zone instead.
		return def
	}
	if strings.Contains(s, "vancouver") {
		return "America/Vancouver"
	}
	if strings.Contains(s, "pacific") {
		return "America/Los_Angeles"
	}
	return def
}

const maxHoldTagLen = 200

// DeriveHoldTag builds a deterministic tracking tag for a hold from its time
// range and requester identity. The tag is informational only and is never
// used as the provider event id; base64url keeps it safe for private
// extended-property values.
func DeriveHoldTag(start, end, identifier string) string {
	raw := start + "|" + end + "|" + identifier
	encoded := base64.RawURLEncoding.EncodeToString([]byte(raw))
	if len(encoded) > maxHoldTagLen {
		encoded = encoded[:maxHoldTagLen]
	}
	return "hold_" + encoded
}
