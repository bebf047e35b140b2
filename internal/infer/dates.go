package infer

import (
	"strings"
	"time"
)

// Layout order encodes day-before-month disambiguation: DMY layouts sit
// ahead of their MDY twins, so an ambiguous "03/04/2024" resolves as 3 April.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.000Z07:00",
	"02.01.2006 15:04:05",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"02-01-2006",
	"01/02/2006",
	"2006/01/02",
}

// parseTimestampLoose accepts both full timestamps and bare dates, trying
// the more specific layouts first.
func parseTimestampLoose(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, lay := range timestampLayouts {
		if t, err := time.Parse(lay, s); err == nil {
			return t, true
		}
	}
	for _, lay := range dateLayouts {
		if t, err := time.Parse(lay, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseBoolLoose maps normalized truthy/falsy spellings onto booleans.
// The second result reports whether the value landed in either set.
func parseBoolLoose(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y":
		return true, true
	case "false", "0", "no", "n":
		return false, true
	default:
		return false, false
	}
}
