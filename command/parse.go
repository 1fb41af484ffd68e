package command

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var dateRe = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)

// Accepted time-of-day notations: 12-hour with optional space, bare hour,
// and 24-hour.
var clockLayouts = []string{"3:04PM", "3:04 PM", "15:04", "3PM", "3 PM"}

// findDateIndex returns the position of the first MM/DD/YYYY-shaped token,
// or -1 when none exists.
func findDateIndex(args []string) int {
	for i, arg := range args {
		if dateRe.MatchString(arg) {
			return i
		}
	}
	return -1
}

// ParseDeadline parses an MM/DD/YYYY date and an optional time-of-day into
// an absolute instant in loc. hasTime reports whether a time was given; a
// date-only deadline covers its whole civil day.
func ParseDeadline(dateStr, timeStr string, loc *time.Location) (deadline time.Time, hasTime bool, err error) {
	if !dateRe.MatchString(dateStr) {
		return time.Time{}, false, fmt.Errorf("%w: %q", ErrInvalidDate, dateStr)
	}
	day, err := time.ParseInLocation("1/2/2006", dateStr, loc)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %q", ErrInvalidDate, dateStr)
	}

	if timeStr == "" {
		return day, false, nil
	}

	tod, err := parseClock(timeStr)
	if err != nil {
		return time.Time{}, false, err
	}
	deadline = time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), 0, 0, loc)
	return deadline, true, nil
}

func parseClock(timeStr string) (time.Time, error) {
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, timeStr); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, timeStr)
}

// resolveSubject matches a raw subject string against the registered set,
// case-insensitively, returning the canonical registered spelling.
func resolveSubject(raw string, subjects []string) (string, bool) {
	for _, s := range subjects {
		if strings.EqualFold(s, raw) {
			return s, true
		}
	}
	return "", false
}
