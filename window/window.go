// Package window implements the pure calendar predicates that gate reminder
// categories. Every function takes "now" explicitly and holds no state; the
// caller is responsible for sourcing now and deadlines from the same civil
// timezone.
package window

import (
	"fmt"
	"strings"
	"time"

	"agenda-notifier/pkg/agenda"
)

// EffectiveDeadline returns the instant an activity actually expires. An
// activity without a time-of-day covers its whole civil day, so the cutoff
// is the last nanosecond of that day.
func EffectiveDeadline(a *agenda.Activity) time.Time {
	if a.HasTime {
		return a.Deadline
	}
	y, m, d := a.Deadline.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, a.Deadline.Location()).Add(-time.Nanosecond)
}

// IsPassed reports whether now is strictly past the effective deadline.
func IsPassed(now time.Time, a *agenda.Activity) bool {
	return now.After(EffectiveDeadline(a))
}

// IsToday reports whether the deadline falls on now's calendar day.
func IsToday(now time.Time, a *agenda.Activity) bool {
	return sameDay(now, a.Deadline)
}

// IsTomorrow reports whether the deadline falls on the day after now.
func IsTomorrow(now time.Time, a *agenda.Activity) bool {
	return sameDay(now.AddDate(0, 0, 1), a.Deadline)
}

// IsInTwoDays reports whether the deadline falls two days after now.
func IsInTwoDays(now time.Time, a *agenda.Activity) bool {
	return sameDay(now.AddDate(0, 0, 2), a.Deadline)
}

// IsThisWeek reports whether the deadline falls inside the current ISO week
// (Monday start), excluding Sunday deadlines. Activities created during the
// current week are exempt: whoever registered a same-week deadline already
// knows about it.
func IsThisWeek(now time.Time, a *agenda.Activity) bool {
	if a.Deadline.Weekday() == time.Sunday {
		return false
	}
	if !sameISOWeek(now, a.Deadline) {
		return false
	}
	return !sameISOWeek(now, a.CreatedAt)
}

// IsNextWeek reports whether the deadline falls inside the ISO week
// immediately following the current one.
func IsNextWeek(now time.Time, a *agenda.Activity) bool {
	return sameISOWeek(now.AddDate(0, 0, 7), a.Deadline)
}

// Countdown renders the time remaining until the deadline as a short human
// string for the external renderer.
func Countdown(now time.Time, a *agenda.Activity) string {
	if IsPassed(now, a) {
		if sameDay(now, a.Deadline) {
			return "TODAY (PASSED)"
		}
		return "PASSED"
	}

	if sameDay(now, a.Deadline) {
		if !a.HasTime {
			return "TODAY"
		}
		left := a.Deadline.Sub(now)
		hours := int(left.Hours())
		minutes := int(left.Minutes()) % 60
		var parts []string
		if hours > 0 {
			parts = append(parts, fmt.Sprintf("%dh", hours))
		}
		if minutes > 0 {
			parts = append(parts, fmt.Sprintf("%dm", minutes))
		}
		if len(parts) == 0 {
			return "< 1m left"
		}
		return strings.Join(parts, " ") + " left"
	}

	if IsTomorrow(now, a) {
		return "TOMORROW"
	}

	left := a.Deadline.Sub(now)
	days := int(left.Hours()) / 24
	hours := int(left.Hours()) % 24
	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if len(parts) == 0 {
		return "< 1m left"
	}
	return strings.Join(parts, " ") + " left"
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sameISOWeek(a, b time.Time) bool {
	ay, aw := a.ISOWeek()
	by, bw := b.ISOWeek()
	return ay == by && aw == bw
}
