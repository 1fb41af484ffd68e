// Package remind implements the per-activity notification state machine.
// Each reminder category is gated by a window predicate, a wall-clock gate,
// and a one-shot flag; a category fires at most once per activity lifetime
// no matter how many ticks land inside its window.
package remind

import (
	"time"

	"agenda-notifier/pkg/agenda"
	"agenda-notifier/window"
)

// Config carries the wall-clock gates and the pre-deadline band. Gates
// compare against the civil hour and minute of "now", not elapsed time, so
// a tick delayed within the gate minute still fires.
type Config struct {
	MorningHour int           // gate hour for next-week/this-week/2-days/tomorrow
	TodayHour   int           // gate hour for the day-of reminder
	BandMin     time.Duration // lower bound of the pre-deadline band
	BandMax     time.Duration // upper bound; wider than the nominal 30m to tolerate tick drift
}

// DefaultConfig returns the production gates: 08:00 for the lookahead
// reminders, 07:00 for day-of, and a 28-31 minute pre-deadline band.
func DefaultConfig() Config {
	return Config{
		MorningHour: 8,
		TodayHour:   7,
		BandMin:     28 * time.Minute,
		BandMax:     31 * time.Minute,
	}
}

// Evaluate runs every trigger for one activity against now. It sets the
// one-shot flags for the triggers that newly fire and returns them in
// evaluation order. changed is true when any flag was set this call;
// evaluating the same activity twice at the same instant fires nothing the
// second time.
func Evaluate(cfg Config, now time.Time, a *agenda.Activity) (fired []agenda.Trigger, changed bool) {
	if a.Ended {
		return nil, false
	}

	morningGate := now.Hour() == cfg.MorningHour && now.Minute() == 0
	todayGate := now.Hour() == cfg.TodayHour && now.Minute() == 0
	weekday := now.Weekday()

	mark := func(t agenda.Trigger) {
		a.MarkNotified(t)
		fired = append(fired, t)
		changed = true
	}

	if !a.NotifiedNextWeek && morningGate &&
		(weekday == time.Friday || weekday == time.Saturday) &&
		window.IsNextWeek(now, a) {
		mark(agenda.TriggerNextWeek)
	}

	if !a.NotifiedThisWeek && morningGate && weekday == time.Sunday &&
		window.IsThisWeek(now, a) {
		mark(agenda.TriggerThisWeek)
	}

	if !a.Notified2Days && morningGate && window.IsInTwoDays(now, a) {
		mark(agenda.TriggerTwoDays)
	}

	if !a.NotifiedTomorrow && morningGate && window.IsTomorrow(now, a) {
		mark(agenda.TriggerTomorrow)
	}

	if !a.NotifiedToday && todayGate && window.IsToday(now, a) {
		mark(agenda.TriggerToday)
	}

	if !a.Notified30Min && a.HasTime {
		left := a.Deadline.Sub(now)
		if left >= cfg.BandMin && left <= cfg.BandMax {
			mark(agenda.TriggerThirtyMin)
		}
	}

	if !a.NotifiedEnded && window.IsPassed(now, a) {
		// MarkNotified also flips Ended; the activity is dropped from the
		// next persisted snapshot by the orchestrator.
		mark(agenda.TriggerEnded)
	}

	return fired, changed
}
