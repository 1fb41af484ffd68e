// Package agenda contains the core domain types for the deadline reminder service.
package agenda

import (
	"strings"
	"time"
)

// Trigger identifies one reminder category. Categories are independent facts,
// not exclusive states: a single activity may fire several in one tick.
type Trigger string

const (
	TriggerNextWeek  Trigger = "next_week"
	TriggerThisWeek  Trigger = "this_week"
	TriggerTwoDays   Trigger = "two_days"
	TriggerTomorrow  Trigger = "tomorrow"
	TriggerToday     Trigger = "today"
	TriggerThirtyMin Trigger = "thirty_minutes"
	TriggerEnded     Trigger = "ended"
)

// Triggers lists every reminder category in evaluation order.
var Triggers = []Trigger{
	TriggerNextWeek,
	TriggerThisWeek,
	TriggerTwoDays,
	TriggerTomorrow,
	TriggerToday,
	TriggerThirtyMin,
	TriggerEnded,
}

// Activity is a deadline-bound unit of work owned by a single tenant.
type Activity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"` // underscores render as spaces for display
	Subject   string    `json:"subject"`
	Deadline  time.Time `json:"deadline"`
	HasTime   bool      `json:"has_time"` // false: deadline covers the whole civil day
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by"`

	Extended   bool      `json:"extended,omitempty"`
	ExtendedBy string    `json:"extended_by,omitempty"`
	ExtendedAt time.Time `json:"extended_at,omitzero"`

	MigratedFrom string    `json:"migrated_from,omitempty"` // legacy activity ID
	MigratedAt   time.Time `json:"migrated_at,omitzero"`

	// One-shot notification flags. Each moves false->true exactly once and
	// is never reset, not even when the deadline is extended.
	NotifiedNextWeek bool `json:"notified_next_week"`
	NotifiedThisWeek bool `json:"notified_this_week"`
	Notified2Days    bool `json:"notified_2_days"`
	NotifiedTomorrow bool `json:"notified_tomorrow"`
	NotifiedToday    bool `json:"notified_today"`
	Notified30Min    bool `json:"notified_30_min"`
	NotifiedEnded    bool `json:"notified_ended"`

	// Ended marks the activity terminal. Ended activities are dropped from
	// the next persisted snapshot.
	Ended bool `json:"ended"`
}

// Notified reports whether the one-shot flag for the given trigger is set.
func (a *Activity) Notified(t Trigger) bool {
	switch t {
	case TriggerNextWeek:
		return a.NotifiedNextWeek
	case TriggerThisWeek:
		return a.NotifiedThisWeek
	case TriggerTwoDays:
		return a.Notified2Days
	case TriggerTomorrow:
		return a.NotifiedTomorrow
	case TriggerToday:
		return a.NotifiedToday
	case TriggerThirtyMin:
		return a.Notified30Min
	case TriggerEnded:
		return a.NotifiedEnded
	default:
		return false
	}
}

// MarkNotified sets the one-shot flag for the given trigger. Marking an
// already-set flag is a no-op. TriggerEnded also marks the activity terminal.
func (a *Activity) MarkNotified(t Trigger) {
	switch t {
	case TriggerNextWeek:
		a.NotifiedNextWeek = true
	case TriggerThisWeek:
		a.NotifiedThisWeek = true
	case TriggerTwoDays:
		a.Notified2Days = true
	case TriggerTomorrow:
		a.NotifiedTomorrow = true
	case TriggerToday:
		a.NotifiedToday = true
	case TriggerThirtyMin:
		a.Notified30Min = true
	case TriggerEnded:
		a.NotifiedEnded = true
		a.Ended = true
	}
}

// ResetNotifications clears every notification flag and the terminal marker.
// Used only when seeding a fresh copy during tenant migration.
func (a *Activity) ResetNotifications() {
	a.NotifiedNextWeek = false
	a.NotifiedThisWeek = false
	a.Notified2Days = false
	a.NotifiedTomorrow = false
	a.NotifiedToday = false
	a.Notified30Min = false
	a.NotifiedEnded = false
	a.Ended = false
}

// Clone returns an independent copy of the activity.
func (a *Activity) Clone() *Activity {
	cp := *a
	return &cp
}

// DisplayName renders the activity name with underscores as spaces.
func (a *Activity) DisplayName() string {
	return strings.ReplaceAll(a.Name, "_", " ")
}

// DeadlineLabel formats the deadline for human rendering, including the
// time-of-day only when one was given.
func (a *Activity) DeadlineLabel() string {
	label := a.Deadline.Format("January 2, 2006")
	if a.HasTime {
		label += " at " + a.Deadline.Format("3:04 PM")
	}
	return label
}

// TenantState is one tenant's persisted activity collection.
type TenantState struct {
	TenantID    string      `json:"tenant_id"`
	LastUpdated time.Time   `json:"last_updated"`
	Activities  []*Activity `json:"activities"`
}

// Item is the per-activity content of an outbound notification. Items are
// value snapshots: the transport never holds references into tenant state.
type Item struct {
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Deadline  time.Time `json:"deadline"`
	HasTime   bool      `json:"has_time"`
	DueLabel  string    `json:"due_label"`
	Countdown string    `json:"countdown"`
}

// Group collects the activities that fired one trigger in a tick.
type Group struct {
	Trigger Trigger `json:"trigger"`
	Items   []Item  `json:"items"`
}

// Batch is the consolidated reminder payload for one tenant for one tick.
type Batch struct {
	TenantID string  `json:"tenant_id"`
	Groups   []Group `json:"groups"`
}

// Empty reports whether the batch carries no notifications.
func (b *Batch) Empty() bool {
	return b == nil || len(b.Groups) == 0
}
