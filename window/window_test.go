package window

import (
	"testing"
	"time"

	"agenda-notifier/pkg/agenda"
)

var manila = time.FixedZone("PST", 8*60*60)

func activityAt(deadline time.Time, hasTime bool) *agenda.Activity {
	return &agenda.Activity{
		Name:      "quiz",
		Subject:   "Math",
		Deadline:  deadline,
		HasTime:   hasTime,
		CreatedAt: deadline.AddDate(0, 0, -30),
	}
}

func TestEffectiveDeadline(t *testing.T) {
	tests := []struct {
		name string
		act  *agenda.Activity
		want time.Time
	}{
		{
			name: "with time passes through",
			act:  activityAt(time.Date(2025, 11, 19, 14, 30, 0, 0, manila), true),
			want: time.Date(2025, 11, 19, 14, 30, 0, 0, manila),
		},
		{
			name: "without time covers whole day",
			act:  activityAt(time.Date(2025, 11, 19, 0, 0, 0, 0, manila), false),
			want: time.Date(2025, 11, 20, 0, 0, 0, 0, manila).Add(-time.Nanosecond),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveDeadline(tt.act); !got.Equal(tt.want) {
				t.Errorf("EffectiveDeadline() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsPassed(t *testing.T) {
	deadline := time.Date(2025, 11, 19, 0, 0, 0, 0, manila)
	act := activityAt(deadline, false)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"morning of deadline day", time.Date(2025, 11, 19, 8, 0, 0, 0, manila), false},
		{"last instant of deadline day", time.Date(2025, 11, 20, 0, 0, 0, 0, manila).Add(-time.Nanosecond), false},
		{"start of next day", time.Date(2025, 11, 20, 0, 0, 0, 0, manila), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPassed(tt.now, act); got != tt.want {
				t.Errorf("IsPassed(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}

	timed := activityAt(time.Date(2025, 11, 19, 14, 0, 0, 0, manila), true)
	if IsPassed(time.Date(2025, 11, 19, 14, 0, 0, 0, manila), timed) {
		t.Error("IsPassed() at the exact deadline should be false")
	}
	if !IsPassed(time.Date(2025, 11, 19, 14, 0, 1, 0, manila), timed) {
		t.Error("IsPassed() one second past the deadline should be true")
	}
}

func TestDayWindows(t *testing.T) {
	// Friday morning.
	now := time.Date(2025, 11, 14, 8, 0, 0, 0, manila)

	tests := []struct {
		name         string
		deadline     time.Time
		wantToday    bool
		wantTomorrow bool
		wantTwoDays  bool
	}{
		{"same day", time.Date(2025, 11, 14, 23, 0, 0, 0, manila), true, false, false},
		{"next day", time.Date(2025, 11, 15, 0, 0, 0, 0, manila), false, true, false},
		{"two days out", time.Date(2025, 11, 16, 0, 0, 0, 0, manila), false, false, true},
		{"three days out", time.Date(2025, 11, 17, 0, 0, 0, 0, manila), false, false, false},
		{"yesterday", time.Date(2025, 11, 13, 0, 0, 0, 0, manila), false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act := activityAt(tt.deadline, false)
			if got := IsToday(now, act); got != tt.wantToday {
				t.Errorf("IsToday() = %v, want %v", got, tt.wantToday)
			}
			if got := IsTomorrow(now, act); got != tt.wantTomorrow {
				t.Errorf("IsTomorrow() = %v, want %v", got, tt.wantTomorrow)
			}
			if got := IsInTwoDays(now, act); got != tt.wantTwoDays {
				t.Errorf("IsInTwoDays() = %v, want %v", got, tt.wantTwoDays)
			}
		})
	}
}

func TestIsNextWeek(t *testing.T) {
	// Friday 2025-11-14, ISO week 46. Week 47 runs Mon 11-17 through Sun 11-23.
	now := time.Date(2025, 11, 14, 8, 0, 0, 0, manila)

	tests := []struct {
		name     string
		deadline time.Time
		want     bool
	}{
		{"wednesday of next week", time.Date(2025, 11, 19, 0, 0, 0, 0, manila), true},
		{"monday of next week", time.Date(2025, 11, 17, 0, 0, 0, 0, manila), true},
		{"sunday of next week", time.Date(2025, 11, 23, 0, 0, 0, 0, manila), true},
		{"same week", time.Date(2025, 11, 15, 0, 0, 0, 0, manila), false},
		{"two weeks out", time.Date(2025, 11, 24, 0, 0, 0, 0, manila), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNextWeek(now, activityAt(tt.deadline, false)); got != tt.want {
				t.Errorf("IsNextWeek() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsThisWeek(t *testing.T) {
	// Wednesday 2025-11-12, ISO week 46 (Mon 11-10 through Sun 11-16).
	now := time.Date(2025, 11, 12, 8, 0, 0, 0, manila)

	tests := []struct {
		name      string
		deadline  time.Time
		createdAt time.Time
		want      bool
	}{
		{
			name:      "friday deadline created last week",
			deadline:  time.Date(2025, 11, 14, 0, 0, 0, 0, manila),
			createdAt: time.Date(2025, 11, 5, 0, 0, 0, 0, manila),
			want:      true,
		},
		{
			name:      "friday deadline created this week",
			deadline:  time.Date(2025, 11, 14, 0, 0, 0, 0, manila),
			createdAt: time.Date(2025, 11, 10, 0, 0, 0, 0, manila),
			want:      false,
		},
		{
			name:      "sunday deadline excluded",
			deadline:  time.Date(2025, 11, 16, 0, 0, 0, 0, manila),
			createdAt: time.Date(2025, 11, 5, 0, 0, 0, 0, manila),
			want:      false,
		},
		{
			name:      "next week deadline",
			deadline:  time.Date(2025, 11, 19, 0, 0, 0, 0, manila),
			createdAt: time.Date(2025, 11, 5, 0, 0, 0, 0, manila),
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act := activityAt(tt.deadline, false)
			act.CreatedAt = tt.createdAt
			if got := IsThisWeek(now, act); got != tt.want {
				t.Errorf("IsThisWeek() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCountdown(t *testing.T) {
	now := time.Date(2025, 11, 14, 10, 0, 0, 0, manila)

	tests := []struct {
		name     string
		deadline time.Time
		hasTime  bool
		want     string
	}{
		{"hours and minutes left", time.Date(2025, 11, 14, 11, 59, 0, 0, manila), true, "1h 59m left"},
		{"whole hours left", time.Date(2025, 11, 14, 12, 0, 0, 0, manila), true, "2h left"},
		{"minutes only", time.Date(2025, 11, 14, 10, 45, 0, 0, manila), true, "45m left"},
		{"under a minute", time.Date(2025, 11, 14, 10, 0, 30, 0, manila), true, "< 1m left"},
		{"same day passed", time.Date(2025, 11, 14, 9, 0, 0, 0, manila), true, "TODAY (PASSED)"},
		{"previous day passed", time.Date(2025, 11, 13, 0, 0, 0, 0, manila), false, "PASSED"},
		{"all-day today", time.Date(2025, 11, 14, 0, 0, 0, 0, manila), false, "TODAY"},
		{"all-day tomorrow", time.Date(2025, 11, 15, 0, 0, 0, 0, manila), false, "TOMORROW"},
		{"days and hours left", time.Date(2025, 11, 17, 0, 0, 0, 0, manila), false, "2d 14h left"},
		{"timed two days out", time.Date(2025, 11, 16, 18, 0, 0, 0, manila), true, "2d 8h left"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Countdown(now, activityAt(tt.deadline, tt.hasTime)); got != tt.want {
				t.Errorf("Countdown() = %q, want %q", got, tt.want)
			}
		})
	}
}
