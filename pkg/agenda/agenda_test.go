package agenda

import (
	"testing"
	"time"
)

func TestNotifiedFlags(t *testing.T) {
	a := &Activity{}
	for _, trigger := range Triggers {
		if a.Notified(trigger) {
			t.Errorf("fresh activity reports %v notified", trigger)
		}
	}

	a.MarkNotified(TriggerTomorrow)
	if !a.Notified(TriggerTomorrow) {
		t.Error("tomorrow flag not set")
	}
	if a.Notified(TriggerToday) || a.Ended {
		t.Error("unrelated state mutated")
	}

	a.MarkNotified(TriggerEnded)
	if !a.NotifiedEnded || !a.Ended {
		t.Error("ended trigger must also mark the activity terminal")
	}

	a.ResetNotifications()
	for _, trigger := range Triggers {
		if a.Notified(trigger) {
			t.Errorf("%v still set after reset", trigger)
		}
	}
	if a.Ended {
		t.Error("terminal marker survived reset")
	}
}

func TestClone(t *testing.T) {
	a := &Activity{ID: "a1", Name: "quiz", NotifiedToday: true}
	cp := a.Clone()
	if cp == a {
		t.Fatal("Clone() returned the same pointer")
	}
	cp.NotifiedToday = false
	cp.Name = "other"
	if !a.NotifiedToday || a.Name != "quiz" {
		t.Error("mutating the clone changed the original")
	}
}

func TestDisplayName(t *testing.T) {
	a := &Activity{Name: "final_exam_review"}
	if got := a.DisplayName(); got != "final exam review" {
		t.Errorf("DisplayName() = %q", got)
	}
}

func TestDeadlineLabel(t *testing.T) {
	deadline := time.Date(2025, 11, 19, 14, 30, 0, 0, time.UTC)

	a := &Activity{Deadline: deadline, HasTime: true}
	if got := a.DeadlineLabel(); got != "November 19, 2025 at 2:30 PM" {
		t.Errorf("DeadlineLabel() = %q", got)
	}

	a.HasTime = false
	if got := a.DeadlineLabel(); got != "November 19, 2025" {
		t.Errorf("DeadlineLabel() = %q", got)
	}
}

func TestBatchEmpty(t *testing.T) {
	var nilBatch *Batch
	if !nilBatch.Empty() {
		t.Error("nil batch should be empty")
	}
	if !(&Batch{TenantID: "g"}).Empty() {
		t.Error("batch without groups should be empty")
	}
	b := &Batch{Groups: []Group{{Trigger: TriggerToday, Items: []Item{{Name: "quiz"}}}}}
	if b.Empty() {
		t.Error("populated batch reported empty")
	}
}
