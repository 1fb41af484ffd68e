package tick

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"agenda-notifier/clock"
	"agenda-notifier/pkg/agenda"
	"agenda-notifier/remind"
)

var manila = time.FixedZone("PST", 8*60*60)

type fakeStore struct {
	mu      sync.Mutex
	tenants map[string]*agenda.TenantState
	loadErr map[string]error
	saveErr map[string]error
	saves   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tenants: map[string]*agenda.TenantState{},
		loadErr: map[string]error{},
		saveErr: map[string]error{},
	}
}

func (f *fakeStore) ListTenants(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.tenants))
	// Deterministic order keeps assertions simple.
	for _, id := range []string{"group-a", "group-b", "group-c"} {
		if _, ok := f.tenants[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeStore) LoadTenant(_ context.Context, tenantID string) (*agenda.TenantState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.loadErr[tenantID]; err != nil {
		return nil, err
	}
	return f.tenants[tenantID], nil
}

func (f *fakeStore) SaveTenant(_ context.Context, state *agenda.TenantState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.saveErr[state.TenantID]; err != nil {
		return err
	}
	f.saves = append(f.saves, state.TenantID)
	f.tenants[state.TenantID] = state
	return nil
}

type fakeTransport struct {
	mu      sync.Mutex
	batches []*agenda.Batch
}

func (f *fakeTransport) Notify(_ context.Context, _ string, batch *agenda.Batch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batch)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func activity(deadline time.Time, hasTime bool) *agenda.Activity {
	return &agenda.Activity{
		ID:        "act-1",
		Name:      "quiz_3",
		Subject:   "Math",
		Deadline:  deadline,
		HasTime:   hasTime,
		CreatedAt: deadline.AddDate(0, 0, -30),
	}
}

func TestTickFiresAndPersists(t *testing.T) {
	// Tuesday 08:00 with a deadline tomorrow.
	now := time.Date(2025, 11, 18, 8, 0, 0, 0, manila)
	store := newFakeStore()
	store.tenants["group-a"] = &agenda.TenantState{
		TenantID:   "group-a",
		Activities: []*agenda.Activity{activity(time.Date(2025, 11, 19, 0, 0, 0, 0, manila), false)},
	}
	transport := &fakeTransport{}

	o := New(store, transport, clock.Fixed{T: now}, remind.DefaultConfig(), testLogger())
	if err := o.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}

	if len(transport.batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(transport.batches))
	}
	batch := transport.batches[0]
	if batch.TenantID != "group-a" || len(batch.Groups) != 1 {
		t.Fatalf("batch = %+v, want one group for group-a", batch)
	}
	if batch.Groups[0].Trigger != agenda.TriggerTomorrow {
		t.Errorf("trigger = %v, want tomorrow", batch.Groups[0].Trigger)
	}
	if batch.Groups[0].Items[0].Name != "quiz 3" {
		t.Errorf("item name = %q, want display name with spaces", batch.Groups[0].Items[0].Name)
	}

	if len(store.saves) != 1 {
		t.Fatalf("got %d saves, want 1", len(store.saves))
	}
	if !store.tenants["group-a"].Activities[0].NotifiedTomorrow {
		t.Error("flag not persisted")
	}

	// Second tick at the same instant: flags suppress everything, nothing is
	// sent, nothing is saved.
	if err := o.Tick(context.Background()); err != nil {
		t.Fatalf("second Tick() error: %v", err)
	}
	if len(transport.batches) != 1 || len(store.saves) != 1 {
		t.Errorf("second tick re-fired: %d batches, %d saves", len(transport.batches), len(store.saves))
	}
}

func TestTickRemovesEndedActivities(t *testing.T) {
	now := time.Date(2025, 11, 20, 10, 0, 0, 0, manila)
	store := newFakeStore()
	store.tenants["group-a"] = &agenda.TenantState{
		TenantID: "group-a",
		Activities: []*agenda.Activity{
			activity(time.Date(2025, 11, 19, 0, 0, 0, 0, manila), false), // passed
			{
				ID: "act-2", Name: "essay", Subject: "History",
				Deadline:  time.Date(2025, 11, 28, 0, 0, 0, 0, manila),
				CreatedAt: now.AddDate(0, 0, -30),
			},
		},
	}
	transport := &fakeTransport{}

	o := New(store, transport, clock.Fixed{T: now}, remind.DefaultConfig(), testLogger())
	if err := o.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}

	if len(transport.batches) != 1 || transport.batches[0].Groups[0].Trigger != agenda.TriggerEnded {
		t.Fatalf("batches = %+v, want one ended group", transport.batches)
	}

	acts := store.tenants["group-a"].Activities
	if len(acts) != 1 || acts[0].ID != "act-2" {
		t.Errorf("persisted activities = %+v, want only act-2", acts)
	}
	if !store.tenants["group-a"].LastUpdated.Equal(now) {
		t.Errorf("LastUpdated = %v, want %v", store.tenants["group-a"].LastUpdated, now)
	}
}

func TestTickIsolatesTenantFailures(t *testing.T) {
	now := time.Date(2025, 11, 18, 8, 0, 0, 0, manila)
	store := newFakeStore()
	deadline := time.Date(2025, 11, 19, 0, 0, 0, 0, manila)
	for _, id := range []string{"group-a", "group-b", "group-c"} {
		store.tenants[id] = &agenda.TenantState{
			TenantID:   id,
			Activities: []*agenda.Activity{activity(deadline, false)},
		}
	}
	store.loadErr["group-a"] = errors.New("bucket unreachable")
	store.saveErr["group-b"] = errors.New("write denied")
	transport := &fakeTransport{}

	o := New(store, transport, clock.Fixed{T: now}, remind.DefaultConfig(), testLogger())
	if err := o.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}

	// group-b and group-c still evaluated and delivered; only group-c saved.
	if len(transport.batches) != 2 {
		t.Errorf("got %d batches, want 2", len(transport.batches))
	}
	if len(store.saves) != 1 || store.saves[0] != "group-c" {
		t.Errorf("saves = %v, want [group-c]", store.saves)
	}
}

func TestTickSkipsNoChangeTenants(t *testing.T) {
	// Mid-afternoon tick: nothing gates, nothing fires, nothing saved.
	now := time.Date(2025, 11, 14, 15, 30, 0, 0, manila)
	store := newFakeStore()
	store.tenants["group-a"] = &agenda.TenantState{
		TenantID:   "group-a",
		Activities: []*agenda.Activity{activity(time.Date(2025, 11, 19, 0, 0, 0, 0, manila), false)},
	}
	transport := &fakeTransport{}

	o := New(store, transport, clock.Fixed{T: now}, remind.DefaultConfig(), testLogger())
	if err := o.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}
	if len(transport.batches) != 0 || len(store.saves) != 0 {
		t.Errorf("idle tick produced %d batches, %d saves", len(transport.batches), len(store.saves))
	}
}

func TestTickOverlapGuard(t *testing.T) {
	store := newFakeStore()
	transport := &fakeTransport{}
	o := New(store, transport, clock.Fixed{T: time.Now()}, remind.DefaultConfig(), testLogger())

	// Simulate a tick still in flight.
	o.running.Store(true)
	if err := o.Tick(context.Background()); err != nil {
		t.Fatalf("overlapping Tick() error: %v", err)
	}
	if len(store.saves) != 0 {
		t.Error("skipped tick touched the store")
	}
	o.running.Store(false)

	if err := o.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() after release error: %v", err)
	}
}
