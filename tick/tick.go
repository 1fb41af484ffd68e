// Package tick drives the periodic evaluation cycle across all tenants.
//
// One tick loads each tenant in turn, runs the notification state machine
// over its activities, hands any fired reminders to the transport, and
// persists the mutated snapshot with ended activities removed.
package tick

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"agenda-notifier/clock"
	"agenda-notifier/pkg/agenda"
	"agenda-notifier/remind"
	"agenda-notifier/window"
)

const deliveryTimeout = 30 * time.Second

// Store is the subset of tenant persistence the orchestrator needs.
type Store interface {
	ListTenants(ctx context.Context) ([]string, error)
	LoadTenant(ctx context.Context, tenantID string) (*agenda.TenantState, error)
	SaveTenant(ctx context.Context, state *agenda.TenantState) error
}

// Transport delivers one tenant's consolidated reminder batch.
type Transport interface {
	Notify(ctx context.Context, tenantID string, batch *agenda.Batch) error
}

// Orchestrator runs the notification state machine over every tenant.
// Tenants are processed sequentially within a tick so that evaluate-then-save
// is atomic with respect to that tenant's next read; only delivery happens
// off the tick goroutine.
type Orchestrator struct {
	store     Store
	transport Transport
	clock     clock.Clock
	logger    *slog.Logger
	cfg       remind.Config
	running   atomic.Bool // guards against overlapping ticks
}

// New creates an orchestrator.
func New(store Store, transport Transport, clk clock.Clock, cfg remind.Config, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		transport: transport,
		clock:     clk,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run executes ticks at the given cadence until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) {
	o.logger.Info("Tick loop started", "interval", interval.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("Tick loop stopped", "error", ctx.Err())
			return
		case <-ticker.C:
			if err := o.Tick(ctx); err != nil {
				o.logger.Error("Tick failed", "error", err)
			}
		}
	}
}

// Tick runs one evaluation cycle across all tenants. A tick that begins
// while a previous one is still in flight is skipped entirely; running the
// same cycle twice concurrently could double-fire reminders.
func (o *Orchestrator) Tick(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		o.logger.Warn("Previous tick still in progress, skipping")
		return nil
	}
	defer o.running.Store(false)

	tenants, err := o.store.ListTenants(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	now := o.clock.Now()
	o.logger.Info("Tick started", "tenant_count", len(tenants), "now", now.Format(time.RFC3339))

	var deliveries sync.WaitGroup
	var failed int
	for _, tenantID := range tenants {
		select {
		case <-ctx.Done():
			deliveries.Wait()
			o.logger.Info("Context cancelled, stopping tick", "error", ctx.Err())
			return ctx.Err()
		default:
		}

		if err := o.checkTenant(ctx, now, tenantID, &deliveries); err != nil {
			// One tenant's failure must not abort the others.
			o.logger.Warn("Tenant check failed", "tenant_id", tenantID, "error", err)
			failed++
		}
	}
	deliveries.Wait()

	o.logger.Info("Tick completed", "tenant_count", len(tenants), "failed", failed)
	return nil
}

func (o *Orchestrator) checkTenant(ctx context.Context, now time.Time, tenantID string, deliveries *sync.WaitGroup) error {
	state, err := o.store.LoadTenant(ctx, tenantID)
	if err != nil {
		// An unreadable tenant is treated as empty this tick; nothing fires
		// and nothing is persisted, so the next tick retries naturally.
		return fmt.Errorf("load tenant: %w", err)
	}

	fired := make(map[agenda.Trigger][]agenda.Item)
	changed := false
	for _, act := range state.Activities {
		triggers, mutated := remind.Evaluate(o.cfg, now, act)
		changed = changed || mutated
		for _, t := range triggers {
			fired[t] = append(fired[t], agenda.Item{
				Name:      act.DisplayName(),
				Subject:   act.Subject,
				Deadline:  act.Deadline,
				HasTime:   act.HasTime,
				DueLabel:  act.DeadlineLabel(),
				Countdown: window.Countdown(now, act),
			})
		}
	}

	batch := &agenda.Batch{TenantID: tenantID}
	for _, t := range agenda.Triggers {
		if items := fired[t]; len(items) > 0 {
			batch.Groups = append(batch.Groups, agenda.Group{Trigger: t, Items: items})
		}
	}

	// Delivery is fire-and-forget: the flag mutations below are decided and
	// persisted regardless of whether the send succeeds. A lost message is
	// acceptable; a re-fired reminder is not.
	if !batch.Empty() {
		deliveries.Add(1)
		go func() {
			defer deliveries.Done()
			sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
			defer cancel()
			if err := o.transport.Notify(sendCtx, tenantID, batch); err != nil {
				o.logger.Warn("Reminder delivery failed", "tenant_id", tenantID, "error", err)
			}
		}()
	}

	if changed {
		kept := state.Activities[:0]
		for _, act := range state.Activities {
			if !act.Ended {
				kept = append(kept, act)
			}
		}
		state.Activities = kept
		state.LastUpdated = now
		if err := o.store.SaveTenant(ctx, state); err != nil {
			// Flags were not persisted; the same triggers fire again next
			// tick, which is the intended recovery path.
			return fmt.Errorf("save tenant: %w", err)
		}
	}

	return nil
}
