// Package bootstrap seeds tenant stores on first contact, optionally
// migrating the legacy single-tenant snapshot into them.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"agenda-notifier/clock"
	"agenda-notifier/pkg/agenda"
)

// Store is the subset of persistence the bootstrapper needs.
type Store interface {
	LoadTenant(ctx context.Context, tenantID string) (*agenda.TenantState, error)
	SaveTenant(ctx context.Context, state *agenda.TenantState) error
	LegacySnapshot(ctx context.Context) ([]*agenda.Activity, error)
}

// IsNotFound reports whether a load error means "tenant never saved".
type IsNotFound func(error) bool

// Bootstrapper creates tenant state on first contact. The legacy snapshot is
// read at most once per process and cached; every migrating tenant receives
// its own deep copy, so no structure is shared between tenants.
type Bootstrapper struct {
	store      Store
	clock      clock.Clock
	logger     *slog.Logger
	isNotFound IsNotFound
	migrate    bool

	legacyOnce sync.Once
	legacy     []*agenda.Activity
	legacyErr  error
}

// New creates a bootstrapper. When migrate is false new tenants start empty.
func New(store Store, clk clock.Clock, migrate bool, isNotFound IsNotFound, logger *slog.Logger) *Bootstrapper {
	return &Bootstrapper{
		store:      store,
		clock:      clk,
		logger:     logger,
		isNotFound: isNotFound,
		migrate:    migrate,
	}
}

// Ensure returns the tenant's state, creating and persisting it on first
// contact.
func (b *Bootstrapper) Ensure(ctx context.Context, tenantID string) (*agenda.TenantState, error) {
	state, err := b.store.LoadTenant(ctx, tenantID)
	if err == nil {
		return state, nil
	}
	if !b.isNotFound(err) {
		return nil, fmt.Errorf("load tenant: %w", err)
	}

	now := b.clock.Now()
	state = &agenda.TenantState{TenantID: tenantID, LastUpdated: now}

	if b.migrate {
		legacy, err := b.legacySnapshot(ctx)
		if err != nil {
			b.logger.Warn("Legacy snapshot unavailable, seeding empty tenant",
				"tenant_id", tenantID, "error", err)
		}
		for _, src := range legacy {
			cp := src.Clone()
			cp.ID = uuid.NewString()
			cp.ResetNotifications()
			cp.MigratedFrom = src.ID
			cp.MigratedAt = now
			state.Activities = append(state.Activities, cp)
		}
	}

	if err := b.store.SaveTenant(ctx, state); err != nil {
		return nil, fmt.Errorf("save tenant: %w", err)
	}

	b.logger.Info("Tenant bootstrapped",
		"tenant_id", tenantID,
		"migrated", b.migrate,
		"activity_count", len(state.Activities))
	return state, nil
}

func (b *Bootstrapper) legacySnapshot(ctx context.Context) ([]*agenda.Activity, error) {
	b.legacyOnce.Do(func() {
		b.legacy, b.legacyErr = b.store.LegacySnapshot(ctx)
	})
	return b.legacy, b.legacyErr
}
