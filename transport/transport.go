// Package transport delivers reminder batches to the outbound channel. The
// engine only supplies structured content; rendering into chat messages is
// the receiving side's concern. Delivery failures are logged by the caller
// and never retried across ticks or allowed to roll back engine state.
package transport

import (
	"context"
	"log/slog"

	"agenda-notifier/pkg/agenda"
)

// Provider defines the interface for delivery backends.
type Provider interface {
	// Deliver sends one tenant's consolidated reminder batch.
	Deliver(ctx context.Context, tenantID string, batch *agenda.Batch) error
}

// Sender hands reminder batches to a pluggable provider.
type Sender struct {
	provider Provider
	logger   *slog.Logger
}

// New creates a sender with the given provider.
func New(provider Provider, logger *slog.Logger) *Sender {
	return &Sender{
		provider: provider,
		logger:   logger,
	}
}

// Notify delivers a batch. Empty batches are dropped silently.
func (s *Sender) Notify(ctx context.Context, tenantID string, batch *agenda.Batch) error {
	if batch.Empty() {
		return nil
	}

	items := 0
	for _, g := range batch.Groups {
		items += len(g.Items)
	}
	s.logger.Info("Sending reminder batch",
		"tenant_id", tenantID,
		"group_count", len(batch.Groups),
		"item_count", items)

	return s.provider.Deliver(ctx, tenantID, batch)
}
