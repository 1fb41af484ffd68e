package transport

import (
	"context"
	"log/slog"

	"agenda-notifier/pkg/agenda"
)

// MockProvider logs batches instead of delivering them, for local
// development.
type MockProvider struct {
	logger *slog.Logger
}

// NewMockProvider creates a new mock provider.
func NewMockProvider(logger *slog.Logger) *MockProvider {
	return &MockProvider{
		logger: logger,
	}
}

// Deliver logs the batch.
func (m *MockProvider) Deliver(ctx context.Context, tenantID string, batch *agenda.Batch) error {
	for _, group := range batch.Groups {
		for _, item := range group.Items {
			m.logger.Info("MOCK NOTIFICATION",
				"tenant_id", tenantID,
				"trigger", group.Trigger,
				"activity", item.Name,
				"subject", item.Subject,
				"countdown", item.Countdown)
		}
	}
	return nil
}
