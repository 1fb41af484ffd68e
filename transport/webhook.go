package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"agenda-notifier/pkg/agenda"
)

// WebhookProvider posts reminder batches as JSON to a chat relay endpoint.
type WebhookProvider struct {
	endpoint  string
	authToken string
	client    *http.Client
	logger    *slog.Logger
}

// NewWebhookProvider creates a webhook provider. authToken is optional; when
// set it is sent as a bearer token.
func NewWebhookProvider(endpoint, authToken string, logger *slog.Logger) *WebhookProvider {
	return &WebhookProvider{
		endpoint:  endpoint,
		authToken: authToken,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
	}
}

// webhookEnvelope is the wire format the chat relay receives.
type webhookEnvelope struct {
	TenantID string         `json:"tenant_id"`
	SentAt   time.Time      `json:"sent_at"`
	Groups   []agenda.Group `json:"groups"`
}

// Deliver sends a batch to the relay endpoint.
func (p *WebhookProvider) Deliver(ctx context.Context, tenantID string, batch *agenda.Batch) error {
	jsonData, err := json.Marshal(webhookEnvelope{
		TenantID: tenantID,
		SentAt:   time.Now().UTC(),
		Groups:   batch.Groups,
	})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	return retry.Do(
		func() error {
			p.logger.Info("Webhook request starting",
				"method", "POST",
				"endpoint", p.endpoint,
				"tenant_id", tenantID,
				"group_count", len(batch.Groups))

			startTime := time.Now()
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(jsonData))
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}

			req.Header.Set("Content-Type", "application/json")
			if p.authToken != "" {
				req.Header.Set("Authorization", "Bearer "+p.authToken)
			}

			resp, err := p.client.Do(req)
			duration := time.Since(startTime)

			if err != nil {
				p.logger.Warn("Webhook request failed, will retry",
					"tenant_id", tenantID,
					"duration_ms", duration.Milliseconds(),
					"error", err)
				return err
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					p.logger.Warn("Failed to close response body", "error", closeErr)
				}
			}()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				p.logger.Warn("Webhook returned non-2xx status, will retry",
					"status_code", resp.StatusCode,
					"tenant_id", tenantID)
				return fmt.Errorf("HTTP %d", resp.StatusCode)
			}

			p.logger.Info("Webhook request completed",
				"endpoint", p.endpoint,
				"tenant_id", tenantID,
				"duration_ms", duration.Milliseconds(),
				"status", "success")

			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Info("Retrying webhook delivery after error", "attempt", n, "error", err)
		}),
	)
}
