// Package main implements a Cloud Run service that tracks classroom deadlines
// per tenant and sends reminder notifications as they approach.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"agenda-notifier/bootstrap"
	"agenda-notifier/clock"
	"agenda-notifier/command"
	"agenda-notifier/config"
	"agenda-notifier/remind"
	"agenda-notifier/server"
	"agenda-notifier/storage"
	"agenda-notifier/tick"
	"agenda-notifier/transport"
)

func main() {
	ctx := context.Background()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()

	clk, err := clock.NewWall(cfg.Timezone)
	if err != nil {
		logger.Error("Invalid timezone", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	// Default to local development mode if no bucket specified
	localStorage := cfg.LocalStorage
	if cfg.StorageBucket == "" && localStorage == "" {
		localStorage = "./data"
		logger.Info("No STORAGE_BUCKET set, defaulting to local development mode", "storage_path", localStorage)
	}

	var store *storage.Store
	if localStorage != "" {
		logger.Info("Running in local development mode", "storage_path", localStorage)
		if err := os.MkdirAll(localStorage, 0o755); err != nil {
			logger.Error("Failed to create local storage directory", "error", err)
			os.Exit(1)
		}
		store = storage.New(nil, "", localStorage, clk.Location(), logger)
	} else {
		storageClient, err := gcs.NewClient(ctx)
		if err != nil {
			logger.Error("Failed to initialize Storage client", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := storageClient.Close(); err != nil {
				logger.Warn("Failed to close storage client", "error", err)
			}
		}()
		store = storage.New(storageClient, cfg.StorageBucket, "", clk.Location(), logger)
	}

	provider := selectProvider(ctx, cfg, logger)
	sender := transport.New(provider, logger)

	boot := bootstrap.New(store, clk, cfg.MigrateLegacy, storage.IsNotFound, logger)
	commands := command.New(store, boot, clk, cfg.AdminIDs, logger)

	reminderCfg := remind.Config{
		MorningHour: cfg.MorningHour,
		TodayHour:   cfg.TodayHour,
		BandMin:     cfg.BandMin,
		BandMax:     cfg.BandMax,
	}
	orchestrator := tick.New(store, sender, clk, reminderCfg, logger)
	go orchestrator.Run(ctx, cfg.TickInterval)

	srv := server.New(&server.Config{
		Commands: commands,
		Ticker:   orchestrator,
		Logger:   logger,
	})

	logger.Info("Starting HTTP server", "port", cfg.Port, "timezone", cfg.Timezone)
	if err := srv.ListenAndServe(cfg.Port); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// selectProvider picks a notification provider based on configuration. The
// webhook relay wins when configured; a Gmail digest is next; otherwise
// notifications are logged only.
func selectProvider(ctx context.Context, cfg config.Config, logger *slog.Logger) transport.Provider {
	if cfg.WebhookURL != "" {
		logger.Info("Using webhook notification provider", "endpoint", cfg.WebhookURL)
		return transport.NewWebhookProvider(cfg.WebhookURL, cfg.WebhookToken, logger)
	}

	if cfg.DigestTo != "" {
		gmailService, err := initGmailService(ctx)
		if err != nil {
			logger.Warn("Failed to initialize Gmail service, using mock notifications", "error", err)
			return transport.NewMockProvider(logger)
		}
		logger.Info("Using Gmail digest provider", "to", cfg.DigestTo)
		return transport.NewGmailProvider(gmailService, cfg.DigestTo, logger)
	}

	logger.Info("Mock notification mode enabled (no WEBHOOK_URL or DIGEST_TO)")
	return transport.NewMockProvider(logger)
}

// isCloudRun checks if we're running in a GCP environment by querying the metadata server.
func isCloudRun(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://metadata.google.internal/computeMetadata/v1/project/project-id", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Metadata-Flavor", "Google")

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	return resp.StatusCode == http.StatusOK
}

func initGmailService(ctx context.Context) (*gmail.Service, error) {
	// Try explicit credentials first (for local development or specific use cases)
	credsJSON := os.Getenv("GOOGLE_CREDENTIALS_JSON")
	if credsJSON != "" {
		return gmail.NewService(ctx, option.WithCredentialsJSON([]byte(credsJSON)))
	}

	// If running in Cloud Run, use Application Default Credentials (ADC)
	// The service account needs Gmail API access (gmail.send scope)
	if isCloudRun(ctx) {
		return gmail.NewService(ctx)
	}

	// Not in Cloud Run and no explicit credentials
	return nil, errors.New("GOOGLE_CREDENTIALS_JSON required when not running in Cloud Run")
}
