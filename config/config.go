// Package config centralises configuration parsing for the agenda notifier.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration values for the service.
type Config struct {
	Port          string
	Timezone      string        // IANA identifier; every window comparison happens in this zone
	TickInterval  time.Duration // minute cadence covers the tightest gate
	MorningHour   int           // wall-clock gate for lookahead reminders
	TodayHour     int           // wall-clock gate for day-of reminders
	BandMin       time.Duration // pre-deadline band lower bound
	BandMax       time.Duration // pre-deadline band upper bound
	StorageBucket string        // GCS bucket; empty selects local storage
	LocalStorage  string        // local snapshot directory for development
	MigrateLegacy bool          // seed new tenants from the legacy snapshot
	AdminIDs      []string      // actors allowed to run mutating commands
	WebhookURL    string        // chat relay endpoint; empty disables the webhook provider
	WebhookToken  string
	DigestTo      string // mailing-list address for the Gmail digest provider
}

// Load reads environment variables into Config, applying defaults suited to
// local development.
func Load() Config {
	return Config{
		Port:          getEnv("PORT", "8080"),
		Timezone:      getEnv("TIMEZONE", "Asia/Manila"),
		TickInterval:  getDurationEnv("TICK_INTERVAL", time.Minute),
		MorningHour:   getIntEnv("MORNING_GATE_HOUR", 8),
		TodayHour:     getIntEnv("TODAY_GATE_HOUR", 7),
		BandMin:       getDurationEnv("REMINDER_BAND_MIN", 28*time.Minute),
		BandMax:       getDurationEnv("REMINDER_BAND_MAX", 31*time.Minute),
		StorageBucket: getEnv("STORAGE_BUCKET", ""),
		LocalStorage:  getEnv("LOCAL_STORAGE", ""),
		MigrateLegacy: getBoolEnv("MIGRATE_LEGACY", false),
		AdminIDs:      splitAndTrim(getEnv("ADMIN_IDS", "")),
		WebhookURL:    getEnv("WEBHOOK_URL", ""),
		WebhookToken:  getEnv("WEBHOOK_TOKEN", ""),
		DigestTo:      getEnv("DIGEST_TO", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
