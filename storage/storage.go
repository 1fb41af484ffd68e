// Package storage handles persistence of tenant agendas, the shared subject
// registry, and the legacy single-tenant snapshot. Snapshots are full
// JSON overwrites, kept either in a Cloud Storage bucket or a local
// directory for development.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/iterator"

	"agenda-notifier/pkg/agenda"
)

const (
	tenantPrefix = "tenant-"
	subjectsKey  = "subjects.json"
	legacyKey    = "activities.json" // snapshot left behind by the pre-multi-tenant bot
)

var errNotExist = errors.New("storage: object doesn't exist")

// Store handles tenant snapshot persistence.
type Store struct {
	client    *storage.Client
	logger    *slog.Logger
	loc       *time.Location
	localPath string
	bucket    string
}

// New creates a storage handler. When localPath is non-empty the store works
// against the local filesystem and the client may be nil. Loaded timestamps
// are normalized into loc.
func New(client *storage.Client, bucket, localPath string, loc *time.Location, logger *slog.Logger) *Store {
	return &Store{
		client:    client,
		logger:    logger,
		loc:       loc,
		localPath: localPath,
		bucket:    bucket,
	}
}

// TenantKey generates a stable object name from a tenant identifier.
// Tenant IDs come from the chat platform and are embedded in object paths,
// so anything outside a conservative charset is rejected.
func TenantKey(tenantID string) string {
	if tenantID == "" || len(tenantID) > 64 {
		return ""
	}
	for _, c := range tenantID {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c == '_' || c == '-':
		default:
			return ""
		}
	}
	return tenantPrefix + tenantID + ".json"
}

// LoadTenant loads one tenant's activity collection. Returns an error that
// satisfies IsNotFound when the tenant has never been saved.
func (s *Store) LoadTenant(ctx context.Context, tenantID string) (*agenda.TenantState, error) {
	key := TenantKey(tenantID)
	if key == "" {
		return nil, fmt.Errorf("invalid tenant id %q", tenantID)
	}

	data, err := s.read(ctx, key)
	if err != nil {
		return nil, err
	}

	var state agenda.TenantState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal tenant state: %w", err)
	}
	state.TenantID = tenantID
	s.normalize(&state)
	return &state, nil
}

// normalize drops null entries and rebinds every timestamp to the configured
// timezone so that window arithmetic sees civil times consistently.
func (s *Store) normalize(state *agenda.TenantState) {
	state.LastUpdated = state.LastUpdated.In(s.loc)
	kept := state.Activities[:0]
	for _, a := range state.Activities {
		if a == nil {
			continue
		}
		a.Deadline = a.Deadline.In(s.loc)
		a.CreatedAt = a.CreatedAt.In(s.loc)
		if !a.ExtendedAt.IsZero() {
			a.ExtendedAt = a.ExtendedAt.In(s.loc)
		}
		if !a.MigratedAt.IsZero() {
			a.MigratedAt = a.MigratedAt.In(s.loc)
		}
		kept = append(kept, a)
	}
	state.Activities = kept
}

// SaveTenant persists one tenant's activity collection as a full overwrite.
func (s *Store) SaveTenant(ctx context.Context, state *agenda.TenantState) error {
	key := TenantKey(state.TenantID)
	if key == "" {
		return fmt.Errorf("invalid tenant id %q", state.TenantID)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tenant state: %w", err)
	}

	if err := s.write(ctx, key, data); err != nil {
		return err
	}
	s.logger.Info("Tenant snapshot saved", "tenant_id", state.TenantID, "activity_count", len(state.Activities))
	return nil
}

// ListTenants returns the IDs of every tenant with a persisted snapshot.
func (s *Store) ListTenants(ctx context.Context) ([]string, error) {
	var ids []string

	// Local filesystem storage
	if s.localPath != "" {
		entries, err := os.ReadDir(s.localPath)
		if err != nil {
			return nil, fmt.Errorf("read local storage directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if id, ok := tenantIDFromKey(entry.Name()); ok {
				ids = append(ids, id)
			}
		}
		return ids, nil
	}

	// Cloud Storage
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: tenantPrefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate storage: %w", err)
		}
		if id, ok := tenantIDFromKey(attrs.Name); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func tenantIDFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, tenantPrefix) || !strings.HasSuffix(key, ".json") {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(key, tenantPrefix), ".json")
	if TenantKey(id) == "" {
		return "", false
	}
	return id, true
}

type subjectsFile struct {
	Subjects []string `json:"subjects"`
}

// Subjects returns the shared subject registry. A missing registry is an
// empty one, never an error.
func (s *Store) Subjects(ctx context.Context) ([]string, error) {
	data, err := s.read(ctx, subjectsKey)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var f subjectsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal subjects: %w", err)
	}
	return f.Subjects, nil
}

// SaveSubjects persists the shared subject registry.
func (s *Store) SaveSubjects(ctx context.Context, subjects []string) error {
	data, err := json.MarshalIndent(subjectsFile{Subjects: subjects}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal subjects: %w", err)
	}
	if err := s.write(ctx, subjectsKey, data); err != nil {
		return err
	}
	s.logger.Info("Subjects saved", "count", len(subjects))
	return nil
}

// legacyActivity matches the record layout written by the pre-multi-tenant
// bot: camelCase keys and a display time string instead of a has-time flag.
type legacyActivity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Deadline  time.Time `json:"deadline"`
	Time      string    `json:"time"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type legacyFile struct {
	Activities []legacyActivity `json:"activities"`
}

// LegacySnapshot reads the pre-multi-tenant activity snapshot, if one
// exists. Returns (nil, nil) when there is no snapshot to migrate from.
func (s *Store) LegacySnapshot(ctx context.Context) ([]*agenda.Activity, error) {
	data, err := s.read(ctx, legacyKey)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var f legacyFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal legacy snapshot: %w", err)
	}

	acts := make([]*agenda.Activity, 0, len(f.Activities))
	for _, la := range f.Activities {
		acts = append(acts, &agenda.Activity{
			ID:        la.ID,
			Name:      la.Name,
			Subject:   la.Subject,
			Deadline:  la.Deadline.In(s.loc),
			HasTime:   la.Time != "",
			CreatedAt: la.CreatedAt.In(s.loc),
			CreatedBy: la.CreatedBy,
		})
	}
	s.logger.Info("Legacy snapshot loaded", "activity_count", len(acts))
	return acts, nil
}

// read fetches one object, retrying transient cloud errors.
func (s *Store) read(ctx context.Context, key string) ([]byte, error) {
	// Local filesystem storage
	if s.localPath != "" {
		data, err := os.ReadFile(filepath.Join(s.localPath, key))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errNotExist
			}
			return nil, fmt.Errorf("read from local storage: %w", err)
		}
		return data, nil
	}

	// Cloud Storage with retry logic for reliability
	var data []byte
	err := retry.Do(
		func() error {
			r, openErr := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
			if openErr != nil {
				// Don't retry on "not found" errors
				if errors.Is(openErr, storage.ErrObjectNotExist) {
					return retry.Unrecoverable(errNotExist)
				}
				return fmt.Errorf("open storage reader: %w", openErr)
			}
			defer func() {
				if closeErr := r.Close(); closeErr != nil {
					s.logger.Warn("Failed to close storage reader", "error", closeErr)
				}
			}()

			var readErr error
			data, readErr = io.ReadAll(r)
			if readErr != nil {
				return fmt.Errorf("read from storage: %w", readErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying load operation after error", "attempt", n, "key", key, "error", retryErr)
		}),
	)
	if err != nil {
		if errors.Is(err, errNotExist) {
			return nil, errNotExist
		}
		return nil, fmt.Errorf("load after retries: %w", err)
	}
	return data, nil
}

// write stores one object, retrying transient cloud errors.
func (s *Store) write(ctx context.Context, key string, data []byte) error {
	// Local filesystem storage
	if s.localPath != "" {
		if err := os.WriteFile(filepath.Join(s.localPath, key), data, 0o600); err != nil {
			return fmt.Errorf("write to local storage: %w", err)
		}
		return nil
	}

	// Cloud Storage with retry logic for reliability
	err := retry.Do(
		func() error {
			w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
			if _, writeErr := w.Write(data); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					s.logger.Warn("Failed to close writer after error", "error", closeErr)
				}
				return fmt.Errorf("write to storage: %w", writeErr)
			}
			if closeErr := w.Close(); closeErr != nil {
				return fmt.Errorf("close storage writer: %w", closeErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying save operation after error", "attempt", n, "key", key, "error", retryErr)
		}),
	)
	if err != nil {
		return fmt.Errorf("save after retries: %w", err)
	}
	return nil
}

// IsNotFound checks if an error indicates a missing object.
func IsNotFound(err error) bool {
	return errors.Is(err, errNotExist)
}
