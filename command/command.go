// Package command implements the operations the chat layer invokes against
// tenant agendas. The chat platform's own message parsing happens upstream;
// this package receives pre-split argument lists and owns all semantic
// validation: dates, times, subject resolution, duplicates, authorization.
// Rejected commands never mutate state.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"agenda-notifier/clock"
	"agenda-notifier/pkg/agenda"
	"agenda-notifier/window"
)

// Typed rejections for the rendering layer to translate.
var (
	ErrNotAuthorized     = errors.New("command: not authorized")
	ErrUsage             = errors.New("command: invalid arguments")
	ErrInvalidDate       = errors.New("command: invalid date")
	ErrInvalidTime       = errors.New("command: invalid time")
	ErrUnknownSubject    = errors.New("command: unknown subject")
	ErrDuplicateActivity = errors.New("command: activity already exists")
	ErrActivityNotFound  = errors.New("command: activity not found")
	ErrDuplicateSubject  = errors.New("command: subject already exists")
	ErrSubjectNotFound   = errors.New("command: subject not found")
)

// Store is the subset of persistence the command service needs.
type Store interface {
	SaveTenant(ctx context.Context, state *agenda.TenantState) error
	Subjects(ctx context.Context) ([]string, error)
	SaveSubjects(ctx context.Context, subjects []string) error
}

// Bootstrapper resolves a tenant's state, creating it on first contact.
type Bootstrapper interface {
	Ensure(ctx context.Context, tenantID string) (*agenda.TenantState, error)
}

// Service executes commands against tenant agendas.
type Service struct {
	store  Store
	boot   Bootstrapper
	clock  clock.Clock
	logger *slog.Logger
	admins map[string]bool
}

// New creates a command service. adminIDs are the actor IDs allowed to run
// mutating commands.
func New(store Store, boot Bootstrapper, clk clock.Clock, adminIDs []string, logger *slog.Logger) *Service {
	admins := make(map[string]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &Service{
		store:  store,
		boot:   boot,
		clock:  clk,
		logger: logger,
		admins: admins,
	}
}

func (s *Service) authorize(actorID string) error {
	if !s.admins[actorID] {
		return fmt.Errorf("%w: actor %q", ErrNotAuthorized, actorID)
	}
	return nil
}

// AddActivity registers a new deadline-bound activity for a tenant.
// args: [Name, Subject..., Date, Time?] where the subject may span several
// tokens and must match a registered subject.
func (s *Service) AddActivity(ctx context.Context, tenantID, actorID string, args []string) (*agenda.Activity, error) {
	if err := s.authorize(actorID); err != nil {
		return nil, err
	}
	if len(args) < 3 {
		return nil, fmt.Errorf("%w: want name, subject, date", ErrUsage)
	}

	dateIdx := findDateIndex(args)
	if dateIdx == -1 {
		return nil, fmt.Errorf("%w: no MM/DD/YYYY date in arguments", ErrInvalidDate)
	}
	if dateIdx < 2 {
		return nil, fmt.Errorf("%w: missing activity name or subject", ErrUsage)
	}

	subjects, err := s.store.Subjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}
	rawSubject := strings.Join(args[1:dateIdx], " ")
	subject, ok := resolveSubject(rawSubject, subjects)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSubject, rawSubject)
	}

	var timeStr string
	if dateIdx+1 < len(args) {
		timeStr = args[dateIdx+1]
	}
	now := s.clock.Now()
	deadline, hasTime, err := ParseDeadline(args[dateIdx], timeStr, now.Location())
	if err != nil {
		return nil, err
	}

	state, err := s.boot.Ensure(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	name := args[0]
	if s.findActivity(state, name, subject) != nil {
		return nil, fmt.Errorf("%w: %q for %s", ErrDuplicateActivity, name, subject)
	}

	act := &agenda.Activity{
		ID:        uuid.NewString(),
		Name:      name,
		Subject:   subject,
		Deadline:  deadline,
		HasTime:   hasTime,
		CreatedAt: now,
		CreatedBy: actorID,
	}
	state.Activities = append(state.Activities, act)
	state.LastUpdated = now

	if err := s.store.SaveTenant(ctx, state); err != nil {
		return nil, fmt.Errorf("save tenant: %w", err)
	}

	s.logger.Info("Activity added",
		"tenant_id", tenantID, "activity", act.Name, "subject", act.Subject,
		"deadline", act.Deadline.Format(time.RFC3339), "has_time", act.HasTime)
	return act, nil
}

// ExtendResult reports a deadline change alongside the previous deadline so
// the renderer can show both.
type ExtendResult struct {
	Activity    *agenda.Activity
	OldDeadline time.Time
	OldHasTime  bool
}

// ExtendActivity moves an existing activity's deadline. args: [Name, Date,
// Time?]. Notification flags are left untouched: reminders that already
// fired stay fired, even when the new deadline re-enters their windows.
func (s *Service) ExtendActivity(ctx context.Context, tenantID, actorID string, args []string) (*ExtendResult, error) {
	if err := s.authorize(actorID); err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("%w: want name, date", ErrUsage)
	}

	var timeStr string
	if len(args) > 2 {
		timeStr = args[2]
	}
	now := s.clock.Now()
	deadline, hasTime, err := ParseDeadline(args[1], timeStr, now.Location())
	if err != nil {
		return nil, err
	}

	state, err := s.boot.Ensure(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	act := s.findActivity(state, args[0], "")
	if act == nil {
		return nil, fmt.Errorf("%w: %q", ErrActivityNotFound, args[0])
	}

	result := &ExtendResult{
		Activity:    act,
		OldDeadline: act.Deadline,
		OldHasTime:  act.HasTime,
	}
	act.Deadline = deadline
	act.HasTime = hasTime
	act.Extended = true
	act.ExtendedBy = actorID
	act.ExtendedAt = now
	state.LastUpdated = now

	if err := s.store.SaveTenant(ctx, state); err != nil {
		return nil, fmt.Errorf("save tenant: %w", err)
	}

	s.logger.Info("Activity deadline extended",
		"tenant_id", tenantID, "activity", act.Name,
		"old_deadline", result.OldDeadline.Format(time.RFC3339),
		"new_deadline", act.Deadline.Format(time.RFC3339))
	return result, nil
}

// RemoveActivity deletes an activity by name. args: [Name].
func (s *Service) RemoveActivity(ctx context.Context, tenantID, actorID string, args []string) (*agenda.Activity, error) {
	if err := s.authorize(actorID); err != nil {
		return nil, err
	}
	if len(args) < 1 {
		return nil, fmt.Errorf("%w: want name", ErrUsage)
	}

	state, err := s.boot.Ensure(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	name := args[0]
	for i, a := range state.Activities {
		if strings.EqualFold(a.Name, name) {
			removed := a
			state.Activities = append(state.Activities[:i], state.Activities[i+1:]...)
			state.LastUpdated = s.clock.Now()
			if err := s.store.SaveTenant(ctx, state); err != nil {
				return nil, fmt.Errorf("save tenant: %w", err)
			}
			s.logger.Info("Activity removed", "tenant_id", tenantID, "activity", removed.Name)
			return removed, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrActivityNotFound, name)
}

// ListingGroup is the pending activities of one subject.
type ListingGroup struct {
	Subject string        `json:"subject"`
	Items   []agenda.Item `json:"items"`
}

// Listing is the structured pending-activity view handed to the renderer.
type Listing struct {
	TenantID string         `json:"tenant_id"`
	Groups   []ListingGroup `json:"groups"`
}

// ListActivities returns a tenant's pending activities grouped by subject in
// registration order; activities whose subject is no longer registered are
// grouped under "Other".
func (s *Service) ListActivities(ctx context.Context, tenantID string) (*Listing, error) {
	state, err := s.boot.Ensure(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	subjects, err := s.store.Subjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}

	now := s.clock.Now()
	bySubject := make(map[string][]agenda.Item)
	var other []agenda.Item
	for _, a := range state.Activities {
		if a.Ended || window.IsPassed(now, a) {
			continue
		}
		item := agenda.Item{
			Name:      a.DisplayName(),
			Subject:   a.Subject,
			Deadline:  a.Deadline,
			HasTime:   a.HasTime,
			DueLabel:  a.DeadlineLabel(),
			Countdown: window.Countdown(now, a),
		}
		if canonical, ok := resolveSubject(a.Subject, subjects); ok {
			bySubject[canonical] = append(bySubject[canonical], item)
		} else {
			other = append(other, item)
		}
	}

	listing := &Listing{TenantID: tenantID}
	for _, subject := range subjects {
		if items := bySubject[subject]; len(items) > 0 {
			listing.Groups = append(listing.Groups, ListingGroup{Subject: subject, Items: items})
		}
	}
	if len(other) > 0 {
		listing.Groups = append(listing.Groups, ListingGroup{Subject: "Other", Items: other})
	}
	return listing, nil
}

// AddSubject registers a subject in the process-wide registry. args:
// [Subject...] joined with spaces.
func (s *Service) AddSubject(ctx context.Context, actorID string, args []string) (string, error) {
	if err := s.authorize(actorID); err != nil {
		return "", err
	}
	if len(args) < 1 {
		return "", fmt.Errorf("%w: want subject name", ErrUsage)
	}

	name := strings.Join(args, " ")
	subjects, err := s.store.Subjects(ctx)
	if err != nil {
		return "", fmt.Errorf("load subjects: %w", err)
	}
	if _, exists := resolveSubject(name, subjects); exists {
		return "", fmt.Errorf("%w: %q", ErrDuplicateSubject, name)
	}

	subjects = append(subjects, name)
	if err := s.store.SaveSubjects(ctx, subjects); err != nil {
		return "", fmt.Errorf("save subjects: %w", err)
	}
	s.logger.Info("Subject added", "subject", name)
	return name, nil
}

// RemoveSubject removes a subject from the registry. args: [Subject...].
func (s *Service) RemoveSubject(ctx context.Context, actorID string, args []string) (string, error) {
	if err := s.authorize(actorID); err != nil {
		return "", err
	}
	if len(args) < 1 {
		return "", fmt.Errorf("%w: want subject name", ErrUsage)
	}

	name := strings.Join(args, " ")
	subjects, err := s.store.Subjects(ctx)
	if err != nil {
		return "", fmt.Errorf("load subjects: %w", err)
	}
	for i, subject := range subjects {
		if strings.EqualFold(subject, name) {
			subjects = append(subjects[:i], subjects[i+1:]...)
			if err := s.store.SaveSubjects(ctx, subjects); err != nil {
				return "", fmt.Errorf("save subjects: %w", err)
			}
			s.logger.Info("Subject removed", "subject", subject)
			return subject, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrSubjectNotFound, name)
}

// ListSubjects returns the registered subjects in registration order.
func (s *Service) ListSubjects(ctx context.Context) ([]string, error) {
	subjects, err := s.store.Subjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}
	return subjects, nil
}

// findActivity locates an activity by name, optionally constrained to a
// subject, matching case-insensitively.
func (s *Service) findActivity(state *agenda.TenantState, name, subject string) *agenda.Activity {
	for _, a := range state.Activities {
		if !strings.EqualFold(a.Name, name) {
			continue
		}
		if subject != "" && !strings.EqualFold(a.Subject, subject) {
			continue
		}
		return a
	}
	return nil
}
