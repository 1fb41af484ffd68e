// Package server handles HTTP endpoints and request routing. The chat
// platform's relay talks to /command with pre-parsed command tuples; /tickz
// lets an external scheduler drive evaluation cycles alongside the internal
// ticker.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"agenda-notifier/command"
	"agenda-notifier/pkg/agenda"
)

// Commands is the command surface exposed to the chat relay.
type Commands interface {
	AddActivity(ctx context.Context, tenantID, actorID string, args []string) (*agenda.Activity, error)
	ExtendActivity(ctx context.Context, tenantID, actorID string, args []string) (*command.ExtendResult, error)
	RemoveActivity(ctx context.Context, tenantID, actorID string, args []string) (*agenda.Activity, error)
	ListActivities(ctx context.Context, tenantID string) (*command.Listing, error)
	AddSubject(ctx context.Context, actorID string, args []string) (string, error)
	RemoveSubject(ctx context.Context, actorID string, args []string) (string, error)
	ListSubjects(ctx context.Context) ([]string, error)
}

// Ticker triggers one evaluation cycle.
type Ticker interface {
	Tick(ctx context.Context) error
}

// Server handles HTTP requests.
type Server struct {
	commands Commands
	ticker   Ticker
	logger   *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Commands Commands
	Ticker   Ticker
	Logger   *slog.Logger
}

// New creates a new HTTP server handler.
func New(cfg *Config) *Server {
	return &Server{
		commands: cfg.Commands,
		ticker:   cfg.Ticker,
		logger:   cfg.Logger,
	}
}

// ListenAndServe sets up all routes and starts the server.
func (s *Server) ListenAndServe(port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/tickz", s.handleTick)
	mux.HandleFunc("/command", s.handleCommand)

	// Timeouts prevent resource exhaustion from slow clients
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "port", port)
	return server.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, `{"status":"healthy"}`); err != nil {
		s.logger.Warn("Failed to write health response", "error", err)
	}
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.logger.Info("Tick endpoint triggered")

	if err := s.ticker.Tick(r.Context()); err != nil {
		s.logger.Error("Tick failed", "error", err)
		http.Error(w, "Tick failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, `{"status":"completed"}`); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

// commandRequest is the pre-validated tuple handed over by the chat relay.
type commandRequest struct {
	TenantID string   `json:"tenant_id"`
	ActorID  string   `json:"actor_id"`
	Command  string   `json:"command"`
	Args     []string `json:"args"`
}

type commandResponse struct {
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.TenantID == "" || req.Command == "" {
		s.writeError(w, http.StatusBadRequest, "bad_request", "tenant_id and command are required")
		return
	}

	ctx := r.Context()
	var result any
	var err error

	switch req.Command {
	case "addact":
		result, err = s.commands.AddActivity(ctx, req.TenantID, req.ActorID, req.Args)
	case "extend":
		result, err = s.commands.ExtendActivity(ctx, req.TenantID, req.ActorID, req.Args)
	case "removeact":
		result, err = s.commands.RemoveActivity(ctx, req.TenantID, req.ActorID, req.Args)
	case "activities":
		result, err = s.commands.ListActivities(ctx, req.TenantID)
	case "addsub":
		result, err = s.commands.AddSubject(ctx, req.ActorID, req.Args)
	case "removesub":
		result, err = s.commands.RemoveSubject(ctx, req.ActorID, req.Args)
	case "listsub":
		result, err = s.commands.ListSubjects(ctx)
	default:
		s.writeError(w, http.StatusBadRequest, "unknown_command", fmt.Sprintf("unknown command %q", req.Command))
		return
	}

	if err != nil {
		status, kind := classify(err)
		s.logger.Info("Command rejected",
			"tenant_id", req.TenantID, "command", req.Command, "kind", kind, "error", err)
		s.writeError(w, status, kind, err.Error())
		return
	}

	s.logger.Info("Command executed", "tenant_id", req.TenantID, "command", req.Command)
	s.writeJSON(w, http.StatusOK, commandResponse{OK: true, Result: result})
}

// classify maps typed command rejections onto HTTP status codes and stable
// error kinds for the relay to render.
func classify(err error) (status int, kind string) {
	switch {
	case errors.Is(err, command.ErrNotAuthorized):
		return http.StatusForbidden, "not_authorized"
	case errors.Is(err, command.ErrUsage):
		return http.StatusBadRequest, "usage"
	case errors.Is(err, command.ErrInvalidDate):
		return http.StatusBadRequest, "invalid_date"
	case errors.Is(err, command.ErrInvalidTime):
		return http.StatusBadRequest, "invalid_time"
	case errors.Is(err, command.ErrUnknownSubject):
		return http.StatusBadRequest, "unknown_subject"
	case errors.Is(err, command.ErrDuplicateActivity):
		return http.StatusConflict, "duplicate_activity"
	case errors.Is(err, command.ErrDuplicateSubject):
		return http.StatusConflict, "duplicate_subject"
	case errors.Is(err, command.ErrActivityNotFound):
		return http.StatusNotFound, "activity_not_found"
	case errors.Is(err, command.ErrSubjectNotFound):
		return http.StatusNotFound, "subject_not_found"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, kind, msg string) {
	s.writeJSON(w, status, commandResponse{OK: false, Kind: kind, Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body commandResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}
