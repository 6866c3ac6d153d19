// Package server exposes the importer's local HTTP API and the browser
// wizard page. It binds to loopback only; every mutating route requires the
// per-run session token.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"divimport/internal/config"
	"divimport/internal/gateway"
	"divimport/internal/logging"
	"divimport/internal/platform"
	"divimport/internal/recovery"
)

// Server is the local HTTP front end of the importer.
type Server struct {
	bind     string
	logger   *slog.Logger
	cfg      *config.Config
	orch     *recovery.Orchestrator
	token    *gateway.Token
	shutdown func()

	listener net.Listener
	server   *http.Server
}

// Option configures optional server behavior.
type Option func(*Server)

// WithShutdown registers a callback invoked when POST /api/shutdown is
// accepted. The importer uses it to stop its run loop.
func WithShutdown(fn func()) Option {
	return func(s *Server) { s.shutdown = fn }
}

// New constructs the server. A nil return means no API was configured.
func New(cfg *config.Config, orch *recovery.Orchestrator, token *gateway.Token, logger *slog.Logger, opts ...Option) *Server {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &Server{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "server"),
		cfg:    cfg,
		orch:   orch,
		token:  token,
	}
	for _, opt := range opts {
		opt(srv)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", srv.handleIndex)
	mux.HandleFunc("/api/status", srv.authorized(srv.handleStatus))
	mux.HandleFunc("/api/platform", srv.authorized(srv.handlePlatform))
	mux.HandleFunc("/api/recovery/begin", srv.authorized(srv.handleBegin))
	mux.HandleFunc("/api/recovery/resume", srv.authorized(srv.handleResume))
	mux.HandleFunc("/api/recovery/clear", srv.authorized(srv.handleClear))
	mux.HandleFunc("/api/launch", srv.authorized(srv.handleLaunch))
	mux.HandleFunc("/api/shutdown", srv.authorized(srv.handleShutdown))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Start binds the listener and serves until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound address, empty before Start.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// URL returns the wizard URL for the default browser.
func (s *Server) URL() string {
	addr := s.Addr()
	if addr == "" {
		return ""
	}
	return "http://" + addr + "/"
}

// sessionTokenHeader carries the per-run token on every API request.
const sessionTokenHeader = "X-Session-Token"

// authorized rejects requests without a valid session token before the
// handler runs. The orchestrator re-checks the token on every operation.
func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.token.Authorize(r.Header.Get(sessionTokenHeader)) {
			s.writeError(w, http.StatusUnauthorized, recovery.ErrUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) requestToken(r *http.Request) string {
	return r.Header.Get(sessionTokenHeader)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	snapshot, err := s.orch.Status(s.requestToken(r))
	if err != nil {
		s.writeError(w, statusForError(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse(snapshot))
}

// PlatformResponse describes the discovered environment.
type PlatformResponse struct {
	DataDir         string `json:"data_dir"`
	ConfPresent     bool   `json:"conf_present"`
	WalletPresent   bool   `json:"wallet_present"`
	DaemonBinary    string `json:"daemon_binary,omitempty"`
	DaemonBinaryErr string `json:"daemon_binary_error,omitempty"`
	DesktopApp      string `json:"desktop_app,omitempty"`
	DesktopAppErr   string `json:"desktop_app_error,omitempty"`
}

func (s *Server) handlePlatform(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	report := platform.Inspect(s.cfg.Paths.DataDir, s.cfg.Daemon.BinaryPath, s.cfg.DesktopApp.Path)
	s.writeJSON(w, http.StatusOK, PlatformResponse{
		DataDir:         report.DataDir,
		ConfPresent:     report.ConfPresent,
		WalletPresent:   report.WalletPresent,
		DaemonBinary:    report.DaemonBinary,
		DaemonBinaryErr: report.DaemonBinaryError,
		DesktopApp:      report.DesktopApp,
		DesktopAppErr:   report.DesktopAppError,
	})
}

type mnemonicRequest struct {
	Mnemonic string `json:"mnemonic"`
}

func (s *Server) handleBegin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	var req mnemonicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	var snapshot recovery.Snapshot
	err := gateway.WithMnemonic([]byte(req.Mnemonic), func(mnemonic []byte) error {
		var beginErr error
		snapshot, beginErr = s.orch.Begin(r.Context(), s.requestToken(r), mnemonic)
		return beginErr
	})
	req.Mnemonic = ""
	if err != nil {
		s.writeError(w, statusForError(err), err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, statusResponse(snapshot))
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	// The body is optional: resume after a completed import needs no mnemonic.
	var req mnemonicRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	var snapshot recovery.Snapshot
	var err error
	if strings.TrimSpace(req.Mnemonic) == "" {
		snapshot, err = s.orch.Resume(r.Context(), s.requestToken(r), nil)
	} else {
		err = gateway.WithMnemonic([]byte(req.Mnemonic), func(mnemonic []byte) error {
			var resumeErr error
			snapshot, resumeErr = s.orch.Resume(r.Context(), s.requestToken(r), mnemonic)
			return resumeErr
		})
		req.Mnemonic = ""
	}
	if err != nil {
		s.writeError(w, statusForError(err), err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, statusResponse(snapshot))
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	if err := s.orch.Clear(r.Context(), s.requestToken(r)); err != nil {
		s.writeError(w, statusForError(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"result": "cleared"})
}

// handleLaunch retries the desktop handoff for a session stuck in
// READY_TO_LAUNCH. It resumes the run, which replays the final steps.
func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	snapshot, err := s.orch.Resume(r.Context(), s.requestToken(r), nil)
	if err != nil {
		s.writeError(w, statusForError(err), err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, statusResponse(snapshot))
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"result": "shutting down"})
	if s.shutdown != nil {
		go s.shutdown()
	}
}

// StatusResponse is the wire form of a session snapshot.
type StatusResponse struct {
	Status          recovery.Status `json:"status"`
	ElapsedSeconds  float64         `json:"elapsed_seconds"`
	ErrorDetail     string          `json:"error_detail,omitempty"`
	ImportCompleted bool            `json:"import_completed"`
	SyncProgress    float64         `json:"sync_progress"`
	Blocks          int64           `json:"blocks"`
}

func statusResponse(snapshot recovery.Snapshot) StatusResponse {
	return StatusResponse{
		Status:          snapshot.Status,
		ElapsedSeconds:  snapshot.ElapsedInStep.Seconds(),
		ErrorDetail:     snapshot.ErrorDetail,
		ImportCompleted: snapshot.ImportCompleted,
		SyncProgress:    snapshot.SyncProgress,
		Blocks:          snapshot.Blocks,
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, recovery.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, recovery.ErrInvalidMnemonicFormat):
		return http.StatusBadRequest
	case errors.Is(err, recovery.ErrRecoveryInProgress), errors.Is(err, recovery.ErrNoResumableSession):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorCode extracts the taxonomy code that prefixes classified errors.
func errorCode(err error) string {
	text := err.Error()
	if idx := strings.IndexByte(text, ':'); idx > 0 {
		return text[:idx]
	}
	return text
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{
		"error":  errorCode(err),
		"detail": err.Error(),
	})
}
