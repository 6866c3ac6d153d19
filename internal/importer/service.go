// Package importer wires the recovery components into a runnable service:
// single-instance locking, session persistence, the orchestrator, and the
// local HTTP front end.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"log/slog"

	"github.com/gofrs/flock"

	"divimport/internal/config"
	"divimport/internal/gateway"
	"divimport/internal/logging"
	"divimport/internal/notifications"
	"divimport/internal/platform"
	"divimport/internal/procctl"
	"divimport/internal/recovery"
	"divimport/internal/server"
)

// ErrAlreadyRunning indicates another importer instance holds the lock.
var ErrAlreadyRunning = errors.New("another divimport instance is already running")

// Service owns the wired importer components for one process lifetime.
type Service struct {
	cfg     *config.Config
	logger  *slog.Logger
	lock    *flock.Flock
	token   *gateway.Token
	store   *recovery.Store
	journal *recovery.Journal
	ctrl    *procctl.Controller
	orch    *recovery.Orchestrator
	server  *server.Server

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
}

// New acquires the instance lock and wires every component. The caller must
// Close the service to release the lock and the journal.
func New(cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lock := flock.New(cfg.LockFilePath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}

	token, err := gateway.IssueToken()
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	journal, err := recovery.OpenJournal(cfg.JournalPath())
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	svc := &Service{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "importer"),
		lock:    lock,
		token:   token,
		store:   recovery.NewStore(cfg.SessionFilePath()),
		journal: journal,
		ctrl:    procctl.New(cfg, logger),
	}
	svc.orch = recovery.NewOrchestrator(cfg, svc.store, svc.ctrl, token, logger,
		recovery.WithJournal(journal),
		recovery.WithNotifier(notifications.NewService(cfg)),
	)
	svc.server = server.New(cfg, svc.orch, token, logger, server.WithShutdown(svc.RequestShutdown))
	return svc, nil
}

// Token returns the per-run session token.
func (s *Service) Token() *gateway.Token { return s.token }

// Orchestrator exposes the recovery state machine to front ends.
func (s *Service) Orchestrator() *recovery.Orchestrator { return s.orch }

// Controller exposes the daemon process layer.
func (s *Service) Controller() *procctl.Controller { return s.ctrl }

// WizardURL returns the browser wizard URL, empty until Run has started the
// server or when no API bind is configured.
func (s *Service) WizardURL() string { return s.server.URL() }

// Run backs up an existing wallet, starts the HTTP front end, optionally
// opens the wizard in a browser, and blocks until the context is canceled or
// shutdown is requested.
func (s *Service) Run(ctx context.Context, openBrowser bool) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	if backup, err := BackupWallet(s.dataDir()); err != nil {
		s.logger.Warn("wallet backup failed", logging.Error(err))
	} else if backup != "" {
		s.logger.Info("existing wallet backed up", logging.String("path", backup))
	}
	if removed, err := RemoveStaleTxIndex(s.dataDir()); err != nil {
		s.logger.Warn("stale tx index removal failed", logging.Error(err))
	} else if removed {
		s.logger.Info("removed stale transaction index")
	}

	if s.server != nil {
		if err := s.server.Start(runCtx); err != nil {
			return err
		}
		defer s.server.Stop()
		s.logger.Info("wizard available", logging.String("url", s.server.URL()))
		if openBrowser {
			s.openBrowser(s.server.URL())
		}
	}

	<-runCtx.Done()
	return nil
}

// RequestShutdown stops Run. Safe to call from any goroutine, including the
// HTTP shutdown handler.
func (s *Service) RequestShutdown() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Close releases the journal and the instance lock. Idempotent.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	if err := s.journal.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.lock.Unlock(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Service) dataDir() string {
	if dir := s.cfg.Paths.DataDir; dir != "" {
		return dir
	}
	return platform.DataDir()
}

func (s *Service) openBrowser(url string) {
	if url == "" {
		return
	}
	argv := platform.BrowserArgs(url)
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		s.logger.Warn("failed to open browser", logging.Error(err))
		return
	}
	_ = cmd.Process.Release()
}
