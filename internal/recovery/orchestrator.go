package recovery

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"divimport/internal/config"
	"divimport/internal/logging"
	"divimport/internal/notifications"
)

// ProcessController is the surface the orchestrator needs from the process
// layer. The concrete implementation lives in internal/procctl; tests supply
// fakes.
type ProcessController interface {
	EnsureDaemonRunning(ctx context.Context) (*DaemonHandle, error)
	SubmitMnemonic(ctx context.Context, handle *DaemonHandle, mnemonic []byte) error
	PollSyncProgress(ctx context.Context, handle *DaemonHandle) (ProgressReport, error)
	LaunchDesktopApp(ctx context.Context) error
	DaemonReachable(ctx context.Context, endpoint string) bool
}

// Authorizer validates the per-run session token on every mutating call.
type Authorizer interface {
	Authorize(token string) bool
}

// Orchestrator owns the recovery state machine. It is the sole writer of the
// persisted session; front ends only ever observe snapshots.
type Orchestrator struct {
	cfg      *config.Config
	store    *Store
	journal  *Journal
	proc     ProcessController
	auth     Authorizer
	notifier notifications.Service
	logger   *slog.Logger

	mu      sync.Mutex
	session *Session
	handle  *DaemonHandle
	seed    []byte
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures optional orchestrator behavior.
type Option func(*Orchestrator)

// WithJournal records every status transition in the given journal.
func WithJournal(journal *Journal) Option {
	return func(o *Orchestrator) { o.journal = journal }
}

// WithNotifier sends push notifications on recovery milestones.
func WithNotifier(notifier notifications.Service) Option {
	return func(o *Orchestrator) { o.notifier = notifier }
}

// NewOrchestrator constructs an orchestrator. The store is passed in
// explicitly; there is no ambient global session.
func NewOrchestrator(cfg *config.Config, store *Store, proc ProcessController, auth Authorizer, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		store:    store,
		proc:     proc,
		auth:     auth,
		notifier: noopNotifier{},
		logger:   logging.NewComponentLogger(logger, "orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Begin starts a fresh recovery from a submitted mnemonic. The mnemonic must
// be exactly twelve lowercase words; a non-terminal existing session must be
// cleared (or resumed) first. Begin returns immediately with a snapshot while
// the state machine advances in the background.
func (o *Orchestrator) Begin(ctx context.Context, token string, mnemonic []byte) (Snapshot, error) {
	if !o.auth.Authorize(token) {
		return Snapshot{}, ErrUnauthorized
	}
	if err := ValidateMnemonicFormat(mnemonic); err != nil {
		return Snapshot{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return o.snapshotLocked(), Wrap(ErrRecoveryInProgress, "", "", "a recovery is already running", nil)
	}
	o.loadSessionLocked()
	if o.session.InProgress() {
		return o.snapshotLocked(), Wrap(ErrRecoveryInProgress, "", "", "clear the existing session or resume it", nil)
	}

	now := time.Now().UTC()
	o.session = &Session{
		ID:            uuid.NewString(),
		Status:        StatusNotStarted,
		StepStartedAt: now,
		LastUpdatedAt: now,
	}
	o.zeroSeedLocked()
	o.seed = bytes.Clone(mnemonic)

	if err := o.store.Save(o.session); err != nil {
		o.zeroSeedLocked()
		o.session = nil
		return Snapshot{}, err
	}
	o.startRunLocked()
	return o.snapshotLocked(), nil
}

// Resume continues a persisted non-terminal session from its last step.
// A mnemonic is required only when the session never completed the import;
// it is ignored otherwise.
func (o *Orchestrator) Resume(ctx context.Context, token string, mnemonic []byte) (Snapshot, error) {
	if !o.auth.Authorize(token) {
		return Snapshot{}, ErrUnauthorized
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return o.snapshotLocked(), Wrap(ErrRecoveryInProgress, "", "", "a recovery is already running", nil)
	}
	o.loadSessionLocked()
	if !o.session.InProgress() {
		return o.snapshotLocked(), ErrNoResumableSession
	}

	o.zeroSeedLocked()
	if !o.session.ImportCompleted {
		if err := ValidateMnemonicFormat(mnemonic); err != nil {
			return o.snapshotLocked(), err
		}
		o.seed = bytes.Clone(mnemonic)
	}
	o.startRunLocked()
	return o.snapshotLocked(), nil
}

// Status returns the current snapshot. Read-only; the token is still required
// because the snapshot reveals operational state.
func (o *Orchestrator) Status(token string) (Snapshot, error) {
	if !o.auth.Authorize(token) {
		return Snapshot{}, ErrUnauthorized
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loadSessionLocked()
	return o.snapshotLocked(), nil
}

// ResumeOrRestart inspects the persisted session on startup. RESUME is offered
// when the session is fresh enough and its daemon still reachable; RESTART
// otherwise; NONE when no session exists. The caller presents the choice to
// the operator.
func (o *Orchestrator) ResumeOrRestart(ctx context.Context, token string) (ResumeDecision, Snapshot, error) {
	if !o.auth.Authorize(token) {
		return DecisionNone, Snapshot{}, ErrUnauthorized
	}

	o.mu.Lock()
	o.loadSessionLocked()
	session := o.session
	snapshot := o.snapshotLocked()
	o.mu.Unlock()

	if !session.InProgress() {
		return DecisionNone, snapshot, nil
	}
	staleAfter := time.Duration(o.cfg.Recovery.StaleAfterMinutes) * time.Minute
	if session.StaleAfter(staleAfter, time.Now().UTC()) {
		return DecisionRestart, snapshot, nil
	}
	if session.DaemonEndpoint != "" && !o.proc.DaemonReachable(ctx, session.DaemonEndpoint) {
		return DecisionRestart, snapshot, nil
	}
	return DecisionResume, snapshot, nil
}

// Clear aborts any in-flight run, zeroes the held mnemonic, and deletes the
// persisted session unconditionally. The external daemon is left running; its
// lifecycle is independent of the orchestrator. Calling Clear twice is safe.
func (o *Orchestrator) Clear(ctx context.Context, token string) error {
	if !o.auth.Authorize(token) {
		return ErrUnauthorized
	}

	o.mu.Lock()
	cancel := o.cancel
	o.cancel = nil
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	o.wg.Wait()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.zeroSeedLocked()
	if o.session.InProgress() {
		if err := o.journal.Append(context.WithoutCancel(ctx), o.session.ID, o.session.Status, StatusAbandoned, "cleared by operator"); err != nil {
			o.logger.Warn("journal append failed", logging.Error(err))
		}
	}
	o.session = nil
	o.handle = nil
	return o.store.Delete()
}

// loadSessionLocked lazily populates the in-memory session from disk. Callers
// must hold o.mu.
func (o *Orchestrator) loadSessionLocked() {
	if o.session != nil {
		return
	}
	persisted, err := o.store.Load()
	if err != nil {
		o.logger.Warn("failed to read persisted session", logging.Error(err))
		return
	}
	o.session = persisted
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	if o.session == nil {
		return Snapshot{Status: StatusNotStarted}
	}
	return Snapshot{
		Status:          o.session.Status,
		ElapsedInStep:   time.Since(o.session.StepStartedAt),
		ErrorDetail:     o.session.ErrorDetail,
		ImportCompleted: o.session.ImportCompleted,
		SyncProgress:    o.session.SyncProgress,
		Blocks:          o.session.Blocks,
	}
}

func (o *Orchestrator) zeroSeedLocked() {
	for i := range o.seed {
		o.seed[i] = 0
	}
	o.seed = nil
}

type noopNotifier struct{}

func (noopNotifier) NotifyRecoveryStarted(context.Context) error        { return nil }
func (noopNotifier) NotifyImportCompleted(context.Context) error        { return nil }
func (noopNotifier) NotifySyncCompleted(context.Context) error          { return nil }
func (noopNotifier) NotifyDesktopLaunched(context.Context) error        { return nil }
func (noopNotifier) NotifyRecoveryFailed(context.Context, string) error { return nil }
func (noopNotifier) TestNotification(context.Context) error             { return nil }
