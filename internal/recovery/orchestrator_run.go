package recovery

import (
	"context"
	"errors"
	"time"

	"divimport/internal/logging"
)

// startRunLocked launches the background run goroutine. Callers must hold
// o.mu and must have a session in place.
func (o *Orchestrator) startRunLocked() {
	runCtx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.running = true
	o.wg.Add(1)
	go o.run(runCtx)
}

// run drives a session through the remaining steps of the recovery sequence.
// Each step transitions the session first, performs its work, then hands off.
// Any step failure moves the session to FAILED with a classified error detail;
// the session stays on disk so the operator can resume or clear it.
func (o *Orchestrator) run(ctx context.Context) {
	defer o.wg.Done()
	defer func() {
		o.mu.Lock()
		o.running = false
		o.cancel = nil
		o.zeroSeedLocked()
		o.mu.Unlock()
	}()

	o.mu.Lock()
	entry := o.session.Status
	importDone := o.session.ImportCompleted
	o.mu.Unlock()

	o.notify(ctx, o.notifier.NotifyRecoveryStarted)

	// A resumed session re-enters its persisted step; the status never moves
	// backward. Only sessions that have not yet passed DAEMON_STARTING (or
	// failed before the import finished) record that step again. The daemon
	// itself is always re-established: adopting a running one is idempotent.
	switch entry {
	case StatusNotStarted, StatusDaemonStart:
		o.transition(ctx, StatusDaemonStart, "")
	case StatusFailed:
		if !importDone {
			o.transition(ctx, StatusDaemonStart, "")
		}
	}
	handle, err := o.proc.EnsureDaemonRunning(ctx)
	if err != nil {
		o.fail(ctx, err)
		return
	}
	o.recordDaemon(handle)

	if !importDone {
		o.advance(ctx, StatusImporting)
		if err := o.submitSeed(ctx, handle); err != nil {
			o.fail(ctx, err)
			return
		}
		o.mu.Lock()
		o.session.ImportCompleted = true
		o.saveLocked()
		o.mu.Unlock()
		o.notify(ctx, o.notifier.NotifyImportCompleted)
	}

	if entry != StatusReadyToLaunch {
		o.advance(ctx, StatusSyncing)
		if err := o.pollUntilSynced(ctx, handle); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			o.fail(ctx, err)
			return
		}

		o.advance(ctx, StatusReadyToLaunch)
		o.notify(ctx, o.notifier.NotifySyncCompleted)
	}

	if err := o.proc.LaunchDesktopApp(ctx); err != nil {
		// Launch failure is not fatal: the wallet is recovered and synced,
		// the operator can start the desktop app manually.
		detail := redactDetail(err.Error(), nil)
		o.logger.Warn("desktop launch failed", logging.Error(err))
		o.mu.Lock()
		o.session.ErrorDetail = detail
		o.session.LastUpdatedAt = time.Now().UTC()
		o.saveLocked()
		o.mu.Unlock()
		return
	}

	o.advance(ctx, StatusLaunched)
	o.notify(ctx, o.notifier.NotifyDesktopLaunched)
	o.logger.Info("recovery complete", logging.String(logging.FieldStatus, string(StatusLaunched)))
}

// submitSeed sends the held mnemonic to the daemon and zeroes the buffer no
// matter the outcome. The process layer guarantees its error text never
// contains the mnemonic.
func (o *Orchestrator) submitSeed(ctx context.Context, handle *DaemonHandle) error {
	o.mu.Lock()
	seed := o.seed
	o.mu.Unlock()
	if len(seed) == 0 {
		return Wrap(ErrInvalidMnemonicFormat, "importing", "submit", "no mnemonic held for import", nil)
	}
	defer func() {
		o.mu.Lock()
		o.zeroSeedLocked()
		o.mu.Unlock()
	}()
	return o.proc.SubmitMnemonic(ctx, handle, seed)
}

// pollUntilSynced polls the daemon until verification progress crosses the
// configured completion threshold. Unreachable-daemon errors and request
// timeouts are retried on the next tick; any other daemon error is fatal.
func (o *Orchestrator) pollUntilSynced(ctx context.Context, handle *DaemonHandle) error {
	interval := time.Duration(o.cfg.Recovery.SyncPollInterval) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	requestTimeout := time.Duration(o.cfg.Daemon.RequestTimeout) * time.Second
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}
	threshold := o.cfg.Recovery.SyncCompleteThreshold

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		pollCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		report, err := o.proc.PollSyncProgress(pollCtx, handle)
		cancel()
		switch {
		case err == nil:
			o.recordProgress(report)
			if !report.Warming && report.Progress >= threshold {
				return nil
			}
		case errors.Is(err, context.Canceled):
			return err
		case Retryable(err) || errors.Is(err, context.DeadlineExceeded):
			o.logger.Warn("sync poll failed, retrying", logging.Error(err))
		default:
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// advance moves the session forward to the given status, skipping the write
// when a resumed run is already there.
func (o *Orchestrator) advance(ctx context.Context, to Status) {
	o.mu.Lock()
	same := o.session.Status == to
	o.mu.Unlock()
	if same {
		return
	}
	o.transition(ctx, to, "")
}

// transition moves the session to a new status, resetting the step clock and
// persisting before any work for the new step starts.
func (o *Orchestrator) transition(ctx context.Context, to Status, detail string) {
	o.mu.Lock()
	from := o.session.Status
	now := time.Now().UTC()
	o.session.Status = to
	o.session.StepStartedAt = now
	o.session.LastUpdatedAt = now
	o.session.ErrorDetail = detail
	sessionID := o.session.ID
	o.saveLocked()
	o.mu.Unlock()

	if err := o.journal.Append(context.WithoutCancel(ctx), sessionID, from, to, detail); err != nil {
		o.logger.Warn("journal append failed", logging.Error(err))
	}
	o.logger.Info("status changed",
		logging.String("from", string(from)),
		logging.String(logging.FieldStatus, string(to)),
	)
}

// fail classifies the error, records a redacted detail on the session, and
// moves it to FAILED. The session remains resumable.
func (o *Orchestrator) fail(ctx context.Context, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	detail := redactDetail(err.Error(), nil)
	o.logger.Error("recovery step failed", logging.Error(errors.New(detail)))
	o.transition(ctx, StatusFailed, detail)
	o.notify(ctx, func(ctx context.Context) error {
		return o.notifier.NotifyRecoveryFailed(ctx, detail)
	})
}

func (o *Orchestrator) recordDaemon(handle *DaemonHandle) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handle = handle
	o.session.DaemonEndpoint = handle.Endpoint
	o.session.DataDir = handle.DataDir
	o.session.PreExistingDaemon = handle.PreExisting
	o.session.LastUpdatedAt = time.Now().UTC()
	o.saveLocked()
}

func (o *Orchestrator) recordProgress(report ProgressReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !report.Warming {
		o.session.SyncProgress = report.Progress
		o.session.Blocks = report.Blocks
	}
	o.session.LastUpdatedAt = time.Now().UTC()
	o.saveLocked()
}

// saveLocked persists the session, logging rather than failing the run on
// write errors. Callers must hold o.mu.
func (o *Orchestrator) saveLocked() {
	if err := o.store.Save(o.session); err != nil {
		o.logger.Error("failed to persist session", logging.Error(err))
	}
}

// notify fires a notification without letting delivery failures affect the
// recovery itself.
func (o *Orchestrator) notify(ctx context.Context, fn func(context.Context) error) {
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := fn(notifyCtx); err != nil {
		o.logger.Warn("notification failed", logging.Error(err))
	}
}
