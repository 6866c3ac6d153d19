// Package procctl manages the external divid daemon and the Divi Desktop
// application: discovery, detached launch, RPC readiness, sync progress,
// and desktop handoff.
package procctl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"divimport/internal/config"
	"divimport/internal/logging"
	"divimport/internal/platform"
	"divimport/internal/recovery"
	"divimport/internal/rpc"
)

const stepDaemonStarting = "daemon_starting"

// Controller implements recovery.ProcessController against a real divid.
type Controller struct {
	cfg    *config.Config
	logger *slog.Logger

	mu     sync.Mutex
	client *rpc.Client
	creds  rpc.Credentials
}

// New constructs a controller. The RPC client is established lazily once the
// daemon credentials have been read from divi.conf.
func New(cfg *config.Config, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "procctl"),
	}
}

func (c *Controller) dataDir() string {
	if dir := strings.TrimSpace(c.cfg.Paths.DataDir); dir != "" {
		return dir
	}
	return platform.DataDir()
}

// EnsureDaemonRunning makes divid reachable over RPC: an already-listening
// daemon is adopted as pre-existing, otherwise the binary is discovered,
// launched detached, and polled until it answers getinfo.
func (c *Controller) EnsureDaemonRunning(ctx context.Context) (*recovery.DaemonHandle, error) {
	dataDir := c.dataDir()
	creds, err := rpc.ReadCredentials(platform.ConfPath(dataDir), c.cfg.Daemon.RPCPort)
	if err != nil {
		return nil, recovery.Wrap(recovery.ErrDaemonRPC, stepDaemonStarting, "read_credentials", err.Error(), nil)
	}

	endpoint := fmt.Sprintf("http://%s:%d", c.cfg.Daemon.RPCHost, creds.Port)
	client := rpc.New(endpoint, creds, c.requestTimeout())
	c.mu.Lock()
	c.client = client
	c.creds = creds
	c.mu.Unlock()

	handle := &recovery.DaemonHandle{Endpoint: endpoint, DataDir: dataDir}
	if c.listening(ctx, client) {
		c.logger.Info("adopting already-running daemon", logging.String("endpoint", endpoint))
		handle.PreExisting = true
		return handle, nil
	}

	binary, err := platform.DaemonPath(c.cfg.Daemon.BinaryPath)
	if err != nil {
		return nil, recovery.Wrap(recovery.ErrDaemonBinaryNotFound, stepDaemonStarting, "locate_binary", err.Error(), nil)
	}
	pid, err := c.launchDaemon(binary, dataDir)
	if err != nil {
		return nil, recovery.Wrap(recovery.ErrDaemonBinaryNotFound, stepDaemonStarting, "spawn", err.Error(), nil)
	}
	c.logger.Info("daemon launched",
		logging.String("binary", binary),
		logging.Int("pid", pid),
	)
	handle.PID = pid
	return c.awaitReady(ctx, client, handle, binary, dataDir)
}

// listening reports whether the endpoint answers RPC at all. A JSON-RPC error
// still counts: the daemon is up, merely warming or rejecting the method.
func (c *Controller) listening(ctx context.Context, client *rpc.Client) bool {
	probeCtx, cancel := context.WithTimeout(ctx, c.requestTimeout())
	defer cancel()
	err := client.Ping(probeCtx)
	if err == nil {
		return true
	}
	var rpcErr *rpc.Error
	return errors.As(err, &rpcErr)
}

// awaitReady polls getinfo until the daemon's wallet is loaded, backing off
// between polls. A daemon that exits during startup is relaunched up to
// max_start_attempts times.
func (c *Controller) awaitReady(ctx context.Context, client *rpc.Client, handle *recovery.DaemonHandle, binary, dataDir string) (*recovery.DaemonHandle, error) {
	startTimeout := time.Duration(c.cfg.Daemon.StartTimeout) * time.Second
	if startTimeout <= 0 {
		startTimeout = 2 * time.Minute
	}
	interval := time.Duration(c.cfg.Daemon.ReadyPollInterval) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	const maxInterval = 10 * time.Second
	maxAttempts := c.cfg.Daemon.MaxStartAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	deadline := time.Now().Add(startTimeout)
	attempt := 1
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
		if interval *= 2; interval > maxInterval {
			interval = maxInterval
		}

		pollCtx, cancel := context.WithTimeout(ctx, c.requestTimeout())
		err := client.Ping(pollCtx)
		cancel()
		if err == nil {
			return handle, nil
		}

		var rpcErr *rpc.Error
		switch {
		case errors.As(err, &rpcErr):
			// Listening but still loading the block index or wallet.
			c.logger.Debug("daemon warming up", logging.String("message", rpcErr.Message))
		case handle.PID != 0 && !processAlive(handle.PID):
			if attempt >= maxAttempts {
				return nil, recovery.Wrap(recovery.ErrDaemonStartTimeout, stepDaemonStarting, "await_rpc",
					fmt.Sprintf("daemon exited during startup after %d attempts", attempt), nil)
			}
			attempt++
			pid, launchErr := c.launchDaemon(binary, dataDir)
			if launchErr != nil {
				return nil, recovery.Wrap(recovery.ErrDaemonStartTimeout, stepDaemonStarting, "respawn", launchErr.Error(), nil)
			}
			c.logger.Warn("daemon exited, relaunched",
				logging.Int("attempt", attempt),
				logging.Int("pid", pid),
			)
			handle.PID = pid
		}

		if time.Now().After(deadline) {
			return nil, recovery.Wrap(recovery.ErrDaemonStartTimeout, stepDaemonStarting, "await_rpc",
				fmt.Sprintf("no RPC response within %s", startTimeout), nil)
		}
	}
}

// launchDaemon starts divid detached from this process. Output goes to a
// dedicated daemon log so divid's own chatter stays out of the importer log.
func (c *Controller) launchDaemon(binary, dataDir string) (int, error) {
	cmd := exec.Command(binary, "-datadir="+dataDir)
	if logDir := c.cfg.Paths.LogDir; logDir != "" {
		if logFile, err := os.OpenFile(filepath.Join(logDir, "divid.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			cmd.Stdout = logFile
			cmd.Stderr = logFile
			defer logFile.Close()
		}
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", binary, err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		c.logger.Warn("failed to release daemon process handle", logging.Error(err))
	}
	return pid, nil
}

// SubmitMnemonic asks the daemon to recreate the wallet from the seed. Any
// error detail is scrubbed of the mnemonic before it leaves this method.
// Zeroing covers the caller's buffer only: the RPC call copies the seed into
// an immutable request string and the JSON payload, neither of which can be
// wiped.
func (c *Controller) SubmitMnemonic(ctx context.Context, handle *recovery.DaemonHandle, mnemonic []byte) error {
	client, err := c.clientFor(handle)
	if err != nil {
		return recovery.Wrap(recovery.ErrDaemonRPC, "importing", "recoverwalletfromseed", err.Error(), nil)
	}

	err = client.RecoverWallet(ctx, string(mnemonic))
	if err == nil {
		return nil
	}
	detail := scrubSeed(err.Error(), mnemonic)
	if errors.Is(err, rpc.ErrUnreachable) {
		return recovery.Wrap(recovery.ErrDaemonUnreachable, "importing", "recoverwalletfromseed", detail, nil)
	}
	return recovery.Wrap(recovery.ErrDaemonRPC, "importing", "recoverwalletfromseed", detail, nil)
}

// scrubSeed removes the mnemonic phrase and its individual words from text.
func scrubSeed(text string, mnemonic []byte) string {
	phrase := string(mnemonic)
	if phrase != "" {
		text = strings.ReplaceAll(text, phrase, "[redacted]")
	}
	for _, word := range strings.Fields(phrase) {
		if len(word) < 3 {
			continue
		}
		text = strings.ReplaceAll(text, word, "[redacted]")
	}
	return text
}

// PollSyncProgress reads getblockchaininfo. Warm-up responses (block index
// loading, wallet rescan) are reported as progress observations rather than
// errors so the sync loop keeps waiting.
func (c *Controller) PollSyncProgress(ctx context.Context, handle *recovery.DaemonHandle) (recovery.ProgressReport, error) {
	client, err := c.clientFor(handle)
	if err != nil {
		return recovery.ProgressReport{}, recovery.Wrap(recovery.ErrDaemonRPC, "syncing", "getblockchaininfo", err.Error(), nil)
	}

	info, err := client.GetBlockchainInfo(ctx)
	if err == nil {
		return recovery.ProgressReport{
			Progress: info.VerificationProgress,
			Blocks:   info.Blocks,
		}, nil
	}

	var rpcErr *rpc.Error
	if errors.As(err, &rpcErr) {
		if warming(rpcErr) {
			return recovery.ProgressReport{Warming: true, Message: rpcErr.Message}, nil
		}
		return recovery.ProgressReport{}, recovery.Wrap(recovery.ErrDaemonRPC, "syncing", "getblockchaininfo", rpcErr.Message, nil)
	}
	return recovery.ProgressReport{}, recovery.Wrap(recovery.ErrDaemonUnreachable, "syncing", "getblockchaininfo", err.Error(), nil)
}

// rpcInWarmup is the JSON-RPC code divid returns while initializing.
const rpcInWarmup = -28

func warming(err *rpc.Error) bool {
	if err.Code == rpcInWarmup {
		return true
	}
	message := strings.ToLower(err.Message)
	for _, marker := range []string{"loading", "rescanning", "verifying", "activating"} {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}

// LaunchDesktopApp starts Divi Desktop detached and returns without waiting.
func (c *Controller) LaunchDesktopApp(ctx context.Context) error {
	path, err := platform.DesktopAppPath(c.cfg.DesktopApp.Path)
	if err != nil {
		return recovery.Wrap(recovery.ErrDesktopAppNotFound, "launching", "locate", err.Error(), nil)
	}
	argv := platform.LaunchArgs(path)
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return recovery.Wrap(recovery.ErrDesktopAppNotFound, "launching", "start", err.Error(), nil)
	}
	if err := cmd.Process.Release(); err != nil {
		c.logger.Warn("failed to release desktop process handle", logging.Error(err))
	}
	c.logger.Info("desktop app launched", logging.String("path", path))
	return nil
}

// StopDaemon asks divid to shut down. Only daemons this controller launched
// should be stopped; callers check DaemonHandle.PreExisting first.
func (c *Controller) StopDaemon(ctx context.Context, handle *recovery.DaemonHandle) error {
	client, err := c.clientFor(handle)
	if err != nil {
		return recovery.Wrap(recovery.ErrDaemonRPC, "shutdown", "stop", err.Error(), nil)
	}
	if err := client.Stop(ctx); err != nil && !errors.Is(err, rpc.ErrUnreachable) {
		return recovery.Wrap(recovery.ErrDaemonRPC, "shutdown", "stop", err.Error(), nil)
	}
	return nil
}

// clientFor returns the established RPC client, rebuilding it from the handle
// when the controller is fresh (e.g. after a resume in a new process).
func (c *Controller) clientFor(handle *recovery.DaemonHandle) (*rpc.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && (handle == nil || c.client.Endpoint() == handle.Endpoint) {
		return c.client, nil
	}
	if handle == nil || handle.Endpoint == "" {
		return nil, errors.New("no daemon endpoint established")
	}
	dataDir := handle.DataDir
	if dataDir == "" {
		dataDir = c.dataDir()
	}
	creds, err := rpc.ReadCredentials(platform.ConfPath(dataDir), c.cfg.Daemon.RPCPort)
	if err != nil {
		return nil, err
	}
	c.client = rpc.New(handle.Endpoint, creds, c.requestTimeout())
	c.creds = creds
	return c.client, nil
}

func (c *Controller) requestTimeout() time.Duration {
	timeout := time.Duration(c.cfg.Daemon.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return timeout
}
