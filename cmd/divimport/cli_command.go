package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"divimport/internal/gateway"
	"divimport/internal/importer"
	"divimport/internal/platform"
	"divimport/internal/recovery"
)

func newCLICommand(ctx *commandContext, logLevel *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cli",
		Short: "Run the recovery from the terminal",
		Long: "Drives the full recovery in the terminal: checks the " +
			"environment, reads the recovery phrase with hidden input, and " +
			"reports progress until Divi Desktop launches.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(*logLevel)
			if err != nil {
				return err
			}

			svc, err := importer.New(cfg, logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runTerminalRecovery(sigCtx, cmd, cfg.Paths.DataDir, cfg.Daemon.BinaryPath, cfg.DesktopApp.Path, svc)
		},
	}
	return cmd
}

func runTerminalRecovery(ctx context.Context, cmd *cobra.Command, dataDirOverride, daemonOverride, desktopOverride string, svc *importer.Service) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	fmt.Fprintln(out, renderSectionHeader("Environment", colorize))
	report := platform.Inspect(dataDirOverride, daemonOverride, desktopOverride)
	printReport(out, report, colorize)
	if !report.ConfPresent {
		return fmt.Errorf("divi.conf not found in %s; run Divi Desktop once to create it", report.DataDir)
	}
	if report.DaemonBinaryError != "" {
		return fmt.Errorf("%w: %s", recovery.ErrDaemonBinaryNotFound, report.DaemonBinaryError)
	}

	if backup, err := importer.BackupWallet(report.DataDir); err != nil {
		fmt.Fprintf(out, "Warning: wallet backup failed: %v\n", err)
	} else if backup != "" {
		fmt.Fprintln(out, renderStatusLine("Wallet backup", statusOK, backup, colorize))
	}
	if removed, err := importer.RemoveStaleTxIndex(report.DataDir); err != nil {
		fmt.Fprintf(out, "Warning: stale tx index removal failed: %v\n", err)
	} else if removed {
		fmt.Fprintln(out, renderStatusLine("Stale tx index", statusOK, "removed", colorize))
	}

	token := svc.Token().Value()
	orch := svc.Orchestrator()

	decision, snapshot, err := orch.ResumeOrRestart(ctx, token)
	if err != nil {
		return err
	}

	in := bufio.NewReader(cmd.InOrStdin())
	switch decision {
	case recovery.DecisionResume:
		fmt.Fprintf(out, "\nAn earlier recovery stopped at %s.\n", snapshot.Status)
		if !confirm(in, out, "Resume it") {
			if !confirm(in, out, "Discard it and start over") {
				return errUserAborted
			}
			if err := orch.Clear(ctx, token); err != nil {
				return err
			}
			if err := beginFresh(ctx, cmd, in, orch, token); err != nil {
				return err
			}
		} else if snapshot.ImportCompleted {
			if _, err := orch.Resume(ctx, token, nil); err != nil {
				return err
			}
		} else {
			raw, err := readMnemonic(cmd, in)
			if err != nil {
				return err
			}
			err = gateway.WithMnemonic(raw, func(mnemonic []byte) error {
				_, resumeErr := orch.Resume(ctx, token, mnemonic)
				return resumeErr
			})
			if err != nil {
				return err
			}
		}
	case recovery.DecisionRestart:
		fmt.Fprintln(out, "\nA stale recovery session was found and will be discarded.")
		if err := orch.Clear(ctx, token); err != nil {
			return err
		}
		if err := beginFresh(ctx, cmd, in, orch, token); err != nil {
			return err
		}
	default:
		if err := beginFresh(ctx, cmd, in, orch, token); err != nil {
			return err
		}
	}

	return watchRecovery(ctx, out, orch, token, colorize)
}

func beginFresh(ctx context.Context, cmd *cobra.Command, in *bufio.Reader, orch *recovery.Orchestrator, token string) error {
	raw, err := readMnemonic(cmd, in)
	if err != nil {
		return err
	}
	return gateway.WithMnemonic(raw, func(mnemonic []byte) error {
		_, beginErr := orch.Begin(ctx, token, mnemonic)
		return beginErr
	})
}

// watchRecovery prints progress until the run reaches a final state.
func watchRecovery(ctx context.Context, out io.Writer, orch *recovery.Orchestrator, token string, colorize bool) error {
	fmt.Fprintln(out)
	var lastLine string
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Interrupted. The session is saved; run divimport again to resume.")
			return errUserAborted
		case <-time.After(time.Second):
		}

		snapshot, err := orch.Status(token)
		if err != nil {
			return err
		}
		line := progressLine(snapshot)
		if line != lastLine {
			fmt.Fprintln(out, renderStatusLine(string(snapshot.Status), statusKindFor(snapshot.Status), line, colorize))
			lastLine = line
		}

		switch snapshot.Status {
		case recovery.StatusLaunched:
			fmt.Fprintln(out, "\nRecovery complete. Divi Desktop is starting.")
			return nil
		case recovery.StatusReadyToLaunch:
			if snapshot.ErrorDetail != "" {
				fmt.Fprintf(out, "\nWallet recovered and synced, but the desktop launch failed: %s\n", snapshot.ErrorDetail)
				fmt.Fprintln(out, "Start Divi Desktop manually to finish.")
				return nil
			}
		case recovery.StatusFailed:
			return failedError(snapshot.ErrorDetail)
		}
	}
}

func progressLine(snapshot recovery.Snapshot) string {
	switch snapshot.Status {
	case recovery.StatusSyncing:
		return fmt.Sprintf("%.2f%% (%d blocks)", snapshot.SyncProgress*100, snapshot.Blocks)
	case recovery.StatusFailed:
		return snapshot.ErrorDetail
	default:
		return ""
	}
}

// failedError rebuilds a classified error from the persisted detail so the
// exit code reflects the failure class.
func failedError(detail string) error {
	for _, marker := range []error{
		recovery.ErrDaemonBinaryNotFound,
		recovery.ErrDaemonStartTimeout,
		recovery.ErrDaemonUnreachable,
		recovery.ErrDaemonRPC,
	} {
		if strings.HasPrefix(detail, marker.Error()) {
			return fmt.Errorf("recovery failed: %w: %s", marker, strings.TrimPrefix(detail, marker.Error()+": "))
		}
	}
	return fmt.Errorf("recovery failed: %s", detail)
}

func printReport(out io.Writer, report platform.Report, colorize bool) {
	fmt.Fprintln(out, renderStatusLine("Data directory", statusInfo, report.DataDir, colorize))
	fmt.Fprintln(out, renderStatusLine("divi.conf", presenceKind(report.ConfPresent), "", colorize))
	fmt.Fprintln(out, renderStatusLine("wallet.dat", presenceKind(report.WalletPresent), "", colorize))
	if report.DaemonBinary != "" {
		fmt.Fprintln(out, renderStatusLine("Daemon binary", statusOK, report.DaemonBinary, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Daemon binary", statusError, report.DaemonBinaryError, colorize))
	}
	if report.DesktopApp != "" {
		fmt.Fprintln(out, renderStatusLine("Divi Desktop", statusOK, report.DesktopApp, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Divi Desktop", statusWarn, report.DesktopAppError, colorize))
	}
}

func presenceKind(present bool) statusKind {
	if present {
		return statusOK
	}
	return statusWarn
}

// readMnemonic reads the recovery phrase with terminal echo disabled. A
// non-terminal stdin (tests, pipes) falls back to a plain line read.
func readMnemonic(cmd *cobra.Command, in *bufio.Reader) ([]byte, error) {
	out := cmd.OutOrStdout()
	fmt.Fprint(out, "\nEnter your 12-word recovery phrase (input hidden): ")
	if file, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		raw, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return nil, fmt.Errorf("read recovery phrase: %w", err)
		}
		return raw, nil
	}

	line, err := in.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, fmt.Errorf("read recovery phrase: %w", err)
	}
	fmt.Fprintln(out)
	return bytes.TrimRight(line, "\r\n"), nil
}

func confirm(in *bufio.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [Y/n]: ", prompt)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "" || answer == "y" || answer == "yes"
}
