package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"divimport/internal/recovery"
)

func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	base := t.TempDir()
	stateDir := filepath.Join(base, "state")
	content := fmt.Sprintf("[paths]\nstate_dir = %q\nlog_dir = %q\n",
		stateDir, filepath.Join(base, "logs"))
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path, stateDir
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestStatusReportsNoSession(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	out, err := runCommand(t, "--config", cfgPath, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, "No recovery session.") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestStatusRendersPersistedSession(t *testing.T) {
	cfgPath, stateDir := writeTestConfig(t)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		t.Fatalf("mkdir state: %v", err)
	}
	now := time.Now().UTC()
	store := recovery.NewStore(filepath.Join(stateDir, "recovery_session.json"))
	session := &recovery.Session{
		ID:            "session-1",
		Status:        recovery.StatusSyncing,
		StepStartedAt: now,
		LastUpdatedAt: now,
		SyncProgress:  0.5,
		Blocks:        1000,
	}
	if err := store.Save(session); err != nil {
		t.Fatalf("save session: %v", err)
	}

	out, err := runCommand(t, "--config", cfgPath, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, string(recovery.StatusSyncing)) {
		t.Fatalf("expected SYNCING in output: %s", out)
	}
	if !strings.Contains(out, "50.00%") {
		t.Fatalf("expected sync percentage in output: %s", out)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if _, err := runCommand(t, "config", "init", "--path", target); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file: %v", err)
	}
	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init must refuse to overwrite")
	}
}

func TestRenderStatusLine(t *testing.T) {
	plain := renderStatusLine("Status", statusOK, "done", false)
	if !strings.HasPrefix(plain, "  Status:") || !strings.HasSuffix(plain, "[OK] done") {
		t.Fatalf("unexpected plain line: %q", plain)
	}
	if strings.Index(plain, "[") != 21 {
		t.Fatalf("label column misaligned: %q", plain)
	}
	colored := renderStatusLine("Status", statusError, "", true)
	if !strings.HasPrefix(colored, "\x1b[31m") || !strings.HasSuffix(colored, "\x1b[0m") {
		t.Fatalf("expected red ANSI wrapping: %q", colored)
	}
}

func TestStatusKindForRecoveryStatuses(t *testing.T) {
	cases := map[recovery.Status]statusKind{
		recovery.StatusNotStarted:    statusInfo,
		recovery.StatusSyncing:       statusInfo,
		recovery.StatusReadyToLaunch: statusOK,
		recovery.StatusLaunched:      statusOK,
		recovery.StatusFailed:        statusError,
		recovery.StatusAbandoned:     statusError,
	}
	for status, want := range cases {
		if got := statusKindFor(status); got != want {
			t.Fatalf("%s: expected kind %d, got %d", status, want, got)
		}
	}
}

func TestRenderHistoryTableOldestFirst(t *testing.T) {
	now := time.Now()
	transitions := []recovery.Transition{
		{CreatedAt: now, FromStatus: recovery.StatusImporting, ToStatus: recovery.StatusSyncing},
		{CreatedAt: now.Add(-time.Minute), FromStatus: recovery.StatusDaemonStart, ToStatus: recovery.StatusImporting},
	}
	out := renderHistoryTable(transitions)
	first := strings.Index(out, string(recovery.StatusImporting))
	second := strings.Index(out, string(recovery.StatusSyncing))
	if first < 0 || second < 0 || first > second {
		t.Fatalf("expected oldest transition first:\n%s", out)
	}
}

func TestClearWithoutSessionIsQuiet(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	out, err := runCommand(t, "--config", cfgPath, "clear", "--force")
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if !strings.Contains(out, "No recovery session to clear.") {
		t.Fatalf("unexpected output: %s", out)
	}
}
