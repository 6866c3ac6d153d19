package recovery_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"divimport/internal/recovery"
)

func newTestStore(t *testing.T) *recovery.Store {
	t.Helper()
	return recovery.NewStore(filepath.Join(t.TempDir(), "recovery_session.json"))
}

func sampleSession() *recovery.Session {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	return &recovery.Session{
		ID:              "f1f86a55-6e4f-4f6e-b1ce-0a6cbb2f9f7a",
		Status:          recovery.StatusSyncing,
		StepStartedAt:   now,
		LastUpdatedAt:   now.Add(30 * time.Second),
		ImportCompleted: true,
		DaemonEndpoint:  "http://127.0.0.1:51473",
		SyncProgress:    0.42,
		Blocks:          1000000,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	original := sampleSession()

	if err := store.Save(original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected a session")
	}
	if loaded.Status != original.Status {
		t.Fatalf("status mismatch: %s != %s", loaded.Status, original.Status)
	}
	if !loaded.StepStartedAt.Equal(original.StepStartedAt) || !loaded.LastUpdatedAt.Equal(original.LastUpdatedAt) {
		t.Fatalf("timestamp mismatch: %+v", loaded)
	}
	if !loaded.ImportCompleted || loaded.SyncProgress != 0.42 {
		t.Fatalf("field mismatch: %+v", loaded)
	}
}

func TestLoadMissingFileReturnsNil(t *testing.T) {
	store := newTestStore(t)
	session, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if session != nil {
		t.Fatalf("expected nil session, got %+v", session)
	}
}

func TestLoadCorruptFileReturnsNil(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recovery_session.json")
	for _, garbage := range []string{"{not json", "", `{"status":"NO_SUCH_STATUS"}`} {
		if err := os.WriteFile(path, []byte(garbage), 0o600); err != nil {
			t.Fatalf("write garbage: %v", err)
		}
		session, err := recovery.NewStore(path).Load()
		if err != nil {
			t.Fatalf("Load errored on corrupt file %q: %v", garbage, err)
		}
		if session != nil {
			t.Fatalf("expected nil for corrupt file %q, got %+v", garbage, session)
		}
	}
}

func TestLoadIgnoresUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recovery_session.json")
	record := `{"id":"x","status":"SYNCING","step_started_at":"2026-03-14T09:26:53Z",` +
		`"last_updated_at":"2026-03-14T09:27:23Z","import_completed":true,` +
		`"future_field":{"added":"by a newer version"}}`
	if err := os.WriteFile(path, []byte(record), 0o600); err != nil {
		t.Fatalf("write record: %v", err)
	}

	session, err := recovery.NewStore(path).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if session == nil || session.Status != recovery.StatusSyncing {
		t.Fatalf("expected SYNCING session, got %+v", session)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save(sampleSession()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Delete(); err != nil {
		t.Fatalf("first Delete failed: %v", err)
	}
	if err := store.Delete(); err != nil {
		t.Fatalf("second Delete should be a no-op, got %v", err)
	}
	session, err := store.Load()
	if err != nil || session != nil {
		t.Fatalf("expected empty store after delete, got %+v err=%v", session, err)
	}
}

func TestStoredRepresentationHasNoSecrets(t *testing.T) {
	store := newTestStore(t)
	session := sampleSession()
	session.ErrorDetail = "DaemonRpcError: importing: rpc error -4: wallet busy"
	if err := store.Save(session); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	for _, needle := range []string{"rpcpassword", "mnemonic", "seed"} {
		if strings.Contains(strings.ToLower(string(data)), needle) {
			t.Fatalf("stored representation leaks %q: %s", needle, data)
		}
	}
}
