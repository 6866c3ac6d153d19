package recovery_test

import (
	"context"
	"path/filepath"
	"testing"

	"divimport/internal/recovery"
)

func TestJournalAppendAndRecent(t *testing.T) {
	journal, err := recovery.OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("OpenJournal failed: %v", err)
	}
	defer journal.Close()

	ctx := context.Background()
	steps := []struct {
		from, to recovery.Status
	}{
		{recovery.StatusNotStarted, recovery.StatusDaemonStart},
		{recovery.StatusDaemonStart, recovery.StatusImporting},
		{recovery.StatusImporting, recovery.StatusSyncing},
	}
	for _, step := range steps {
		if err := journal.Append(ctx, "session-1", step.from, step.to, ""); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	transitions, err := journal.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(transitions) != 3 {
		t.Fatalf("expected 3 transitions, got %d", len(transitions))
	}
	// Newest first.
	if transitions[0].ToStatus != recovery.StatusSyncing {
		t.Fatalf("unexpected newest transition: %+v", transitions[0])
	}
	if transitions[0].CreatedAt.IsZero() {
		t.Fatal("expected parsed created_at timestamp")
	}
}

func TestJournalRecentHonorsLimit(t *testing.T) {
	journal, err := recovery.OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("OpenJournal failed: %v", err)
	}
	defer journal.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := journal.Append(ctx, "session-1", recovery.StatusSyncing, recovery.StatusSyncing, "poll"); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	transitions, err := journal.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(transitions) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(transitions))
	}
}

func TestNilJournalIsNoop(t *testing.T) {
	var journal *recovery.Journal
	if err := journal.Append(context.Background(), "s", recovery.StatusNotStarted, recovery.StatusFailed, ""); err != nil {
		t.Fatalf("nil journal Append should be a no-op, got %v", err)
	}
	if _, err := journal.Recent(context.Background(), 5); err != nil {
		t.Fatalf("nil journal Recent should be a no-op, got %v", err)
	}
	if err := journal.Close(); err != nil {
		t.Fatalf("nil journal Close should be a no-op, got %v", err)
	}
}
