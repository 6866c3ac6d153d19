package recovery

import (
	"time"
)

// Status represents the lifecycle of a recovery session.
type Status string

const (
	StatusNotStarted    Status = "NOT_STARTED"
	StatusDaemonStart   Status = "DAEMON_STARTING"
	StatusImporting     Status = "IMPORTING"
	StatusSyncing       Status = "SYNCING"
	StatusReadyToLaunch Status = "READY_TO_LAUNCH"
	StatusLaunched      Status = "LAUNCHED"
	StatusFailed        Status = "FAILED"
	StatusAbandoned     Status = "ABANDONED"
)

var allStatuses = []Status{
	StatusNotStarted,
	StatusDaemonStart,
	StatusImporting,
	StatusSyncing,
	StatusReadyToLaunch,
	StatusLaunched,
	StatusFailed,
	StatusAbandoned,
}

// Terminal reports whether a status ends the session lifecycle. FAILED is not
// terminal: a failed session stays resumable until explicitly cleared.
func (s Status) Terminal() bool {
	switch s {
	case StatusLaunched, StatusAbandoned:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Session is the single active recovery attempt, persisted between runs.
// Unknown fields in the stored representation are ignored on load so an
// upgraded orchestrator can resume a session written by an older one.
type Session struct {
	ID                string    `json:"id"`
	Status            Status    `json:"status"`
	StepStartedAt     time.Time `json:"step_started_at"`
	LastUpdatedAt     time.Time `json:"last_updated_at"`
	ErrorDetail       string    `json:"error_detail,omitempty"`
	ImportCompleted   bool      `json:"import_completed"`
	DaemonEndpoint    string    `json:"daemon_endpoint,omitempty"`
	DataDir           string    `json:"data_dir,omitempty"`
	PreExistingDaemon bool      `json:"pre_existing_daemon"`
	SyncProgress      float64   `json:"sync_progress"`
	Blocks            int64     `json:"blocks"`
}

// InProgress reports whether the session is active: started and not terminal.
func (s *Session) InProgress() bool {
	if s == nil {
		return false
	}
	return s.Status != StatusNotStarted && !s.Status.Terminal()
}

// StaleAfter reports whether the session has gone without updates longer than
// the given threshold.
func (s *Session) StaleAfter(threshold time.Duration, now time.Time) bool {
	if s == nil {
		return false
	}
	return now.Sub(s.LastUpdatedAt) > threshold
}

// Snapshot is the read-only view of a session returned to front ends. It is
// sufficient to render progress without exposing the mnemonic or any daemon
// credential.
type Snapshot struct {
	Status          Status        `json:"status"`
	ElapsedInStep   time.Duration `json:"elapsed_in_step"`
	ErrorDetail     string        `json:"error_detail,omitempty"`
	ImportCompleted bool          `json:"import_completed"`
	SyncProgress    float64       `json:"sync_progress"`
	Blocks          int64         `json:"blocks"`
}

// ResumeDecision is the outcome of inspecting a persisted session on startup.
type ResumeDecision string

const (
	// DecisionNone means no persisted session exists; begin fresh.
	DecisionNone ResumeDecision = "NONE"
	// DecisionResume means the session is live and its daemon reachable.
	DecisionResume ResumeDecision = "RESUME"
	// DecisionRestart means the session is stale or its daemon unreachable.
	DecisionRestart ResumeDecision = "RESTART"
)

// DaemonHandle wraps the external daemon's process identity. PID is zero when
// the daemon was already running before this run (PreExisting).
type DaemonHandle struct {
	PID         int
	PreExisting bool
	Endpoint    string
	DataDir     string
}

// ProgressReport is a single sync-progress observation.
type ProgressReport struct {
	Progress float64
	Blocks   int64
	Message  string
	// Warming marks reports synthesized from daemon warm-up responses
	// (block index loading, wallet rescan) before getblockchaininfo succeeds.
	Warming bool
}
