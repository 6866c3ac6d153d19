package recovery

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy. The sentinel text doubles as the documented error code that
// front ends and persisted error details carry.
var (
	ErrInvalidMnemonicFormat = errors.New("InvalidMnemonicFormat")
	ErrRecoveryInProgress    = errors.New("RecoveryInProgress")
	ErrDaemonBinaryNotFound  = errors.New("DaemonBinaryNotFound")
	ErrDesktopAppNotFound    = errors.New("DesktopAppNotFound")
	ErrDaemonStartTimeout    = errors.New("DaemonStartTimeout")
	ErrDaemonUnreachable     = errors.New("DaemonUnreachable")
	ErrDaemonRPC             = errors.New("DaemonRpcError")
	ErrUnauthorized          = errors.New("Unauthorized")
	ErrNoResumableSession    = errors.New("NoResumableSession")
)

// Wrap builds an error that includes step context while tagging it with the
// provided taxonomy marker for later classification.
func Wrap(marker error, step, operation, message string, err error) error {
	detail := buildDetail(step, operation, message)
	if marker == nil {
		marker = ErrDaemonRPC
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(step, operation, message string) string {
	parts := make([]string, 0, 3)
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "recovery failure"
	}
	return strings.Join(parts, ": ")
}

// Retryable reports whether an error is a transient condition the SYNCING
// poll loop should retry rather than fail on.
func Retryable(err error) bool {
	return errors.Is(err, ErrDaemonUnreachable)
}
