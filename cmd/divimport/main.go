package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"divimport/internal/recovery"
)

// Exit codes: 0 success, 2 user abort, 3 fatal daemon error.
const (
	exitFailure     = 1
	exitUserAbort   = 2
	exitDaemonError = 3
)

// errUserAborted marks an operator-initiated stop (Ctrl+C, declined prompt).
var errUserAborted = errors.New("aborted by user")

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, errUserAborted) || errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "aborted")
			os.Exit(exitUserAbort)
		}
		fmt.Fprintln(os.Stderr, err)
		if daemonFailure(err) {
			os.Exit(exitDaemonError)
		}
		os.Exit(exitFailure)
	}
}

func daemonFailure(err error) bool {
	for _, marker := range []error{
		recovery.ErrDaemonBinaryNotFound,
		recovery.ErrDaemonStartTimeout,
		recovery.ErrDaemonUnreachable,
		recovery.ErrDaemonRPC,
	} {
		if errors.Is(err, marker) {
			return true
		}
	}
	return false
}
