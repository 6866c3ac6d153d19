package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"divimport/internal/recovery"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const ansiReset = "\x1b[0m"

var statusStyle = map[statusKind]struct {
	label string
	color string
}{
	statusInfo:  {label: "INFO", color: "\x1b[34m"},
	statusOK:    {label: "OK", color: "\x1b[32m"},
	statusWarn:  {label: "WARN", color: "\x1b[33m"},
	statusError: {label: "ERROR", color: "\x1b[31m"},
}

// statusKindFor maps a recovery status to its display kind. READY_TO_LAUNCH
// counts as OK: the wallet is recovered even if the desktop never starts.
func statusKindFor(status recovery.Status) statusKind {
	switch status {
	case recovery.StatusFailed, recovery.StatusAbandoned:
		return statusError
	case recovery.StatusReadyToLaunch, recovery.StatusLaunched:
		return statusOK
	default:
		return statusInfo
	}
}

// renderStatusLine formats one aligned "label: [KIND] message" line.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style := statusStyle[kind]
	status := "[" + style.label + "]"
	if message != "" {
		status += " " + message
	}
	line := fmt.Sprintf("  %-18s %s", label+":", status)
	if colorize && style.color != "" {
		return style.color + line + ansiReset
	}
	return line
}

func renderSectionHeader(title string, colorize bool) string {
	line := "== " + title + " =="
	if colorize {
		return statusStyle[statusInfo].color + line + ansiReset
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
