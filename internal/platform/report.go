package platform

import (
	"strings"

	"divimport/internal/fileutil"
)

// Report summarizes the discovered environment: where the Divi data lives and
// whether the pieces a recovery needs are present.
type Report struct {
	DataDir           string
	ConfPresent       bool
	WalletPresent     bool
	DaemonBinary      string
	DaemonBinaryError string
	DesktopApp        string
	DesktopAppError   string
}

// Ready reports whether a recovery can start: credentials readable and the
// daemon binary located.
func (r Report) Ready() bool {
	return r.ConfPresent && r.DaemonBinaryError == ""
}

// Inspect probes the environment. Overrides follow the same precedence as the
// individual lookups; empty strings mean platform defaults.
func Inspect(dataDirOverride, daemonOverride, desktopOverride string) Report {
	dataDir := strings.TrimSpace(dataDirOverride)
	if dataDir == "" {
		dataDir = DataDir()
	}
	report := Report{
		DataDir:       dataDir,
		ConfPresent:   fileutil.FileExists(ConfPath(dataDir)),
		WalletPresent: fileutil.FileExists(WalletPath(dataDir)),
	}
	if path, err := DaemonPath(daemonOverride); err != nil {
		report.DaemonBinaryError = err.Error()
	} else {
		report.DaemonBinary = path
	}
	if path, err := DesktopAppPath(desktopOverride); err != nil {
		report.DesktopAppError = err.Error()
	} else {
		report.DesktopApp = path
	}
	return report
}
