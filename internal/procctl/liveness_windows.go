//go:build windows

package procctl

import "os"

// processAlive reports whether a process with the given pid exists. On
// Windows FindProcess opens a real handle and fails for exited processes.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	proc.Release()
	return true
}
