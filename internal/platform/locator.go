// Package platform resolves per-operating-system locations for the Divi Core
// data directory, the divid daemon binary, and the Divi Desktop application.
// It is a pure lookup layer with no state.
package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"divimport/internal/fileutil"
)

// EnvDaemonPath supplies an explicit divid binary path, superseding discovery.
const EnvDaemonPath = "DIVI_DAEMON_PATH"

// DataDir returns the Divi Core data directory for the current platform.
func DataDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "DIVI")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "DIVI")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".divi")
	}
}

// ConfPath returns the divi.conf location inside dataDir.
func ConfPath(dataDir string) string {
	return filepath.Join(dataDir, "divi.conf")
}

// WalletPath returns the wallet.dat location inside dataDir.
func WalletPath(dataDir string) string {
	return filepath.Join(dataDir, "wallet.dat")
}

// DesktopDataDir returns the Divi Desktop data directory, probing the known
// install locations and falling back to the first candidate.
func DesktopDataDir() string {
	home, _ := os.UserHomeDir()
	var candidates []string
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Divi Desktop")
	case "darwin":
		candidates = []string{
			filepath.Join(home, "Library", "Application Support", "Divi Desktop"),
			filepath.Join(home, "Library", "Application Support", "divi-desktop"),
		}
	default:
		candidates = []string{
			filepath.Join(home, ".config", "divi-desktop"),
			filepath.Join(home, ".config", "Divi Desktop"),
			filepath.Join(home, ".local", "share", "Divi Desktop"),
		}
	}
	for _, candidate := range candidates {
		if fileutil.DirExists(candidate) {
			return candidate
		}
	}
	return candidates[0]
}

// DaemonPath resolves the divid binary. Resolution order: EnvDaemonPath,
// the explicit override, then platform-specific locations under the Divi
// Desktop data directory. The returned error lists every searched path and
// names the override variable.
func DaemonPath(override string) (string, error) {
	if env := strings.TrimSpace(os.Getenv(EnvDaemonPath)); env != "" && fileutil.FileExists(env) {
		return env, nil
	}
	if override = strings.TrimSpace(override); override != "" && fileutil.FileExists(override) {
		return override, nil
	}

	candidates := daemonCandidates(DesktopDataDir())
	for _, candidate := range candidates {
		if fileutil.FileExists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("divid binary not found; searched %s (set %s to override)",
		strings.Join(candidates, ", "), EnvDaemonPath)
}

func daemonCandidates(desktopData string) []string {
	unpacked := filepath.Join(desktopData, "divid", "unpacked")
	switch runtime.GOOS {
	case "windows":
		return []string{
			filepath.Join(unpacked, "divid.exe"),
			filepath.Join(unpacked, "divi_win", "divid.exe"),
			filepath.Join(unpacked, "divi_win_64", "divid.exe"),
		}
	case "darwin":
		return []string{
			filepath.Join(unpacked, "divid"),
			filepath.Join(unpacked, "divi_osx", "divid"),
			filepath.Join(unpacked, "divi_osx_64", "divid"),
			filepath.Join(unpacked, "divi_mac_64", "divid"),
			filepath.Join(unpacked, "divi_darwin_64", "divid"),
		}
	default:
		return []string{
			filepath.Join(unpacked, "divid"),
			filepath.Join(unpacked, "divi_linux", "divid"),
			filepath.Join(unpacked, "divi_linux_64", "divid"),
			filepath.Join(unpacked, "divi_ubuntu", "divid"),
			filepath.Join(unpacked, "divi_ubuntu_64", "divid"),
		}
	}
}

// DesktopAppPath resolves the Divi Desktop executable, honoring the override.
func DesktopAppPath(override string) (string, error) {
	if override = strings.TrimSpace(override); override != "" {
		if fileutil.FileExists(override) || fileutil.DirExists(override) {
			return override, nil
		}
		return "", fmt.Errorf("desktop app not found at configured path %s", override)
	}

	switch runtime.GOOS {
	case "windows":
		path := `C:\Program Files\Divi Desktop\Divi Desktop.exe`
		if fileutil.FileExists(path) {
			return path, nil
		}
		return "", fmt.Errorf("desktop app not found at %s", path)
	case "darwin":
		path := "/Applications/Divi Desktop.app"
		if fileutil.DirExists(path) {
			return path, nil
		}
		return "", fmt.Errorf("desktop app not found at %s", path)
	default:
		candidates := []string{
			"/usr/bin/divi-desktop",
			"/opt/Divi Desktop/divi-desktop",
		}
		for _, candidate := range candidates {
			if fileutil.FileExists(candidate) {
				return candidate, nil
			}
		}
		return "", fmt.Errorf("desktop app not found; searched %s", strings.Join(candidates, ", "))
	}
}

// LaunchArgs returns the argv to launch an application at path.
func LaunchArgs(path string) []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"cmd", "/C", "start", "", path}
	case "darwin":
		return []string{"open", path}
	default:
		if strings.HasSuffix(path, ".app") {
			return []string{"open", path}
		}
		return []string{path}
	}
}

// BrowserArgs returns the argv to open url in the default browser.
func BrowserArgs(url string) []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler", url}
	case "darwin":
		return []string{"open", url}
	default:
		return []string{"xdg-open", url}
	}
}
