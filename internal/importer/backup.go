package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"divimport/internal/fileutil"
	"divimport/internal/platform"
)

// BackupWallet copies wallet.dat aside with a timestamp suffix before the
// recovery overwrites it. A missing wallet is not an error; the returned path
// is empty when nothing was backed up.
func BackupWallet(dataDir string) (string, error) {
	src := platform.WalletPath(dataDir)
	if !fileutil.FileExists(src) {
		return "", nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("read wallet: %w", err)
	}
	dst := fmt.Sprintf("%s.%s.bak", src, time.Now().UTC().Format("20060102T150405"))
	if err := fileutil.WriteFileAtomic(dst, data, 0o600); err != nil {
		return "", fmt.Errorf("write wallet backup: %w", err)
	}
	return dst, nil
}

// RemoveStaleTxIndex deletes a leftover divitxs.db so divid rebuilds the
// transaction index against the recreated wallet. Reports whether a file
// was removed.
func RemoveStaleTxIndex(dataDir string) (bool, error) {
	path := filepath.Join(dataDir, "divitxs.db")
	if !fileutil.FileExists(path) {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, fmt.Errorf("remove stale tx index: %w", err)
	}
	return true, nil
}
