package infra

import (
	"os"
	"path/filepath"
	"runtime"
)

// DataDir resolves the per-user data directory for durable files
// (sqlite database, alert rules, workspace snapshot). An explicit
// LONGBRIDGE_DATA_DIR overrides OS conventions; useful in tests.
func DataDir() (string, error) {
	if dir := os.Getenv("LONGBRIDGE_DATA_DIR"); dir != "" {
		return dir, nil
	}

	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "LongbridgeTerminal"), nil
}
