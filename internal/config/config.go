// Package config resolves the wacli store directory and device identity.
package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvStoreDir overrides the default store directory.
	EnvStoreDir = "WACLI_STORE_DIR"
	// EnvDeviceLabel sets the companion device name shown in the phone's
	// linked-devices list. Applied before pairing.
	EnvDeviceLabel = "WACLI_DEVICE_LABEL"
	// EnvDevicePlatform picks the companion platform enum (e.g. "firefox").
	EnvDevicePlatform = "WACLI_DEVICE_PLATFORM"
)

// DefaultStoreDir returns the store directory used when --store-dir is not
// given: $WACLI_STORE_DIR, then $XDG_DATA_HOME/wacli, then ~/.wacli.
func DefaultStoreDir() string {
	if dir := os.Getenv(EnvStoreDir); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "wacli")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".wacli"
	}
	return filepath.Join(home, ".wacli")
}
