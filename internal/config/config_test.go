package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultStoreDirEnvOverride(t *testing.T) {
	t.Setenv(EnvStoreDir, "/tmp/custom-store")
	if got := DefaultStoreDir(); got != "/tmp/custom-store" {
		t.Fatalf("expected env override, got %q", got)
	}
}

func TestDefaultStoreDirXDG(t *testing.T) {
	t.Setenv(EnvStoreDir, "")
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg")
	want := filepath.Join("/tmp/xdg", "wacli")
	if got := DefaultStoreDir(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestDefaultStoreDirHome(t *testing.T) {
	t.Setenv(EnvStoreDir, "")
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", "/tmp/home")
	want := filepath.Join("/tmp/home", ".wacli")
	if got := DefaultStoreDir(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
