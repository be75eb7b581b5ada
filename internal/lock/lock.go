// Package lock serializes access to a wacli store directory with an
// advisory flock on <store>/LOCK. The lock file body carries a
// human-readable owner hint that `wacli doctor` surfaces on contention.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/mattmezza/wacli/internal/errs"
)

// FileName is the lock file's name inside the store directory.
const FileName = "LOCK"

// Lock is a held store lock. Release is idempotent.
type Lock struct {
	f    *os.File
	path string
}

// Acquire takes the store lock without blocking. On contention it returns an
// error wrapping errs.ErrLockHeld, with the owner hint from the lock file
// body when one is readable.
func Acquire(storeDir string) (*Lock, error) {
	if err := os.MkdirAll(storeDir, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	path := filepath.Join(storeDir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
			hint := ReadInfo(storeDir)
			if hint != "" {
				return nil, fmt.Errorf("%w by %s", errs.ErrLockHeld, hint)
			}
			return nil, errs.ErrLockHeld
		}
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}

	info := fmt.Sprintf("pid=%d cmd=%s acquired=%s\n",
		os.Getpid(),
		filepath.Base(os.Args[0]),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(info), 0)
		_ = f.Sync()
	}
	return &Lock{f: f, path: path}, nil
}

// Release drops the lock. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	return f.Close()
}

// ReadInfo returns the owner hint recorded in the lock file, or "" when the
// file is absent or empty.
func ReadInfo(storeDir string) string {
	b, err := os.ReadFile(filepath.Join(storeDir, FileName))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
