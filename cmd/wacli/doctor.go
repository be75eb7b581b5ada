package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mattmezza/wacli/internal/config"
	"github.com/mattmezza/wacli/internal/errs"
	"github.com/mattmezza/wacli/internal/lock"
	"github.com/mattmezza/wacli/internal/out"
)

type doctorReport struct {
	StoreDir      string `json:"store_dir"`
	StoreExists   bool   `json:"store_exists"`
	LockHeld      bool   `json:"lock_held"`
	LockInfo      string `json:"lock_info,omitempty"`
	DBOpen        bool   `json:"db_open"`
	DBError       string `json:"db_error,omitempty"`
	Messages      int64  `json:"messages"`
	FTSEnabled    bool   `json:"fts_enabled"`
	Authenticated bool   `json:"authenticated"`
	Connected     bool   `json:"connected,omitempty"`
	ConnectError  string `json:"connect_error,omitempty"`
	State         string `json:"state,omitempty"`
}

func newDoctorCmd(flags *rootFlags) *cobra.Command {
	var tryConnect bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check store, lock, DB, and session health",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(context.Background(), flags)
			defer cancel()

			storeDir := flags.storeDir
			if storeDir == "" {
				storeDir = config.DefaultStoreDir()
			}
			storeDir, _ = filepath.Abs(storeDir)

			rep := doctorReport{StoreDir: storeDir}
			if st, err := os.Stat(storeDir); err == nil && st.IsDir() {
				rep.StoreExists = true
			}

			// Probe the lock without holding it: another wacli may be
			// syncing right now and that is fine.
			if lk, err := lock.Acquire(storeDir); err != nil {
				if errors.Is(err, errs.ErrLockHeld) {
					rep.LockHeld = true
					rep.LockInfo = lock.ReadInfo(storeDir)
				}
			} else {
				_ = lk.Release()
			}

			a, _, err := newApp(ctx, flags, false)
			if err != nil {
				rep.DBError = err.Error()
				return reportDoctor(flags, rep)
			}
			defer closeApp(a, nil)
			rep.DBOpen = true
			rep.Messages, _ = a.DB().CountMessages()
			rep.FTSEnabled = a.DB().HasFTS()

			if err := a.OpenWA(); err != nil {
				rep.ConnectError = err.Error()
				return reportDoctor(flags, rep)
			}
			rep.Authenticated = a.WA().IsAuthed()

			if tryConnect && rep.Authenticated && !rep.LockHeld {
				if err := a.Connect(ctx, false, nil); err != nil {
					rep.ConnectError = err.Error()
				} else {
					rep.Connected = a.WA().IsConnected()
				}
			}
			rep.State = string(a.State())

			return reportDoctor(flags, rep)
		},
	}

	cmd.Flags().BoolVar(&tryConnect, "connect", false, "also try connecting to the server")
	return cmd
}

func reportDoctor(flags *rootFlags, rep doctorReport) error {
	if flags.asJSON {
		return out.WriteJSON(os.Stdout, rep)
	}

	check := func(ok bool, label, detail string) {
		mark := "ok"
		if !ok {
			mark = "!!"
		}
		if detail != "" {
			fmt.Fprintf(os.Stdout, "[%s] %s (%s)\n", mark, label, detail)
		} else {
			fmt.Fprintf(os.Stdout, "[%s] %s\n", mark, label)
		}
	}

	fmt.Fprintf(os.Stdout, "Store: %s\n", rep.StoreDir)
	check(rep.StoreExists, "store directory exists", "")
	if rep.LockHeld {
		check(false, "store lock is held by another process", rep.LockInfo)
	} else {
		check(true, "store lock is free", "")
	}
	check(rep.DBOpen, "database opens", rep.DBError)
	if rep.DBOpen {
		fmt.Fprintf(os.Stdout, "     %d messages mirrored\n", rep.Messages)
		check(rep.FTSEnabled, "full-text search (FTS5)", "falls back to LIKE when missing")
	}
	check(rep.Authenticated, "paired with a phone", "run `wacli auth` to pair")
	if rep.ConnectError != "" {
		check(false, "connect", rep.ConnectError)
	} else if rep.Connected {
		check(true, "connected to server", "")
	}
	return nil
}
