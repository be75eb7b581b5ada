package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/mattmezza/wacli/internal/app"
	"github.com/mattmezza/wacli/internal/config"
	"github.com/mattmezza/wacli/internal/errs"
	"github.com/mattmezza/wacli/internal/lock"
	"github.com/mattmezza/wacli/internal/out"
)

var version = "dev"

type rootFlags struct {
	storeDir string
	asJSON   bool
	verbose  bool
	timeout  time.Duration
}

func execute(args []string) error {
	var flags rootFlags

	rootCmd := &cobra.Command{
		Use:           "wacli",
		Short:         "Self-hosted WhatsApp session manager with a local searchable mirror",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	rootCmd.SetVersionTemplate("wacli {{.Version}}\n")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errs.ErrInvalidArgument, err)
	})

	rootCmd.PersistentFlags().StringVar(&flags.storeDir, "store-dir", "", "store directory (default: ~/.wacli)")
	rootCmd.PersistentFlags().BoolVar(&flags.asJSON, "json", false, "output JSON instead of human-readable text")
	rootCmd.PersistentFlags().BoolVar(&flags.verbose, "verbose", false, "verbose logging")
	rootCmd.PersistentFlags().DurationVar(&flags.timeout, "timeout", 5*time.Minute, "command timeout (non-sync commands)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newDoctorCmd(&flags))
	rootCmd.AddCommand(newAuthCmd(&flags))
	rootCmd.AddCommand(newSyncCmd(&flags))
	rootCmd.AddCommand(newMessagesCmd(&flags))
	rootCmd.AddCommand(newMediaCmd(&flags))
	rootCmd.AddCommand(newContactsCmd(&flags))
	rootCmd.AddCommand(newChatsCmd(&flags))
	rootCmd.AddCommand(newGroupsCmd(&flags))
	rootCmd.AddCommand(newHistoryCmd(&flags))

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		out.WriteError(os.Stderr, flags.asJSON, err)
		return err
	}
	return nil
}

func newLogger(flags *rootFlags) zerolog.Logger {
	level := zerolog.WarnLevel
	if flags.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(level).
		With().Timestamp().Logger()
}

func newApp(ctx context.Context, flags *rootFlags, needLock bool) (*app.App, *lock.Lock, error) {
	storeDir := flags.storeDir
	if storeDir == "" {
		storeDir = config.DefaultStoreDir()
	}
	storeDir, _ = filepath.Abs(storeDir)

	var lk *lock.Lock
	if needLock {
		var err error
		lk, err = lock.Acquire(storeDir)
		if err != nil {
			return nil, nil, err
		}
	}

	logger := newLogger(flags)
	a, err := app.New(app.Options{
		StoreDir: storeDir,
		Version:  version,
		JSON:     flags.asJSON,
		Logger:   logger,
		WALogger: waLog.Zerolog(logger.With().Str("module", "wa").Logger()),
	})
	if err != nil {
		if lk != nil {
			_ = lk.Release()
		}
		return nil, nil, err
	}

	return a, lk, nil
}

func withTimeout(ctx context.Context, flags *rootFlags) (context.Context, context.CancelFunc) {
	if flags.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, flags.timeout)
}

func closeApp(a *app.App, lk *lock.Lock) {
	if a != nil {
		a.Close()
	}
	if lk != nil {
		_ = lk.Release()
	}
}

func wrapErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}
