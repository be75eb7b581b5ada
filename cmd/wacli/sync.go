package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mattmezza/wacli/internal/app"
	"github.com/mattmezza/wacli/internal/errs"
	"github.com/mattmezza/wacli/internal/out"
)

func newSyncCmd(flags *rootFlags) *cobra.Command {
	var once bool
	var follow bool
	var idleExit time.Duration
	var downloadMedia bool
	var refreshContacts bool
	var refreshGroups bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Connect and mirror messages into the local DB",
		Long: "Connects with the paired session and stores incoming messages and history " +
			"syncs. Default is a one-shot sync that exits after the connection goes idle; " +
			"--follow keeps running until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if once && follow {
				return errs.InvalidArgumentf("--once and --follow are mutually exclusive")
			}
			mode := app.SyncModeOnce
			if follow {
				mode = app.SyncModeFollow
			}

			// Sync runs for as long as the user wants; no command timeout.
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, lk, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer closeApp(a, lk)

			if err := a.EnsureAuthed(); err != nil {
				return err
			}

			res, err := a.Sync(ctx, app.SyncOptions{
				Mode:            mode,
				AllowQR:         false,
				DownloadMedia:   downloadMedia,
				RefreshContacts: refreshContacts,
				RefreshGroups:   refreshGroups,
				IdleExit:        idleExit,
			})
			if err != nil {
				return wrapErr(err, "sync failed")
			}

			if flags.asJSON {
				return out.WriteJSON(os.Stdout, res)
			}
			fmt.Fprintf(os.Stdout, "Synced %d messages.\n", res.MessagesStored)
			if downloadMedia {
				fmt.Fprintf(os.Stdout, "Media: %d downloaded, %d queued, %d dropped.\n",
					res.MediaDownloaded, res.MediaEnqueued, res.MediaDropped)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "sync once and exit when idle (default)")
	cmd.Flags().BoolVar(&follow, "follow", false, "keep running and reconnect on drops")
	cmd.Flags().DurationVar(&idleExit, "idle-exit", 30*time.Second, "idle period before a one-shot sync exits")
	cmd.Flags().BoolVar(&downloadMedia, "download-media", false, "download media for mirrored messages")
	cmd.Flags().BoolVar(&refreshContacts, "refresh-contacts", false, "import the device contact list after connecting")
	cmd.Flags().BoolVar(&refreshGroups, "refresh-groups", false, "import joined-group metadata after connecting")
	return cmd
}
