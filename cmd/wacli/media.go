package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mattmezza/wacli/internal/errs"
	"github.com/mattmezza/wacli/internal/out"
)

func newMediaCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Download media for mirrored messages",
	}
	cmd.AddCommand(newMediaDownloadCmd(flags))
	return cmd
}

func newMediaDownloadCmd(flags *rootFlags) *cobra.Command {
	var chat string
	var id string
	var output string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download one message's media (requires prior auth)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if chat == "" || id == "" {
				return errs.InvalidArgumentf("--chat and --id are required")
			}

			ctx, cancel := withTimeout(context.Background(), flags)
			defer cancel()

			a, lk, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer closeApp(a, lk)

			if err := a.ConnectIfNeeded(ctx); err != nil {
				return err
			}

			info, path, err := a.DownloadMedia(ctx, chat, id, output)
			if err != nil {
				return wrapErr(err, "download failed")
			}

			if flags.asJSON {
				return out.WriteJSON(os.Stdout, map[string]any{
					"media": info,
					"path":  path,
				})
			}
			fmt.Fprintf(os.Stdout, "Saved %s media to %s\n", info.MediaType, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&chat, "chat", "", "chat JID")
	cmd.Flags().StringVar(&id, "id", "", "message ID")
	cmd.Flags().StringVar(&output, "output", "", "output file or directory (default: <store>/media/YYYY/MM/)")
	return cmd
}
