package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"github.com/mattmezza/wacli/internal/out"
)

func newAuthCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Pair this machine with your phone",
		Long:  "Starts a QR pairing flow. Scan the code with WhatsApp on your phone (Linked Devices).",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(context.Background(), flags)
			defer cancel()

			a, lk, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer closeApp(a, lk)

			if err := a.OpenWA(); err != nil {
				return err
			}
			if a.WA().IsAuthed() {
				fmt.Fprintln(os.Stdout, "Already paired. Run `wacli auth logout` first to re-pair.")
				return nil
			}

			err = a.Connect(ctx, true, func(code string) {
				if isTTY(os.Stdout) {
					fmt.Fprintln(os.Stdout, "Scan this QR code with your phone:")
					qrterminal.GenerateHalfBlock(code, qrterminal.L, os.Stdout)
				} else {
					fmt.Fprintf(os.Stdout, "QR code: %s\n", code)
				}
			})
			if err != nil {
				return wrapErr(err, "pairing failed")
			}

			fmt.Fprintln(os.Stdout, "Paired. Run `wacli sync --follow` to start mirroring.")
			return nil
		},
	}
	cmd.AddCommand(newAuthStatusCmd(flags))
	cmd.AddCommand(newAuthLogoutCmd(flags))
	return cmd
}

func newAuthStatusCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether this machine is paired",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(context.Background(), flags)
			defer cancel()

			a, lk, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer closeApp(a, lk)

			if err := a.OpenWA(); err != nil {
				return err
			}
			authed := a.WA().IsAuthed()

			if flags.asJSON {
				return out.WriteJSON(os.Stdout, map[string]any{"authenticated": authed})
			}
			if authed {
				fmt.Fprintln(os.Stdout, "Paired.")
			} else {
				fmt.Fprintln(os.Stdout, "Not paired. Run `wacli auth`.")
			}
			return nil
		},
	}
}

func newAuthLogoutCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Unlink this device (keeps the local mirror)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(context.Background(), flags)
			defer cancel()

			a, lk, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer closeApp(a, lk)

			if err := a.Logout(ctx); err != nil {
				return wrapErr(err, "logout failed")
			}
			fmt.Fprintln(os.Stdout, "Logged out. The local mirror was kept.")
			return nil
		},
	}
}
