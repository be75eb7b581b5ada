package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mattmezza/wacli/internal/errs"
	"github.com/mattmezza/wacli/internal/out"
	"github.com/mattmezza/wacli/internal/store"
)

func newChatsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List and inspect chats from the local DB",
	}
	cmd.AddCommand(newChatsListCmd(flags))
	cmd.AddCommand(newChatsShowCmd(flags))
	return cmd
}

func newChatsShowCmd(flags *rootFlags) *cobra.Command {
	var jid string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jid == "" {
				return errs.InvalidArgumentf("--jid is required")
			}

			ctx, cancel := withTimeout(context.Background(), flags)
			defer cancel()

			a, lk, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer closeApp(a, lk)

			c, err := a.DB().GetChat(jid)
			if err != nil {
				if store.IsNotFound(err) {
					return errs.NotFoundf("chat %s", jid)
				}
				return err
			}

			if flags.asJSON {
				return out.WriteJSON(os.Stdout, c)
			}

			fmt.Fprintf(os.Stdout, "JID: %s\n", c.JID)
			fmt.Fprintf(os.Stdout, "Kind: %s\n", c.Kind)
			if c.Name != "" {
				fmt.Fprintf(os.Stdout, "Name: %s\n", c.Name)
			}
			if !c.LastMessageTS.IsZero() {
				fmt.Fprintf(os.Stdout, "Last message: %s\n", c.LastMessageTS.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&jid, "jid", "", "chat JID")
	return cmd
}

func newChatsListCmd(flags *rootFlags) *cobra.Command {
	var query string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List chats by recency",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(context.Background(), flags)
			defer cancel()

			a, lk, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer closeApp(a, lk)

			chats, err := a.DB().ListChats(query, limit)
			if err != nil {
				return err
			}

			if flags.asJSON {
				return out.WriteJSON(os.Stdout, map[string]any{"chats": chats})
			}

			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LAST MESSAGE\tKIND\tNAME\tJID")
			for _, c := range chats {
				name := c.Name
				if name == "" {
					name = "-"
				}
				last := "-"
				if !c.LastMessageTS.IsZero() {
					last = c.LastMessageTS.Local().Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", last, c.Kind, truncate(name, 32), c.JID)
			}
			_ = w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "filter by name or JID")
	cmd.Flags().IntVar(&limit, "limit", 50, "limit results")
	return cmd
}
