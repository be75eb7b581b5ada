package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mattmezza/wacli/internal/errs"
	"github.com/mattmezza/wacli/internal/out"
	"github.com/mattmezza/wacli/internal/store"
	"github.com/mattmezza/wacli/internal/wa"
)

func newContactsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Search and annotate contacts in the local DB",
	}
	cmd.AddCommand(newContactsSearchCmd(flags))
	cmd.AddCommand(newContactsShowCmd(flags))
	cmd.AddCommand(newContactsRefreshCmd(flags))
	cmd.AddCommand(newContactsAliasCmd(flags))
	cmd.AddCommand(newContactsTagsCmd(flags))
	return cmd
}

// normalizeUserJID accepts a phone number or a full JID and returns the
// canonical JID string used as the contacts key.
func normalizeUserJID(s string) (string, error) {
	jid, err := wa.ParseUserOrJID(s)
	if err != nil {
		return "", err
	}
	return jid.ToNonAD().String(), nil
}

func newContactsSearchCmd(flags *rootFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search contacts by name, alias, tag, or phone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(context.Background(), flags)
			defer cancel()

			a, lk, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer closeApp(a, lk)

			contacts, err := a.DB().SearchContacts(args[0], limit)
			if err != nil {
				return err
			}

			if flags.asJSON {
				return out.WriteJSON(os.Stdout, map[string]any{"contacts": contacts})
			}

			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tALIAS\tTAGS\tJID")
			for _, c := range contacts {
				name := c.Name
				if name == "" {
					name = "-"
				}
				alias := c.Alias
				if alias == "" {
					alias = "-"
				}
				tags := "-"
				if len(c.Tags) > 0 {
					tags = strings.Join(c.Tags, ",")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", truncate(name, 28), truncate(alias, 16), truncate(tags, 24), c.JID)
			}
			_ = w.Flush()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "limit results")
	return cmd
}

func newContactsShowCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <jid-or-phone>",
		Short: "Show one contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jid, err := normalizeUserJID(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(context.Background(), flags)
			defer cancel()

			a, lk, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer closeApp(a, lk)

			c, err := a.DB().GetContact(jid)
			if err != nil {
				if store.IsNotFound(err) {
					return errs.NotFoundf("contact %s", jid)
				}
				return err
			}

			if flags.asJSON {
				return out.WriteJSON(os.Stdout, c)
			}

			fmt.Fprintf(os.Stdout, "JID: %s\n", c.JID)
			if c.Phone != "" {
				fmt.Fprintf(os.Stdout, "Phone: %s\n", c.Phone)
			}
			fmt.Fprintf(os.Stdout, "Name: %s\n", c.Name)
			if c.Alias != "" {
				fmt.Fprintf(os.Stdout, "Alias: %s\n", c.Alias)
			}
			if len(c.Tags) > 0 {
				fmt.Fprintf(os.Stdout, "Tags: %s\n", strings.Join(c.Tags, ", "))
			}
			return nil
		},
	}
	return cmd
}

func newContactsRefreshCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Import the device contact list (requires prior auth)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(context.Background(), flags)
			defer cancel()

			a, lk, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer closeApp(a, lk)

			if err := a.RefreshContacts(ctx); err != nil {
				return wrapErr(err, "refresh contacts failed")
			}
			if !flags.asJSON {
				fmt.Fprintln(os.Stdout, "Contacts refreshed.")
			}
			return nil
		},
	}
}

func newContactsAliasCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alias",
		Short: "Manage contact aliases",
	}

	set := &cobra.Command{
		Use:   "set <jid-or-phone> <alias>",
		Short: "Set an alias",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jid, err := normalizeUserJID(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(context.Background(), flags)
			defer cancel()

			a, lk, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer closeApp(a, lk)

			if err := a.DB().SetAlias(jid, args[1]); err != nil {
				return err
			}
			if !flags.asJSON {
				fmt.Fprintf(os.Stdout, "Alias for %s set to %q.\n", jid, args[1])
			}
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm <jid-or-phone>",
		Short: "Remove an alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jid, err := normalizeUserJID(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(context.Background(), flags)
			defer cancel()

			a, lk, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer closeApp(a, lk)

			if err := a.DB().RemoveAlias(jid); err != nil {
				return err
			}
			if !flags.asJSON {
				fmt.Fprintf(os.Stdout, "Alias for %s removed.\n", jid)
			}
			return nil
		},
	}

	cmd.AddCommand(set, rm)
	return cmd
}

func newContactsTagsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage contact tags",
	}

	add := &cobra.Command{
		Use:   "add <jid-or-phone> <tag>",
		Short: "Add a tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jid, err := normalizeUserJID(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(context.Background(), flags)
			defer cancel()

			a, lk, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer closeApp(a, lk)

			if err := a.DB().AddTag(jid, args[1]); err != nil {
				return err
			}
			if !flags.asJSON {
				fmt.Fprintf(os.Stdout, "Tag %q added to %s.\n", args[1], jid)
			}
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm <jid-or-phone> <tag>",
		Short: "Remove a tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jid, err := normalizeUserJID(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(context.Background(), flags)
			defer cancel()

			a, lk, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer closeApp(a, lk)

			if err := a.DB().RemoveTag(jid, args[1]); err != nil {
				return err
			}
			if !flags.asJSON {
				fmt.Fprintf(os.Stdout, "Tag %q removed from %s.\n", args[1], jid)
			}
			return nil
		},
	}

	cmd.AddCommand(add, rm)
	return cmd
}
