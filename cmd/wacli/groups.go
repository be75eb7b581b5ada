package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mattmezza/wacli/internal/errs"
	"github.com/mattmezza/wacli/internal/out"
	"github.com/mattmezza/wacli/internal/wa"
)

func newGroupsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List and manage groups",
	}
	cmd.AddCommand(newGroupsListCmd(flags))
	cmd.AddCommand(newGroupsRefreshCmd(flags))
	cmd.AddCommand(newGroupsInfoCmd(flags))
	cmd.AddCommand(newGroupsRenameCmd(flags))
	cmd.AddCommand(newGroupsLeaveCmd(flags))
	cmd.AddCommand(newGroupsParticipantsCmd(flags))
	cmd.AddCommand(newGroupsInviteCmd(flags))
	cmd.AddCommand(newGroupsJoinCmd(flags))
	return cmd
}

func newGroupsListCmd(flags *rootFlags) *cobra.Command {
	var query string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List groups from the local DB",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(context.Background(), flags)
			defer cancel()

			a, lk, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer closeApp(a, lk)

			groups, err := a.DB().ListGroups(query, limit)
			if err != nil {
				return err
			}

			if flags.asJSON {
				return out.WriteJSON(os.Stdout, map[string]any{"groups": groups})
			}

			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CREATED\tNAME\tJID")
			for _, g := range groups {
				created := "-"
				if !g.CreatedAt.IsZero() {
					created = g.CreatedAt.Local().Format("2006-01-02")
				}
				name := g.Name
				if name == "" {
					name = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", created, truncate(name, 40), g.JID)
			}
			_ = w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "filter by name or JID")
	cmd.Flags().IntVar(&limit, "limit", 50, "limit results")
	return cmd
}

func newGroupsRefreshCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Import joined-group metadata (requires prior auth)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(context.Background(), flags)
			defer cancel()

			a, lk, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer closeApp(a, lk)

			if err := a.RefreshGroups(ctx); err != nil {
				return wrapErr(err, "refresh groups failed")
			}
			if !flags.asJSON {
				fmt.Fprintln(os.Stdout, "Groups refreshed.")
			}
			return nil
		},
	}
}

func newGroupsInfoCmd(flags *rootFlags) *cobra.Command {
	var jid string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show group metadata and participants (fetches fresh data)",
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

			g, participants, err := a.GroupInfo(ctx, jid)
			if err != nil {
				return err
			}

			if flags.asJSON {
				return out.WriteJSON(os.Stdout, map[string]any{
					"group":        g,
					"participants": participants,
				})
			}

			fmt.Fprintf(os.Stdout, "Name: %s\n", g.Name)
			fmt.Fprintf(os.Stdout, "JID: %s\n", g.JID)
			if g.OwnerJID != "" {
				fmt.Fprintf(os.Stdout, "Owner: %s\n", g.OwnerJID)
			}
			if !g.CreatedAt.IsZero() {
				fmt.Fprintf(os.Stdout, "Created: %s\n", g.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			}
			fmt.Fprintf(os.Stdout, "Participants (%d):\n", len(participants))
			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			for _, p := range participants {
				fmt.Fprintf(w, "  %s\t%s\n", p.Role, p.UserJID)
			}
			_ = w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&jid, "jid", "", "group JID")
	return cmd
}

func newGroupsRenameCmd(flags *rootFlags) *cobra.Command {
	var jid string
	var name string

	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Rename a group",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jid == "" || name == "" {
				return errs.InvalidArgumentf("--jid and --name are required")
			}

			ctx, cancel := withTimeout(context.Background(), flags)
			defer cancel()

			a, lk, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer closeApp(a, lk)

			if err := a.RenameGroup(ctx, jid, name); err != nil {
				return wrapErr(err, "rename failed")
			}
			if !flags.asJSON {
				fmt.Fprintf(os.Stdout, "Group renamed to %q.\n", name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&jid, "jid", "", "group JID")
	cmd.Flags().StringVar(&name, "name", "", "new group name")
	return cmd
}

func newGroupsLeaveCmd(flags *rootFlags) *cobra.Command {
	var jid string

	cmd := &cobra.Command{
		Use:   "leave",
		Short: "Leave a group",
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

			if err := a.LeaveGroup(ctx, jid); err != nil {
				return wrapErr(err, "leave failed")
			}
			if !flags.asJSON {
				fmt.Fprintf(os.Stdout, "Left %s.\n", jid)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&jid, "jid", "", "group JID")
	return cmd
}

func newGroupsParticipantsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "participants",
		Short: "Add, remove, promote, or demote group members",
	}

	actionCmd := func(use, short string, action wa.GroupParticipantAction) *cobra.Command {
		var jid string
		c := &cobra.Command{
			Use:   use + " <user>...",
			Short: short,
			Args:  cobra.MinimumNArgs(1),
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

				res, err := a.UpdateGroupParticipants(ctx, jid, args, action)
				if err != nil {
					return wrapErr(err, "participant update failed")
				}

				if flags.asJSON {
					return out.WriteJSON(os.Stdout, map[string]any{"participants": res})
				}
				for _, p := range res {
					if p.Error != 0 {
						fmt.Fprintf(os.Stdout, "%s: error %d\n", p.JID, p.Error)
					} else {
						fmt.Fprintf(os.Stdout, "%s: ok\n", p.JID)
					}
				}
				return nil
			},
		}
		c.Flags().StringVar(&jid, "jid", "", "group JID")
		return c
	}

	cmd.AddCommand(
		actionCmd("add", "Add members", wa.GroupParticipantAdd),
		actionCmd("remove", "Remove members", wa.GroupParticipantRemove),
		actionCmd("promote", "Promote members to admin", wa.GroupParticipantPromote),
		actionCmd("demote", "Demote admins to member", wa.GroupParticipantDemote),
	)
	return cmd
}

func newGroupsInviteCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Manage the group invite link",
	}

	linkCmd := func(use, short string, reset bool) *cobra.Command {
		var jid string
		c := &cobra.Command{
			Use:   use,
			Short: short,
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

				link, err := a.GroupInviteLink(ctx, jid, reset)
				if err != nil {
					return wrapErr(err, "invite link failed")
				}

				if flags.asJSON {
					return out.WriteJSON(os.Stdout, map[string]any{"link": link})
				}
				fmt.Fprintln(os.Stdout, link)
				return nil
			},
		}
		c.Flags().StringVar(&jid, "jid", "", "group JID")
		return c
	}

	cmd.AddCommand(
		linkCmd("link", "Print the current invite link", false),
		linkCmd("revoke", "Revoke the link and print a fresh one", true),
	)
	return cmd
}

func newGroupsJoinCmd(flags *rootFlags) *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join a group via invite code or link",
		RunE: func(cmd *cobra.Command, args []string) error {
			if code == "" {
				return errs.InvalidArgumentf("--code is required")
			}

			ctx, cancel := withTimeout(context.Background(), flags)
			defer cancel()

			a, lk, err := newApp(ctx, flags, true)
			if err != nil {
				return err
			}
			defer closeApp(a, lk)

			jid, err := a.JoinGroup(ctx, code)
			if err != nil {
				return wrapErr(err, "join failed")
			}

			if flags.asJSON {
				return out.WriteJSON(os.Stdout, map[string]any{"jid": jid.String()})
			}
			fmt.Fprintf(os.Stdout, "Joined %s.\n", jid)
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "invite code or https://chat.whatsapp.com/... link")
	return cmd
}
