package app

import (
	"context"
	"strings"
	"time"

	"go.mau.fi/whatsmeow/types"

	"github.com/mattmezza/wacli/internal/errs"
	"github.com/mattmezza/wacli/internal/store"
	"github.com/mattmezza/wacli/internal/wa"
)

func parseGroupJID(s string) (types.JID, error) {
	jid, err := wa.ParseUserOrJID(s)
	if err != nil {
		return types.JID{}, err
	}
	if !wa.IsGroupJID(jid) {
		return types.JID{}, errs.InvalidArgumentf("%s is not a group JID", jid)
	}
	return jid, nil
}

// RefreshContacts pulls the device's contact list into the mirror.
func (a *App) RefreshContacts(ctx context.Context) error {
	if err := a.ConnectIfNeeded(ctx); err != nil {
		return err
	}
	return a.refreshContacts(ctx)
}

// RefreshGroups pulls joined-group metadata and participants into the mirror.
func (a *App) RefreshGroups(ctx context.Context) error {
	if err := a.ConnectIfNeeded(ctx); err != nil {
		return err
	}
	return a.refreshGroups(ctx)
}

// GroupInfo fetches fresh metadata for one group, persists it, and returns
// the mirrored rows.
func (a *App) GroupInfo(ctx context.Context, groupJID string) (store.Group, []store.GroupParticipant, error) {
	jid, err := parseGroupJID(groupJID)
	if err != nil {
		return store.Group{}, nil, err
	}
	if err := a.ConnectIfNeeded(ctx); err != nil {
		return store.Group{}, nil, err
	}
	gi, err := a.wa.GetGroupInfo(ctx, jid)
	if err != nil {
		return store.Group{}, nil, err
	}
	if gi == nil {
		return store.Group{}, nil, errs.NotFoundf("group %s", jid)
	}
	if err := a.persistGroupInfo(gi); err != nil {
		return store.Group{}, nil, err
	}

	g, err := a.db.GetGroup(jid.String())
	if err != nil {
		if store.IsNotFound(err) {
			return store.Group{}, nil, errs.NotFoundf("group %s", jid)
		}
		return store.Group{}, nil, err
	}
	participants, err := a.db.ListGroupParticipants(jid.String())
	if err != nil {
		return store.Group{}, nil, err
	}
	return g, participants, nil
}

func (a *App) RenameGroup(ctx context.Context, groupJID, name string) error {
	if strings.TrimSpace(name) == "" {
		return errs.InvalidArgumentf("group name is required")
	}
	jid, err := parseGroupJID(groupJID)
	if err != nil {
		return err
	}
	if err := a.ConnectIfNeeded(ctx); err != nil {
		return err
	}
	if err := a.wa.SetGroupName(ctx, jid, name); err != nil {
		return err
	}
	if gi, err := a.wa.GetGroupInfo(ctx, jid); err == nil && gi != nil {
		_ = a.persistGroupInfo(gi)
	}
	return nil
}

func (a *App) LeaveGroup(ctx context.Context, groupJID string) error {
	jid, err := parseGroupJID(groupJID)
	if err != nil {
		return err
	}
	if err := a.ConnectIfNeeded(ctx); err != nil {
		return err
	}
	return a.wa.LeaveGroup(ctx, jid)
}

// UpdateGroupParticipants adds, removes, promotes, or demotes members and
// refreshes the mirrored participant list afterwards.
func (a *App) UpdateGroupParticipants(ctx context.Context, groupJID string, users []string, action wa.GroupParticipantAction) ([]types.GroupParticipant, error) {
	jid, err := parseGroupJID(groupJID)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, errs.InvalidArgumentf("at least one user is required")
	}
	userJIDs := make([]types.JID, 0, len(users))
	for _, u := range users {
		uj, err := wa.ParseUserOrJID(u)
		if err != nil {
			return nil, err
		}
		userJIDs = append(userJIDs, uj)
	}

	if err := a.ConnectIfNeeded(ctx); err != nil {
		return nil, err
	}
	res, err := a.wa.UpdateGroupParticipants(ctx, jid, userJIDs, action)
	if err != nil {
		return nil, err
	}
	if gi, err := a.wa.GetGroupInfo(ctx, jid); err == nil && gi != nil {
		_ = a.persistGroupInfo(gi)
	}
	return res, nil
}

func (a *App) GroupInviteLink(ctx context.Context, groupJID string, reset bool) (string, error) {
	jid, err := parseGroupJID(groupJID)
	if err != nil {
		return "", err
	}
	if err := a.ConnectIfNeeded(ctx); err != nil {
		return "", err
	}
	return a.wa.GetGroupInviteLink(ctx, jid, reset)
}

// JoinGroup joins via an invite code or full invite URL and mirrors the new
// group.
func (a *App) JoinGroup(ctx context.Context, code string) (types.JID, error) {
	code = strings.TrimSpace(code)
	code = strings.TrimPrefix(code, "https://chat.whatsapp.com/")
	if code == "" {
		return types.JID{}, errs.InvalidArgumentf("invite code is required")
	}
	if err := a.ConnectIfNeeded(ctx); err != nil {
		return types.JID{}, err
	}
	jid, err := a.wa.JoinGroupWithLink(ctx, code)
	if err != nil {
		return types.JID{}, err
	}
	if gi, err := a.wa.GetGroupInfo(ctx, jid); err == nil && gi != nil {
		_ = a.persistGroupInfo(gi)
		_ = a.db.UpsertChat(jid.String(), "group", gi.Name, time.Time{})
	}
	return jid, nil
}
