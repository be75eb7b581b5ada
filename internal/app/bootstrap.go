package app

import (
	"context"
	"time"

	"go.mau.fi/whatsmeow/types"

	"github.com/mattmezza/wacli/internal/store"
)

// refreshContacts bulk-imports the contact list from the session store into
// the mirror.
func (a *App) refreshContacts(ctx context.Context) error {
	contacts, err := a.wa.GetAllContacts(ctx)
	if err != nil {
		return err
	}
	for jid, info := range contacts {
		if err := a.db.UpsertContact(jid.String(), jid.User, info.PushName, info.FullName, info.FirstName, info.BusinessName); err != nil {
			return err
		}
	}
	a.log.Debug().Int("contacts", len(contacts)).Msg("contacts refreshed")
	return nil
}

// refreshGroups pulls the joined-group list and mirrors each group plus a
// chat row of kind "group".
func (a *App) refreshGroups(ctx context.Context) error {
	groups, err := a.wa.GetJoinedGroups(ctx)
	if err != nil {
		return err
	}
	for _, gi := range groups {
		if gi == nil {
			continue
		}
		if err := a.persistGroupInfo(gi); err != nil {
			return err
		}
		// Zero ts: a metadata refresh must not advance last_message_ts.
		if err := a.db.UpsertChat(gi.JID.String(), "group", gi.GroupName.Name, time.Time{}); err != nil {
			return err
		}
	}
	a.log.Debug().Int("groups", len(groups)).Msg("groups refreshed")
	return nil
}

// persistGroupInfo mirrors a group's metadata and replaces its participant
// roster.
func (a *App) persistGroupInfo(gi *types.GroupInfo) error {
	if err := a.db.UpsertGroup(gi.JID.String(), gi.GroupName.Name, gi.OwnerJID.String(), gi.GroupCreated); err != nil {
		return err
	}
	ps := make([]store.GroupParticipant, 0, len(gi.Participants))
	for _, p := range gi.Participants {
		role := "member"
		if p.IsSuperAdmin {
			role = "superadmin"
		} else if p.IsAdmin {
			role = "admin"
		}
		ps = append(ps, store.GroupParticipant{
			GroupJID: gi.JID.String(),
			UserJID:  p.JID.String(),
			Role:     role,
		})
	}
	return a.db.ReplaceGroupParticipants(gi.JID.String(), ps)
}
