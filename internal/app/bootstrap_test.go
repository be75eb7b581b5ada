package app

import (
	"context"
	"testing"
	"time"

	"go.mau.fi/whatsmeow/types"
)

func TestRefreshContactsStoresContacts(t *testing.T) {
	a := newTestApp(t)
	f := newFakeWA()
	a.wa = f

	jid := types.JID{User: "111", Server: types.DefaultUserServer}
	f.contacts[jid] = types.ContactInfo{
		Found:    true,
		FullName: "Alice Example",
		PushName: "Alice",
	}

	if err := a.refreshContacts(context.Background()); err != nil {
		t.Fatalf("refreshContacts: %v", err)
	}

	c, err := a.db.GetContact(jid.String())
	if err != nil {
		t.Fatalf("GetContact: %v", err)
	}
	if c.Name != "Alice Example" {
		t.Fatalf("expected full name, got %q", c.Name)
	}
}

func TestRefreshGroupsStoresGroupsAndChats(t *testing.T) {
	a := newTestApp(t)
	f := newFakeWA()
	a.wa = f

	gid := types.JID{User: "999", Server: types.GroupServer}
	owner := types.JID{User: "111", Server: types.DefaultUserServer}
	f.groups[gid] = &types.GroupInfo{
		JID:          gid,
		OwnerJID:     owner,
		GroupName:    types.GroupName{Name: "Team"},
		GroupCreated: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		Participants: []types.GroupParticipant{
			{JID: owner, IsSuperAdmin: true},
			{JID: types.JID{User: "222", Server: types.DefaultUserServer}},
		},
	}

	if err := a.refreshGroups(context.Background()); err != nil {
		t.Fatalf("refreshGroups: %v", err)
	}

	gs, err := a.db.ListGroups("Team", 10)
	if err != nil {
		t.Fatalf("ListGroups: %v", err)
	}
	if len(gs) != 1 || gs[0].JID != gid.String() {
		t.Fatalf("expected group stored, got %+v", gs)
	}

	chat, err := a.db.GetChat(gid.String())
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if chat.Kind != "group" {
		t.Fatalf("expected chat kind group, got %q", chat.Kind)
	}

	ps, err := a.db.ListGroupParticipants(gid.String())
	if err != nil {
		t.Fatalf("ListGroupParticipants: %v", err)
	}
	if len(ps) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(ps))
	}
	roles := map[string]string{}
	for _, p := range ps {
		roles[p.UserJID] = p.Role
	}
	if roles[owner.String()] != "superadmin" {
		t.Fatalf("expected owner role superadmin, got %q", roles[owner.String()])
	}
}

func TestRefreshGroupsKeepsChatRecency(t *testing.T) {
	a := newTestApp(t)
	f := newFakeWA()
	a.wa = f

	gid := types.JID{User: "999", Server: types.GroupServer}
	f.groups[gid] = &types.GroupInfo{JID: gid, GroupName: types.GroupName{Name: "Team"}}

	lastMsg := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	storeUpsertMessage(t, a, gid.String(), "m1", lastMsg, "hello")

	if err := a.refreshGroups(context.Background()); err != nil {
		t.Fatalf("refreshGroups: %v", err)
	}

	chat, err := a.db.GetChat(gid.String())
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if !chat.LastMessageTS.Equal(lastMsg) {
		t.Fatalf("refresh moved last_message_ts: got %s want %s", chat.LastMessageTS, lastMsg)
	}
}
