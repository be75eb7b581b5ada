package app

import (
	"context"
	"testing"
	"time"

	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/proto/waCommon"
	"go.mau.fi/whatsmeow/proto/waHistorySync"
	"go.mau.fi/whatsmeow/proto/waWeb"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

func onDemandEvent(chat types.JID, end waHistorySync.Conversation_EndOfHistoryTransferType, msgs ...*waWeb.WebMessageInfo) *events.HistorySync {
	wrapped := make([]*waHistorySync.HistorySyncMsg, 0, len(msgs))
	for _, m := range msgs {
		wrapped = append(wrapped, &waHistorySync.HistorySyncMsg{Message: m})
	}
	return &events.HistorySync{
		Data: &waHistorySync.HistorySync{
			SyncType: waHistorySync.HistorySync_ON_DEMAND.Enum(),
			Conversations: []*waHistorySync.Conversation{{
				ID:                       proto.String(chat.String()),
				EndOfHistoryTransferType: end.Enum(),
				Messages:                 wrapped,
			}},
		},
	}
}

func webMessage(chat types.JID, id string, ts time.Time, text string) *waWeb.WebMessageInfo {
	return &waWeb.WebMessageInfo{
		Key: &waCommon.MessageKey{
			RemoteJID: proto.String(chat.String()),
			FromMe:    proto.Bool(false),
			ID:        proto.String(id),
		},
		MessageTimestamp: proto.Uint64(uint64(ts.Unix())),
		Message:          &waProto.Message{Conversation: proto.String(text)},
	}
}

func TestBackfillHistoryAddsOlderMessages(t *testing.T) {
	a := newTestApp(t)
	f := newFakeWA()
	a.wa = f

	chat := types.JID{User: "123", Server: types.DefaultUserServer}
	base := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	storeUpsertMessage(t, a, chat.String(), "m2", base.Add(time.Hour), "newer")

	f.onDemandHistory = func(lastKnown types.MessageInfo, count int) *events.HistorySync {
		if string(lastKnown.ID) != "m2" {
			t.Errorf("expected anchor m2, got %q", lastKnown.ID)
		}
		return onDemandEvent(chat,
			waHistorySync.Conversation_COMPLETE_AND_NO_MORE_MESSAGE_REMAIN_ON_PRIMARY,
			webMessage(chat, "m1", base, "older"),
		)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := a.BackfillHistory(ctx, BackfillOptions{
		ChatJID:        chat.String(),
		Count:          10,
		Requests:       3,
		WaitPerRequest: 2 * time.Second,
		IdleExit:       200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("BackfillHistory: %v", err)
	}
	if res.RequestsSent != 1 || res.ResponsesSeen != 1 {
		t.Fatalf("expected 1 request/response, got %d/%d", res.RequestsSent, res.ResponsesSeen)
	}
	if res.MessagesAdded <= 0 {
		t.Fatalf("expected messages added, got %d", res.MessagesAdded)
	}
	if !res.ReachedEnd {
		t.Fatalf("expected ReachedEnd=true")
	}

	oldest, err := a.db.GetOldestMessageInfo(chat.String())
	if err != nil {
		t.Fatalf("GetOldestMessageInfo: %v", err)
	}
	if oldest.MsgID != "m1" {
		t.Fatalf("expected oldest m1, got %q", oldest.MsgID)
	}
}

func TestBackfillHistoryEmptyChatAnchorsAtNow(t *testing.T) {
	a := newTestApp(t)
	f := newFakeWA()
	a.wa = f

	chat := types.JID{User: "456", Server: types.DefaultUserServer}
	f.onDemandHistory = func(lastKnown types.MessageInfo, count int) *events.HistorySync {
		if string(lastKnown.ID) != "" {
			t.Errorf("expected empty anchor ID for empty chat, got %q", lastKnown.ID)
		}
		if lastKnown.Timestamp.IsZero() {
			t.Errorf("expected a timestamp anchor")
		}
		return onDemandEvent(chat, waHistorySync.Conversation_COMPLETE_BUT_MORE_MESSAGES_REMAIN_ON_PRIMARY)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := a.BackfillHistory(ctx, BackfillOptions{
		ChatJID:        chat.String(),
		WaitPerRequest: 2 * time.Second,
		IdleExit:       200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("BackfillHistory: %v", err)
	}
	if res.RequestsSent != 1 {
		t.Fatalf("expected 1 request, got %d", res.RequestsSent)
	}
	if res.MessagesAdded != 0 {
		t.Fatalf("expected no messages added, got %d", res.MessagesAdded)
	}
	if res.ReachedEnd {
		t.Fatalf("did not expect ReachedEnd for an empty response")
	}
}

func TestBackfillHistoryTimeoutReturnsProgress(t *testing.T) {
	a := newTestApp(t)
	f := newFakeWA()
	a.wa = f

	chat := types.JID{User: "789", Server: types.DefaultUserServer}
	storeUpsertMessage(t, a, chat.String(), "m1", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), "only")
	// No onDemandHistory callback: the request never gets a response.

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := a.BackfillHistory(ctx, BackfillOptions{
		ChatJID:        chat.String(),
		WaitPerRequest: 100 * time.Millisecond,
		IdleExit:       200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("expected progress result on timeout, got error: %v", err)
	}
	if res.RequestsSent != 1 || res.ResponsesSeen != 0 {
		t.Fatalf("expected 1 request and 0 responses, got %d/%d", res.RequestsSent, res.ResponsesSeen)
	}
}
