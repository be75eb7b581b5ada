package store

import (
	"errors"
	"testing"
	"time"

	"github.com/mattmezza/wacli/internal/errs"
)

func seedSearchMessages(t *testing.T, db *DB) {
	t.Helper()
	chat := "123@s.whatsapp.net"
	if err := db.UpsertChat(chat, "dm", "Alice", time.Now()); err != nil {
		t.Fatalf("UpsertChat: %v", err)
	}
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := []struct {
		id   string
		ts   time.Time
		text string
	}{
		{"m-b", base, "project kickoff notes"},
		{"m-a", base, "project retro notes"},
		{"m-c", base.Add(time.Hour), "lunch plans"},
	}
	for _, r := range rows {
		if err := db.UpsertMessage(UpsertMessageParams{
			ChatJID:     chat,
			ChatName:    "Alice",
			MsgID:       r.id,
			SenderJID:   chat,
			SenderName:  "Alice",
			Timestamp:   r.ts,
			Text:        r.text,
			DisplayText: r.text,
		}); err != nil {
			t.Fatalf("UpsertMessage %s: %v", r.id, err)
		}
	}
}

func TestSearchMessagesFindsByText(t *testing.T) {
	db := openTestDB(t)
	seedSearchMessages(t, db)

	got, err := db.SearchMessages(SearchMessagesParams{Query: "project", Limit: 10})
	if err != nil {
		t.Fatalf("SearchMessages: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(got))
	}
	if db.HasFTS() && got[0].Snippet == "" {
		t.Fatalf("expected FTS snippet, got empty")
	}
}

func TestSearchMessagesTieBreakIsDeterministic(t *testing.T) {
	db := openTestDB(t)
	seedSearchMessages(t, db)

	// m-a and m-b share a timestamp; msg_id breaks the tie.
	got, err := db.SearchMessages(SearchMessagesParams{Query: "project", Limit: 10})
	if err != nil {
		t.Fatalf("SearchMessages: %v", err)
	}
	if len(got) != 2 || got[0].MsgID != "m-a" || got[1].MsgID != "m-b" {
		ids := make([]string, 0, len(got))
		for _, m := range got {
			ids = append(ids, m.MsgID)
		}
		t.Fatalf("expected order [m-a m-b], got %v", ids)
	}
}

func TestSearchMessagesChatFilter(t *testing.T) {
	db := openTestDB(t)
	seedSearchMessages(t, db)

	got, err := db.SearchMessages(SearchMessagesParams{Query: "lunch", ChatJID: "other@s.whatsapp.net", Limit: 10})
	if err != nil {
		t.Fatalf("SearchMessages: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no hits for other chat, got %d", len(got))
	}
}

func TestSearchMessagesRequiresQuery(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.SearchMessages(SearchMessagesParams{Query: "  "}); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestGetMessageNotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetMessage("nope@s.whatsapp.net", "missing"); !IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}
