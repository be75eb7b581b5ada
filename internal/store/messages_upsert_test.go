package store

import (
	"testing"
	"time"
)

func upsertRichAndPoor(t *testing.T, db *DB, firstRich bool) {
	t.Helper()
	chat := "123@s.whatsapp.net"
	if err := db.UpsertChat(chat, "dm", "Alice", time.Now()); err != nil {
		t.Fatalf("UpsertChat: %v", err)
	}
	rich := UpsertMessageParams{
		ChatJID:       chat,
		ChatName:      "Alice",
		MsgID:         "m1",
		SenderJID:     chat,
		SenderName:    "Alice",
		Timestamp:     time.Unix(1002, 0).UTC(),
		Text:          "hello world",
		DisplayText:   "hello world",
		MediaType:     "image",
		MimeType:      "image/jpeg",
		DirectPath:    "/direct/path",
		MediaKey:      []byte{1, 2, 3},
		FileSHA256:    []byte{4, 5},
		FileEncSHA256: []byte{6, 7},
		FileLength:    10,
	}
	// The same message as a history sync might deliver it: no text, no
	// media metadata, and a coarser timestamp.
	poor := UpsertMessageParams{
		ChatJID:   chat,
		MsgID:     "m1",
		SenderJID: chat,
		Timestamp: time.Unix(1001, 0).UTC(),
	}
	first, second := rich, poor
	if !firstRich {
		first, second = poor, rich
	}
	if err := db.UpsertMessage(first); err != nil {
		t.Fatalf("UpsertMessage first: %v", err)
	}
	if err := db.UpsertMessage(second); err != nil {
		t.Fatalf("UpsertMessage second: %v", err)
	}
}

func assertRichRow(t *testing.T, db *DB) {
	t.Helper()
	chat := "123@s.whatsapp.net"

	m, err := db.GetMessage(chat, "m1")
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if m.Text != "hello world" {
		t.Fatalf("text lost: got %q", m.Text)
	}
	if m.MediaType != "image" {
		t.Fatalf("media_type lost: got %q", m.MediaType)
	}
	if got := m.Timestamp.Unix(); got != 1002 {
		t.Fatalf("ts regressed: got %d want 1002", got)
	}

	info, err := db.GetMediaDownloadInfo(chat, "m1")
	if err != nil {
		t.Fatalf("GetMediaDownloadInfo: %v", err)
	}
	if info.MediaType != "image" || info.DirectPath != "/direct/path" || len(info.MediaKey) == 0 {
		t.Fatalf("download tuple lost: %+v", info)
	}
}

func TestUpsertMessagePoorerShapeNeverClobbers(t *testing.T) {
	db := openTestDB(t)
	upsertRichAndPoor(t, db, true)
	assertRichRow(t, db)
}

func TestUpsertMessageOrderIndependent(t *testing.T) {
	db := openTestDB(t)
	upsertRichAndPoor(t, db, false)
	assertRichRow(t, db)
}
