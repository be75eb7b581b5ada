package app

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/mattmezza/wacli/internal/store"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(Options{
		StoreDir: t.TempDir(),
		Version:  "test",
		Logger:   zerolog.Nop(),
		WALogger: waLog.Noop,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func storeUpsertMessage(t *testing.T, a *App, chatJID, msgID string, ts time.Time, text string) {
	t.Helper()
	if err := a.db.UpsertChat(chatJID, "dm", "", ts); err != nil {
		t.Fatalf("UpsertChat: %v", err)
	}
	if err := a.db.UpsertMessage(store.UpsertMessageParams{
		ChatJID:   chatJID,
		MsgID:     msgID,
		SenderJID: chatJID,
		Timestamp: ts,
		Text:      text,
	}); err != nil {
		t.Fatalf("UpsertMessage: %v", err)
	}
}

func TestSessionStateTransitions(t *testing.T) {
	a := newTestApp(t)
	if got := a.State(); got != SessionIdle {
		t.Fatalf("expected idle state, got %q", got)
	}
	a.state.set(SessionConnecting)
	a.state.set(SessionConnected)
	if got := a.State(); got != SessionConnected {
		t.Fatalf("expected connected state, got %q", got)
	}
}
