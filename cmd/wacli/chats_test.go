package main

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattmezza/wacli/internal/errs"
	"github.com/mattmezza/wacli/internal/store"
)

func seedChatStore(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "wacli.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.UpsertChat("123@s.whatsapp.net", "dm", "Alice", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("UpsertChat: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return dir
}

func TestChatsShowCommand(t *testing.T) {
	dir := seedChatStore(t)

	if err := execute([]string{"--store-dir", dir, "--json", "chats", "show", "--jid", "123@s.whatsapp.net"}); err != nil {
		t.Fatalf("chats show: %v", err)
	}
}

func TestChatsShowUnknownChat(t *testing.T) {
	dir := seedChatStore(t)

	err := execute([]string{"--store-dir", dir, "--json", "chats", "show", "--jid", "missing@s.whatsapp.net"})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := errs.ExitCode(err); got != 1 {
		t.Fatalf("expected exit code 1, got %d", got)
	}
}

func TestChatsShowRequiresJID(t *testing.T) {
	dir := seedChatStore(t)

	err := execute([]string{"--store-dir", dir, "chats", "show"})
	if !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if got := errs.ExitCode(err); got != 2 {
		t.Fatalf("expected exit code 2, got %d", got)
	}
}
