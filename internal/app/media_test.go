package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mattmezza/wacli/internal/errs"
	"github.com/mattmezza/wacli/internal/store"
)

func seedMediaMessage(t *testing.T, a *App, chatJID, msgID string, ts time.Time) {
	t.Helper()
	if err := a.db.UpsertChat(chatJID, "dm", "Alice", ts); err != nil {
		t.Fatalf("UpsertChat: %v", err)
	}
	if err := a.db.UpsertMessage(store.UpsertMessageParams{
		ChatJID:       chatJID,
		MsgID:         msgID,
		SenderJID:     chatJID,
		Timestamp:     ts,
		MediaType:     "image",
		MimeType:      "image/jpeg",
		DirectPath:    "/direct/path",
		MediaKey:      []byte{1, 2, 3},
		FileSHA256:    []byte{0xab, 0xcd},
		FileEncSHA256: []byte{4, 5},
		FileLength:    4,
	}); err != nil {
		t.Fatalf("UpsertMessage: %v", err)
	}
}

func TestDownloadMediaJobMarksDownloaded(t *testing.T) {
	a := newTestApp(t)
	f := newFakeWA()
	a.wa = f

	chat := "123@s.whatsapp.net"
	ts := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	seedMediaMessage(t, a, chat, "mid", ts)

	if err := a.downloadMediaJob(context.Background(), mediaJob{chatJID: chat, msgID: "mid"}); err != nil {
		t.Fatalf("downloadMediaJob: %v", err)
	}

	info, err := a.db.GetMediaDownloadInfo(chat, "mid")
	if err != nil {
		t.Fatalf("GetMediaDownloadInfo: %v", err)
	}
	if info.LocalPath == "" {
		t.Fatalf("expected LocalPath set")
	}
	want := filepath.Join(a.StoreDir(), "media", "2024", "03")
	if !strings.HasPrefix(info.LocalPath, want) {
		t.Fatalf("expected path under %s, got %s", want, info.LocalPath)
	}
	b, err := os.ReadFile(info.LocalPath)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(b) != "test" {
		t.Fatalf("unexpected file content %q", b)
	}
}

func TestDownloadMediaRejectsMessageWithoutMedia(t *testing.T) {
	a := newTestApp(t)
	f := newFakeWA()
	a.wa = f

	chat := "123@s.whatsapp.net"
	storeUpsertMessage(t, a, chat, "plain", time.Now(), "no media here")

	_, _, err := a.DownloadMedia(context.Background(), chat, "plain", "")
	if !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestDownloadMediaMissingMessage(t *testing.T) {
	a := newTestApp(t)
	f := newFakeWA()
	a.wa = f

	_, _, err := a.DownloadMedia(context.Background(), "123@s.whatsapp.net", "nope", "")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveMediaOutputPathOverride(t *testing.T) {
	a := newTestApp(t)
	info := store.MediaDownloadInfo{
		MsgID:     "mid",
		Filename:  "pic.jpg",
		Timestamp: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	}

	dir := t.TempDir()
	if got := a.ResolveMediaOutputPath(info, dir); got != filepath.Join(dir, "pic.jpg") {
		t.Fatalf("expected directory override to keep filename, got %s", got)
	}
	explicit := filepath.Join(dir, "custom.bin")
	if got := a.ResolveMediaOutputPath(info, explicit); got != explicit {
		t.Fatalf("expected explicit file path, got %s", got)
	}
}

func TestMediaPipelineDropsOnOverflow(t *testing.T) {
	p := newMediaPipeline()
	for i := 0; i < mediaQueueSize; i++ {
		p.enqueue("c@s.whatsapp.net", fmt.Sprintf("m%d", i))
	}
	p.enqueue("c@s.whatsapp.net", "overflow")

	if got := p.enqueued.Load(); got != mediaQueueSize {
		t.Fatalf("expected %d enqueued, got %d", mediaQueueSize, got)
	}
	if got := p.dropped.Load(); got != 1 {
		t.Fatalf("expected 1 dropped, got %d", got)
	}
	if got := p.pending.Load(); got != mediaQueueSize {
		t.Fatalf("expected %d pending, got %d", mediaQueueSize, got)
	}
}
