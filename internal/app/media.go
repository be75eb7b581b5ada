package app

import (
	"context"
	"encoding/hex"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mattmezza/wacli/internal/errs"
	"github.com/mattmezza/wacli/internal/store"
)

// mediaQueueSize bounds the download queue; overflow drops the job so the
// event handler never blocks. Dropped media stays downloadable later via
// `wacli media download`.
const mediaQueueSize = 512

type mediaJob struct {
	chatJID string
	msgID   string
}

type mediaPipeline struct {
	jobs     chan mediaJob
	pending  atomic.Int64
	enqueued atomic.Int64
	dropped  atomic.Int64

	downloaded atomic.Int64
}

func newMediaPipeline() *mediaPipeline {
	return &mediaPipeline{jobs: make(chan mediaJob, mediaQueueSize)}
}

func (p *mediaPipeline) enqueue(chatJID, msgID string) {
	if strings.TrimSpace(chatJID) == "" || strings.TrimSpace(msgID) == "" {
		return
	}
	select {
	case p.jobs <- mediaJob{chatJID: chatJID, msgID: msgID}:
		p.pending.Add(1)
		p.enqueued.Add(1)
	default:
		p.dropped.Add(1)
	}
}

// runMediaWorker is the single download worker. It finishes the job in hand
// before honoring cancellation of anything but the download itself.
func (a *App) runMediaWorker(ctx context.Context, p *mediaPipeline) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			if err := a.downloadMediaJob(ctx, job); err != nil {
				a.log.Warn().Err(err).Str("chat", job.chatJID).Str("msg", job.msgID).Msg("media download failed")
			} else {
				p.downloaded.Add(1)
			}
			p.pending.Add(-1)
		}
	}
}

func (a *App) downloadMediaJob(ctx context.Context, job mediaJob) error {
	info, err := a.db.GetMediaDownloadInfo(job.chatJID, job.msgID)
	if err != nil {
		if store.IsNotFound(err) {
			return errs.NotFoundf("message %s in chat %s", job.msgID, job.chatJID)
		}
		return err
	}
	_, _, err = a.downloadMediaInfo(ctx, info, "")
	return err
}

// DownloadMedia fetches one message's media on demand. output may be empty
// (default layout under <store>/media), an existing directory, or a file
// path.
func (a *App) DownloadMedia(ctx context.Context, chatJID, msgID, output string) (store.MediaDownloadInfo, string, error) {
	info, err := a.db.GetMediaDownloadInfo(chatJID, msgID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.MediaDownloadInfo{}, "", errs.NotFoundf("message %s in chat %s", msgID, chatJID)
		}
		return store.MediaDownloadInfo{}, "", err
	}
	path, _, err := a.downloadMediaInfo(ctx, info, output)
	if err != nil {
		return store.MediaDownloadInfo{}, "", err
	}
	return info, path, nil
}

// downloadMediaInfo validates metadata before any file is created, so a
// message without media never leaves an empty file behind.
func (a *App) downloadMediaInfo(ctx context.Context, info store.MediaDownloadInfo, output string) (string, int64, error) {
	if info.MediaType == "" || info.DirectPath == "" || len(info.MediaKey) == 0 {
		return "", 0, errs.InvalidArgumentf("message %s has no downloadable media", info.MsgID)
	}

	target := a.ResolveMediaOutputPath(info, output)
	n, err := a.wa.DownloadMediaToFile(
		ctx,
		info.DirectPath,
		info.FileEncSHA256,
		info.FileSHA256,
		info.MediaKey,
		info.FileLength,
		info.MediaType,
		"",
		target,
	)
	if err != nil {
		return "", 0, err
	}
	if err := a.db.MarkMediaDownloaded(info.ChatJID, info.MsgID, target, time.Now().UTC()); err != nil {
		return "", 0, err
	}
	return target, n, nil
}

// ResolveMediaOutputPath picks the target file. Default layout is
// <store>/media/YYYY/MM/<filename-or-hash>; an explicit output that names a
// directory gets the default filename inside it.
func (a *App) ResolveMediaOutputPath(info store.MediaDownloadInfo, output string) string {
	name := mediaFilename(info)

	if strings.TrimSpace(output) != "" {
		if st, err := os.Stat(output); err == nil && st.IsDir() {
			return filepath.Join(output, name)
		}
		return output
	}

	ts := info.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return filepath.Join(
		a.opts.StoreDir,
		"media",
		fmt.Sprintf("%04d", ts.Year()),
		fmt.Sprintf("%02d", int(ts.Month())),
		name,
	)
}

func mediaFilename(info store.MediaDownloadInfo) string {
	name := strings.TrimSpace(info.Filename)
	if name == "" {
		if len(info.FileSHA256) > 0 {
			name = hex.EncodeToString(info.FileSHA256)
		} else {
			name = sanitizeFilename(info.MsgID)
		}
		if ext := extensionForMime(info.MimeType); ext != "" {
			name += ext
		}
	}
	return sanitizeFilename(name)
}

func extensionForMime(mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		return ""
	}
	// Strip codec parameters like "audio/ogg; codecs=opus".
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "audio/ogg":
		return ".ogg"
	case "application/pdf":
		return ".pdf"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "media"
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_", string(os.PathSeparator), "_", "..", "_")
	return replacer.Replace(name)
}
