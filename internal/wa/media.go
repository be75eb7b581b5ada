package wa

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.mau.fi/whatsmeow"

	"github.com/mattmezza/wacli/internal/errs"
)

func classifyMediaType(mediaType string) (whatsmeow.MediaType, error) {
	switch mediaType {
	case "image", "sticker":
		return whatsmeow.MediaImage, nil
	case "video", "gif":
		return whatsmeow.MediaVideo, nil
	case "audio", "voice":
		return whatsmeow.MediaAudio, nil
	case "document":
		return whatsmeow.MediaDocument, nil
	default:
		return "", errs.InvalidArgumentf("unsupported media type %q", mediaType)
	}
}

// DownloadMediaToFile fetches one media object from the WhatsApp CDN and
// writes it to targetPath. A failed download leaves no partial file behind.
func (c *Client) DownloadMediaToFile(ctx context.Context, directPath string, encFileHash, fileHash, mediaKey []byte, fileLength uint64, mediaType, mmsType string, targetPath string) (int64, error) {
	c.mu.Lock()
	cli := c.client
	c.mu.Unlock()
	if cli == nil || !cli.IsConnected() {
		return 0, fmt.Errorf("not connected")
	}
	if directPath == "" || len(mediaKey) == 0 {
		return 0, errs.InvalidArgumentf("message has no downloadable media metadata")
	}

	waType, err := classifyMediaType(mediaType)
	if err != nil {
		return 0, err
	}

	data, err := cli.DownloadMediaWithPath(ctx, directPath, encFileHash, fileHash, mediaKey, int(fileLength), waType, mmsType)
	if err != nil {
		return 0, fmt.Errorf("download media: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o700); err != nil {
		return 0, fmt.Errorf("create media directory: %w", err)
	}
	if err := os.WriteFile(targetPath, data, 0o600); err != nil {
		_ = os.Remove(targetPath)
		return 0, fmt.Errorf("write media file: %w", err)
	}
	return int64(len(data)), nil
}
