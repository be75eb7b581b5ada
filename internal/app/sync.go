package app

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/mattmezza/wacli/internal/store"
	"github.com/mattmezza/wacli/internal/wa"
)

type SyncMode string

const (
	SyncModeBootstrap SyncMode = "bootstrap"
	SyncModeOnce      SyncMode = "once"
	SyncModeFollow    SyncMode = "follow"
)

type SyncOptions struct {
	Mode            SyncMode
	AllowQR         bool
	OnQRCode        func(string)
	AfterConnect    func(context.Context) error
	DownloadMedia   bool
	RefreshContacts bool
	RefreshGroups   bool
	IdleExit        time.Duration // only used for bootstrap/once
}

type SyncResult struct {
	MessagesStored  int64 `json:"messages_stored"`
	MediaEnqueued   int64 `json:"media_enqueued,omitempty"`
	MediaDownloaded int64 `json:"media_downloaded,omitempty"`
	MediaDropped    int64 `json:"media_dropped,omitempty"`
}

// Sync connects and mirrors events into the store. Mode once/bootstrap exits
// once the connection has been idle for IdleExit and no media download is in
// flight; follow runs until the context is cancelled, reconnecting with
// backoff after drops.
func (a *App) Sync(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	if opts.Mode == "" {
		opts.Mode = SyncModeFollow
	}
	if (opts.Mode == SyncModeBootstrap || opts.Mode == SyncModeOnce) && opts.IdleExit <= 0 {
		opts.IdleExit = 30 * time.Second
	}

	if err := a.OpenWA(); err != nil {
		return SyncResult{}, err
	}

	var messagesStored atomic.Int64
	lastEvent := atomic.Int64{}
	lastEvent.Store(time.Now().UTC().UnixNano())

	disconnected := make(chan struct{}, 1)
	loggedOut := make(chan struct{}, 1)

	var media *mediaPipeline
	if opts.DownloadMedia {
		media = newMediaPipeline()
	}

	handlerID := a.wa.AddEventHandler(func(evt interface{}) {
		lastEvent.Store(time.Now().UTC().UnixNano())

		switch v := evt.(type) {
		case *events.Message:
			pm := wa.ParseLiveMessage(v)
			if pm.ReactionToID != "" && pm.ReactionEmoji == "" && v.Message != nil && v.Message.GetEncReactionMessage() != nil {
				if reaction, err := a.wa.DecryptReaction(ctx, v); err == nil && reaction != nil {
					pm.ReactionEmoji = reaction.GetText()
					if pm.ReactionToID == "" {
						if key := reaction.GetKey(); key != nil {
							pm.ReactionToID = key.GetID()
						}
					}
				}
			}
			if err := a.storeParsedMessage(ctx, pm); err != nil {
				a.log.Warn().Err(err).Str("chat", pm.Chat.String()).Str("msg", pm.ID).Msg("store live message")
			} else {
				messagesStored.Add(1)
			}
			if media != nil && pm.Media != nil && pm.ID != "" {
				media.enqueue(pm.Chat.String(), pm.ID)
			}
		case *events.HistorySync:
			a.log.Info().Int("conversations", len(v.Data.Conversations)).Msg("processing history sync")
			for _, conv := range v.Data.Conversations {
				lastEvent.Store(time.Now().UTC().UnixNano())
				chatID := strings.TrimSpace(conv.GetID())
				if chatID == "" {
					continue
				}
				for _, m := range conv.Messages {
					lastEvent.Store(time.Now().UTC().UnixNano())
					if m.Message == nil {
						continue
					}
					pm := wa.ParseHistoryMessage(chatID, m.Message)
					if pm.ID == "" || pm.Chat.IsEmpty() {
						continue
					}
					if err := a.storeParsedMessage(ctx, pm); err != nil {
						a.log.Warn().Err(err).Str("chat", chatID).Str("msg", pm.ID).Msg("store history message")
					} else {
						messagesStored.Add(1)
					}
					if media != nil && pm.Media != nil && pm.ID != "" {
						media.enqueue(pm.Chat.String(), pm.ID)
					}
				}
			}
			a.log.Info().Int64("messages", messagesStored.Load()).Msg("history sync batch done")
		case *events.Contact:
			jid := v.JID.ToNonAD()
			if info, err := a.wa.GetContact(ctx, jid); err == nil {
				_ = a.db.UpsertContact(jid.String(), jid.User, info.PushName, info.FullName, info.FirstName, info.BusinessName)
			}
		case *events.GroupInfo:
			if gi, err := a.wa.GetGroupInfo(ctx, v.JID); err == nil && gi != nil {
				_ = a.persistGroupInfo(gi)
			}
		case *events.Connected:
			a.state.set(SessionConnected)
			a.log.Info().Msg("connected")
		case *events.Disconnected:
			a.state.set(SessionDisconnected)
			a.log.Warn().Msg("disconnected")
			select {
			case disconnected <- struct{}{}:
			default:
			}
		case *events.LoggedOut:
			a.state.set(SessionLoggedOut)
			a.log.Error().Msg("logged out by primary device")
			select {
			case loggedOut <- struct{}{}:
			default:
			}
		}
	})
	defer a.wa.RemoveEventHandler(handlerID)

	if err := a.Connect(ctx, opts.AllowQR, opts.OnQRCode); err != nil {
		return SyncResult{}, err
	}

	if media != nil {
		workerCtx, stopWorker := context.WithCancel(ctx)
		defer stopWorker()
		go a.runMediaWorker(workerCtx, media)
	}

	// Optional bootstrap imports (helps contacts/groups management without
	// waiting for events).
	if opts.RefreshContacts {
		if err := a.refreshContacts(ctx); err != nil {
			a.log.Warn().Err(err).Msg("refresh contacts")
		}
	}
	if opts.RefreshGroups {
		if err := a.refreshGroups(ctx); err != nil {
			a.log.Warn().Err(err).Msg("refresh groups")
		}
	}
	if opts.AfterConnect != nil {
		if err := opts.AfterConnect(ctx); err != nil {
			return a.syncResult(&messagesStored, media), err
		}
	}

	errLoggedOut := fmt.Errorf("session was logged out by the primary device; run `wacli auth` to re-pair")

	if opts.Mode == SyncModeFollow {
		for {
			select {
			case <-ctx.Done():
				a.log.Info().Msg("stopping sync")
				return a.syncResult(&messagesStored, media), nil
			case <-loggedOut:
				return a.syncResult(&messagesStored, media), errLoggedOut
			case <-disconnected:
				a.log.Info().Msg("reconnecting")
				if err := a.wa.ReconnectWithBackoff(ctx, 2*time.Second, 30*time.Second); err != nil {
					return a.syncResult(&messagesStored, media), err
				}
				a.state.set(SessionConnected)
			}
		}
	}

	// Bootstrap/once: exit after idle, but never while a media download is
	// still in flight.
	poll := 250 * time.Millisecond
	if opts.IdleExit >= 2*time.Second {
		poll = 1 * time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.log.Info().Msg("stopping sync")
			return a.syncResult(&messagesStored, media), nil
		case <-loggedOut:
			return a.syncResult(&messagesStored, media), errLoggedOut
		case <-disconnected:
			a.log.Info().Msg("reconnecting")
			if err := a.wa.ReconnectWithBackoff(ctx, 2*time.Second, 30*time.Second); err != nil {
				return a.syncResult(&messagesStored, media), err
			}
			a.state.set(SessionConnected)
		case <-ticker.C:
			last := time.Unix(0, lastEvent.Load())
			if time.Since(last) < opts.IdleExit {
				continue
			}
			if media != nil && media.pending.Load() > 0 {
				continue
			}
			a.log.Info().Dur("idle", opts.IdleExit).Msg("idle, exiting")
			return a.syncResult(&messagesStored, media), nil
		}
	}
}

func (a *App) syncResult(messagesStored *atomic.Int64, media *mediaPipeline) SyncResult {
	res := SyncResult{MessagesStored: messagesStored.Load()}
	if media != nil {
		res.MediaEnqueued = media.enqueued.Load()
		res.MediaDownloaded = media.downloaded.Load()
		res.MediaDropped = media.dropped.Load()
	}
	return res
}

func chatKind(chat types.JID) string {
	if chat.Server == types.GroupServer {
		return "group"
	}
	if chat.IsBroadcastList() {
		return "broadcast"
	}
	if chat.Server == types.DefaultUserServer {
		return "dm"
	}
	return "unknown"
}

func (a *App) storeParsedMessage(ctx context.Context, pm wa.ParsedMessage) error {
	chatJID := pm.Chat.String()
	chatName := a.wa.ResolveChatName(ctx, pm.Chat, pm.PushName)
	if err := a.db.UpsertChat(chatJID, chatKind(pm.Chat), chatName, pm.Timestamp); err != nil {
		return err
	}

	// Best-effort: store contact info for DMs.
	if pm.Chat.Server == types.DefaultUserServer {
		if info, err := a.wa.GetContact(ctx, pm.Chat.ToNonAD()); err == nil {
			_ = a.db.UpsertContact(
				pm.Chat.String(),
				pm.Chat.User,
				info.PushName,
				info.FullName,
				info.FirstName,
				info.BusinessName,
			)
		}
	}

	senderName := ""
	if pm.FromMe {
		senderName = "me"
	} else if s := strings.TrimSpace(pm.PushName); s != "" && s != "-" {
		senderName = s
	}
	if pm.SenderJID != "" {
		if jid, err := types.ParseJID(pm.SenderJID); err == nil {
			if info, err := a.wa.GetContact(ctx, jid.ToNonAD()); err == nil {
				if name := wa.BestContactName(info); name != "" {
					senderName = name
				}
				_ = a.db.UpsertContact(
					jid.String(),
					jid.User,
					info.PushName,
					info.FullName,
					info.FirstName,
					info.BusinessName,
				)
			}
		}
	}

	// Best-effort: store group metadata (and participants) when available.
	if pm.Chat.Server == types.GroupServer {
		if gi, err := a.wa.GetGroupInfo(ctx, pm.Chat); err == nil && gi != nil {
			_ = a.persistGroupInfo(gi)
		}
	}

	var mediaType, caption, filename, mimeType, directPath string
	var mediaKey, fileSha, fileEncSha []byte
	var fileLen uint64
	if pm.Media != nil {
		mediaType = pm.Media.Type
		caption = pm.Media.Caption
		filename = pm.Media.Filename
		mimeType = pm.Media.MimeType
		directPath = pm.Media.DirectPath
		mediaKey = pm.Media.MediaKey
		fileSha = pm.Media.FileSHA256
		fileEncSha = pm.Media.FileEncSHA256
		fileLen = pm.Media.FileLength
	}

	displayText := a.buildDisplayText(pm)

	return a.db.UpsertMessage(store.UpsertMessageParams{
		ChatJID:       chatJID,
		ChatName:      chatName,
		MsgID:         pm.ID,
		SenderJID:     pm.SenderJID,
		SenderName:    senderName,
		Timestamp:     pm.Timestamp,
		FromMe:        pm.FromMe,
		Text:          pm.Text,
		DisplayText:   displayText,
		MediaType:     mediaType,
		MediaCaption:  caption,
		Filename:      filename,
		MimeType:      mimeType,
		DirectPath:    directPath,
		MediaKey:      mediaKey,
		FileSHA256:    fileSha,
		FileEncSHA256: fileEncSha,
		FileLength:    fileLen,
		ReactionToID:  pm.ReactionToID,
		ReactionEmoji: pm.ReactionEmoji,
	})
}

func (a *App) buildDisplayText(pm wa.ParsedMessage) string {
	base := baseDisplayText(pm)

	if pm.ReactionToID != "" || strings.TrimSpace(pm.ReactionEmoji) != "" {
		target := strings.TrimSpace(pm.ReactionToID)
		display := ""
		if target != "" {
			display = a.lookupMessageDisplayText(pm.Chat.String(), target)
		}
		if display == "" {
			display = "message"
		}
		emoji := strings.TrimSpace(pm.ReactionEmoji)
		if emoji != "" {
			return fmt.Sprintf("Reacted %s to %s", emoji, display)
		}
		return fmt.Sprintf("Reacted to %s", display)
	}

	if pm.ReplyToID != "" {
		quoted := strings.TrimSpace(pm.ReplyToDisplay)
		if quoted == "" {
			quoted = a.lookupMessageDisplayText(pm.Chat.String(), pm.ReplyToID)
		}
		if quoted == "" {
			quoted = "message"
		}
		if base == "" {
			base = "(message)"
		}
		return fmt.Sprintf("> %s\n%s", quoted, base)
	}

	if base == "" {
		base = "(message)"
	}
	return base
}

func baseDisplayText(pm wa.ParsedMessage) string {
	if pm.Media != nil {
		return "Sent " + mediaLabel(pm.Media.Type)
	}
	if text := strings.TrimSpace(pm.Text); text != "" {
		return text
	}
	return ""
}

func (a *App) lookupMessageDisplayText(chatJID, msgID string) string {
	if strings.TrimSpace(chatJID) == "" || strings.TrimSpace(msgID) == "" {
		return ""
	}
	msg, err := a.db.GetMessage(chatJID, msgID)
	if err != nil {
		return ""
	}
	if text := strings.TrimSpace(msg.DisplayText); text != "" {
		return text
	}
	if text := strings.TrimSpace(msg.Text); text != "" {
		return text
	}
	if strings.TrimSpace(msg.MediaType) != "" {
		return "Sent " + mediaLabel(msg.MediaType)
	}
	return ""
}

func mediaLabel(mediaType string) string {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	switch mt {
	case "gif", "image", "video", "audio", "sticker", "document", "location", "contact", "contacts":
		return mt
	case "":
		return "message"
	default:
		return mt
	}
}
