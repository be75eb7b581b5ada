package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.mau.fi/whatsmeow/proto/waHistorySync"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/mattmezza/wacli/internal/errs"
	"github.com/mattmezza/wacli/internal/store"
)

type BackfillOptions struct {
	ChatJID        string
	Count          int
	Requests       int
	WaitPerRequest time.Duration
	IdleExit       time.Duration
}

type BackfillResult struct {
	ChatJID        string `json:"chat_jid"`
	RequestsSent   int    `json:"requests_sent"`
	ResponsesSeen  int    `json:"responses_seen"`
	MessagesAdded  int64  `json:"messages_added"`
	MessagesSynced int64  `json:"messages_synced"`
	ReachedEnd     bool   `json:"reached_end"`
}

type onDemandResponse struct {
	conversations int
	messages      int
	endType       waHistorySync.Conversation_EndOfHistoryTransferType
}

// BackfillHistory pages older messages for one chat via on-demand history
// sync. Each request anchors at the oldest stored message; a chat with no
// local history anchors at the current time. A request that sees no response
// within WaitPerRequest returns the progress made so far.
func (a *App) BackfillHistory(ctx context.Context, opts BackfillOptions) (BackfillResult, error) {
	chatStr := strings.TrimSpace(opts.ChatJID)
	if chatStr == "" {
		return BackfillResult{}, errs.InvalidArgumentf("--chat is required")
	}
	chat, err := types.ParseJID(chatStr)
	if err != nil {
		return BackfillResult{}, errs.InvalidArgumentf("bad chat JID %q: %v", chatStr, err)
	}
	chatStr = chat.String()

	if opts.Count <= 0 {
		opts.Count = 50
	}
	if opts.Requests <= 0 {
		opts.Requests = 1
	}
	if opts.WaitPerRequest <= 0 {
		opts.WaitPerRequest = 60 * time.Second
	}
	if opts.IdleExit <= 0 {
		opts.IdleExit = 5 * time.Second
	}

	if err := a.EnsureAuthed(); err != nil {
		return BackfillResult{}, err
	}

	beforeCount, _ := a.db.CountMessages()

	var mu sync.Mutex
	var waitCh chan onDemandResponse
	handlerID := a.wa.AddEventHandler(func(evt interface{}) {
		hs, ok := evt.(*events.HistorySync)
		if !ok || hs == nil || hs.Data == nil {
			return
		}
		if hs.Data.GetSyncType() != waHistorySync.HistorySync_ON_DEMAND {
			return
		}

		for _, conv := range hs.Data.GetConversations() {
			if strings.TrimSpace(conv.GetID()) != chatStr {
				continue
			}
			mu.Lock()
			ch := waitCh
			mu.Unlock()
			if ch == nil {
				return
			}
			resp := onDemandResponse{
				conversations: len(hs.Data.GetConversations()),
				messages:      len(conv.GetMessages()),
				endType:       conv.GetEndOfHistoryTransferType(),
			}
			select {
			case ch <- resp:
			default:
			}
			return
		}
	})
	defer a.wa.RemoveEventHandler(handlerID)

	var requestsSent int
	var responsesSeen int
	var reachedEnd bool

	syncRes, err := a.Sync(ctx, SyncOptions{
		Mode:     SyncModeOnce,
		AllowQR:  false,
		IdleExit: opts.IdleExit,
		AfterConnect: func(ctx context.Context) error {
			for i := 0; i < opts.Requests; i++ {
				anchor, hadLocal, err := a.backfillAnchor(chat, chatStr)
				if err != nil {
					return err
				}

				ch := make(chan onDemandResponse, 4)
				mu.Lock()
				waitCh = ch
				mu.Unlock()

				requestsSent++
				a.log.Info().Str("chat", chatStr).Int("count", opts.Count).Msg("requesting older messages")
				if _, err := a.wa.RequestHistorySyncOnDemand(ctx, anchor, opts.Count); err != nil {
					return err
				}

				var resp onDemandResponse
				var timedOut bool
				select {
				case <-ctx.Done():
					return ctx.Err()
				case resp = <-ch:
					responsesSeen++
				case <-time.After(opts.WaitPerRequest):
					timedOut = true
				}

				mu.Lock()
				if waitCh == ch {
					waitCh = nil
				}
				mu.Unlock()

				if timedOut {
					a.log.Warn().Str("chat", chatStr).Msg("no on-demand response before deadline, stopping")
					return nil
				}

				a.log.Info().
					Int("conversations", resp.conversations).
					Int("messages", resp.messages).
					Msg("on-demand history sync response")

				if hadLocal {
					newOldest, err := a.db.GetOldestMessageInfo(chatStr)
					if err == nil && newOldest.MsgID == string(anchor.ID) {
						a.log.Info().Msg("no older messages were added, stopping")
						return nil
					}
				}
				if resp.messages <= 0 {
					a.log.Info().Msg("no messages returned, stopping")
					return nil
				}
				if resp.endType == waHistorySync.Conversation_COMPLETE_AND_NO_MORE_MESSAGE_REMAIN_ON_PRIMARY {
					reachedEnd = true
					a.log.Info().Msg("reached start of chat history")
					return nil
				}
			}
			return nil
		},
	})
	if err != nil {
		return BackfillResult{}, err
	}

	afterCount, _ := a.db.CountMessages()

	return BackfillResult{
		ChatJID:        chatStr,
		RequestsSent:   requestsSent,
		ResponsesSeen:  responsesSeen,
		MessagesAdded:  afterCount - beforeCount,
		MessagesSynced: syncRes.MessagesStored,
		ReachedEnd:     reachedEnd,
	}, nil
}

// backfillAnchor returns the request anchor and whether it came from a local
// message.
func (a *App) backfillAnchor(chat types.JID, chatStr string) (types.MessageInfo, bool, error) {
	oldest, err := a.db.GetOldestMessageInfo(chatStr)
	if err != nil {
		if store.IsNotFound(err) {
			return types.MessageInfo{
				MessageSource: types.MessageSource{Chat: chat, IsFromMe: true},
				Timestamp:     time.Now().UTC(),
			}, false, nil
		}
		return types.MessageInfo{}, false, err
	}
	return types.MessageInfo{
		MessageSource: types.MessageSource{
			Chat:     chat,
			IsFromMe: oldest.FromMe,
		},
		ID:        types.MessageID(oldest.MsgID),
		Timestamp: oldest.Timestamp,
	}, true, nil
}
