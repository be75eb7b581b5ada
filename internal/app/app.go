// Package app orchestrates the protocol client and the local mirror. One App
// owns one store DB and (lazily) one WhatsApp client.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/mattmezza/wacli/internal/errs"
	"github.com/mattmezza/wacli/internal/store"
	"github.com/mattmezza/wacli/internal/wa"
)

type WAClient interface {
	Close()
	IsAuthed() bool
	IsConnected() bool
	Connect(ctx context.Context, opts wa.ConnectOptions) error

	AddEventHandler(handler func(interface{})) uint32
	RemoveEventHandler(id uint32)
	ReconnectWithBackoff(ctx context.Context, minDelay, maxDelay time.Duration) error

	ResolveChatName(ctx context.Context, chat types.JID, pushName string) string
	GetContact(ctx context.Context, jid types.JID) (types.ContactInfo, error)
	GetAllContacts(ctx context.Context) (map[types.JID]types.ContactInfo, error)

	GetJoinedGroups(ctx context.Context) ([]*types.GroupInfo, error)
	GetGroupInfo(ctx context.Context, jid types.JID) (*types.GroupInfo, error)
	SetGroupName(ctx context.Context, jid types.JID, name string) error
	UpdateGroupParticipants(ctx context.Context, group types.JID, users []types.JID, action wa.GroupParticipantAction) ([]types.GroupParticipant, error)
	GetGroupInviteLink(ctx context.Context, group types.JID, reset bool) (string, error)
	JoinGroupWithLink(ctx context.Context, code string) (types.JID, error)
	LeaveGroup(ctx context.Context, group types.JID) error

	DownloadMediaToFile(ctx context.Context, directPath string, encFileHash, fileHash, mediaKey []byte, fileLength uint64, mediaType, mmsType string, targetPath string) (int64, error)

	DecryptReaction(ctx context.Context, reaction *events.Message) (*waProto.ReactionMessage, error)
	RequestHistorySyncOnDemand(ctx context.Context, lastKnown types.MessageInfo, count int) (types.MessageID, error)
	Logout(ctx context.Context) error
}

type Options struct {
	StoreDir string
	Version  string
	JSON     bool
	Logger   zerolog.Logger
	// WALogger feeds whatsmeow's internal logging; usually
	// waLog.Zerolog over the same logger.
	WALogger waLog.Logger
}

type App struct {
	opts Options
	log  zerolog.Logger
	wa   WAClient
	db   *store.DB

	state sessionState
}

func New(opts Options) (*App, error) {
	if opts.StoreDir == "" {
		return nil, fmt.Errorf("store dir is required")
	}
	if err := os.MkdirAll(opts.StoreDir, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := store.Open(filepath.Join(opts.StoreDir, "wacli.db"))
	if err != nil {
		return nil, err
	}

	a := &App{opts: opts, log: opts.Logger, db: db}
	a.state.set(SessionIdle)
	return a, nil
}

func (a *App) OpenWA() error {
	if a.wa != nil {
		return nil
	}
	cli, err := wa.New(wa.Options{
		StorePath: filepath.Join(a.opts.StoreDir, "session.db"),
		Logger:    a.opts.WALogger,
	})
	if err != nil {
		return err
	}

	a.wa = cli
	return nil
}

func (a *App) Close() {
	if a.wa != nil {
		a.wa.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) EnsureAuthed() error {
	if err := a.OpenWA(); err != nil {
		return err
	}
	if a.wa.IsAuthed() {
		return nil
	}
	return fmt.Errorf("%w; run `wacli auth`", errs.ErrNotAuthenticated)
}

func (a *App) WA() WAClient     { return a.wa }
func (a *App) DB() *store.DB    { return a.db }
func (a *App) StoreDir() string { return a.opts.StoreDir }
func (a *App) Version() string  { return a.opts.Version }

// State reports the session lifecycle stage for diagnostics.
func (a *App) State() SessionState { return a.state.get() }

func (a *App) Connect(ctx context.Context, allowQR bool, qrWriter func(string)) error {
	if err := a.OpenWA(); err != nil {
		return err
	}
	a.state.set(SessionConnecting)
	err := a.wa.Connect(ctx, wa.ConnectOptions{
		AllowQR:  allowQR,
		OnQRCode: qrWriter,
	})
	if err != nil {
		a.state.set(SessionDisconnected)
		return err
	}
	a.state.set(SessionConnected)
	return nil
}

// ConnectIfNeeded opens the protocol client and connects without allowing a
// new pairing. Commands that talk to the server but are not `auth` go through
// here.
func (a *App) ConnectIfNeeded(ctx context.Context) error {
	if err := a.EnsureAuthed(); err != nil {
		return err
	}
	if a.wa.IsConnected() {
		return nil
	}
	return a.Connect(ctx, false, nil)
}

// Logout unlinks the companion session. The mirror stays intact.
func (a *App) Logout(ctx context.Context) error {
	if err := a.OpenWA(); err != nil {
		return err
	}
	if err := a.wa.Logout(ctx); err != nil {
		return err
	}
	a.state.set(SessionLoggedOut)
	return nil
}
