package wa

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/appstate"
	wastore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"

	"github.com/matheus3301/walink/internal/connection"
	"github.com/matheus3301/walink/internal/logging"
	"github.com/matheus3301/walink/internal/session"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNoClient is returned when the adapter was closed.
var ErrNoClient = errors.New("transport client closed")

// Options selects where the credentials of one instance live.
type Options struct {
	InstanceID  string
	SessionPath string
	Debug       bool
	// DeviceName is shown in the phone's linked devices list.
	DeviceName string
}

// Adapter wraps the whatsmeow client for one instance. The client is
// replaced when credentials are purged, so callers go through the adapter
// rather than holding the client.
type Adapter struct {
	opts      Options
	container *sqlstore.Container
	logger    *zap.Logger
	waLog     waLog.Logger

	mu     sync.RWMutex
	client *whatsmeow.Client

	hmu      sync.RWMutex
	handlers []func(any)
	qrCancel context.CancelFunc
}

// NewAdapter opens the instance credential store and builds a client for
// its first device, or for a fresh one when nothing is paired yet.
func NewAdapter(ctx context.Context, opts Options, logger *zap.Logger) (*Adapter, error) {
	if err := session.ValidateName(opts.InstanceID); err != nil {
		return nil, err
	}
	if opts.DeviceName != "" {
		wastore.SetOSInfo(opts.DeviceName, [3]uint32{0, 1, 0})
	}
	if err := os.MkdirAll(session.Dir(opts.SessionPath, opts.InstanceID), 0700); err != nil {
		return nil, fmt.Errorf("create instance dir: %w", err)
	}

	tlog := logging.TransportLogger(logger, opts.Debug)
	dbPath := session.SessionDBPath(opts.SessionPath, opts.InstanceID)
	container, err := sqlstore.New(ctx, "sqlite3",
		fmt.Sprintf("file:%s?_foreign_keys=on", dbPath),
		tlog.Sub("Database"),
	)
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device store: %w", err)
	}

	a := &Adapter{
		opts:      opts,
		container: container,
		logger:    logger.With(zap.String("instance", opts.InstanceID)),
		waLog:     tlog,
	}
	a.client = a.newClient(deviceStore)
	return a, nil
}

func (a *Adapter) newClient(device *wastore.Device) *whatsmeow.Client {
	cli := whatsmeow.NewClient(device, a.waLog.Sub("Client"))
	// Reconnects are owned by the connection controller.
	cli.EnableAutoReconnect = false
	cli.EmitAppStateEventsOnFullSync = true
	// The handler stays registered after a purge, which may run inside a
	// LoggedOut dispatch; events of a swapped-out client are dropped.
	cli.AddEventHandler(func(evt any) {
		if !a.current(cli) {
			return
		}
		a.dispatch(evt)
	})
	return cli
}

func (a *Adapter) current(cli *whatsmeow.Client) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.client == cli
}

func (a *Adapter) cli() (*whatsmeow.Client, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.client == nil {
		return nil, ErrNoClient
	}
	return a.client, nil
}

// AddEventHandler registers fn for every transport event. Handlers survive
// credential purges.
func (a *Adapter) AddEventHandler(fn func(any)) {
	a.hmu.Lock()
	a.handlers = append(a.handlers, fn)
	a.hmu.Unlock()
}

// dispatch receives raw whatsmeow events. Raw QR events are dropped while
// the QR channel is pumping rotated codes.
func (a *Adapter) dispatch(evt any) {
	if _, ok := evt.(*events.QR); ok && a.pairing() {
		return
	}
	a.deliver(evt)
}

func (a *Adapter) deliver(evt any) {
	a.hmu.RLock()
	hs := a.handlers
	a.hmu.RUnlock()
	for _, h := range hs {
		h(evt)
	}
}

func (a *Adapter) pairing() bool {
	a.hmu.RLock()
	defer a.hmu.RUnlock()
	return a.qrCancel != nil
}

// IsLoggedIn reports whether credentials are stored.
func (a *Adapter) IsLoggedIn() bool {
	cli, err := a.cli()
	return err == nil && cli.Store.ID != nil
}

// IsConnected reports whether the socket is up.
func (a *Adapter) IsConnected() bool {
	cli, err := a.cli()
	return err == nil && cli.IsConnected()
}

// OwnID returns the paired account id, or an empty JID.
func (a *Adapter) OwnID() types.JID {
	cli, err := a.cli()
	if err != nil || cli.Store.ID == nil {
		return types.EmptyJID
	}
	return cli.Store.ID.ToNonAD()
}

// Connect opens the socket. Without stored credentials it also starts the
// QR pairing flow.
func (a *Adapter) Connect() error {
	cli, err := a.cli()
	if err != nil {
		return err
	}
	if cli.Store.ID == nil {
		a.stopQR()
		ctx, cancel := context.WithCancel(context.Background())
		ch, err := cli.GetQRChannel(ctx)
		if err != nil {
			cancel()
			if errors.Is(err, whatsmeow.ErrQRAlreadyConnected) {
				return nil
			}
			return fmt.Errorf("get QR channel: %w", err)
		}
		a.hmu.Lock()
		a.qrCancel = cancel
		a.hmu.Unlock()
		go a.pumpQR(ch)
	}

	a.logger.Info("connecting to WhatsApp")
	if err := cli.Connect(); err != nil {
		if errors.Is(err, whatsmeow.ErrAlreadyConnected) {
			return nil
		}
		a.stopQR()
		return err
	}
	return nil
}

func (a *Adapter) pumpQR(ch <-chan whatsmeow.QRChannelItem) {
	defer a.stopQR()
	for item := range ch {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			a.deliver(&events.QR{Codes: []string{item.Code}})
		case whatsmeow.QRChannelSuccess.Event:
			return
		case whatsmeow.QRChannelEventError:
			a.deliver(&connection.PairingEnded{Reason: item.Error.Error()})
			return
		default:
			a.deliver(&connection.PairingEnded{Reason: item.Event})
			return
		}
	}
}

func (a *Adapter) stopQR() {
	a.hmu.Lock()
	cancel := a.qrCancel
	a.qrCancel = nil
	a.hmu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Disconnect closes the socket and keeps the credentials.
func (a *Adapter) Disconnect() {
	a.stopQR()
	cli, err := a.cli()
	if err != nil {
		return
	}
	a.logger.Info("disconnecting from WhatsApp")
	cli.Disconnect()
}

// Logout invalidates the session on the server.
func (a *Adapter) Logout(ctx context.Context) error {
	cli, err := a.cli()
	if err != nil {
		return err
	}
	return cli.Logout(ctx)
}

// PurgeCredentials deletes the stored device and swaps in a client for a
// fresh one, so the next Connect pairs from scratch. It is safe to call from
// an event handler.
func (a *Adapter) PurgeCredentials(ctx context.Context) error {
	a.stopQR()
	a.mu.Lock()
	old := a.client
	if old == nil {
		a.mu.Unlock()
		return ErrNoClient
	}
	if old.Store.ID != nil {
		if err := old.Store.Delete(ctx); err != nil {
			a.mu.Unlock()
			return fmt.Errorf("delete device: %w", err)
		}
	}
	a.client = a.newClient(a.container.NewDevice())
	a.mu.Unlock()

	old.Disconnect()
	a.logger.Info("credentials purged")
	return nil
}

// ResyncLabels fetches the regular app-state patch from scratch. Label
// events are dispatched before it returns.
func (a *Adapter) ResyncLabels(ctx context.Context) error {
	cli, err := a.cli()
	if err != nil {
		return err
	}
	if err := cli.FetchAppState(ctx, appstate.WAPatchRegular, true, false); err != nil {
		return fmt.Errorf("fetch app state: %w", err)
	}
	return nil
}

// Close disconnects and releases the credential store.
func (a *Adapter) Close() error {
	a.stopQR()
	a.mu.Lock()
	cli := a.client
	a.client = nil
	a.mu.Unlock()
	if cli != nil {
		cli.Disconnect()
		cli.RemoveEventHandlers()
	}
	return a.container.Close()
}
