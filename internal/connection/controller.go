package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"

	"github.com/matheus3301/walink/internal/bus"
	"github.com/matheus3301/walink/internal/metrics"
	"github.com/matheus3301/walink/internal/status"
)

// DefaultDelay is the reconnect delay used when Policy.Delay is zero.
const DefaultDelay = 3 * time.Second

const defaultResyncTimeout = 30 * time.Second

// Disconnect reasons reported in bus.Disconnected.
const (
	ReasonConnectionLost = "connection_lost"
	ReasonStreamReplaced = "stream_replaced"
	ReasonLoggedOut      = "logged_out"
	ReasonUser           = "user_disconnect"
	ReasonClientOutdated = "client_outdated"
	ReasonBanned         = "temporary_ban"
	ReasonPairingEnded   = "pairing_ended"
)

// ErrMaxReconnectAttempts is surfaced once the attempt cap is reached.
var ErrMaxReconnectAttempts = errors.New("maximum reconnect attempts reached")

// Transport is the part of the transport handle the controller drives.
type Transport interface {
	Connect() error
	Disconnect()
	Logout(ctx context.Context) error
	IsLoggedIn() bool
	// PurgeCredentials drops the stored session so the next Connect pairs
	// from scratch.
	PurgeCredentials(ctx context.Context) error
	ResyncLabels(ctx context.Context) error
}

// PairingEnded is dispatched by the transport when the pairing flow stops
// without a linked device, e.g. every QR code expired unscanned.
type PairingEnded struct {
	Reason string
}

// Policy configures automatic reconnection.
type Policy struct {
	AutoReconnect bool
	// MaxAttempts caps scheduled retries; 0 means unbounded.
	MaxAttempts int
	Delay       time.Duration
}

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler func(d time.Duration, f func()) Timer

func afterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option customizes a Controller.
type Option func(*Controller)

// WithScheduler replaces the wall-clock timer, mainly for tests.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.schedule = s }
}

// WithInstance labels logs and metrics with the instance id.
func WithInstance(id string) Option {
	return func(c *Controller) { c.instance = id }
}

// WithResyncTimeout bounds the background label resync after connecting.
func WithResyncTimeout(d time.Duration) Option {
	return func(c *Controller) { c.resyncTimeout = d }
}

// Controller owns one transport session: it drives the state machine from
// transport events, schedules bounded reconnects and purges credentials on
// logout.
type Controller struct {
	machine   *status.Machine
	transport Transport
	bus       *bus.Bus
	policy    Policy
	log       *zap.Logger

	schedule      Scheduler
	instance      string
	resyncTimeout time.Duration

	mu         sync.Mutex
	timer      Timer
	gen        uint64
	attempts   int
	userClosed bool
}

// New creates a controller. A nil bus or logger is allowed.
func New(machine *status.Machine, transport Transport, b *bus.Bus, policy Policy, logger *zap.Logger, opts ...Option) *Controller {
	if policy.Delay <= 0 {
		policy.Delay = DefaultDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		machine:       machine,
		transport:     transport,
		bus:           b,
		policy:        policy,
		log:           logger,
		schedule:      afterFunc,
		resyncTimeout: defaultResyncTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.instance != "" {
		c.log = c.log.With(zap.String("instance", c.instance))
	}
	return c
}

// Attempts returns the number of reconnects scheduled since the last
// successful connection.
func (c *Controller) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Pending reports whether a reconnect timer is outstanding.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

// Connect starts a transport session. It is a no-op while a session is
// already connecting or connected.
func (c *Controller) Connect() error {
	c.mu.Lock()
	c.userClosed = false
	c.stopTimerLocked()
	c.mu.Unlock()
	return c.dial()
}

func (c *Controller) dial() error {
	if !c.machine.TransitionFrom(status.Connecting, status.Disconnected, status.Reconnecting) {
		return nil
	}
	c.log.Info("connecting")
	if err := c.transport.Connect(); err != nil {
		c.log.Warn("connect failed", zap.Error(err))
		c.emit(bus.KindError, bus.Error{Op: "connect", Message: err.Error()})
		c.machine.TransitionFrom(status.Disconnected, status.Connecting)
		c.scheduleReconnect()
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// Disconnect ends the session and keeps the stored credentials, so a
// later Connect resumes without pairing.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	c.userClosed = true
	c.stopTimerLocked()
	c.mu.Unlock()

	c.transport.Disconnect()
	c.closed(ReasonUser, false)
}

// Logout invalidates the session on the server when possible and always
// purges the local credentials.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.userClosed = true
	c.stopTimerLocked()
	c.mu.Unlock()

	var logoutErr error
	if c.transport.IsLoggedIn() {
		logoutErr = c.transport.Logout(ctx)
		if logoutErr != nil {
			c.log.Warn("remote logout failed, purging locally", zap.Error(logoutErr))
		}
	}
	c.transport.Disconnect()
	purgeErr := c.purge(ctx)
	c.closed(ReasonLoggedOut, true)
	return errors.Join(logoutErr, purgeErr)
}

// Close cancels any pending reconnect and disconnects.
func (c *Controller) Close() {
	c.Disconnect()
}

// Handle consumes transport events that affect the connection.
func (c *Controller) Handle(evt any) {
	switch e := evt.(type) {
	case *events.QR:
		c.machine.TransitionFrom(status.QRRequired, status.Connecting, status.Reconnecting)
		if len(e.Codes) > 0 {
			c.emit(bus.KindQRCode, bus.QRCode{Code: e.Codes[0]})
		}
	case *events.PairSuccess:
		c.log.Info("paired", zap.String("id", e.ID.String()))
		c.emit(bus.KindSessionSaved, bus.SessionSaved{ID: e.ID.String()})
	case *events.Connected:
		c.connected()
	case *events.Disconnected:
		c.lost(ReasonConnectionLost)
	case *events.StreamReplaced:
		c.halt(ReasonStreamReplaced, "another client took over the session")
	case *events.ClientOutdated:
		c.halt(ReasonClientOutdated, "client version rejected by server")
	case *events.TemporaryBan:
		c.halt(ReasonBanned, e.String())
	case *events.ConnectFailure:
		if e.Reason.IsLoggedOut() {
			c.terminal(e.Reason.String())
			return
		}
		c.emit(bus.KindError, bus.Error{Op: "connect", Message: fmt.Sprintf("connect failure: %s", e.Reason)})
		c.lost(ReasonConnectionLost)
	case *events.LoggedOut:
		c.terminal(e.Reason.String())
	case *PairingEnded:
		c.halt(ReasonPairingEnded, "pairing ended: "+e.Reason)
	}
}

func (c *Controller) connected() {
	c.mu.Lock()
	c.attempts = 0
	c.stopTimerLocked()
	c.mu.Unlock()

	if !c.machine.TransitionFrom(status.Connected, status.Connecting, status.QRRequired, status.Reconnecting) {
		c.log.Warn("connected event in unexpected state", zap.String("state", string(c.machine.Current())))
		return
	}
	c.log.Info("connected")
	metrics.ConnectionState.WithLabelValues(c.instance).Set(1)
	c.emit(bus.KindReady, nil)
	go c.resyncLabels()
}

func (c *Controller) resyncLabels() {
	ctx, cancel := context.WithTimeout(context.Background(), c.resyncTimeout)
	defer cancel()
	if err := c.transport.ResyncLabels(ctx); err != nil {
		c.log.Warn("label resync failed", zap.Error(err))
	}
}

// lost handles a recoverable disconnect.
func (c *Controller) lost(reason string) {
	c.closed(reason, false)
	c.scheduleReconnect()
}

// halt handles a disconnect that must not be retried automatically but
// leaves the credentials in place.
func (c *Controller) halt(reason, msg string) {
	c.mu.Lock()
	c.stopTimerLocked()
	c.mu.Unlock()
	c.emit(bus.KindError, bus.Error{Op: "connection", Message: msg})
	c.closed(reason, false)
}

// terminal handles a logout initiated by the server or another device.
func (c *Controller) terminal(cause string) {
	c.mu.Lock()
	c.stopTimerLocked()
	c.mu.Unlock()

	c.log.Warn("session logged out", zap.String("cause", cause))
	ctx, cancel := context.WithTimeout(context.Background(), c.resyncTimeout)
	defer cancel()
	if err := c.purge(ctx); err != nil {
		c.emit(bus.KindError, bus.Error{Op: "purge", Message: err.Error()})
	}
	c.closed(ReasonLoggedOut, true)
}

func (c *Controller) purge(ctx context.Context) error {
	metrics.SessionPurges.WithLabelValues(c.instance).Inc()
	if err := c.transport.PurgeCredentials(ctx); err != nil {
		c.log.Error("purge credentials", zap.Error(err))
		return fmt.Errorf("purge credentials: %w", err)
	}
	return nil
}

// closed moves to disconnected and reports it once.
func (c *Controller) closed(reason string, terminal bool) {
	if !c.machine.TransitionFrom(status.Disconnected,
		status.Connected, status.Connecting, status.QRRequired, status.Reconnecting) {
		return
	}
	metrics.ConnectionState.WithLabelValues(c.instance).Set(0)
	c.log.Info("disconnected", zap.String("reason", reason), zap.Bool("terminal", terminal))
	c.emit(bus.KindDisconnected, bus.Disconnected{Reason: reason, Terminal: terminal})
}

// scheduleReconnect arms the single reconnect timer, replacing any pending
// one. It reports whether a retry was scheduled.
func (c *Controller) scheduleReconnect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.userClosed || !c.policy.AutoReconnect {
		return false
	}
	if c.policy.MaxAttempts > 0 && c.attempts >= c.policy.MaxAttempts {
		c.stopTimerLocked()
		metrics.ReconnectExhausted.WithLabelValues(c.instance).Inc()
		c.log.Error("giving up reconnecting", zap.Int("attempts", c.attempts))
		c.emit(bus.KindError, bus.Error{Op: "reconnect", Message: ErrMaxReconnectAttempts.Error()})
		return false
	}

	c.stopTimerLocked()
	c.attempts++
	c.gen++
	gen := c.gen
	attempt := c.attempts

	c.machine.TransitionFrom(status.Reconnecting, status.Disconnected)
	metrics.ReconnectAttempts.WithLabelValues(c.instance).Inc()
	c.log.Info("reconnect scheduled", zap.Int("attempt", attempt), zap.Duration("delay", c.policy.Delay))
	c.emit(bus.KindReconnecting, bus.Reconnecting{Attempt: attempt, Delay: c.policy.Delay})
	c.timer = c.schedule(c.policy.Delay, func() { c.fire(gen) })
	return true
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.gen != gen || c.timer == nil || c.userClosed {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	_ = c.dial()
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}

func (c *Controller) emit(kind string, payload any) {
	if c.bus != nil {
		c.bus.Emit(kind, payload)
	}
}
