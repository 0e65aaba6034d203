package connection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"

	"github.com/matheus3301/walink/internal/bus"
	"github.com/matheus3301/walink/internal/status"
)

type fakeTransport struct {
	mu         sync.Mutex
	connectErr error
	loggedIn   bool
	connects   int
	disconnect int
	logouts    int
	purges     int
	resynced   chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{loggedIn: true, resynced: make(chan struct{}, 8)}
}

func (f *fakeTransport) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return f.connectErr
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	f.disconnect++
	f.mu.Unlock()
}

func (f *fakeTransport) Logout(context.Context) error {
	f.mu.Lock()
	f.logouts++
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) IsLoggedIn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loggedIn
}

func (f *fakeTransport) PurgeCredentials(context.Context) error {
	f.mu.Lock()
	f.purges++
	f.loggedIn = false
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) ResyncLabels(context.Context) error {
	f.resynced <- struct{}{}
	return nil
}

func (f *fakeTransport) counts() (connects, purges int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects, f.purges
}

// manualScheduler records timers and fires them on demand.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	delay   time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (s *manualScheduler) schedule(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{delay: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) pending() []*manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*manualTimer
	for _, t := range s.timers {
		if !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

// fire runs the single pending timer.
func (s *manualScheduler) fire(t *testing.T) {
	t.Helper()
	p := s.pending()
	if len(p) != 1 {
		t.Fatalf("pending timers = %d, want 1", len(p))
	}
	p[0].stopped = true
	p[0].f()
}

type harness struct {
	ctrl    *Controller
	machine *status.Machine
	tr      *fakeTransport
	sched   *manualScheduler
	events  <-chan bus.Event
}

func newHarness(t *testing.T, policy Policy) *harness {
	t.Helper()
	b := bus.New()
	ch, unsub := b.Subscribe("", 256)
	t.Cleanup(unsub)
	m := status.NewMachine(b)
	tr := newFakeTransport()
	sched := &manualScheduler{}
	ctrl := New(m, tr, b, policy, zap.NewNop(), WithScheduler(sched.schedule), WithInstance("test"))
	return &harness{ctrl: ctrl, machine: m, tr: tr, sched: sched, events: ch}
}

// drain collects the events published so far.
func (h *harness) drain() []bus.Event {
	var out []bus.Event
	for {
		select {
		case e := <-h.events:
			out = append(out, e)
		default:
			return out
		}
	}
}

func kinds(evts []bus.Event, kind string) []bus.Event {
	var out []bus.Event
	for _, e := range evts {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	if err := h.ctrl.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	h.ctrl.Handle(&events.Connected{})
	if h.machine.Current() != status.Connected {
		t.Fatalf("state = %s, want connected", h.machine.Current())
	}
}

func TestDefaultDelay(t *testing.T) {
	c := New(status.NewMachine(nil), newFakeTransport(), nil, Policy{}, nil)
	if c.policy.Delay != DefaultDelay {
		t.Errorf("delay = %v, want %v", c.policy.Delay, DefaultDelay)
	}
}

func TestConnectPairingFlow(t *testing.T) {
	h := newHarness(t, Policy{AutoReconnect: true})

	if err := h.ctrl.Connect(); err != nil {
		t.Fatal(err)
	}
	if h.machine.Current() != status.Connecting {
		t.Fatalf("state = %s, want connecting", h.machine.Current())
	}

	h.ctrl.Handle(&events.QR{Codes: []string{"code-1", "code-2"}})
	if h.machine.Current() != status.QRRequired {
		t.Fatalf("state = %s, want qr_required", h.machine.Current())
	}
	h.ctrl.Handle(&events.PairSuccess{ID: types.NewJID("62811", types.DefaultUserServer)})
	h.ctrl.Handle(&events.Connected{})

	evts := h.drain()
	qr := kinds(evts, bus.KindQRCode)
	if len(qr) != 1 || qr[0].Payload.(bus.QRCode).Code != "code-1" {
		t.Errorf("qr events = %+v, want one with the first code", qr)
	}
	if len(kinds(evts, bus.KindSessionSaved)) != 1 {
		t.Error("expected a session.saved event")
	}
	if len(kinds(evts, bus.KindReady)) != 1 {
		t.Error("expected a client.ready event")
	}

	select {
	case <-h.tr.resynced:
	case <-time.After(2 * time.Second):
		t.Error("label resync was not triggered after connecting")
	}
}

func TestConnectIsNoopWhenConnected(t *testing.T) {
	h := newHarness(t, Policy{AutoReconnect: true})
	h.connect(t)
	if err := h.ctrl.Connect(); err != nil {
		t.Fatal(err)
	}
	if connects, _ := h.tr.counts(); connects != 1 {
		t.Errorf("transport connects = %d, want 1", connects)
	}
}

func TestDisconnectSchedulesSingleTimer(t *testing.T) {
	h := newHarness(t, Policy{AutoReconnect: true, Delay: 3 * time.Second})
	h.connect(t)
	h.drain()

	h.ctrl.Handle(&events.Disconnected{})
	if h.machine.Current() != status.Reconnecting {
		t.Fatalf("state = %s, want reconnecting", h.machine.Current())
	}
	p := h.sched.pending()
	if len(p) != 1 || p[0].delay != 3*time.Second {
		t.Fatalf("pending = %+v, want one 3s timer", p)
	}

	// A second disconnect before the timer fires replaces it.
	h.ctrl.Handle(&events.Disconnected{})
	if n := len(h.sched.pending()); n != 1 {
		t.Fatalf("pending timers after second disconnect = %d, want 1", n)
	}
	if !p[0].stopped {
		t.Error("first timer should have been stopped")
	}

	evts := h.drain()
	rec := kinds(evts, bus.KindReconnecting)
	if len(rec) != 2 || rec[1].Payload.(bus.Reconnecting).Attempt != 2 {
		t.Errorf("reconnecting events = %+v, want attempts 1 and 2", rec)
	}
	d := kinds(evts, bus.KindDisconnected)
	if len(d) == 0 || d[0].Payload.(bus.Disconnected).Reason != ReasonConnectionLost {
		t.Errorf("disconnected events = %+v", d)
	}
}

func TestTimerFiresConnect(t *testing.T) {
	h := newHarness(t, Policy{AutoReconnect: true})
	h.connect(t)
	h.ctrl.Handle(&events.Disconnected{})

	h.sched.fire(t)
	if h.machine.Current() != status.Connecting {
		t.Fatalf("state = %s, want connecting", h.machine.Current())
	}
	if connects, _ := h.tr.counts(); connects != 2 {
		t.Errorf("transport connects = %d, want 2", connects)
	}

	h.ctrl.Handle(&events.Connected{})
	if h.ctrl.Attempts() != 0 {
		t.Errorf("attempts after connected = %d, want 0", h.ctrl.Attempts())
	}
}

func TestStaleTimerIgnored(t *testing.T) {
	h := newHarness(t, Policy{AutoReconnect: true})
	h.connect(t)
	h.ctrl.Handle(&events.Disconnected{})
	first := h.sched.pending()[0]
	h.ctrl.Handle(&events.Disconnected{})

	// The replaced callback must not dial even if it runs late.
	first.f()
	if connects, _ := h.tr.counts(); connects != 1 {
		t.Errorf("transport connects = %d, want 1", connects)
	}
}

// TestReconnectCap walks the bounded policy: five scheduled attempts that
// all fail, then an error instead of a sixth.
func TestReconnectCap(t *testing.T) {
	h := newHarness(t, Policy{AutoReconnect: true, MaxAttempts: 5, Delay: 3 * time.Second})
	h.connect(t)
	h.drain()

	for i := 1; i <= 5; i++ {
		h.ctrl.Handle(&events.Disconnected{})
		if h.machine.Current() != status.Reconnecting {
			t.Fatalf("attempt %d: state = %s, want reconnecting", i, h.machine.Current())
		}
		h.sched.fire(t)
		if h.machine.Current() != status.Connecting {
			t.Fatalf("attempt %d: state = %s, want connecting", i, h.machine.Current())
		}
	}
	h.drain()

	h.ctrl.Handle(&events.Disconnected{})
	if n := len(h.sched.pending()); n != 0 {
		t.Errorf("pending timers = %d, want 0 after cap", n)
	}
	if h.machine.Current() != status.Disconnected {
		t.Errorf("state = %s, want disconnected", h.machine.Current())
	}
	errs := kinds(h.drain(), bus.KindError)
	if len(errs) != 1 || errs[0].Payload.(bus.Error).Message != ErrMaxReconnectAttempts.Error() {
		t.Errorf("error events = %+v, want max attempts error", errs)
	}
}

func TestConnectFailureRetries(t *testing.T) {
	h := newHarness(t, Policy{AutoReconnect: true})
	h.tr.connectErr = errors.New("dial tcp: refused")

	err := h.ctrl.Connect()
	if err == nil {
		t.Fatal("Connect() should return the transport error")
	}
	if h.machine.Current() != status.Reconnecting {
		t.Errorf("state = %s, want reconnecting", h.machine.Current())
	}
	if len(h.sched.pending()) != 1 {
		t.Error("connect failure should schedule a retry")
	}
	if len(kinds(h.drain(), bus.KindError)) != 1 {
		t.Error("connect failure should publish client.error")
	}
}

func TestConnectFailureWithoutAutoReconnect(t *testing.T) {
	h := newHarness(t, Policy{AutoReconnect: false})
	h.tr.connectErr = errors.New("boom")

	if err := h.ctrl.Connect(); err == nil {
		t.Fatal("Connect() should fail")
	}
	if h.machine.Current() != status.Disconnected {
		t.Errorf("state = %s, want disconnected", h.machine.Current())
	}
	if len(h.sched.pending()) != 0 {
		t.Error("no retry expected with auto-reconnect off")
	}
}

func TestLoggedOutPurgesWithoutReconnect(t *testing.T) {
	tests := []struct {
		name string
		evt  any
	}{
		{"logged out", &events.LoggedOut{Reason: events.ConnectFailureLoggedOut}},
		{"connect failure logged out", &events.ConnectFailure{Reason: events.ConnectFailureLoggedOut}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Policy{AutoReconnect: true})
			h.connect(t)
			h.drain()

			h.ctrl.Handle(tt.evt)

			if n := len(h.sched.pending()); n != 0 {
				t.Errorf("pending timers = %d, want 0", n)
			}
			if _, purges := h.tr.counts(); purges != 1 {
				t.Errorf("purges = %d, want 1", purges)
			}
			if h.tr.IsLoggedIn() {
				t.Error("credentials should be gone")
			}
			d := kinds(h.drain(), bus.KindDisconnected)
			if len(d) != 1 {
				t.Fatalf("disconnected events = %d, want 1", len(d))
			}
			if p := d[0].Payload.(bus.Disconnected); p.Reason != ReasonLoggedOut || !p.Terminal {
				t.Errorf("payload = %+v, want terminal logged_out", p)
			}
		})
	}
}

func TestNonTerminalConnectFailureRetries(t *testing.T) {
	h := newHarness(t, Policy{AutoReconnect: true})
	h.connect(t)
	h.ctrl.Handle(&events.ConnectFailure{Reason: events.ConnectFailureServiceUnavailable})
	if len(h.sched.pending()) != 1 {
		t.Error("service unavailable should retry")
	}
	if _, purges := h.tr.counts(); purges != 0 {
		t.Error("service unavailable must not purge credentials")
	}
}

func TestHaltingEventsDoNotReconnect(t *testing.T) {
	tests := []struct {
		name   string
		evt    any
		reason string
	}{
		{"stream replaced", &events.StreamReplaced{}, ReasonStreamReplaced},
		{"client outdated", &events.ClientOutdated{}, ReasonClientOutdated},
		{"temporary ban", &events.TemporaryBan{Code: events.TempBanSentToTooManyPeople, Expire: time.Hour}, ReasonBanned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Policy{AutoReconnect: true})
			h.connect(t)
			h.drain()

			h.ctrl.Handle(tt.evt)
			if len(h.sched.pending()) != 0 {
				t.Error("no reconnect expected")
			}
			if _, purges := h.tr.counts(); purges != 0 {
				t.Error("credentials must be kept")
			}
			evts := h.drain()
			d := kinds(evts, bus.KindDisconnected)
			if len(d) != 1 || d[0].Payload.(bus.Disconnected).Reason != tt.reason {
				t.Errorf("disconnected = %+v, want reason %s", d, tt.reason)
			}
			if len(kinds(evts, bus.KindError)) != 1 {
				t.Error("expected an error event")
			}
		})
	}
}

func TestUserDisconnectCancelsTimerAndKeepsCredentials(t *testing.T) {
	h := newHarness(t, Policy{AutoReconnect: true})
	h.connect(t)
	h.ctrl.Handle(&events.Disconnected{})
	timer := h.sched.pending()[0]

	h.ctrl.Disconnect()
	if !timer.stopped {
		t.Error("Disconnect should stop the pending timer")
	}
	if h.machine.Current() != status.Disconnected {
		t.Errorf("state = %s, want disconnected", h.machine.Current())
	}
	if _, purges := h.tr.counts(); purges != 0 {
		t.Error("Disconnect must keep credentials")
	}

	// A late transport disconnect after a user close never reconnects.
	h.ctrl.Handle(&events.Disconnected{})
	if len(h.sched.pending()) != 0 {
		t.Error("no reconnect expected after user disconnect")
	}

	// Connect resumes with the stored credentials.
	if err := h.ctrl.Connect(); err != nil {
		t.Fatal(err)
	}
	if !h.tr.IsLoggedIn() {
		t.Error("credentials should survive Disconnect")
	}
}

func TestLogout(t *testing.T) {
	h := newHarness(t, Policy{AutoReconnect: true})
	h.connect(t)
	h.drain()

	if err := h.ctrl.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	h.tr.mu.Lock()
	logouts, purges := h.tr.logouts, h.tr.purges
	h.tr.mu.Unlock()
	if logouts != 1 || purges != 1 {
		t.Errorf("logouts = %d, purges = %d; want 1, 1", logouts, purges)
	}
	if h.machine.Current() != status.Disconnected {
		t.Errorf("state = %s, want disconnected", h.machine.Current())
	}
	d := kinds(h.drain(), bus.KindDisconnected)
	if len(d) != 1 || !d[0].Payload.(bus.Disconnected).Terminal {
		t.Errorf("disconnected = %+v, want one terminal event", d)
	}
}

func TestPairingEndedHalts(t *testing.T) {
	h := newHarness(t, Policy{AutoReconnect: true})
	if err := h.ctrl.Connect(); err != nil {
		t.Fatal(err)
	}
	h.ctrl.Handle(&events.QR{Codes: []string{"c"}})
	h.ctrl.Handle(&PairingEnded{Reason: "timeout"})

	if h.machine.Current() != status.Disconnected {
		t.Errorf("state = %s, want disconnected", h.machine.Current())
	}
	if len(h.sched.pending()) != 0 {
		t.Error("expired pairing must not reconnect")
	}
}
