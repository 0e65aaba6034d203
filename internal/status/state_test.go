package status

import (
	"testing"

	"github.com/matheus3301/walink/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Disconnected {
		t.Errorf("initial state = %s, want disconnected", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Disconnected, Connecting},
		{Disconnected, Reconnecting},
		{Connecting, QRRequired},
		{Connecting, Connected},
		{Connecting, Disconnected},
		{QRRequired, Connected},
		{QRRequired, Disconnected},
		{Reconnecting, Connecting},
		{Reconnecting, Connected},
		{Connected, Disconnected},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Disconnected, Connected},
		{Disconnected, QRRequired},
		{Connected, Connecting},
		{Connected, Reconnecting},
		{Reconnecting, QRRequired},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err == nil {
				t.Errorf("Transition(%s -> %s) should fail", tt.from, tt.to)
			}
			if m.Current() != tt.from {
				t.Errorf("state = %s, want unchanged %s", m.Current(), tt.from)
			}
		})
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("connection.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Connecting); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != bus.KindStateChanged {
		t.Errorf("event kind = %q, want %s", evt.Kind, bus.KindStateChanged)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Disconnected || change.To != Connecting {
		t.Errorf("change = %v -> %v, want disconnected -> connecting", change.From, change.To)
	}
}

func TestSelfTransitionIsSilentNoop(t *testing.T) {
	b := bus.New()
	m := NewMachine(b)
	walkTo(t, m, QRRequired)

	ch, unsub := b.Subscribe("connection.", 10)
	defer unsub()

	if err := m.Transition(QRRequired); err != nil {
		t.Fatalf("self transition error = %v", err)
	}
	select {
	case evt := <-ch:
		t.Errorf("unexpected event %v for self transition", evt)
	default:
	}
}

func TestTransitionFrom(t *testing.T) {
	m := NewMachine(nil)
	if m.TransitionFrom(Connected, Connecting, Reconnecting) {
		t.Error("TransitionFrom should refuse when current state is not listed")
	}
	walkTo(t, m, Reconnecting)
	if !m.TransitionFrom(Connecting, Reconnecting) {
		t.Fatal("TransitionFrom(reconnecting -> connecting) should succeed")
	}
	if m.Current() != Connecting {
		t.Errorf("state = %s, want connecting", m.Current())
	}
}

// TestFirstPairingLifecycle simulates a fresh instance:
// disconnected -> connecting -> qr_required -> connected
func TestFirstPairingLifecycle(t *testing.T) {
	m := NewMachine(nil)

	for _, s := range []State{Connecting, QRRequired, Connected} {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if !m.Is(Connected) {
		t.Errorf("final state = %s, want connected", m.Current())
	}
}

// TestReconnectCycle verifies the automatic reconnect loop:
// connected -> disconnected -> reconnecting -> connecting -> connected
func TestReconnectCycle(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Connected)

	for _, s := range []State{Disconnected, Reconnecting, Connecting, Connected} {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Disconnected: {},
		Connecting:   {Connecting},
		QRRequired:   {Connecting, QRRequired},
		Connected:    {Connecting, Connected},
		Reconnecting: {Reconnecting},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
