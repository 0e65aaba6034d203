package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)

	ReconnectAttempts.WithLabelValues("metrics-test").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var got float64
	found := false
	for _, f := range families {
		if f.GetName() != "walink_reconnect_attempts_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "instance" && l.GetValue() == "metrics-test" {
					found = true
					got = m.GetCounter().GetValue()
				}
			}
		}
	}
	if !found {
		t.Fatal("walink_reconnect_attempts_total{instance=metrics-test} not gathered")
	}
	if got != 1 {
		t.Errorf("reconnect attempts = %v, want 1", got)
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)
	defer func() {
		if recover() == nil {
			t.Error("second Register on the same registry should panic")
		}
	}()
	Register(reg)
}
