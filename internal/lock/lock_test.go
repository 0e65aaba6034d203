package lock

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/walink/internal/session"
)

func TestAcquireAndRelease(t *testing.T) {
	base := t.TempDir()

	l, err := Acquire(base, "main")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if l.Path() != session.LockPath(base, "main") || l.Instance() != "main" {
		t.Errorf("lock = %s at %s", l.Instance(), l.Path())
	}

	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	if o := parseOwner(string(data)); o.PID != os.Getpid() || o.Since.IsZero() {
		t.Errorf("lock file = %q", data)
	}

	if err := l.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if _, err := os.Stat(session.LockPath(base, "main")); !os.IsNotExist(err) {
		t.Error("lock file should be removed on release")
	}
}

func TestAcquireRejectsBadInstance(t *testing.T) {
	if _, err := Acquire(t.TempDir(), "../main"); err == nil {
		t.Fatal("Acquire should reject an unsafe instance id")
	}
}

func TestDoubleAcquireFails(t *testing.T) {
	base := t.TempDir()

	l1, err := Acquire(base, "main")
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	defer func() { _ = l1.Release() }()

	_, err = Acquire(base, "main")
	var held *HeldError
	if !errors.As(err, &held) {
		t.Fatalf("expected HeldError, got %T: %v", err, err)
	}
	if held.PID != os.Getpid() || held.Instance != "main" || held.Since.IsZero() {
		t.Errorf("HeldError = %+v", held)
	}
	if !strings.Contains(held.Error(), `instance "main" is already running`) {
		t.Errorf("Error() = %q", held.Error())
	}

	// Other instances under the same base are independent.
	l2, err := Acquire(base, "work")
	if err != nil {
		t.Fatalf("Acquire(work) error = %v", err)
	}
	_ = l2.Release()
}

func TestReleaseNil(t *testing.T) {
	var l *Lock
	if err := l.Release(); err != nil {
		t.Errorf("nil Release() error = %v", err)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	l, err := Acquire(t.TempDir(), "main")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if err := l.Release(); err != nil {
		t.Errorf("first Release() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
}

func TestParseOwner(t *testing.T) {
	since := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want owner
	}{
		{owner{PID: 42, Since: since}.String(), owner{PID: 42, Since: since}},
		{"time=bad\npid=7", owner{PID: 7}},
		{"", owner{}},
		{"pid=abc", owner{}},
	}
	for _, tt := range tests {
		got := parseOwner(tt.in)
		if got.PID != tt.want.PID || !got.Since.Equal(tt.want.Since) {
			t.Errorf("parseOwner(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
