package lock

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/matheus3301/walink/internal/session"
)

// HeldError is returned when another process already runs the instance.
type HeldError struct {
	Instance string
	PID      int
	Since    time.Time
	Path     string
}

func (e *HeldError) Error() string {
	msg := fmt.Sprintf("instance %q is already running (PID %d", e.Instance, e.PID)
	if !e.Since.IsZero() {
		msg += ", since " + e.Since.Format(time.RFC3339)
	}
	return msg + ")"
}

// owner is what a lock file records about the process holding it.
type owner struct {
	PID   int
	Since time.Time
}

func (o owner) String() string {
	return fmt.Sprintf("pid=%d\ntime=%s\n", o.PID, o.Since.UTC().Format(time.RFC3339))
}

func parseOwner(content string) owner {
	var o owner
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			o.PID, _ = strconv.Atoi(value)
		case "time":
			o.Since, _ = time.Parse(time.RFC3339, value)
		}
	}
	return o
}

// Lock is a held instance lock. Two processes driving the same credential
// store would fight over the transport session.
type Lock struct {
	instance string
	file     *os.File
	path     string
}

// Acquire takes an exclusive lock on instance id under base, creating the
// instance directory. Returns HeldError if another process holds it.
func Acquire(base, id string) (*Lock, error) {
	if err := session.ValidateName(id); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(session.Dir(base, id), 0700); err != nil {
		return nil, fmt.Errorf("create instance dir: %w", err)
	}
	path := session.LockPath(base, id)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		data, _ := os.ReadFile(path)
		_ = f.Close()
		o := parseOwner(string(data))
		return nil, &HeldError{Instance: id, PID: o.PID, Since: o.Since, Path: path}
	}

	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.WriteAt([]byte(owner{PID: os.Getpid(), Since: time.Now()}.String()), 0); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Lock{instance: id, file: f, path: path}, nil
}

// Instance returns the locked instance id.
func (l *Lock) Instance() string {
	if l == nil {
		return ""
	}
	return l.instance
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release drops the lock and removes the file. Safe on a nil or released
// lock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}
