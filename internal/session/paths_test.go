package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPaths(t *testing.T) {
	base := "/srv/sessions"
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"dir", Dir(base, "main"), "/srv/sessions/main"},
		{"lock", LockPath(base, "main"), "/srv/sessions/main/LOCK"},
		{"session db", SessionDBPath(base, "main"), "/srv/sessions/main/session.db"},
		{"identity db", IdentityDBPath(base, "main"), "/srv/sessions/main/identity.db"},
		{"log", LogPath(base), "/srv/sessions/logs/walinkd.log"},
		{"socket", SocketPath(base), "/srv/sessions/walinkd.sock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestEnsureDir(t *testing.T) {
	base := t.TempDir()

	if err := EnsureDir(base, "test"); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}

	for _, d := range []string{Dir(base, "test"), LogDir(base)} {
		info, err := os.Stat(d)
		if err != nil {
			t.Fatalf("%s not created: %v", d, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", d)
		}
		if perm := info.Mode().Perm(); perm != 0700 {
			t.Errorf("%s permission = %o, want 0700", filepath.Base(d), perm)
		}
	}
}
