package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "walink.toml")

	off := false
	cfg := &Config{
		SessionPath: "/var/lib/walink",
		Socket:      "/run/walink.sock",
		Instances: []Instance{
			{ID: "work", AutoReconnect: &off, MaxReconnectAttempts: 5},
		},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.SessionPath != "/var/lib/walink" {
		t.Errorf("SessionPath = %q, want /var/lib/walink", loaded.SessionPath)
	}
	if len(loaded.Instances) != 1 || loaded.Instances[0].ID != "work" {
		t.Fatalf("Instances = %+v", loaded.Instances)
	}
	if a := loaded.Instances[0].AutoReconnect; a == nil || *a {
		t.Errorf("AutoReconnect = %v, want explicit false", a)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/walink.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadFillsSessionPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walink.toml")
	if err := os.WriteFile(path, []byte("[[instance]]\nid = \"main\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SessionPath != DefaultSessionPath {
		t.Errorf("SessionPath = %q, want %q", cfg.SessionPath, DefaultSessionPath)
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "walink.toml")

	if err := Save(path, Defaults()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", *Defaults(), false},
		{"no instances", Config{}, true},
		{"bad id", Config{Instances: []Instance{{ID: "Bad Id"}}}, true},
		{"duplicate", Config{Instances: []Instance{{ID: "a"}, {ID: "a"}}}, true},
		{"negative delay", Config{Instances: []Instance{{ID: "a", ReconnectDelayMS: -1}}}, true},
		{"two instances", Config{Instances: []Instance{{ID: "a"}, {ID: "b"}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClientOptionsDefaults(t *testing.T) {
	cfg := Defaults()
	opts, err := cfg.ClientOptions("main")
	if err != nil {
		t.Fatal(err)
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect should default to true")
	}
	if opts.ReconnectDelay != 3*time.Second {
		t.Errorf("ReconnectDelay = %v, want 3s", opts.ReconnectDelay)
	}
	if opts.MaxReconnectAttempts != 0 {
		t.Errorf("MaxReconnectAttempts = %d, want 0 (unbounded)", opts.MaxReconnectAttempts)
	}
	if opts.SessionPath != DefaultSessionPath {
		t.Errorf("SessionPath = %q", opts.SessionPath)
	}

	if _, err := cfg.ClientOptions("missing"); err == nil {
		t.Error("ClientOptions(missing) should fail")
	}
}

func TestClientOptionsOverrides(t *testing.T) {
	off := false
	cfg := &Config{
		SessionPath: "/data",
		Debug:       true,
		Instances: []Instance{{
			ID: "ops", AutoReconnect: &off, MaxReconnectAttempts: 5,
			ReconnectDelayMS: 250, IdentityCacheSize: 50,
		}},
	}
	opts, err := cfg.ClientOptions("ops")
	if err != nil {
		t.Fatal(err)
	}
	if opts.AutoReconnect || opts.MaxReconnectAttempts != 5 || opts.ReconnectDelay != 250*time.Millisecond ||
		opts.IdentityCacheSize != 50 || !opts.Debug || opts.SessionPath != "/data" {
		t.Errorf("opts = %+v", opts)
	}
}
