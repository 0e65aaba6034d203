package session

import (
	"os"
	"path/filepath"
)

// logDirName is the shared log directory, a sibling of the instance
// directories.
const logDirName = "logs"

// Dir returns the instance-specific directory under the session path.
func Dir(base, id string) string {
	return filepath.Join(base, id)
}

// LockPath returns the lock file path for an instance.
func LockPath(base, id string) string {
	return filepath.Join(Dir(base, id), "LOCK")
}

// SessionDBPath returns the whatsmeow credential store path.
func SessionDBPath(base, id string) string {
	return filepath.Join(Dir(base, id), "session.db")
}

// IdentityDBPath returns the identity snapshot database path.
func IdentityDBPath(base, id string) string {
	return filepath.Join(Dir(base, id), "identity.db")
}

// LogDir returns the log directory under the session path. Logs are
// shared by every instance in the process.
func LogDir(base string) string {
	return filepath.Join(base, logDirName)
}

// LogPath returns the daemon log file path.
func LogPath(base string) string {
	return filepath.Join(LogDir(base), "walinkd.log")
}

// SocketPath returns the default control socket path.
func SocketPath(base string) string {
	return filepath.Join(base, "walinkd.sock")
}

// EnsureDir creates the instance directory tree with proper permissions.
func EnsureDir(base, id string) error {
	dirs := []string{
		Dir(base, id),
		LogDir(base),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
