// Package sockpath provides the default Unix socket path for the mkxray-web daemon.
// All binaries (mkxray-web, mkxrayctl, mkxray-mcp) use this to agree on the default.
package sockpath

import (
	"os"
	"path/filepath"
)

// DefaultSocketPath returns the default path for the control socket.
// It prefers $XDG_RUNTIME_DIR/mkxray/mkxray-web.sock, falling back to
// ~/.config/mkxray/mkxray-web.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "mkxray", "mkxray-web.sock")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "mkxray", "mkxray-web.sock")
}
