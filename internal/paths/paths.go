package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	daemonName = "spacebake"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Path to the directory for runtime files (sockets, PIDs).
//
//	Linux:   $XDG_RUNTIME_DIR/spacebake or /run/user/<uid>/spacebake
//	macOS:   ~/Library/Caches/spacebake/run
func Runtime() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, daemonName)
	}
	return filepath.Join(xdg.CacheHome, daemonName, "run")
}

// Default path to the Unix domain socket for CLI-to-daemon communication.
//
//	Linux:   $XDG_RUNTIME_DIR/spacebake/spacebake.sock
//	macOS:   ~/Library/Caches/spacebake/run/spacebake.sock
func Socket() string {
	return filepath.Join(Runtime(), "spacebake.sock")
}

// Default path to the PID file.
//
//	Linux:   $XDG_RUNTIME_DIR/spacebake/spacebake.pid
//	macOS:   ~/Library/Caches/spacebake/run/spacebake.pid
func PIDFile() string {
	return filepath.Join(Runtime(), "spacebake.pid")
}

// Path to the cache directory for pulled base image archives.
//
//	Linux:   ~/.cache/spacebake/bases
//	macOS:   ~/Library/Caches/spacebake/bases
func BaseImageCache() string {
	return filepath.Join(xdg.CacheHome, daemonName, "bases")
}

// Path to the build ledger database.
//
//	Linux:   ~/.local/share/spacebake/ledger.db
//	macOS:   ~/Library/Application Support/spacebake/ledger.db
func Ledger() string {
	return filepath.Join(xdg.DataHome, daemonName, "ledger.db")
}

// Path to the cache directory for finished image archives, keyed by
// build fingerprint.
//
//	Linux:   ~/.cache/spacebake/builds
//	macOS:   ~/Library/Caches/spacebake/builds
func BuildCache() string {
	return filepath.Join(xdg.CacheHome, daemonName, "builds")
}
