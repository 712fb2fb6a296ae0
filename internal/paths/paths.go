package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	appName = "forge"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Path to the user configuration file.
//
//	Linux:   $XDG_CONFIG_HOME/forge/config.json
//	macOS:   ~/Library/Application Support/forge/config.json
func ConfigFile() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.json")
}

// Path to the directory for persistent state shared by all invocations.
//
//	Linux:   $XDG_STATE_HOME/forge
//	macOS:   ~/Library/Application Support/forge
func State() string {
	return filepath.Join(xdg.StateHome, appName)
}

// Default path to the lock broker database.
//
//	Linux:   $XDG_STATE_HOME/forge/locks.db
//	macOS:   ~/Library/Application Support/forge/locks.db
func LockDatabase() string {
	return filepath.Join(State(), "locks.db")
}
