package config

import (
	"os"
	"path/filepath"
	"sync"
)

const envHome = "MBRUNNER_HOME"

var (
	homeMu sync.Mutex
	home   string

	executable = os.Executable
)

// GetHome returns the mbrunner home directory: $MBRUNNER_HOME, else the
// parent of bin/ when the binary is installed as <home>/bin/mbrunner, else
// the working directory. The first result is cached.
func GetHome() string {
	homeMu.Lock()
	defer homeMu.Unlock()
	if home == "" {
		home = findHome(os.Getenv(envHome), executable)
	}
	return home
}

// GetDatabasePath returns <home>/results.db.
func GetDatabasePath() string {
	return filepath.Join(GetHome(), "results.db")
}

// GetReportsDir returns <home>/reports.
func GetReportsDir() string {
	return filepath.Join(GetHome(), "reports")
}

func findHome(env string, exe func() (string, error)) string {
	if env != "" {
		return env
	}
	if bin, err := exe(); err == nil {
		if resolved, err := filepath.EvalSymlinks(bin); err == nil {
			bin = resolved
		}
		if dir := filepath.Dir(bin); filepath.Base(dir) == "bin" {
			return filepath.Dir(dir)
		}
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// ResetHome drops the cached home directory.
func ResetHome() {
	homeMu.Lock()
	home = ""
	homeMu.Unlock()
}
