package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults are the locations used when no config file exists yet.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
	// Root is the directory `tidy config init` organizes when --root is not given.
	Root string
}

// GetDefaults resolves Defaults from the environment:
//   - TIDY_CONFIG_PATH, else $XDG_CONFIG_HOME/tidy.toml, else ~/.config/tidy.toml
//   - TIDY_HOME, else $XDG_DATA_HOME/tidy, else ~/.local/share/tidy
//   - TIDY_ROOT, else ~/Downloads
func GetDefaults() (Defaults, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Defaults{}, fmt.Errorf("cannot determine home directory: %w", err)
	}

	configPath := os.Getenv("TIDY_CONFIG_PATH")
	if configPath == "" {
		configPath = filepath.Join(xdgDir("XDG_CONFIG_HOME", home, ".config"), "tidy.toml")
	}
	baseDir := os.Getenv("TIDY_HOME")
	if baseDir == "" {
		baseDir = filepath.Join(xdgDir("XDG_DATA_HOME", home, ".local", "share"), "tidy")
	}
	root := os.Getenv("TIDY_ROOT")
	if root == "" {
		root = filepath.Join(home, "Downloads")
	}

	return Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
		Root:       root,
	}, nil
}

// xdgDir returns $env when it is an absolute path, else home joined with fallback.
func xdgDir(env, home string, fallback ...string) string {
	if dir := os.Getenv(env); filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}
