package config

import (
	"fmt"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
)

// ConfigDir holds settings.json, hooks.lua, the recent files list and the
// metadata database. Set by InitConfigDir.
var ConfigDir string

// defaultConfigDir is SCRIBE_CONFIG_HOME, else $XDG_CONFIG_HOME/scribe,
// else ~/.config/scribe
func defaultConfigDir() (string, error) {
	if dir := os.Getenv("SCRIBE_CONFIG_HOME"); dir != "" {
		return dir, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := homedir.Dir()
		if err != nil {
			return "", fmt.Errorf("cannot find your home directory, config files are unavailable: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "scribe"), nil
}

// InitConfigDir sets ConfigDir and creates it if needed. A flagConfigDir
// that does not exist is reported and the default is used instead.
func InitConfigDir(flagConfigDir string) error {
	dir, err := defaultConfigDir()
	if err != nil {
		return err
	}
	ConfigDir = dir

	var flagErr error
	if flagConfigDir != "" {
		if _, err := os.Stat(flagConfigDir); err == nil {
			ConfigDir = flagConfigDir
			return nil
		}
		flagErr = fmt.Errorf("%s does not exist, using %s", flagConfigDir, ConfigDir)
	}

	if err := os.MkdirAll(ConfigDir, os.ModePerm); err != nil {
		return fmt.Errorf("cannot create the configuration directory: %w", err)
	}
	return flagErr
}

// Path joins name onto the config directory
func Path(name string) string {
	return filepath.Join(ConfigDir, name)
}
