package config

import (
	"os"
	"path/filepath"
)

// DefaultPath is the config file read when no path is given:
// $XDG_CONFIG_HOME/odin/config.yaml, or the OS config dir equivalent.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if d, err := os.UserConfigDir(); err == nil {
			dir = d
		} else {
			return "config.yaml"
		}
	}
	return filepath.Join(dir, "odin", "config.yaml")
}
