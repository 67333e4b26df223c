package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"codeberg.org/miketth/greeterkbd/pkg/keyboard"
	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

const (
	appName  = "greeterkbd"
	fileName = "config.toml"
)

type Config struct {
	// Numlock is "on", "off" or "none".
	Numlock string `toml:"Numlock"`
	// Display is the X display to talk to; empty means $DISPLAY.
	Display string `toml:"Display"`
}

func Default() Config {
	return Config{Numlock: "none"}
}

// Load decodes the config file at path. With an empty path the file is looked
// up in the XDG config directories, and defaults are returned if there is none.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		found, err := xdg.SearchConfigFile(filepath.Join(appName, fileName))
		if err != nil {
			return cfg, nil
		}
		path = found
	}

	_, err := toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return Config{}, fmt.Errorf("config file %s: %w", path, err)
	case err != nil:
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}

	return cfg, nil
}

func (c Config) NumlockPolicy() keyboard.NumlockPolicy {
	return keyboard.ParseNumlockPolicy(c.Numlock)
}
