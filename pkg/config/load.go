package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Load reads configuration from path, or from the standard locations when
// path is empty. Search order:
//  1. $XDG_CONFIG_HOME/pulsebar/config.{toml,yaml,yml}
//  2. ~/.config/pulsebar/config.{toml,yaml,yml}
//
// If no file exists, returns DefaultConfig(). Environment overrides are
// applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		for _, p := range configSearchPaths() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path == "" {
		cfg := DefaultConfig()
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, cfg.Validate()
}

// LoadFromFile reads a configuration file. YAML is used for .yaml and .yml
// files, TOML otherwise.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file %s does not exist", path)
		}
		return nil, err
	}

	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = ParseYAML(data)
	default:
		cfg, err = ParseTOML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// applyEnvOverrides checks environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PULSEBAR_THEME"); v != "" {
		cfg.Theme.Name = v
		cfg.Theme.File = ""
	}
	if v := os.Getenv("PULSEBAR_SOCKET"); v != "" {
		cfg.Socket = v
	}
	if v := os.Getenv("PULSEBAR_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// DefaultSocketPath returns $XDG_RUNTIME_DIR/pulsebar.sock, falling back to
// a per-user name in the temp directory.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "pulsebar.sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("pulsebar-%d.sock", os.Getuid()))
}

// configSearchPaths returns the ordered list of config file paths to try.
func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	var dirs []string

	xdg := xdgConfigHome(home)
	dirs = append(dirs, filepath.Join(xdg, "pulsebar"))

	// If XDG_CONFIG_HOME was explicitly set, also try the fallback default.
	defaultXDG := filepath.Join(home, ".config")
	if xdg != defaultXDG {
		dirs = append(dirs, filepath.Join(defaultXDG, "pulsebar"))
	}

	var paths []string
	for _, d := range dirs {
		for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
			paths = append(paths, filepath.Join(d, name))
		}
	}
	return paths
}

// xdgConfigHome returns XDG_CONFIG_HOME or ~/.config as fallback.
func xdgConfigHome(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}
