package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"gitlab.com/tinyland/lab/pulsebar/pkg/theme"
)

// Config is the root configuration.
type Config struct {
	LogLevel string       `toml:"log_level" yaml:"log_level"`
	LogFile  string       `toml:"log_file" yaml:"log_file"`
	Socket   string       `toml:"socket" yaml:"socket"`
	Theme    ThemeConfig  `toml:"theme" yaml:"theme"`
	Items    []ItemConfig `toml:"-" yaml:"-"`

	// Path is the file the configuration was read from, empty for the
	// builtin default.
	Path string `toml:"-" yaml:"-"`
}

// ThemeConfig selects the theme.
type ThemeConfig struct {
	// Name is a builtin theme name.
	Name string `toml:"name" yaml:"name"`

	// File is a TOML theme file. It takes precedence over Name. Relative
	// paths are resolved against the config file's directory.
	File string `toml:"file" yaml:"file"`

	// PowerlineEnable overrides the theme's own setting when set.
	PowerlineEnable *bool `toml:"powerline_enable" yaml:"powerline_enable"`
}

// ItemConfig is one [[item]] entry. Keys beyond the common ones are kept
// undecoded until the item's factory asks for them with Decode.
type ItemConfig struct {
	Type     string   `toml:"type" yaml:"type"`
	Name     string   `toml:"name" yaml:"name"`
	Interval Duration `toml:"interval" yaml:"interval"`

	md   *toml.MetaData
	prim *toml.Primitive
	node *yaml.Node
}

// Label returns Name, or Type when no name was configured.
func (ic ItemConfig) Label() string {
	if ic.Name != "" {
		return ic.Name
	}
	return ic.Type
}

// Decode decodes the item's keys into v. Unknown keys are ignored. An item
// without a source (the builtin defaults) leaves v untouched.
func (ic ItemConfig) Decode(v any) error {
	switch {
	case ic.prim != nil:
		if err := ic.md.PrimitiveDecode(*ic.prim, v); err != nil {
			return fmt.Errorf("item %q: %w", ic.Label(), err)
		}
	case ic.node != nil:
		if err := ic.node.Decode(v); err != nil {
			return fmt.Errorf("item %q: %w", ic.Label(), err)
		}
	}
	return nil
}

// NewItemConfig returns an item entry with no extra keys.
func NewItemConfig(typ string) ItemConfig {
	return ItemConfig{Type: typ}
}

// cfgTOMLFile and cfgYAMLFile hold item tables undecoded.
type cfgTOMLFile struct {
	LogLevel string           `toml:"log_level"`
	LogFile  string           `toml:"log_file"`
	Socket   string           `toml:"socket"`
	Theme    ThemeConfig      `toml:"theme"`
	Items    []toml.Primitive `toml:"item"`
}

type cfgYAMLFile struct {
	LogLevel string      `yaml:"log_level"`
	LogFile  string      `yaml:"log_file"`
	Socket   string      `yaml:"socket"`
	Theme    ThemeConfig `yaml:"theme"`
	Items    []yaml.Node `yaml:"item"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Socket:   DefaultSocketPath(),
		Theme:    ThemeConfig{Name: "default"},
		Items: []ItemConfig{
			NewItemConfig("cpu"),
			NewItemConfig("mem"),
			NewItemConfig("disk"),
			NewItemConfig("nic"),
			NewItemConfig("time"),
		},
	}
}

// ParseTOML decodes a TOML configuration.
func ParseTOML(data []byte) (*Config, error) {
	var raw cfgTOMLFile
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := DefaultConfig()
	cfg.mergeCommon(raw.LogLevel, raw.LogFile, raw.Socket, raw.Theme)
	if md.IsDefined("item") {
		cfg.Items = make([]ItemConfig, 0, len(raw.Items))
		for i := range raw.Items {
			ic := ItemConfig{md: &md, prim: &raw.Items[i]}
			if err := md.PrimitiveDecode(raw.Items[i], &ic); err != nil {
				return nil, fmt.Errorf("parse config: item %d: %w", i, err)
			}
			cfg.Items = append(cfg.Items, ic)
		}
	}
	return cfg, cfg.Validate()
}

// ParseYAML decodes a YAML configuration.
func ParseYAML(data []byte) (*Config, error) {
	var raw cfgYAMLFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := DefaultConfig()
	cfg.mergeCommon(raw.LogLevel, raw.LogFile, raw.Socket, raw.Theme)
	if raw.Items != nil {
		cfg.Items = make([]ItemConfig, 0, len(raw.Items))
		for i := range raw.Items {
			ic := ItemConfig{node: &raw.Items[i]}
			if err := raw.Items[i].Decode(&ic); err != nil {
				return nil, fmt.Errorf("parse config: item %d: %w", i, err)
			}
			cfg.Items = append(cfg.Items, ic)
		}
	}
	return cfg, cfg.Validate()
}

func (c *Config) mergeCommon(level, file, socket string, th ThemeConfig) {
	if level != "" {
		c.LogLevel = level
	}
	c.LogFile = file
	if socket != "" {
		c.Socket = os.ExpandEnv(socket)
	}
	if th.Name != "" || th.File != "" {
		c.Theme.Name = th.Name
		c.Theme.File = th.File
	}
	c.Theme.PowerlineEnable = th.PowerlineEnable
}

// Validate checks that every item has a type.
func (c *Config) Validate() error {
	for i, ic := range c.Items {
		if ic.Type == "" {
			return fmt.Errorf("item %d: missing type", i)
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// ResolveTheme returns the configured theme with overrides applied.
func (c *Config) ResolveTheme() (*theme.Theme, error) {
	var th *theme.Theme
	if c.Theme.File != "" {
		path := c.Theme.File
		if !filepath.IsAbs(path) && c.Path != "" {
			path = filepath.Join(filepath.Dir(c.Path), path)
		}
		loaded, err := theme.LoadFile(path)
		if err != nil {
			return nil, err
		}
		th = loaded
	} else {
		name := c.Theme.Name
		if name == "" {
			name = "default"
		}
		found, ok := theme.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown theme %q (available: %s)", name, strings.Join(theme.Names(), ", "))
		}
		th = found
	}

	if c.Theme.PowerlineEnable != nil {
		th.PowerlineEnable = *c.Theme.PowerlineEnable
	}
	if err := th.Validate(); err != nil {
		return nil, err
	}
	return th, nil
}

// WatchPaths returns the files whose changes should trigger a reload.
func (c *Config) WatchPaths() []string {
	var paths []string
	if c.Path != "" {
		paths = append(paths, c.Path)
	}
	if c.Theme.File != "" {
		p := c.Theme.File
		if !filepath.IsAbs(p) && c.Path != "" {
			p = filepath.Join(filepath.Dir(c.Path), p)
		}
		paths = append(paths, p)
	}
	return paths
}
