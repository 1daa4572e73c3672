package items

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/pulsebar/pkg/config"
	"gitlab.com/tinyland/lab/pulsebar/pkg/dispatch"
	"gitlab.com/tinyland/lab/pulsebar/pkg/engine"
	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
	"gitlab.com/tinyland/lab/pulsebar/pkg/spawn"
)

// ScriptConfig configures a shell command item.
type ScriptConfig struct {
	Interval time.Duration `toml:"-" yaml:"-"`

	// Command runs through spawn.Shell. Its first output line is the
	// item's text, or with JSON set, its whole output is one i3bar block.
	Command string `toml:"command" yaml:"command"`
	JSON    bool   `toml:"json" yaml:"json"`
	Markup  string `toml:"markup" yaml:"markup"`

	// Timeout bounds one run. Defaults to the interval.
	Timeout config.Duration `toml:"timeout" yaml:"timeout"`
}

// Script runs a command on every interval and on every click. A click
// sets PULSEBAR_BUTTON, PULSEBAR_X and PULSEBAR_Y for that run.
type Script struct {
	cfg    ScriptConfig
	markup i3.Markup
}

// NewScript returns a script item.
func NewScript(cfg ScriptConfig) (*Script, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, fmt.Errorf("script: command is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	m, err := parseMarkup(cfg.Markup)
	if err != nil {
		return nil, err
	}
	return &Script{cfg: cfg, markup: m}, nil
}

// Start implements engine.BarItem.
func (s *Script) Start(ctx context.Context, bc *engine.Context) error {
	var env []string
	for {
		item, err := s.run(ctx, env)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			bc.Logger().Warn("script failed", "error", err)
			item = i3.NewItem("script error").WithColor(bc.Theme().Red)
		}
		if err := bc.Update(item.WithName("script")); err != nil {
			return err
		}

		ev, ok, err := bc.WaitForEvent(ctx, s.cfg.Interval)
		if err != nil {
			return nil
		}
		env = nil
		if ok && ev.Kind != dispatch.KindRefresh {
			env = scriptEnv(ev.Button, ev.X, ev.Y)
		}
	}
}

func (s *Script) run(ctx context.Context, env []string) (i3.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout.Or(s.cfg.Interval))
	defer cancel()

	out, err := spawn.Output(ctx, s.cfg.Command, env...)
	if err != nil {
		return i3.Item{}, err
	}
	if s.cfg.JSON {
		var item i3.Item
		if err := json.Unmarshal([]byte(out), &item); err != nil {
			return i3.Item{}, fmt.Errorf("decode output: %w", err)
		}
		return item, nil
	}
	line, _, _ := strings.Cut(out, "\n")
	return i3.NewItem(line).WithMarkup(s.markup), nil
}

func scriptEnv(b i3.Button, x, y int) []string {
	return []string{
		fmt.Sprintf("PULSEBAR_BUTTON=%d", b),
		fmt.Sprintf("PULSEBAR_X=%d", x),
		fmt.Sprintf("PULSEBAR_Y=%d", y),
	}
}

func newScriptFromConfig(ic config.ItemConfig) (engine.BarItem, error) {
	var cfg ScriptConfig
	if err := ic.Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.Interval = ic.Interval.Duration
	s, err := NewScript(cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}
