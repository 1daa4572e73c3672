package sysmetrics

import (
	"context"
	"errors"
	"time"

	"gitlab.com/tinyland/lab/pulsebar/pkg/dispatch"
	"gitlab.com/tinyland/lab/pulsebar/pkg/engine"
	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
	"gitlab.com/tinyland/lab/pulsebar/pkg/spawn"
)

// CPUConfig configures the cpu item.
type CPUConfig struct {
	Interval time.Duration `toml:"-" yaml:"-"`

	// Prefix is shown before the percentage.
	Prefix string `toml:"prefix" yaml:"prefix"`

	// Precision is the number of decimals.
	Precision int `toml:"precision" yaml:"precision"`

	// Command runs detached when the item is clicked.
	Command string `toml:"command" yaml:"command"`
}

// CPU shows total CPU usage coloured by load.
type CPU struct {
	cfg     CPUConfig
	sampler Sampler
}

// NewCPU returns a cpu item.
func NewCPU(cfg CPUConfig, s Sampler) *CPU {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultFastInterval
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "cpu "
	}
	return &CPU{cfg: cfg, sampler: s}
}

// errCPURefresh cuts the sampling delay short.
var errCPURefresh = errors.New("cpu: refresh")

// Start implements engine.BarItem.
func (c *CPU) Start(ctx context.Context, bc *engine.Context) error {
	th := bc.Theme()
	for {
		pct, err := c.sampler.CPUPercent(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			bc.Logger().Warn("cpu sample failed", "error", err)
		}

		item := i3.NewItem(c.cfg.Prefix + smPercent(pct, c.cfg.Precision)).
			WithName("cpu").
			WithMarkup(i3.MarkupPango)
		if fg, ok := th.Threshold(pct); ok {
			item = item.WithColor(fg)
		}
		if err := bc.Update(item); err != nil {
			return err
		}

		err = bc.DelayWithEventHandler(ctx, c.cfg.Interval, func(_ context.Context, ev dispatch.Event) error {
			if ev.Kind == dispatch.KindRefresh {
				return errCPURefresh
			}
			if ev.Kind == dispatch.KindClick && c.cfg.Command != "" {
				if err := spawn.Detached(bc.Logger(), c.cfg.Command); err != nil {
					bc.Logger().Warn("click action failed", "error", err)
				}
			}
			return nil
		})
		if err != nil && !errors.Is(err, errCPURefresh) {
			return nil
		}
	}
}
