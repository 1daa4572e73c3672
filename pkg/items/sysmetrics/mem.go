package sysmetrics

import (
	"context"
	"time"

	"gitlab.com/tinyland/lab/pulsebar/pkg/engine"
	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
)

// MemConfig configures the mem item.
type MemConfig struct {
	Interval  time.Duration `toml:"-" yaml:"-"`
	Prefix    string        `toml:"prefix" yaml:"prefix"`
	Precision int           `toml:"precision" yaml:"precision"`
}

// Mem shows memory usage. Clicking switches between the percentage and
// the used/total byte counts.
type Mem struct {
	cfg     MemConfig
	sampler Sampler
}

// NewMem returns a mem item.
func NewMem(cfg MemConfig, s Sampler) *Mem {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultFastInterval
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "mem "
	}
	return &Mem{cfg: cfg, sampler: s}
}

const memViews = 2

// Start implements engine.BarItem.
func (m *Mem) Start(ctx context.Context, bc *engine.Context) error {
	th := bc.Theme()
	view := 0
	for {
		mm, err := m.sampler.Memory(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			bc.Logger().Warn("memory sample failed", "error", err)
		}

		text := m.cfg.Prefix + smPercent(mm.UsedPercent, m.cfg.Precision)
		if view == 1 {
			text = m.cfg.Prefix + smFormatBytes(mm.Used) + "/" + smFormatBytes(mm.Total)
		}
		item := i3.NewItem(text).WithName("mem")
		if fg, ok := th.Threshold(mm.UsedPercent); ok {
			item = item.WithColor(fg)
		}
		if err := bc.Update(item); err != nil {
			return err
		}

		ev, ok, err := bc.WaitForEvent(ctx, m.cfg.Interval)
		if err != nil {
			return nil
		}
		if ok {
			bc.Paginate(ev, memViews, &view)
		}
	}
}
