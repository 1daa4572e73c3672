package sysmetrics

import (
	"context"
	"time"

	"gitlab.com/tinyland/lab/pulsebar/pkg/engine"
	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
)

// DiskConfig configures the disk item.
type DiskConfig struct {
	Interval time.Duration `toml:"-" yaml:"-"`

	// Path is the mount point to report. Defaults to "/".
	Path      string `toml:"path" yaml:"path"`
	Prefix    string `toml:"prefix" yaml:"prefix"`
	Precision int    `toml:"precision" yaml:"precision"`
}

// Disk shows usage of one filesystem. Clicking switches between the used
// percentage and the free space.
type Disk struct {
	cfg     DiskConfig
	sampler Sampler
}

// NewDisk returns a disk item.
func NewDisk(cfg DiskConfig, s Sampler) *Disk {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSlowInterval
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = cfg.Path + " "
	}
	return &Disk{cfg: cfg, sampler: s}
}

// Start implements engine.BarItem.
func (d *Disk) Start(ctx context.Context, bc *engine.Context) error {
	th := bc.Theme()
	view := 0
	for {
		dm, err := d.sampler.Disk(ctx, d.cfg.Path)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			bc.Logger().Warn("disk sample failed", "path", d.cfg.Path, "error", err)
		}

		text := d.cfg.Prefix + smPercent(dm.UsedPercent, d.cfg.Precision)
		if view == 1 {
			text = d.cfg.Prefix + smFormatBytes(dm.Free) + " free"
		}
		item := i3.NewItem(text).WithName("disk")
		if fg, ok := th.Threshold(dm.UsedPercent); ok {
			item = item.WithColor(fg)
		}
		if err := bc.Update(item); err != nil {
			return err
		}

		ev, ok, err := bc.WaitForEvent(ctx, d.cfg.Interval)
		if err != nil {
			return nil
		}
		if ok {
			bc.Paginate(ev, 2, &view)
		}
	}
}
