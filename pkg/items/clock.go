package items

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/tinyland/lab/pulsebar/pkg/config"
	"gitlab.com/tinyland/lab/pulsebar/pkg/engine"
	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
)

// DefaultClockFormats are the layouts the time item cycles through.
var DefaultClockFormats = []string{
	"Mon 2 Jan 15:04",
	"2006-01-02 15:04:05 MST",
}

// ClockConfig configures the time item.
type ClockConfig struct {
	Interval time.Duration `toml:"-" yaml:"-"`

	// Formats are Go time layouts. Clicking cycles through them.
	Formats []string `toml:"formats" yaml:"formats"`

	// Location is an IANA zone name. Empty means local time.
	Location string `toml:"location" yaml:"location"`

	Prefix string `toml:"prefix" yaml:"prefix"`
}

// Clock shows the current time.
type Clock struct {
	cfg ClockConfig
	loc *time.Location
	now func() time.Time
}

// NewClock returns a time item.
func NewClock(cfg ClockConfig) (*Clock, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = DefaultClockFormats
	}
	loc := time.Local
	if cfg.Location != "" {
		l, err := time.LoadLocation(cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("location: %w", err)
		}
		loc = l
	}
	return &Clock{cfg: cfg, loc: loc, now: time.Now}, nil
}

// Start implements engine.BarItem.
func (c *Clock) Start(ctx context.Context, bc *engine.Context) error {
	idx := 0
	for {
		now := c.now().In(c.loc)
		text := c.cfg.Prefix + now.Format(c.cfg.Formats[idx])
		if err := bc.Update(i3.NewItem(text).WithName("time")); err != nil {
			return err
		}

		ev, ok, err := bc.WaitForEvent(ctx, clockUntilNext(now, c.cfg.Interval))
		if err != nil {
			return nil
		}
		if ok {
			bc.Paginate(ev, len(c.cfg.Formats), &idx)
		}
	}
}

// clockUntilNext returns the wait until the next multiple of interval
// counted from local midnight in now's zone, so a one-second clock ticks on
// the second and an hourly one on the hour of the wall clock.
func clockUntilNext(now time.Time, interval time.Duration) time.Duration {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	elapsed := now.Sub(midnight)
	next := midnight.Add((elapsed/interval + 1) * interval)
	if d := next.Sub(now); d > 0 {
		return d
	}
	return interval
}

func newClockFromConfig(ic config.ItemConfig) (engine.BarItem, error) {
	var cfg ClockConfig
	if err := ic.Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.Interval = ic.Interval.Duration
	c, err := NewClock(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}
