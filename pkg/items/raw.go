package items

import (
	"context"
	"fmt"

	"gitlab.com/tinyland/lab/pulsebar/pkg/config"
	"gitlab.com/tinyland/lab/pulsebar/pkg/engine"
	"gitlab.com/tinyland/lab/pulsebar/pkg/hexcolor"
	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
)

// RawConfig configures a static text item.
type RawConfig struct {
	Text       string          `toml:"text" yaml:"text"`
	ShortText  string          `toml:"short_text" yaml:"short_text"`
	Color      *hexcolor.Color `toml:"color" yaml:"color"`
	Background *hexcolor.Color `toml:"background" yaml:"background"`
	Markup     string          `toml:"markup" yaml:"markup"`
	Urgent     bool            `toml:"urgent" yaml:"urgent"`
}

// Item returns the configured item.
func (c RawConfig) Item() (i3.Item, error) {
	item := i3.NewItem(c.Text).WithShortText(c.ShortText).WithName("raw").WithUrgent(c.Urgent)
	if c.Color != nil {
		item = item.WithColor(*c.Color)
	}
	if c.Background != nil {
		item = item.WithBackgroundColor(*c.Background)
	}
	m, err := parseMarkup(c.Markup)
	if err != nil {
		return i3.Item{}, err
	}
	return item.WithMarkup(m), nil
}

// Raw shows a fixed item. It updates once and then idles.
type Raw struct {
	item i3.Item
}

// NewRaw returns a raw item showing item.
func NewRaw(item i3.Item) *Raw {
	return &Raw{item: item}
}

// Start implements engine.BarItem.
func (r *Raw) Start(ctx context.Context, bc *engine.Context) error {
	if err := bc.Update(r.item); err != nil {
		return err
	}
	for {
		// Events are drained so the slot's queue never fills.
		if _, _, err := bc.WaitForEvent(ctx, 0); err != nil {
			return nil
		}
	}
}

func newRawFromConfig(ic config.ItemConfig) (engine.BarItem, error) {
	var cfg RawConfig
	if err := ic.Decode(&cfg); err != nil {
		return nil, err
	}
	item, err := cfg.Item()
	if err != nil {
		return nil, err
	}
	return NewRaw(item), nil
}

func parseMarkup(s string) (i3.Markup, error) {
	switch s {
	case "", "none":
		return i3.MarkupNone, nil
	case "pango":
		return i3.MarkupPango, nil
	default:
		return i3.MarkupNone, fmt.Errorf("unknown markup %q", s)
	}
}
