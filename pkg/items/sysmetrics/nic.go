package sysmetrics

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/pulsebar/pkg/engine"
	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
	"gitlab.com/tinyland/lab/pulsebar/pkg/theme"
)

// Kind is an address family.
type Kind int

const (
	KindAny Kind = iota
	KindV4
	KindV6
)

func (k Kind) String() string {
	switch k {
	case KindV4:
		return "v4"
	case KindV6:
		return "v6"
	default:
		return ""
	}
}

// Interface is one address of a network interface.
type Interface struct {
	Name string
	Addr netip.Addr
	Kind Kind
}

// NewInterface returns the interface entry for addr.
func NewInterface(name string, addr netip.Addr) Interface {
	kind := KindV6
	if addr.Unmap().Is4() {
		kind = KindV4
	}
	return Interface{Name: name, Addr: addr.Unmap(), Kind: kind}
}

// Filter selects interfaces by name and address family. It is written as
// "name[:v4|v6]"; an empty name matches every interface, so ":v6" selects
// all IPv6 addresses.
type Filter struct {
	Name string
	Kind Kind
}

// ParseFilter parses the "name[:v4|v6]" form.
func ParseFilter(s string) (Filter, error) {
	name, kind, found := strings.Cut(s, ":")
	if !found {
		return Filter{Name: s}, nil
	}
	switch kind {
	case "v4":
		return Filter{Name: name, Kind: KindV4}, nil
	case "v6":
		return Filter{Name: name, Kind: KindV6}, nil
	default:
		return Filter{}, fmt.Errorf("invalid interface kind %q, want v4 or v6", kind)
	}
}

// String returns the "name[:v4|v6]" form.
func (f Filter) String() string {
	if f.Kind == KindAny {
		return f.Name
	}
	return f.Name + ":" + f.Kind.String()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Filter) UnmarshalText(text []byte) error {
	parsed, err := ParseFilter(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (f Filter) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Matches reports whether iface passes the filter.
func (f Filter) Matches(iface Interface) bool {
	if f.Name != "" && f.Name != iface.Name {
		return false
	}
	return f.Kind == KindAny || f.Kind == iface.Kind
}

// NICConfig configures the nic item.
type NICConfig struct {
	Interval time.Duration `toml:"-" yaml:"-"`

	// Filter limits the shown interfaces. An empty list shows all.
	Filter []Filter `toml:"filter" yaml:"filter"`
}

// NIC shows one network address at a time. Clicking or scrolling pages
// through the matching addresses; "disconnected" is shown in red when
// there are none.
type NIC struct {
	cfg     NICConfig
	sampler Sampler
}

// NewNIC returns a nic item.
func NewNIC(cfg NICConfig, s Sampler) *NIC {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultFastInterval * 5
	}
	return &NIC{cfg: cfg, sampler: s}
}

func (n *NIC) filter(ifaces []Interface) []Interface {
	if len(n.cfg.Filter) == 0 {
		return ifaces
	}
	var out []Interface
	for _, iface := range ifaces {
		for _, f := range n.cfg.Filter {
			if f.Matches(iface) {
				out = append(out, iface)
				break
			}
		}
	}
	return out
}

// Start implements engine.BarItem.
func (n *NIC) Start(ctx context.Context, bc *engine.Context) error {
	th := bc.Theme()
	idx := 0
	for {
		all, err := n.sampler.Interfaces(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			bc.Logger().Warn("listing interfaces failed", "error", err)
		}
		ifaces := n.filter(all)

		if len(ifaces) == 0 {
			idx = 0
			item := i3.NewItem("disconnected").WithName("nic").WithColor(th.Red)
			if err := bc.Update(item); err != nil {
				return err
			}
			if _, _, err := bc.WaitForEvent(ctx, n.cfg.Interval); err != nil {
				return nil
			}
			continue
		}

		idx %= len(ifaces)
		if err := bc.Update(smFormatInterface(th, ifaces[idx], idx, len(ifaces))); err != nil {
			return err
		}

		ev, ok, err := bc.WaitForEvent(ctx, n.cfg.Interval)
		if err != nil {
			return nil
		}
		if ok {
			bc.Paginate(ev, len(ifaces), &idx)
		}
	}
}

func smFormatInterface(th *theme.Theme, iface Interface, idx, total int) i3.Item {
	fg := th.Green
	full := fmt.Sprintf(`<span foreground="%s">%s(%s)</span>%s`, fg, iface.Name, iface.Addr, th.Fraction(idx+1, total))
	short := fmt.Sprintf(`<span foreground="%s">%s</span>`, fg, iface.Name)
	return i3.NewItem(full).
		WithShortText(short).
		WithName("nic").
		WithMarkup(i3.MarkupPango)
}
