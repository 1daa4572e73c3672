// Package tailscale provides a bar item showing the state of the local
// tailscaled: backend state, online peers and the active exit node. Status
// is read from the LocalAPI unix socket.
package tailscale

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tailscale.com/ipn/ipnstate"

	"gitlab.com/tinyland/lab/pulsebar/pkg/engine"
	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
)

// DefaultInterval is the polling interval when none is configured.
const DefaultInterval = 10 * time.Second

// StatusClient abstracts the local Tailscale daemon API for testability.
// tailscale.com/client/local.Client satisfies it.
type StatusClient interface {
	Status(ctx context.Context) (*ipnstate.Status, error)
}

// Config configures the tailscale item.
type Config struct {
	Interval time.Duration `toml:"-" yaml:"-"`

	// SocketPath is an optional custom tailscaled socket path.
	SocketPath string `toml:"socket" yaml:"socket"`

	// Prefix is shown before the status text.
	Prefix string `toml:"prefix" yaml:"prefix"`
}

// Summary is the part of ipnstate.Status the item displays.
type Summary struct {
	BackendState string
	Hostname     string
	SelfIPs      []string
	TailnetName  string
	OnlinePeers  int
	TotalPeers   int
	ExitNode     string
}

// Running reports whether tailscaled is connected.
func (s Summary) Running() bool {
	return s.BackendState == "Running"
}

// Summarize reduces a full status to a Summary.
func Summarize(st *ipnstate.Status) Summary {
	s := Summary{BackendState: st.BackendState}
	if st.Self != nil {
		s.Hostname = st.Self.HostName
		for _, addr := range st.Self.TailscaleIPs {
			s.SelfIPs = append(s.SelfIPs, addr.String())
		}
	}
	if st.CurrentTailnet != nil {
		s.TailnetName = st.CurrentTailnet.Name
	}
	if s.TailnetName == "" {
		s.TailnetName = strings.TrimSuffix(st.MagicDNSSuffix, ".")
	}

	// Peers() returns keys in a stable order
	for _, pk := range st.Peers() {
		ps := st.Peer[pk]
		if ps == nil {
			continue
		}
		s.TotalPeers++
		if ps.Online {
			s.OnlinePeers++
		}
		if ps.ExitNode {
			s.ExitNode = ps.HostName
		}
	}
	return s
}

// Item is the tailscale bar item. Clicking pages through the peer summary,
// this node's addresses and the tailnet name.
type Item struct {
	cfg    Config
	client StatusClient
}

// New returns a tailscale item reading status from client.
func New(cfg Config, client StatusClient) *Item {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "ts "
	}
	return &Item{cfg: cfg, client: client}
}

const tsViews = 3

// Start implements engine.BarItem.
func (it *Item) Start(ctx context.Context, bc *engine.Context) error {
	view := 0
	for {
		item, err := it.render(ctx, bc, view)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			bc.Logger().Debug("tailscale status failed", "error", err)
		}
		if err := bc.Update(item); err != nil {
			return err
		}

		ev, ok, err := bc.WaitForEvent(ctx, it.cfg.Interval)
		if err != nil {
			return nil
		}
		if ok {
			bc.Paginate(ev, tsViews, &view)
		}
	}
}

func (it *Item) render(ctx context.Context, bc *engine.Context, view int) (i3.Item, error) {
	th := bc.Theme()
	base := i3.NewItem("").WithName("tailscale")

	st, err := it.client.Status(ctx)
	if err == nil && st == nil {
		err = fmt.Errorf("tailscale status: nil response")
	}
	if err != nil {
		return base.WithFullText(it.cfg.Prefix + "offline").WithColor(th.Red), err
	}

	s := Summarize(st)
	if !s.Running() {
		return base.WithFullText(it.cfg.Prefix + strings.ToLower(s.BackendState)).WithColor(th.Dim), nil
	}

	var text string
	switch view {
	case 1:
		text = it.cfg.Prefix + strings.Join(s.SelfIPs, " ")
	case 2:
		text = it.cfg.Prefix + s.TailnetName
	default:
		text = fmt.Sprintf("%s%d/%d", it.cfg.Prefix, s.OnlinePeers, s.TotalPeers)
		if s.ExitNode != "" {
			text += " via " + s.ExitNode
		}
	}
	return base.WithFullText(text).WithShortText(it.cfg.Prefix + s.Hostname).WithColor(th.Green), nil
}
