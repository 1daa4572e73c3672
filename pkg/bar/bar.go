// Package bar holds the latest item of every slot and turns the whole set
// into one protocol frame, optionally through the powerline renderer.
package bar

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
	"gitlab.com/tinyland/lab/pulsebar/pkg/theme"
)

// Bar is a fixed-size ordered set of slots. Each slot is written by exactly
// one item task; serialization reads a consistent snapshot of all slots.
// It is safe for concurrent use.
type Bar struct {
	mu    sync.RWMutex
	items []i3.Item

	rmu      sync.Mutex
	renderer *Renderer
}

// New returns a bar with n empty slots.
func New(n int) *Bar {
	items := make([]i3.Item, n)
	for i := range items {
		items[i] = i3.Empty().WithInstance(strconv.Itoa(i))
	}
	return &Bar{items: items}
}

// Len returns the number of slots.
func (b *Bar) Len() int {
	return len(b.items)
}

// Set replaces slot i. The instance is overwritten with the slot index so
// click events can be routed back. Out of range indexes panic, as a slice
// write would.
func (b *Bar) Set(i int, item i3.Item) {
	item = item.Clone()
	item.Instance = strconv.Itoa(i)

	b.mu.Lock()
	b.items[i] = item
	b.mu.Unlock()
}

// Get returns a copy of slot i.
func (b *Bar) Get(i int) i3.Item {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.items[i].Clone()
}

// Snapshot returns a copy of every slot, empty ones included.
func (b *Bar) Snapshot() []i3.Item {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]i3.Item, len(b.items))
	for i, it := range b.items {
		out[i] = it.Clone()
	}
	return out
}

// Items returns the segments that would be sent to the bar host for t.
func (b *Bar) Items(t *theme.Theme) []i3.Item {
	snap := b.Snapshot()
	if t.PowerlineEnable {
		return b.rendererFor(t).Render(snap)
	}
	return Raw(snap, t)
}

// Serialize encodes the current state as one JSON array. The encoding is
// deterministic for an unchanged bar and theme.
func (b *Bar) Serialize(t *theme.Theme) ([]byte, error) {
	data, err := json.Marshal(b.Items(t))
	if err != nil {
		return nil, fmt.Errorf("bar: serialize: %w", err)
	}
	return data, nil
}

func (b *Bar) rendererFor(t *theme.Theme) *Renderer {
	b.rmu.Lock()
	defer b.rmu.Unlock()
	if b.renderer == nil || b.renderer.theme != t {
		b.renderer = NewRenderer(t)
	}
	return b.renderer
}

// Raw is the non-powerline rendering: empty slots are dropped and urgent
// items are painted with the theme's background on red. The original
// urgency stays set and is also recorded as the "urgent" extra key.
func Raw(items []i3.Item, t *theme.Theme) []i3.Item {
	out := make([]i3.Item, 0, len(items))
	for _, it := range items {
		if it.IsEmpty() {
			continue
		}
		if it.Urgent {
			it = it.WithColor(t.Bg).
				WithBackgroundColor(t.Red).
				WithData("urgent", true)
		}
		out = append(out, it)
	}
	return out
}
