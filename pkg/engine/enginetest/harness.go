// Package enginetest drives a single BarItem outside the scheduler. Item
// packages use it to observe every update an item makes and to inject
// click events.
package enginetest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/pulsebar/pkg/bar"
	"gitlab.com/tinyland/lab/pulsebar/pkg/dispatch"
	"gitlab.com/tinyland/lab/pulsebar/pkg/engine"
	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
	"gitlab.com/tinyland/lab/pulsebar/pkg/theme"
)

// DefaultTimeout bounds every wait in the harness.
const DefaultTimeout = 2 * time.Second

// Harness runs one item in slot 0 of a one-slot bar.
type Harness struct {
	t       testing.TB
	Theme   *theme.Theme
	Bar     *bar.Bar
	Context *engine.Context

	events  chan dispatch.Event
	updates chan i3.Item
	cancel  context.CancelFunc
	done    chan error

	mu     sync.Mutex
	frames [][]byte
}

// New returns a harness rendering with th, or the default theme with
// powerline off when th is nil.
func New(t testing.TB, th *theme.Theme) *Harness {
	t.Helper()
	if th == nil {
		th = theme.Get("default")
		th.PowerlineEnable = false
	}
	h := &Harness{
		t:       t,
		Theme:   th,
		Bar:     bar.New(1),
		events:  make(chan dispatch.Event, dispatch.QueueSize),
		updates: make(chan i3.Item, 64),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	out := engine.NewOutput(h.Bar, th, h, logger)
	h.Context = engine.NewContext(0, "test", th, h.Bar, out, h.events, logger)
	return h
}

// WriteFrame records a frame and publishes the slot's new item.
func (h *Harness) WriteFrame(frame []byte) error {
	h.mu.Lock()
	h.frames = append(h.frames, bytes.Clone(frame))
	h.mu.Unlock()

	select {
	case h.updates <- h.Bar.Get(0):
	default:
	}
	return nil
}

// Start runs item in a goroutine. The item is cancelled when the test ends.
func (h *Harness) Start(item engine.BarItem) {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan error, 1)
	go func() { h.done <- item.Start(ctx, h.Context) }()
	h.t.Cleanup(func() { h.Stop() })
}

// Stop cancels the item and returns what Start returned.
func (h *Harness) Stop() error {
	if h.cancel == nil {
		return nil
	}
	h.cancel()
	h.cancel = nil
	select {
	case err := <-h.done:
		return err
	case <-time.After(DefaultTimeout):
		h.t.Errorf("item did not stop within %v", DefaultTimeout)
		return nil
	}
}

// Done returns the item's result once Start returns by itself.
func (h *Harness) Done() error {
	h.t.Helper()
	select {
	case err := <-h.done:
		h.cancel = nil
		return err
	case <-time.After(DefaultTimeout):
		h.t.Fatalf("item still running after %v", DefaultTimeout)
		return nil
	}
}

// Next waits for the item's next update.
func (h *Harness) Next() i3.Item {
	h.t.Helper()
	select {
	case it := <-h.updates:
		return it
	case <-time.After(DefaultTimeout):
		h.t.Fatalf("no update within %v", DefaultTimeout)
		return i3.Item{}
	}
}

// NextMatching waits for an update accepted by match, skipping others.
func (h *Harness) NextMatching(match func(i3.Item) bool) i3.Item {
	h.t.Helper()
	deadline := time.After(DefaultTimeout)
	for {
		select {
		case it := <-h.updates:
			if match(it) {
				return it
			}
		case <-deadline:
			h.t.Fatalf("no matching update within %v", DefaultTimeout)
			return i3.Item{}
		}
	}
}

// Click sends a click with button to the item.
func (h *Harness) Click(button i3.Button) {
	h.Send(dispatch.FromClick(i3.ClickEvent{Instance: "0", Button: button}))
}

// Send queues ev for the item.
func (h *Harness) Send(ev dispatch.Event) {
	h.t.Helper()
	select {
	case h.events <- ev:
	case <-time.After(DefaultTimeout):
		h.t.Fatalf("event queue full")
	}
}

// LastFrame decodes the most recent frame.
func (h *Harness) LastFrame() []i3.Item {
	h.t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.frames) == 0 {
		return nil
	}
	var items []i3.Item
	if err := json.Unmarshal(h.frames[len(h.frames)-1], &items); err != nil {
		h.t.Fatalf("decode frame: %v", err)
	}
	return items
}
