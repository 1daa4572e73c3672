package engine

import (
	"context"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/pulsebar/pkg/bar"
	"gitlab.com/tinyland/lab/pulsebar/pkg/dispatch"
	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
	"gitlab.com/tinyland/lab/pulsebar/pkg/theme"
)

// EventHandler handles an event received during DelayWithEventHandler.
// It may block; the delay timer keeps running meanwhile.
type EventHandler func(ctx context.Context, ev dispatch.Event) error

// Context is the handle an item task gets for its slot. It is the only way
// a task writes to the bar or receives events. A Context belongs to exactly
// one task and must not be shared.
type Context struct {
	slot   int
	name   string
	theme  *theme.Theme
	bar    *bar.Bar
	out    *Output
	events <-chan dispatch.Event
	logger *slog.Logger

	onUpdate func(slot int)
}

// NewContext builds a Context for slot. Scheduler calls this for every
// configured item; tests use it to drive a single item.
func NewContext(slot int, name string, t *theme.Theme, b *bar.Bar, out *Output, events <-chan dispatch.Event, logger *slog.Logger) *Context {
	return &Context{
		slot:   slot,
		name:   name,
		theme:  t,
		bar:    b,
		out:    out,
		events: events,
		logger: logger.With("slot", slot, "item", name),
	}
}

// Slot returns the slot index.
func (c *Context) Slot() int { return c.slot }

// Name returns the configured item name.
func (c *Context) Name() string { return c.name }

// Theme returns the shared theme. Callers must not modify it.
func (c *Context) Theme() *theme.Theme { return c.theme }

// Logger returns a logger tagged with the slot and item name.
func (c *Context) Logger() *slog.Logger { return c.logger }

// Update stores item in this slot and writes the whole bar. A
// *FatalIOError means the bar host is gone and the task should return it.
func (c *Context) Update(item i3.Item) error {
	c.bar.Set(c.slot, item)
	if c.onUpdate != nil {
		c.onUpdate(c.slot)
	}
	return c.out.Flush()
}

// WaitForEvent blocks until an event for this slot arrives or timeout
// elapses. A timeout <= 0 waits indefinitely. ok is false on timeout. err
// is set only when ctx is done.
func (c *Context) WaitForEvent(ctx context.Context, timeout time.Duration) (ev dispatch.Event, ok bool, err error) {
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case ev := <-c.events:
		return ev, true, nil
	case <-timer:
		return dispatch.Event{}, false, nil
	case <-ctx.Done():
		return dispatch.Event{}, false, ctx.Err()
	}
}

// DelayWithEventHandler sleeps for d, passing every event that arrives in
// the meantime to handler. The timer is never reset by events, so the call
// returns once d has elapsed and the last handler has returned, whichever
// is later. A handler error ends the delay early.
func (c *Context) DelayWithEventHandler(ctx context.Context, d time.Duration, handler EventHandler) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return nil
		default:
		}

		select {
		case <-timer.C:
			return nil
		case ev := <-c.events:
			if err := handler(ctx, ev); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Paginate moves *index for a paginated item. See Paginate.
func (c *Context) Paginate(ev dispatch.Event, length int, index *int) {
	Paginate(ev, length, index)
}

// Paginate advances *index on a forward event (primary click or scroll
// down) and moves it back on a backward event (secondary click or scroll
// up), wrapping modulo length. Other events leave it alone. length must be
// positive.
func Paginate(ev dispatch.Event, length int, index *int) {
	switch {
	case ev.Forward():
		*index = (*index + 1) % length
	case ev.Backward():
		*index = (*index + length - 1) % length
	}
}
