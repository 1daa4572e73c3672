// Package dispatch routes click and scroll events from the bar host to the
// task that owns the addressed slot.
package dispatch

import (
	"context"
	"log/slog"
	"strconv"

	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
)

// QueueSize is the number of events buffered per slot. Events arriving at
// a full queue are dropped.
const QueueSize = 8

// Kind classifies an event.
type Kind int

const (
	KindClick Kind = iota
	KindScroll
	// KindRefresh asks an item to redraw now. It is produced locally, never
	// by the bar host.
	KindRefresh
)

func (k Kind) String() string {
	switch k {
	case KindClick:
		return "click"
	case KindScroll:
		return "scroll"
	case KindRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Event is a user interaction addressed to one slot.
type Event struct {
	Kind      Kind
	Button    i3.Button
	Instance  string
	Modifiers []string
	X, Y      int
}

// Forward reports whether the event advances a paginated item: a primary
// click or scrolling down.
func (e Event) Forward() bool {
	return e.Button == i3.ButtonLeft || e.Button == i3.ButtonScrollDown
}

// Backward reports whether the event moves a paginated item back: a
// secondary click or scrolling up.
func (e Event) Backward() bool {
	return e.Button == i3.ButtonRight || e.Button == i3.ButtonScrollUp
}

// FromClick converts a protocol click into an Event.
func FromClick(c i3.ClickEvent) Event {
	kind := KindClick
	if c.Button.IsScroll() {
		kind = KindScroll
	}
	return Event{
		Kind:      kind,
		Button:    c.Button,
		Instance:  c.Instance,
		Modifiers: c.Modifiers,
		X:         c.X,
		Y:         c.Y,
	}
}

// Slot parses an instance string back into a slot index.
func Slot(instance string) (int, bool) {
	i, err := strconv.Atoi(instance)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// Dispatcher owns one buffered queue per slot. Each queue has a single
// consumer, the slot's item task.
type Dispatcher struct {
	queues []chan Event
	logger *slog.Logger
}

// New returns a dispatcher for n slots.
func New(n int, logger *slog.Logger) *Dispatcher {
	queues := make([]chan Event, n)
	for i := range queues {
		queues[i] = make(chan Event, QueueSize)
	}
	return &Dispatcher{queues: queues, logger: logger}
}

// Len returns the number of slots.
func (d *Dispatcher) Len() int {
	return len(d.queues)
}

// Queue returns the receive side of slot i's queue.
func (d *Dispatcher) Queue(i int) <-chan Event {
	return d.queues[i]
}

// Send queues ev for slot i without blocking. It reports false when the
// slot does not exist or its queue is full.
func (d *Dispatcher) Send(i int, ev Event) bool {
	if i < 0 || i >= len(d.queues) {
		d.logger.Debug("dropping event for unknown slot", "slot", i, "instance", ev.Instance)
		return false
	}
	select {
	case d.queues[i] <- ev:
		return true
	default:
		d.logger.Debug("dropping event, queue full", "slot", i, "kind", ev.Kind)
		return false
	}
}

// Route sends ev to the slot named by its instance.
func (d *Dispatcher) Route(ev Event) bool {
	i, ok := Slot(ev.Instance)
	if !ok {
		d.logger.Debug("dropping event with bad instance", "instance", ev.Instance)
		return false
	}
	return d.Send(i, ev)
}

// Broadcast queues ev on every slot and returns how many accepted it.
func (d *Dispatcher) Broadcast(ev Event) int {
	n := 0
	for i := range d.queues {
		ev.Instance = strconv.Itoa(i)
		if d.Send(i, ev) {
			n++
		}
	}
	return n
}

// Run routes clicks until in is closed or ctx is done.
func (d *Dispatcher) Run(ctx context.Context, in <-chan i3.ClickEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-in:
			if !ok {
				return nil
			}
			d.Route(FromClick(c))
		}
	}
}
