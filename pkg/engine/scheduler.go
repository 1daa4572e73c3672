// Package engine runs item tasks against a shared bar. Every configured
// item gets its own goroutine and a Context; updates flow through Output to
// the bar host and click events come back through a dispatch.Dispatcher.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"gitlab.com/tinyland/lab/pulsebar/pkg/bar"
	"gitlab.com/tinyland/lab/pulsebar/pkg/dispatch"
	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
	"gitlab.com/tinyland/lab/pulsebar/pkg/theme"
)

// BarItem is implemented by every item. Start owns its Context for the
// life of the task and normally loops until ctx is done. Returning an error
// freezes the slot with its last item.
type BarItem interface {
	Start(ctx context.Context, c *Context) error
}

// ItemFunc adapts a function to BarItem.
type ItemFunc func(ctx context.Context, c *Context) error

// Start calls f.
func (f ItemFunc) Start(ctx context.Context, c *Context) error {
	return f(ctx, c)
}

// Slot is one configured item.
type Slot struct {
	Name string
	Item BarItem
}

// SlotState is the lifecycle state of a slot's task.
type SlotState int

const (
	SlotPending SlotState = iota
	SlotRunning
	SlotStopped
	SlotFailed
)

func (s SlotState) String() string {
	switch s {
	case SlotPending:
		return "pending"
	case SlotRunning:
		return "running"
	case SlotStopped:
		return "stopped"
	case SlotFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SlotStatus tracks the runtime state of one slot.
type SlotStatus struct {
	Slot       int
	Name       string
	State      SlotState
	Started    time.Time
	LastUpdate time.Time
	Updates    int64
	Err        error
}

// Scheduler runs one task per slot.
type Scheduler struct {
	slots  []Slot
	theme  *theme.Theme
	bar    *bar.Bar
	disp   *dispatch.Dispatcher
	out    *Output
	logger *slog.Logger

	mu     sync.RWMutex
	status []SlotStatus
}

// New returns a scheduler for slots, rendering with t and writing frames
// to w.
func New(slots []Slot, t *theme.Theme, w FrameWriter, logger *slog.Logger) *Scheduler {
	b := bar.New(len(slots))
	status := make([]SlotStatus, len(slots))
	for i, sl := range slots {
		status[i] = SlotStatus{Slot: i, Name: sl.Name}
	}
	return &Scheduler{
		slots:  slots,
		theme:  t,
		bar:    b,
		disp:   dispatch.New(len(slots), logger),
		out:    NewOutput(b, t, w, logger),
		logger: logger,
		status: status,
	}
}

// Bar returns the shared bar state.
func (s *Scheduler) Bar() *bar.Bar { return s.bar }

// Theme returns the theme the bar is rendered with.
func (s *Scheduler) Theme() *theme.Theme { return s.theme }

// Dispatcher returns the event router. IPC uses it to inject clicks and
// refresh requests.
func (s *Scheduler) Dispatcher() *dispatch.Dispatcher { return s.disp }

// Output returns the frame writer shared by all slots.
func (s *Scheduler) Output() *Output { return s.out }

// Status returns a copy of every slot's status in slot order.
func (s *Scheduler) Status() []SlotStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]SlotStatus(nil), s.status...)
}

func (s *Scheduler) updateStatus(i int, fn func(st *SlotStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.status[i])
}

// Run writes an initial frame, starts every task and routes clicks from
// clicks (which may be nil) until ctx is done. It returns a *FatalIOError
// if the bar host goes away and nil on cancellation. Failing tasks are
// logged and leave their slot frozen.
func (s *Scheduler) Run(ctx context.Context, clicks <-chan i3.ClickEvent) error {
	if err := s.out.Flush(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if clicks != nil {
		g.Go(func() error {
			if err := s.disp.Run(gctx, clicks); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	for i, sl := range s.slots {
		c := NewContext(i, sl.Name, s.theme, s.bar, s.out, s.disp.Queue(i), s.logger)
		c.onUpdate = func(slot int) {
			s.updateStatus(slot, func(st *SlotStatus) {
				st.Updates++
				st.LastUpdate = time.Now()
			})
		}
		g.Go(func() error {
			s.runSlot(gctx, i, sl, c)
			return nil
		})
	}

	g.Go(func() error {
		select {
		case <-s.out.Done():
			return s.out.Err()
		case <-gctx.Done():
			return nil
		}
	})

	return g.Wait()
}

func (s *Scheduler) runSlot(ctx context.Context, i int, sl Slot, c *Context) {
	s.updateStatus(i, func(st *SlotStatus) {
		st.State = SlotRunning
		st.Started = time.Now()
	})

	err := s.startItem(ctx, sl, c)
	switch {
	case err == nil, ctx.Err() != nil:
		s.updateStatus(i, func(st *SlotStatus) { st.State = SlotStopped })
	case IsFatal(err):
		// Output.Done reports this to Run
		s.updateStatus(i, func(st *SlotStatus) { st.State = SlotStopped })
	default:
		te := &TaskError{Slot: i, Name: sl.Name, Err: err}
		c.Logger().Error("item stopped", "error", te)
		s.updateStatus(i, func(st *SlotStatus) {
			st.State = SlotFailed
			st.Err = te
		})
	}
}

func (s *Scheduler) startItem(ctx context.Context, sl Slot, c *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return sl.Item.Start(ctx, c)
}
