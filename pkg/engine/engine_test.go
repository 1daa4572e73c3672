package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/pulsebar/pkg/bar"
	"gitlab.com/tinyland/lab/pulsebar/pkg/dispatch"
	"gitlab.com/tinyland/lab/pulsebar/pkg/hexcolor"
	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
	"gitlab.com/tinyland/lab/pulsebar/pkg/theme"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTheme() *theme.Theme {
	th := theme.Get("default")
	th.PowerlineEnable = false
	return th
}

// frameRecorder collects frames written by Output.
type frameRecorder struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
	notify chan struct{}
}

func newFrameRecorder() *frameRecorder {
	return &frameRecorder{notify: make(chan struct{}, 64)}
}

func (r *frameRecorder) WriteFrame(frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.frames = append(r.frames, bytes.Clone(frame))
	select {
	case r.notify <- struct{}{}:
	default:
	}
	return nil
}

func (r *frameRecorder) fail(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *frameRecorder) last() []i3.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return nil
	}
	var items []i3.Item
	_ = json.Unmarshal(r.frames[len(r.frames)-1], &items)
	return items
}

func newTestContext(events chan dispatch.Event) (*Context, *frameRecorder) {
	rec := newFrameRecorder()
	b := bar.New(1)
	th := testTheme()
	out := NewOutput(b, th, rec, testLogger())
	return NewContext(0, "test", th, b, out, events, testLogger()), rec
}

func TestUpdateWritesWholeBar(t *testing.T) {
	rec := newFrameRecorder()
	b := bar.New(2)
	th := testTheme()
	out := NewOutput(b, th, rec, testLogger())
	c0 := NewContext(0, "a", th, b, out, nil, testLogger())
	c1 := NewContext(1, "b", th, b, out, nil, testLogger())

	if err := c0.Update(i3.NewItem("A")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := c1.Update(i3.NewItem("B")); err != nil {
		t.Fatalf("Update: %v", err)
	}

	items := rec.last()
	if len(items) != 2 || items[0].FullText != "A" || items[1].FullText != "B" {
		t.Errorf("last frame = %+v, want [A B]", items)
	}
	if out.Frames() != 2 {
		t.Errorf("Frames() = %d, want 2", out.Frames())
	}
}

func TestOutputFatalErrorIsSticky(t *testing.T) {
	c, rec := newTestContext(nil)
	rec.fail(io.ErrClosedPipe)

	err := c.Update(i3.NewItem("x"))
	var fe *FatalIOError
	if !errors.As(err, &fe) {
		t.Fatalf("Update error = %v, want *FatalIOError", err)
	}
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("error does not wrap ErrClosedPipe: %v", err)
	}

	select {
	case <-c.out.Done():
	default:
		t.Error("Done() not closed after fatal error")
	}

	rec.fail(nil)
	if err := c.Update(i3.NewItem("y")); !IsFatal(err) {
		t.Errorf("second Update = %v, want the sticky fatal error", err)
	}
}

func TestWaitForEvent(t *testing.T) {
	events := make(chan dispatch.Event, 1)
	c, _ := newTestContext(events)
	ctx := context.Background()

	if _, ok, err := c.WaitForEvent(ctx, 10*time.Millisecond); ok || err != nil {
		t.Errorf("WaitForEvent with no event = ok %v, err %v; want timeout", ok, err)
	}

	events <- dispatch.Event{Kind: dispatch.KindClick, Button: i3.ButtonLeft, Instance: "0"}
	ev, ok, err := c.WaitForEvent(ctx, time.Second)
	if !ok || err != nil {
		t.Fatalf("WaitForEvent = ok %v, err %v; want event", ok, err)
	}
	if ev.Button != i3.ButtonLeft {
		t.Errorf("button = %d, want left", ev.Button)
	}
}

func TestWaitForEventIndefinite(t *testing.T) {
	events := make(chan dispatch.Event)
	c, _ := newTestContext(events)

	go func() {
		time.Sleep(20 * time.Millisecond)
		events <- dispatch.Event{Kind: dispatch.KindRefresh}
	}()

	ev, ok, err := c.WaitForEvent(context.Background(), 0)
	if !ok || err != nil || ev.Kind != dispatch.KindRefresh {
		t.Errorf("WaitForEvent(0) = %+v, %v, %v; want refresh event", ev, ok, err)
	}
}

func TestWaitForEventCancelled(t *testing.T) {
	c, _ := newTestContext(make(chan dispatch.Event))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok, err := c.WaitForEvent(ctx, 0); ok || !errors.Is(err, context.Canceled) {
		t.Errorf("WaitForEvent = ok %v, err %v; want context.Canceled", ok, err)
	}
}

func TestDelayWithoutEventsIsPlainTimer(t *testing.T) {
	c, _ := newTestContext(make(chan dispatch.Event))
	d := 30 * time.Millisecond

	called := false
	start := time.Now()
	err := c.DelayWithEventHandler(context.Background(), d, func(context.Context, dispatch.Event) error {
		called = true
		return nil
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("DelayWithEventHandler: %v", err)
	}
	if called {
		t.Error("handler called without events")
	}
	if elapsed < d {
		t.Errorf("returned after %v, want at least %v", elapsed, d)
	}
}

func TestDelayHandlesEventsWithoutResettingTimer(t *testing.T) {
	events := make(chan dispatch.Event, 4)
	c, _ := newTestContext(events)
	d := 60 * time.Millisecond

	go func() {
		for range 3 {
			time.Sleep(10 * time.Millisecond)
			events <- dispatch.Event{Kind: dispatch.KindClick}
		}
	}()

	var handled int
	start := time.Now()
	err := c.DelayWithEventHandler(context.Background(), d, func(context.Context, dispatch.Event) error {
		handled++
		return nil
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("DelayWithEventHandler: %v", err)
	}
	if handled != 3 {
		t.Errorf("handled %d events, want 3", handled)
	}
	if elapsed < d || elapsed > d+200*time.Millisecond {
		t.Errorf("elapsed = %v, want about %v", elapsed, d)
	}
}

func TestDelayWaitsForSlowHandler(t *testing.T) {
	events := make(chan dispatch.Event, 1)
	c, _ := newTestContext(events)
	events <- dispatch.Event{Kind: dispatch.KindClick}

	d := 10 * time.Millisecond
	slow := 50 * time.Millisecond
	start := time.Now()
	err := c.DelayWithEventHandler(context.Background(), d, func(context.Context, dispatch.Event) error {
		time.Sleep(slow)
		return nil
	})
	if err != nil {
		t.Fatalf("DelayWithEventHandler: %v", err)
	}
	if elapsed := time.Since(start); elapsed < slow {
		t.Errorf("returned after %v, before the handler finished (%v)", elapsed, slow)
	}
}

func TestDelayHandlerErrorStopsEarly(t *testing.T) {
	events := make(chan dispatch.Event, 1)
	c, _ := newTestContext(events)
	events <- dispatch.Event{}

	boom := errors.New("boom")
	err := c.DelayWithEventHandler(context.Background(), time.Hour, func(context.Context, dispatch.Event) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("DelayWithEventHandler = %v, want boom", err)
	}
}

func TestPaginate(t *testing.T) {
	fwd := dispatch.Event{Kind: dispatch.KindClick, Button: i3.ButtonLeft}
	down := dispatch.Event{Kind: dispatch.KindScroll, Button: i3.ButtonScrollDown}
	back := dispatch.Event{Kind: dispatch.KindClick, Button: i3.ButtonRight}
	up := dispatch.Event{Kind: dispatch.KindScroll, Button: i3.ButtonScrollUp}
	middle := dispatch.Event{Kind: dispatch.KindClick, Button: i3.ButtonMiddle}

	idx := 0
	Paginate(fwd, 3, &idx)
	if idx != 1 {
		t.Fatalf("after one forward idx = %d, want 1", idx)
	}

	idx = 0
	var seen []int
	for range 4 {
		Paginate(down, 3, &idx)
		seen = append(seen, idx)
	}
	if want := []int{1, 2, 0, 1}; !equalInts(seen, want) {
		t.Errorf("forward cycle = %v, want %v", seen, want)
	}

	idx = 0
	Paginate(back, 3, &idx)
	if idx != 2 {
		t.Errorf("backward from 0 = %d, want 2", idx)
	}
	Paginate(up, 3, &idx)
	if idx != 1 {
		t.Errorf("scroll up from 2 = %d, want 1", idx)
	}

	Paginate(middle, 3, &idx)
	if idx != 1 {
		t.Errorf("middle click changed idx to %d", idx)
	}
	Paginate(dispatch.Event{Kind: dispatch.KindRefresh}, 3, &idx)
	if idx != 1 {
		t.Errorf("refresh changed idx to %d", idx)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSchedulerRunsItemsAndRoutesClicks(t *testing.T) {
	rec := newFrameRecorder()
	clicked := make(chan dispatch.Event, 1)

	counter := ItemFunc(func(ctx context.Context, c *Context) error {
		if err := c.Update(i3.NewItem("0")); err != nil {
			return err
		}
		for {
			ev, ok, err := c.WaitForEvent(ctx, 0)
			if err != nil {
				return nil
			}
			if ok {
				clicked <- ev
			}
		}
	})
	static := ItemFunc(func(ctx context.Context, c *Context) error {
		if err := c.Update(i3.NewItem("static")); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	})

	s := New([]Slot{{Name: "counter", Item: counter}, {Name: "static", Item: static}}, testTheme(), rec, testLogger())
	clicks := make(chan i3.ClickEvent, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, clicks) }()

	clicks <- i3.ClickEvent{Instance: "0", Button: i3.ButtonLeft}
	select {
	case ev := <-clicked:
		if ev.Instance != "0" || ev.Kind != dispatch.KindClick {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("click not delivered to slot 0")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v, want nil on cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	for _, st := range s.Status() {
		if st.State != SlotStopped {
			t.Errorf("slot %d state = %v, want stopped", st.Slot, st.State)
		}
		if st.Updates != 1 {
			t.Errorf("slot %d updates = %d, want 1", st.Slot, st.Updates)
		}
	}
}

func TestSchedulerTaskErrorFreezesSlot(t *testing.T) {
	rec := newFrameRecorder()
	boom := errors.New("subsystem gone")

	failing := ItemFunc(func(ctx context.Context, c *Context) error {
		if err := c.Update(i3.NewItem("last good")); err != nil {
			return err
		}
		return boom
	})
	panicking := ItemFunc(func(context.Context, *Context) error {
		panic("bad item")
	})

	s := New([]Slot{{Name: "failing", Item: failing}, {Name: "panicking", Item: panicking}}, testTheme(), rec, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, nil) }()

	deadline := time.After(2 * time.Second)
	for {
		st := s.Status()
		if st[0].State == SlotFailed && st[1].State == SlotFailed {
			var te *TaskError
			if !errors.As(st[0].Err, &te) || te.Slot != 0 || !errors.Is(te, boom) {
				t.Errorf("slot 0 err = %v, want TaskError wrapping boom", st[0].Err)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("slots did not fail: %+v", st)
		case <-time.After(5 * time.Millisecond):
		}
	}

	if got := s.Bar().Get(0).FullText; got != "last good" {
		t.Errorf("frozen slot = %q, want %q", got, "last good")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run = %v, want nil", err)
	}
}

func TestSchedulerStopsOnFatalOutput(t *testing.T) {
	rec := newFrameRecorder()
	tick := ItemFunc(func(ctx context.Context, c *Context) error {
		for {
			if err := c.Update(i3.NewItem("x")); err != nil {
				return err
			}
			if _, _, err := c.WaitForEvent(ctx, 5*time.Millisecond); err != nil {
				return nil
			}
		}
	})

	s := New([]Slot{{Name: "tick", Item: tick}}, testTheme(), rec, testLogger())
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), nil) }()

	<-rec.notify
	rec.fail(io.ErrClosedPipe)

	select {
	case err := <-done:
		if !IsFatal(err) {
			t.Errorf("Run = %v, want *FatalIOError", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after the output failed")
	}
}

func TestPowerlineThroughOutput(t *testing.T) {
	rec := newFrameRecorder()
	th := theme.Get("gruvbox")
	th.Dim = hexcolor.MustParse("#000000")
	b := bar.New(1)
	out := NewOutput(b, th, rec, testLogger())
	c := NewContext(0, "x", th, b, out, nil, testLogger())

	if err := c.Update(i3.NewItem("hello")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	items := rec.last()
	if len(items) != 2 {
		t.Fatalf("powerline frame has %d items, want 2", len(items))
	}
	if items[1].FullText != " hello " {
		t.Errorf("content = %q, want %q", items[1].FullText, " hello ")
	}
}
