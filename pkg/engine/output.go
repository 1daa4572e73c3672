package engine

import (
	"log/slog"
	"sync"

	"gitlab.com/tinyland/lab/pulsebar/pkg/bar"
	"gitlab.com/tinyland/lab/pulsebar/pkg/theme"
)

// FrameWriter receives complete serialized snapshots. *i3.Writer is the
// production implementation.
type FrameWriter interface {
	WriteFrame(frame []byte) error
}

// Output serializes the whole bar and writes it as one frame. Flushes from
// different slots are serialized so frames never interleave. The first write
// error is sticky: every later Flush returns it and Done is closed.
type Output struct {
	bar    *bar.Bar
	theme  *theme.Theme
	w      FrameWriter
	logger *slog.Logger

	mu     sync.Mutex
	err    error
	done   chan struct{}
	frames int64
}

// NewOutput returns an Output writing b rendered with t to w.
func NewOutput(b *bar.Bar, t *theme.Theme, w FrameWriter, logger *slog.Logger) *Output {
	return &Output{
		bar:    b,
		theme:  t,
		w:      w,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Flush writes the current state of the bar.
func (o *Output) Flush() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.err != nil {
		return o.err
	}

	frame, err := o.bar.Serialize(o.theme)
	if err != nil {
		o.logger.Error("cannot serialize bar", "error", err)
		return &RenderError{Err: err}
	}
	if err := o.w.WriteFrame(frame); err != nil {
		o.err = &FatalIOError{Err: err}
		o.logger.Error("bar host connection lost", "error", err)
		close(o.done)
		return o.err
	}
	o.frames++
	return nil
}

// Done is closed after a fatal write error.
func (o *Output) Done() <-chan struct{} {
	return o.done
}

// Err returns the sticky write error, if any.
func (o *Output) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Frames returns the number of frames written.
func (o *Output) Frames() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.frames
}
