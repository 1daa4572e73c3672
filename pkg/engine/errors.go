package engine

import (
	"errors"
	"fmt"
)

// ErrOutputClosed is returned by Output after a fatal write error.
var ErrOutputClosed = errors.New("engine: output closed")

// RenderError reports that the bar could not be serialized. It indicates a
// programming error, since every Item is representable.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render: %v", e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// FatalIOError reports that the bar host connection is gone. Nothing can be
// displayed after it, so it ends the whole process.
type FatalIOError struct {
	Err error
}

func (e *FatalIOError) Error() string {
	return fmt.Sprintf("output: %v", e.Err)
}

func (e *FatalIOError) Unwrap() error {
	return e.Err
}

// TaskError wraps the error an item task stopped with. It only affects the
// task's own slot, whose last item stays on the bar.
type TaskError struct {
	Slot int
	Name string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("item %d (%s): %v", e.Slot, e.Name, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err ends the process.
func IsFatal(err error) bool {
	var fe *FatalIOError
	return errors.As(err, &fe)
}
