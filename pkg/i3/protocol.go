package i3

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Header is the first line of the status stream.
type Header struct {
	Version     int  `json:"version"`
	StopSignal  int  `json:"stop_signal,omitempty"`
	ContSignal  int  `json:"cont_signal,omitempty"`
	ClickEvents bool `json:"click_events,omitempty"`
}

// DefaultHeader enables click events with protocol version 1.
func DefaultHeader() Header {
	return Header{Version: 1, ClickEvents: true}
}

// Writer frames bar snapshots for the bar host. The stream is a header
// line, an opening "[" and then one JSON array per snapshot, each followed
// by ",\n". The array is never closed; the bar reads it incrementally.
type Writer struct {
	mu          sync.Mutex
	w           io.Writer
	wroteHeader bool
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader writes the header and the opening bracket. Calling it again
// is a no-op, which lets a reloaded bar keep using the same stream.
func (pw *Writer) WriteHeader(h Header) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	if pw.wroteHeader {
		return nil
	}

	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("i3: marshal header: %w", err)
	}
	var buf bytes.Buffer
	buf.Write(data)
	buf.WriteString("\n[\n")
	if _, err := pw.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("i3: write header: %w", err)
	}
	pw.wroteHeader = true
	return nil
}

// WriteFrame writes one serialized snapshot. frame must be a JSON array.
// The whole frame is written with a single Write call.
func (pw *Writer) WriteFrame(frame []byte) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	buf := make([]byte, 0, len(frame)+2)
	buf = append(buf, frame...)
	buf = append(buf, ',', '\n')
	if _, err := pw.w.Write(buf); err != nil {
		return fmt.Errorf("i3: write frame: %w", err)
	}
	return nil
}

// Button is the mouse button reported in a click event.
type Button int

const (
	ButtonLeft        Button = 1
	ButtonMiddle      Button = 2
	ButtonRight       Button = 3
	ButtonScrollUp    Button = 4
	ButtonScrollDown  Button = 5
	ButtonScrollLeft  Button = 6
	ButtonScrollRight Button = 7
	ButtonBack        Button = 8
	ButtonForward     Button = 9
)

// IsScroll reports whether the button is a wheel direction.
func (b Button) IsScroll() bool {
	return b >= ButtonScrollUp && b <= ButtonScrollRight
}

// ClickEvent is one line of the input stream.
type ClickEvent struct {
	Name      string   `json:"name,omitempty"`
	Instance  string   `json:"instance,omitempty"`
	Button    Button   `json:"button"`
	Modifiers []string `json:"modifiers,omitempty"`
	X         int      `json:"x"`
	Y         int      `json:"y"`
	RelativeX int      `json:"relative_x"`
	RelativeY int      `json:"relative_y"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
}

// ParseClickLine parses one line of the click stream. The stream is an
// endless JSON array, so lines may be "[" or start with a ",". ok is false
// for lines that carry no event.
func ParseClickLine(line []byte) (ev ClickEvent, ok bool, err error) {
	line = bytes.TrimSpace(line)
	line = bytes.TrimPrefix(line, []byte("["))
	line = bytes.TrimPrefix(bytes.TrimSpace(line), []byte(","))
	line = bytes.TrimSpace(line)
	if len(line) == 0 || bytes.Equal(line, []byte("]")) {
		return ClickEvent{}, false, nil
	}
	if err := json.Unmarshal(line, &ev); err != nil {
		return ClickEvent{}, false, fmt.Errorf("i3: parse click event: %w", err)
	}
	return ev, true, nil
}

// ReadClicks reads click events from r until EOF or ctx is done, sending
// each on out. Malformed lines are logged and skipped. out is closed when
// ReadClicks returns.
func ReadClicks(ctx context.Context, r io.Reader, out chan<- ClickEvent, logger *slog.Logger) error {
	defer close(out)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		ev, ok, err := ParseClickLine(scanner.Bytes())
		if err != nil {
			logger.Debug("ignoring malformed click line", "error", err)
			continue
		}
		if !ok {
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("i3: read clicks: %w", err)
	}
	return nil
}
