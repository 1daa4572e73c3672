package items

import (
	"context"
	"sync"
	"sync/atomic"

	"gitlab.com/tinyland/lab/pulsebar/pkg/config"
	"gitlab.com/tinyland/lab/pulsebar/pkg/dispatch"
	"gitlab.com/tinyland/lab/pulsebar/pkg/engine"
	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
)

// MockItem implements engine.BarItem for testing. It shows a configurable
// item, records the events it receives and tracks how often it started.
type MockItem struct {
	mu     sync.RWMutex
	item   i3.Item
	err    error
	events []dispatch.Event

	starts atomic.Int64

	// StartFunc, if set, replaces the default Start behaviour.
	StartFunc func(ctx context.Context, bc *engine.Context) error
}

// MockItemOption configures a MockItem.
type MockItemOption func(*MockItem)

// WithItem sets the item shown on start.
func WithItem(item i3.Item) MockItemOption {
	return func(m *MockItem) { m.item = item }
}

// WithError makes Start fail with err after the first update.
func WithError(err error) MockItemOption {
	return func(m *MockItem) { m.err = err }
}

// WithStartFunc sets a custom Start.
func WithStartFunc(fn func(ctx context.Context, bc *engine.Context) error) MockItemOption {
	return func(m *MockItem) { m.StartFunc = fn }
}

// NewMockItem creates a mock showing text.
func NewMockItem(text string, opts ...MockItemOption) *MockItem {
	m := &MockItem{item: i3.NewItem(text)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetItem changes the item shown on the next event.
func (m *MockItem) SetItem(item i3.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.item = item
}

// Events returns a copy of the events received so far.
func (m *MockItem) Events() []dispatch.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]dispatch.Event(nil), m.events...)
}

// StartCount returns how many times Start has been called.
func (m *MockItem) StartCount() int64 {
	return m.starts.Load()
}

// Start shows the item, then re-shows it after every event until ctx is
// done.
func (m *MockItem) Start(ctx context.Context, bc *engine.Context) error {
	m.starts.Add(1)
	if m.StartFunc != nil {
		return m.StartFunc(ctx, bc)
	}

	for {
		m.mu.RLock()
		item, failure := m.item, m.err
		m.mu.RUnlock()

		if err := bc.Update(item); err != nil {
			return err
		}
		if failure != nil {
			return failure
		}

		ev, _, err := bc.WaitForEvent(ctx, 0)
		if err != nil {
			return nil
		}
		m.mu.Lock()
		m.events = append(m.events, ev)
		m.mu.Unlock()
	}
}

// MockFactory returns a Factory that always yields m.
func MockFactory(m *MockItem) Factory {
	return func(config.ItemConfig) (engine.BarItem, error) { return m, nil }
}
