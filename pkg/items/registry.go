// Package items builds bar items from configuration. Each [[item]] entry
// names a type; the Registry maps that type to a Factory that decodes the
// entry's own keys and returns an engine.BarItem.
package items

import (
	"fmt"
	"sort"
	"sync"

	"gitlab.com/tinyland/lab/pulsebar/pkg/config"
	"gitlab.com/tinyland/lab/pulsebar/pkg/engine"
	"gitlab.com/tinyland/lab/pulsebar/pkg/items/k8s"
	"gitlab.com/tinyland/lab/pulsebar/pkg/items/sysmetrics"
	"gitlab.com/tinyland/lab/pulsebar/pkg/items/tailscale"
)

// Factory creates an item from its configuration entry.
type Factory func(ic config.ItemConfig) (engine.BarItem, error)

// Registry manages named item factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for typ. It returns an error if typ is already
// registered.
func (r *Registry) Register(typ string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[typ]; exists {
		return fmt.Errorf("item type %q already registered", typ)
	}
	r.factories[typ] = f
	return nil
}

// Unregister removes typ. It is a no-op if typ is not registered.
func (r *Registry) Unregister(typ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, typ)
}

// Get returns the factory for typ, or false if not found.
func (r *Registry) Get(typ string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[typ]
	return f, ok
}

// List returns the registered type names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates one slot per entry, in order. The first failing entry
// aborts the build.
func (r *Registry) Build(entries []config.ItemConfig) ([]engine.Slot, error) {
	slots := make([]engine.Slot, 0, len(entries))
	for i, ic := range entries {
		f, ok := r.Get(ic.Type)
		if !ok {
			return nil, fmt.Errorf("item %d: unknown type %q", i, ic.Type)
		}
		item, err := f(ic)
		if err != nil {
			return nil, fmt.Errorf("item %d (%s): %w", i, ic.Label(), err)
		}
		slots = append(slots, engine.Slot{Name: ic.Label(), Item: item})
	}
	return slots, nil
}

// Default returns a registry with every builtin item type. The host
// sampler is shared by the system metric items.
func Default() *Registry {
	r := NewRegistry()
	sampler := sysmetrics.NewSampler()

	builtins := map[string]Factory{
		"raw":    newRawFromConfig,
		"time":   newClockFromConfig,
		"script": newScriptFromConfig,
		"lua":    newLuaFromConfig,
		"cpu": func(ic config.ItemConfig) (engine.BarItem, error) {
			var cfg sysmetrics.CPUConfig
			if err := ic.Decode(&cfg); err != nil {
				return nil, err
			}
			cfg.Interval = ic.Interval.Duration
			return sysmetrics.NewCPU(cfg, sampler), nil
		},
		"mem": func(ic config.ItemConfig) (engine.BarItem, error) {
			var cfg sysmetrics.MemConfig
			if err := ic.Decode(&cfg); err != nil {
				return nil, err
			}
			cfg.Interval = ic.Interval.Duration
			return sysmetrics.NewMem(cfg, sampler), nil
		},
		"disk": func(ic config.ItemConfig) (engine.BarItem, error) {
			var cfg sysmetrics.DiskConfig
			if err := ic.Decode(&cfg); err != nil {
				return nil, err
			}
			cfg.Interval = ic.Interval.Duration
			return sysmetrics.NewDisk(cfg, sampler), nil
		},
		"nic": func(ic config.ItemConfig) (engine.BarItem, error) {
			var cfg sysmetrics.NICConfig
			if err := ic.Decode(&cfg); err != nil {
				return nil, err
			}
			cfg.Interval = ic.Interval.Duration
			return sysmetrics.NewNIC(cfg, sampler), nil
		},
		"tailscale": func(ic config.ItemConfig) (engine.BarItem, error) {
			var cfg tailscale.Config
			if err := ic.Decode(&cfg); err != nil {
				return nil, err
			}
			cfg.Interval = ic.Interval.Duration
			return tailscale.New(cfg, tailscale.NewLocalClient(cfg.SocketPath)), nil
		},
		"kube": func(ic config.ItemConfig) (engine.BarItem, error) {
			var cfg k8s.Config
			if err := ic.Decode(&cfg); err != nil {
				return nil, err
			}
			cfg.Interval = ic.Interval.Duration
			return k8s.New(cfg), nil
		},
	}
	for typ, f := range builtins {
		// Map keys are unique; Register cannot fail.
		_ = r.Register(typ, f)
	}
	return r
}
