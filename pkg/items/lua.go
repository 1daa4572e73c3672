package items

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/arnodel/golua/lib"
	rt "github.com/arnodel/golua/runtime"

	"gitlab.com/tinyland/lab/pulsebar/pkg/config"
	"gitlab.com/tinyland/lab/pulsebar/pkg/dispatch"
	"gitlab.com/tinyland/lab/pulsebar/pkg/engine"
	"gitlab.com/tinyland/lab/pulsebar/pkg/hexcolor"
	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
)

// Default resource limits for one Lua evaluation.
const (
	DefaultLuaCPULimit    = 10_000_000
	DefaultLuaMemoryLimit = 50 << 20
)

// LuaConfig configures a Lua item. Exactly one of Code and File is set.
//
// The chunk returns the item: a string, a table with full_text,
// short_text, color, background, markup and urgent keys, or nil for an
// empty slot. A chunk may instead return a function; that function is
// then called for every refresh. The globals button and instance describe
// the click that triggered the refresh, or are nil on a timer.
type LuaConfig struct {
	Interval time.Duration `toml:"-" yaml:"-"`

	Code        string `toml:"code" yaml:"code"`
	File        string `toml:"file" yaml:"file"`
	CPULimit    uint64 `toml:"cpu_limit" yaml:"cpu_limit"`
	MemoryLimit uint64 `toml:"memory_limit" yaml:"memory_limit"`
}

// Lua evaluates a Lua chunk on every interval and click.
type Lua struct {
	cfg     LuaConfig
	runtime *rt.Runtime
	cleanup func()
	fn      rt.Value
	started bool
}

// NewLua compiles the configured chunk. Syntax errors are reported here.
func NewLua(cfg LuaConfig) (*Lua, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.CPULimit == 0 {
		cfg.CPULimit = DefaultLuaCPULimit
	}
	if cfg.MemoryLimit == 0 {
		cfg.MemoryLimit = DefaultLuaMemoryLimit
	}

	name, src := "item", []byte(cfg.Code)
	switch {
	case cfg.Code != "" && cfg.File != "":
		return nil, fmt.Errorf("lua: code and file are mutually exclusive")
	case cfg.File != "":
		b, err := os.ReadFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("lua: %w", err)
		}
		name, src = cfg.File, b
	case cfg.Code == "":
		return nil, fmt.Errorf("lua: code or file is required")
	}

	runtime := rt.New(io.Discard)
	cleanup := lib.LoadAll(runtime)
	chunk, err := runtime.CompileAndLoadLuaChunk(name, src, rt.TableValue(runtime.GlobalEnv()))
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("lua: load %s: %w", name, err)
	}
	return &Lua{
		cfg:     cfg,
		runtime: runtime,
		cleanup: cleanup,
		fn:      rt.FunctionValue(chunk),
	}, nil
}

// Start implements engine.BarItem.
func (l *Lua) Start(ctx context.Context, bc *engine.Context) error {
	defer l.cleanup()

	var ev *dispatch.Event
	for {
		item, err := l.Eval(ev)
		if err != nil {
			bc.Logger().Warn("lua evaluation failed", "error", err)
			item = i3.NewItem("lua error").WithColor(bc.Theme().Red)
		}
		if err := bc.Update(item.WithName("lua")); err != nil {
			return err
		}

		e, ok, err := bc.WaitForEvent(ctx, l.cfg.Interval)
		if err != nil {
			return nil
		}
		ev = nil
		if ok && e.Kind != dispatch.KindRefresh {
			ev = &e
		}
	}
}

// Eval runs the chunk once for ev, which is nil for a timed refresh.
func (l *Lua) Eval(ev *dispatch.Event) (i3.Item, error) {
	env := l.runtime.GlobalEnv()
	if ev != nil {
		env.Set(rt.StringValue("button"), rt.IntValue(int64(ev.Button)))
		env.Set(rt.StringValue("instance"), rt.StringValue(ev.Instance))
	} else {
		env.Set(rt.StringValue("button"), rt.NilValue)
		env.Set(rt.StringValue("instance"), rt.NilValue)
	}

	v, err := l.call(l.fn)
	if err != nil {
		return i3.Item{}, err
	}
	if !l.started {
		l.started = true
		if v.Type() == rt.FunctionType {
			l.fn = v
			if v, err = l.call(v); err != nil {
				return i3.Item{}, err
			}
		}
	}
	return luaItem(v)
}

// call runs fn under the configured hard limits. Exceeding a limit
// surfaces as an error.
func (l *Lua) call(fn rt.Value) (v rt.Value, err error) {
	l.runtime.PushContext(rt.RuntimeContextDef{
		HardLimits: rt.RuntimeResources{
			Cpu:    l.cfg.CPULimit,
			Memory: l.cfg.MemoryLimit,
		},
	})
	defer l.runtime.PopContext()
	defer func() {
		if r := recover(); r != nil {
			v, err = rt.NilValue, fmt.Errorf("lua: %v", r)
		}
	}()

	v, err = rt.Call1(l.runtime.MainThread(), fn)
	if err != nil {
		return rt.NilValue, fmt.Errorf("lua: %w", err)
	}
	return v, nil
}

func luaItem(v rt.Value) (i3.Item, error) {
	if v.IsNil() {
		return i3.Empty(), nil
	}
	if s, ok := luaString(v); ok {
		return i3.NewItem(s), nil
	}
	tbl, ok := v.TryTable()
	if !ok {
		return i3.Item{}, fmt.Errorf("lua: unexpected result type %v", v.Type())
	}

	field := func(k string) rt.Value { return tbl.Get(rt.StringValue(k)) }
	text, _ := luaString(field("full_text"))
	item := i3.NewItem(text)
	if s, ok := luaString(field("short_text")); ok {
		item = item.WithShortText(s)
	}
	if s, ok := luaString(field("color")); ok {
		c, err := hexcolor.Parse(s)
		if err != nil {
			return i3.Item{}, fmt.Errorf("lua: color: %w", err)
		}
		item = item.WithColor(c)
	}
	if s, ok := luaString(field("background")); ok {
		c, err := hexcolor.Parse(s)
		if err != nil {
			return i3.Item{}, fmt.Errorf("lua: background: %w", err)
		}
		item = item.WithBackgroundColor(c)
	}
	if s, ok := luaString(field("markup")); ok {
		m, err := parseMarkup(s)
		if err != nil {
			return i3.Item{}, fmt.Errorf("lua: %w", err)
		}
		item = item.WithMarkup(m)
	}
	if b, ok := field("urgent").TryBool(); ok {
		item = item.WithUrgent(b)
	}
	return item, nil
}

func luaString(v rt.Value) (string, bool) {
	if s, ok := v.TryString(); ok {
		return s, true
	}
	if n, ok := v.TryInt(); ok {
		return strconv.FormatInt(n, 10), true
	}
	if f, ok := v.TryFloat(); ok {
		return strconv.FormatFloat(f, 'g', -1, 64), true
	}
	return "", false
}

func newLuaFromConfig(ic config.ItemConfig) (engine.BarItem, error) {
	var cfg LuaConfig
	if err := ic.Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.Interval = ic.Interval.Duration
	l, err := NewLua(cfg)
	if err != nil {
		return nil, err
	}
	return l, nil
}
