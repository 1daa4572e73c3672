package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/pulsebar/pkg/dispatch"
	"gitlab.com/tinyland/lab/pulsebar/pkg/engine"
	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
)

// ErrNotRunning is returned for commands that need a running scheduler
// while none is attached.
var ErrNotRunning = errors.New("bar is not running")

// SlotInfo describes one slot in an INFO response.
type SlotInfo struct {
	Slot       int       `json:"slot"`
	Name       string    `json:"name"`
	State      string    `json:"state"`
	Updates    int64     `json:"updates"`
	Started    time.Time `json:"started,omitzero"`
	LastUpdate time.Time `json:"last_update,omitzero"`
	Error      string    `json:"error,omitempty"`
}

// Info is the INFO response.
type Info struct {
	PID        int        `json:"pid"`
	Uptime     string     `json:"uptime"`
	Generation int        `json:"generation"`
	Theme      string     `json:"theme"`
	Powerline  bool       `json:"powerline"`
	Frames     int64      `json:"frames"`
	Slots      []SlotInfo `json:"slots"`
}

// Controller answers IPC commands for the current scheduler. The
// scheduler is replaced on every reload.
type Controller struct {
	mu         sync.RWMutex
	sched      *engine.Scheduler
	generation int
	started    time.Time
	reload     func()
}

// NewController returns a controller. reload is called for RELOAD and
// must not block.
func NewController(reload func()) *Controller {
	return &Controller{started: time.Now(), reload: reload}
}

// Attach makes s the scheduler that commands act on.
func (c *Controller) Attach(s *engine.Scheduler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sched = s
	c.generation++
}

// Detach stops commands from reaching s. It is a no-op when a newer
// scheduler has already been attached. Call it before cancelling s.
func (c *Controller) Detach(s *engine.Scheduler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sched == s {
		c.sched = nil
	}
}

func (c *Controller) current() (*engine.Scheduler, int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sched == nil {
		return nil, 0, ErrNotRunning
	}
	return c.sched, c.generation, nil
}

// HandleCommand implements IPCHandler.
func (c *Controller) HandleCommand(cmd string, args []string) (string, error) {
	switch cmd {
	case "INFO":
		return c.info()
	case "BAR":
		return c.bar()
	case "CLICK":
		return c.click(args)
	case "REFRESH":
		return c.refresh()
	case "RELOAD":
		if c.reload == nil {
			return "", errors.New("reload is not supported")
		}
		c.reload()
		return `{"ok":true}`, nil
	default:
		return "", fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *Controller) info() (string, error) {
	s, gen, err := c.current()
	if err != nil {
		return "", err
	}
	th := s.Theme()
	info := Info{
		PID:        os.Getpid(),
		Uptime:     time.Since(c.started).Truncate(time.Second).String(),
		Generation: gen,
		Theme:      th.Name,
		Powerline:  th.PowerlineEnable,
		Frames:     s.Output().Frames(),
	}
	for _, st := range s.Status() {
		si := SlotInfo{
			Slot:       st.Slot,
			Name:       st.Name,
			State:      st.State.String(),
			Updates:    st.Updates,
			Started:    st.Started,
			LastUpdate: st.LastUpdate,
		}
		if st.Err != nil {
			si.Error = st.Err.Error()
		}
		info.Slots = append(info.Slots, si)
	}
	return ctlJSON(info)
}

func (c *Controller) bar() (string, error) {
	s, _, err := c.current()
	if err != nil {
		return "", err
	}
	items := s.Bar().Items(s.Theme())
	if items == nil {
		items = []i3.Item{}
	}
	return ctlJSON(items)
}

func (c *Controller) click(args []string) (string, error) {
	if len(args) < 1 || len(args) > 2 {
		return "", errors.New("usage: CLICK <instance> [button]")
	}
	button := i3.ButtonLeft
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 || n > 9 {
			return "", fmt.Errorf("invalid button %q", args[1])
		}
		button = i3.Button(n)
	}

	s, _, err := c.current()
	if err != nil {
		return "", err
	}
	ev := dispatch.FromClick(i3.ClickEvent{Instance: args[0], Button: button})
	return ctlJSON(map[string]bool{"delivered": s.Dispatcher().Route(ev)})
}

func (c *Controller) refresh() (string, error) {
	s, _, err := c.current()
	if err != nil {
		return "", err
	}
	n := s.Dispatcher().Broadcast(dispatch.Event{Kind: dispatch.KindRefresh})
	return ctlJSON(map[string]int{"delivered": n})
}

func ctlJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal response: %w", err)
	}
	return string(data), nil
}
