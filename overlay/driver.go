package overlay

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/logger"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/network"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/state"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/timer"
)

const (
	phaseTimerKey     = "phase"
	playerTimerPrefix = "player:"
)

func playerTimerKey(id string) string {
	return playerTimerPrefix + id
}

type DriverOption func(*Driver)

// WithRender sets the callback invoked with a fresh View after every
// applied message and every countdown tick.
func WithRender(fn func(View)) DriverOption {
	return func(d *Driver) { d.onRender = fn }
}

// WithExpire sets the callback invoked when the acting player's action
// timer runs out.
func WithExpire(fn func(playerID string)) DriverOption {
	return func(d *Driver) { d.onExpire = fn }
}

// Driver is the stateful side of an overlay: it feeds frames through
// Reduce and owns the countdown and per-player action timers.
type Driver struct {
	mutex   sync.Mutex
	state   State
	acting  string
	timers  *timer.Manager
	machine *state.Machine

	onRender func(View)
	onExpire func(string)
}

func NewDriver(userLogin string, clock clockwork.Clock, opts ...DriverOption) *Driver {
	d := &Driver{
		state:    NewState(userLogin),
		timers:   timer.NewTimerManager(clock),
		machine:  state.NewMachine(state.PhaseWaiting),
		onRender: func(View) {},
		onExpire: func(string) {},
	}
	for _, opt := range opts {
		opt(d)
	}

	d.machine.OnReset(func(state.Transition) { d.timers.RemovePrefix(playerTimerPrefix) })
	for _, p := range []state.Phase{state.PhaseShowdown, state.PhaseEarlyEnd} {
		d.machine.OnEnter(p, func(state.Transition) { d.timers.RemovePrefix(playerTimerPrefix) })
	}
	return d
}

// HandleFrame parses and applies one raw server frame.
func (d *Driver) HandleFrame(raw []byte) error {
	msg, err := ParseMessage(raw)
	if err != nil {
		return err
	}
	return d.Apply(msg)
}

func (d *Driver) Apply(msg Message) error {
	d.mutex.Lock()
	next, err := Reduce(d.state, msg)
	if err != nil {
		d.mutex.Unlock()
		return err
	}
	d.state = next

	if msg.Type == network.MsgTypeGameState {
		tr := d.machine.Apply(next.Game.Phase)
		if !tr.Expected {
			logger.Log.Warnf("overlay: unexpected phase transition %s -> %s", tr.From, tr.To)
		}
		d.armTimers(next.Game)
	}
	view := Render(d.state)
	d.mutex.Unlock()

	d.onRender(view)
	return nil
}

// armTimers re-assigns the countdown and action timers from a snapshot.
// Each assignment replaces the previous handle for its key.
func (d *Driver) armTimers(g Game) {
	if g.Countdown > 0 {
		d.timers.AddTimer(phaseTimerKey, time.Second, time.Second, d.tick)
	} else {
		d.timers.RemoveTimer(phaseTimerKey)
	}

	if g.Phase != state.PhaseBetting || g.CurrentPlayer == "" {
		d.timers.RemovePrefix(playerTimerPrefix)
		d.acting = ""
		return
	}
	if d.acting != "" && d.acting != g.CurrentPlayer {
		d.timers.RemoveTimer(playerTimerKey(d.acting))
	}
	d.acting = g.CurrentPlayer

	seconds := g.Countdown
	if seconds <= 0 {
		seconds = maxForPhase(g.Phase)
	}
	id := g.CurrentPlayer
	d.timers.AddTimer(playerTimerKey(id), time.Duration(seconds)*time.Second, 0, func() { d.expire(id) })
}

func (d *Driver) tick() {
	d.mutex.Lock()
	if d.state.Game.Countdown > 0 {
		d.state.Game.Countdown--
	}
	if d.state.Game.Countdown == 0 {
		d.timers.RemoveTimer(phaseTimerKey)
	}
	view := Render(d.state)
	d.mutex.Unlock()

	d.onRender(view)
}

func (d *Driver) expire(playerID string) {
	d.mutex.Lock()
	current := d.acting == playerID
	if current {
		d.acting = ""
	}
	d.mutex.Unlock()

	if current {
		d.onExpire(playerID)
	}
}

// Select toggles a held card of the viewer.
func (d *Driver) Select(index int) View {
	d.mutex.Lock()
	d.state = ToggleSelect(d.state, index)
	view := Render(d.state)
	d.mutex.Unlock()

	d.onRender(view)
	return view
}

func (d *Driver) State() State {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.state
}

func (d *Driver) View() View {
	return Render(d.State())
}

// ActionTimer returns the live action timer of the acting player.
func (d *Driver) ActionTimer() (timer.Handle, bool) {
	d.mutex.Lock()
	acting := d.acting
	d.mutex.Unlock()

	if acting == "" {
		return timer.Handle{}, false
	}
	return d.timers.Get(playerTimerKey(acting))
}

func (d *Driver) LiveTimers() int {
	return d.timers.Len()
}

// Close cancels every timer the driver owns.
func (d *Driver) Close() int {
	return d.timers.RemoveAll()
}
