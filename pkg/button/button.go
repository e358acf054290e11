package button

import (
	"sync/atomic"
)

// Count is the number of front-panel buttons.
const Count = 5

const (
	// DefaultOnThreshold is the hold time, in ticks, before a press is accepted.
	DefaultOnThreshold = 100
	// DefaultRepeatDelay is the hold time after the first event before repeating starts.
	DefaultRepeatDelay = 300
	// DefaultRepeatPeriod is the interval between repeat events.
	DefaultRepeatPeriod = 300
)

// Mask holds one bit per button; bit i is button i.
type Mask uint8

// AllMask has a bit set for every button.
const AllMask Mask = 1<<Count - 1

// Bit returns the mask bit for button i.
func Bit(i int) Mask {
	return Mask(1) << i
}

// Stage is the debounce stage of a single button.
type Stage uint8

const (
	Idle      Stage = iota // not confirmed pressed
	Held                   // confirmed, waiting for the first repeat
	Repeating              // emitting periodic repeats while held
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case Held:
		return "held"
	case Repeating:
		return "repeating"
	default:
		return "unknown"
	}
}

// Config holds debounce timing in ticks.
type Config struct {
	ActiveLow    bool   // Raw levels are low when pressed
	OnThreshold  uint32 // Ticks a button must be held before the first event
	RepeatDelay  uint32 // Ticks from the first event to the first repeat
	RepeatPeriod uint32 // Ticks between subsequent repeats
}

// DefaultConfig returns the front-panel timing for active-low switches.
func DefaultConfig() Config {
	return Config{
		ActiveLow:    true,
		OnThreshold:  DefaultOnThreshold,
		RepeatDelay:  DefaultRepeatDelay,
		RepeatPeriod: DefaultRepeatPeriod,
	}
}

// State is the per-button debounce state.
type State struct {
	HoldTicks  uint32
	PressCount uint32
	Stage      Stage
}

// Engine debounces the panel buttons and generates edge/repeat events.
//
// Advance is called from the tick context only. Fired and Pressed may be
// called from any goroutine.
type Engine struct {
	cfg     Config
	buttons [Count]State

	fired   atomic.Uint32
	presses [Count]atomic.Uint32
}

// New creates an engine. Zero timing fields fall back to defaults.
func New(cfg Config) *Engine {
	if cfg.OnThreshold == 0 {
		cfg.OnThreshold = DefaultOnThreshold
	}
	if cfg.RepeatDelay == 0 {
		cfg.RepeatDelay = DefaultRepeatDelay
	}
	if cfg.RepeatPeriod == 0 {
		cfg.RepeatPeriod = DefaultRepeatPeriod
	}
	return &Engine{cfg: cfg}
}

// Advance runs one debounce step with the instantaneous raw button levels.
func (e *Engine) Advance(raw Mask) {
	held := raw
	if e.cfg.ActiveLow {
		held = ^raw
	}
	held &= AllMask

	var fired Mask
	for i := range e.buttons {
		if e.step(&e.buttons[i], held&Bit(i) != 0) {
			fired |= Bit(i)
			e.presses[i].Store(e.buttons[i].PressCount)
		}
	}
	if fired != 0 {
		e.fired.Or(uint32(fired))
	}
}

// step advances one button and reports whether it produced an event.
func (e *Engine) step(b *State, held bool) bool {
	if !held {
		b.HoldTicks = 0
		b.Stage = Idle
		return false
	}

	b.HoldTicks++
	var limit uint32
	switch b.Stage {
	case Idle:
		limit = e.cfg.OnThreshold
	case Held:
		limit = e.cfg.RepeatDelay
	case Repeating:
		limit = e.cfg.RepeatPeriod
	}
	if b.HoldTicks < limit {
		return false
	}

	b.HoldTicks = 0
	b.PressCount++
	if b.Stage == Idle {
		b.Stage = Held
	} else {
		b.Stage = Repeating
	}
	return true
}

// Fired reports whether button i produced an event since the last call and
// clears the flag. Events that fire twice between reads are coalesced.
func (e *Engine) Fired(i int) bool {
	bit := uint32(Bit(i))
	return e.fired.And(^bit)&bit != 0
}

// FiredMask reads and clears the flags of all buttons in mask.
func (e *Engine) FiredMask(mask Mask) Mask {
	return Mask(e.fired.And(^uint32(mask))) & mask
}

// Pressed returns the total number of events button i has produced.
func (e *Engine) Pressed(i int) uint32 {
	return e.presses[i].Load()
}

// Button returns a copy of the debounce state of button i. It is only
// meaningful from the tick context or while ticking is stopped.
func (e *Engine) Button(i int) State {
	return e.buttons[i]
}
