package dispatch

import (
	"context"
	"time"

	"github.com/itohio/goefm/pkg/button"
)

// DefaultPeriod is the dispatcher tick period.
const DefaultPeriod = time.Millisecond

// Stepper is a non-blocking state machine advanced once per tick.
type Stepper interface {
	Advance()
}

// ButtonSource samples the raw button levels, one bit per button.
type ButtonSource interface {
	Buttons() button.Mask
}

// ButtonFunc adapts a function to ButtonSource.
type ButtonFunc func() button.Mask

// Buttons calls f.
func (f ButtonFunc) Buttons() button.Mask { return f() }

// Debouncer consumes one raw button sample per tick.
type Debouncer interface {
	Advance(raw button.Mask)
}

var _ Debouncer = (*button.Engine)(nil)

// Dispatcher is the fixed-rate driver of the display and button state
// machines. It is the only caller of their Advance methods.
type Dispatcher struct {
	display Stepper
	buttons Debouncer
	input   ButtonSource

	ticks uint64
}

// New creates a dispatcher.
func New(display Stepper, buttons Debouncer, input ButtonSource) *Dispatcher {
	return &Dispatcher{
		display: display,
		buttons: buttons,
		input:   input,
	}
}

// Tick advances the display multiplexer and then the debounce engine by one
// step each. It must be called from a single context at a fixed period.
func (d *Dispatcher) Tick() {
	d.display.Advance()
	d.buttons.Advance(d.input.Buttons())
	d.ticks++
}

// Ticks returns the number of completed ticks. Only meaningful from the tick
// context or after Run has returned.
func (d *Dispatcher) Ticks() uint64 {
	return d.ticks
}

// Run calls Tick every period until ctx is cancelled. A period of zero uses
// DefaultPeriod. Missed ticks are dropped by the ticker, never queued.
func (d *Dispatcher) Run(ctx context.Context, period time.Duration) {
	if period <= 0 {
		period = DefaultPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Tick()
		}
	}
}

// Combine merges several button sources into one. A button is down when it
// is down on any source: levels are ANDed for active-low sources and ORed
// otherwise.
func Combine(activeLow bool, sources ...ButtonSource) ButtonSource {
	return ButtonFunc(func() button.Mask {
		if activeLow {
			m := button.AllMask
			for _, s := range sources {
				m &= s.Buttons()
			}
			return m
		}
		var m button.Mask
		for _, s := range sources {
			m |= s.Buttons()
		}
		return m
	})
}
