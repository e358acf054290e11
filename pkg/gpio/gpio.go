// Package gpio reads the front-panel switches from GPIO input lines.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"log"
	"sync/atomic"

	"github.com/itohio/goefm/pkg/button"
)

// DefaultChip is the GPIO chip the panel switches hang off.
const DefaultChip = "gpiochip0"

// Reader reads raw switch levels.
type Reader interface {
	// Read returns the raw line levels, bit i set when line i is high.
	Read() (button.Mask, error)

	// Close releases GPIO resources.
	Close() error
}

// Keys adapts a Reader to the dispatcher's button source. A failed read
// repeats the previous levels so the debounce engine never sees a glitch.
// Buttons runs in the tick context and takes no locks.
type Keys struct {
	r Reader

	last   atomic.Uint32 // button.Mask
	failed atomic.Bool
}

// NewKeys creates a key source. idle is the level reported before the first
// successful read: button.AllMask for active-low switches with pull-ups.
func NewKeys(r Reader, idle button.Mask) *Keys {
	k := &Keys{r: r}
	k.last.Store(uint32(idle))
	return k
}

// Buttons samples the switches.
func (k *Keys) Buttons() button.Mask {
	m, err := k.r.Read()
	if err != nil {
		if k.failed.CompareAndSwap(false, true) {
			log.Printf("GPIO: read failed: %v", err)
		}
		return button.Mask(k.last.Load())
	}
	if k.failed.CompareAndSwap(true, false) {
		log.Printf("GPIO: read recovered")
	}
	m &= button.AllMask
	k.last.Store(uint32(m))
	return m
}

// Failing reports whether the last read failed.
func (k *Keys) Failing() bool {
	return k.failed.Load()
}

// Close closes the underlying reader.
func (k *Keys) Close() error {
	return k.r.Close()
}
