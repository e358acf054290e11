package panel

import (
	"sync/atomic"

	"github.com/itohio/goefm/pkg/button"
)

// Keys holds the on-screen key state. Press and Release are called from the
// UI thread and Buttons from the dispatcher tick.
type Keys struct {
	held      atomic.Uint32
	activeLow bool
}

// NewKeys creates keys reporting levels with the given polarity, so they can
// stand in for the hardware switches.
func NewKeys(activeLow bool) *Keys {
	return &Keys{activeLow: activeLow}
}

// Press holds key i down until Release.
func (k *Keys) Press(i int) {
	if i < 0 || i >= button.Count {
		return
	}
	k.held.Or(uint32(button.Bit(i)))
}

// Release lets key i go.
func (k *Keys) Release(i int) {
	if i < 0 || i >= button.Count {
		return
	}
	k.held.And(^uint32(button.Bit(i)))
}

// Held returns the keys currently down.
func (k *Keys) Held() button.Mask {
	return button.Mask(k.held.Load()) & button.AllMask
}

// Buttons returns the raw levels.
func (k *Keys) Buttons() button.Mask {
	if k.activeLow {
		return button.AllMask &^ k.Held()
	}
	return k.Held()
}
