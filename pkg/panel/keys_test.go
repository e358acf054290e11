package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/itohio/goefm/pkg/button"
	"github.com/itohio/goefm/pkg/dispatch"
)

var _ dispatch.ButtonSource = (*Keys)(nil)

func TestKeys_Levels(t *testing.T) {
	tests := []struct {
		name      string
		activeLow bool
		press     []int
		want      button.Mask
	}{
		{name: "active low idle", activeLow: true, want: button.AllMask},
		{name: "active low pressed", activeLow: true, press: []int{1, 3}, want: 0x15},
		{name: "active high idle", want: 0},
		{name: "active high pressed", press: []int{0, 4}, want: 0x11},
		{name: "out of range ignored", activeLow: true, press: []int{-1, 5, 9}, want: button.AllMask},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := NewKeys(tt.activeLow)
			for _, i := range tt.press {
				k.Press(i)
			}
			assert.Equal(t, tt.want, k.Buttons())
		})
	}
}

func TestKeys_Release(t *testing.T) {
	k := NewKeys(true)
	k.Press(2)
	k.Press(2)
	assert.Equal(t, button.Bit(2), k.Held())

	k.Release(2)
	assert.Zero(t, k.Held())
	assert.Equal(t, button.AllMask, k.Buttons())

	k.Release(7)
	assert.Zero(t, k.Held())
}

func TestKeys_HoldRepeats(t *testing.T) {
	k := NewKeys(true)
	e := button.New(button.Config{ActiveLow: true, OnThreshold: 2, RepeatDelay: 4, RepeatPeriod: 3})

	k.Press(1)
	for i := 0; i < 2+4+3; i++ {
		e.Advance(k.Buttons())
	}
	k.Release(1)
	e.Advance(k.Buttons())

	assert.Equal(t, uint32(3), e.Pressed(1))
	assert.Equal(t, button.Idle, e.Button(1).Stage)
}
