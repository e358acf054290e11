package button

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// activeHigh keeps tests readable: a set bit means pressed.
func activeHigh() Config {
	cfg := DefaultConfig()
	cfg.ActiveLow = false
	return cfg
}

// hold advances the engine n ticks with mask held and returns the tick
// offsets (1-based, relative to the first tick) at which button i fired.
func hold(e *Engine, mask Mask, i, n int) []int {
	var at []int
	for tick := 1; tick <= n; tick++ {
		e.Advance(mask)
		if e.Fired(i) {
			at = append(at, tick)
		}
	}
	return at
}

func TestNew_Defaults(t *testing.T) {
	e := New(Config{})
	assert.Equal(t, uint32(DefaultOnThreshold), e.cfg.OnThreshold)
	assert.Equal(t, uint32(DefaultRepeatDelay), e.cfg.RepeatDelay)
	assert.Equal(t, uint32(DefaultRepeatPeriod), e.cfg.RepeatPeriod)
	assert.False(t, e.cfg.ActiveLow)
	assert.True(t, DefaultConfig().ActiveLow)
}

func TestAdvance_BelowThreshold(t *testing.T) {
	e := New(activeHigh())

	fired := hold(e, Bit(0), 0, DefaultOnThreshold-1)
	assert.Empty(t, fired)

	e.Advance(0)
	assert.False(t, e.Fired(0))
	assert.Equal(t, Idle, e.Button(0).Stage)
	assert.Equal(t, uint32(0), e.Button(0).HoldTicks)
}

func TestAdvance_ExactlyThreshold(t *testing.T) {
	e := New(activeHigh())

	fired := hold(e, Bit(0), 0, DefaultOnThreshold)
	assert.Equal(t, []int{DefaultOnThreshold}, fired)
	assert.Equal(t, Held, e.Button(0).Stage)

	e.Advance(0)
	assert.Equal(t, Idle, e.Button(0).Stage)
	assert.Equal(t, uint32(1), e.Pressed(0))
}

func TestAdvance_RepeatSchedule(t *testing.T) {
	e := New(activeHigh())

	n := DefaultOnThreshold + DefaultRepeatDelay + 2*DefaultRepeatPeriod
	fired := hold(e, Bit(2), 2, n)

	want := []int{
		DefaultOnThreshold,
		DefaultOnThreshold + DefaultRepeatDelay,
		DefaultOnThreshold + DefaultRepeatDelay + DefaultRepeatPeriod,
		DefaultOnThreshold + DefaultRepeatDelay + 2*DefaultRepeatPeriod,
	}
	assert.Equal(t, want, fired)
	assert.Equal(t, Repeating, e.Button(2).Stage)
	assert.Equal(t, uint32(4), e.Pressed(2))
}

func TestAdvance_ReleaseResetsHold(t *testing.T) {
	e := New(activeHigh())

	assert.Empty(t, hold(e, Bit(1), 1, 60))
	e.Advance(0)
	// A glitch restarts the count from zero.
	assert.Empty(t, hold(e, Bit(1), 1, DefaultOnThreshold-1))
	assert.Equal(t, []int{1}, hold(e, Bit(1), 1, 1))
}

func TestAdvance_ReleaseFromRepeating(t *testing.T) {
	e := New(activeHigh())
	hold(e, Bit(3), 3, DefaultOnThreshold+DefaultRepeatDelay)
	require.Equal(t, Repeating, e.Button(3).Stage)

	e.Advance(0)
	assert.Equal(t, Idle, e.Button(3).Stage)

	// Next press needs the full on-threshold again.
	assert.Equal(t, []int{DefaultOnThreshold}, hold(e, Bit(3), 3, DefaultOnThreshold))
}

func TestAdvance_ButtonsIndependent(t *testing.T) {
	e := New(activeHigh())

	hold(e, Bit(0), 0, 50)
	for tick := 0; tick < 50; tick++ {
		e.Advance(Bit(0) | Bit(4))
	}
	assert.True(t, e.Fired(0))
	assert.False(t, e.Fired(4))
	assert.Equal(t, uint32(50), e.Button(4).HoldTicks)
	assert.Equal(t, Held, e.Button(0).Stage)
	assert.Equal(t, Idle, e.Button(4).Stage)
}

func TestAdvance_ActiveLow(t *testing.T) {
	e := New(DefaultConfig())

	// All lines high: nothing pressed.
	for tick := 0; tick < 2*DefaultOnThreshold; tick++ {
		e.Advance(AllMask)
	}
	assert.Equal(t, Mask(0), e.FiredMask(AllMask))

	// Button 1 pulled low.
	for tick := 0; tick < DefaultOnThreshold; tick++ {
		e.Advance(AllMask &^ Bit(1))
	}
	assert.Equal(t, Bit(1), e.FiredMask(AllMask))
}

func TestAdvance_IgnoresBitsAboveCount(t *testing.T) {
	e := New(activeHigh())
	for tick := 0; tick < DefaultOnThreshold; tick++ {
		e.Advance(0xE0)
	}
	assert.Equal(t, Mask(0), e.FiredMask(0xFF))
}

func TestFired_ReadAndClear(t *testing.T) {
	e := New(activeHigh())
	for tick := 0; tick < DefaultOnThreshold; tick++ {
		e.Advance(Bit(0))
	}

	assert.True(t, e.Fired(0))
	assert.False(t, e.Fired(0), "second read without a new event")
	assert.False(t, e.Fired(1))
}

func TestFired_Coalesces(t *testing.T) {
	e := New(activeHigh())

	// Two events before the consumer reads.
	for tick := 0; tick < DefaultOnThreshold+DefaultRepeatDelay; tick++ {
		e.Advance(Bit(0))
	}
	assert.Equal(t, uint32(2), e.Pressed(0))
	assert.True(t, e.Fired(0))
	assert.False(t, e.Fired(0))
}

func TestFiredMask_ClearsOnlyRequested(t *testing.T) {
	e := New(activeHigh())
	for tick := 0; tick < DefaultOnThreshold; tick++ {
		e.Advance(Bit(0) | Bit(2))
	}

	assert.Equal(t, Bit(0), e.FiredMask(Bit(0)|Bit(1)))
	assert.True(t, e.Fired(2))
}

func TestCustomTiming(t *testing.T) {
	e := New(Config{OnThreshold: 3, RepeatDelay: 5, RepeatPeriod: 2})
	fired := hold(e, Bit(4), 4, 12)
	assert.Equal(t, []int{3, 8, 10, 12}, fired)
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "held", Held.String())
	assert.Equal(t, "repeating", Repeating.String())
	assert.Equal(t, "unknown", Stage(9).String())
}
