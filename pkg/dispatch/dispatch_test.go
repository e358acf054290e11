package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/itohio/goefm/pkg/button"
	"github.com/itohio/goefm/pkg/lcd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	mask button.Mask
}

type trace struct {
	calls []call
}

type traceDisplay struct{ t *trace }

func (d traceDisplay) Advance() { d.t.calls = append(d.t.calls, call{name: "display"}) }

type traceButtons struct{ t *trace }

func (b traceButtons) Advance(raw button.Mask) {
	b.t.calls = append(b.t.calls, call{name: "buttons", mask: raw})
}

func TestTick_Order(t *testing.T) {
	tr := &trace{}
	input := button.Mask(0x1e)
	d := New(traceDisplay{tr}, traceButtons{tr}, ButtonFunc(func() button.Mask {
		tr.calls = append(tr.calls, call{name: "input"})
		return input
	}))

	d.Tick()
	d.Tick()

	want := []call{
		{name: "display"}, {name: "input"}, {name: "buttons", mask: 0x1e},
		{name: "display"}, {name: "input"}, {name: "buttons", mask: 0x1e},
	}
	assert.Equal(t, want, tr.calls)
	assert.Equal(t, uint64(2), d.Ticks())
}

func TestTick_DrivesRealMachines(t *testing.T) {
	screen := lcd.NewScreen(16, 2)
	display := lcd.New(screen, 16, 2)
	engine := button.New(button.DefaultConfig())

	// Button 0 pulled low, others released.
	d := New(display, engine, ButtonFunc(func() button.Mask {
		return button.AllMask &^ button.Bit(0)
	}))

	display.SetText(0, 0, "Surface         ")
	display.SetText(1, 0, " potential meter")
	for i := 0; i < button.DefaultOnThreshold; i++ {
		d.Tick()
	}

	assert.Equal(t, []string{"Surface         ", " potential meter"}, screen.Lines())
	assert.True(t, engine.Fired(0))
	assert.False(t, engine.Fired(1))
}

func TestRun_StopsOnCancel(t *testing.T) {
	screen := lcd.NewScreen(16, 2)
	display := lcd.New(screen, 16, 2)
	engine := button.New(button.DefaultConfig())
	d := New(display, engine, ButtonFunc(func() button.Mask { return button.AllMask }))

	display.SetText(0, 0, "hello")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx, 100*time.Microsecond)
	}()

	require.Eventually(t, func() bool {
		return screen.Lines()[0] == "hello           "
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Greater(t, d.Ticks(), uint64(33))
}

func TestCombine(t *testing.T) {
	level := func(m button.Mask) ButtonSource {
		return ButtonFunc(func() button.Mask { return m })
	}

	tests := []struct {
		name      string
		activeLow bool
		sources   []ButtonSource
		want      button.Mask
	}{
		{name: "active low none", activeLow: true, want: button.AllMask},
		{name: "active low merges presses", activeLow: true, sources: []ButtonSource{level(0x1e), level(0x1b)}, want: 0x1a},
		{name: "active low idle", activeLow: true, sources: []ButtonSource{level(0x1f), level(0x1f)}, want: 0x1f},
		{name: "active high none", want: 0},
		{name: "active high merges presses", sources: []ButtonSource{level(0x01), level(0x04)}, want: 0x05},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Combine(tt.activeLow, tt.sources...).Buttons())
		})
	}
}
