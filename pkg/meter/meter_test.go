package meter

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/itohio/goefm/pkg/demod"
	"github.com/itohio/goefm/pkg/lcd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu sync.Mutex
	m  demod.Measurement
}

func (s *fakeSource) Latest() demod.Measurement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m
}

func (s *fakeSource) set(m demod.Measurement) {
	s.mu.Lock()
	s.m = m
	s.mu.Unlock()
}

// fakeButtons latches presses until read, like button.Engine.
type fakeButtons struct {
	mu      sync.Mutex
	pending map[int]bool
}

func (b *fakeButtons) press(i int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		b.pending = map[int]bool{}
	}
	b.pending[i] = true
}

func (b *fakeButtons) Fired(i int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.pending[i]
	delete(b.pending, i)
	return v
}

type fakeMotor struct {
	calls []bool
	err   error
}

func (m *fakeMotor) SetMotor(on bool) error {
	m.calls = append(m.calls, on)
	return m.err
}

type fakeBeeper struct {
	mu       sync.Mutex
	patterns []uint8
}

func (b *fakeBeeper) Beep(p uint8) {
	b.mu.Lock()
	b.patterns = append(b.patterns, p)
	b.mu.Unlock()
}

func (b *fakeBeeper) played() []uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]uint8(nil), b.patterns...)
}

type fakeEnv struct {
	temp  int16
	hum   uint16
	err   error
	reads int
}

func (e *fakeEnv) Measurements() (int16, uint16, error) {
	e.reads++
	if e.err != nil {
		return 0, 0, e.err
	}
	return e.temp, e.hum, nil
}

// countingDisplay forwards to a multiplexer and counts writes.
type countingDisplay struct {
	*lcd.Multiplexer
	writes int
}

func (d *countingDisplay) SetText(row, col int, text string) {
	d.writes++
	d.Multiplexer.SetText(row, col, text)
}

type rig struct {
	meter   *Meter
	source  *fakeSource
	display *countingDisplay
	buttons *fakeButtons
	motor   *fakeMotor
	beeper  *fakeBeeper
	env     *fakeEnv
}

func newRig() *rig {
	r := &rig{
		source:  &fakeSource{},
		display: &countingDisplay{Multiplexer: lcd.New(lcd.NewScreen(16, 2), 16, 2)},
		buttons: &fakeButtons{},
		motor:   &fakeMotor{},
		beeper:  &fakeBeeper{},
		env:     &fakeEnv{temp: 225, hum: 450},
	}
	r.meter = New(Config{}, r.source, r.display, r.buttons, Peripherals{
		Motor:       r.motor,
		Beeper:      r.beeper,
		Environment: r.env,
	})
	return r
}

func (r *rig) frame() []string {
	return r.display.Frame()
}

func TestStart_Banner(t *testing.T) {
	r := newRig()
	r.meter.Start(time.Now())

	assert.Equal(t, []string{"Surface         ", " potential meter"}, r.frame())
	assert.Equal(t, []uint8{BeepStart}, r.beeper.played())
}

func TestStep_PotentialPage(t *testing.T) {
	tests := []struct {
		name string
		m    demod.Measurement
		want string
	}{
		{"nothing published", demod.Measurement{}, "   =  +0.00 [kV]"},
		{"positive", demod.Measurement{Magnitude: 100, Polarity: 1, Seq: 1}, "   =  +1.03 [kV]"},
		{"negative", demod.Measurement{Magnitude: -100, Polarity: -1, Seq: 2}, "   =  -1.03 [kV]"},
		{"large", demod.Measurement{Magnitude: 1500, Polarity: 1, Seq: 3}, "   = +15.42 [kV]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig()
			r.source.set(tt.m)
			require.NoError(t, r.meter.Step(time.Now()))
			assert.Equal(t, []string{"Surf. Potential ", tt.want}, r.frame())
		})
	}
}

func TestStep_PageNavigation(t *testing.T) {
	r := newRig()
	r.source.set(demod.Measurement{Magnitude: -100, Polarity: -1, Seq: 1})
	now := time.Now()

	require.NoError(t, r.meter.Step(now))
	assert.Equal(t, PagePotential, r.meter.Status().Page)

	r.buttons.press(ButtonNext)
	require.NoError(t, r.meter.Step(now))
	assert.Equal(t, PageADC, r.meter.Status().Page)
	assert.Equal(t, []string{"ADC Count       ", "         =  +100"}, r.frame())

	r.buttons.press(ButtonNext)
	require.NoError(t, r.meter.Step(now))
	assert.Equal(t, PageEnvironment, r.meter.Status().Page)

	r.buttons.press(ButtonNext)
	require.NoError(t, r.meter.Step(now))
	assert.Equal(t, PagePotential, r.meter.Status().Page, "wraps to the first page")

	r.buttons.press(ButtonPrev)
	require.NoError(t, r.meter.Step(now))
	assert.Equal(t, PageEnvironment, r.meter.Status().Page, "wraps to the last page")
}

func TestStep_EnvironmentPage(t *testing.T) {
	r := newRig()
	start := time.Now()
	r.meter.Start(start)

	r.buttons.press(ButtonPrev)
	require.NoError(t, r.meter.Step(start))
	assert.Equal(t, []string{"Temp: 22.5 C    ", "Hum:  45.0 %RH  "}, r.frame())

	require.NoError(t, r.meter.Step(start.Add(2*time.Second)))
	assert.Equal(t, []string{"Temp: 22.5 C   .", "Hum:  45.0 %RH ."}, r.frame())

	st := r.meter.Status()
	assert.True(t, st.EnvValid)
	assert.True(t, st.Blink)
	assert.InDelta(t, 22.5, st.Temperature, 1e-5)
	assert.InDelta(t, 45.0, st.Humidity, 1e-5)
}

func TestStep_EnvironmentPollInterval(t *testing.T) {
	r := newRig()
	start := time.Now()

	require.NoError(t, r.meter.Step(start))
	require.NoError(t, r.meter.Step(start.Add(time.Second)))
	assert.Equal(t, 1, r.env.reads)

	require.NoError(t, r.meter.Step(start.Add(2*time.Second)))
	assert.Equal(t, 2, r.env.reads)
}

func TestStep_EnvironmentFailureKeepsValues(t *testing.T) {
	r := newRig()
	start := time.Now()
	require.NoError(t, r.meter.Step(start))

	cause := errors.New("checksum")
	r.env.err = cause
	err := r.meter.Step(start.Add(2 * time.Second))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSensor)
	assert.ErrorIs(t, err, cause)

	var se *SensorError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, cause, se.Err)

	st := r.meter.Status()
	assert.True(t, st.EnvValid)
	assert.InDelta(t, 22.5, st.Temperature, 1e-5)
}

func TestStep_Motor(t *testing.T) {
	r := newRig()
	now := time.Now()

	r.buttons.press(ButtonStart)
	require.NoError(t, r.meter.Step(now))
	assert.Equal(t, []bool{true}, r.motor.calls)
	assert.True(t, r.meter.Status().MotorOn)

	r.buttons.press(ButtonStop)
	require.NoError(t, r.meter.Step(now))
	assert.Equal(t, []bool{true, false}, r.motor.calls)
	assert.False(t, r.meter.Status().MotorOn)
	assert.Equal(t, []uint8{BeepStart, BeepStop}, r.beeper.played())
}

func TestStep_MotorOnlyOnPotentialPage(t *testing.T) {
	r := newRig()
	now := time.Now()

	r.buttons.press(ButtonNext)
	require.NoError(t, r.meter.Step(now))
	r.buttons.press(ButtonStart)
	require.NoError(t, r.meter.Step(now))
	assert.Empty(t, r.motor.calls)

	// The latched press is handled once the page comes back.
	r.buttons.press(ButtonPrev)
	require.NoError(t, r.meter.Step(now))
	assert.Equal(t, []bool{true}, r.motor.calls)
}

func TestRequestMotor(t *testing.T) {
	r := newRig()
	now := time.Now()

	// Requests work from any page.
	r.buttons.press(ButtonNext)
	require.NoError(t, r.meter.Step(now))

	r.meter.RequestMotor(true)
	require.NoError(t, r.meter.Step(now))
	assert.Equal(t, []bool{true}, r.motor.calls)
	assert.True(t, r.meter.Status().MotorOn)

	// A request is consumed once.
	require.NoError(t, r.meter.Step(now))
	assert.Equal(t, []bool{true}, r.motor.calls)

	r.meter.RequestMotor(true)
	r.meter.RequestMotor(false)
	require.NoError(t, r.meter.Step(now))
	assert.Equal(t, []bool{true, false}, r.motor.calls)
	assert.Equal(t, []uint8{BeepStart, BeepStop}, r.beeper.played())
}

func TestStep_MotorError(t *testing.T) {
	r := newRig()
	r.motor.err = errors.New("port closed")

	r.buttons.press(ButtonStart)
	err := r.meter.Step(time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, r.motor.err)
	assert.False(t, r.meter.Status().MotorOn)
}

func TestStep_UnchangedLinesNotRewritten(t *testing.T) {
	r := newRig()
	r.source.set(demod.Measurement{Magnitude: 100, Polarity: 1, Seq: 1})
	now := time.Now()

	require.NoError(t, r.meter.Step(now))
	assert.Equal(t, 2, r.display.writes)

	require.NoError(t, r.meter.Step(now))
	assert.Equal(t, 2, r.display.writes)

	r.source.set(demod.Measurement{Magnitude: 200, Polarity: 1, Seq: 2})
	require.NoError(t, r.meter.Step(now))
	assert.Equal(t, 3, r.display.writes)
}

func TestOnUpdate_OnlyOnChange(t *testing.T) {
	r := newRig()
	var got []Status
	r.meter.OnUpdate(func(s Status) { got = append(got, s) })

	now := time.Now()
	r.source.set(demod.Measurement{Magnitude: 100, Polarity: 1, Seq: 1})
	require.NoError(t, r.meter.Step(now))
	require.NoError(t, r.meter.Step(now))
	require.Len(t, got, 1)
	assert.InDelta(t, 1.028, got[0].KV, 1e-5)

	r.source.set(demod.Measurement{Magnitude: 100, Polarity: 1, Seq: 2})
	require.NoError(t, r.meter.Step(now))
	assert.Len(t, got, 2)
}

func TestNew_OptionalPeripherals(t *testing.T) {
	display := lcd.New(lcd.NewScreen(16, 2), 16, 2)
	buttons := &fakeButtons{}
	m := New(Config{}, &fakeSource{}, display, buttons, Peripherals{})

	m.Start(time.Now())
	buttons.press(ButtonStart)
	require.NoError(t, m.Step(time.Now()))
	assert.True(t, m.Status().MotorOn)
	assert.False(t, m.Status().EnvValid)
}

func TestPage_String(t *testing.T) {
	assert.Equal(t, "potential", PagePotential.String())
	assert.Equal(t, "adc", PageADC.String())
	assert.Equal(t, "environment", PageEnvironment.String())
	assert.Equal(t, "unknown", Page(0).String())
}
