package meter

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itohio/goefm/pkg/demod"
	"github.com/itohio/goefm/pkg/sample"
)

// Front-panel button assignment. Button 0 is the key switch and has no
// function in the measurement loop.
const (
	ButtonNext  = 1
	ButtonPrev  = 2
	ButtonStart = 3
	ButtonStop  = 4
)

// Beep patterns, four 100 ms slots played MSB first.
const (
	BeepStart uint8 = 0xA
	BeepStop  uint8 = 0xF
)

const (
	DefaultKVPerCount          = 0.01028
	DefaultEnvironmentInterval = 2 * time.Second
	DefaultStartupDelay        = time.Second
)

const (
	motorNoRequest int32 = iota
	motorStartRequest
	motorStopRequest
)

// Page is the information shown on the character display.
type Page uint8

const (
	PagePotential   Page = iota + 1 // signed surface potential in kV
	PageADC                         // demodulated ADC count
	PageEnvironment                 // temperature and humidity

	firstPage = PagePotential
	lastPage  = PageEnvironment
)

func (p Page) String() string {
	switch p {
	case PagePotential:
		return "potential"
	case PageADC:
		return "adc"
	case PageEnvironment:
		return "environment"
	default:
		return "unknown"
	}
}

// Display receives rendered text. lcd.Multiplexer implements it.
type Display interface {
	SetText(row, col int, text string)
}

// Buttons reports debounced button events. button.Engine implements it.
type Buttons interface {
	Fired(i int) bool
}

// Motor switches the shutter drive.
type Motor interface {
	SetMotor(on bool) error
}

// Beeper plays a beep pattern without blocking.
type Beeper interface {
	Beep(pattern uint8)
}

// Environment is a temperature/humidity sensor. Temperature is in tenths of
// a degree Celsius and humidity in tenths of a percent.
type Environment interface {
	Measurements() (temperature int16, humidity uint16, err error)
}

// Peripherals are the optional collaborators of the meter.
type Peripherals struct {
	Motor       Motor
	Beeper      Beeper
	Environment Environment
}

// Config holds main loop parameters.
type Config struct {
	KVPerCount          float32
	EnvironmentInterval time.Duration // Sensor poll and blink period
}

// Status is a snapshot of what the meter shows.
type Status struct {
	Page        Page
	Measurement demod.Measurement
	KV          float32
	Temperature float32 // °C
	Humidity    float32 // %RH
	EnvValid    bool
	MotorOn     bool
	Blink       bool
}

// Meter is the instrument main loop: it converts the latest measurement to
// kV, polls the environment sensor, handles page and motor buttons and
// renders the current page.
type Meter struct {
	cfg     Config
	source  demod.Source
	display Display
	buttons Buttons
	periph  Peripherals

	page        Page
	lines       [2]string
	motorOn     bool
	temperature float32
	humidity    float32
	envValid    bool
	blink       bool
	lastEnv     time.Time
	lastBlink   time.Time

	motorReq atomic.Int32

	status Status
	mu     sync.RWMutex

	callbacks []func(Status)
	cbMu      sync.RWMutex
}

// New creates a meter. Zero config fields fall back to defaults.
func New(cfg Config, source demod.Source, display Display, buttons Buttons, periph Peripherals) *Meter {
	if cfg.KVPerCount == 0 {
		cfg.KVPerCount = DefaultKVPerCount
	}
	if cfg.EnvironmentInterval <= 0 {
		cfg.EnvironmentInterval = DefaultEnvironmentInterval
	}
	return &Meter{
		cfg:     cfg,
		source:  source,
		display: display,
		buttons: buttons,
		periph:  periph,
		page:    PagePotential,
	}
}

// Start shows the startup banner and plays the start beep.
func (m *Meter) Start(now time.Time) {
	m.setLine(0, "Surface         ")
	m.setLine(1, " potential meter")
	m.beep(BeepStart)
	m.lastBlink = now
}

// Step runs one main loop iteration. Errors are reported but never stop the
// meter; the previous environment values stay on display.
func (m *Meter) Step(now time.Time) error {
	var errs []error

	meas := m.source.Latest()
	kv := sample.KV(meas, m.cfg.KVPerCount)

	if m.periph.Environment != nil && (m.lastEnv.IsZero() || now.Sub(m.lastEnv) >= m.cfg.EnvironmentInterval) {
		m.lastEnv = now
		if err := m.readEnvironment(); err != nil {
			errs = append(errs, err)
		}
	}

	if now.Sub(m.lastBlink) >= m.cfg.EnvironmentInterval {
		m.blink = !m.blink
		m.lastBlink = now
	}

	if m.buttons.Fired(ButtonNext) {
		m.page++
		if m.page > lastPage {
			m.page = firstPage
		}
	}
	if m.buttons.Fired(ButtonPrev) {
		m.page--
		if m.page < firstPage {
			m.page = lastPage
		}
	}

	switch m.page {
	case PagePotential:
		m.setLine(0, "Surf. Potential ")
		m.setLine(1, fmt.Sprintf("   = %+6.2f [kV]", kv))
		if m.buttons.Fired(ButtonStart) {
			errs = appendErr(errs, m.switchMotor(true))
		}
		if m.buttons.Fired(ButtonStop) {
			errs = appendErr(errs, m.switchMotor(false))
		}

	case PageADC:
		count := meas.Magnitude
		if count < 0 {
			count = -count
		}
		m.setLine(0, "ADC Count       ")
		m.setLine(1, fmt.Sprintf("         = %+5d", count))

	case PageEnvironment:
		dot := ' '
		if m.blink {
			dot = '.'
		}
		m.setLine(0, fmt.Sprintf("Temp:%5.1f C   %c", m.temperature, dot))
		m.setLine(1, fmt.Sprintf("Hum: %5.1f %%RH %c", m.humidity, dot))
	}

	switch m.motorReq.Swap(motorNoRequest) {
	case motorStartRequest:
		errs = appendErr(errs, m.switchMotor(true))
	case motorStopRequest:
		errs = appendErr(errs, m.switchMotor(false))
	}

	m.publish(Status{
		Page:        m.page,
		Measurement: meas,
		KV:          kv,
		Temperature: m.temperature,
		Humidity:    m.humidity,
		EnvValid:    m.envValid,
		MotorOn:     m.motorOn,
		Blink:       m.blink,
	})

	return joinErrors(errs)
}

// Run shows the banner, waits startupDelay and then calls Step every period
// until ctx is cancelled.
func (m *Meter) Run(ctx context.Context, period, startupDelay time.Duration) {
	m.Start(time.Now())

	select {
	case <-ctx.Done():
		return
	case <-time.After(startupDelay):
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := m.Step(now); err != nil {
				log.Printf("Meter: %v", err)
			}
		}
	}
}

// RequestMotor asks the next Step to start or stop the motor as if the
// start or stop key was pressed on the potential page. Safe for concurrent use.
func (m *Meter) RequestMotor(on bool) {
	if on {
		m.motorReq.Store(motorStartRequest)
	} else {
		m.motorReq.Store(motorStopRequest)
	}
}

// Status returns the state after the last Step.
func (m *Meter) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// OnUpdate registers a callback invoked from Step whenever the status changes.
func (m *Meter) OnUpdate(callback func(Status)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

func (m *Meter) readEnvironment() error {
	t, h, err := m.periph.Environment.Measurements()
	if err != nil {
		return &SensorError{Err: err}
	}
	m.temperature = float32(t) / 10
	m.humidity = float32(h) / 10
	m.envValid = true
	return nil
}

func (m *Meter) switchMotor(on bool) error {
	if on {
		m.beep(BeepStart)
	} else {
		m.beep(BeepStop)
	}
	return m.setMotor(on)
}

func (m *Meter) setMotor(on bool) error {
	if m.periph.Motor == nil {
		m.motorOn = on
		return nil
	}
	if err := m.periph.Motor.SetMotor(on); err != nil {
		return fmt.Errorf("failed to switch motor: %w", err)
	}
	m.motorOn = on
	return nil
}

func (m *Meter) beep(pattern uint8) {
	if m.periph.Beeper != nil {
		m.periph.Beeper.Beep(pattern)
	}
}

// setLine writes a row only when its text changed, so an unchanged page does
// not trigger a display refresh.
func (m *Meter) setLine(row int, text string) {
	if m.lines[row] == text {
		return
	}
	m.lines[row] = text
	m.display.SetText(row, 0, text)
}

func (m *Meter) publish(s Status) {
	m.mu.Lock()
	changed := s != m.status
	m.status = s
	m.mu.Unlock()

	if !changed {
		return
	}

	m.cbMu.RLock()
	callbacks := make([]func(Status), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(s)
		}
	}
}
