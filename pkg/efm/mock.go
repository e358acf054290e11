package efm

import (
	"context"
	"sync"
	"time"

	"github.com/itohio/goefm/pkg/config"
	"github.com/itohio/goefm/pkg/demod"
	"github.com/itohio/goefm/pkg/sample"
)

// Mock simulates a field mill: a synthesized chopped signal is pushed through
// a real demodulator at the configured sample rate.
type Mock struct {
	cfg config.MockConfig

	synth *sample.Synth
	demod *demod.Demodulator
	buf   []sample.Sample

	readings  chan sample.Reading
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	motorOn   bool
	done      chan struct{}
}

// NewMock creates a simulated instrument. indicator may be nil; it is called
// from the generator goroutine on every publish. A Mock is connected at most
// once.
func NewMock(cfg *config.MockConfig, dem config.DemodulatorConfig, indicator demod.Indicator) *Mock {
	if cfg == nil {
		cfg = &config.Default().Mock
	}
	mc := *cfg
	if mc.SampleRate <= 0 {
		mc.SampleRate = config.Default().Mock.SampleRate
	}
	if mc.Batch <= 0 {
		mc.Batch = config.Default().Mock.Batch
	}

	n := int(mc.SampleRate * mc.Batch.Seconds())
	if n < 1 {
		n = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Mock{
		cfg: mc,
		synth: sample.NewSynth(sample.SynthConfig{
			SampleRate:  mc.SampleRate,
			ChopperFreq: mc.ChopperFreq,
			PotentialKV: mc.PotentialKV,
			KVPerCount:  dem.KVPerCount,
			Noise:       mc.Noise,
			Baseline:    dem.BaselineOffset,
			Seed:        mc.Seed,
		}),
		demod: demod.New(demod.Config{
			BaselineOffset: dem.BaselineOffset,
			CycleThreshold: dem.CycleThreshold,
		}, indicator),
		buf:      make([]sample.Sample, n),
		readings: make(chan sample.Reading, DefaultBufferSize),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Connect starts the simulated sampling. The shutter motor starts stopped.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return ErrAlreadyConnected
	}
	m.connected = true

	go m.generate()

	return nil
}

// Close stops sampling and closes the readings channel.
func (m *Mock) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	m.cancel()
	m.connected = false
	m.mu.Unlock()

	<-m.done
	return nil
}

// Readings returns the channel of published measurements.
func (m *Mock) Readings() <-chan sample.Reading {
	return m.readings
}

// SetMotor starts or stops the simulated shutter.
func (m *Mock) SetMotor(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrNotConnected
	}
	m.motorOn = on
	return nil
}

// SetPotential changes the simulated surface potential.
func (m *Mock) SetPotential(kv float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.PotentialKV = kv
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Latest returns the most recent demodulated measurement.
func (m *Mock) Latest() demod.Measurement {
	return m.demod.Latest()
}

// Measurements returns the configured temperature and humidity.
func (m *Mock) Measurements() (int16, uint16, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return 0, 0, ErrNotConnected
	}
	return int16(m.cfg.Temperature * 10), uint16(m.cfg.Humidity * 10), nil
}

// generate produces one batch of samples per tick. The goroutine is the only
// caller of OnSample.
func (m *Mock) generate() {
	defer close(m.done)
	defer close(m.readings)

	ticker := time.NewTicker(m.cfg.Batch)
	defer ticker.Stop()

	var last uint32
	for {
		select {
		case <-m.ctx.Done():
			return
		case now := <-ticker.C:
			m.mu.RLock()
			motorOn := m.motorOn
			potential := m.cfg.PotentialKV
			m.mu.RUnlock()

			m.synth.SetChopping(motorOn)
			if potential != m.synth.Potential() {
				m.synth.SetPotential(potential)
			}

			for _, s := range m.synth.Fill(m.buf) {
				m.demod.OnSample(s.Raw, s.Gate)
				meas := m.demod.Latest()
				if meas.Seq == last {
					continue
				}
				last = meas.Seq

				select {
				case m.readings <- sample.Reading{Timestamp: now, Measurement: meas}:
				case <-m.ctx.Done():
					return
				default:
					// Channel full, skip
				}
			}
		}
	}
}
