package meter

import (
	"context"
	"errors"
	"sync"
	"time"
)

var _ Environment = (*PolledEnvironment)(nil)

// ErrNoReading is returned before the first sensor read completes.
var ErrNoReading = errors.New("no environment reading yet")

// PolledEnvironment reads a slow sensor from its own goroutine and serves the
// last result. Measurements never touches the sensor, so the main loop does
// not wait on bus timing.
type PolledEnvironment struct {
	sensor    Environment
	onReading func(temperature int16, humidity uint16)

	mu          sync.Mutex
	temperature int16
	humidity    uint16
	err         error
}

// NewPolledEnvironment wraps sensor. onReading, if not nil, is called after
// every good read.
func NewPolledEnvironment(sensor Environment, onReading func(temperature int16, humidity uint16)) *PolledEnvironment {
	return &PolledEnvironment{
		sensor:    sensor,
		onReading: onReading,
		err:       ErrNoReading,
	}
}

// Poll reads the sensor once and caches the result. A failed read keeps the
// previous values but reports the failure until the next good read.
func (p *PolledEnvironment) Poll() error {
	t, h, err := p.sensor.Measurements()

	p.mu.Lock()
	if err == nil {
		p.temperature, p.humidity = t, h
	}
	p.err = err
	p.mu.Unlock()

	if err == nil && p.onReading != nil {
		p.onReading(t, h)
	}
	return err
}

// Run polls immediately and then every interval until ctx is cancelled.
func (p *PolledEnvironment) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultEnvironmentInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p.Poll()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Measurements returns the cached reading.
func (p *PolledEnvironment) Measurements() (int16, uint16, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return 0, 0, p.err
	}
	return p.temperature, p.humidity, nil
}
