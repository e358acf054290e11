package meter

import (
	"sync"
	"time"

	"github.com/itohio/goefm/pkg/sample"
)

var _ TrendRecorder = (*Trend)(nil)

// TrendRecorder keeps a time window of surface potential points.
type TrendRecorder interface {
	ProcessPoints(input <-chan sample.Point)
	Points() []sample.Point                                // Current window, oldest first
	Rates() []float64                                      // dKV/dt between consecutive points (kV/s)
	OnUpdate(func(points []sample.Point, rates []float64)) // Register callback for updates
}

// Trend is a FIFO of points ordered first to last and trimmed by timestamp.
//
// rates[i] is (points[i+1].KV - points[i].KV) / dt, so n points always carry
// n-1 rates. A falling rate after charging a surface is its decay speed.
type Trend struct {
	window time.Duration

	points []sample.Point
	rates  []float64
	mu     sync.RWMutex

	callbacks []func(points []sample.Point, rates []float64)
	cbMu      sync.RWMutex

	// Set when the input channel closes; suppresses further callbacks.
	shutdown bool
}

// NewTrend creates a trend holding the given time window.
func NewTrend(window time.Duration) *Trend {
	if window <= 0 {
		window = time.Minute
	}
	return &Trend{
		window: window,
		points: make([]sample.Point, 0),
		rates:  make([]float64, 0),
	}
}

// ProcessPoints consumes points until the input channel closes.
func (t *Trend) ProcessPoints(input <-chan sample.Point) {
	for p := range input {
		t.processPoint(p)
	}
	t.mu.Lock()
	t.shutdown = true
	t.mu.Unlock()
}

func (t *Trend) processPoint(p sample.Point) {
	t.mu.Lock()

	t.points = append(t.points, p)

	cutoff := p.Timestamp.Add(-t.window)
	cutoffIndex := 0
	for i, q := range t.points {
		if q.Timestamp.After(cutoff) {
			cutoffIndex = i
			break
		}
	}
	if cutoffIndex > 0 {
		t.points = t.points[cutoffIndex:]
		// Rates for removed pairs go too.
		if cutoffIndex <= len(t.rates) {
			t.rates = t.rates[cutoffIndex:]
		} else {
			t.rates = t.rates[:0]
		}
	}

	if n := len(t.points); n >= 2 {
		prev := t.points[n-2]
		curr := t.points[n-1]
		dt := curr.Timestamp.Sub(prev.Timestamp).Seconds()
		if dt > 0 {
			t.rates = append(t.rates, (curr.KV-prev.KV)/dt)
		} else {
			t.rates = append(t.rates, 0)
		}
		if len(t.rates) > n-1 {
			t.rates = t.rates[len(t.rates)-(n-1):]
		}
	}

	notify := !t.shutdown
	t.mu.Unlock()

	if notify {
		t.notifyCallbacks()
	}
}

// Points returns a copy of the current window.
func (t *Trend) Points() []sample.Point {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]sample.Point, len(t.points))
	copy(result, t.points)
	return result
}

// Rates returns a copy of the current rates.
func (t *Trend) Rates() []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]float64, len(t.rates))
	copy(result, t.rates)
	return result
}

// OnUpdate registers a callback invoked after every processed point.
// The callback receives copies and should return quickly.
func (t *Trend) OnUpdate(callback func(points []sample.Point, rates []float64)) {
	t.cbMu.Lock()
	defer t.cbMu.Unlock()
	t.callbacks = append(t.callbacks, callback)
}

// ResetShutdown allows callbacks again before starting a new input chain.
func (t *Trend) ResetShutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.shutdown = false
}

func (t *Trend) notifyCallbacks() {
	points := t.Points()
	rates := t.Rates()

	t.cbMu.RLock()
	callbacks := make([]func(points []sample.Point, rates []float64), len(t.callbacks))
	copy(callbacks, t.callbacks)
	t.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(points, rates)
		}
	}
}
