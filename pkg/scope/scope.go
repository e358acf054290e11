package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/goefm/pkg/sample"
)

// DefaultMaxPoints limits the points drawn per curve.
const DefaultMaxPoints = 600

// ScopeWidget is a custom Fyne widget that charts the surface potential trend
// and its rate of change.
type ScopeWidget struct {
	widget.BaseWidget

	window time.Duration

	// Data (protected by mu)
	mu     sync.RWMutex
	points []sample.Point
	rates  []float64

	// Display buffers (reused for downsampling)
	displayPoints []sample.Point
	displayRates  []float64

	scale scale

	maxDisplayPoints int
}

// New creates a scope showing at least window of time.
func New(window time.Duration, maxPoints int) *ScopeWidget {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	s := &ScopeWidget{
		window:           window,
		displayPoints:    make([]sample.Point, 0, maxPoints),
		displayRates:     make([]float64, 0, maxPoints),
		maxDisplayPoints: maxPoints,
	}
	s.scale = autoScale(nil, nil, window, time.Now())
	s.ExtendBaseWidget(s)
	s.Refresh()
	return s
}

// UpdateData replaces the charted trend. Call it from the trend callback via
// fyne.Do.
func (s *ScopeWidget) UpdateData(points []sample.Point, rates []float64) {
	s.mu.Lock()

	s.displayPoints = sample.DownsamplePoints(s.displayPoints, points, s.maxDisplayPoints)
	s.displayRates = downsampleRates(s.displayRates, rates, s.maxDisplayPoints)

	s.points = points
	s.rates = rates
	s.scale = autoScale(s.displayPoints, s.displayRates, s.window, time.Now())

	s.mu.Unlock()

	// Outside the lock: the renderer takes it.
	s.Refresh()
}

// Latest returns the newest point and rate, if any.
func (s *ScopeWidget) Latest() (sample.Point, float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.points) == 0 {
		return sample.Point{}, 0, false
	}
	var rate float64
	if len(s.rates) > 0 {
		rate = s.rates[len(s.rates)-1]
	}
	return s.points[len(s.points)-1], rate, true
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &scopeRenderer{
		scope:   s,
		grid:    grid,
		objects: []fyne.CanvasObject{grid},
	}
}

// downsampleRates decimates rates the same way DownsamplePoints decimates
// points.
func downsampleRates(dst []float64, rates []float64, maxPoints int) []float64 {
	if len(rates) <= maxPoints {
		return append(dst[:0], rates...)
	}
	dst = dst[:0]
	step := float64(len(rates)) / float64(maxPoints)
	for i := range maxPoints {
		dst = append(dst, rates[int(float64(i)*step)])
	}
	return dst
}
