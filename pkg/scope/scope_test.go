package scope

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/itohio/goefm/pkg/sample"
)

func TestAutoScale(t *testing.T) {
	base := time.Unix(1000, 0)
	pts := func(kvs ...float64) []sample.Point {
		out := make([]sample.Point, len(kvs))
		for i, kv := range kvs {
			out[i] = sample.Point{Timestamp: base.Add(time.Duration(i) * time.Second), KV: kv}
		}
		return out
	}

	tests := []struct {
		name       string
		points     []sample.Point
		rates      []float64
		yMin, yMax float64
		xSpan      time.Duration
	}{
		{name: "empty", yMin: -1, yMax: 1, xSpan: 10 * time.Second},
		{name: "positive includes zero", points: pts(1, 2), yMin: -0.2, yMax: 2.2, xSpan: 10 * time.Second},
		{name: "negative includes zero", points: pts(-4, -2), yMin: -4.4, yMax: 0.4, xSpan: 10 * time.Second},
		{name: "rates widen", points: pts(1, 1), rates: []float64{-1}, yMin: -1.2, yMax: 1.2, xSpan: 10 * time.Second},
		{name: "flat zero", points: pts(0, 0), yMin: -0.1, yMax: 0.1, xSpan: 10 * time.Second},
		{name: "long trend", points: pts(make([]float64, 21)...), yMin: -0.1, yMax: 0.1, xSpan: 20 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := autoScale(tt.points, tt.rates, 10*time.Second, base)
			assert.InDelta(t, tt.yMin, sc.yMin, 1e-9)
			assert.InDelta(t, tt.yMax, sc.yMax, 1e-9)
			assert.Equal(t, tt.xSpan, sc.xMax.Sub(sc.xMin))
		})
	}
}

func TestScale_Fractions(t *testing.T) {
	base := time.Unix(0, 0)
	sc := scale{yMin: -2, yMax: 2, xMin: base, xMax: base.Add(10 * time.Second)}

	assert.InDelta(t, 0.5, sc.y(0), 1e-6)
	assert.InDelta(t, 1.0, sc.y(2), 1e-6)
	assert.InDelta(t, 0.0, sc.x(base), 1e-6)
	assert.InDelta(t, 0.25, sc.x(base.Add(2500*time.Millisecond)), 1e-6)

	assert.Zero(t, scale{}.x(base))
	assert.Zero(t, scale{}.y(1))
}

func TestDownsampleRates(t *testing.T) {
	rates := []float64{0, 1, 2, 3, 4, 5, 6, 7}

	assert.Equal(t, rates, downsampleRates(nil, rates, 10))
	assert.Equal(t, []float64{0, 2, 4, 6}, downsampleRates(nil, rates, 4))

	buf := make([]float64, 0, 8)
	out := downsampleRates(buf, rates, 4)
	assert.Len(t, out, 4)
	assert.Equal(t, cap(buf), cap(out))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "0.00kV", formatKV(0.001))
	assert.Equal(t, "-1.50kV", formatKV(-1.5))
	assert.Equal(t, "0.50s", formatTime(500*time.Millisecond))
	assert.Equal(t, "2.5s", formatTime(2500*time.Millisecond))
}
