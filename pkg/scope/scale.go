package scope

import (
	"time"

	"github.com/itohio/goefm/pkg/sample"
)

// scale maps chart values to the plot area.
type scale struct {
	yMin, yMax float64
	xMin, xMax time.Time
}

// autoScale fits kV and rate values with a 10% margin. The Y range always
// contains zero so the sign of the potential stays readable. The time axis
// spans at least window.
func autoScale(points []sample.Point, rates []float64, window time.Duration, now time.Time) scale {
	if len(points) == 0 {
		return scale{yMin: -1, yMax: 1, xMin: now, xMax: now.Add(window)}
	}

	sc := scale{}
	for _, p := range points {
		sc.yMin = min(sc.yMin, p.KV)
		sc.yMax = max(sc.yMax, p.KV)
	}
	for _, r := range rates {
		sc.yMin = min(sc.yMin, r)
		sc.yMax = max(sc.yMax, r)
	}

	span := sc.yMax - sc.yMin
	if span == 0 {
		span = 1
	}
	sc.yMin -= span * 0.1
	sc.yMax += span * 0.1

	sc.xMin = points[0].Timestamp
	sc.xMax = points[len(points)-1].Timestamp
	if sc.xMax.Sub(sc.xMin) < window {
		sc.xMax = sc.xMin.Add(window)
	}
	return sc
}

// x returns the horizontal fraction of t, 0 at xMin and 1 at xMax.
func (sc scale) x(t time.Time) float32 {
	span := sc.xMax.Sub(sc.xMin).Seconds()
	if span <= 0 {
		return 0
	}
	return float32(t.Sub(sc.xMin).Seconds() / span)
}

// y returns the vertical fraction of v, 0 at yMin and 1 at yMax.
func (sc scale) y(v float64) float32 {
	span := sc.yMax - sc.yMin
	if span <= 0 {
		return 0
	}
	return float32((v - sc.yMin) / span)
}
