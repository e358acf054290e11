package sample

import (
	"log"
	"time"

	"github.com/chewxy/math32"
	"github.com/itohio/goefm/pkg/demod"
)

// Sample is one ADC conversion together with the shutter gate level at the
// moment of conversion.
type Sample struct {
	Raw  int32 // 12-bit ADC count
	Gate bool  // Shutter open
}

// Reading is a published measurement with the time it was observed.
type Reading struct {
	Timestamp   time.Time
	Measurement demod.Measurement
}

// Point is a measurement converted to surface potential.
type Point struct {
	Timestamp time.Time
	KV        float64 // Signed surface potential (kV)
}

// Converter is a function type that converts a Reading channel to a Point channel.
type Converter func(in <-chan Reading) <-chan Point

// KV converts a measurement to signed surface potential. The magnitude is
// taken as absolute and the detected polarity is applied. Measurements that
// were never published convert to zero.
func KV(m demod.Measurement, kvPerCount float32) float32 {
	if !m.Valid() {
		return 0
	}
	kv := math32.Abs(float32(m.Magnitude)) * kvPerCount
	if m.Polarity < 0 {
		return -kv
	}
	return kv
}

// NewConverter creates a converter function that transforms Reading to Point.
func NewConverter(kvPerCount float64, bufSize int) Converter {
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan Reading) <-chan Point {
		out := make(chan Point, bufSize)

		go func() {
			defer close(out)

			for r := range in {
				if !r.Measurement.Valid() {
					continue
				}

				p := Point{
					Timestamp: r.Timestamp,
					KV:        float64(KV(r.Measurement, float32(kvPerCount))),
				}

				select {
				case out <- p:
				case <-time.After(time.Second):
					log.Printf("Converter output channel full, dropping point")
				}
			}
		}()

		return out
	}
}
