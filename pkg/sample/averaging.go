package sample

import (
	"log"
	"time"
)

// AveragingInterval is the output rate of the averaging converter.
const AveragingInterval = 100 * time.Millisecond

// NewAveragingConverter creates a converter that smooths Points with a moving
// average over the last windowSize inputs and emits it every AveragingInterval.
func NewAveragingConverter(windowSize int, bufSize int) func(in <-chan Point) <-chan Point {
	if windowSize <= 0 {
		windowSize = 1
	}
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan Point) <-chan Point {
		out := make(chan Point, bufSize)

		go func() {
			defer close(out)

			var buffer []Point
			ticker := time.NewTicker(AveragingInterval)
			defer ticker.Stop()

			for {
				select {
				case p, ok := <-in:
					if !ok {
						// Input closed, flush what is left.
						if len(buffer) > 0 {
							select {
							case out <- averagePoints(buffer):
							default:
							}
						}
						return
					}

					buffer = append(buffer, p)
					if len(buffer) > windowSize {
						buffer = buffer[1:]
					}

				case <-ticker.C:
					if len(buffer) > 0 {
						select {
						case out <- averagePoints(buffer):
						default:
							log.Printf("Averaging converter output channel full")
						}
					}
				}
			}
		}()

		return out
	}
}

// averagePoints averages a slice of Points, keeping the newest timestamp.
func averagePoints(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}

	var sum float64
	for _, p := range points {
		sum += p.KV
	}

	return Point{
		Timestamp: points[len(points)-1].Timestamp,
		KV:        sum / float64(len(points)),
	}
}
