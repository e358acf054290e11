package demod

import (
	"sync/atomic"
)

// Measurement is a resolved publish cycle.
type Measurement struct {
	Magnitude int32  // Synchronous average in ADC counts
	Polarity  int8   // +1 or -1; 0 before the first publish
	Seq       uint32 // Publish counter, wraps at 24 bits; 0 means nothing published yet
}

// Source gives read access to the latest published measurement.
type Source interface {
	Latest() Measurement
}

// Valid reports whether m came from an actual publish.
func (m Measurement) Valid() bool {
	return m.Seq != 0
}

// Signed returns |Magnitude| carrying the detected polarity.
func (m Measurement) Signed() int32 {
	mag := m.Magnitude
	if mag < 0 {
		mag = -mag
	}
	if m.Polarity < 0 {
		return -mag
	}
	return mag
}

const seqMask = 1<<24 - 1

// Layout: bits 0-31 magnitude, 32-39 polarity, 40-63 sequence.
func pack(m Measurement) uint64 {
	return uint64(uint32(m.Magnitude)) |
		uint64(uint8(m.Polarity))<<32 |
		uint64(m.Seq&seqMask)<<40
}

func unpack(v uint64) Measurement {
	return Measurement{
		Magnitude: int32(uint32(v)),
		Polarity:  int8(uint8(v >> 32)),
		Seq:       uint32(v>>40) & seqMask,
	}
}

// Slot is a single-writer measurement publication point. Publish and Reset
// belong to one context; Latest may be called from any goroutine and never
// observes a magnitude and polarity from different publishes.
type Slot struct {
	v   atomic.Uint64
	seq uint32
}

var _ Source = (*Slot)(nil)

// Publish stores a new measurement with the next sequence number and returns it.
func (s *Slot) Publish(magnitude int32, polarity int8) Measurement {
	s.seq = (s.seq + 1) & seqMask
	if s.seq == 0 {
		s.seq = 1
	}
	m := Measurement{Magnitude: magnitude, Polarity: polarity, Seq: s.seq}
	s.v.Store(pack(m))
	return m
}

// Latest returns the last published measurement, or the zero value.
func (s *Slot) Latest() Measurement {
	return unpack(s.v.Load())
}

// Reset forgets the published value.
func (s *Slot) Reset() {
	s.seq = 0
	s.v.Store(0)
}
