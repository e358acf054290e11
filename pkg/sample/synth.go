package sample

import (
	"math/rand/v2"
)

const adcMax = 4095

// SynthConfig describes a simulated field mill front end.
type SynthConfig struct {
	SampleRate  float64 // ADC conversions per second
	ChopperFreq float64 // Shutter open/close cycles per second
	PotentialKV float64 // Surface potential under the sensor (kV)
	KVPerCount  float64 // Instrument scale
	Noise       float64 // Gaussian noise sigma in ADC counts
	Baseline    int32   // ADC count at zero field
	Seed        uint64
}

// Synth generates a chopped field signal: while the shutter is open the
// sensor sees +amplitude around the baseline, while closed it sees the
// mirrored charge. The output is deterministic for a given seed.
//
// Synth is not safe for concurrent use.
type Synth struct {
	cfg        SynthConfig
	amplitude  float64
	halfPeriod float64 // samples per shutter half-cycle
	phase      float64
	gate       bool
	chopping   bool
	rng        *rand.Rand
}

// NewSynth creates a generator with the shutter closed and spinning.
func NewSynth(cfg SynthConfig) *Synth {
	s := &Synth{
		cfg:      cfg,
		chopping: true,
		rng:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
	if cfg.ChopperFreq > 0 {
		s.halfPeriod = cfg.SampleRate / (2 * cfg.ChopperFreq)
	}
	s.SetPotential(cfg.PotentialKV)
	return s
}

// SetPotential changes the simulated surface potential.
func (s *Synth) SetPotential(kv float64) {
	s.cfg.PotentialKV = kv
	if s.cfg.KVPerCount != 0 {
		s.amplitude = kv / s.cfg.KVPerCount
	} else {
		s.amplitude = 0
	}
}

// Potential returns the simulated surface potential.
func (s *Synth) Potential() float64 {
	return s.cfg.PotentialKV
}

// SetChopping starts or stops the shutter. A stopped shutter freezes the gate
// level, so no half-cycles are counted.
func (s *Synth) SetChopping(on bool) {
	s.chopping = on
}

// Next returns the next conversion.
func (s *Synth) Next() Sample {
	if s.chopping && s.halfPeriod > 0 {
		s.phase++
		if s.phase >= s.halfPeriod {
			s.phase -= s.halfPeriod
			s.gate = !s.gate
		}
	}

	v := -s.amplitude
	if s.gate {
		v = s.amplitude
	}
	if s.cfg.Noise > 0 {
		v += s.rng.NormFloat64() * s.cfg.Noise
	}

	raw := int32(v) + s.cfg.Baseline
	switch {
	case raw < 0:
		raw = 0
	case raw > adcMax:
		raw = adcMax
	}
	return Sample{Raw: raw, Gate: s.gate}
}

// Fill overwrites dst with consecutive conversions and returns it.
func (s *Synth) Fill(dst []Sample) []Sample {
	for i := range dst {
		dst[i] = s.Next()
	}
	return dst
}
