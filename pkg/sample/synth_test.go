package sample

import (
	"testing"

	"github.com/itohio/goefm/pkg/demod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSynth(potential, noise float64) *Synth {
	return NewSynth(SynthConfig{
		SampleRate:  25000,
		ChopperFreq: 100,
		PotentialKV: potential,
		KVPerCount:  0.25,
		Noise:       noise,
		Baseline:    demod.DefaultBaselineOffset,
		Seed:        1,
	})
}

func run(s *Synth, d *demod.Demodulator, n int) {
	for i := 0; i < n; i++ {
		smp := s.Next()
		d.OnSample(smp.Raw, smp.Gate)
	}
}

func TestSynth_GateHalfPeriod(t *testing.T) {
	s := testSynth(0, 0)

	// 25 kHz / (2 * 100 Hz) = 125 samples per half-cycle.
	var toggles []int
	prev := false
	for i := 1; i <= 500; i++ {
		g := s.Next().Gate
		if g != prev {
			toggles = append(toggles, i)
			prev = g
		}
	}
	assert.Equal(t, []int{125, 250, 375, 500}, toggles)
}

func TestSynth_Demodulates(t *testing.T) {
	tests := []struct {
		name      string
		potential float64
		magnitude int32
		polarity  int8
	}{
		{"positive", 25, 100, 1},
		{"negative", -25, -100, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSynth(tt.potential, 0)
			d := demod.New(demod.Config{BaselineOffset: demod.DefaultBaselineOffset}, nil)

			// Ten half-cycles complete at sample 1250.
			run(s, d, 1249)
			assert.False(t, d.Latest().Valid())
			run(s, d, 1)

			m := d.Latest()
			require.True(t, m.Valid())
			assert.Equal(t, tt.magnitude, m.Magnitude)
			assert.Equal(t, tt.polarity, m.Polarity)
			assert.InDelta(t, tt.potential, KV(m, 0.25), 1e-4)
		})
	}
}

func TestSynth_NoiseIsDeterministic(t *testing.T) {
	a := testSynth(10, 20)
	b := testSynth(10, 20)
	assert.Equal(t, a.Fill(make([]Sample, 256)), b.Fill(make([]Sample, 256)))
}

func TestSynth_NoisyDemodulation(t *testing.T) {
	s := testSynth(25, 20)
	d := demod.New(demod.Config{BaselineOffset: demod.DefaultBaselineOffset}, nil)

	run(s, d, 1250)
	m := d.Latest()
	require.True(t, m.Valid())
	assert.InDelta(t, 100, m.Magnitude, 5)
	assert.Equal(t, int8(1), m.Polarity)
}

func TestSynth_Clamps(t *testing.T) {
	s := testSynth(10000, 0)
	for _, smp := range s.Fill(make([]Sample, 300)) {
		assert.GreaterOrEqual(t, smp.Raw, int32(0))
		assert.LessOrEqual(t, smp.Raw, int32(adcMax))
	}
}

func TestSynth_StoppedShutter(t *testing.T) {
	s := testSynth(25, 0)
	s.SetChopping(false)
	d := demod.New(demod.Config{BaselineOffset: demod.DefaultBaselineOffset}, nil)

	run(s, d, 5000)
	assert.False(t, d.Latest().Valid())

	s.SetChopping(true)
	run(s, d, 1250)
	assert.True(t, d.Latest().Valid())
}

func TestSynth_SetPotential(t *testing.T) {
	s := testSynth(25, 0)
	s.SetPotential(-5)
	assert.Equal(t, -5.0, s.Potential())
	assert.Equal(t, Sample{Raw: demod.DefaultBaselineOffset + 20, Gate: false}, s.Next())
}
