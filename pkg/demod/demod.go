package demod

const (
	// DefaultBaselineOffset is the ADC mid-scale value for a 12-bit converter.
	DefaultBaselineOffset = 2048
	// DefaultCycleThreshold is the number of chopper half-cycles per publish.
	DefaultCycleThreshold = 10
)

var _ Source = (*Demodulator)(nil)

// Indicator is notified with the new polarity on every publish.
// It runs in the sampling context and must not block.
type Indicator interface {
	SetPolarity(polarity int8)
}

// IndicatorFunc adapts a plain function to Indicator.
type IndicatorFunc func(polarity int8)

// SetPolarity calls f(polarity).
func (f IndicatorFunc) SetPolarity(polarity int8) { f(polarity) }

// Config holds demodulator parameters.
type Config struct {
	BaselineOffset int32  // Raw ADC value that corresponds to zero field
	CycleThreshold uint32 // Gate transitions accumulated before resolving
}

// state is the accumulator set. Only OnSample touches it.
type state struct {
	gateCount   uint32
	sampleCount uint32
	signedAcc   int64
	positiveSum int64
	negativeSum int64
	prevGate    bool
}

// Demodulator is a synchronous detector for a chopped field signal.
//
// OnSample must be called from exactly one context (the ADC interrupt or a
// single sampling goroutine). Latest may be called from any goroutine.
type Demodulator struct {
	baseline  int32
	threshold uint32
	indicator Indicator

	st  state
	out Slot
}

// New creates a demodulator. Zero config fields fall back to defaults.
// indicator may be nil.
func New(cfg Config, indicator Indicator) *Demodulator {
	if cfg.CycleThreshold == 0 {
		cfg.CycleThreshold = DefaultCycleThreshold
	}
	return &Demodulator{
		baseline:  cfg.BaselineOffset,
		threshold: cfg.CycleThreshold,
		indicator: indicator,
	}
}

// OnSample accumulates one ADC conversion sampled together with the gate level.
// It performs no allocation and no blocking operation.
func (d *Demodulator) OnSample(raw int32, gate bool) {
	st := &d.st
	value := int64(raw) - int64(d.baseline)

	if gate {
		st.signedAcc += value
		st.positiveSum += value
	} else {
		st.signedAcc -= value
		st.negativeSum += value
	}
	st.sampleCount++

	if gate != st.prevGate {
		st.gateCount++
		st.prevGate = gate
	}

	if st.gateCount >= d.threshold {
		d.resolve()
	}
}

// resolve turns the accumulated sums into a published measurement and clears
// the accumulators. With no samples accumulated it leaves everything as is.
func (d *Demodulator) resolve() bool {
	st := &d.st
	if st.sampleCount == 0 {
		return false
	}

	// Go integer division truncates toward zero.
	magnitude := int32(st.signedAcc / int64(st.sampleCount))
	var polarity int8 = -1
	if st.positiveSum > st.negativeSum {
		polarity = 1
	}

	d.out.Publish(magnitude, polarity)

	st.signedAcc = 0
	st.positiveSum = 0
	st.negativeSum = 0
	st.sampleCount = 0
	st.gateCount = 0

	if d.indicator != nil {
		d.indicator.SetPolarity(polarity)
	}
	return true
}

// Latest returns the most recently published measurement. Before the first
// publish it returns the zero Measurement.
func (d *Demodulator) Latest() Measurement {
	return d.out.Latest()
}

// Reset drops accumulated sums and the published value. Must be called from
// the sampling context or while sampling is stopped.
func (d *Demodulator) Reset() {
	d.st = state{}
	d.out.Reset()
}
