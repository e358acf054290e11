//go:build rp2040

package main

import (
	"device/rp"
	"runtime/interrupt"
	"sync/atomic"
)

// Conversions dropped because the FIFO filled before the handler ran.
var adcOverruns atomic.Uint32

// startSampler puts ADC0 in free-running mode and feeds every conversion to
// the demodulator from the FIFO interrupt. The main loop never samples.
func startSampler() {
	rp.ADC.CS.Set(rp.ADC_CS_EN | ADC_INPUT<<rp.ADC_CS_AINSEL_Pos)
	rp.ADC.DIV.Set(ADC_CLOCK_DIV << rp.ADC_DIV_INT_Pos)

	// One entry per interrupt, full 12-bit results.
	rp.ADC.FCS.Set(rp.ADC_FCS_EN | 1<<rp.ADC_FCS_THRESH_Pos)
	rp.ADC.INTE.Set(rp.ADC_INTE_FIFO)

	intr := interrupt.New(rp.IRQ_ADC_IRQ_FIFO, onConversion)
	intr.SetPriority(0)
	intr.Enable()

	rp.ADC.CS.SetBits(rp.ADC_CS_START_MANY)
}

func onConversion(interrupt.Interrupt) {
	if rp.ADC.FCS.HasBits(rp.ADC_FCS_OVER) {
		rp.ADC.FCS.SetBits(rp.ADC_FCS_OVER) // write 1 to clear
		adcOverruns.Add(1)
	}
	for !rp.ADC.FCS.HasBits(rp.ADC_FCS_EMPTY) {
		v := rp.ADC.FIFO.Get() & rp.ADC_FIFO_VAL_Msk
		demodulator.OnSample(int32(v), PIN_SHUTTER.Get())
	}
}
