//go:build rp2040

package main

import (
	"machine"
	"time"
)

const (
	// Sampling configuration
	ADC_CLOCK_HZ            = 48000000 // ADC clock from PLL_USB
	ADC_SAMPLE_HZ           = 25000    // Free-running conversion rate
	ADC_CLOCK_DIV           = ADC_CLOCK_HZ/ADC_SAMPLE_HZ - 1
	ADC_INPUT               = 0    // AINSEL for ADC0
	ADC_MID_VALUE           = 2048 // ADC count at zero field (12-bit midscale)
	ADC_RESOLUTION          = 12
	SHUTTER_CYCLE_THRESHOLD = 10 // Gate transitions per measurement

	// Instrument scale
	POTENTIAL_CONVERSION_FACTOR = 0.01028 // kV per ADC count

	// Timing
	TICK_PERIOD     = time.Millisecond      // Display/switch dispatcher tick
	STEP_PERIOD     = 20 * time.Millisecond // Main loop step
	ENV_INTERVAL    = 2 * time.Second       // DHT11 poll and dot blink
	STARTUP_DELAY   = time.Second           // Banner time
	LCD_WIDTH       = 16
	LCD_HEIGHT      = 2
	BUZZER_FREQ_HZ  = 3900
	MOTOR_PWM_FREQ  = 20000
	MOTOR_PWM_WRAP  = 125000000/MOTOR_PWM_FREQ - 1 // Counter top at 125 MHz
	MOTOR_RUN_LEVEL = 650                          // Shutter drive level out of MOTOR_PWM_WRAP
)

// Telemetry goes to the USB serial port; GP0 and GP1 carry LCD data.

var (
	// HD44780 in 4-bit mode
	PIN_LCD_D4 = machine.GP0
	PIN_LCD_D5 = machine.GP1
	PIN_LCD_D6 = machine.GP2
	PIN_LCD_D7 = machine.GP3
	PIN_LCD_E  = machine.GP4
	PIN_LCD_RS = machine.GP5

	// Front panel switches, bit 0 (key switch) first. Active low.
	PIN_SWITCHES = [5]machine.Pin{machine.GP14, machine.GP13, machine.GP12, machine.GP11, machine.GP10}

	PIN_LED_RED  = machine.GP17 // positive polarity
	PIN_LED_BLUE = machine.GP18 // negative polarity
	PIN_DHT11    = machine.GP19
	PIN_SHUTTER  = machine.GP20 // High while the shutter is open
	PIN_BUZZER   = machine.GP21
	PIN_MOTOR    = machine.GP22
	PIN_ADC      = machine.ADC0 // GP26
)
