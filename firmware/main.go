//go:build rp2040

//go:generate tinygo flash -target=pico

package main

import (
	"context"
	"machine"
	"runtime"
	"time"

	"tinygo.org/x/drivers/dht"

	"github.com/itohio/goefm/pkg/beep"
	"github.com/itohio/goefm/pkg/button"
	"github.com/itohio/goefm/pkg/demod"
	"github.com/itohio/goefm/pkg/dispatch"
	"github.com/itohio/goefm/pkg/lcd"
	"github.com/itohio/goefm/pkg/meter"
)

var (
	demodulator *demod.Demodulator
	mtr         *meter.Meter

	// Last measurement sent over telemetry
	lastSeq uint32

	// Last overrun count reported
	lastOverruns uint32

	// Serial buffer for reading command lines
	serialBuffer [8]byte
	serialPos    int
)

func main() {
	configurePins()

	machine.InitADC()
	adc := machine.ADC{Pin: PIN_ADC}
	adc.Configure(machine.ADCConfig{Resolution: ADC_RESOLUTION})

	demodulator = demod.New(demod.Config{
		BaselineOffset: ADC_MID_VALUE,
		CycleThreshold: SHUTTER_CYCLE_THRESHOLD,
	}, demod.IndicatorFunc(setPolarityLED))

	var display lcd.Bus = lcd.NewScreen(LCD_WIDTH, LCD_HEIGHT)
	if bus, err := newLCDBus(); err != nil {
		println("lcd:", err.Error())
	} else {
		display = bus
	}
	mux := lcd.New(display, LCD_WIDTH, LCD_HEIGHT)
	buttons := button.New(button.DefaultConfig())
	dispatcher := dispatch.New(mux, buttons, dispatch.ButtonFunc(readSwitches))

	player := beep.New(newBuzzer(PIN_BUZZER), beep.DefaultSlot)
	go player.Run(context.Background())

	// The DHT11 driver sleeps through its start pulse; poll it off the
	// main loop and let the meter read the cached values.
	env := meter.NewPolledEnvironment(dht.New(PIN_DHT11, dht.DHT11), reportEnvironment)
	go env.Run(context.Background(), ENV_INTERVAL)

	mtr = meter.New(meter.Config{
		KVPerCount:          POTENTIAL_CONVERSION_FACTOR,
		EnvironmentInterval: ENV_INTERVAL,
	}, demodulator, mux, buttons, meter.Peripherals{
		Motor:       newMotorDrive(PIN_MOTOR),
		Beeper:      player,
		Environment: env,
	})

	startSampler()

	now := time.Now()
	mtr.Start(now)

	// The dispatcher runs during the banner; the main loop steps start
	// after it.
	nextTick := now
	nextStep := now.Add(STARTUP_DELAY)

	for {
		now = time.Now()

		if due(now, &nextTick, TICK_PERIOD, TICK_PERIOD) {
			dispatcher.Tick()
		}

		if due(now, &nextStep, STEP_PERIOD, STEP_PERIOD) {
			if err := mtr.Step(now); err != nil {
				println("meter:", err.Error())
			}
		}

		reportMeasurement()
		reportOverruns()
		processSerial()

		// Let the beep player and the sensor poller run.
		runtime.Gosched()
	}
}

func configurePins() {
	PIN_LED_RED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_LED_BLUE.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_LED_RED.Low()
	PIN_LED_BLUE.Low()

	for _, pin := range PIN_SWITCHES {
		pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	}
	PIN_SHUTTER.Configure(machine.PinConfig{Mode: machine.PinInput})
	PIN_ADC.Configure(machine.PinConfig{Mode: machine.PinAnalog})
}

// due reports whether the deadline in next has passed and advances it by
// period. A deadline more than lag behind is moved to now instead of
// catching up.
func due(now time.Time, next *time.Time, period, lag time.Duration) bool {
	if now.Before(*next) {
		return false
	}
	*next = next.Add(period)
	if now.Sub(*next) > lag {
		*next = now.Add(period)
	}
	return true
}

// readSwitches returns the raw switch levels, bit i set when switch i is high.
func readSwitches() button.Mask {
	var m button.Mask
	for i, pin := range PIN_SWITCHES {
		if pin.Get() {
			m |= button.Bit(i)
		}
	}
	return m
}

func setPolarityLED(polarity int8) {
	if polarity > 0 {
		PIN_LED_RED.High()
		PIN_LED_BLUE.Low()
	} else {
		PIN_LED_RED.Low()
		PIN_LED_BLUE.High()
	}
}

// reportMeasurement prints each new measurement once.
// Output format: "micros,magnitude,polarity\n"
// Example: "1234567,412,-1\n"
func reportMeasurement() {
	m := demodulator.Latest()
	if !m.Valid() || m.Seq == lastSeq {
		return
	}
	lastSeq = m.Seq

	print(time.Now().UnixMicro())
	print(",")
	print(m.Magnitude)
	print(",")
	print(m.Polarity)
	print("\n")
}

// reportOverruns prints the running count of dropped conversions when it
// grows.
func reportOverruns() {
	n := adcOverruns.Load()
	if n == lastOverruns {
		return
	}
	lastOverruns = n
	println("adc: overrun", n)
}

// reportEnvironment prints a sensor reading.
// Output format: "env,temperature_x10,humidity_x10\n"
func reportEnvironment(temperature int16, humidity uint16) {
	print("env,")
	print(temperature)
	print(",")
	print(humidity)
	print("\n")
}

// processSerial handles "M1" (start motor) and "M0" (stop motor) commands.
func processSerial() {
	for machine.Serial.Buffered() > 0 {
		data, err := machine.Serial.ReadByte()
		if err != nil {
			break
		}

		if data == '\n' || data == '\r' {
			if serialPos == 2 && serialBuffer[0] == 'M' {
				switch serialBuffer[1] {
				case '1':
					mtr.RequestMotor(true)
				case '0':
					mtr.RequestMotor(false)
				}
			}
			serialPos = 0
			continue
		}

		if data == ' ' || data == '\t' {
			continue
		}

		if serialPos < len(serialBuffer) {
			serialBuffer[serialPos] = data
			serialPos++
		}
	}
}
