//go:build rp2040

package main

import (
	"machine"

	"github.com/sparques/pwm"
	"tinygo.org/x/drivers/hd44780"
)

// lcdBus feeds the multiplexer's one-character-per-tick writes to the
// HD44780.
type lcdBus struct {
	dev hd44780.Device
	buf [1]byte
}

func newLCDBus() (*lcdBus, error) {
	dev, err := hd44780.NewGPIO4Bit(
		[]machine.Pin{PIN_LCD_D4, PIN_LCD_D5, PIN_LCD_D6, PIN_LCD_D7},
		PIN_LCD_E, PIN_LCD_RS, machine.NoPin,
	)
	if err != nil {
		return nil, err
	}
	if err := dev.Configure(hd44780.Config{Width: LCD_WIDTH, Height: LCD_HEIGHT}); err != nil {
		return nil, err
	}
	return &lcdBus{dev: dev}, nil
}

func (b *lcdBus) SetCursor(col, row uint8) {
	b.dev.SetCursor(col, row)
}

func (b *lcdBus) WriteData(c byte) {
	b.buf[0] = c
	b.dev.Write(b.buf[:])
	b.dev.Display()
}

// motorDrive runs the shutter motor. The driver input is active low, so the
// PWM output is inverted.
type motorDrive struct {
	group pwm.Group
	ch    uint8
	top   uint32
}

func newMotorDrive(pin machine.Pin) *motorDrive {
	pin.Configure(machine.PinConfig{Mode: machine.PinPWM})
	group := pwm.Get(pin)
	group.Configure(machine.PWMConfig{Period: uint64(1e9) / MOTOR_PWM_FREQ})
	ch, _ := group.Channel(pin)
	m := &motorDrive{group: group, ch: ch, top: group.Top()}
	m.SetMotor(false)
	return m
}

func (m *motorDrive) SetMotor(on bool) error {
	var level uint32
	if on {
		level = MOTOR_RUN_LEVEL
	}
	m.group.Set(m.ch, m.top-level*m.top/MOTOR_PWM_WRAP)
	return nil
}

// buzzer is a piezo driven with a square wave.
type buzzer struct {
	group pwm.Group
	ch    uint8
	duty  uint32
}

func newBuzzer(pin machine.Pin) *buzzer {
	pin.Configure(machine.PinConfig{Mode: machine.PinPWM})
	group := pwm.Get(pin)
	group.Configure(machine.PWMConfig{Period: uint64(1e9) / BUZZER_FREQ_HZ})
	ch, _ := group.Channel(pin)
	group.Set(ch, 0)
	return &buzzer{group: group, ch: ch, duty: group.Top() / 2}
}

func (b *buzzer) SetTone(on bool) {
	if on {
		b.group.Set(b.ch, b.duty)
	} else {
		b.group.Set(b.ch, 0)
	}
}
