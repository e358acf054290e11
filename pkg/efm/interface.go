package efm

import (
	"errors"

	"github.com/itohio/goefm/pkg/demod"
	"github.com/itohio/goefm/pkg/sample"
)

var (
	// ErrNotConnected is returned by commands sent to a closed device.
	ErrNotConnected = errors.New("not connected")
	// ErrAlreadyConnected is returned by Connect on an open device.
	ErrAlreadyConnected = errors.New("already connected")
	// ErrNoEnvironment is returned until the first environment report arrives.
	ErrNoEnvironment = errors.New("no environment data")
)

// Device defines the interface for field mill instruments (real or simulated).
type Device interface {
	Connect() error
	Close() error
	Readings() <-chan sample.Reading
	SetMotor(on bool) error
	IsConnected() bool

	// Latest returns the most recent measurement.
	Latest() demod.Measurement
	// Measurements returns the last temperature (0.1 °C) and humidity (0.1 %RH).
	Measurements() (temperature int16, humidity uint16, err error)
}

var _ Device = (*Serial)(nil)

var _ Device = (*Mock)(nil)
