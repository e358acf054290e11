package efm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/itohio/goefm/pkg/demod"
	"github.com/itohio/goefm/pkg/sample"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the USB CDC rate used by the firmware.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the readings channel buffer.
	DefaultBufferSize = 100
)

// envPrefix starts an environment telemetry line.
const envPrefix = "env,"

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial mirrors a field mill connected over USB serial. The firmware prints
//
//	<micros>,<magnitude>,<polarity>   on every new measurement
//	env,<temp x10>,<humidity x10>     on every environment read
//
// and accepts "M1\n" / "M0\n" to start and stop the shutter motor.
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	conn      io.ReadWriteCloser
	readings  chan sample.Reading
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool

	// Written only by the reader goroutine.
	latest demod.Slot

	envMu       sync.RWMutex
	temperature int16
	humidity    uint16
	envValid    bool
}

// New creates a new Serial instance with the specified port, baud rate, and buffer size.
// A Serial is connected at most once.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		readings: make(chan sample.Reading, bufSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Connect opens the serial port and starts reading telemetry.
func (d *Serial) Connect() error {
	mode := &serial.Mode{
		BaudRate: d.baudRate,
	}

	d.mu.RLock()
	connected := d.connected
	d.mu.RUnlock()
	if connected {
		return ErrAlreadyConnected
	}

	port, err := serial.Open(d.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	return d.attach(port)
}

// attach starts reading from an open connection.
func (d *Serial) attach(conn io.ReadWriteCloser) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		conn.Close()
		return ErrAlreadyConnected
	}

	d.conn = conn
	d.connected = true

	go d.readLines(conn)

	return nil
}

// Close closes the connection and stops reading.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			log.Printf("Error closing serial port: %v", err)
		}
		d.conn = nil
	}

	d.connected = false

	return nil
}

// Readings returns the channel of received measurements. It is closed once
// the reader stops after Close or end of stream.
func (d *Serial) Readings() <-chan sample.Reading {
	return d.readings
}

// SetMotor starts or stops the shutter motor on the instrument.
func (d *Serial) SetMotor(on bool) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return ErrNotConnected
	}

	if _, err := io.WriteString(d.conn, motorCommand(on)); err != nil {
		return fmt.Errorf("failed to send motor command: %w", err)
	}

	return nil
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Latest returns the last measurement received.
func (d *Serial) Latest() demod.Measurement {
	return d.latest.Latest()
}

// Measurements returns the last environment report.
func (d *Serial) Measurements() (int16, uint16, error) {
	d.envMu.RLock()
	defer d.envMu.RUnlock()
	if !d.envValid {
		return 0, 0, ErrNoEnvironment
	}
	return d.temperature, d.humidity, nil
}

// readLines parses telemetry until the stream ends or the device is closed.
// The device reports disconnected before the readings channel closes.
func (d *Serial) readLines(conn io.ReadWriteCloser) {
	defer close(d.readings)
	defer d.streamEnded(conn)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in readLines: %v", r)
		}
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, envPrefix) {
			t, h, err := parseEnvLine(line)
			if err != nil {
				log.Printf("Failed to parse line '%s': %v", line, err)
				continue
			}
			d.envMu.Lock()
			d.temperature, d.humidity, d.envValid = t, h, true
			d.envMu.Unlock()
			continue
		}

		ts, magnitude, polarity, err := parseLine(line)
		if err != nil {
			log.Printf("Failed to parse line '%s': %v", line, err)
			continue
		}

		reading := sample.Reading{
			Timestamp:   ts,
			Measurement: d.latest.Publish(magnitude, polarity),
		}

		select {
		case d.readings <- reading:
		case <-d.ctx.Done():
			return
		default:
			log.Printf("Readings channel full, dropping reading")
		}
	}

	if err := scanner.Err(); err != nil && d.ctx.Err() == nil {
		log.Printf("Error reading from serial port: %v", err)
	}
}

// parseLine parses a measurement line.
// Format: micros,magnitude,polarity
// Example: 1234567890,-412,-1
func parseLine(line string) (time.Time, int32, int8, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return time.Time{}, 0, 0, fmt.Errorf("invalid line format: expected 3 comma-separated values, got %d", len(parts))
	}

	micros, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, 0, 0, fmt.Errorf("invalid timestamp: %w", err)
	}

	magnitude, err := strconv.ParseInt(parts[1], 10, 32)
	if err != nil {
		return time.Time{}, 0, 0, fmt.Errorf("invalid magnitude: %w", err)
	}

	polarity, err := strconv.ParseInt(parts[2], 10, 8)
	if err != nil {
		return time.Time{}, 0, 0, fmt.Errorf("invalid polarity: %w", err)
	}
	if polarity != 1 && polarity != -1 {
		return time.Time{}, 0, 0, fmt.Errorf("polarity out of range: %d", polarity)
	}

	return time.UnixMicro(micros), int32(magnitude), int8(polarity), nil
}

// parseEnvLine parses an environment line.
// Format: env,temperature_x10,humidity_x10
// Example: env,225,450
func parseEnvLine(line string) (int16, uint16, error) {
	parts := strings.Split(strings.TrimPrefix(line, envPrefix), ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid environment line: expected 2 values, got %d", len(parts))
	}

	t, err := strconv.ParseInt(parts[0], 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid temperature: %w", err)
	}
	h, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid humidity: %w", err)
	}
	if h > 1000 {
		return 0, 0, fmt.Errorf("humidity out of range: %d (max 1000)", h)
	}

	return int16(t), uint16(h), nil
}

// motorCommand returns the wire command for the shutter motor.
func motorCommand(on bool) string {
	if on {
		return "M1\n"
	}
	return "M0\n"
}

// streamEnded releases a connection whose stream ended without Close, for
// example an unplugged instrument.
func (d *Serial) streamEnded(conn io.ReadWriteCloser) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected || d.conn != conn {
		return
	}

	log.Printf("Serial port %s: stream ended", d.port)
	d.cancel()
	if err := conn.Close(); err != nil {
		log.Printf("Error closing serial port: %v", err)
	}
	d.conn = nil
	d.connected = false
}
