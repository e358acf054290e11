package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Demodulator DemodulatorConfig `yaml:"demodulator"`
	Display     DisplayConfig     `yaml:"display"`
	Buttons     ButtonsConfig     `yaml:"buttons"`
	Dispatcher  DispatcherConfig  `yaml:"dispatcher"`
	Environment EnvironmentConfig `yaml:"environment"`
	Trend       TrendConfig       `yaml:"trend"`
	Mock        MockConfig        `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// DemodulatorConfig contains synchronous detection parameters.
type DemodulatorConfig struct {
	BaselineOffset int32   `yaml:"baseline_offset"` // ADC count at zero field
	CycleThreshold uint32  `yaml:"cycle_threshold"` // Gate transitions per measurement
	KVPerCount     float64 `yaml:"kv_per_count"`    // Surface potential per ADC count
}

// DisplayConfig contains character display geometry.
type DisplayConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// ButtonsConfig contains debounce timing (in ticks) and the optional GPIO
// lines for the front-panel keys.
type ButtonsConfig struct {
	ActiveLow    *bool  `yaml:"active_low"`
	OnThreshold  uint32 `yaml:"on_threshold"`
	RepeatDelay  uint32 `yaml:"repeat_delay"`
	RepeatPeriod uint32 `yaml:"repeat_period"`
	GPIOChip     string `yaml:"gpio_chip"`
	GPIOLines    []int  `yaml:"gpio_lines"` // Line offset per button, bit 0 first
}

// DispatcherConfig contains the tick period.
type DispatcherConfig struct {
	TickPeriod time.Duration `yaml:"tick_period"`
}

// EnvironmentConfig contains the temperature/humidity polling interval.
type EnvironmentConfig struct {
	UpdateInterval time.Duration `yaml:"update_interval"`
}

// TrendConfig contains host trend chart parameters.
type TrendConfig struct {
	Window         time.Duration `yaml:"window"`          // History kept on the chart
	AverageSamples int           `yaml:"average_samples"` // Moving average length (0 = disabled)
	MaxPoints      int           `yaml:"max_points"`      // Points drawn after decimation
}

// MockConfig contains simulated instrument configuration.
type MockConfig struct {
	SampleRate  float64       `yaml:"sample_rate"`  // ADC samples per second
	ChopperFreq float64       `yaml:"chopper_freq"` // Shutter frequency (Hz)
	PotentialKV float64       `yaml:"potential_kv"` // Simulated surface potential (kV)
	Noise       float64       `yaml:"noise"`        // Noise amplitude (ADC counts)
	Seed        uint64        `yaml:"seed"`
	Batch       time.Duration `yaml:"batch"` // Wall time covered by each generated batch
	Temperature float64       `yaml:"temperature"`
	Humidity    float64       `yaml:"humidity"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	activeLow := true
	return &Config{
		Serial: SerialConfig{
			Port:     "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			BaudRate: 115200,
		},
		Demodulator: DemodulatorConfig{
			BaselineOffset: 2048,
			CycleThreshold: 10,
			KVPerCount:     0.01028,
		},
		Display: DisplayConfig{
			Width:  16,
			Height: 2,
		},
		Buttons: ButtonsConfig{
			ActiveLow:    &activeLow,
			OnThreshold:  100,
			RepeatDelay:  300,
			RepeatPeriod: 300,
			GPIOChip:     "gpiochip0",
			GPIOLines:    []int{14, 13, 12, 11, 10},
		},
		Dispatcher: DispatcherConfig{
			TickPeriod: time.Millisecond,
		},
		Environment: EnvironmentConfig{
			UpdateInterval: 2 * time.Second,
		},
		Trend: TrendConfig{
			Window:         time.Minute,
			AverageSamples: 0,
			MaxPoints:      600,
		},
		Mock: MockConfig{
			SampleRate:  25000,
			ChopperFreq: 100,
			PotentialKV: 1.5,
			Noise:       20,
			Seed:        1,
			Batch:       20 * time.Millisecond,
			Temperature: 22.5,
			Humidity:    45,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ButtonsActiveLow reports whether raw key levels are inverted.
func (c *Config) ButtonsActiveLow() bool {
	return c.Buttons.ActiveLow == nil || *c.Buttons.ActiveLow
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	// Zero is a valid baseline.
	if c.Demodulator.CycleThreshold == 0 {
		c.Demodulator.CycleThreshold = def.Demodulator.CycleThreshold
	}
	if c.Demodulator.KVPerCount == 0 {
		c.Demodulator.KVPerCount = def.Demodulator.KVPerCount
	}

	if c.Display.Width <= 0 {
		c.Display.Width = def.Display.Width
	}
	if c.Display.Height <= 0 {
		c.Display.Height = def.Display.Height
	}

	if c.Buttons.ActiveLow == nil {
		c.Buttons.ActiveLow = def.Buttons.ActiveLow
	}
	if c.Buttons.OnThreshold == 0 {
		c.Buttons.OnThreshold = def.Buttons.OnThreshold
	}
	if c.Buttons.RepeatDelay == 0 {
		c.Buttons.RepeatDelay = def.Buttons.RepeatDelay
	}
	if c.Buttons.RepeatPeriod == 0 {
		c.Buttons.RepeatPeriod = def.Buttons.RepeatPeriod
	}
	if c.Buttons.GPIOChip == "" {
		c.Buttons.GPIOChip = def.Buttons.GPIOChip
	}
	if len(c.Buttons.GPIOLines) == 0 {
		c.Buttons.GPIOLines = def.Buttons.GPIOLines
	}

	if c.Dispatcher.TickPeriod <= 0 {
		c.Dispatcher.TickPeriod = def.Dispatcher.TickPeriod
	}
	if c.Environment.UpdateInterval <= 0 {
		c.Environment.UpdateInterval = def.Environment.UpdateInterval
	}

	if c.Trend.Window <= 0 {
		c.Trend.Window = def.Trend.Window
	}
	if c.Trend.MaxPoints <= 0 {
		c.Trend.MaxPoints = def.Trend.MaxPoints
	}

	if c.Mock.SampleRate <= 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
	if c.Mock.ChopperFreq <= 0 {
		c.Mock.ChopperFreq = def.Mock.ChopperFreq
	}
	if c.Mock.Batch <= 0 {
		c.Mock.Batch = def.Mock.Batch
	}
}
