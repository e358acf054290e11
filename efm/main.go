package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/goefm/pkg/beep"
	"github.com/itohio/goefm/pkg/button"
	"github.com/itohio/goefm/pkg/config"
	"github.com/itohio/goefm/pkg/dispatch"
	"github.com/itohio/goefm/pkg/efm"
	"github.com/itohio/goefm/pkg/gpio"
	"github.com/itohio/goefm/pkg/lcd"
	"github.com/itohio/goefm/pkg/meter"
	"github.com/itohio/goefm/pkg/panel"
	"github.com/itohio/goefm/pkg/sample"
	"github.com/itohio/goefm/pkg/scope"
)

const (
	meterPeriod   = 50 * time.Millisecond
	panelPeriod   = 40 * time.Millisecond
	pipelineDepth = 500
)

func main() {
	var (
		portFlag           = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag         = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag           = flag.Bool("mock", false, "Use simulated instrument instead of serial port")
		gpioFlag           = flag.Bool("gpio", false, "Read front-panel keys from GPIO lines (Linux)")
		averageSamplesFlag = flag.Int("average-samples", -1, "Number of points to average (0 = disabled, overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *averageSamplesFlag >= 0 {
		cfg.Trend.AverageSamples = *averageSamplesFlag
	}

	application := app.NewWithID("com.itohio.goefm")

	window := application.NewWindow("Electrostatic Field Mill")
	window.Resize(fyne.NewSize(1000, 700))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		window:     window,
		useMock:    *mockFlag,
		screen:     lcd.NewScreen(cfg.Display.Width, cfg.Display.Height),
		keys:       panel.NewKeys(cfg.ButtonsActiveLow()),
		trend:      meter.NewTrend(cfg.Trend.Window),
	}
	state.input = state.keys

	if *gpioFlag {
		reader, err := gpio.NewRealReader(cfg.Buttons.GPIOChip, cfg.Buttons.GPIOLines)
		if err != nil {
			log.Fatalf("Failed to open GPIO keys: %v", err)
		}
		idle := button.Mask(0)
		if cfg.ButtonsActiveLow() {
			idle = button.AllMask
		}
		state.gpioKeys = gpio.NewKeys(reader, idle)
		defer state.gpioKeys.Close()
		state.input = dispatch.Combine(cfg.ButtonsActiveLow(), state.keys, state.gpioKeys)
	}

	state.panel = panel.New(state.screen, state.keys, panel.DefaultLabels)
	state.player = beep.New(state.panel, beep.DefaultSlot)
	state.scopeWidget = scope.New(cfg.Trend.Window, cfg.Trend.MaxPoints)

	uiCtx, uiCancel := context.WithCancel(context.Background())
	defer uiCancel()
	go state.panel.Run(uiCtx, panelPeriod)
	go state.player.Run(uiCtx)

	// Registered once; the trend outlives connections.
	throttle := newUpdateThrottle(16 * time.Millisecond)
	state.trend.OnUpdate(func(points []sample.Point, rates []float64) {
		if !throttle.Allow(time.Now()) {
			return
		}
		UpdateWidgetOnMainThread(func() {
			state.scopeWidget.UpdateData(points, rates)
		})
	})

	toolbar := createToolbar(state)
	state.statusLabel = widget.NewLabel(statusText(meter.Status{}, false))

	content := container.NewBorder(
		container.NewVBox(toolbar, state.panel.Object()),
		state.statusLabel,
		nil,
		nil,
		state.scopeWidget,
	)

	window.SetContent(content)
	window.SetOnClosed(func() {
		closeMeasurementChain(state.chain)
		state.chain = nil
	})
	window.ShowAndRun()
}

// measurementChain tracks the components of one connection for graceful
// shutdown.
type measurementChain struct {
	device efm.Device
	cancel context.CancelFunc
	wg     sync.WaitGroup // dispatcher and meter loops
	trend  chan struct{}  // Closed when the trend goroutine exits
}

// appState holds the application state.
type appState struct {
	cfg        *config.Config
	configPath string
	window     fyne.Window
	useMock    bool

	screen   *lcd.Screen
	keys     *panel.Keys
	gpioKeys *gpio.Keys
	input    dispatch.ButtonSource
	player   *beep.Player
	trend    *meter.Trend

	panel       *panel.Panel
	scopeWidget *scope.ScopeWidget
	statusLabel *widget.Label
	connectBtn  *widget.Button
	motorBtn    *widget.Button
	potential   *widget.Slider

	device efm.Device
	mock   *efm.Mock
	meter  *meter.Meter
	chain  *measurementChain
}

// createToolbar creates the toolbar with Connect, Settings, motor and, for
// the simulated instrument, a potential slider.
func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	motorBtn := widget.NewButtonWithIcon("Motor", theme.MediaPlayIcon(), func() {
		handleMotorToggle(state)
	})
	motorBtn.Disable()
	state.motorBtn = motorBtn

	right := container.NewHBox(motorBtn)
	if state.useMock {
		slider := widget.NewSlider(-10, 10)
		slider.Step = 0.1
		slider.SetValue(state.cfg.Mock.PotentialKV)
		slider.OnChanged = func(kv float64) {
			if state.mock != nil {
				state.mock.SetPotential(kv)
			}
		}
		state.potential = slider
		right = container.NewHBox(widget.NewLabel("kV"), container.NewGridWrap(fyne.NewSize(200, 36), slider), motorBtn)
	}

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(connectBtn, settingsBtn),
		right,
		nil,
	)
}

// closeMeasurementChain stops the loops, closes the device and waits for the
// reading pipeline to drain.
func closeMeasurementChain(chain *measurementChain) {
	if chain == nil {
		return
	}

	chain.cancel()
	chain.wg.Wait()

	// Closing the device closes its readings channel, which drains the
	// converters and ends the trend goroutine.
	if chain.device != nil {
		if err := chain.device.Close(); err != nil {
			log.Printf("Close device: %v", err)
		}
	}

	if chain.trend != nil {
		<-chain.trend
	}
}

// disconnect tears down the current chain and resets the controls.
// Must run on the main thread.
func disconnect(state *appState) {
	closeMeasurementChain(state.chain)
	state.chain = nil
	state.device = nil
	state.mock = nil
	state.meter = nil
	state.motorBtn.Disable()
	updateMotorButton(state.motorBtn, false)
	state.statusLabel.SetText(statusText(meter.Status{}, false))
	if state.useMock {
		fmt.Println("Disconnected from simulated instrument")
	} else {
		fmt.Println("Disconnected from serial port")
	}
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.chain != nil {
		disconnect(state)
		return
	}

	var device efm.Device
	if state.useMock {
		state.mock = efm.NewMock(&state.cfg.Mock, state.cfg.Demodulator, state.panel)
		if state.potential != nil {
			state.mock.SetPotential(state.potential.Value)
		}
		device = state.mock
		fmt.Println("Using simulated instrument")
	} else {
		device = efm.New(state.cfg.Serial.Port, state.cfg.Serial.BaudRate, efm.DefaultBufferSize)
	}

	if err := device.Connect(); err != nil {
		if state.useMock {
			dialog.ShowError(fmt.Errorf("failed to start simulated instrument: %w", err), state.window)
		} else {
			dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", state.cfg.Serial.Port, err), state.window)
		}
		state.mock = nil
		return
	}
	state.device = device
	if state.useMock {
		fmt.Println("Simulated instrument running")
	} else {
		fmt.Printf("Connected to serial port: %s\n", state.cfg.Serial.Port)
	}

	state.motorBtn.Enable()
	state.chain = startMeasurementChain(state, device)
}

// startMeasurementChain wires the front panel state machines and the reading
// pipeline to a connected device.
func startMeasurementChain(state *appState, device efm.Device) *measurementChain {
	cfg := state.cfg
	ctx, cancel := context.WithCancel(context.Background())
	chain := &measurementChain{
		device: device,
		cancel: cancel,
		trend:  make(chan struct{}),
	}

	mux := lcd.New(state.screen, cfg.Display.Width, cfg.Display.Height)
	engine := button.New(button.Config{
		ActiveLow:    cfg.ButtonsActiveLow(),
		OnThreshold:  cfg.Buttons.OnThreshold,
		RepeatDelay:  cfg.Buttons.RepeatDelay,
		RepeatPeriod: cfg.Buttons.RepeatPeriod,
	})
	dispatcher := dispatch.New(mux, engine, state.input)

	m := meter.New(meter.Config{
		KVPerCount:          float32(cfg.Demodulator.KVPerCount),
		EnvironmentInterval: cfg.Environment.UpdateInterval,
	}, device, mux, engine, meter.Peripherals{
		Motor:       device,
		Beeper:      state.player,
		Environment: device,
	})
	state.meter = m

	var lastMotor bool
	m.OnUpdate(func(s meter.Status) {
		// The serial device has no publish hook; mirror polarity from here.
		state.panel.SetPolarity(s.Measurement.Polarity)
		motorChanged := s.MotorOn != lastMotor
		lastMotor = s.MotorOn
		UpdateWidgetOnMainThread(func() {
			state.statusLabel.SetText(statusText(s, true))
			if motorChanged {
				updateMotorButton(state.motorBtn, s.MotorOn)
			}
		})
	})

	chain.wg.Add(2)
	go func() {
		defer chain.wg.Done()
		dispatcher.Run(ctx, cfg.Dispatcher.TickPeriod)
	}()
	go func() {
		defer chain.wg.Done()
		m.Run(ctx, meterPeriod, meter.DefaultStartupDelay)
	}()

	// Readings -> kV points -> optional moving average -> trend.
	points := sample.NewConverter(cfg.Demodulator.KVPerCount, pipelineDepth)(device.Readings())
	if cfg.Trend.AverageSamples > 0 {
		points = sample.NewAveragingConverter(cfg.Trend.AverageSamples, pipelineDepth)(points)
	}

	state.trend.ResetShutdown()
	go func() {
		defer close(chain.trend)
		state.trend.ProcessPoints(points)

		// Readings closed without a disconnect: the instrument went away.
		if ctx.Err() == nil && !device.IsConnected() {
			log.Printf("Instrument stream ended")
			UpdateWidgetOnMainThread(func() {
				if state.chain == chain {
					disconnect(state)
				}
			})
		}
	}()

	return chain
}
