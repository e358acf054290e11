package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/goefm/pkg/efm"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	// Create tabs
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createDemodulatorTab(state),
		createButtonsTab(state),
		createTrendTab(state),
		createMockTab(state),
	)

	// Create dialog with tabs as content
	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	// Get available serial ports
	ports, err := efm.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // Map display name to actual port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	}

	// Add current port if not in list
	currentPort := state.cfg.Serial.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
		currentDisplay = currentPort
	}

	portSelect := widget.NewSelect(portOptions, func(selected string) {
		// Selection handler - will be called on submit
	})
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
		},
		OnSubmit: func() {
			if portSelect.Selected != "" {
				selectedPort := portMap[portSelect.Selected]
				if selectedPort == "" {
					selectedPort = portSelect.Selected // Fallback to selected text
				}

				// Check if port changed and device is connected
				portChanged := state.cfg.Serial.Port != selectedPort
				wasConnected := state.device != nil && state.device.IsConnected()

				state.cfg.Serial.Port = selectedPort
				if err := state.cfg.Save(state.configPath); err != nil {
					dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
					return
				}

				if portChanged && wasConnected && !state.useMock {
					reconnect(state)
				}
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

// reconnect restarts the measurement chain with the current configuration.
func reconnect(state *appState) {
	if state.chain != nil {
		disconnect(state)
	}
	handleConnect(state)
}

// saveConfig persists the configuration and reports failures in a dialog.
func saveConfig(state *appState) {
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
	}
}

// createDemodulatorTab creates the Demodulator configuration tab.
func createDemodulatorTab(state *appState) *container.TabItem {
	baselineEntry := widget.NewEntry()
	baselineEntry.SetText(strconv.Itoa(int(state.cfg.Demodulator.BaselineOffset)))

	cyclesEntry := widget.NewEntry()
	cyclesEntry.SetText(strconv.FormatUint(uint64(state.cfg.Demodulator.CycleThreshold), 10))

	scaleEntry := widget.NewEntry()
	scaleEntry.SetText(fmt.Sprintf("%.5f", state.cfg.Demodulator.KVPerCount))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Baseline (ADC counts)", Widget: baselineEntry},
			{Text: "Gate transitions per result", Widget: cyclesEntry},
			{Text: "Scale (kV per count)", Widget: scaleEntry},
		},
		OnSubmit: func() {
			if v, err := strconv.ParseInt(baselineEntry.Text, 10, 32); err == nil {
				state.cfg.Demodulator.BaselineOffset = int32(v)
			}
			if v, err := strconv.ParseUint(cyclesEntry.Text, 10, 32); err == nil && v > 0 {
				state.cfg.Demodulator.CycleThreshold = uint32(v)
			}
			if v, err := strconv.ParseFloat(scaleEntry.Text, 64); err == nil && v > 0 {
				state.cfg.Demodulator.KVPerCount = v
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Demodulator", form)
}

// createButtonsTab creates the Buttons configuration tab. Timing is in ticks.
func createButtonsTab(state *appState) *container.TabItem {
	onEntry := widget.NewEntry()
	onEntry.SetText(strconv.FormatUint(uint64(state.cfg.Buttons.OnThreshold), 10))

	delayEntry := widget.NewEntry()
	delayEntry.SetText(strconv.FormatUint(uint64(state.cfg.Buttons.RepeatDelay), 10))

	periodEntry := widget.NewEntry()
	periodEntry.SetText(strconv.FormatUint(uint64(state.cfg.Buttons.RepeatPeriod), 10))

	tickEntry := widget.NewEntry()
	tickEntry.SetText(state.cfg.Dispatcher.TickPeriod.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Press threshold (ticks)", Widget: onEntry},
			{Text: "Repeat delay (ticks)", Widget: delayEntry},
			{Text: "Repeat period (ticks)", Widget: periodEntry},
			{Text: "Tick period", Widget: tickEntry},
		},
		OnSubmit: func() {
			parseTicks(onEntry.Text, &state.cfg.Buttons.OnThreshold)
			parseTicks(delayEntry.Text, &state.cfg.Buttons.RepeatDelay)
			parseTicks(periodEntry.Text, &state.cfg.Buttons.RepeatPeriod)
			if d, err := time.ParseDuration(tickEntry.Text); err == nil && d > 0 {
				state.cfg.Dispatcher.TickPeriod = d
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Buttons", form)
}

func parseTicks(text string, dst *uint32) {
	if v, err := strconv.ParseUint(text, 10, 32); err == nil && v > 0 {
		*dst = uint32(v)
	}
}

// createTrendTab creates the Trend configuration tab.
func createTrendTab(state *appState) *container.TabItem {
	windowEntry := widget.NewEntry()
	windowEntry.SetText(state.cfg.Trend.Window.String())

	averageEntry := widget.NewEntry()
	averageEntry.SetText(strconv.Itoa(state.cfg.Trend.AverageSamples))

	intervalEntry := widget.NewEntry()
	intervalEntry.SetText(state.cfg.Environment.UpdateInterval.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Window", Widget: windowEntry},
			{Text: "Average Samples (0=disabled)", Widget: averageEntry},
			{Text: "Environment interval", Widget: intervalEntry},
		},
		OnSubmit: func() {
			if d, err := time.ParseDuration(windowEntry.Text); err == nil && d > 0 {
				state.cfg.Trend.Window = d
			}
			if avg, err := strconv.Atoi(averageEntry.Text); err == nil && avg >= 0 {
				state.cfg.Trend.AverageSamples = avg
			}
			if d, err := time.ParseDuration(intervalEntry.Text); err == nil && d > 0 {
				state.cfg.Environment.UpdateInterval = d
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Trend", form)
}

// createMockTab creates the simulated instrument configuration tab.
func createMockTab(state *appState) *container.TabItem {
	potentialEntry := widget.NewEntry()
	potentialEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Mock.PotentialKV))

	noiseEntry := widget.NewEntry()
	noiseEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Mock.Noise))

	chopperEntry := widget.NewEntry()
	chopperEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Mock.ChopperFreq))

	sampleRateEntry := widget.NewEntry()
	sampleRateEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Mock.SampleRate))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Potential (kV)", Widget: potentialEntry},
			{Text: "Noise (ADC counts)", Widget: noiseEntry},
			{Text: "Chopper frequency (Hz)", Widget: chopperEntry},
			{Text: "Sample rate (Hz)", Widget: sampleRateEntry},
		},
		OnSubmit: func() {
			if kv, err := strconv.ParseFloat(potentialEntry.Text, 64); err == nil {
				state.cfg.Mock.PotentialKV = kv
				if state.potential != nil {
					state.potential.SetValue(kv)
				}
			}
			if n, err := strconv.ParseFloat(noiseEntry.Text, 64); err == nil && n >= 0 {
				state.cfg.Mock.Noise = n
			}
			if f, err := strconv.ParseFloat(chopperEntry.Text, 64); err == nil && f > 0 {
				state.cfg.Mock.ChopperFreq = f
			}
			if sr, err := strconv.ParseFloat(sampleRateEntry.Text, 64); err == nil && sr > 0 {
				state.cfg.Mock.SampleRate = sr
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Mock", form)
}
