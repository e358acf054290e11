package main

import (
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// handleMotorToggle starts or stops the shutter motor through the meter, so
// the beep and the displayed state follow the same path as the panel keys.
func handleMotorToggle(state *appState) {
	if state.meter == nil || state.device == nil || !state.device.IsConnected() {
		return
	}
	state.meter.RequestMotor(!state.meter.Status().MotorOn)
}

// updateMotorButton updates the motor button's visual state.
func updateMotorButton(btn *widget.Button, isOn bool) {
	if isOn {
		btn.Importance = widget.HighImportance
		btn.SetIcon(theme.MediaStopIcon())
	} else {
		btn.Importance = widget.MediumImportance
		btn.SetIcon(theme.MediaPlayIcon())
	}
	btn.Refresh()
}
