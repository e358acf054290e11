package main

import (
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"

	"github.com/itohio/goefm/pkg/meter"
)

// UpdateWidgetOnMainThread schedules a widget update function to run on the main Fyne thread.
// Fyne widgets cannot be updated directly from goroutines.
func UpdateWidgetOnMainThread(callback func()) {
	if callback == nil {
		return
	}
	fyne.Do(callback)
}

// updateThrottle limits how often a producer goroutine schedules UI work.
type updateThrottle struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func newUpdateThrottle(interval time.Duration) *updateThrottle {
	return &updateThrottle{interval: interval}
}

// Allow reports whether an update at now is due and records it if so.
func (t *updateThrottle) Allow(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}

// statusText renders the status bar line.
func statusText(s meter.Status, connected bool) string {
	if !connected {
		return "Disconnected"
	}

	motor := "stopped"
	if s.MotorOn {
		motor = "running"
	}
	text := fmt.Sprintf("Page: %s | %+.2f kV | count %d | motor %s", s.Page, s.KV, s.Measurement.Signed(), motor)
	if s.EnvValid {
		text += fmt.Sprintf(" | %.1f °C %.1f %%RH", s.Temperature, s.Humidity)
	}
	return text
}
