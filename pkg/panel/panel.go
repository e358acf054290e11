// Package panel is the on-screen front panel of the meter: the character
// display, the polarity LED, the buzzer lamp and the five keys.
package panel

import (
	"context"
	"image/color"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"

	"github.com/itohio/goefm/pkg/beep"
	"github.com/itohio/goefm/pkg/button"
	"github.com/itohio/goefm/pkg/demod"
	"github.com/itohio/goefm/pkg/lcd"
)

var (
	_ demod.Indicator = (*Panel)(nil)
	_ beep.Tone       = (*Panel)(nil)
)

// DefaultLabels name the keys in button order.
var DefaultLabels = [button.Count]string{"KEY", "NEXT", "PREV", "START", "STOP"}

var (
	lcdBackground = color.RGBA{R: 30, G: 60, B: 20, A: 255}
	lcdText       = color.RGBA{R: 170, G: 255, B: 120, A: 255}
	ledOff        = color.RGBA{R: 50, G: 50, B: 50, A: 255}
	ledRed        = color.RGBA{R: 230, G: 30, B: 30, A: 255}
	ledBlue       = color.RGBA{R: 40, G: 90, B: 240, A: 255}
	buzzerOn      = color.RGBA{R: 255, G: 200, B: 0, A: 255}
)

// Panel mirrors an lcd.Screen and drives Keys.
type Panel struct {
	screen *lcd.Screen
	keys   *Keys

	rows   []*canvas.Text
	led    *canvas.Circle
	buzzer *canvas.Circle
	object fyne.CanvasObject

	polarity atomic.Int32
	tone     atomic.Bool
	writes   uint64
}

// New creates the panel widgets. Call it on the UI thread.
func New(screen *lcd.Screen, keys *Keys, labels [button.Count]string) *Panel {
	p := &Panel{screen: screen, keys: keys}

	lines := screen.Lines()
	rows := make([]fyne.CanvasObject, len(lines))
	for i, line := range lines {
		t := canvas.NewText(line, lcdText)
		t.TextStyle = fyne.TextStyle{Monospace: true}
		t.TextSize = 22
		p.rows = append(p.rows, t)
		rows[i] = t
	}
	display := container.NewStack(
		canvas.NewRectangle(lcdBackground),
		container.NewPadded(container.NewVBox(rows...)),
	)

	p.led = canvas.NewCircle(ledOff)
	p.buzzer = canvas.NewCircle(ledOff)
	lamps := container.NewVBox(
		container.NewGridWrap(fyne.NewSize(18, 18), p.led),
		container.NewGridWrap(fyne.NewSize(18, 18), p.buzzer),
	)

	buttons := make([]fyne.CanvasObject, 0, button.Count)
	for i, label := range labels {
		buttons = append(buttons, newHoldButton(label, i, keys))
	}

	p.object = container.NewVBox(
		container.NewHBox(display, lamps, layout.NewSpacer()),
		container.NewGridWithColumns(button.Count, buttons...),
	)
	return p
}

// Object returns the panel canvas object.
func (p *Panel) Object() fyne.CanvasObject {
	return p.object
}

// SetPolarity lights the red LED for positive and the blue LED for negative
// polarity. It may be called from any goroutine.
func (p *Panel) SetPolarity(polarity int8) {
	if p.polarity.Swap(int32(polarity)) != int32(polarity) {
		fyne.Do(p.refreshLamps)
	}
}

// SetTone shows the buzzer state. It may be called from any goroutine.
func (p *Panel) SetTone(on bool) {
	if p.tone.Swap(on) != on {
		fyne.Do(p.refreshLamps)
	}
}

// Refresh copies the screen contents to the display. Call it on the UI thread.
func (p *Panel) Refresh() {
	for i, line := range p.screen.Lines() {
		if i < len(p.rows) && p.rows[i].Text != line {
			p.rows[i].Text = line
			p.rows[i].Refresh()
		}
	}
}

// Run refreshes the display every period while the screen receives writes,
// until ctx is cancelled.
func (p *Panel) Run(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w := p.screen.Writes(); w != p.writes {
				p.writes = w
				fyne.Do(p.Refresh)
			}
		}
	}
}

func (p *Panel) refreshLamps() {
	switch {
	case p.polarity.Load() > 0:
		p.led.FillColor = ledRed
	case p.polarity.Load() < 0:
		p.led.FillColor = ledBlue
	default:
		p.led.FillColor = ledOff
	}
	p.led.Refresh()

	if p.tone.Load() {
		p.buzzer.FillColor = buzzerOn
	} else {
		p.buzzer.FillColor = ledOff
	}
	p.buzzer.Refresh()
}
