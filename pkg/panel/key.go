package panel

import (
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// holdButton is a button that stays pressed while the mouse button is down,
// so the debounce engine sees a real hold and can auto-repeat.
type holdButton struct {
	widget.Button

	index int
	keys  *Keys
}

func newHoldButton(label string, index int, keys *Keys) *holdButton {
	b := &holdButton{index: index, keys: keys}
	b.Text = label
	b.ExtendBaseWidget(b)
	return b
}

func (b *holdButton) MouseDown(*desktop.MouseEvent) {
	b.keys.Press(b.index)
	b.Importance = widget.HighImportance
	b.Refresh()
}

func (b *holdButton) MouseUp(*desktop.MouseEvent) {
	b.release()
}

// MouseOut releases the key if the pointer leaves while held.
func (b *holdButton) MouseOut() {
	b.release()
	b.Button.MouseOut()
}

func (b *holdButton) release() {
	b.keys.Release(b.index)
	if b.Importance != widget.MediumImportance {
		b.Importance = widget.MediumImportance
		b.Refresh()
	}
}
