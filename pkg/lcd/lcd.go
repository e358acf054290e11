package lcd

import (
	"fmt"
	"sync/atomic"
)

const (
	// DefaultWidth and DefaultHeight describe a 16x2 character module.
	DefaultWidth  = 16
	DefaultHeight = 2
)

// Bus is the character-display collaborator. The multiplexer issues at most
// one call per Advance, so implementations only need to be fast enough for a
// single command or data byte.
type Bus interface {
	SetCursor(col, row uint8)
	WriteData(b byte)
}

// Stage is the refresh state of the multiplexer. There is no separate
// column stage: the PositionRow command already addresses column 0, so a
// full pass costs W×H writes plus one cursor command per row.
type Stage uint8

const (
	Idle        Stage = iota // waiting for new content
	PositionRow              // addressing the first cell of the current row
	Emit                     // streaming frame bytes
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case PositionRow:
		return "position-row"
	case Emit:
		return "emit"
	default:
		return "unknown"
	}
}

// Multiplexer streams a frame buffer to the display a single bus operation at
// a time.
//
// SetText may be called from the main loop while Advance runs in the tick
// context; frame cells and the dirty flag are atomics, and the cursor and
// stage are touched only by Advance.
type Multiplexer struct {
	width  int
	height int
	bus    Bus

	frame []atomic.Uint32
	dirty atomic.Bool

	cursor int
	stage  Stage
}

// New creates a multiplexer for a width x height display. The frame starts
// filled with spaces and is not dirty.
func New(bus Bus, width, height int) *Multiplexer {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	m := &Multiplexer{
		width:  width,
		height: height,
		bus:    bus,
		frame:  make([]atomic.Uint32, width*height),
	}
	for i := range m.frame {
		m.frame[i].Store(' ')
	}
	return m
}

// Size returns the display geometry in characters.
func (m *Multiplexer) Size() (width, height int) {
	return m.width, m.height
}

// SetText copies text into the frame starting at (row, col). Text running
// past the last cell wraps to the first one. Out-of-range positions are
// ignored. Nothing is sent to the bus here.
func (m *Multiplexer) SetText(row, col int, text string) {
	if row < 0 || row >= m.height || col < 0 || col >= m.width {
		return
	}
	n := len(text)
	if n > len(m.frame) {
		n = len(m.frame)
	}

	pos := col + row*m.width
	for i := 0; i < n; i++ {
		m.frame[pos].Store(uint32(text[i]))
		pos++
		if pos >= len(m.frame) {
			pos = 0
		}
	}
	m.dirty.Store(true)
}

// Printf formats into the frame at (row, col).
func (m *Multiplexer) Printf(row, col int, format string, args ...any) {
	m.SetText(row, col, fmt.Sprintf(format, args...))
}

// Clear fills the frame with spaces.
func (m *Multiplexer) Clear() {
	for i := range m.frame {
		m.frame[i].Store(' ')
	}
	m.dirty.Store(true)
}

// Frame returns a snapshot of the desired display content, one string per row.
func (m *Multiplexer) Frame() []string {
	rows := make([]string, m.height)
	buf := make([]byte, m.width)
	for r := range rows {
		for c := range buf {
			buf[c] = byte(m.frame[c+r*m.width].Load())
		}
		rows[r] = string(buf)
	}
	return rows
}

// Dirty reports whether content changed since the last refresh started.
func (m *Multiplexer) Dirty() bool {
	return m.dirty.Load()
}

// Advance performs one refresh step. It never blocks beyond the single bus
// call it may make.
func (m *Multiplexer) Advance() {
	switch m.stage {
	case Idle:
		if !m.dirty.Swap(false) {
			return
		}
		m.cursor = 0
		m.stage = PositionRow
		fallthrough

	case PositionRow:
		m.bus.SetCursor(0, uint8(m.cursor/m.width))
		m.stage = Emit

	case Emit:
		m.bus.WriteData(byte(m.frame[m.cursor].Load()))
		m.cursor++
		switch {
		case m.cursor >= len(m.frame):
			m.cursor = 0
			m.stage = Idle
		case m.cursor%m.width == 0:
			m.stage = PositionRow
		}

	default:
		m.stage = Idle
	}
}

// Stage returns the current refresh stage. Only meaningful from the tick
// context or while ticking is stopped.
func (m *Multiplexer) Stage() Stage {
	return m.stage
}
