package lcd

import (
	"sync"
)

var _ Bus = (*Screen)(nil)

// Screen is an in-memory character display. It behaves like an HD44780 DDRAM
// with auto-increment and is used as the display on hosts without hardware.
type Screen struct {
	width  int
	height int

	mu     sync.RWMutex
	cells  []byte
	col    int
	row    int
	writes uint64
}

// NewScreen creates a blank width x height screen.
func NewScreen(width, height int) *Screen {
	s := &Screen{
		width:  width,
		height: height,
		cells:  make([]byte, width*height),
	}
	for i := range s.cells {
		s.cells[i] = ' '
	}
	return s
}

// SetCursor moves the write position. Writes to positions off the screen are
// dropped.
func (s *Screen) SetCursor(col, row uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.col = int(col)
	s.row = int(row)
	s.writes++
}

// WriteData stores b at the cursor and advances it within the row.
func (s *Screen) WriteData(b byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.row < s.height && s.col < s.width {
		s.cells[s.col+s.row*s.width] = b
	}
	s.col++
	s.writes++
}

// Lines returns the displayed text, one string per row.
func (s *Screen) Lines() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]string, s.height)
	for r := range lines {
		lines[r] = string(s.cells[r*s.width : (r+1)*s.width])
	}
	return lines
}

// Writes returns the number of bus operations received.
func (s *Screen) Writes() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
