//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/itohio/goefm/pkg/button"
)

// RealReader reads the switches from a Linux GPIO chip.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line
}

// NewRealReader requests the given line offsets as inputs with pull-ups,
// matching switches that short to ground.
func NewRealReader(chipName string, offsets []int) (*RealReader, error) {
	if len(offsets) == 0 {
		return nil, errors.New("no button lines configured")
	}
	if len(offsets) > button.Count {
		return nil, fmt.Errorf("too many lines: %d > %d", len(offsets), button.Count)
	}
	if chipName == "" {
		chipName = DefaultChip
	}

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealReader{chip: chip}
	for i, offset := range offsets {
		line, err := chip.RequestLine(offset, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request button %d line %d: %w", i, offset, err)
		}
		r.lines = append(r.lines, line)
	}
	return r, nil
}

// Read returns the raw levels. Unconfigured buttons read high.
func (r *RealReader) Read() (button.Mask, error) {
	m := button.AllMask
	for i, line := range r.lines {
		v, err := line.Value()
		if err != nil {
			return 0, fmt.Errorf("read button %d: %w", i, err)
		}
		if v == 0 {
			m &^= button.Bit(i)
		}
	}
	return m, nil
}

// Close releases the lines and the chip.
func (r *RealReader) Close() error {
	var errs []error
	for i, line := range r.lines {
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button %d: %w", i, err))
		}
	}
	r.lines = nil
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
