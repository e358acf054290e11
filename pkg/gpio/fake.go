package gpio

import (
	"errors"
	"sync"

	"github.com/itohio/goefm/pkg/button"
)

var (
	_ Reader = (*FakeReader)(nil)
	_ Reader = (*RealReader)(nil)
)

// FakeReader is a test double that returns scripted levels.
type FakeReader struct {
	mu sync.Mutex

	// Samples are returned one per Read; the last one repeats.
	Samples []button.Mask
	index   int

	Closed bool

	// ReadError, if set, is returned by Read.
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples ...button.Mask) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
func (f *FakeReader) Read() (button.Mask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	m := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return m, nil
}

// SetError makes subsequent reads fail with err, or succeed again when nil.
func (f *FakeReader) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReadError = err
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Reset rewinds the samples.
func (f *FakeReader) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index = 0
	f.Closed = false
}
