package meter

import (
	"errors"
	"fmt"
)

// ErrSensor matches any environment sensor failure via errors.Is.
var ErrSensor = errors.New("environment sensor failure")

// SensorError wraps a failed environment sensor read.
type SensorError struct {
	Err error
}

func (e *SensorError) Error() string {
	return fmt.Sprintf("environment sensor: %v", e.Err)
}

func (e *SensorError) Unwrap() error {
	return e.Err
}

// Is reports ErrSensor as matching.
func (e *SensorError) Is(target error) bool {
	return target == ErrSensor
}

func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Join(errs...)
	}
}

func appendErr(errs []error, err error) []error {
	if err != nil {
		return append(errs, err)
	}
	return errs
}
