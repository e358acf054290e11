package efm

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/itohio/goefm/pkg/config"
	"github.com/itohio/goefm/pkg/demod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMockConfig(potential float64) *config.MockConfig {
	cfg := config.Default().Mock
	cfg.PotentialKV = potential
	cfg.Batch = 5 * time.Millisecond
	return &cfg
}

func TestNewMock(t *testing.T) {
	mock := NewMock(testMockConfig(1), config.Default().Demodulator, nil)
	assert.NotNil(t, mock)
	assert.False(t, mock.IsConnected())
	// 25 kHz for 5 ms.
	assert.Len(t, mock.buf, 125)
}

func TestNewMock_NilConfig(t *testing.T) {
	mock := NewMock(nil, config.Default().Demodulator, nil)
	assert.Equal(t, config.Default().Mock, mock.cfg)
}

func TestMock_NotConnected(t *testing.T) {
	mock := NewMock(nil, config.Default().Demodulator, nil)
	assert.ErrorIs(t, mock.SetMotor(true), ErrNotConnected)
	_, _, err := mock.Measurements()
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NoError(t, mock.Close())
}

func TestMock_Connect_AlreadyConnected(t *testing.T) {
	mock := NewMock(testMockConfig(1), config.Default().Demodulator, nil)
	require.NoError(t, mock.Connect())
	defer mock.Close()

	assert.ErrorIs(t, mock.Connect(), ErrAlreadyConnected)
}

func TestMock_Measurements(t *testing.T) {
	mock := NewMock(testMockConfig(1), config.Default().Demodulator, nil)
	require.NoError(t, mock.Connect())
	defer mock.Close()

	temp, hum, err := mock.Measurements()
	require.NoError(t, err)
	assert.Equal(t, int16(225), temp)
	assert.Equal(t, uint16(450), hum)
}

func TestMock_MotorOffNoReadings(t *testing.T) {
	mock := NewMock(testMockConfig(1), config.Default().Demodulator, nil)
	require.NoError(t, mock.Connect())
	defer mock.Close()

	select {
	case r := <-mock.Readings():
		t.Fatalf("unexpected reading with the shutter stopped: %+v", r)
	case <-time.After(100 * time.Millisecond):
	}
	assert.False(t, mock.Latest().Valid())
}

func TestMock_Polarity(t *testing.T) {
	tests := []struct {
		name      string
		potential float64
		polarity  int8
	}{
		{"positive", 1.5, 1},
		{"negative", -1.5, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var led atomic.Int32
			mock := NewMock(testMockConfig(tt.potential), config.Default().Demodulator,
				demod.IndicatorFunc(func(p int8) { led.Store(int32(p)) }))
			require.NoError(t, mock.Connect())
			defer mock.Close()
			require.NoError(t, mock.SetMotor(true))

			select {
			case r := <-mock.Readings():
				require.True(t, r.Measurement.Valid())
				assert.Equal(t, tt.polarity, r.Measurement.Polarity)
				// 1.5 kV / 0.01028 kV per count is about 145 counts.
				assert.InDelta(t, 145, abs(r.Measurement.Magnitude), 10)
			case <-time.After(2 * time.Second):
				t.Fatal("no reading received")
			}
			assert.Equal(t, int32(tt.polarity), led.Load())
		})
	}
}

func TestMock_SetPotential(t *testing.T) {
	mock := NewMock(testMockConfig(1.5), config.Default().Demodulator, nil)
	require.NoError(t, mock.Connect())
	defer mock.Close()
	require.NoError(t, mock.SetMotor(true))

	mock.SetPotential(-1.5)
	require.Eventually(t, func() bool {
		return mock.Latest().Polarity == -1
	}, 2*time.Second, 5*time.Millisecond)
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
