package pixel_test

import (
	"context"
	"errors"
	"testing"

	"github.com/moodlight-community/moodlight-agent/pkg/hal/haltest"
	"github.com/moodlight-community/moodlight-agent/pkg/hal/led"
	"github.com/moodlight-community/moodlight-agent/pkg/pixel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newStrip(t *testing.T, count int, order pixel.Order) (*pixel.Strip, *haltest.Recorder) {
	t.Helper()
	rec := haltest.NewRecorder(0)
	s, err := pixel.NewStrip(context.Background(), rec, count, order)
	require.NoError(t, err)
	return s, rec
}

func TestStripShowRoundTrip(t *testing.T) {
	t.Parallel()

	s, rec := newStrip(t, 3, pixel.OrderGRBW)
	s.SetPixel(0, led.RGBW(0x12, 0x34, 0x56, 0x78))
	s.SetPixel(2, led.RGBW(0xff, 0x00, 0x80, 0x01))
	require.NoError(t, s.Show(context.Background()))

	decoded, err := s.Encoder().Decode(rec.Last())
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x34, 0x12, 0x56, 0x78,
		0, 0, 0, 0,
		0x00, 0xff, 0x80, 0x01,
	}, decoded)
}

func TestStripCapIdentity(t *testing.T) {
	t.Parallel()

	s, rec := newStrip(t, 2, pixel.OrderGRB)
	s.SetPixel(0, led.RGB(255, 1, 128))
	s.SetPixel(1, led.RGB(7, 254, 0))
	require.NoError(t, s.Show(context.Background()))

	assert.Equal(t, uint8(255), s.BrightnessCap())
	assert.Equal(t, []byte{1, 255, 128, 254, 7, 0}, rec.LastBytes())
}

func TestStripCapHalf(t *testing.T) {
	t.Parallel()

	s, rec := newStrip(t, 5, pixel.OrderGRB)
	s.SetBrightnessCap(128)
	s.Fill(led.RGB(255, 0, 0))
	require.NoError(t, s.Show(context.Background()))

	decoded, err := s.Encoder().Decode(rec.Last())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		assert.Equal(t, byte(128), decoded[i*3+1], "red channel of pixel %d", i)
		assert.Equal(t, byte(0), decoded[i*3])
		assert.Equal(t, byte(0), decoded[i*3+2])
	}

	// The intent survives: lifting the cap restores full brightness.
	assert.Equal(t, led.RGB(255, 0, 0), s.Pixel(0))
	s.SetBrightnessCap(255)
	require.NoError(t, s.Show(context.Background()))
	assert.Equal(t, byte(255), rec.LastBytes()[1])
}

func TestStripClear(t *testing.T) {
	t.Parallel()

	s, rec := newStrip(t, 2, pixel.OrderGRB)
	s.Fill(led.RGB(1, 2, 3))
	require.NoError(t, s.Clear(context.Background()))

	assert.Equal(t, 1, rec.Frames())
	assert.Equal(t, make([]byte, 6), rec.LastBytes())
	assert.Equal(t, led.Color{}, s.Pixel(1))
}

func TestStripTransmitError(t *testing.T) {
	t.Parallel()

	s, rec := newStrip(t, 1, pixel.OrderGRB)
	rec.FailWith(errors.New("line stuck"))
	assert.ErrorContains(t, s.Show(context.Background()), "line stuck")
}

func TestStripRejectsCoarseTransmitter(t *testing.T) {
	t.Parallel()

	tx := &haltest.MockTransmitter{}
	tx.On("Resolution").Return(haltest.DefaultResolution * 50)

	_, err := pixel.NewStrip(context.Background(), tx, 1, pixel.OrderGRB)
	assert.Error(t, err)
	tx.AssertExpectations(t)
	tx.AssertNotCalled(t, "Transmit", mock.Anything, mock.Anything)
}

func TestStripNeedsPixels(t *testing.T) {
	t.Parallel()

	_, err := pixel.NewStrip(context.Background(), haltest.NewRecorder(0), 0, pixel.OrderGRB)
	assert.Error(t, err)
}
