package hal

import (
	"context"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalTransmitterDrawsPixels(t *testing.T) {
	t.Parallel()

	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(80, 4)

	tx := newTerminalTransmitter(screen, TransmitterOpts{BytesPerPixel: 3})
	defer tx.Close()

	// GRB: pixel 0 pure red, pixel 1 pure blue.
	wf := testWaveform(t, []byte{0, 255, 0, 0, 0, 255})
	require.NoError(t, tx.Transmit(context.Background(), wf))

	tests := []struct {
		x    int
		want tcell.Color
	}{
		{0, tcell.NewRGBColor(255, 0, 0)},
		{1, tcell.NewRGBColor(255, 0, 0)},
		{2, tcell.NewRGBColor(0, 0, 255)},
		{3, tcell.NewRGBColor(0, 0, 255)},
	}
	for _, tc := range tests {
		r, _, style, _ := screen.GetContent(tc.x, 0)
		fg, _, _ := style.Decompose()
		assert.Equal(t, '█', r)
		assert.Equal(t, tc.want, fg)
	}
}

func TestTerminalTransmitterClosed(t *testing.T) {
	t.Parallel()

	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())

	tx := newTerminalTransmitter(screen, TransmitterOpts{})
	require.NoError(t, tx.Close())
	assert.ErrorIs(t, tx.Transmit(context.Background(), testWaveform(t, []byte{1, 2, 3})), ErrClosed)
}
