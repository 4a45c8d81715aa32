package hal

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/moodlight-community/moodlight-agent/pkg/log"
	"github.com/moodlight-community/moodlight-agent/pkg/ws281x"
)

const terminalResolution = 50 * time.Nanosecond

// TerminalTransmitter renders the strip as a row of coloured blocks, for
// development machines without LEDs attached.
type TerminalTransmitter struct {
	mu     sync.Mutex
	screen tcell.Screen
	bpp    int
	closed bool
}

// NewTerminalTransmitter takes over the controlling terminal.
func NewTerminalTransmitter(ctx context.Context, opts TransmitterOpts) (*TerminalTransmitter, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create terminal screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal screen: %w", err)
	}

	t := newTerminalTransmitter(screen, opts)
	go t.pollEvents()

	platform.WithLabelValues(string(DriverTerminal)).Set(1)
	log.FromContext(ctx).Info("terminal preview ready, press q or ctrl-c to quit")
	return t, nil
}

func newTerminalTransmitter(screen tcell.Screen, opts TransmitterOpts) *TerminalTransmitter {
	bpp := opts.BytesPerPixel
	if bpp == 0 {
		bpp = 3
	}
	screen.HideCursor()
	screen.Clear()
	return &TerminalTransmitter{screen: screen, bpp: bpp}
}

// The screen owns the terminal in raw mode, so quitting has to be turned
// back into the signal the agent shuts down on.
func (t *TerminalTransmitter) pollEvents() {
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}

		switch ev := ev.(type) {
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyCtrlC || ev.Key() == tcell.KeyEscape || ev.Rune() == 'q' {
				if p, err := os.FindProcess(os.Getpid()); err == nil {
					p.Signal(os.Interrupt)
				}
			}
		case *tcell.EventResize:
			t.mu.Lock()
			t.screen.Sync()
			t.mu.Unlock()
		}
	}
}

func (t *TerminalTransmitter) Resolution() time.Duration {
	return terminalResolution
}

// Transmit draws two cells per pixel. The white channel, when present, is
// mixed into all three colours.
func (t *TerminalTransmitter) Transmit(ctx context.Context, wf *ws281x.Waveform) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data := wf.Data()
	width, _ := t.screen.Size()
	for i := 0; i+t.bpp <= len(data); i += t.bpp {
		g, r, b := int32(data[i]), int32(data[i+1]), int32(data[i+2])
		if t.bpp == 4 {
			w := int32(data[i+3])
			r, g, b = min(r+w, 255), min(g+w, 255), min(b+w, 255)
		}

		style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(r, g, b))
		x := 2 * (i / t.bpp)
		row := 0
		if width > 1 {
			row, x = x/width, x%width
		}
		t.screen.SetContent(x, row, '█', nil, style)
		t.screen.SetContent(x+1, row, '█', nil, style)
	}
	t.screen.Show()

	observeTransmit(DriverTerminal, nil)
	return nil
}

func (t *TerminalTransmitter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.closed {
		t.closed = true
		t.screen.Fini()
	}
	return nil
}
