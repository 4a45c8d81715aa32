//go:build linux

package hal

import (
	"context"
	"fmt"
	"time"

	"github.com/moodlight-community/moodlight-agent/pkg/log"
	"github.com/warthog618/gpiod"
	"go.uber.org/zap"
)

// GpiodButton forwards both edges of a GPIO line to an EdgeSink.
type GpiodButton struct {
	chip *gpiod.Chip
	line *gpiod.Line
	sink EdgeSink
	now  func() time.Time
}

// NewGpiodButton requests opts.Line on opts.Chip with the internal pull-up
// enabled. Debouncing is left to the sink.
func NewGpiodButton(ctx context.Context, opts ButtonOpts, sink EdgeSink, now func() time.Time) (*GpiodButton, error) {
	if now == nil {
		now = time.Now
	}

	chipName := opts.Chip
	if chipName == "" {
		chipName = "gpiochip0"
	}

	chip, err := gpiod.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", chipName, err)
	}

	b := &GpiodButton{chip: chip, sink: sink, now: now}

	lineOpts := []gpiod.LineReqOption{
		gpiod.WithEventHandler(b.handleEdge),
		gpiod.WithBothEdges,
		gpiod.WithPullUp,
	}
	if opts.ActiveLow {
		lineOpts = append(lineOpts, gpiod.AsActiveLow)
	}

	b.line, err = chip.RequestLine(opts.Line, lineOpts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("failed to request %s line %d (button): %w", chipName, opts.Line, err)
	}

	log.FromContext(ctx).Info("button line ready", zap.String("chip", chipName), zap.Int("line", opts.Line))
	return b, nil
}

// Level reads the current logical line level.
func (b *GpiodButton) Level() (int, error) {
	return b.line.Value()
}

func (b *GpiodButton) handleEdge(evt gpiod.LineEvent) {
	buttonEdges.Inc()

	level := 0
	if evt.Type == gpiod.LineEventRisingEdge {
		level = 1
	}
	b.sink.Edge(level, b.now())
}

func (b *GpiodButton) Close() error {
	lineErr := b.line.Close()
	chipErr := b.chip.Close()
	if lineErr != nil {
		return lineErr
	}
	return chipErr
}
