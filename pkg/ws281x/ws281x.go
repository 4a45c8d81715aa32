// Package ws281x encodes pixel bytes into the single-wire pulse-width protocol
// spoken by WS2812/SK6812 style LEDs.
//
// Every data bit becomes one Symbol: the line is held high for a number of
// ticks and then low for a number of ticks. A "1" uses a long high phase, a
// "0" a short one. Bits go out MSB first, byte by byte, in the order the bytes
// appear in the pixel buffer. A frame ends with the line held low for the
// reset interval, after which the strip latches the new colours.
package ws281x

import (
	"errors"
	"fmt"
	"time"
)

// Timing holds the nominal pulse lengths of the protocol.
type Timing struct {
	T0H   time.Duration
	T0L   time.Duration
	T1H   time.Duration
	T1L   time.Duration
	Reset time.Duration
}

// DefaultTiming matches WS2812B and SK6812 strips. The reset is held longer
// than the 50µs minimum because some SK6812 batches need ~80µs to latch.
var DefaultTiming = Timing{
	T0H:   350 * time.Nanosecond,
	T0L:   800 * time.Nanosecond,
	T1H:   700 * time.Nanosecond,
	T1L:   600 * time.Nanosecond,
	Reset: 80 * time.Microsecond,
}

// MinReset is the shortest low period the strips accept as a latch.
const MinReset = 50 * time.Microsecond

var (
	ErrInvalidTick   = errors.New("tick must be positive")
	ErrInvalidTiming = errors.New("invalid timing")
)

// Symbol is one encoded bit, expressed in transmitter ticks.
type Symbol struct {
	High uint32
	Low  uint32
}

// Ticks converts d into whole ticks, rounding up so a pulse is never shorter
// than requested.
func Ticks(d, tick time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	return uint32((d + tick - 1) / tick)
}

// Encoder turns pixel bytes into waveforms for a transmitter with a fixed
// tick granularity.
type Encoder struct {
	tick   time.Duration
	timing Timing
	zero   Symbol
	one    Symbol
	reset  uint32
}

// NewEncoder validates the timing against the tick and precomputes the bit
// symbols.
func NewEncoder(tick time.Duration, timing Timing) (*Encoder, error) {
	if tick <= 0 {
		return nil, ErrInvalidTick
	}
	if timing.T0H <= 0 || timing.T0L <= 0 || timing.T1H <= 0 || timing.T1L <= 0 {
		return nil, fmt.Errorf("%w: all pulse lengths must be positive", ErrInvalidTiming)
	}
	if timing.T1H <= timing.T0H {
		return nil, fmt.Errorf("%w: T1H (%s) must be longer than T0H (%s)", ErrInvalidTiming, timing.T1H, timing.T0H)
	}
	if timing.Reset < MinReset {
		return nil, fmt.Errorf("%w: reset %s is shorter than %s", ErrInvalidTiming, timing.Reset, MinReset)
	}

	enc := &Encoder{
		tick:   tick,
		timing: timing,
		zero:   Symbol{High: Ticks(timing.T0H, tick), Low: Ticks(timing.T0L, tick)},
		one:    Symbol{High: Ticks(timing.T1H, tick), Low: Ticks(timing.T1L, tick)},
		reset:  Ticks(timing.Reset, tick),
	}

	// A tick so coarse that both bits share the same high time cannot carry data.
	if enc.zero.High == enc.one.High {
		return nil, fmt.Errorf("%w: tick %s cannot distinguish T0H from T1H", ErrInvalidTiming, tick)
	}

	return enc, nil
}

// Tick returns the tick granularity the encoder was built for.
func (e *Encoder) Tick() time.Duration {
	return e.tick
}

// Symbols returns the encoded "0" and "1" symbols.
func (e *Encoder) Symbols() (zero, one Symbol) {
	return e.zero, e.one
}

// ResetTicks returns the length of the trailing latch period in ticks.
func (e *Encoder) ResetTicks() uint32 {
	return e.reset
}

// Encode produces the waveform for data. bpp is carried along for
// transmitters that forward pixel bytes instead of pulses.
func (e *Encoder) Encode(data []byte, bpp int) *Waveform {
	wf := &Waveform{
		Tick:          e.tick,
		Symbols:       make([]Symbol, 0, len(data)*8),
		ResetTicks:    e.reset,
		BytesPerPixel: bpp,
		data:          append([]byte(nil), data...),
	}

	for _, b := range data {
		for bit := 7; bit >= 0; bit-- {
			if (b>>uint(bit))&1 == 1 {
				wf.Symbols = append(wf.Symbols, e.one)
			} else {
				wf.Symbols = append(wf.Symbols, e.zero)
			}
		}
	}

	return wf
}

// Decode recovers the bytes carried by wf by classifying each symbol's high
// time against the encoder's "0" and "1" symbols.
func (e *Encoder) Decode(wf *Waveform) ([]byte, error) {
	if len(wf.Symbols)%8 != 0 {
		return nil, fmt.Errorf("waveform carries %d bits, not a whole number of bytes", len(wf.Symbols))
	}

	out := make([]byte, len(wf.Symbols)/8)
	for i, sym := range wf.Symbols {
		if sym.High == 0 {
			return nil, fmt.Errorf("symbol %d has no high phase", i)
		}
		if absDiff(sym.High, e.one.High) < absDiff(sym.High, e.zero.High) {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out, nil
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
