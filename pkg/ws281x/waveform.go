package ws281x

import "time"

// Waveform is a fully encoded frame.
type Waveform struct {
	Tick          time.Duration
	Symbols       []Symbol
	ResetTicks    uint32
	BytesPerPixel int

	data []byte
}

// Data returns a copy of the bytes the waveform was encoded from, for
// transmitters that hand pixel data to a co-processor.
func (w *Waveform) Data() []byte {
	return append([]byte(nil), w.data...)
}

// TotalTicks is the length of the frame including the reset period.
func (w *Waveform) TotalTicks() uint64 {
	total := uint64(w.ResetTicks)
	for _, s := range w.Symbols {
		total += uint64(s.High) + uint64(s.Low)
	}
	return total
}

// Duration is the wall time the frame occupies on the wire.
func (w *Waveform) Duration() time.Duration {
	return time.Duration(w.TotalTicks()) * w.Tick
}

// Levels walks the frame tick by tick and calls fn with the line level.
func (w *Waveform) Levels(fn func(high bool)) {
	for _, s := range w.Symbols {
		for i := uint32(0); i < s.High; i++ {
			fn(true)
		}
		for i := uint32(0); i < s.Low; i++ {
			fn(false)
		}
	}
	for i := uint32(0); i < w.ResetTicks; i++ {
		fn(false)
	}
}

// AppendBits packs the line levels into bytes, MSB first, one tick per bit.
// The final byte is padded with low bits.
func (w *Waveform) AppendBits(dst []byte) []byte {
	var cur byte
	n := 0
	w.Levels(func(high bool) {
		cur <<= 1
		if high {
			cur |= 1
		}
		n++
		if n == 8 {
			dst = append(dst, cur)
			cur, n = 0, 0
		}
	})
	if n > 0 {
		dst = append(dst, cur<<uint(8-n))
	}
	return dst
}

// Words packs the line levels into 32-bit words, MSB first, one tick per bit.
// The final word is padded with low bits.
func (w *Waveform) Words() []uint32 {
	words := make([]uint32, 0, w.TotalTicks()/32+1)
	var cur uint32
	n := 0
	w.Levels(func(high bool) {
		cur <<= 1
		if high {
			cur |= 1
		}
		n++
		if n == 32 {
			words = append(words, cur)
			cur, n = 0, 0
		}
	})
	if n > 0 {
		words = append(words, cur<<uint(32-n))
	}
	return words
}

// Bits expands the frame into one line level per tick.
func (w *Waveform) Bits() []bool {
	bits := make([]bool, 0, w.TotalTicks())
	w.Levels(func(high bool) {
		bits = append(bits, high)
	})
	return bits
}
