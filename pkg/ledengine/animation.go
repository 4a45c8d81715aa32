package ledengine

import (
	"math"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/moodlight-community/moodlight-agent/pkg/hal/led"
)

// Canvas is the pixel surface an animation draws on. It holds the intended
// colours; the brightness cap is applied later, when the frame is shown.
type Canvas interface {
	Len() int
	SetPixel(i int, c led.Color)
	Fill(c led.Color)
	Pixel(i int) led.Color
}

// Animation is one engine mode. Start is called on the first tick after the
// mode becomes current and resets the mode's own timing state. NextStep
// renders one frame and returns the delay until the next one; zero means the
// animation has finished.
type Animation interface {
	Name() string
	Start(c Canvas, now time.Time)
	NextStep(c Canvas, now time.Time) time.Duration
}

const (
	breathPeriod   = 2000 * time.Millisecond
	breathPeak     = 120
	breathStep     = 20 * time.Millisecond
	pulseHalf      = 500 * time.Millisecond
	rainbowStep    = 50 * time.Millisecond
	smoothStep     = 20 * time.Millisecond
	fadeStep       = 20 * time.Millisecond
	staticInterval = time.Second
)

// None leaves the strip untouched.
type None struct {
	Interval time.Duration
}

func (None) Name() string { return "none" }

func (None) Start(Canvas, time.Time) {}

func (n None) NextStep(Canvas, time.Time) time.Duration {
	if n.Interval <= 0 {
		return DefaultIdleInterval
	}
	return n.Interval
}

// Static holds a single colour on every pixel.
type Static struct {
	Color led.Color
}

func NewStaticPattern(c led.Color) *Static {
	return &Static{Color: c}
}

func (*Static) Name() string { return "static" }

func (s *Static) Start(c Canvas, _ time.Time) {
	c.Fill(s.Color)
}

func (s *Static) NextStep(c Canvas, _ time.Time) time.Duration {
	c.Fill(s.Color)
	return staticInterval
}

// Breath swells the base colour following 0.5*(1+sin(2πφ)) over a two
// second period, peaking at 120/255 of the base colour.
type Breath struct {
	Color led.Color

	start time.Time
}

func (*Breath) Name() string { return "breath" }

func (b *Breath) Start(_ Canvas, now time.Time) {
	b.start = now
}

func (b *Breath) NextStep(c Canvas, now time.Time) time.Duration {
	c.Fill(b.colorAt(now.Sub(b.start)))
	return breathStep
}

func (b *Breath) colorAt(elapsed time.Duration) led.Color {
	phase := float64(elapsed%breathPeriod) / float64(breathPeriod)
	intensity := 0.5 * (1 + math.Sin(2*math.Pi*phase))
	level := uint8(intensity * breathPeak)
	return led.RGB(b.Color.Red, b.Color.Green, b.Color.Blue).Scale(level)
}

// Pulse alternates between the base colour and off every 500ms.
type Pulse struct {
	Color led.Color

	start time.Time
}

func (*Pulse) Name() string { return "pulse" }

func (p *Pulse) Start(_ Canvas, now time.Time) {
	p.start = now
}

func (p *Pulse) NextStep(c Canvas, now time.Time) time.Duration {
	elapsed := now.Sub(p.start)
	if elapsed < 0 {
		elapsed = 0
	}

	if (elapsed/pulseHalf)%2 == 0 {
		c.Fill(led.RGB(p.Color.Red, p.Color.Green, p.Color.Blue))
	} else {
		c.Fill(led.Color{})
	}
	return pulseHalf - elapsed%pulseHalf
}

// Rainbow washes independent per-channel ramps along the strip.
type Rainbow struct {
	start time.Time
}

func (*Rainbow) Name() string { return "rainbow" }

func (r *Rainbow) Start(_ Canvas, now time.Time) {
	r.start = now
}

func (r *Rainbow) NextStep(c Canvas, now time.Time) time.Duration {
	t := int(now.Sub(r.start).Milliseconds())
	for i := 0; i < c.Len(); i++ {
		c.SetPixel(i, rainbowColor(i, t))
	}
	return rainbowStep
}

func rainbowColor(i, ms int) led.Color {
	return led.RGB(
		uint8((i*23+ms/10)%255),
		uint8((i*47+ms/15)%255),
		uint8((i*89+ms/20)%255),
	)
}

// RainbowSmooth cycles the HSV hue once per Period. With Gradient set the
// hue is spread over the strip, 360°·i/count apart.
type RainbowSmooth struct {
	Period     time.Duration
	Gradient   bool
	Saturation uint8
	Value      uint8

	start time.Time
}

func (*RainbowSmooth) Name() string { return "rainbow-smooth" }

func (r *RainbowSmooth) Start(_ Canvas, now time.Time) {
	r.start = now
}

func (r *RainbowSmooth) NextStep(c Canvas, now time.Time) time.Duration {
	base := r.BaseHue(now.Sub(r.start))
	for i := 0; i < c.Len(); i++ {
		c.SetPixel(i, r.color(r.PixelHue(base, i, c.Len())))
	}
	return smoothStep
}

// BaseHue is the hue in degrees shared by pixel 0 after elapsed.
func (r *RainbowSmooth) BaseHue(elapsed time.Duration) float64 {
	if r.Period <= 0 || elapsed < 0 {
		return 0
	}
	return float64(elapsed%r.Period) / float64(r.Period) * 360
}

// PixelHue is the hue of pixel i out of count for a given base hue.
func (r *RainbowSmooth) PixelHue(base float64, i, count int) float64 {
	if !r.Gradient || count <= 0 {
		return base
	}
	return math.Mod(base+360*float64(i)/float64(count), 360)
}

func (r *RainbowSmooth) color(hue float64) led.Color {
	red, green, blue := colorful.Hsv(hue, float64(r.Saturation)/255, float64(r.Value)/255).RGB255()
	return led.RGB(red, green, blue)
}

// Fade moves every pixel in a straight line from the colour it had when the
// fade started to Target. Durations of zero or less complete immediately.
type Fade struct {
	Target   led.Color
	Duration time.Duration

	start    time.Time
	snapshot []led.Color
}

func NewFade(target led.Color, d time.Duration) *Fade {
	return &Fade{Target: target, Duration: d}
}

func (*Fade) Name() string { return "fade" }

func (f *Fade) Start(c Canvas, now time.Time) {
	f.start = now
	f.snapshot = make([]led.Color, c.Len())
	for i := range f.snapshot {
		f.snapshot[i] = c.Pixel(i)
	}
}

func (f *Fade) NextStep(c Canvas, now time.Time) time.Duration {
	u := 1.0
	if f.Duration > 0 {
		u = math.Min(1, float64(now.Sub(f.start))/float64(f.Duration))
	}

	if u >= 1 {
		c.Fill(f.Target)
		f.snapshot = nil
		return 0
	}

	for i, from := range f.snapshot {
		c.SetPixel(i, led.Color{
			Red:   lerp(from.Red, f.Target.Red, u),
			Green: lerp(from.Green, f.Target.Green, u),
			Blue:  lerp(from.Blue, f.Target.Blue, u),
			White: lerp(from.White, f.Target.White, u),
		})
	}
	return fadeStep
}

// Progress reports the fade fraction at now, clamped to [0, 1].
func (f *Fade) Progress(now time.Time) float64 {
	if f.Duration <= 0 {
		return 1
	}
	return math.Max(0, math.Min(1, float64(now.Sub(f.start))/float64(f.Duration)))
}

func lerp(from, to uint8, u float64) uint8 {
	if u < 0 {
		u = 0
	}
	return uint8(int(from) + int(float64(int(to)-int(from))*u))
}

// Blink toggles between two colours. The agent uses it to signal state, in
// the fast burst and slow blink rhythms.
type Blink struct {
	Base, Active led.Color
	On, Off      time.Duration

	start time.Time
}

// NewBurstPattern flashes active briefly once per second.
func NewBurstPattern(base, active led.Color) *Blink {
	return &Blink{Base: base, Active: active, On: 100 * time.Millisecond, Off: 900 * time.Millisecond}
}

// NewSlowBlinkPattern alternates one second on, one second off.
func NewSlowBlinkPattern(base, active led.Color) *Blink {
	return &Blink{Base: base, Active: active, On: time.Second, Off: time.Second}
}

func (*Blink) Name() string { return "blink" }

func (b *Blink) Start(_ Canvas, now time.Time) {
	b.start = now
}

func (b *Blink) NextStep(c Canvas, now time.Time) time.Duration {
	on, off := b.On, b.Off
	if on <= 0 {
		on = pulseHalf
	}
	if off <= 0 {
		off = pulseHalf
	}

	elapsed := now.Sub(b.start)
	if elapsed < 0 {
		elapsed = 0
	}
	pos := elapsed % (on + off)
	if pos < on {
		c.Fill(b.Active)
		return on - pos
	}
	c.Fill(b.Base)
	return on + off - pos
}
