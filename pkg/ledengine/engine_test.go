package ledengine_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/moodlight-community/moodlight-agent/pkg/clock"
	"github.com/moodlight-community/moodlight-agent/pkg/hal/haltest"
	"github.com/moodlight-community/moodlight-agent/pkg/hal/led"
	"github.com/moodlight-community/moodlight-agent/pkg/ledengine"
	"github.com/moodlight-community/moodlight-agent/pkg/pixel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)

type fixture struct {
	engine *ledengine.Engine
	strip  *pixel.Strip
	rec    *haltest.Recorder
	clock  *clock.Mock
}

func newFixture(t *testing.T, count int, order pixel.Order) *fixture {
	t.Helper()

	rec := haltest.NewRecorder(0)
	strip, err := pixel.NewStrip(context.Background(), rec, count, order)
	require.NoError(t, err)

	clk := clock.NewMock(epoch)
	e := ledengine.New(context.Background(), ledengine.Options{
		Strip:  strip,
		Clock:  clk,
		Manual: true,
	})
	return &fixture{engine: e, strip: strip, rec: rec, clock: clk}
}

func (f *fixture) step(t *testing.T) time.Duration {
	t.Helper()
	return f.engine.Step(context.Background(), f.clock.Now())
}

func (f *fixture) bufferBytes() []byte {
	var out []byte
	f.strip.Update(func(b *pixel.Buffer) { out = b.Bytes() })
	return out
}

func TestNewEngineIsIdle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 4, pixel.OrderGRB)
	assert.Equal(t, "none", f.engine.Mode())
	assert.False(t, f.engine.Running())

	assert.Equal(t, ledengine.DefaultIdleInterval, f.step(t))
	assert.Equal(t, 0, f.rec.Frames(), "idle ticks do not transmit")
}

func TestFadeConvergesMonotonically(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3, pixel.OrderGRBW)
	start := []led.Color{
		led.RGBW(0, 255, 10, 0),
		led.RGBW(200, 0, 100, 50),
		led.RGBW(30, 30, 30, 255),
	}
	for i, c := range start {
		f.strip.SetPixel(i, c)
	}
	target := led.RGBW(100, 100, 100, 100)
	d := time.Second

	f.engine.FadeTo(target, d)
	assert.Equal(t, "fade", f.engine.Mode())

	var samples [][]led.Color
	for _, at := range []time.Duration{0, d / 2, d} {
		f.clock.Set(epoch.Add(at))
		f.step(t)
		samples = append(samples, f.strip.Snapshot())
	}

	assert.Equal(t, start, samples[0])
	for i := range start {
		for _, ch := range []func(led.Color) uint8{
			func(c led.Color) uint8 { return c.Red },
			func(c led.Color) uint8 { return c.Green },
			func(c led.Color) uint8 { return c.Blue },
			func(c led.Color) uint8 { return c.White },
		} {
			from, to := int(ch(start[i])), int(ch(target))
			prev := from
			for _, s := range samples {
				v := int(ch(s[i]))
				if to >= from {
					assert.GreaterOrEqual(t, v, prev, "pixel %d", i)
					assert.LessOrEqual(t, v, to, "pixel %d", i)
				} else {
					assert.LessOrEqual(t, v, prev, "pixel %d", i)
					assert.GreaterOrEqual(t, v, to, "pixel %d", i)
				}
				prev = v
			}
		}
	}

	for _, c := range samples[2] {
		assert.Equal(t, target, c)
	}
	assert.Equal(t, "none", f.engine.Mode())
}

func TestFadeMidpointTruncates(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1, pixel.OrderGRB)
	f.strip.SetPixel(0, led.RGB(0, 255, 101))
	f.engine.FadeTo(led.RGB(255, 0, 0), time.Second)

	f.step(t)
	f.clock.Advance(500 * time.Millisecond)
	assert.Equal(t, 20*time.Millisecond, f.step(t))

	// 0 + 255*0.5 = 127.5, 255 - 127.5 = 127.5, 101 - 50.5 = 50.5
	assert.Equal(t, led.RGB(127, 128, 51), f.strip.Pixel(0))
}

func TestFadeZeroDurationSnaps(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2, pixel.OrderGRB)
	f.strip.Fill(led.RGB(1, 2, 3))
	f.engine.FadeTo(led.RGB(9, 9, 9), 0)

	f.step(t)
	assert.Equal(t, led.RGB(9, 9, 9), f.strip.Pixel(0))
	assert.Equal(t, led.RGB(9, 9, 9), f.strip.Pixel(1))
	assert.Equal(t, "none", f.engine.Mode())
	assert.Equal(t, 1, f.rec.Frames())
}

func TestFadeSnapshotsIntentNotCappedOutput(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1, pixel.OrderGRB)
	f.strip.SetBrightnessCap(128)
	f.strip.Fill(led.RGB(200, 0, 0))
	require.NoError(t, f.strip.Show(context.Background()))

	f.engine.FadeTo(led.RGB(0, 0, 0), time.Second)
	f.step(t)

	assert.Equal(t, led.RGB(200, 0, 0), f.strip.Pixel(0))
	assert.Equal(t, byte(100), f.rec.LastBytes()[1])
}

func TestModeExclusivity(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 5, pixel.OrderGRB)
	f.engine.StartMode(ledengine.ModeRainbow, led.Color{})
	f.engine.StartMode(ledengine.ModeStatic, led.RGB(0, 40, 0))
	assert.Equal(t, "static", f.engine.Mode())

	f.clock.Advance(1234 * time.Millisecond)
	f.step(t)

	for i := 0; i < 5; i++ {
		assert.Equal(t, led.RGB(0, 40, 0), f.strip.Pixel(i))
	}
	assert.Equal(t, 1, f.rec.Frames())
}

func TestFadeInterruptedByModeSwitch(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2, pixel.OrderGRB)
	f.engine.FadeTo(led.RGB(255, 255, 255), time.Second)
	f.step(t)

	f.engine.StartMode(ledengine.ModePulse, led.RGB(10, 0, 0))
	f.clock.Advance(2 * time.Second)
	f.step(t)

	assert.Equal(t, "pulse", f.engine.Mode())
	assert.Equal(t, led.RGB(10, 0, 0), f.strip.Pixel(0))
}

func TestCapIdentityAtFullBrightness(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 6, pixel.OrderGRB)
	f.engine.Start(&ledengine.Rainbow{})
	for i := 0; i < 5; i++ {
		f.step(t)
		assert.Equal(t, f.bufferBytes(), f.rec.LastBytes())
		f.clock.Advance(170 * time.Millisecond)
	}
}

func TestBrightnessCapScenario(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 8, pixel.OrderGRB)
	f.engine.SetBrightnessCap(128)
	f.strip.Fill(led.RGB(255, 0, 0))
	require.NoError(t, f.strip.Show(context.Background()))

	decoded, err := f.strip.Encoder().Decode(f.rec.Last())
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		assert.Equal(t, byte(128), decoded[i*3+1])
	}
}

func TestBrightnessCapReshowsWhileIdle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2, pixel.OrderGRB)
	f.strip.Fill(led.RGB(0, 0, 200))
	f.engine.SetBrightnessCap(51)
	assert.Equal(t, uint8(51), f.engine.BrightnessCap())

	f.step(t)
	require.Equal(t, 1, f.rec.Frames())
	assert.Equal(t, []byte{0, 0, 40, 0, 0, 40}, f.rec.LastBytes())

	f.step(t)
	assert.Equal(t, 1, f.rec.Frames(), "no further frames without changes")
}

func TestBreathFollowsSine(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3, pixel.OrderGRBW)
	f.engine.StartMode(ledengine.ModeBreath, led.RGBW(255, 255, 0, 255))

	assert.Equal(t, 20*time.Millisecond, f.step(t))
	assert.Equal(t, led.RGBW(60, 60, 0, 0), f.strip.Pixel(0))

	f.clock.Advance(500 * time.Millisecond)
	f.step(t)
	assert.Equal(t, led.RGBW(120, 120, 0, 0), f.strip.Pixel(2))

	f.clock.Advance(time.Second)
	f.step(t)
	assert.Equal(t, led.Color{}, f.strip.Pixel(1))
}

func TestPulseAlternates(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2, pixel.OrderGRB)
	f.engine.StartMode(ledengine.ModePulse, led.RGB(0, 0, 99))

	assert.Equal(t, 500*time.Millisecond, f.step(t))
	assert.Equal(t, led.RGB(0, 0, 99), f.strip.Pixel(1))

	f.clock.Advance(600 * time.Millisecond)
	assert.Equal(t, 400*time.Millisecond, f.step(t))
	assert.Equal(t, led.Color{}, f.strip.Pixel(1))

	f.clock.Advance(400 * time.Millisecond)
	f.step(t)
	assert.Equal(t, led.RGB(0, 0, 99), f.strip.Pixel(0))
}

func TestRainbowChannels(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2, pixel.OrderGRB)
	f.engine.StartMode(ledengine.ModeRainbow, led.Color{})
	f.step(t)
	f.clock.Advance(time.Second)
	assert.Equal(t, 50*time.Millisecond, f.step(t))

	assert.Equal(t, led.RGB(100, 66, 50), f.strip.Pixel(0))
	assert.Equal(t, led.RGB(123, 113, 139), f.strip.Pixel(1))
}

func TestRainbowSmoothGradient(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 4, pixel.OrderGRB)
	f.engine.RainbowSmoothStart(10*time.Second, true, 255, 255)
	assert.Equal(t, "rainbow-smooth", f.engine.Mode())

	// A whole period in, the base hue is back at 0°.
	f.step(t)
	f.clock.Advance(10 * time.Second)
	f.step(t)

	for i, hue := range []float64{0, 90, 180, 270} {
		r, g, b := colorful.Hsv(hue, 1, 1).RGB255()
		assert.Equal(t, led.RGB(r, g, b), f.strip.Pixel(i), "pixel %d", i)
	}
}

func TestRainbowSmoothSharedHue(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3, pixel.OrderGRB)
	f.engine.RainbowSmoothStart(4*time.Second, false, 255, 128)
	f.step(t)
	f.clock.Advance(time.Second)
	f.step(t)

	r, g, b := colorful.Hsv(90, 1, 128.0/255).RGB255()
	for i := 0; i < 3; i++ {
		assert.Equal(t, led.RGB(r, g, b), f.strip.Pixel(i))
	}
}

func TestUnknownModeFallsBackToNone(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1, pixel.OrderGRB)
	f.engine.StartMode("sparkle", led.RGB(1, 1, 1))
	assert.Equal(t, "none", f.engine.Mode())
	f.step(t)
	assert.Equal(t, 0, f.rec.Frames())
}

func TestLoopLifecycle(t *testing.T) {
	t.Parallel()

	rec := haltest.NewRecorder(0)
	strip, err := pixel.NewStrip(context.Background(), rec, 2, pixel.OrderGRB)
	require.NoError(t, err)

	e := ledengine.New(context.Background(), ledengine.Options{Strip: strip})
	assert.False(t, e.Running())

	e.StartMode(ledengine.ModeStatic, led.RGB(5, 5, 5))
	assert.True(t, e.Running())
	select {
	case <-rec.Sent():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not render")
	}

	e.Stop()
	e.Wait()
	assert.False(t, e.Running())
	assert.Equal(t, "none", e.Mode())

	e.FadeTo(led.RGB(0, 0, 0), 0)
	assert.True(t, e.Running())
	assert.Eventually(t, func() bool { return e.Mode() == "none" && strip.Pixel(0) == led.Color{} },
		2*time.Second, 10*time.Millisecond)

	e.Stop()
	e.Wait()
}

func TestLoopExitsWithContext(t *testing.T) {
	t.Parallel()

	strip, err := pixel.NewStrip(context.Background(), haltest.NewRecorder(0), 1, pixel.OrderGRB)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	e := ledengine.New(ctx, ledengine.Options{Strip: strip})
	e.StartMode(ledengine.ModeBreath, led.RGB(0, 0, 255))
	cancel()
	e.Wait()
	assert.False(t, e.Running())
}

func TestBrightnessCapAppliesAfterStop(t *testing.T) {
	t.Parallel()

	rec := haltest.NewRecorder(0)
	strip, err := pixel.NewStrip(context.Background(), rec, 2, pixel.OrderGRB)
	require.NoError(t, err)

	e := ledengine.New(context.Background(), ledengine.Options{Strip: strip})
	e.StartMode(ledengine.ModeStatic, led.RGB(0, 0, 200))
	require.Eventually(t, func() bool { return bytes.Equal(rec.LastBytes(), []byte{0, 0, 200, 0, 0, 200}) },
		2*time.Second, 10*time.Millisecond)

	e.Stop()
	e.Wait()
	frames := rec.Frames()

	e.SetBrightnessCap(51)
	assert.Equal(t, frames+1, rec.Frames())
	assert.Equal(t, []byte{0, 0, 40, 0, 0, 40}, rec.LastBytes())
	assert.False(t, e.Running())
}
