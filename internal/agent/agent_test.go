package agent_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/moodlight-community/moodlight-agent/internal/agent"
	"github.com/moodlight-community/moodlight-agent/pkg/alarm"
	"github.com/moodlight-community/moodlight-agent/pkg/clock"
	"github.com/moodlight-community/moodlight-agent/pkg/hal/haltest"
	"github.com/moodlight-community/moodlight-agent/pkg/hal/led"
	"github.com/moodlight-community/moodlight-agent/pkg/scene"
	"github.com/moodlight-community/moodlight-agent/pkg/store"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 3 * time.Second
	tick    = 5 * time.Millisecond
)

const testScenes = `
[[scene]]
name = "red"
mode = "static"
color = "#ff0000"

[[scene]]
name = "blue"
mode = "pulse"
color = "#0000ff"
`

type testAgent struct {
	agent.MoodlightAgent
	recorder *haltest.Recorder
	socket   string
}

// startAgent runs an agent on a recording transmitter with the button and
// knob disabled. mutate adjusts the configuration before it is loaded.
func startAgent(t *testing.T, mutate func(v *viper.Viper), opts ...agent.AgentOption) *testAgent {
	t.Helper()

	dir := t.TempDir()
	scenesFile := filepath.Join(dir, "scenes.toml")
	require.NoError(t, os.WriteFile(scenesFile, []byte(testScenes), 0o600))

	v := defaultViper()
	v.Set("listen.grpc", filepath.Join(dir, "agent.sock"))
	v.Set("listen.metrics", "")
	v.Set("strip.count", 4)
	v.Set("button.enabled", false)
	v.Set("pot.enabled", false)
	v.Set("scenes_file", scenesFile)
	v.Set("store_path", "")
	if mutate != nil {
		mutate(v)
	}

	config, herr := agent.LoadConfig(v)
	require.Nil(t, herr)

	ctx, cancel := context.WithCancel(context.Background())
	recorder := haltest.NewRecorder(0)
	a, err := agent.NewMoodlightAgent(ctx, config, append([]agent.AgentOption{agent.WithTransmitter(recorder)}, opts...)...)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		err := <-done
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("agent failed: %v", err)
		}
		assert.NoError(t, a.GracefulStop(context.Background()))
	})

	return &testAgent{MoodlightAgent: a, recorder: recorder, socket: config.Listen.Grpc}
}

func (a *testAgent) frameIs(c led.Color) func() bool {
	return func() bool {
		return slices.Equal(a.Status(context.Background()).Frame, []led.Color{c, c, c, c})
	}
}

func (a *testAgent) modeIs(mode string) func() bool {
	return func() bool {
		return a.Status(context.Background()).Mode == mode
	}
}

func TestAgentBootsIntoBreath(t *testing.T) {
	t.Parallel()

	a := startAgent(t, nil)

	require.Eventually(t, a.modeIs("breath"), waitFor, tick)
	require.Eventually(t, func() bool { return a.recorder.Frames() > 1 }, waitFor, tick)

	st := a.Status(context.Background())
	assert.True(t, st.Running)
	assert.Equal(t, 4, st.Count)
	assert.Equal(t, "GRBW", st.Order)
	assert.Equal(t, uint8(255), st.BrightnessCap)
	assert.True(t, st.CapAutomatic)
}

func TestAgentKeepsSceneSetRightAfterStart(t *testing.T) {
	t.Parallel()

	a := startAgent(t, nil)
	red := led.RGB(255, 0, 0)
	require.NoError(t, a.SetScene(context.Background(), scene.Scene{Name: "red", Mode: scene.ModeStatic, Color: red}))

	require.Eventually(t, a.frameIs(red), waitFor, tick)
	assert.Never(t, func() bool {
		return a.Status(context.Background()).Mode != "static"
	}, 300*time.Millisecond, tick)
	assert.True(t, a.frameIs(red)())
}

func TestAgentButtonCyclesScenes(t *testing.T) {
	t.Parallel()

	a := startAgent(t, nil)
	ctx := context.Background()

	require.NoError(t, a.EmitEvent(ctx, agent.Event{Kind: agent.ButtonPressEvent}))
	require.Eventually(t, a.modeIs("static"), waitFor, tick)
	require.Eventually(t, a.frameIs(led.RGB(255, 0, 0)), waitFor, tick)

	require.NoError(t, a.EmitEvent(ctx, agent.Event{Kind: agent.ButtonPressEvent}))
	require.Eventually(t, a.modeIs("pulse"), waitFor, tick)

	require.NoError(t, a.EmitEvent(ctx, agent.Event{Kind: agent.ButtonPressEvent}))
	require.Eventually(t, a.modeIs("static"), waitFor, tick)
}

func TestAgentKnobDrivesBrightnessCap(t *testing.T) {
	t.Parallel()

	a := startAgent(t, nil)
	ctx := context.Background()
	capIs := func(level uint8) func() bool {
		return func() bool { return a.Status(ctx).BrightnessCap == level }
	}

	// default curve: 8 + 247*50/100
	require.NoError(t, a.EmitEvent(ctx, agent.Event{Kind: agent.KnobEvent, Percent: 50}))
	require.Eventually(t, capIs(131), waitFor, tick)
	assert.Equal(t, uint8(50), a.Status(ctx).KnobPercent)

	a.SetBrightnessCap(ctx, 42)
	assert.Equal(t, uint8(42), a.Status(ctx).BrightnessCap)
	assert.False(t, a.Status(ctx).CapAutomatic)

	require.NoError(t, a.EmitEvent(ctx, agent.Event{Kind: agent.KnobEvent, Percent: 0}))
	require.Eventually(t, func() bool { return a.Status(ctx).KnobPercent == 0 }, waitFor, tick)
	assert.Equal(t, uint8(42), a.Status(ctx).BrightnessCap)

	a.ResetBrightnessCap(ctx)
	assert.Equal(t, uint8(8), a.Status(ctx).BrightnessCap)
	assert.True(t, a.Status(ctx).CapAutomatic)
}

type fixedADC struct {
	reads atomic.Int32
	raw   int
}

func (f *fixedADC) Read() (int, error) {
	f.reads.Add(1)
	return f.raw, nil
}

func TestAgentSamplesKnob(t *testing.T) {
	t.Parallel()

	adc := &fixedADC{raw: 0}
	a := startAgent(t, func(v *viper.Viper) {
		v.Set("pot.period", "5ms")
	}, agent.WithADC(adc))

	require.Eventually(t, func() bool { return a.Status(context.Background()).BrightnessCap == 8 }, waitFor, tick)
	assert.Positive(t, adc.reads.Load())
}

func TestAgentWakeSequence(t *testing.T) {
	t.Parallel()

	// Monday 06:30:00
	now := time.Date(2024, time.January, 1, 6, 30, 0, 0, time.UTC)
	wakeColor := led.RGBW(255, 147, 41, 96)

	a := startAgent(t, func(v *viper.Viper) {
		v.Set("alarms", []map[string]any{{"id": "monday", "weekday": 1, "hour": 6, "minute": 30}})
		v.Set("wake.fade_duration", "0s")
		v.Set("wake.off_after", "300ms")
		v.Set("wake.fade_out", "0s")
	}, agent.WithTimeSource(alarm.TimeSourceFunc(func() (time.Time, bool) {
		return now, true
	})))

	require.Eventually(t, a.frameIs(wakeColor), waitFor, tick)
	assert.Equal(t, 1, a.Status(context.Background()).TimersActive)
	assert.Equal(t, []string{"monday: Monday 06:30:00"}, a.Status(context.Background()).Alarms)

	require.Eventually(t, a.frameIs(led.Color{}), waitFor, tick)
	require.Eventually(t, a.modeIs("none"), waitFor, tick)
	assert.Zero(t, a.Status(context.Background()).TimersActive)
}

func TestAgentRestoresAlarmsFromStore(t *testing.T) {
	t.Parallel()

	blobs := store.NewMemory()
	seed := alarm.New(context.Background(), alarm.Options{Store: blobs})
	require.NoError(t, seed.Set("saved", alarm.Time{Weekday: time.Sunday, Hour: 8}, nil))
	require.NoError(t, seed.Save())

	a := startAgent(t, func(v *viper.Viper) {
		v.Set("alarms", []map[string]any{{"id": "configured", "weekday": 1, "hour": 7}})
	}, agent.WithStore(blobs))

	assert.ElementsMatch(t, []string{
		"saved: Sunday 08:00:00",
		"configured: Monday 07:00:00",
	}, a.Status(context.Background()).Alarms)
}

func TestAgentRemovedAlarmStaysRemoved(t *testing.T) {
	t.Parallel()

	blobs := store.NewMemory()
	seed := alarm.New(context.Background(), alarm.Options{Store: blobs})
	require.NoError(t, seed.Set("weekday-wake", alarm.Time{Weekday: time.Monday, Hour: 6}, nil))
	require.NoError(t, seed.Save())

	first := startAgent(t, nil, agent.WithStore(blobs))
	require.Equal(t, []string{"weekday-wake: Monday 06:00:00"}, first.Status(context.Background()).Alarms)

	assert.True(t, first.RemoveAlarm(context.Background(), "weekday-wake"))
	assert.False(t, first.RemoveAlarm(context.Background(), "weekday-wake"))
	assert.Empty(t, first.Status(context.Background()).Alarms)

	restarted := startAgent(t, nil, agent.WithStore(blobs))
	assert.Empty(t, restarted.Status(context.Background()).Alarms)
}

func TestAgentSetAlarmPersists(t *testing.T) {
	t.Parallel()

	blobs := store.NewMemory()
	first := startAgent(t, nil, agent.WithStore(blobs))
	require.NoError(t, first.SetAlarm(context.Background(), "nap", alarm.Time{Weekday: time.Sunday, Hour: 14, Minute: 15}))

	restarted := startAgent(t, nil, agent.WithStore(blobs))
	assert.Equal(t, []string{"nap: Sunday 14:15:00"}, restarted.Status(context.Background()).Alarms)
}

func TestAgentSleepTimer(t *testing.T) {
	t.Parallel()

	a := startAgent(t, nil)
	ctx := context.Background()

	require.NoError(t, a.SetScene(ctx, scene.Scene{Name: "red", Mode: scene.ModeStatic, Color: led.RGB(255, 0, 0)}))
	require.Eventually(t, a.frameIs(led.RGB(255, 0, 0)), waitFor, tick)

	long, err := a.StartSleepTimer(ctx, time.Hour, 0)
	require.NoError(t, err)
	assert.True(t, a.CancelSleepTimer(ctx, long))
	assert.False(t, a.CancelSleepTimer(ctx, long))

	_, err = a.StartSleepTimer(ctx, 10*time.Millisecond, 0)
	require.NoError(t, err)
	require.Eventually(t, a.frameIs(led.Color{}), waitFor, tick)
	require.Eventually(t, a.modeIs("none"), waitFor, tick)
}

func TestAgentFadeFollowsClock(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock(time.Date(2024, 3, 4, 22, 0, 0, 0, time.UTC))
	a := startAgent(t, nil, agent.WithClock(mock))
	require.Eventually(t, a.modeIs("breath"), waitFor, tick)

	green := led.RGB(0, 255, 0)
	a.FadeTo(context.Background(), green, time.Minute)
	assert.Equal(t, "fade", a.Status(context.Background()).Mode)

	// the fade only progresses when the clock moves
	require.Eventually(t, func() bool {
		mock.Advance(time.Minute)
		return a.frameIs(green)()
	}, waitFor, tick)
	require.Eventually(t, a.modeIs("none"), waitFor, tick)
}

func TestAgentSetSceneRejectsInvalid(t *testing.T) {
	t.Parallel()

	a := startAgent(t, nil)
	err := a.SetScene(context.Background(), scene.Scene{Mode: "strobe"})
	assert.Error(t, err)
	assert.Eventually(t, a.modeIs("breath"), waitFor, tick)
}

func TestAgentGracefulStopTurnsStripOff(t *testing.T) {
	t.Parallel()

	v := defaultViper()
	v.Set("listen.grpc", filepath.Join(t.TempDir(), "agent.sock"))
	v.Set("listen.metrics", "")
	v.Set("strip.count", 2)
	v.Set("strip.order", "grb")
	v.Set("button.enabled", false)
	v.Set("pot.enabled", false)
	v.Set("scenes_file", "")
	v.Set("store_path", "")
	config, herr := agent.LoadConfig(v)
	require.Nil(t, herr)

	ctx, cancel := context.WithCancel(context.Background())
	recorder := haltest.NewRecorder(0)
	a, err := agent.NewMoodlightAgent(ctx, config, agent.WithTransmitter(recorder))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.NoError(t, a.SetScene(ctx, scene.Scene{Mode: scene.ModeStatic, Color: led.RGB(1, 2, 3)}))
	require.Eventually(t, func() bool {
		return slices.Equal(recorder.LastBytes(), []byte{2, 1, 3, 2, 1, 3})
	}, waitFor, tick)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	require.NoError(t, a.GracefulStop(context.Background()))

	assert.Equal(t, make([]byte, 6), recorder.LastBytes())
	assert.True(t, recorder.Closed())
}

func TestNewMoodlightAgentClosesTransmitterOnError(t *testing.T) {
	t.Parallel()

	scenesFile := filepath.Join(t.TempDir(), "scenes.toml")
	require.NoError(t, os.WriteFile(scenesFile, []byte("[[scene]]\nname = \"x\"\nmode = \"strobe\"\n"), 0o600))

	v := defaultViper()
	v.Set("scenes_file", scenesFile)
	v.Set("store_path", "")
	v.Set("button.enabled", false)
	v.Set("pot.enabled", false)
	config, herr := agent.LoadConfig(v)
	require.Nil(t, herr)

	recorder := haltest.NewRecorder(0)
	_, err := agent.NewMoodlightAgent(context.Background(), config, agent.WithTransmitter(recorder))
	assert.Error(t, err)
	assert.True(t, recorder.Closed())
}
