package scene_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/moodlight-community/moodlight-agent/pkg/hal/led"
	"github.com/moodlight-community/moodlight-agent/pkg/ledengine"
	"github.com/moodlight-community/moodlight-agent/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sceneFile = `
[[scene]]
name = "reading"
mode = "fade"
color = "#ffb46b"
duration = "2s"

[[scene]]
name = "party"
mode = "rainbow-smooth"
period = "8s"
gradient = true
saturation = 255
value = 200

[[scene]]
name = "off"
mode = "off"
duration = "500ms"
`

func TestParse(t *testing.T) {
	t.Parallel()

	f, err := scene.Parse(strings.NewReader(sceneFile))
	require.NoError(t, err)
	require.Len(t, f.Scenes, 3)

	reading := f.Scenes[0]
	assert.Equal(t, scene.ModeFade, reading.Mode)
	assert.Equal(t, led.RGB(0xff, 0xb4, 0x6b), reading.Color)
	assert.Equal(t, scene.Duration(2*time.Second), reading.Duration)

	a, err := reading.Animation()
	require.NoError(t, err)
	assert.Equal(t, ledengine.NewFade(led.RGB(0xff, 0xb4, 0x6b), 2*time.Second), a)

	a, err = f.Scenes[1].Animation()
	require.NoError(t, err)
	assert.Equal(t, &ledengine.RainbowSmooth{Period: 8 * time.Second, Gradient: true, Saturation: 255, Value: 200}, a)

	a, err = f.Scenes[2].Animation()
	require.NoError(t, err)
	assert.Equal(t, ledengine.NewFade(led.Color{}, 500*time.Millisecond), a)
}

func TestParseRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"empty":        ``,
		"unknown mode": "[[scene]]\nname = \"x\"\nmode = \"sparkle\"\n",
		"no name":      "[[scene]]\nmode = \"static\"\n",
		"duplicate":    "[[scene]]\nname = \"x\"\nmode = \"static\"\n[[scene]]\nname = \"x\"\nmode = \"pulse\"\n",
		"no period":    "[[scene]]\nname = \"x\"\nmode = \"rainbow-smooth\"\n",
		"saturation":   "[[scene]]\nname = \"x\"\nmode = \"rainbow-smooth\"\nperiod = \"1s\"\nsaturation = 300\n",
		"bad color":    "[[scene]]\nname = \"x\"\nmode = \"static\"\ncolor = \"red\"\n",
		"bad duration": "[[scene]]\nname = \"x\"\nmode = \"fade\"\nduration = \"soon\"\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := scene.Parse(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	f, err := scene.Load(filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, scene.Default(), f)

	path := filepath.Join(dir, "scenes.toml")
	require.NoError(t, os.WriteFile(path, []byte(sceneFile), 0o644))
	f, err = scene.Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Scenes, 3)

	require.NoError(t, os.WriteFile(path, []byte("[[scene]]\nname = 1"), 0o644))
	_, err = scene.Load(path)
	assert.ErrorContains(t, err, path)
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	f := scene.Default()
	require.NoError(t, f.Validate())
	for _, s := range f.Scenes {
		_, err := s.Animation()
		assert.NoError(t, err, s.Name)
	}
}

func TestCycler(t *testing.T) {
	t.Parallel()

	c := scene.NewCycler(scene.Default())
	var names []string
	for i := 0; i < 5; i++ {
		names = append(names, c.Next().Name)
	}
	assert.Equal(t, []string{"warm", "night", "rainbow", "off", "warm"}, names)
}

func TestSceneAnimation(t *testing.T) {
	t.Parallel()

	red := led.RGB(255, 0, 0)
	testCases := []struct {
		scene    scene.Scene
		expected string
	}{
		{scene.Scene{Mode: scene.ModeStatic, Color: red}, "static"},
		{scene.Scene{Mode: scene.ModeBreath, Color: red}, "breath"},
		{scene.Scene{Mode: scene.ModePulse, Color: red}, "pulse"},
		{scene.Scene{Mode: scene.ModeRainbow}, "rainbow"},
		{scene.Scene{Mode: scene.ModeRainbowSmooth, Period: scene.Duration(time.Second), Value: 255}, "rainbow-smooth"},
		{scene.Scene{Mode: scene.ModeFade, Color: red}, "fade"},
		{scene.Scene{Mode: scene.ModeBlink, Color: red}, "blink"},
		{scene.Scene{Mode: scene.ModeBurst, Color: red}, "blink"},
		{scene.Scene{Mode: scene.ModeOff}, "fade"},
	}

	for _, tc := range testCases {
		t.Run(string(tc.scene.Mode), func(t *testing.T) {
			t.Parallel()
			a, err := tc.scene.Animation()
			require.NoError(t, err)
			assert.Equal(t, tc.expected, a.Name())
		})
	}

	_, err := scene.Scene{Mode: "strobe"}.Animation()
	assert.Error(t, err)
}
