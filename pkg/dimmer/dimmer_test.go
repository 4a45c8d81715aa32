package dimmer_test

import (
	"testing"

	"github.com/moodlight-community/moodlight-agent/pkg/dimmer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearDimmer_Level(t *testing.T) {
	t.Parallel()

	config := dimmer.Config{
		Steps: []dimmer.Step{
			{Percent: 20, Level: 40},
			{Percent: 60, Level: 200},
			{Percent: 80, Level: 255},
		},
	}

	d, err := dimmer.NewLinearDimmer(config)
	require.Nil(t, err)
	assert.Equal(t, config.Steps, d.Steps())

	testCases := []struct {
		name     string
		percent  uint8
		expected uint8
	}{
		{"below minimum", 0, 40},
		{"at step 0", 20, 40},
		{"between step 0-1", 40, 120},
		{"at step 1", 60, 200},
		{"between step 1-2", 70, 227},
		{"at last step", 80, 255},
		{"above maximum", 100, 255},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, d.Level(tc.percent))
			assert.True(t, d.IsAutomatic())
		})
	}
}

func TestLinearDimmer_UnsortedSteps(t *testing.T) {
	t.Parallel()

	d, err := dimmer.NewLinearDimmer(dimmer.Config{
		Steps: []dimmer.Step{
			{Percent: 100, Level: 255},
			{Percent: 0, Level: 0},
		},
	})
	require.Nil(t, err)
	assert.Equal(t, uint8(127), d.Level(50))
}

func TestLinearDimmer_Override(t *testing.T) {
	t.Parallel()

	d, err := dimmer.NewLinearDimmer(dimmer.DefaultConfig())
	require.Nil(t, err)

	d.Override(&dimmer.OverrideOpts{Level: 99})
	assert.False(t, d.IsAutomatic())
	assert.Equal(t, uint8(99), d.Level(0))
	assert.Equal(t, uint8(99), d.Level(100))

	d.Override(nil)
	assert.True(t, d.IsAutomatic())
	assert.Equal(t, uint8(8), d.Level(0))
	assert.Equal(t, uint8(255), d.Level(100))
}

func TestLinearDimmer_InvalidConfig(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		steps []dimmer.Step
	}{
		{"no steps", nil},
		{"repeated position", []dimmer.Step{{Percent: 10, Level: 10}, {Percent: 10, Level: 20}}},
		{"decreasing level", []dimmer.Step{{Percent: 10, Level: 100}, {Percent: 20, Level: 50}}},
		{"position out of range", []dimmer.Step{{Percent: 10, Level: 10}, {Percent: 120, Level: 20}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d, err := dimmer.NewLinearDimmer(dimmer.Config{Steps: tc.steps})
			assert.Nil(t, d)
			assert.NotNil(t, err)
		})
	}
}
