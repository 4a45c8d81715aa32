package alarm_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/moodlight-community/moodlight-agent/pkg/alarm"
	"github.com/moodlight-community/moodlight-agent/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-01 is a Monday.
var monday0630 = time.Date(2024, 1, 1, 6, 30, 0, 0, time.UTC)

var wake = alarm.Time{Weekday: time.Monday, Hour: 6, Minute: 30, Second: 0}

func TestTimeMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		at   time.Time
		want bool
	}{
		{monday0630, true},
		{monday0630.Add(500 * time.Millisecond), true},
		{monday0630.Add(time.Second), false},
		{monday0630.Add(-time.Minute), false},
		{monday0630.Add(24 * time.Hour), false},
		{monday0630.Add(7 * 24 * time.Hour), true},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, wake.Matches(tc.at), tc.at.String())
	}
	assert.Equal(t, "Monday 06:30:00", wake.String())
}

func TestTimeValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		at    alarm.Time
		valid bool
	}{
		{"monday morning", alarm.Time{Weekday: time.Monday, Hour: 6, Minute: 30}, true},
		{"last second of the week", alarm.Time{Weekday: time.Saturday, Hour: 23, Minute: 59, Second: 59}, true},
		{"weekday too large", alarm.Time{Weekday: 7}, false},
		{"negative weekday", alarm.Time{Weekday: -1}, false},
		{"hour 24", alarm.Time{Hour: 24}, false},
		{"minute 60", alarm.Time{Minute: 60}, false},
		{"negative second", alarm.Time{Second: -1}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.at.Validate()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPollFiresOncePerSecond(t *testing.T) {
	t.Parallel()

	m := alarm.New(context.Background(), alarm.Options{})
	var fired atomic.Int32
	require.NoError(t, m.Set("wake", wake, func() { fired.Add(1) }))

	assert.Empty(t, m.Poll(monday0630.Add(-time.Second)))
	assert.Equal(t, []string{"wake"}, m.Poll(monday0630))
	assert.Empty(t, m.Poll(monday0630.Add(300*time.Millisecond)))
	assert.Equal(t, int32(1), fired.Load())

	assert.Equal(t, []string{"wake"}, m.Poll(monday0630.Add(7*24*time.Hour)))
	assert.Equal(t, int32(2), fired.Load())
}

func TestSetFirstFreeOrMatchingSlot(t *testing.T) {
	t.Parallel()

	m := alarm.New(context.Background(), alarm.Options{})
	for i := 0; i < alarm.Capacity; i++ {
		require.NoError(t, m.Set(fmt.Sprintf("a%d", i), wake, nil))
	}
	assert.ErrorIs(t, m.Set("overflow", wake, nil), alarm.ErrTableFull)

	// Replacing an existing id always succeeds.
	later := wake
	later.Hour = 7
	require.NoError(t, m.Set("a3", later, nil))
	list := m.List()
	require.Len(t, list, alarm.Capacity)
	assert.Equal(t, later, list[3].Time)

	assert.True(t, m.Clear("a5"))
	assert.False(t, m.Clear("a5"))
	require.NoError(t, m.Set("new", wake, nil))
	assert.Equal(t, "new", m.List()[5].ID)
}

func TestClearedAlarmDoesNotFire(t *testing.T) {
	t.Parallel()

	m := alarm.New(context.Background(), alarm.Options{})
	require.NoError(t, m.Set("wake", wake, func() { t.Error("cleared alarm fired") }))
	require.True(t, m.Clear("wake"))
	assert.Empty(t, m.Poll(monday0630))
}

func TestPersistence(t *testing.T) {
	t.Parallel()

	blobs := store.NewMemory()
	m := alarm.New(context.Background(), alarm.Options{Store: blobs})
	require.NoError(t, m.Set("wake", wake, nil))
	require.NoError(t, m.Set("nap", alarm.Time{Weekday: time.Sunday, Hour: 14}, nil))
	require.NoError(t, m.Save())

	restored := alarm.New(context.Background(), alarm.Options{Store: blobs})
	require.NoError(t, restored.Load())
	assert.Equal(t, m.List(), restored.List())

	var fired []string
	restored.Bind(func(id string) { fired = append(fired, id) })
	restored.Poll(monday0630)
	assert.Equal(t, []string{"wake"}, fired)
}

func TestLoadWithoutBlob(t *testing.T) {
	t.Parallel()

	m := alarm.New(context.Background(), alarm.Options{Store: store.NewMemory()})
	require.NoError(t, m.Load())
	assert.Empty(t, m.List())
}

func TestRunSkipsUnsyncedClock(t *testing.T) {
	t.Parallel()

	var synced atomic.Bool
	src := alarm.TimeSourceFunc(func() (time.Time, bool) {
		if !synced.Load() {
			return time.Time{}, false
		}
		return monday0630, true
	})

	m := alarm.New(context.Background(), alarm.Options{TimeSource: src, Interval: 5 * time.Millisecond})
	fired := make(chan struct{}, 1)
	require.NoError(t, m.Set("wake", wake, func() { fired <- struct{}{} }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	select {
	case <-fired:
		t.Fatal("fired before the clock was valid")
	case <-time.After(30 * time.Millisecond):
	}

	synced.Store(true)
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("alarm did not fire")
	}
}

func TestSystemTime(t *testing.T) {
	t.Parallel()

	now, ok := alarm.SystemTime{Location: time.UTC}.LocalTime()
	require.True(t, ok)
	assert.Equal(t, time.UTC, now.Location())
}
