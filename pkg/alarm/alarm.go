// Package alarm fires callbacks at a weekday and time of day.
package alarm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/moodlight-community/moodlight-agent/pkg/log"
	"github.com/moodlight-community/moodlight-agent/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	// Capacity is the number of alarm slots.
	Capacity = 8
	// StoreKey is the blob the alarm table is persisted under.
	StoreKey = "alarms"

	maxStoredLen = 4096
)

var ErrTableFull = errors.New("alarm table is full")

var alarmsFired = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "moodlight",
	Subsystem: "alarm",
	Name:      "fired_total",
	Help:      "Alarms that matched the local time",
}, []string{"id"})

// Time is the moment an alarm matches, compared field by field with the
// local time.
type Time struct {
	Weekday time.Weekday `yaml:"weekday" mapstructure:"weekday"`
	Hour    int          `yaml:"hour" mapstructure:"hour"`
	Minute  int          `yaml:"minute" mapstructure:"minute"`
	Second  int          `yaml:"second" mapstructure:"second"`
}

func (t Time) String() string {
	return fmt.Sprintf("%s %02d:%02d:%02d", t.Weekday, t.Hour, t.Minute, t.Second)
}

// Validate checks that every field is a real weekday or time of day.
func (t Time) Validate() error {
	if t.Weekday < time.Sunday || t.Weekday > time.Saturday ||
		t.Hour < 0 || t.Hour > 23 ||
		t.Minute < 0 || t.Minute > 59 ||
		t.Second < 0 || t.Second > 59 {
		return fmt.Errorf("invalid alarm time %d %02d:%02d:%02d", int(t.Weekday), t.Hour, t.Minute, t.Second)
	}
	return nil
}

// Matches reports whether now falls on this weekday, hour, minute and second.
func (t Time) Matches(now time.Time) bool {
	return now.Weekday() == t.Weekday &&
		now.Hour() == t.Hour &&
		now.Minute() == t.Minute &&
		now.Second() == t.Second
}

// Alarm is a persisted table entry.
type Alarm struct {
	ID     string `yaml:"id"`
	Time   Time   `yaml:"time"`
	Active bool   `yaml:"active"`
}

type entry struct {
	Alarm
	callback  func()
	lastFired time.Time
}

type Options struct {
	// Store persists the table. Nil disables persistence.
	Store store.BlobStore
	// TimeSource defaults to SystemTime.
	TimeSource TimeSource
	// Interval between polls, one second unless set.
	Interval time.Duration
}

// Manager holds up to Capacity alarms.
type Manager struct {
	logger   *log.Logger
	store    store.BlobStore
	src      TimeSource
	interval time.Duration

	mu    sync.Mutex
	slots [Capacity]entry
}

func New(ctx context.Context, opts Options) *Manager {
	if opts.TimeSource == nil {
		opts.TimeSource = SystemTime{}
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	return &Manager{
		logger:   log.FromContext(ctx),
		store:    opts.Store,
		src:      opts.TimeSource,
		interval: opts.Interval,
	}
}

// Set installs or replaces alarm id. The first slot that is free or already
// holds id wins.
func (m *Manager) Set(id string, at Time, cb func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.slots {
		s := &m.slots[i]
		if s.Active && s.ID != id {
			continue
		}
		*s = entry{Alarm: Alarm{ID: id, Time: at, Active: true}, callback: cb}
		return nil
	}
	return ErrTableFull
}

// Clear deactivates alarm id and persists the table.
func (m *Manager) Clear(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.slots {
		s := &m.slots[i]
		if s.Active && s.ID == id {
			s.Active = false
			s.callback = nil
			if err := m.saveLocked(); err != nil {
				m.logger.WithError(err).Warn("failed to persist alarms")
			}
			return true
		}
	}
	return false
}

// List returns the active alarms.
func (m *Manager) List() []Alarm {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Alarm
	for _, s := range m.slots {
		if s.Active {
			out = append(out, s.Alarm)
		}
	}
	return out
}

// Poll fires every active alarm matching now, at most once per second, and
// returns the ids fired. Callbacks run on the caller's goroutine.
func (m *Manager) Poll(now time.Time) []string {
	second := now.Truncate(time.Second)

	m.mu.Lock()
	var due []entry
	for i := range m.slots {
		s := &m.slots[i]
		if !s.Active || !s.Time.Matches(now) || s.lastFired.Equal(second) {
			continue
		}
		s.lastFired = second
		due = append(due, *s)
	}
	m.mu.Unlock()

	ids := make([]string, 0, len(due))
	for _, s := range due {
		alarmsFired.WithLabelValues(s.ID).Inc()
		ids = append(ids, s.ID)
		if s.callback != nil {
			s.callback()
		}
	}
	return ids
}

// Run polls the time source until ctx is cancelled. Nothing fires while the
// time source has no valid time.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if now, ok := m.src.LocalTime(); ok {
			for _, id := range m.Poll(now) {
				log.FromContext(ctx).Info("alarm fired", zap.String("id", id), zap.Time("at", now))
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Save writes the table to the store.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

func (m *Manager) saveLocked() error {
	if m.store == nil {
		return nil
	}

	table := make([]Alarm, 0, Capacity)
	for _, s := range m.slots {
		table = append(table, s.Alarm)
	}
	raw, err := yaml.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to encode alarms: %w", err)
	}
	return m.store.SetBlob(StoreKey, raw)
}

// Load restores the table from the store. Restored alarms have no callback
// until Set or Bind attaches one. A missing blob leaves the table empty.
func (m *Manager) Load() error {
	if m.store == nil {
		return nil
	}

	raw, err := m.store.GetBlob(StoreKey, maxStoredLen)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read alarms: %w", err)
	}

	var table []Alarm
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return fmt.Errorf("failed to decode alarms: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.slots {
		m.slots[i] = entry{}
		if i < len(table) {
			m.slots[i].Alarm = table[i]
		}
	}
	return nil
}

// Bind attaches cb to every active alarm that has none.
func (m *Manager) Bind(cb func(id string)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.slots {
		s := &m.slots[i]
		if s.Active && s.callback == nil {
			id := s.ID
			s.callback = func() { cb(id) }
		}
	}
}
