package alarm

import "time"

// TimeSource provides the local wall time once it is known to be valid.
type TimeSource interface {
	LocalTime() (time.Time, bool)
}

// validSince is the earliest wall time taken as synchronized. Boards
// without a battery-backed clock boot at the epoch until NTP catches up.
var validSince = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// SystemTime reads the system clock in the local time zone.
type SystemTime struct {
	Location *time.Location
}

func (s SystemTime) LocalTime() (time.Time, bool) {
	now := time.Now()
	if now.Before(validSince) {
		return time.Time{}, false
	}
	if s.Location != nil {
		return now.In(s.Location), true
	}
	return now.Local(), true
}

// TimeSourceFunc adapts a function to TimeSource.
type TimeSourceFunc func() (time.Time, bool)

func (f TimeSourceFunc) LocalTime() (time.Time, bool) {
	return f()
}
