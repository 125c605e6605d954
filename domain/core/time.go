package core

import (
	"time"
)

// DateLayout is the calendar-date format used for every date stored by assetdesk.
const DateLayout = "2006-01-02"

// Timestamp represents a point in time with timezone awareness
type Timestamp time.Time

// NewTimestamp creates a new timestamp from time.Time
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t)
}

// Date truncates the timestamp to midnight UTC of its calendar day
func (t Timestamp) Date() time.Time {
	tm := time.Time(t).UTC()
	return time.Date(tm.Year(), tm.Month(), tm.Day(), 0, 0, 0, 0, time.UTC)
}

// DateString formats the calendar day of the timestamp
func (t Timestamp) DateString() string {
	return time.Time(t).UTC().Format(DateLayout)
}

// Clock supplies the processing time; tests pin it.
type Clock func() time.Time

// SystemClock is the wall clock
func SystemClock() time.Time { return time.Now() }

// FixedClock returns a clock frozen at t
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
