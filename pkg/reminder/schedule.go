package reminder

import (
	"cmp"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultClock is the time of day used when a reminder has a date only.
var DefaultClock = Clock{Hour: 8, Minute: 0}

// ErrNoReminder is returned when an item has no reminder date.
var ErrNoReminder = errors.New("no reminder date")

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Date is a calendar day without a time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid reminder date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to
// or after o.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmp.Compare(d.Year, o.Year)
	case d.Month != o.Month:
		return cmp.Compare(d.Month, o.Month)
	default:
		return cmp.Compare(d.Day, o.Day)
	}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Clock is a wall-clock time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses HH:MM (HH:MM:SS is accepted and truncated to the
// minute). A blank string yields DefaultClock.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultClock, nil
	}
	layout := clockLayout
	if strings.Count(s, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid reminder time %q: %w", s, err)
	}
	return ClockOf(t), nil
}

// ClockOf returns the time of day of t in t's location, truncated to the
// minute.
func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

// Compare returns -1, 0 or +1 depending on whether c is before, equal to
// or after o.
func (c Clock) Compare(o Clock) int {
	if c.Hour != o.Hour {
		return cmp.Compare(c.Hour, o.Hour)
	}
	return cmp.Compare(c.Minute, o.Minute)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Schedule is the moment a reminder becomes due.
type Schedule struct {
	Date  Date
	Clock Clock
}

// ParseSchedule builds a Schedule from the stored reminder fields. A blank
// date returns ErrNoReminder.
func ParseSchedule(date, clock string) (Schedule, error) {
	if strings.TrimSpace(date) == "" {
		return Schedule{}, ErrNoReminder
	}
	d, err := ParseDate(date)
	if err != nil {
		return Schedule{}, err
	}
	c, err := ParseClock(clock)
	if err != nil {
		return Schedule{}, err
	}
	return Schedule{Date: d, Clock: c}, nil
}

// ScheduleOf returns the minute t falls in, in t's location.
func ScheduleOf(t time.Time) Schedule {
	return Schedule{Date: DateOf(t), Clock: ClockOf(t)}
}

// Compare orders schedules chronologically.
func (s Schedule) Compare(o Schedule) int {
	if c := s.Date.Compare(o.Date); c != 0 {
		return c
	}
	return s.Clock.Compare(o.Clock)
}

// DueAt reports whether the schedule has been reached at now. A reminder
// on an earlier day is due whatever its time; on the same day it is due
// once its minute has started.
func (s Schedule) DueAt(now time.Time) bool {
	return s.Compare(ScheduleOf(now)) <= 0
}

func (s Schedule) String() string {
	return s.Date.String() + " " + s.Clock.String()
}

// Evaluate decides whether item should fire at now. Items without a date
// are never due; malformed dates or times are returned as errors.
func Evaluate(item Item, now time.Time) (bool, error) {
	s, err := ParseSchedule(item.ReminderDate, item.ReminderTime)
	if err != nil {
		if errors.Is(err, ErrNoReminder) {
			return false, nil
		}
		return false, err
	}
	return s.DueAt(now), nil
}

// IsDue is Evaluate with malformed reminders treated as not due.
func IsDue(item Item, now time.Time) bool {
	due, err := Evaluate(item, now)
	return err == nil && due
}
