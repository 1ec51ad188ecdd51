// Package calendar generates the clinic's nominal booking slots.
// Everything here is pure: the same configuration and date always give the same slots.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidDate   = errors.New("date is in the past")
	ErrInvalidConfig = errors.New("invalid clinic calendar configuration")
)

// Period tags a slot for display only
type Period string

const (
	PeriodMorning   Period = "morning"
	PeriodAfternoon Period = "afternoon"
)

// Slot is one nominal booking unit of a day
type Slot struct {
	Time   string `json:"time"`
	Period Period `json:"period"`
}

// Window is an operating window, Start inclusive and End exclusive, both HH:MM
type Window struct {
	Period Period
	Start  string
	End    string
}

type Config struct {
	Windows   []Window
	Interval  time.Duration
	ClosedDay time.Weekday
}

type window struct {
	period     Period
	start, end int // minutes since midnight
}

// Catalog is safe for concurrent use; it is never mutated after New.
type Catalog struct {
	windows   []window
	interval  int
	closedDay time.Weekday
	slots     []Slot
	index     map[string]Period
}

func New(cfg Config) (*Catalog, error) {
	if cfg.Interval < time.Minute || cfg.Interval%time.Minute != 0 {
		return nil, fmt.Errorf("%w: interval must be a whole number of minutes", ErrInvalidConfig)
	}
	if len(cfg.Windows) == 0 {
		return nil, fmt.Errorf("%w: at least one operating window is required", ErrInvalidConfig)
	}

	c := &Catalog{
		interval:  int(cfg.Interval / time.Minute),
		closedDay: cfg.ClosedDay,
		index:     make(map[string]Period),
	}

	prevEnd := -1
	for _, w := range cfg.Windows {
		start, err := minutesOf(w.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: window start %q", ErrInvalidConfig, w.Start)
		}
		end, err := minutesOf(w.End)
		if err != nil {
			return nil, fmt.Errorf("%w: window end %q", ErrInvalidConfig, w.End)
		}
		if end <= start {
			return nil, fmt.Errorf("%w: window %s-%s is empty", ErrInvalidConfig, w.Start, w.End)
		}
		if start < prevEnd {
			return nil, fmt.Errorf("%w: windows must be ordered and must not overlap", ErrInvalidConfig)
		}
		prevEnd = end
		c.windows = append(c.windows, window{period: w.Period, start: start, end: end})
	}

	for _, w := range c.windows {
		for m := w.start; m+c.interval <= w.end; m += c.interval {
			s := Slot{Time: formatMinutes(m), Period: w.period}
			c.slots = append(c.slots, s)
			c.index[s.Time] = s.Period
		}
	}

	return c, nil
}

// IsClosed reports whether the clinic does not operate on date
func (c *Catalog) IsClosed(date time.Time) bool {
	return date.Weekday() == c.closedDay
}

// ClosedDay returns the weekday the clinic does not operate
func (c *Catalog) ClosedDay() time.Weekday {
	return c.closedDay
}

// Contains reports whether hhmm is one of the nominal slot start times
func (c *Catalog) Contains(hhmm string) bool {
	_, ok := c.index[hhmm]
	return ok
}

// Slots returns the day's nominal slots in chronological order.
// Closed days give an empty sequence; days before today give ErrInvalidDate.
// Both date and today are compared as calendar days.
func (c *Catalog) Slots(date, today time.Time) ([]Slot, error) {
	if dayOf(date).Before(dayOf(today)) {
		return nil, ErrInvalidDate
	}
	if c.IsClosed(date) {
		return []Slot{}, nil
	}
	out := make([]Slot, len(c.slots))
	copy(out, c.slots)
	return out, nil
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func minutesOf(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
