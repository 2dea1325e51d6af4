package deploymentspec

import (
	"strconv"
	"strings"
	"time"
	// Windows name time zones; don't depend on the host having them.
	_ "time/tzdata"

	"github.com/pkg/errors"
)

// TimeWindow is a set of hours on a set of days, in a time zone.
type TimeWindow struct {
	Days     []time.Weekday
	Hours    []int
	Location *time.Location
}

var dayNames = map[string]time.Weekday{
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
	"sun": time.Sunday,
}

// ParseTimeWindow reads a window from its day, hour and time zone
// specs; e.g., "mon-fri,sun", "0-4,22-23", "Europe/Oslo". Blank day or
// hour specs mean every day or every hour, and a blank time zone
// means UTC. Day ranges may wrap around the end of the week
// ("fri-mon").
func ParseTimeWindow(days, hours, tz string) (TimeWindow, error) {
	var w TimeWindow
	var err error

	if w.Days, err = parseDays(days); err != nil {
		return TimeWindow{}, err
	}
	if w.Hours, err = parseHours(hours); err != nil {
		return TimeWindow{}, err
	}
	if tz == "" {
		tz = "UTC"
	}
	if w.Location, err = time.LoadLocation(tz); err != nil {
		return TimeWindow{}, errors.Wrapf(err, "invalid time zone %q", tz)
	}
	return w, nil
}

// Includes is true if the instant falls on one of the window's hours
// on one of its days, in the window's time zone.
func (w TimeWindow) Includes(t time.Time) bool {
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return containsDay(w.Days, local.Weekday()) && containsHour(w.Hours, local.Hour())
}

func containsDay(days []time.Weekday, d time.Weekday) bool {
	for _, day := range days {
		if day == d {
			return true
		}
	}
	return false
}

func containsHour(hours []int, h int) bool {
	for _, hour := range hours {
		if hour == h {
			return true
		}
	}
	return false
}

func parseDays(spec string) ([]time.Weekday, error) {
	if strings.TrimSpace(spec) == "" {
		spec = "mon-sun"
	}
	var days []time.Weekday
	err := eachRange(spec, func(from, to string) error {
		start, ok := dayNames[strings.ToLower(from)]
		if !ok {
			return errors.Errorf("invalid day %q in %q", from, spec)
		}
		end, ok := dayNames[strings.ToLower(to)]
		if !ok {
			return errors.Errorf("invalid day %q in %q", to, spec)
		}
		for d := start; ; d = (d + 1) % 7 {
			days = appendDay(days, d)
			if d == end {
				break
			}
		}
		return nil
	})
	return days, err
}

func parseHours(spec string) ([]int, error) {
	if strings.TrimSpace(spec) == "" {
		spec = "0-23"
	}
	var hours []int
	err := eachRange(spec, func(from, to string) error {
		start, err := parseHour(from)
		if err != nil {
			return err
		}
		end, err := parseHour(to)
		if err != nil {
			return err
		}
		if end < start {
			return errors.Errorf("invalid hour range %s-%s: end is before start", from, to)
		}
		for h := start; h <= end; h++ {
			if !containsHour(hours, h) {
				hours = append(hours, h)
			}
		}
		return nil
	})
	return hours, err
}

func parseHour(s string) (int, error) {
	h, err := strconv.Atoi(s)
	if err != nil || h < 0 || h > 23 {
		return 0, errors.Errorf("invalid hour %q; expected 0-23", s)
	}
	return h, nil
}

func appendDay(days []time.Weekday, d time.Weekday) []time.Weekday {
	if containsDay(days, d) {
		return days
	}
	return append(days, d)
}

// eachRange calls fn with the endpoints of each comma-separated
// element of spec; a single value is a range of one.
func eachRange(spec string, fn func(from, to string) error) error {
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return errors.Errorf("empty element in %q", spec)
		}
		bounds := strings.SplitN(part, "-", 2)
		from, to := strings.TrimSpace(bounds[0]), strings.TrimSpace(bounds[0])
		if len(bounds) == 2 {
			to = strings.TrimSpace(bounds[1])
		}
		if err := fn(from, to); err != nil {
			return err
		}
	}
	return nil
}
