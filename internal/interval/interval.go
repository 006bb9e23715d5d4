package interval

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Unit is a canonical calendar/clock unit used in vendor API parameters.
type Unit string

const (
	Second  Unit = "second"
	Minute  Unit = "minute"
	Hour    Unit = "hour"
	Day     Unit = "day"
	Week    Unit = "week"
	Month   Unit = "month"
	Quarter Unit = "quarter"
	Year    Unit = "year"
)

// Intraday reports whether bars at this granularity carry a time-of-day
// component. Day and coarser units truncate to calendar dates.
func (u Unit) Intraday() bool {
	switch u {
	case Second, Minute, Hour:
		return true
	}
	return false
}

// units maps the trailing letter of an interval token to its Unit.
// Case matters: m=minute, M=month.
var units = map[byte]Unit{
	's': Second,
	'm': Minute,
	'h': Hour,
	'd': Day,
	'W': Week,
	'M': Month,
	'Q': Quarter,
	'Y': Year,
}

// Spec is the decomposed form of an interval token: "5m" -> {5, Minute}.
type Spec struct {
	Multiplier int
	Unit       Unit
}

// Truncate returns the start of the bucket containing t, in UTC.
// Clock units truncate to multiples of the spec's duration; calendar
// units snap to week/month/quarter/year boundaries, grouping by the
// multiplier where that is meaningful.
func (s Spec) Truncate(t time.Time) time.Time {
	u := t.UTC()
	mult := s.Multiplier
	if mult < 1 {
		mult = 1
	}
	switch s.Unit {
	case Second:
		return u.Truncate(time.Duration(mult) * time.Second)
	case Minute:
		return u.Truncate(time.Duration(mult) * time.Minute)
	case Hour:
		return u.Truncate(time.Duration(mult) * time.Hour)
	case Day:
		return u.Truncate(time.Duration(mult) * 24 * time.Hour)
	case Week:
		day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
		// back up to Monday
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case Month:
		m := (int(u.Month()) - 1) / mult * mult
		return time.Date(u.Year(), time.Month(m+1), 1, 0, 0, 0, 0, time.UTC)
	case Quarter:
		q := (int(u.Month()) - 1) / 3 * 3
		return time.Date(u.Year(), time.Month(q+1), 1, 0, 0, 0, 0, time.UTC)
	case Year:
		y := u.Year() / mult * mult
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return u
}

// ParseError reports a malformed interval token.
type ParseError struct {
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid interval %q: %s", e.Token, e.Reason)
}

// Parse decomposes a compact interval token of the form <digits><unit>,
// e.g. "1d", "5m", "1h". It is pure and performs no I/O.
func Parse(token string) (Spec, error) {
	if len(token) < 2 {
		return Spec{}, &ParseError{Token: token, Reason: "want <multiplier><unit>, e.g. 1d"}
	}
	unit, ok := units[token[len(token)-1]]
	if !ok {
		return Spec{}, &ParseError{Token: token, Reason: fmt.Sprintf("unknown unit %q (supported: %s)", token[len(token)-1:], supported())}
	}
	n, err := strconv.Atoi(token[:len(token)-1])
	if err != nil {
		return Spec{}, &ParseError{Token: token, Reason: "multiplier is not a number"}
	}
	if n <= 0 {
		return Spec{}, &ParseError{Token: token, Reason: "multiplier must be positive"}
	}
	return Spec{Multiplier: n, Unit: unit}, nil
}

func supported() string {
	letters := make([]string, 0, len(units))
	for b := range units {
		letters = append(letters, string(b))
	}
	sort.Strings(letters)
	out := ""
	for i, l := range letters {
		if i > 0 {
			out += ","
		}
		out += l
	}
	return out
}
