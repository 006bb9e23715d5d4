package schema

import (
	"fmt"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05-0700"
)

// BarTime is the timestamp of a bar. Day-or-coarser bars render as plain
// calendar dates; intraday bars keep the full instant with an explicit
// UTC offset.
type BarTime struct {
	t        time.Time
	dateOnly bool
}

// DateOf builds a date-only BarTime, truncating t to its UTC calendar day.
func DateOf(t time.Time) BarTime {
	u := t.UTC()
	return BarTime{
		t:        time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC),
		dateOnly: true,
	}
}

// InstantOf builds an intraday BarTime in UTC.
func InstantOf(t time.Time) BarTime {
	return BarTime{t: t.UTC()}
}

// FromUnixMilli converts a vendor epoch-millisecond value. dateOnly
// selects date vs date-time representation per the query granularity.
func FromUnixMilli(ms int64, dateOnly bool) BarTime {
	t := time.UnixMilli(ms).UTC()
	if dateOnly {
		return DateOf(t)
	}
	return InstantOf(t)
}

// Time returns the underlying UTC instant.
func (b BarTime) Time() time.Time { return b.t }

// DateOnly reports whether the value renders as a plain calendar date.
func (b BarTime) DateOnly() bool { return b.dateOnly }

// Equal compares both the instant and the representation.
func (b BarTime) Equal(o BarTime) bool {
	return b.dateOnly == o.dateOnly && b.t.Equal(o.t)
}

func (b BarTime) String() string {
	if b.dateOnly {
		return b.t.Format(dateLayout)
	}
	return b.t.Format(dateTimeLayout)
}

// MarshalJSON renders "2006-01-02" for date-only values and
// "2006-01-02T15:04:05-0700" otherwise.
func (b BarTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

// UnmarshalJSON accepts either representation.
func (b *BarTime) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("bar time: not a JSON string: %s", s)
	}
	bt, err := ParseBarTime(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*b = bt
	return nil
}

// ParseBarTime parses either textual representation of a bar time.
func ParseBarTime(s string) (BarTime, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return BarTime{t: t.UTC(), dateOnly: true}, nil
	}
	t, err := time.Parse(dateTimeLayout, s)
	if err != nil {
		return BarTime{}, fmt.Errorf("bar time: %w", err)
	}
	return BarTime{t: t.UTC()}, nil
}
