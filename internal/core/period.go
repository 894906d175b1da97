package core

import (
	"fmt"
	"time"
)

// Period identifies a calendar month. All boundaries are computed in UTC;
// stored timestamps carry no zone and are read as UTC.
type Period struct {
	Year  int
	Month time.Month
}

const (
	minYear = 1
	maxYear = 9999
)

// NewPeriod builds a period, rejecting months outside 1..12 and years
// outside 1..9999.
func NewPeriod(year int, month time.Month) (Period, error) {
	if month < time.January || month > time.December {
		return Period{}, fmt.Errorf("%w: month %d out of range", ErrInvalidPeriod, month)
	}
	if year < minYear || year > maxYear {
		return Period{}, fmt.Errorf("%w: year %d out of range", ErrInvalidPeriod, year)
	}
	return Period{Year: year, Month: month}, nil
}

// ParsePeriod parses a "YYYY-MM" string.
func ParsePeriod(s string) (Period, error) {
	if len(s) != 7 || s[4] != '-' {
		return Period{}, fmt.Errorf("%w: %q must match YYYY-MM", ErrInvalidPeriod, s)
	}
	year, ok := atoiDigits(s[:4])
	if !ok {
		return Period{}, fmt.Errorf("%w: %q must match YYYY-MM", ErrInvalidPeriod, s)
	}
	month, ok := atoiDigits(s[5:])
	if !ok {
		return Period{}, fmt.Errorf("%w: %q must match YYYY-MM", ErrInvalidPeriod, s)
	}
	return NewPeriod(year, time.Month(month))
}

// PeriodOf returns the UTC calendar month containing t.
func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return Period{Year: t.Year(), Month: t.Month()}
}

func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Start is the first instant of the month.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the last instant of the month, inclusive.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// Range returns the inclusive [Start, End] bounds.
func (p Period) Range() (time.Time, time.Time) {
	return p.Start(), p.End()
}

// Shift moves the period k months forward, or backward for negative k. The
// result is clamped to 0001-01..9999-12 so it always renders as YYYY-MM.
func (p Period) Shift(k int) Period {
	const (
		lo = minYear * 12
		hi = maxYear*12 + 11
	)
	idx := p.Year*12 + int(p.Month) - 1
	switch {
	case k < lo-idx:
		idx = lo
	case k > hi-idx:
		idx = hi
	default:
		idx += k
	}
	return Period{Year: idx / 12, Month: time.Month(idx%12 + 1)}
}

// Label is the short English month name, e.g. "Jan".
func (p Period) Label() string {
	return p.Start().Format("Jan")
}

func (p Period) Before(q Period) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	return p.Month < q.Month
}

func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Period) UnmarshalText(b []byte) error {
	parsed, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Periods lists the n consecutive months ending at last, oldest first.
func Periods(last Period, n int) []Period {
	out := make([]Period, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, last.Shift(-i))
	}
	return out
}

func atoiDigits(s string) (int, bool) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
