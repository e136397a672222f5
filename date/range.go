package date

import (
	"fmt"
	"strings"
	"time"
)

// Range represents a range of dates, boundaries included.
type Range struct{ From, To Date }

// NewRange returns the period containing d.
func NewRange(d Date, period Period) Range {
	return Range{From: d.StartOf(period), To: d.EndOf(period)}
}

// Previous returns the last complete period before d, e.g. last year.
func Previous(d Date, period Period) Range {
	return NewRange(d.StartOf(period).Add(-1), period)
}

// ParseRange parses "from..to" where both ends are dates.
func ParseRange(str string) (Range, error) {
	from, to, ok := strings.Cut(str, "..")
	if !ok {
		return Range{}, fmt.Errorf("invalid range %q want format %q", str, "from..to")
	}
	var r Range
	var err error
	if r.From, err = Parse(strings.TrimSpace(from)); err != nil {
		return Range{}, err
	}
	if r.To, err = Parse(strings.TrimSpace(to)); err != nil {
		return Range{}, err
	}
	if r.To.Before(r.From) {
		return Range{}, fmt.Errorf("invalid range %q: %s is before %s", str, r.To, r.From)
	}
	return r, nil
}

// Contains return true date is included in the range (boundaries included)
func (r Range) Contains(date Date) bool { return !date.Before(r.From) && !date.After(r.To) }

// StartAt returns the first instant of the range as the API expects it.
func (r Range) StartAt() string { return r.From.Format("2006-01-02") + "T00:00:00" }

// EndAt returns the last second of the range as the API expects it.
func (r Range) EndAt() string { return r.To.Format("2006-01-02") + "T23:59:59" }

func (r Range) String() string { return fmt.Sprintf("%s..%s", r.From, r.To) }

// Period returns the period of this range if it's a standard one.
func (r Range) Period() (p Period, ok bool) {
	switch {
	case r.From == r.To:
		return Daily, true
	case r.From.Weekday() == time.Monday && r.From.EndOf(Weekly) == r.To:
		return Weekly, true
	case r.From.Day() == 1 && r.From.EndOf(Monthly) == r.To:
		return Monthly, true
	case r.From.StartOf(Quarterly) == r.From && r.From.EndOf(Quarterly) == r.To:
		return Quarterly, true
	case r.From.StartOf(Yearly) == r.From && r.From.EndOf(Yearly) == r.To:
		return Yearly, true
	default:
		return Daily, false
	}
}

// Identifier returns a short name for the range, like 2025-Q2 for a quarter.
// It is used as the default title of a backtest.
func (r Range) Identifier() string {
	p, ok := r.Period()
	if !ok {
		return fmt.Sprintf("%s_%s", r.From, r.To)
	}
	switch p {
	case Daily:
		return r.From.String()
	case Weekly:
		_, week := r.From.ISOWeek()
		return fmt.Sprintf("%d-W%02d", r.From.Year(), week)
	case Monthly:
		return r.From.Format("2006-01")
	case Quarterly:
		return fmt.Sprintf("%d-Q%d", r.From.Year(), (r.From.Month()-1)/3+1)
	default:
		return r.From.Format("2006")
	}
}
