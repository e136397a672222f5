package date

import (
	"fmt"
	"strings"
)

// Period is the granularity of a backtest range.
type Period int

const (
	Daily Period = iota
	Weekly
	Monthly
	Quarterly
	Yearly
)

// Periods lists every period, shortest first.
var Periods = []Period{Daily, Weekly, Monthly, Quarterly, Yearly}

func (p Period) String() string {
	switch p {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	case Yearly:
		return "yearly"
	default:
		return fmt.Sprintf("period(%d)", int(p))
	}
}

// Unit is the noun accepted on the command line for p, e.g. "quarter".
func (p Period) Unit() string {
	return [...]string{"day", "week", "month", "quarter", "year"}[p]
}

// ParsePeriod accepts the adjective ("quarterly"), the unit ("quarter") or
// its initial ("q"), in any case.
func ParsePeriod(s string) (Period, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	for _, p := range Periods {
		if in == p.String() || in == p.Unit() || in == p.Unit()[:1] {
			return p, nil
		}
	}
	return Daily, fmt.Errorf("unknown period %q", s)
}

// Units returns the unit of every period, for flag completion.
func Units() []string {
	units := make([]string, len(Periods))
	for i, p := range Periods {
		units[i] = p.Unit()
	}
	return units
}
