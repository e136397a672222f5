package date

import (
	"strings"
	"testing"
	"time"
)

func TestNewRange(t *testing.T) {
	testCases := []struct {
		name   string
		in     Date
		period Period
		want   Range
	}{
		{"A Wednesday", New(2025, time.September, 10), Weekly, Range{New(2025, time.September, 8), New(2025, time.September, 14)}},
		{"A Sunday", New(2025, time.September, 14), Weekly, Range{New(2025, time.September, 8), New(2025, time.September, 14)}},
		{"A leap year", New(2024, time.February, 15), Monthly, Range{New(2024, time.February, 1), New(2024, time.February, 29)}},
		{"Q2", New(2025, time.May, 20), Quarterly, Range{New(2025, time.April, 1), New(2025, time.June, 30)}},
		{"Q4", New(2025, time.November, 2), Quarterly, Range{New(2025, time.October, 1), New(2025, time.December, 31)}},
		{"Year", New(2025, time.September, 8), Yearly, Range{New(2025, time.January, 1), New(2025, time.December, 31)}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NewRange(tc.in, tc.period); got != tc.want {
				t.Errorf("NewRange() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPrevious(t *testing.T) {
	d := New(2025, time.March, 3)
	if got, want := Previous(d, Yearly), (Range{New(2024, time.January, 1), New(2024, time.December, 31)}); got != want {
		t.Errorf("Previous(yearly) = %v, want %v", got, want)
	}
	if got, want := Previous(d, Quarterly), (Range{New(2024, time.October, 1), New(2024, time.December, 31)}); got != want {
		t.Errorf("Previous(quarterly) = %v, want %v", got, want)
	}
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("2024-01-01..2024-06-30")
	if err != nil {
		t.Fatalf("ParseRange() error: %v", err)
	}
	if r.StartAt() != "2024-01-01T00:00:00" || r.EndAt() != "2024-06-30T23:59:59" {
		t.Errorf("StartAt()/EndAt() = %s/%s", r.StartAt(), r.EndAt())
	}
	for _, bad := range []string{"2024-01-01", "2024-06-30..2024-01-01", "x..2024-01-01"} {
		if _, err := ParseRange(bad); err == nil {
			t.Errorf("ParseRange(%q) succeeded, want an error", bad)
		}
	}
}

func TestRange_Identifier(t *testing.T) {
	testCases := []struct {
		name string
		in   Range
		want string
	}{
		{"Single Day", NewRange(New(2025, time.September, 8), Daily), "2025-09-08"},
		{"Standard Week", NewRange(New(2025, time.September, 8), Weekly), "2025-W37"},
		{"Standard Month", NewRange(New(2025, time.September, 1), Monthly), "2025-09"},
		{"Standard Quarter", NewRange(New(2025, time.July, 1), Quarterly), "2025-Q3"},
		{"Standard Year", NewRange(New(2025, time.January, 1), Yearly), "2025"},
		{"Non-Standard Range", Range{From: New(2025, time.September, 2), To: New(2025, time.September, 10)}, "2025-09-02_2025-09-10"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Identifier(); got != tc.want {
				t.Errorf("Identifier() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	for in, want := range map[string]Period{"day": Daily, "Weekly": Weekly, "month": Monthly, "quarter": Quarterly, "YEAR": Yearly, " q ": Quarterly, "w": Weekly} {
		got, err := ParsePeriod(in)
		if err != nil || got != want {
			t.Errorf("ParsePeriod(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, bad := range []string{"decade", "", "x"} {
		if _, err := ParsePeriod(bad); err == nil {
			t.Errorf("ParsePeriod(%q) succeeded", bad)
		}
	}
}

func TestPeriod_String(t *testing.T) {
	if got := Period(42).String(); got != "period(42)" {
		t.Errorf("String() = %q for an unknown period", got)
	}
	if got, want := strings.Join(Units(), ","), "day,week,month,quarter,year"; got != want {
		t.Errorf("Units() = %q, want %q", got, want)
	}
}
