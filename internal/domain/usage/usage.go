// Package usage describes embedding token consumption for a budget period.
package usage

import (
	"fmt"
	"time"
)

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod accepts "day" or "month"; empty means day.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, nil
	case PeriodMonth:
		return PeriodMonth, nil
	}
	return "", fmt.Errorf("period must be %q or %q, got %q", PeriodDay, PeriodMonth, s)
}

// Bounds returns the UTC period containing t as [start, end).
func (p Period) Bounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	if p == PeriodMonth {
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// Report is the token usage of one period. A negative remaining means no limit.
type Report struct {
	period      Period
	periodStart time.Time
	periodEnd   time.Time
	used        int64
	remaining   int64
}

// NewReport creates a usage report.
func NewReport(period Period, start, end time.Time, used, remaining int64) Report {
	return Report{
		period:      period,
		periodStart: start,
		periodEnd:   end,
		used:        used,
		remaining:   remaining,
	}
}

// Period returns the aggregation granularity.
func (r *Report) Period() Period { return r.period }

// PeriodStart returns the first instant of the period.
func (r *Report) PeriodStart() time.Time { return r.periodStart }

// PeriodEnd returns the first instant after the period; budgets reset here.
func (r *Report) PeriodEnd() time.Time { return r.periodEnd }

// TokensUsed returns tokens consumed in the period.
func (r *Report) TokensUsed() int64 { return r.used }

// Limited reports whether a token cap applies.
func (r *Report) Limited() bool { return r.remaining >= 0 }

// TokensRemaining returns tokens left, -1 when unlimited.
func (r *Report) TokensRemaining() int64 { return r.remaining }

// TokensLimit returns the cap, 0 when unlimited.
func (r *Report) TokensLimit() int64 {
	if !r.Limited() {
		return 0
	}
	return r.used + r.remaining
}

// IsExhausted reports whether the cap is spent.
func (r *Report) IsExhausted() bool { return r.Limited() && r.remaining == 0 }
