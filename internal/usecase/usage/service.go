// Package usage reports embedding token consumption against the budget.
package usage

import (
	"time"

	"github.com/kailas-cloud/docuquery/internal/domain/usage"
)

// BudgetReader exposes the tracker's counters. Remaining is -1 when unlimited.
type BudgetReader interface {
	DailyUsed() int64
	MonthlyUsed() int64
	RemainingDaily() int64
	RemainingMonthly() int64
}

// Service builds usage reports. A nil reader reports zero usage and no limit.
type Service struct {
	budget BudgetReader
	now    func() time.Time
}

// New creates a Service.
func New(budget BudgetReader) *Service {
	return &Service{budget: budget, now: time.Now}
}

// Report returns usage for the current period.
func (s *Service) Report(period usage.Period) usage.Report {
	start, end := period.Bounds(s.now())
	if s.budget == nil {
		return usage.NewReport(period, start, end, 0, -1)
	}
	if period == usage.PeriodMonth {
		return usage.NewReport(period, start, end, s.budget.MonthlyUsed(), s.budget.RemainingMonthly())
	}
	return usage.NewReport(period, start, end, s.budget.DailyUsed(), s.budget.RemainingDaily())
}
