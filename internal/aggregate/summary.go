package aggregate

import (
	"chitieu/internal/core"

	"github.com/shopspring/decimal"
)

// Calendar-month averages divide by a fixed 30 days and project over 31.
var (
	averageDays    = decimal.NewFromInt(30)
	projectionDays = decimal.NewFromInt(31)
)

// Summarize builds the summary of w. top limits the ranked categories
// (<= 0 keeps all). budgets may be nil.
func Summarize(records []core.Record, w Window, top int, budgets map[core.Category]decimal.Decimal) core.PeriodSummary {
	in := Filter(records, w)
	total := sum(in)
	b := breakdown(in)

	ranked := rank(b, top)
	shares := make([]core.CategoryShare, 0, len(ranked))
	for _, ca := range ranked {
		share := core.CategoryShare{
			CategoryAmount: ca,
			Percent:        PercentageOf(ca.Sum, total).Round(1),
		}
		if budget, ok := budgets[ca.Category]; ok && budget.IsPositive() {
			share.Budget = budget
			share.BudgetPercent = PercentageOf(ca.Sum, budget).Round(1)
		}
		shares = append(shares, share)
	}

	s := core.PeriodSummary{
		Window:    w.Name,
		From:      w.From,
		To:        w.To,
		Count:     len(in),
		Total:     total,
		Breakdown: b,
		Top:       shares,
	}
	if w.Kind == KindMonth {
		s.DailyAverage = total.Div(averageDays).Round(0)
		s.Projected = s.DailyAverage.Mul(projectionDays)
	}
	return s
}
