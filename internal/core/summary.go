package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category        `json:"category"`
	Sum      decimal.Decimal `json:"sum"`
}

// CategoryShare is a CategoryAmount with its percentage of the period total
// and, when a budget is configured, the percentage of that budget used.
type CategoryShare struct {
	CategoryAmount
	Percent       decimal.Decimal `json:"percent"`
	Budget        decimal.Decimal `json:"budget"` // zero when no budget is set
	BudgetPercent decimal.Decimal `json:"budget_percent"`
}

// PeriodSummary is a compact summary of the records inside one window.
type PeriodSummary struct {
	Window    string                       `json:"window"`
	From      time.Time                    `json:"from"`
	To        time.Time                    `json:"to"`
	Count     int                          `json:"count"`
	Total     decimal.Decimal              `json:"total"`
	Breakdown map[Category]decimal.Decimal `json:"breakdown"`
	Top       []CategoryShare              `json:"top"`

	// Only filled for calendar-month windows.
	DailyAverage decimal.Decimal `json:"daily_average"`
	Projected    decimal.Decimal `json:"projected"`
}
