package aggregate

import (
	"sort"

	"chitieu/internal/core"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Filter returns the records inside w, preserving order.
func Filter(records []core.Record, w Window) []core.Record {
	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		if w.Contains(r.Timestamp) {
			out = append(out, r)
		}
	}
	return out
}

func sum(records []core.Record) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}

// TotalFor is the sum of amounts inside w; zero when nothing matches.
func TotalFor(records []core.Record, w Window) decimal.Decimal {
	return sum(Filter(records, w))
}

// BreakdownFor sums amounts per category inside w. Categories without
// records are omitted, so the values always add up to TotalFor.
func BreakdownFor(records []core.Record, w Window) map[core.Category]decimal.Decimal {
	return breakdown(Filter(records, w))
}

func breakdown(records []core.Record) map[core.Category]decimal.Decimal {
	out := map[core.Category]decimal.Decimal{}
	for _, r := range records {
		out[r.Category] = out[r.Category].Add(r.Amount)
	}
	return out
}

// TopCategories ranks categories by descending sum. Equal sums are ordered by
// category code ascending. limit <= 0 returns every category.
func TopCategories(records []core.Record, w Window, limit int) []core.CategoryAmount {
	return rank(BreakdownFor(records, w), limit)
}

func rank(b map[core.Category]decimal.Decimal, limit int) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(b))
	for c, s := range b {
		out = append(out, core.CategoryAmount{Category: c, Sum: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].Sum.Cmp(out[j].Sum); cmp != 0 {
			return cmp > 0
		}
		return out[i].Category < out[j].Category
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// PercentageOf returns part/total*100, or zero when total is zero.
func PercentageOf(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(total)
}

// Newest returns a copy ordered by timestamp descending. Records with equal
// timestamps keep reverse insertion order, so the latest entry comes first.
func Newest(records []core.Record) []core.Record {
	out := make([]core.Record, len(records))
	for i, r := range records {
		out[len(records)-1-i] = r
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
