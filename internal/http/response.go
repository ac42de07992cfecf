package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"chitieu/internal/core"
	"chitieu/internal/intake"
)

const isoMillis = "2006-01-02T15:04:05.000Z"

type recordJSON struct {
	ID            string      `json:"id"`
	Amount        json.Number `json:"amount"`
	Category      string      `json:"category"`
	CategoryLabel string      `json:"category_label"`
	Date          string      `json:"date"`
	Note          string      `json:"note,omitempty"`
}

func toRecordJSON(r core.Record) recordJSON {
	return recordJSON{
		ID:            r.ID,
		Amount:        number(r.Amount),
		Category:      string(r.Category),
		CategoryLabel: r.Category.Label(),
		Date:          r.Timestamp.UTC().Format(isoMillis),
		Note:          r.Note,
	}
}

type listJSON struct {
	Window  string       `json:"window"`
	From    time.Time    `json:"from"`
	To      time.Time    `json:"to"`
	Count   int          `json:"count"`
	Total   json.Number  `json:"total"`
	Records []recordJSON `json:"records"`
}

type shareJSON struct {
	Category      string       `json:"category"`
	Label         string       `json:"label"`
	Sum           json.Number  `json:"sum"`
	Percent       json.Number  `json:"percent"`
	Budget        *json.Number `json:"budget,omitempty"`
	BudgetPercent *json.Number `json:"budget_percent,omitempty"`
}

type summaryJSON struct {
	Window       string                 `json:"window"`
	From         time.Time              `json:"from"`
	To           time.Time              `json:"to"`
	Count        int                    `json:"count"`
	Total        json.Number            `json:"total"`
	Breakdown    map[string]json.Number `json:"breakdown"`
	Top          []shareJSON            `json:"top"`
	DailyAverage *json.Number           `json:"daily_average,omitempty"`
	Projected    *json.Number           `json:"projected,omitempty"`
}

func toSummaryJSON(s core.PeriodSummary, monthly bool) summaryJSON {
	out := summaryJSON{
		Window:    s.Window,
		From:      s.From,
		To:        s.To,
		Count:     s.Count,
		Total:     number(s.Total),
		Breakdown: make(map[string]json.Number, len(s.Breakdown)),
		Top:       make([]shareJSON, 0, len(s.Top)),
	}
	for c, sum := range s.Breakdown {
		out.Breakdown[string(c)] = number(sum)
	}
	for _, sh := range s.Top {
		js := shareJSON{
			Category: string(sh.Category),
			Label:    sh.Category.Label(),
			Sum:      number(sh.Sum),
			Percent:  number(sh.Percent),
		}
		if sh.Budget.IsPositive() {
			js.Budget = numberPtr(sh.Budget)
			js.BudgetPercent = numberPtr(sh.BudgetPercent)
		}
		out.Top = append(out.Top, js)
	}
	if monthly {
		out.DailyAverage = numberPtr(s.DailyAverage)
		out.Projected = numberPtr(s.Projected)
	}
	return out
}

func number(d decimal.Decimal) json.Number { return json.Number(d.String()) }

func numberPtr(d decimal.Decimal) *json.Number {
	n := number(d)
	return &n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorJSON struct {
	Error  string              `json:"error"`
	Fields []intake.FieldError `json:"errors,omitempty"`
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorJSON{Error: msg})
}

func writeValidationError(w http.ResponseWriter, verr *intake.ValidationError) {
	writeJSON(w, http.StatusUnprocessableEntity, errorJSON{Error: "validation failed", Fields: verr.Fields})
}
