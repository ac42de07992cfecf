package http

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"chitieu/internal/aggregate"
	"chitieu/internal/core"
	"chitieu/internal/log"
)

type formView struct {
	Amount   string
	Category string
	Note     string
	Errors   map[string]string // field name -> message
}

type categoryOption struct {
	Code     core.Category
	Label    string
	Icon     string
	Selected bool
}

type indexView struct {
	Window     string
	Windows    []string
	Total      decimal.Decimal
	MonthTotal decimal.Decimal
	Records    []core.Record
	Top        []core.CategoryShare
	Categories []categoryOption
	Form       formView
}

var pageWindows = []string{"today", "yesterday", "week", "month"}

func (s *Server) indexData(win aggregate.Window, form formView) indexView {
	records := s.deps.Store.Snapshot()
	sum := aggregate.Summarize(records, win, 0, s.deps.Budgets)

	selected, _ := core.ParseCategory(form.Category)
	opts := make([]categoryOption, 0, len(core.Categories()))
	for _, c := range core.Categories() {
		opts = append(opts, categoryOption{Code: c, Label: c.Label(), Icon: c.Icon(), Selected: c == selected})
	}

	return indexView{
		Window:     win.Name,
		Windows:    pageWindows,
		Total:      sum.Total,
		MonthTotal: aggregate.TotalFor(records, aggregate.Month(s.now())),
		Records:    aggregate.Newest(aggregate.Filter(records, win)),
		Top:        sum.Top,
		Categories: opts,
		Form:       form,
	}
}

// renderIndex executes into a buffer so a template failure still yields a clean 500.
func (s *Server) renderIndex(w http.ResponseWriter, r *http.Request, status int, data indexView) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Template execution failed", err, log.OpRender, log.NewFields())
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func templateFuncs(tag language.Tag, loc *time.Location) template.FuncMap {
	return template.FuncMap{
		"money":   func(d decimal.Decimal) string { return core.FormatMoney(d, tag) },
		"percent": func(d decimal.Decimal) string { return d.StringFixed(1) + "%" },
		"clock":   func(t time.Time) string { return t.In(loc).Format("15:04") },
		"date":    func(t time.Time) string { return t.In(loc).Format("02/01/2006") },
		"ago":     func(t time.Time) string { return humanize.Time(t) },
	}
}
