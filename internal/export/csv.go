// Package export renders records as CSV or pushes them to a Google Sheet.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"chitieu/internal/core"

	"golang.org/x/text/language"
)

// Header is the CSV header, one column per field of a row.
const Header = "id,date,time,category,category_label,amount,amount_formatted,note"

const (
	dateFormat = "2006-01-02"
	timeFormat = "15:04:05"

	colAmount = 5
)

// Options controls locale-dependent columns.
type Options struct {
	Locale   language.Tag   // amount_formatted; zero value means Vietnamese
	Location *time.Location // date and time columns; nil means time.Local
	BOM      bool           // prefix a UTF-8 byte order mark for spreadsheet apps
}

func (o Options) withDefaults() Options {
	if o.Locale == language.Und {
		o.Locale = language.Vietnamese
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

// Row renders one record. Every column is always present.
func Row(r core.Record, opts Options) []string {
	opts = opts.withDefaults()
	ts := r.Timestamp.In(opts.Location)
	return []string{
		r.ID,
		ts.Format(dateFormat),
		ts.Format(timeFormat),
		string(r.Category),
		r.Category.Label(),
		r.Amount.String(),
		core.FormatMoney(r.Amount, opts.Locale),
		r.Note,
	}
}

// Rows renders the header followed by one row per record, in order.
func Rows(records []core.Record, opts Options) [][]string {
	out := make([][]string, 0, len(records)+1)
	out = append(out, strings.Split(Header, ","))
	for _, r := range records {
		out = append(out, Row(r, opts))
	}
	return out
}

// WriteCSV writes the header and one line per record to w.
func WriteCSV(w io.Writer, records []core.Record, opts Options) error {
	if opts.BOM {
		if _, err := io.WriteString(w, "\ufeff"); err != nil {
			return fmt.Errorf("writing bom: %w", err)
		}
	}
	cw := csv.NewWriter(w)
	for i, row := range Rows(records, opts) {
		if i > 0 {
			row[len(row)-1] = neutralizeFormula(row[len(row)-1])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// neutralizeFormula prefixes free text that a spreadsheet would evaluate.
func neutralizeFormula(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
