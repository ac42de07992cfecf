// Package core provides the expense domain: records, categories and amount handling.
//
// This file contains functions for parsing monetary amounts from user input
// and formatting them for display in a given locale.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// CurrencySymbol is appended to formatted amounts in user-facing output.
const CurrencySymbol = "₫"

// ParseAmount converts user input into a strictly positive decimal.
//
// It accepts both dot (12.5) and comma (12,5) decimal separators, surrounding
// whitespace, and any number of fractional digits. Signs, exponents, thousands
// separators, zero and negative values are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("50000") -> 50000, nil
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("-5")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.':
		default:
			// Only unsigned plain decimals allowed
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if digits == 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	s = strings.TrimSuffix(s, ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// FormatAmount renders d with the grouping and decimal separators of tag,
// e.g. "50.000" for Vietnamese or "50,000" for English.
// Note: display only; the float conversion may lose precision for huge values.
func FormatAmount(d decimal.Decimal, tag language.Tag) string {
	p := message.NewPrinter(tag)
	return p.Sprint(number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(2)))
}

// FormatMoney is FormatAmount followed by the currency symbol.
func FormatMoney(d decimal.Decimal, tag language.Tag) string {
	return FormatAmount(d, tag) + " " + CurrencySymbol
}
