package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Record is one persisted expense entry. Records are never mutated after creation.
	Record struct {
		ID        string
		Amount    decimal.Decimal
		Category  Category
		Timestamp time.Time
		Note      string // empty means absent
	}

	// Candidate is a record payload before the store assigns ID and Timestamp.
	Candidate struct {
		Amount   decimal.Decimal
		Category Category
		Note     string
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrEmptyID         = errors.New("empty record id")
	ErrZeroTimestamp   = errors.New("zero record timestamp")
)

// ValidateAmount reports ErrInvalidAmount unless d > 0.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (c Candidate) Validate() error {
	if err := ValidateAmount(c.Amount); err != nil {
		return err
	}
	if !c.Category.Valid() {
		return ErrInvalidCategory
	}
	return nil
}

func (r Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrEmptyID
	}
	if r.Timestamp.IsZero() {
		return ErrZeroTimestamp
	}
	return Candidate{Amount: r.Amount, Category: r.Category, Note: r.Note}.Validate()
}

// Candidate returns the caller-supplied part of the record.
func (r Record) Candidate() Candidate {
	return Candidate{Amount: r.Amount, Category: r.Category, Note: r.Note}
}

// HasNote reports whether the record carries an annotation.
func (r Record) HasNote() bool {
	return r.Note != ""
}
