package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"food", Food, true},
		{" Food ", Food, true},
		{"TRANSPORT", Transport, true},
		{"an-uong", Food, true},
		{"hoc-phi", Tuition, true},
		{"khac", Other, true},
		{"", "", false},
		{"   ", "", false},
		{"rent", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseCategory(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%q expected (%q,%v), got (%q,%v)", tc.in, tc.want, tc.ok, got, ok)
		}
	}
}

func TestCategoriesTable(t *testing.T) {
	cats := Categories()
	if len(cats) != 12 {
		t.Fatalf("expected 12 categories, got %d", len(cats))
	}
	for _, c := range cats {
		if !c.Valid() {
			t.Fatalf("category %q not valid", c)
		}
		if c.Label() == string(c) {
			t.Fatalf("category %q has no label", c)
		}
	}
	// Returned slice is a copy
	cats[0] = "mutated"
	if Categories()[0] != Food {
		t.Fatalf("Categories must return a copy")
	}
	if Category("nope").Label() != "nope" {
		t.Fatalf("unknown category should label as its code")
	}
}

func TestCandidateValidate(t *testing.T) {
	good := Candidate{Amount: decimal.NewFromInt(100), Category: Food}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []struct {
		c    Candidate
		want error
	}{
		{Candidate{Amount: decimal.Zero, Category: Food}, ErrInvalidAmount},
		{Candidate{Amount: decimal.NewFromInt(-1), Category: Food}, ErrInvalidAmount},
		{Candidate{Amount: decimal.NewFromInt(1), Category: ""}, ErrInvalidCategory},
		{Candidate{Amount: decimal.NewFromInt(1), Category: "rent"}, ErrInvalidCategory},
	}
	for i, tc := range bads {
		if err := tc.c.Validate(); err != tc.want {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestRecordValidate(t *testing.T) {
	r := Record{ID: "x", Amount: decimal.NewFromInt(1), Category: Other, Timestamp: time.Now()}
	if err := r.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	r.ID = " "
	if err := r.Validate(); err != ErrEmptyID {
		t.Fatalf("expected ErrEmptyID, got %v", err)
	}
	r.ID = "x"
	r.Timestamp = time.Time{}
	if err := r.Validate(); err != ErrZeroTimestamp {
		t.Fatalf("expected ErrZeroTimestamp, got %v", err)
	}
}
