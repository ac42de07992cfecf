package intake

import (
	"context"
	"errors"
	"strings"
	"testing"

	"chitieu/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAppender struct {
	got []core.Candidate
	err error
}

func (f *fakeAppender) Append(_ context.Context, c core.Candidate) (core.Record, error) {
	if f.err != nil {
		return core.Record{}, f.err
	}
	f.got = append(f.got, c)
	return core.Record{ID: "r1", Amount: c.Amount, Category: c.Category, Note: c.Note}, nil
}

func TestNormalize(t *testing.T) {
	c, err := Normalize(Input{Amount: " 50000 ", Category: "Food", Note: "  phở bò  "})
	require.NoError(t, err)
	assert.True(t, c.Amount.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, core.Food, c.Category)
	assert.Equal(t, "phở bò", c.Note)

	c, err = Normalize(Input{Amount: "12,5", Category: "hoc-phi"})
	require.NoError(t, err)
	assert.True(t, c.Amount.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, core.Tuition, c.Category)
	assert.Empty(t, c.Note)
}

func TestValidationErrors(t *testing.T) {
	cases := []struct {
		name  string
		in    Input
		codes []string
	}{
		{"negative amount", Input{Amount: "-5", Category: "food"}, []string{CodeInvalidAmount}},
		{"zero amount", Input{Amount: "0", Category: "food"}, []string{CodeInvalidAmount}},
		{"text amount", Input{Amount: "abc", Category: "food"}, []string{CodeInvalidAmount}},
		{"empty amount", Input{Amount: "", Category: "food"}, []string{CodeInvalidAmount}},
		{"empty category", Input{Amount: "100", Category: ""}, []string{CodeInvalidCategory}},
		{"unknown category", Input{Amount: "100", Category: "rent"}, []string{CodeInvalidCategory}},
		{"both", Input{Amount: "-5", Category: ""}, []string{CodeInvalidAmount, CodeInvalidCategory}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Len(t, verr.Fields, len(tc.codes))
			for i, code := range tc.codes {
				assert.Equal(t, code, verr.Fields[i].Code)
				assert.True(t, verr.Has(code))
			}
		})
	}
}

func TestValidationErrorUnwrapsToSentinels(t *testing.T) {
	_, err := Normalize(Input{Amount: "-5", Category: ""})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	assert.ErrorIs(t, err, core.ErrInvalidCategory)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	fe, ok := verr.Field("amount")
	require.True(t, ok)
	assert.Equal(t, CodeInvalidAmount, fe.Code)
	fe, ok = verr.Field("category")
	require.True(t, ok)
	assert.Equal(t, CodeInvalidCategory, fe.Code)
	_, ok = verr.Field("note")
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "amount:")
}

func TestLongNoteIsKept(t *testing.T) {
	note := strings.Repeat("ghi chú dài ", 1000)
	c, err := Normalize(Input{Amount: "1", Category: "food", Note: note})
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(note), c.Note)

	app := &fakeAppender{}
	rec, err := New(app, nil).Submit(context.Background(), Input{Amount: "1", Category: "food", Note: note})
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(note), rec.Note)
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	app := &fakeAppender{}
	in := New(app, nil)

	rec, err := in.Submit(ctx, Input{Amount: "20000", Category: "transport"})
	require.NoError(t, err)
	assert.Equal(t, "r1", rec.ID)
	require.Len(t, app.got, 1)
	assert.Equal(t, core.Transport, app.got[0].Category)

	_, err = in.Submit(ctx, Input{Amount: "-5", Category: "food"})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	assert.Len(t, app.got, 1, "invalid input must never reach the store")

	app.err = errors.New("boom")
	_, err = in.Submit(ctx, Input{Amount: "1", Category: "food"})
	assert.ErrorIs(t, err, app.err)
}
