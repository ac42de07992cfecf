// Package intake turns raw form input into a validated candidate record and
// hands it to the record store.
package intake

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"chitieu/internal/core"
	"chitieu/internal/log"

	"github.com/go-playground/validator/v10"
)

// Input is a submission exactly as typed by the user.
type Input struct {
	Amount   string `json:"amount" validate:"amount"`
	Category string `json:"category" validate:"category"`
	Note     string `json:"note"`
}

// Appender is the part of the record store intake depends on.
type Appender interface {
	Append(ctx context.Context, c core.Candidate) (core.Record, error)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		// Report json names, not Go field names
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
			_, err := core.ParseAmount(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			_, ok := core.ParseCategory(fl.Field().String())
			return ok
		})
		validate = v
	})
	return validate
}

// Validate checks every field and reports all failures together.
func Validate(in Input) error {
	in.Note = strings.TrimSpace(in.Note)
	err := getValidator().Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate input: %w", err)
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, fieldErrorFor(fe.Tag(), fe.Field()))
	}
	return out
}

// Normalize validates in and converts it to a candidate: the amount parsed
// as a decimal, the category resolved to its canonical code and the note
// trimmed.
func Normalize(in Input) (core.Candidate, error) {
	if err := Validate(in); err != nil {
		return core.Candidate{}, err
	}
	amount, _ := core.ParseAmount(in.Amount)
	cat, _ := core.ParseCategory(in.Category)
	return core.Candidate{
		Amount:   amount,
		Category: cat,
		Note:     strings.TrimSpace(in.Note),
	}, nil
}

// Intake validates submissions and forwards them to an Appender.
type Intake struct {
	store  Appender
	logger *log.Logger
}

func New(store Appender, logger *log.Logger) *Intake {
	if logger == nil {
		logger = log.Discard()
	}
	return &Intake{store: store, logger: logger.WithComponent(log.ComponentIntake)}
}

// Submit normalizes in and appends it. Invalid input never reaches the store
// and is returned as a *ValidationError.
func (i *Intake) Submit(ctx context.Context, in Input) (core.Record, error) {
	c, err := Normalize(in)
	if err != nil {
		i.logger.InfoContext(ctx, "Rejected submission", log.FieldOperation, log.OpValidate, log.FieldError, err)
		return core.Record{}, err
	}
	rec, err := i.store.Append(ctx, c)
	if err != nil {
		return core.Record{}, fmt.Errorf("append record: %w", err)
	}
	return rec, nil
}
