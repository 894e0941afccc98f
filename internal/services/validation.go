package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"expensetracker/internal/core"
)

// expenseInput is the typed view of the fields the ledger insists on. Field
// order is the order problems are reported in.
type expenseInput struct {
	Payee  string `json:"payee" validate:"required,max=200"`
	Amount string `json:"amount" validate:"required,amount"`
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
}

// amountTag names the custom rule for positive decimal amounts.
const amountTag = "amount"

// newValidator panics if the amount rule cannot be registered.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation(amountTag, func(fl validator.FieldLevel) bool {
		_, err := core.ParseAmount(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(fmt.Sprintf("register %q validation: %v", amountTag, err))
	}
	return v
}

func inputFrom(e core.Expense) expenseInput {
	return expenseInput{
		Payee:  strings.TrimSpace(e.StringField(core.FieldPayee)),
		Amount: amountText(e[core.FieldAmount]),
		Date:   strings.TrimSpace(e.StringField(core.FieldDate)),
	}
}

// amountText renders the submitted amount for validation. Non-numeric
// kinds render to text that fails the amount rule.
func amountText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// validate returns the client-facing rejection message for e, or "" when
// e is acceptable.
func (s *LedgerService) validate(e core.Expense) string {
	err := s.rules.Struct(inputFrom(e))
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid expense"
	}
	return rejectionMessage(verrs[0])
}

func rejectionMessage(fe validator.FieldError) string {
	field := "`" + fe.Field() + "`"
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Invalid expense: %s is required", field)
	case "max":
		return fmt.Sprintf("Invalid expense: %s must be at most %s characters", field, fe.Param())
	case amountTag:
		return fmt.Sprintf("Invalid expense: %s must be a positive number", field)
	case "datetime":
		return fmt.Sprintf("Invalid expense: %s must be a date in YYYY-MM-DD format", field)
	default:
		return fmt.Sprintf("Invalid expense: %s is invalid", field)
	}
}
