package handlers

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the marketplace tags to gin's validator
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	return v.RegisterValidation("money", validateMoney)
}

// validateMoney accepts amounts with at most two decimal places
func validateMoney(fl validator.FieldLevel) bool {
	amount := fl.Field().Float()
	cents := amount * 100
	return math.Abs(cents-math.Round(cents)) < 1e-6
}

// bindErrorMessage turns validator errors into one readable line
func bindErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "money":
			msgs = append(msgs, field+" must have at most two decimal places")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		case "min", "gt", "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s", field, tagComparison(fe.Tag()), fe.Param()))
		case "max", "lt", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s", field, tagComparison(fe.Tag()), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func tagComparison(tag string) string {
	switch tag {
	case "gt":
		return "greater than"
	case "lt":
		return "less than"
	case "max", "lte":
		return "at most"
	default:
		return "at least"
	}
}
