package reading

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name, the name vendors send.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// Check runs the struct-tag constraints of record and appends a FieldError
// for every failing field the decoder has not already reported.
func Check(record interface{}, errs []FieldError) []FieldError {
	err := validate.Struct(record)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return append(errs, FieldError{
			Field:   "non_field_errors",
			Message: err.Error(),
			Code:    CodeInvalid,
		})
	}

	reported := make(map[string]bool, len(errs))
	for _, e := range errs {
		reported[e.Field] = true
	}

	for _, fe := range verrs {
		if reported[fe.Field()] {
			continue
		}
		reported[fe.Field()] = true
		errs = append(errs, FieldError{
			Field:   fe.Field(),
			Message: constraintMessage(fe),
			Code:    fe.Tag(),
		})
	}

	return errs
}

func constraintMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "oneof":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(fe.Value()))
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	default:
		return fmt.Sprintf("Failed on the %q constraint.", fe.Tag())
	}
}
