package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// ReadAndValidateRequest binds query/path/body parameters into req, fills
// struct defaults, and validates. A nil return means req is ready to use;
// otherwise the returned value is the validation error payload.
func ReadAndValidateRequest(c echo.Context, req interface{}) interface{} {
	if err := c.Bind(req); err != nil {
		return validationPayload(err)
	}

	if err := defaults.Set(req); err != nil {
		return validationPayload(err)
	}

	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return validationPayload(err)
	}

	return nil
}

// validationPayload converts bind and validate failures into the error body
// carried inside a 400 envelope.
func validationPayload(err error) interface{} {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]ValidationError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, ValidationError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fe.Field(),
				Message: fieldMessage(fe),
				Params:  fieldParams(fe),
			})
		}
		return out
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		// Bind failures surface as echo errors, e.g. a non-integer count.
		return []ValidationError{{
			Code:    "ERR_BIND",
			Message: fmt.Sprintf("%v", he.Message),
		}}
	}

	return []ValidationError{{
		Code:    "ERR_UNKNOWN",
		Message: err.Error(),
	}}
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must have exactly %s elements", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

func fieldParams(fe validator.FieldError) map[string]interface{} {
	switch fe.Tag() {
	case "gte", "min":
		return map[string]interface{}{"min": fe.Param()}
	case "lte", "max":
		return map[string]interface{}{"max": fe.Param()}
	case "gt", "lt":
		return map[string]interface{}{"value": fe.Param()}
	case "len":
		return map[string]interface{}{"len": fe.Param()}
	case "oneof":
		return map[string]interface{}{"options": strings.Split(fe.Param(), " ")}
	default:
		return nil
	}
}
