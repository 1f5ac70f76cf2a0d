package validator

import (
	"errors"
	"fmt"
	"reflect"
	"shareit/pkg/logger"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Fields returns a field to message map for error details.
func (v ValidationErrors) Fields() map[string]any {
	out := make(map[string]any, len(v))
	for _, err := range v {
		out[err.Field] = err.Message
	}
	return out
}

// Validator checks the canonical input schemas in pkg/model. The same
// instance type backs the gateway and the server.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

func New(log *logger.Logger) *Validator {
	return NewWithClock(log, time.Now)
}

func NewWithClock(log *logger.Logger, now func() time.Time) *Validator {
	v := &Validator{validate: validator.New(validator.WithRequiredStructEnabled()), now: now}

	v.validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	if err := v.validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
		log.Fatal("Failed to register 'notblank' validator", "error", err)
	}
	if err := v.validate.RegisterValidation("future", v.validateFuture); err != nil {
		log.Fatal("Failed to register 'future' validator", "error", err)
	}

	return v
}

func (v *Validator) validateFuture(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return t.After(v.now())
}

// Struct validates s and returns ValidationErrors for rule failures.
func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

// Var validates a single value against a tag, e.g. pagination parameters.
func (v *Validator) Var(field string, value any, tag string) error {
	if err := v.validate.Var(value, tag); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			out := translateValidationErrors(validationErrs)
			for i := range out {
				out[i].Field = field
				out[i].Message = strings.Replace(out[i].Message, "value", field, 1)
			}
			return out
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		field := err.Field()
		if field == "" {
			field = "value"
		}
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "notblank":
			message = fmt.Sprintf("%s must not be blank", field)
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", field)
		case "future":
			message = fmt.Sprintf("%s must be in the future", field)
		case "min":
			message = fmt.Sprintf("%s must be at least %s", field, err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", field, err.Param())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", field, err.Param())
		case "gte":
			message = fmt.Sprintf("%s must be greater than or equal to %s", field, err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", field, err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   field,
			Message: message,
		})
	}

	return validationErrors
}
