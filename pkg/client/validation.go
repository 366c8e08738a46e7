package client

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/abstractors/go-rewards/common/apperror"
	"github.com/abstractors/go-rewards/entities"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

// field errors are reported under their json names
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// ValidationError lists every invalid field of a request.
type ValidationError struct {
	Errors []entities.FieldError
}

func NewValidationError(errs ...entities.FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

func (e *ValidationError) Error() string {
	msgs := []string{}
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}
	return "Validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperror.BadRequest("Validation failed")
}

// Validate checks obj against its binding tags.
func Validate(obj interface{}) error {
	if err := binding.Validator.ValidateStruct(obj); err != nil {
		return BindingError(err)
	}
	return nil
}

// BindingError turns a gin bind or validator failure into a ValidationError.
// Decoding failures are reported against the request body.
func BindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewValidationError(entities.FieldError{Field: "body", Message: err.Error()})
	}
	fields := make([]entities.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, entities.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return NewValidationError(fields...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", fe.Field())
	case "eth_addr":
		return fmt.Sprintf("%q must be a valid Ethereum address", fe.Field())
	default:
		return fmt.Sprintf("%q is invalid", fe.Field())
	}
}

// ParseChainID reads a chainId query value; empty selects fallback.
func ParseChainID(raw string, fallback uint64) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, NewValidationError(entities.FieldError{Field: "chainId", Message: "\"chainId\" must be a positive integer"})
	}
	return id, nil
}
