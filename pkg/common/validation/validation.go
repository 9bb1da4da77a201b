package validation

import (
	"reflect"

	nserrors "github.com/nanoserve/nanoserve/pkg/common/errors"
)

// ValidatePositive validates that an integer value is positive (> 0).
// Returns a ValidationError if the value is not positive.
func ValidatePositive(module, field string, value int) error {
	if value <= 0 {
		return nserrors.NewValidationError(module, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}

// ValidateNonNegative validates that an integer value is non-negative (>= 0).
// Returns a ValidationError if the value is negative.
func ValidateNonNegative(module, field string, value int) error {
	if value < 0 {
		return nserrors.NewValidationError(module, field, value, "cannot be negative").
			WithHint("use 0 or a positive value")
	}
	return nil
}

// ValidatePort validates that a value is a usable TCP port number.
// Port 0 is accepted: the kernel assigns an ephemeral port.
func ValidatePort(module, field string, value int) error {
	if value < 0 || value > 65535 {
		return nserrors.NewValidationError(module, field, value, "out of range").
			WithHint("ports are 0-65535")
	}
	return nil
}

// ValidateNotNil validates that an interface value is not nil. Typed nils
// (a nil pointer or func stored in an interface) are rejected too.
func ValidateNotNil(module, field string, value interface{}) error {
	if value == nil || isNil(value) {
		return nserrors.NewValidationError(module, field, nil, "cannot be nil").
			WithHint("provide a valid " + field)
	}
	return nil
}

func isNil(value interface{}) bool {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// ValidateNotEmpty validates that a string value is not empty.
// Returns a ValidationError if the string is empty.
func ValidateNotEmpty(module, field string, value string) error {
	if value == "" {
		return nserrors.NewValidationError(module, field, value, "cannot be empty").
			WithHint("provide a non-empty " + field)
	}
	return nil
}
